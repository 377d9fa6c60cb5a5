package handlers

import (
	"net/http"

	"devlense/internal/config"
	"devlense/internal/middleware"
	"devlense/internal/models"
	"devlense/internal/observability"
	"devlense/internal/services"
	contextutils "devlense/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// BuildNavigation returns the navigation bar for a visitor. Member links and the
// logout button appear only with a session.
func BuildNavigation(session *models.Session, locale contextutils.Locale) models.Navigation {
	t := func(key contextutils.MessageKey) string { return contextutils.T(key, locale) }

	nav := models.Navigation{
		Authenticated: session != nil,
		Items: []models.NavItem{
			{Label: t(contextutils.MsgNavAbout), Href: "/#about"},
			{Label: t(contextutils.MsgNavServices), Href: "/#services"},
			{Label: t(contextutils.MsgNavShowcase), Href: "/#showcase"},
			{Label: t(contextutils.MsgNavProjects), Href: "/#projects"},
		},
	}

	if session == nil {
		nav.Items = append(nav.Items, models.NavItem{
			Label:   t(contextutils.MsgNavLogin),
			Href:    config.LoginRoute,
			Action:  "login",
			Tooltip: t(contextutils.MsgNavLoginTooltip),
		})
		return nav
	}

	nav.Username = session.Username
	nav.Items = append(nav.Items,
		models.NavItem{Label: t(contextutils.MsgNavQnA), Href: config.QnARoute, MemberOnly: true},
		models.NavItem{Label: t(contextutils.MsgNavBugReport), Href: config.BugReportRoute, MemberOnly: true},
		models.NavItem{Label: t(contextutils.MsgNavLogout), Href: "/logout", Action: "logout"},
	)
	return nav
}

// SiteHandler serves the public pages and the navigation endpoint
type SiteHandler struct {
	identity services.IdentityServiceInterface
	logger   *observability.Logger
}

// NewSiteHandler creates a new SiteHandler instance
func NewSiteHandler(identity services.IdentityServiceInterface, logger *observability.Logger) *SiteHandler {
	return &SiteHandler{identity: identity, logger: logger}
}

// optionalSession resolves the visitor's session on routes that work either
// way. Lookup failures count as signed out.
func optionalSession(c *gin.Context, identity services.IdentityServiceInterface, logger *observability.Logger) *models.Session {
	if session, ok := middleware.CurrentSession(c); ok {
		return session
	}
	session, err := identity.GetSession(c.Request.Context(), middleware.SessionToken(c))
	if err != nil {
		logger.Warn(c.Request.Context(), "Session lookup failed", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return session
}

// GetNavigation returns the navigation bar for the current visitor
func (h *SiteHandler) GetNavigation(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_navigation")
	defer observability.FinishSpan(span, nil)

	session := optionalSession(c, h.identity, h.logger)
	span.SetAttributes(attribute.Bool("auth.authenticated", session != nil))
	c.JSON(http.StatusOK, BuildNavigation(session, middleware.RequestLocale(c)))
}

// Home renders the landing page shell
func (h *SiteHandler) Home(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "home")
	defer observability.FinishSpan(span, nil)

	session := optionalSession(c, h.identity, h.logger)
	locale := middleware.RequestLocale(c)
	data := newPageData(c, session, contextutils.T(contextutils.MsgBrand, locale))
	c.HTML(http.StatusOK, pageHome, data)
}
