package handlers

import (
	"io"
	"net/http"
	"time"

	"devlense/internal/config"
	"devlense/internal/middleware"
	"devlense/internal/models"
	"devlense/internal/observability"
	"devlense/internal/services"
	contextutils "devlense/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// AuthHandler handles sign-in, sign-out and the auth state stream
type AuthHandler struct {
	identity services.IdentityServiceInterface
	config   *config.Config
	logger   *observability.Logger
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler(identity services.IdentityServiceInterface, cfg *config.Config, logger *observability.Logger) *AuthHandler {
	return &AuthHandler{
		identity: identity,
		config:   cfg,
		logger:   logger,
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles user login requests
func (h *AuthHandler) Login(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "login")
	defer observability.FinishSpan(span, nil)

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindError(c, err)
		return
	}
	span.SetAttributes(attribute.String("auth.username", req.Username))

	session, token, err := h.identity.SignIn(ctx, req.Username, req.Password)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	if err := storeSessionToken(c, token); err != nil {
		h.logger.Error(ctx, "Failed to save session", err, map[string]interface{}{"user_id": session.UserID})
		HandleAppError(c, contextutils.WrapError(err, "failed to create session"))
		return
	}

	span.SetAttributes(observability.AttributeUserID(session.UserID))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": session,
	})
}

// Logout handles user logout requests
func (h *AuthHandler) Logout(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "logout")
	defer observability.FinishSpan(span, nil)

	if err := h.signOut(c); err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Session reports whether the caller is signed in
func (h *AuthHandler) Session(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "session")
	defer observability.FinishSpan(span, nil)

	session := optionalSession(c, h.identity, h.logger)
	span.SetAttributes(attribute.Bool("auth.authenticated", session != nil))
	c.JSON(http.StatusOK, gin.H{
		"authenticated": session != nil,
		"session":       session,
	})
}

// signOut revokes the cookie's session and clears the cookie. A failed revoke
// still clears the cookie.
func (h *AuthHandler) signOut(c *gin.Context) error {
	ctx := c.Request.Context()
	token := middleware.SessionToken(c)
	revokeErr := h.identity.SignOut(ctx, token)
	if revokeErr != nil {
		h.logger.Error(ctx, "Failed to revoke session", revokeErr, nil)
	}
	if err := clearSessionToken(c); err != nil {
		return contextutils.WrapError(err, "failed to clear session")
	}
	return revokeErr
}

// Events streams the visitor's navigation bar as server-sent events. A fresh
// bar is pushed when this session signs out elsewhere.
func (h *AuthHandler) Events(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "auth_events")
	defer observability.FinishSpan(span, nil)

	session := optionalSession(c, h.identity, h.logger)
	locale := middleware.RequestLocale(c)
	span.SetAttributes(attribute.Bool("auth.authenticated", session != nil))

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	events := make(chan models.AuthEvent, 4)
	unsubscribe := h.identity.OnAuthStateChange(ctx, func(event models.AuthEvent) {
		if session == nil || event.SessionID != session.ID {
			return
		}
		select {
		case events <- event:
		default:
		}
	})
	defer unsubscribe()

	heartbeat := time.NewTicker(config.AuthEventHeartbeat)
	defer heartbeat.Stop()

	c.SSEvent("navigation", BuildNavigation(session, locale))
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case event := <-events:
			if event.Type != models.AuthEventSignedOut {
				return true
			}
			c.SSEvent("navigation", BuildNavigation(nil, locale))
			return false
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().UTC().Unix())
			return true
		case <-ctx.Done():
			return false
		}
	})
}

// LoginPage renders the sign-in form
func (h *AuthHandler) LoginPage(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "login_page")
	defer observability.FinishSpan(span, nil)

	if session := optionalSession(c, h.identity, h.logger); session != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}

	data := newPageData(c, nil, contextutils.T(contextutils.MsgLoginTitle, middleware.RequestLocale(c)))
	data.Form = loginForm{}
	c.HTML(http.StatusOK, pageLogin, data)
}

// LoginSubmit signs in from the form. A failure re-renders the form with the
// username kept.
func (h *AuthHandler) LoginSubmit(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "login_submit")
	defer observability.FinishSpan(span, nil)

	username := c.PostForm("username")
	password := c.PostForm("password")
	locale := middleware.RequestLocale(c)
	span.SetAttributes(attribute.String("auth.username", username))

	_, token, err := h.identity.SignIn(ctx, username, password)
	if err == nil {
		err = storeSessionToken(c, token)
	}
	if err != nil {
		data := newPageData(c, nil, contextutils.T(contextutils.MsgLoginTitle, locale))
		data.Form = loginForm{Username: username}
		data.Error = &pageError{
			Title:   contextutils.T(contextutils.MsgErrorTitle, locale),
			Message: contextutils.T(contextutils.MsgLoginFailed, locale, contextutils.GetErrorLocalizedMessage(err, string(locale))),
		}
		c.HTML(middleware.HTTPStatusFor(contextutils.GetErrorCode(err)), pageLogin, data)
		return
	}

	c.Redirect(http.StatusSeeOther, "/")
}

// LogoutPage signs out from the navigation bar button
func (h *AuthHandler) LogoutPage(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "logout_page")
	defer observability.FinishSpan(span, nil)

	if err := h.signOut(c); err != nil {
		h.logger.Warn(c.Request.Context(), "Sign-out incomplete", map[string]interface{}{"error": err.Error()})
	}
	c.Redirect(http.StatusSeeOther, "/")
}
