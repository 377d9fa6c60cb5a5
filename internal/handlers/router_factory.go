package handlers

import (
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"devlense/internal/config"
	"devlense/internal/middleware"
	"devlense/internal/observability"
	"devlense/internal/services"
	"devlense/internal/version"
)

// RouterDeps are the services the HTTP layer talks to
type RouterDeps struct {
	Identity    services.IdentityServiceInterface
	Submissions services.SubmissionServiceInterface
	QnAView     QnAListLoader
	// LoginLimiter throttles sign-in attempts per client IP. Nil disables it.
	LoginLimiter middleware.Limiter
	Schemas      *middleware.SchemaLoader
	// StorageRoot is served under config.StorageRoute when attachments are kept on disk
	StorageRoot string
}

// requestLogger logs every request at a level matching its status
func requestLogger(logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		statusCode := c.Writer.Status()
		fields := map[string]interface{}{
			"http.method":      c.Request.Method,
			"http.path":        c.Request.URL.Path,
			"http.status_code": statusCode,
			"http.latency_ms":  time.Since(start).Milliseconds(),
			"http.client_ip":   c.ClientIP(),
			"http.user_agent":  c.Request.UserAgent(),
		}
		if len(c.Errors) > 0 {
			fields["http.error"] = c.Errors.String()
		}
		if statusCode >= 400 {
			fields["http.response_size"] = c.Writer.Size()
			if statusCode >= 500 {
				fields["http.error_type"] = "server_error"
			} else {
				fields["http.error_type"] = "client_error"
			}
		}

		switch {
		case statusCode >= 500:
			logger.Error(c.Request.Context(), "HTTP request failed", nil, fields)
		case statusCode >= 400:
			logger.Warn(c.Request.Context(), "HTTP request warning", fields)
		default:
			logger.Info(c.Request.Context(), "HTTP request", fields)
		}
	}
}

// requestBodyLimit leaves room for the form fields next to a maximum size
// image, so a slightly oversized image still gets the inline size message.
func requestBodyLimit(cfg *config.Config) int64 {
	maxBytes := cfg.Uploads.MaxBytes
	if maxBytes <= 0 {
		maxBytes = config.MaxAttachmentBytes
	}
	return 2 * maxBytes
}

// NewRouter creates the gin engine with all middleware, pages and API routes
func NewRouter(cfg *config.Config, deps RouterDeps, logger *observability.Logger) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	}

	renderer, err := newPageRenderer(templateFS)
	if err != nil {
		return nil, err
	}
	schemas := deps.Schemas
	if schemas == nil {
		if schemas, err = middleware.LoadEmbeddedSchemas(); err != nil {
			return nil, err
		}
	}

	bodyLimit := requestBodyLimit(cfg)

	router := gin.New()
	router.HTMLRender = renderer
	router.RedirectTrailingSlash = false
	router.MaxMultipartMemory = bodyLimit

	router.Use(requestLogger(logger))
	router.Use(middleware.ErrorRecoveryMiddleware(logger))
	router.Use(middleware.LimitRequestBody(bodyLimit))

	// Health check endpoint (defined before tracing and sessions)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "devlense"})
	})

	router.Use(observability.GinMiddlewareWithErrorHandling("devlense")...)

	if len(cfg.Server.CORSOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = cfg.Server.CORSOrigins
		corsConfig.AllowCredentials = true
		corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "X-Requested-With"}
		corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
		router.Use(cors.New(corsConfig))
	}

	store := cookie.NewStore([]byte(cfg.Server.SessionSecret))
	sessionOpts := sessions.Options{
		Path:     config.SessionPath,
		MaxAge:   int(config.SessionMaxAge.Seconds()),
		HttpOnly: config.SessionHTTPOnly,
		Secure:   cfg.Server.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	store.Options(sessionOpts)
	router.Use(sessions.Sessions(config.SessionName, store))

	secureConfig := secure.DefaultConfig()
	secureConfig.SSLRedirect = false
	secureConfig.IsDevelopment = cfg.Server.Debug
	secureConfig.ContentSecurityPolicy = config.DefaultCSP
	router.Use(secure.New(secureConfig))

	router.Use(middleware.LocaleMiddleware(cfg.Server.DefaultLocale))

	assets, err := fs.Sub(AssetsFS, "templates/assets")
	if err != nil {
		return nil, err
	}
	router.StaticFS("/assets", http.FS(assets))
	if deps.StorageRoot != "" {
		router.Static(config.StorageRoute, deps.StorageRoot)
	}

	siteHandler := NewSiteHandler(deps.Identity, logger)
	authHandler := NewAuthHandler(deps.Identity, cfg, logger)
	bugReportHandler := NewBugReportHandler(deps.Submissions, cfg, logger)
	qnaHandler := NewQnAHandler(deps.Submissions, deps.QnAView, logger)

	requireAPI := middleware.RequireAPISession(deps.Identity, logger)
	requirePage := middleware.RequirePageSession(deps.Identity, logger)
	validate := middleware.RequestValidationMiddleware(schemas, logger)
	loginLimit := middleware.RateLimitByClientIP(deps.LoginLimiter, "login", logger)

	v1 := router.Group("/v1")
	{
		v1.GET("/version", func(c *gin.Context) {
			c.JSON(http.StatusOK, version.Info("devlense"))
		})
		v1.GET("/navigation", siteHandler.GetNavigation)

		auth := v1.Group("/auth")
		{
			auth.POST("/login", loginLimit, validate, authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/session", authHandler.Session)
			auth.GET("/events", authHandler.Events)
		}

		members := v1.Group("")
		members.Use(requireAPI, validate)
		{
			members.POST("/bug-reports", bugReportHandler.Create)
			members.GET("/qna", qnaHandler.List)
			members.POST("/qna", qnaHandler.Create)
		}
	}

	router.GET("/", siteHandler.Home)
	router.GET(config.LoginRoute, authHandler.LoginPage)
	router.POST(config.LoginRoute, loginLimit, authHandler.LoginSubmit)
	router.POST("/logout", authHandler.LogoutPage)

	pages := router.Group("")
	pages.Use(requirePage)
	{
		pages.GET(config.BugReportRoute, bugReportHandler.Page)
		pages.POST(config.BugReportRoute, bugReportHandler.PageSubmit)
		pages.GET(config.QnARoute, qnaHandler.Page)
		pages.POST(config.QnARoute, qnaHandler.PageSubmit)
	}

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/v1/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		c.Redirect(http.StatusFound, "/")
	})

	if cfg.Server.Debug {
		routeListing := NewRouteListingHandler("devlense")
		routeListing.CollectRoutes(router)
		router.GET("/routez", routeListing.GetRouteListingJSON)
	}

	return router, nil
}
