// Package middleware provides session guards, request validation, rate limiting
// and panic recovery for the Gin router.
package middleware

import (
	"context"
	"net/http"

	"devlense/internal/config"
	"devlense/internal/models"
	"devlense/internal/observability"
	contextutils "devlense/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	// SessionTokenKey is the cookie-session key holding the signed session token
	SessionTokenKey = "session_token"
	// SessionKey is the gin context key holding the resolved *models.Session
	SessionKey = "session"
)

// SessionResolver looks up the live session behind a token. A nil session with
// a nil error means there is none.
type SessionResolver interface {
	GetSession(ctx context.Context, token string) (*models.Session, error)
}

// SessionToken returns the token stored in the cookie session, or ""
func SessionToken(c *gin.Context) string {
	token, _ := sessions.Default(c).Get(SessionTokenKey).(string)
	return token
}

// CurrentSession returns the session resolved by a guard earlier in the chain
func CurrentSession(c *gin.Context) (*models.Session, bool) {
	v, ok := c.Get(SessionKey)
	if !ok {
		return nil, false
	}
	session, ok := v.(*models.Session)
	return session, ok && session != nil
}

// RequirePageSession guards server-rendered pages. Visitors without a session,
// or whose session cannot be fetched, are sent to the login page.
func RequirePageSession(identity SessionResolver, logger *observability.Logger) gin.HandlerFunc {
	return requireSession(identity, logger, func(c *gin.Context) {
		c.Redirect(http.StatusFound, config.LoginRoute)
	})
}

// RequireAPISession guards JSON routes and answers 401 instead of redirecting
func RequireAPISession(identity SessionResolver, logger *observability.Logger) gin.HandlerFunc {
	return requireSession(identity, logger, func(c *gin.Context) {
		HandleAppError(c, contextutils.ErrUnauthorized)
	})
}

func requireSession(identity SessionResolver, logger *observability.Logger, deny func(*gin.Context)) gin.HandlerFunc {
	if identity == nil {
		panic("session resolver cannot be nil")
	}
	return func(c *gin.Context) {
		ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "require_session")
		defer span.End()

		// Exactly one lookup per request.
		session, err := identity.GetSession(ctx, SessionToken(c))
		if err != nil {
			logger.Warn(ctx, "Session fetch failed, treating request as signed out", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})
			session = nil
		}
		if session == nil {
			deny(c)
			c.Abort()
			return
		}

		span.SetAttributes(observability.AttributeUserID(session.UserID), observability.AttributeSessionID(session.ID))

		c.Set(SessionKey, session)
		reqCtx := contextutils.WithUserID(c.Request.Context(), session.UserID)
		reqCtx = contextutils.WithSessionID(reqCtx, session.ID)
		c.Request = c.Request.WithContext(reqCtx)

		c.Next()
	}
}
