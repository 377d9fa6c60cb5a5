package handlers

import (
	"devlense/internal/middleware"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Flash kinds. Dialogs block until dismissed, toasts do not.
const (
	flashDialog = "dialog"
	flashToast  = "toast"
)

// storeSessionToken keeps the signed token in the cookie session
func storeSessionToken(c *gin.Context, token string) error {
	session := sessions.Default(c)
	session.Set(middleware.SessionTokenKey, token)
	return session.Save()
}

// clearSessionToken drops everything the cookie session holds
func clearSessionToken(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	return session.Save()
}

// addFlash queues a message for the next page render
func addFlash(c *gin.Context, kind, message string) error {
	session := sessions.Default(c)
	session.AddFlash(message, kind)
	return session.Save()
}

// popFlashes returns and clears the queued messages of one kind
func popFlashes(c *gin.Context, kind string) []string {
	session := sessions.Default(c)
	raw := session.Flashes(kind)
	if len(raw) == 0 {
		return nil
	}
	_ = session.Save()

	messages := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			messages = append(messages, s)
		}
	}
	return messages
}
