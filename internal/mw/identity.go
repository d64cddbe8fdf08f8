package mw

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ward-status-backend/internal/notes"
)

const userKey = "ward.user"

// Identity reads the caller from the X-User-* headers set by the desktop shell.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.GetHeader("X-User-ID"); id != "" {
			c.Set(userKey, &notes.User{
				ID:   id,
				Name: c.GetHeader("X-User-Name"),
				Role: c.GetHeader("X-User-Role"),
			})
		}
		c.Next()
	}
}

// RequireUser rejects requests without an identity.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "X-User-ID header is required"})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the caller set by Identity, or nil.
func CurrentUser(c *gin.Context) *notes.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*notes.User)
	return user
}
