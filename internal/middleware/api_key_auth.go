package middleware

import (
	"github.com/gin-gonic/gin"

	portssvc "github.com/stemtide/stemtide_backend/internal/core/ports/services"
)

// APIKeyAuth is a middleware that authenticates requests using an X-API-Key
// header. When the key resolves to a user, JWT auth is skipped for the
// request; otherwise the request continues to the JWT middleware untouched.
func APIKeyAuth(userSvc portssvc.UserSvcFacade) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-API-Key")
		if apiKey == "" {
			c.Next()
			return
		}

		user, err := userSvc.GetUserByAPIKey(c.Request.Context(), apiKey)
		if err != nil {
			// Invalid key; let the JWT middleware decide the request's fate.
			c.Next()
			return
		}

		c.Set(string(userIDKey), user.UserID)
		c.Set("authMethod", "api_key")
		c.Next()
	}
}
