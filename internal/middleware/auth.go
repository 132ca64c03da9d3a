package middleware

import (
	"crypto/subtle"
	"net/http"
	"voucher-api/internal/config"
	"voucher-api/internal/response"

	"github.com/gin-gonic/gin"
)

// AdminAuthMiddleware guards the operator endpoints with the configured
// API key, passed via header or query parameter.
func AdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-API-Key")
		if apiKey == "" {
			apiKey = c.Query("api_key")
		}

		expected := config.AppConfig.AdminAPIKey
		if expected == "" || !secureEqual(apiKey, expected) {
			c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid or missing api key"))
			c.Abort()
			return
		}

		c.Next()
	}
}

// ReaperAuthMiddleware guards the reaper trigger with its shared secret.
// The scheduler that invokes the sweep is the only expected caller.
func ReaperAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := c.GetHeader("X-Reaper-Secret")
		if secret == "" {
			secret = c.Query("secret")
		}

		expected := config.AppConfig.ReaperSecret
		if expected == "" || !secureEqual(secret, expected) {
			c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid or missing secret"))
			c.Abort()
			return
		}

		c.Next()
	}
}

func secureEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
