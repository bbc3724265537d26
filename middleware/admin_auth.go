package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// AdminAuth gates the maintenance endpoints behind the X-Admin-Secret
// header. With ADMIN_SECRET unset the whole group answers 503, so a
// misconfigured deploy fails closed.
func AdminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := strings.TrimSpace(os.Getenv("ADMIN_SECRET"))
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"message": "Endpoints administrativos não estão configurados",
			})
			return
		}

		provided := c.GetHeader("X-Admin-Secret")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Não autorizado",
			})
			return
		}

		c.Next()
	}
}
