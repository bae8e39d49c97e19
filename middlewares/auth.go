package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// UserIDKey is the gin context key holding the verified caller id.
const UserIDKey = "userId"

type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

func bearer(c *gin.Context) string {
	h := c.Request.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// Authenticate rejects requests without a valid session token.
func Authenticate(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c)
		if token == "" || v == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authorized."})
			return
		}
		uid, err := v.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authorized."})
			return
		}
		c.Set(UserIDKey, uid)
		c.Next()
	}
}

// Identify records the caller when a valid token is present and lets
// anonymous requests through.
func Identify(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearer(c); token != "" && v != nil {
			if uid, err := v.VerifyToken(token); err == nil {
				c.Set(UserIDKey, uid)
			}
		}
		c.Next()
	}
}
