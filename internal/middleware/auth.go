package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"signaling-service/internal/auth"
)

// ContextKeyUserID is where the authenticated user id lives in the gin
// context.
const ContextKeyUserID = "userID"

// AuthMiddleware validates the Authorization bearer token and stores the
// authenticated user id in the request context.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		claims, err := auth.ParseToken(parts[1], secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Next()
	}
}

// UserID extracts the authenticated user id from the gin context.
func UserID(c *gin.Context) int64 {
	val, ok := c.Get(ContextKeyUserID)
	if !ok {
		return 0
	}
	id, ok := val.(int64)
	if !ok {
		return 0
	}
	return id
}
