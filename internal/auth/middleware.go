package auth

import (
	"crypto/subtle"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	accountIDKey      = "account_id"
	adminActorKey     = "admin_actor"
	AdminSecretHeader = "X-Admin-Secret"
	AdminActorHeader  = "X-Admin-Actor"
)

// AuthMiddleware validates JWT tokens and protects routes
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")

		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required",
			})
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>" format
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization header format. Expected: Bearer <token>",
			})
			c.Abort()
			return
		}

		claims, err := ValidateToken(parts[1])
		if err != nil {
			log.Printf("[Auth] Token validation failed: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set(accountIDKey, claims.AccountID)

		c.Next()
	}
}

// AdminMiddleware gates the admin surface behind the shared secret
func AdminMiddleware(secret string) gin.HandlerFunc {
	expected := []byte(secret)
	return func(c *gin.Context) {
		provided := []byte(c.GetHeader(AdminSecretHeader))
		if len(expected) == 0 || subtle.ConstantTimeCompare(provided, expected) != 1 {
			log.Printf("[Auth] Rejected admin request from %s", c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid admin credential",
			})
			c.Abort()
			return
		}

		actor := c.GetHeader(AdminActorHeader)
		if actor == "" {
			actor = "admin"
		}
		c.Set(adminActorKey, actor)

		c.Next()
	}
}

// GetAccountID retrieves the account ID from the context
func GetAccountID(c *gin.Context) (string, bool) {
	accountID, exists := c.Get(accountIDKey)
	if !exists {
		return "", false
	}

	id, ok := accountID.(string)
	return id, ok && id != ""
}

// GetAdminActor returns the name the admin call was made under
func GetAdminActor(c *gin.Context) string {
	return c.GetString(adminActorKey)
}
