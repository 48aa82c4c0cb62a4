package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/averose/craftmarket-backend/auth"
)

const (
	UserIDKey = "userID"
	RoleKey   = "role"
)

// AuthRequired resolves a Bearer token into the caller identity and
// aborts with 401 when there is none. Handlers past this middleware
// can rely on c.MustGet(UserIDKey).(uuid.UUID).
func AuthRequired(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := bearerClaims(c, jwtSecret)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set(UserIDKey, userID)
		c.Set(RoleKey, claims.Role)
		c.Next()
	}
}

// RequireRole layers on AuthRequired and rejects callers whose token
// carries a different role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if r, _ := c.Get(RoleKey); r != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		c.Next()
	}
}

func bearerClaims(c *gin.Context, jwtSecret string) (*auth.Claims, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, false
	}

	claims, err := auth.ValidateToken(jwtSecret, parts[1])
	if err != nil {
		return nil, false
	}
	return claims, true
}
