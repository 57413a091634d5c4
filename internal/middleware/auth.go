package middleware

import (
	"net/http"
	"strings"

	"fleetops-backend/pkg/auth"

	"github.com/gin-gonic/gin"
)

func AuthMiddleware(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header is required",
			})
			c.Abort()
			return
		}

		// Формат "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization header format",
			})
			c.Abort()
			return
		}

		token := parts[1]
		claims, err := jwtManager.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid token",
			})
			c.Abort()
			return
		}

		// Явный org scope: каждый хендлер берет org_id отсюда и передает
		// его в каждый запрос к базе
		c.Set("user_id", claims.UserID)
		c.Set("org_id", claims.OrgID)
		c.Set("user_email", claims.Email)
		c.Set("user_name", claims.FullName)
		c.Set("role", claims.Role.String())

		c.Next()
	}
}
