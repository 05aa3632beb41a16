package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
)

const RoleAdmin = "admin"

// RequireRole restricts access to specific roles; admin passes every check.
// It MUST be used AFTER RequireAuth.
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, exists := c.Get("user_role")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Role context missing"})
			return
		}

		role, _ := userRole.(string)
		if role == RoleAdmin || slices.Contains(allowedRoles, role) {
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "Forbidden: You lack the required permissions.",
		})
	}
}
