package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/quotecraft/machine-quote-api/internal/models"
	appErrors "github.com/quotecraft/machine-quote-api/pkg/errors"
	"github.com/quotecraft/machine-quote-api/pkg/response"
)

// RBAC enforces role-based access control. Without required roles the route
// only needs authentication.
func RBAC(required ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(required))
	for _, name := range required {
		allowed[name] = struct{}{}
	}

	return func(c *gin.Context) {
		if len(allowed) == 0 {
			c.Next()
			return
		}

		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		for _, role := range claims.Roles {
			if _, ok := allowed[role]; ok {
				c.Next()
				return
			}
		}
		if _, ok := allowed[claims.Role]; ok {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireAdmin restricts a route to roles with cross-tenant visibility.
func RequireAdmin() gin.HandlerFunc {
	return RBAC(models.AdminRoles...)
}
