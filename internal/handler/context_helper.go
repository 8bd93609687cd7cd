package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/quotecraft/machine-quote-api/internal/middleware"
	"github.com/quotecraft/machine-quote-api/internal/models"
	"github.com/quotecraft/machine-quote-api/internal/service"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorFromContext converts the JWT claims into the service-layer actor.
func actorFromContext(c *gin.Context) (service.Actor, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		return service.Actor{}, false
	}
	roles := claims.Roles
	if len(roles) == 0 && claims.Role != "" {
		roles = []string{claims.Role}
	}
	return service.Actor{UserID: claims.Subject, Roles: roles}, true
}
