package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/quotecraft/machine-quote-api/internal/models"
)

func performRBAC(t *testing.T, claims *models.JWTClaims, required ...string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
	}, RBAC(required...), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(w, req)
	return w
}

func TestRBACAllowsWhenNoRolesRequired(t *testing.T) {
	w := performRBAC(t, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRBACRejectsMissingClaims(t *testing.T) {
	w := performRBAC(t, nil, models.RoleAdmin)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRBACMatchesAnyHeldRole(t *testing.T) {
	claims := &models.JWTClaims{Role: models.RoleUser, Roles: []string{models.RoleUser, models.RoleSales}}
	w := performRBAC(t, claims, models.RoleSales)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRBACRejectsUnheldRole(t *testing.T) {
	claims := &models.JWTClaims{Role: models.RoleUser, Roles: []string{models.RoleUser}}
	w := performRBAC(t, claims, models.RoleAdmin)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRBACFallsBackToPrimaryRole(t *testing.T) {
	claims := &models.JWTClaims{Role: models.RoleAdmin}
	w := performRBAC(t, claims, models.RoleAdmin)
	assert.Equal(t, http.StatusOK, w.Code)
}
