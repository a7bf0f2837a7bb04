package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/teamhub/kb-api/internal/models"
)

func performGated(t *testing.T, claims *models.JWTClaims, roles ...models.UserRole) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)
	r.POST("/gated", func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
	}, RequireRoles(roles...), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/gated", nil)
	r.ServeHTTP(w, req)
	return w
}

func TestRequireRolesAllowsListedRole(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleEditor}
	w := performGated(t, claims, models.RoleAdmin, models.RoleEditor)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestRequireRolesBlocksViewer(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleViewer}
	w := performGated(t, claims, models.RoleAdmin, models.RoleEditor)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRolesBlocksEditorFromAdminRoute(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleEditor}
	w := performGated(t, claims, models.RoleAdmin)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	w := performGated(t, nil, models.RoleAdmin)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
