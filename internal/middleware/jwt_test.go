package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamhub/kb-api/internal/models"
	"github.com/teamhub/kb-api/internal/service"
)

const testSecret = "test-secret"

func newAuthServiceForMiddleware() *service.AuthService {
	return service.NewAuthService(nil, nil, nil, service.AuthConfig{
		AccessTokenSecret: testSecret,
		AccessTokenExpiry: time.Hour,
	})
}

func signTestToken(t *testing.T, claims *models.JWTClaims) string {
	t.Helper()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func performOptional(t *testing.T, authorization string) (*httptest.ResponseRecorder, *models.JWTClaims) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var seen *models.JWTClaims
	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)
	r.GET("/public", OptionalJWT(newAuthServiceForMiddleware()), func(c *gin.Context) {
		if value, ok := c.Get(ContextUserKey); ok {
			seen = value.(*models.JWTClaims)
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/public", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	r.ServeHTTP(w, req)
	return w, seen
}

func TestOptionalJWTWithoutToken(t *testing.T) {
	w, seen := performOptional(t, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, seen)
}

func TestOptionalJWTAttachesClaims(t *testing.T) {
	token := signTestToken(t, &models.JWTClaims{UserID: "u1", Role: models.RoleViewer})
	w, seen := performOptional(t, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "u1", seen.UserID)
}

func TestOptionalJWTIgnoresInvalidToken(t *testing.T) {
	w, seen := performOptional(t, "Bearer not-a-token")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, seen)
}
