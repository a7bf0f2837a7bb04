package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/teamhub/kb-api/internal/authz"
	"github.com/teamhub/kb-api/internal/middleware"
	"github.com/teamhub/kb-api/internal/models"
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

func principalFromContext(c *gin.Context) (authz.Principal, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		return authz.Principal{}, false
	}
	return authz.Principal{UserID: claims.UserID, Role: claims.Role}, true
}
