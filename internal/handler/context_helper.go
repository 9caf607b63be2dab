package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aims-registration-api/internal/middleware"
	"github.com/noah-isme/aims-registration-api/internal/models"
	appErrors "github.com/noah-isme/aims-registration-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.Claims(c)
	if !ok {
		return nil
	}
	return claims
}

// studentFromContext returns the student ID carried by the access token. Only
// student accounts own a ledger.
func studentFromContext(c *gin.Context) (string, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return "", appErrors.ErrUnauthorized
	}
	if claims.Role != models.RoleStudent {
		return "", appErrors.Clone(appErrors.ErrForbidden, "only students have a registration")
	}
	return claims.UserID, nil
}
