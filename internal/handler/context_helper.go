package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/shift-booking-api/internal/middleware"
	"github.com/noah-isme/shift-booking-api/internal/models"
	appErrors "github.com/noah-isme/shift-booking-api/pkg/errors"
	"github.com/noah-isme/shift-booking-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// requireClaims writes 401 and returns nil when the request carries no caller.
func requireClaims(c *gin.Context) *models.JWTClaims {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil
	}
	return claims
}

func invalidPayload(c *gin.Context, err error) {
	response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
}
