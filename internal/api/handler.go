package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"push-subscription-backend/internal/apperr"
	"push-subscription-backend/internal/subscription"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	service *subscription.Service
	webpush *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(service *subscription.Service, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		service: service,
		webpush: webpushOptions,
	}
}

// writeError maps a classified error onto the response. Internal detail
// stays out of the body; only the caller-safe message is sent.
func writeError(c *gin.Context, err error) {
	c.JSON(apperr.KindOf(err).HTTPStatus(), gin.H{"error": apperr.MessageOf(err)})
}

// bearerToken extracts the API token from the Authorization header.
func bearerToken(c *gin.Context) string {
	return c.GetHeader("Authorization")
}
