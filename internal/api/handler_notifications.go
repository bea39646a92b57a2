package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// TriggerNotification fires the one-time push for the token in the
// Authorization header.
func (h *Handler) TriggerNotification(c *gin.Context) {
	if err := h.service.TriggerNotification(c.Request.Context(), bearerToken(c)); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": gin.H{"success": true}})
}
