package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CreateToken issues a fresh API token and reserves a pending subscription
// record for it.
func (h *Handler) CreateToken(c *gin.Context) {
	reservation, err := h.service.IssueToken(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": reservation})
}
