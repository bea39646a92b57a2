package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"push-subscription-backend/internal/subscription"
)

// PutSubscription binds a browser push payload to its reserved record.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req subscription.Submission
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.service.CreateSubscription(c.Request.Context(), req); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": gin.H{"success": true}})
}

// ConfirmSubscription transitions a pending subscription to approved.
func (h *Handler) ConfirmSubscription(c *gin.Context) {
	var req subscription.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ok, err := h.service.ConfirmSubscription(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"success": ok}})
}

// GetPendingApproval resolves a pending record by token, sub_id and nonce.
func (h *Handler) GetPendingApproval(c *gin.Context) {
	var req subscription.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	pending, err := h.service.GetPendingApproval(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": pending})
}

// GetSubscription returns the approved subscription overview for the token
// in the Authorization header.
func (h *Handler) GetSubscription(c *gin.Context) {
	overview, err := h.service.GetByToken(c.Request.Context(), bearerToken(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": overview})
}
