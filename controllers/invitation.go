// controllers/invitation.go - Invitation lifecycle endpoints
package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"review-assignment-api/services"

	"github.com/gin-gonic/gin"
)

// CreateInvitation issues a single invitation (editor initiated).
func CreateInvitation(c *gin.Context) {
	manuscriptID, err := strconv.Atoi(c.Param("id"))
	if err != nil || manuscriptID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid manuscript ID"})
		return
	}

	var req struct {
		ReviewerID       int        `json:"reviewer_id" binding:"required"`
		ReviewDeadline   time.Time  `json:"review_deadline" binding:"required"`
		ResponseDeadline *time.Time `json:"response_deadline"`
		CustomMessage    *string    `json:"custom_message"`
		OverrideReason   *string    `json:"coi_override_reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userIDValue, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User context missing"})
		return
	}
	inviterID := userIDValue.(int)

	input := services.CreateInvitationInput{
		ManuscriptID:     manuscriptID,
		ReviewerID:       req.ReviewerID,
		InviterID:        inviterID,
		CustomMessage:    req.CustomMessage,
		ReviewDeadline:   req.ReviewDeadline,
		ResponseDeadline: req.ResponseDeadline,
	}
	if req.OverrideReason != nil && *req.OverrideReason != "" {
		input.Override = &services.Override{
			GrantedBy: inviterID,
			Reason:    *req.OverrideReason,
			Timestamp: time.Now(),
		}
	}

	inv, err := invitationService.Create(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"invitation": inv,
	})
}

// GetInvitationByToken serves the public token view. Reading an overdue
// pending invitation performs the lazy expiry transition before returning.
func GetInvitationByToken(c *gin.Context) {
	inv, err := invitationService.GetByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	view, err := invitationService.PublicView(c.Request.Context(), inv)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"invitation": view,
	})
}

// RespondToInvitation captures a reviewer's accept or decline.
func RespondToInvitation(c *gin.Context) {
	var req services.RespondInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.ClientFingerprint = fmt.Sprintf("%s %s", c.ClientIP(), c.Request.UserAgent())

	inv, err := invitationService.Respond(c.Request.Context(), c.Param("token"), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"status":  inv.Status,
	})
}

// CancelInvitation withdraws a pending invitation (editor initiated).
func CancelInvitation(c *gin.Context) {
	invitationID, err := strconv.Atoi(c.Param("id"))
	if err != nil || invitationID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invitation ID"})
		return
	}

	inv, err := invitationService.Cancel(c.Request.Context(), invitationID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"invitation": inv,
	})
}
