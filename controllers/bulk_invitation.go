// controllers/bulk_invitation.go - Bulk invitation endpoint
package controllers

import (
	"net/http"
	"strconv"
	"time"

	"review-assignment-api/services"

	"github.com/gin-gonic/gin"
)

// BulkInvite creates invitations for a set of reviewers. The response holds
// exactly one result per requested reviewer, in request order.
func BulkInvite(c *gin.Context) {
	manuscriptID, err := strconv.Atoi(c.Param("id"))
	if err != nil || manuscriptID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid manuscript ID"})
		return
	}

	var req struct {
		ReviewerIDs      []int          `json:"reviewer_ids" binding:"required,min=1"`
		DueDate          time.Time      `json:"due_date" binding:"required"`
		ResponseDeadline *time.Time     `json:"response_deadline"`
		CustomMessage    *string        `json:"custom_message"`
		Staggered        bool           `json:"staggered"`
		StaggerHours     int            `json:"stagger_hours"`
		Overrides        map[int]string `json:"overrides"` // reviewer id -> reason
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

	opts := services.BulkInviteOptions{
		Staggered:        req.Staggered,
		StaggerHours:     req.StaggerHours,
		CustomMessage:    req.CustomMessage,
		ResponseDeadline: req.ResponseDeadline,
	}
	if len(req.Overrides) > 0 {
		opts.Overrides = make(map[int]services.Override, len(req.Overrides))
		now := time.Now()
		for reviewerID, reason := range req.Overrides {
			if reason == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Override reason must not be empty"})
				return
			}
			opts.Overrides[reviewerID] = services.Override{
				GrantedBy: inviterID,
				Reason:    reason,
				Timestamp: now,
			}
		}
	}

	results, err := bulkInviteService.Invite(c.Request.Context(), manuscriptID, req.ReviewerIDs, req.DueDate, inviterID, opts)
	if err != nil && len(results) == 0 {
		respondServiceError(c, err)
		return
	}

	invited := 0
	for _, result := range results {
		if result.Status == services.BulkResultSuccess {
			invited++
		}
	}

	response := gin.H{
		"success": true,
		"invited": invited,
		"results": results,
	}
	if err != nil {
		// Invitations were already created; keep the reconciliation list and
		// report the follow-up failure alongside it.
		response["warning"] = "manuscript status update failed: " + err.Error()
	}
	c.JSON(http.StatusOK, response)
}
