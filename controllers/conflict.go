// controllers/conflict.go - Conflict-of-interest endpoints
package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// CheckConflicts evaluates one reviewer against one manuscript.
func CheckConflicts(c *gin.Context) {
	manuscriptID, err := strconv.Atoi(c.Param("id"))
	if err != nil || manuscriptID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid manuscript ID"})
		return
	}
	reviewerID, err := strconv.Atoi(c.Param("reviewer_id"))
	if err != nil || reviewerID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reviewer ID"})
		return
	}

	result, err := conflictService.CheckConflicts(c.Request.Context(), reviewerID, manuscriptID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  result,
	})
}

// CheckMultipleConflicts evaluates a batch of reviewers against one
// manuscript. Individual lookup failures are reported per reviewer without
// failing the batch.
func CheckMultipleConflicts(c *gin.Context) {
	manuscriptID, err := strconv.Atoi(c.Param("id"))
	if err != nil || manuscriptID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid manuscript ID"})
		return
	}

	var req struct {
		ReviewerIDs []int `json:"reviewer_ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reviewer_ids is required"})
		return
	}

	results, failures, err := conflictService.CheckMultiple(c.Request.Context(), req.ReviewerIDs, manuscriptID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	errorsByReviewer := make(map[int]string, len(failures))
	for reviewerID, failure := range failures {
		errorsByReviewer[reviewerID] = failure.Error()
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"results": results,
		"errors":  errorsByReviewer,
	})
}
