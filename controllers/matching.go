// controllers/matching.go - Reviewer matching endpoints
package controllers

import (
	"net/http"
	"strconv"

	"review-assignment-api/services"

	"github.com/gin-gonic/gin"
)

// FindReviewers ranks reviewer candidates for a manuscript.
func FindReviewers(c *gin.Context) {
	manuscriptID, err := strconv.Atoi(c.Param("id"))
	if err != nil || manuscriptID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid manuscript ID"})
		return
	}

	var req struct {
		Limit              int      `json:"limit"`
		MinHIndex          int      `json:"min_h_index"`
		MinPublications    int      `json:"min_publications"`
		MaxCurrentLoad     int      `json:"max_current_load"`
		ExcludeReviewerIDs []int    `json:"exclude_reviewer_ids"`
		PreferredCountries []string `json:"preferred_countries"`
		IncludeIneligible  bool     `json:"include_ineligible"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	criteria := services.MatchingCriteria{
		ManuscriptID:       manuscriptID,
		MinHIndex:          req.MinHIndex,
		MinPublications:    req.MinPublications,
		MaxCurrentLoad:     req.MaxCurrentLoad,
		ExcludeReviewerIDs: req.ExcludeReviewerIDs,
		PreferredCountries: req.PreferredCountries,
		IncludeIneligible:  req.IncludeIneligible,
	}

	result, err := matcherService.FindReviewers(c.Request.Context(), criteria, req.Limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"matches":          result.Matches,
		"total_candidates": result.TotalCandidates,
		"metadata":         result.Metadata,
	})
}
