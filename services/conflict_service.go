package services

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"review-assignment-api/models"
	"review-assignment-api/utils"
)

// Risk contributions per evidence type. Hard conflicts block regardless of
// the numeric score; soft contributions accumulate toward the threshold.
const (
	hardConflictSeverity    = 1.0
	sharedInstitutionRisk   = 0.3
	citationOverlapRiskStep = 0.1
	citationOverlapRiskCap  = 0.4

	defaultRiskThreshold = 0.7
)

// ConflictService computes conflict-of-interest evidence and eligibility
// verdicts for (reviewer, manuscript) pairs. It is read-only: results are
// returned to the caller and never persisted.
type ConflictService struct {
	store         CandidateStore
	riskThreshold float64
}

// NewConflictService builds a detector reading through the given store.
// COI_RISK_THRESHOLD overrides the default soft-conflict threshold of 0.7.
func NewConflictService(store CandidateStore) *ConflictService {
	threshold := defaultRiskThreshold
	if raw := os.Getenv("COI_RISK_THRESHOLD"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed > 0 && parsed <= 1 {
			threshold = parsed
		}
	}
	return &ConflictService{store: store, riskThreshold: threshold}
}

// RiskThreshold returns the configured soft-conflict risk threshold.
func (s *ConflictService) RiskThreshold() float64 {
	return s.riskThreshold
}

// CheckConflicts evaluates all conflict evidence sources for one reviewer
// against one manuscript.
func (s *ConflictService) CheckConflicts(ctx context.Context, reviewerID, manuscriptID int) (*models.COIResult, error) {
	mc, err := s.store.GetManuscriptContext(ctx, manuscriptID)
	if err != nil {
		return nil, err
	}
	reviewer, err := s.store.GetReviewer(ctx, reviewerID)
	if err != nil {
		return nil, err
	}
	return s.evaluate(ctx, reviewer, mc)
}

// CheckMultiple evaluates a batch of reviewers against one manuscript. Each
// entry is computed exactly as the single-reviewer form would compute it; a
// per-reviewer lookup failure is reported in that entry's slot via the
// returned error map rather than failing the batch.
func (s *ConflictService) CheckMultiple(ctx context.Context, reviewerIDs []int, manuscriptID int) ([]*models.COIResult, map[int]error, error) {
	mc, err := s.store.GetManuscriptContext(ctx, manuscriptID)
	if err != nil {
		return nil, nil, err
	}

	results := make([]*models.COIResult, len(reviewerIDs))
	failures := make(map[int]error)
	for i, reviewerID := range reviewerIDs {
		reviewer, err := s.store.GetReviewer(ctx, reviewerID)
		if err != nil {
			failures[reviewerID] = err
			continue
		}
		result, err := s.evaluate(ctx, reviewer, mc)
		if err != nil {
			failures[reviewerID] = err
			continue
		}
		results[i] = result
	}
	return results, failures, nil
}

// CheckForCandidate evaluates an already-loaded reviewer against an
// already-loaded manuscript context. The matcher uses this to avoid
// re-reading the manuscript for every candidate in the pool.
func (s *ConflictService) CheckForCandidate(ctx context.Context, reviewer *models.Reviewer, mc *ManuscriptContext) (*models.COIResult, error) {
	return s.evaluate(ctx, reviewer, mc)
}

func (s *ConflictService) evaluate(ctx context.Context, reviewer *models.Reviewer, mc *ManuscriptContext) (*models.COIResult, error) {
	result := &models.COIResult{ReviewerID: reviewer.ReviewerID}

	if mc.AuthorSet()[reviewer.ReviewerID] {
		result.Conflicts = append(result.Conflicts, models.ConflictEvidence{
			Type:        models.ConflictTypeCoAuthorship,
			Description: fmt.Sprintf("Reviewer is an author or co-author of manuscript %d", mc.Manuscript.ManuscriptID),
			Severity:    hardConflictSeverity,
		})
	}

	declared, err := s.store.GetExplicitConflicts(ctx, reviewer.ReviewerID, mc.Manuscript.ManuscriptID)
	if err != nil {
		return nil, err
	}
	for _, row := range declared {
		description := fmt.Sprintf("Declared conflict (%s)", row.ConflictType)
		if row.Details != nil && *row.Details != "" {
			description = fmt.Sprintf("Declared conflict (%s): %s", row.ConflictType, *row.Details)
		}
		result.Conflicts = append(result.Conflicts, models.ConflictEvidence{
			Type:        models.ConflictTypeExplicitDeclared,
			Description: description,
			Severity:    hardConflictSeverity,
		})
	}

	for _, affiliation := range mc.AuthorAffiliations {
		if utils.SameInstitution(reviewer.Affiliation, affiliation) {
			result.Conflicts = append(result.Conflicts, models.ConflictEvidence{
				Type:        models.ConflictTypeSharedInstitution,
				Description: fmt.Sprintf("Reviewer shares an institution with an author (%s)", affiliation),
				Severity:    sharedInstitutionRisk,
			})
			break
		}
	}

	if overlap := s.citationOverlap(reviewer, mc); overlap > 0 {
		severity := citationOverlapRiskStep * float64(overlap)
		if severity > citationOverlapRiskCap {
			severity = citationOverlapRiskCap
		}
		result.Conflicts = append(result.Conflicts, models.ConflictEvidence{
			Type:        models.ConflictTypeCitationOverlap,
			Description: fmt.Sprintf("%d shared citation pattern(s) between reviewer publications and manuscript references", overlap),
			Severity:    severity,
		})
	}

	risk := 0.0
	for _, evidence := range result.Conflicts {
		risk += evidence.Severity
	}
	if risk > 1.0 {
		risk = 1.0
	}
	result.RiskScore = risk
	result.IsEligible = !result.HasHardConflict() && risk < s.riskThreshold

	return result, nil
}

// citationOverlap counts distinct citation patterns (DOIs, "Author (Year)")
// shared between the reviewer's recent publications and the manuscript's
// reference text. A weak, false-positive-prone signal: it only ever
// contributes capped soft risk.
func (s *ConflictService) citationOverlap(reviewer *models.Reviewer, mc *ManuscriptContext) int {
	manuscriptRefs := utils.ExtractReferencePatterns(mc.Manuscript.ReferenceText)
	if len(manuscriptRefs) == 0 {
		return 0
	}
	refSet := make(map[string]bool, len(manuscriptRefs))
	for _, ref := range manuscriptRefs {
		refSet[ref] = true
	}

	matched := make(map[string]bool)
	for _, pub := range reviewer.Publications {
		for _, ref := range utils.ExtractReferencePatterns(pub.ReferenceText) {
			if refSet[ref] {
				matched[ref] = true
			}
		}
	}
	return len(matched)
}
