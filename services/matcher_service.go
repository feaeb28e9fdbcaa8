package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"review-assignment-api/models"
)

// Relevance signal weights.
const (
	fieldMatchPoints    = 40.0
	subfieldMatchPoints = 30.0
	keywordMatchPoints  = 5.0

	// Overall score composition.
	relevanceWeight    = 0.5
	qualityWeight      = 0.3
	availabilityWeight = 0.2

	// Penalty applied per unit of unresolved soft-conflict risk.
	softRiskPenalty = 20.0

	// Soft diversity bonus for candidates in a preferred region.
	diversityBonus = 5.0

	// Availability scoring.
	availabilityBase       = 100.0
	declineRatePenalty     = 50.0
	pendingReviewPenalty   = 10.0
	heavyLoadPenalty       = 20.0
	heavyLoadThreshold     = 5
	avgTurnaroundGraceDays = 21.0
	statsWindow            = 365 * 24 * time.Hour
)

// MatchingCriteria narrows and tunes a reviewer search for one manuscript.
// Field, subfield, keywords and the author identity set come from the
// manuscript itself; the criteria carry the editor-controlled knobs.
type MatchingCriteria struct {
	ManuscriptID       int      `json:"manuscript_id"`
	MinHIndex          int      `json:"min_h_index"`
	MinPublications    int      `json:"min_publications"`
	MaxCurrentLoad     int      `json:"max_current_load"` // 0 = no cap
	ExcludeReviewerIDs []int    `json:"exclude_reviewer_ids"`
	PreferredCountries []string `json:"preferred_countries"` // soft preference, never a hard filter
	IncludeIneligible  bool     `json:"include_ineligible"`  // editor visibility only; eligibility never changes
}

// MatchResult is one scored reviewer candidate.
type MatchResult struct {
	Reviewer          models.Reviewer   `json:"reviewer"`
	RelevanceScore    float64           `json:"relevance_score"`
	QualityScore      float64           `json:"quality_score"`
	AvailabilityScore float64           `json:"availability_score"`
	OverallScore      float64           `json:"overall_score"`
	CurrentLoad       int               `json:"current_load"`
	MatchReasons      []string          `json:"match_reasons"`
	COI               *models.COIResult `json:"coi"`
}

// MatchMetadata accounts for every candidate that did not make the result
// list. FilteredByCOI + FilteredByAvailability + FilteredByExclusion +
// Failed + RankedBelowLimit always equals TotalCandidates - len(matches).
type MatchMetadata struct {
	TotalCandidates        int            `json:"total_candidates"`
	FilteredByCOI          int            `json:"filtered_by_coi"`
	FilteredByAvailability int            `json:"filtered_by_availability"`
	FilteredByExclusion    int            `json:"filtered_by_exclusion"`
	Failed                 int            `json:"failed"`
	RankedBelowLimit       int            `json:"ranked_below_limit"`
	RiskThreshold          float64        `json:"risk_threshold"`
	CandidateErrors        map[int]string `json:"candidate_errors,omitempty"`
}

// FindReviewersResult bundles the ranked matches with pool accounting.
type FindReviewersResult struct {
	Matches         []MatchResult `json:"matches"`
	TotalCandidates int           `json:"total_candidates"`
	Metadata        MatchMetadata `json:"metadata"`
}

// MatcherService ranks reviewer candidates for a manuscript by combining
// expertise relevance, track record and availability, consulting the
// conflict detector per candidate.
type MatcherService struct {
	store     CandidateStore
	conflicts *ConflictService
}

func NewMatcherService(store CandidateStore, conflicts *ConflictService) *MatcherService {
	return &MatcherService{store: store, conflicts: conflicts}
}

// FindReviewers returns up to limit ranked candidates. Matching is
// deterministic for an unchanged candidate pool: scores are pure functions
// of the inputs and ties break by lower current load, then lower reviewer
// id.
func (s *MatcherService) FindReviewers(ctx context.Context, criteria MatchingCriteria, limit int) (*FindReviewersResult, error) {
	if criteria.ManuscriptID <= 0 {
		return nil, validationErrorf("manuscript_id", "must be a positive id")
	}
	if limit <= 0 {
		limit = 10
	}

	mc, err := s.store.GetManuscriptContext(ctx, criteria.ManuscriptID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(mc.Manuscript.Field) == "" {
		// Refuse to match rather than guessing a default field.
		return nil, fmt.Errorf("manuscript %d: %w", criteria.ManuscriptID, ErrFieldUnknown)
	}

	pool, err := s.store.GetReviewerCandidates(ctx, CandidateFilter{
		MinHIndex:        criteria.MinHIndex,
		MinPublications:  criteria.MinPublications,
		WithPublications: true,
	})
	if err != nil {
		return nil, err
	}

	metadata := MatchMetadata{
		TotalCandidates: len(pool),
		RiskThreshold:   s.conflicts.RiskThreshold(),
	}

	excluded := make(map[int]bool)
	for _, id := range mc.ExplicitExclusions {
		excluded[id] = true
	}
	for _, id := range criteria.ExcludeReviewerIDs {
		excluded[id] = true
	}

	poolIDs := make([]int, 0, len(pool))
	for _, reviewer := range pool {
		poolIDs = append(poolIDs, reviewer.ReviewerID)
	}
	records, err := s.store.GetRecentAssignments(ctx, poolIDs, statsWindow)
	if err != nil {
		return nil, err
	}
	stats := buildReviewerStats(records)

	preferred := make(map[string]bool, len(criteria.PreferredCountries))
	for _, country := range criteria.PreferredCountries {
		preferred[strings.ToLower(strings.TrimSpace(country))] = true
	}

	var scored []MatchResult
	for i := range pool {
		reviewer := pool[i]

		if excluded[reviewer.ReviewerID] {
			metadata.FilteredByExclusion++
			continue
		}

		coi, err := s.conflicts.CheckForCandidate(ctx, &reviewer, mc)
		if err != nil {
			// One bad candidate never fails the query.
			metadata.Failed++
			if metadata.CandidateErrors == nil {
				metadata.CandidateErrors = make(map[int]string)
			}
			metadata.CandidateErrors[reviewer.ReviewerID] = err.Error()
			continue
		}
		if !coi.IsEligible && !criteria.IncludeIneligible {
			metadata.FilteredByCOI++
			continue
		}

		st := stats[reviewer.ReviewerID]
		if !reviewer.IsAvailable || (criteria.MaxCurrentLoad > 0 && st.pending > criteria.MaxCurrentLoad) {
			metadata.FilteredByAvailability++
			continue
		}

		scored = append(scored, s.score(&reviewer, mc, st, coi, preferred))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].OverallScore != scored[j].OverallScore {
			return scored[i].OverallScore > scored[j].OverallScore
		}
		if scored[i].CurrentLoad != scored[j].CurrentLoad {
			return scored[i].CurrentLoad < scored[j].CurrentLoad
		}
		return scored[i].Reviewer.ReviewerID < scored[j].Reviewer.ReviewerID
	})

	if len(scored) > limit {
		metadata.RankedBelowLimit = len(scored) - limit
		scored = scored[:limit]
	}

	return &FindReviewersResult{
		Matches:         scored,
		TotalCandidates: len(pool),
		Metadata:        metadata,
	}, nil
}

// reviewerStats aggregates a reviewer's trailing-window history.
type reviewerStats struct {
	pending        int // active assignments, doubles as current load
	completed      int
	declined       int
	turnaroundDays float64 // average over completed reviews
}

func buildReviewerStats(records []AssignmentRecord) map[int]reviewerStats {
	stats := make(map[int]reviewerStats)
	turnaroundTotals := make(map[int]float64)
	for _, record := range records {
		st := stats[record.ReviewerID]
		switch record.Status {
		case models.AssignmentStatusActive:
			st.pending++
		case models.AssignmentStatusCompleted:
			st.completed++
			if record.CompletedAt != nil {
				turnaroundTotals[record.ReviewerID] += record.CompletedAt.Sub(record.AssignedAt).Hours() / 24
			}
		case "declined":
			st.declined++
		}
		stats[record.ReviewerID] = st
	}
	for id, st := range stats {
		if st.completed > 0 {
			st.turnaroundDays = turnaroundTotals[id] / float64(st.completed)
			stats[id] = st
		}
	}
	return stats
}

func (s *MatcherService) score(reviewer *models.Reviewer, mc *ManuscriptContext, st reviewerStats, coi *models.COIResult, preferred map[string]bool) MatchResult {
	var reasons []string

	// Relevance: field, subfield, per-keyword expertise hits.
	relevance := 0.0
	expertise := make(map[string]bool)
	for _, tag := range reviewer.ExpertiseTags() {
		expertise[tag] = true
	}

	field := strings.ToLower(strings.TrimSpace(mc.Manuscript.Field))
	if expertise[field] {
		relevance += fieldMatchPoints
		reasons = append(reasons, fmt.Sprintf("Field expertise: %s", mc.Manuscript.Field))
	}
	if mc.Manuscript.Subfield != nil {
		subfield := strings.ToLower(strings.TrimSpace(*mc.Manuscript.Subfield))
		if subfield != "" && expertise[subfield] {
			relevance += subfieldMatchPoints
			reasons = append(reasons, fmt.Sprintf("Subfield expertise: %s", *mc.Manuscript.Subfield))
		}
	}
	keywordHits := 0
	for _, keyword := range mc.Manuscript.KeywordList() {
		if expertise[keyword] {
			keywordHits++
		}
	}
	if keywordHits > 0 {
		relevance += keywordMatchPoints * float64(keywordHits)
		reasons = append(reasons, fmt.Sprintf("%d matching keyword(s)", keywordHits))
	}

	// Quality: reputation metrics plus recent completed-review record.
	quality := float64(reviewer.HIndex)*3 + minFloat(float64(reviewer.PublicationCount), 50)
	quality += float64(st.completed) * 5
	if st.completed > 0 && st.turnaroundDays > avgTurnaroundGraceDays {
		quality -= st.turnaroundDays - avgTurnaroundGraceDays
	}
	quality = clampScore(quality)
	if reviewer.HIndex > 0 {
		reasons = append(reasons, fmt.Sprintf("h-index %d", reviewer.HIndex))
	}
	if st.completed > 0 {
		reasons = append(reasons, fmt.Sprintf("%d review(s) completed in the last 12 months", st.completed))
	}

	// Availability: penalized by decline behaviour and open workload.
	availability := availabilityBase
	totalRecent := st.pending + st.completed + st.declined
	if totalRecent > 0 {
		declineRate := float64(st.declined) / float64(totalRecent)
		availability -= declineRate * declineRatePenalty
	}
	availability -= float64(st.pending) * pendingReviewPenalty
	if totalRecent > heavyLoadThreshold {
		availability -= heavyLoadPenalty
	}
	availability = clampScore(availability)
	if st.pending > 0 {
		reasons = append(reasons, fmt.Sprintf("%d review(s) currently pending", st.pending))
	}

	overall := relevanceWeight*relevance + qualityWeight*quality + availabilityWeight*availability
	overall -= softRiskPenalty * coi.RiskScore
	if coi.RiskScore > 0 {
		reasons = append(reasons, fmt.Sprintf("Soft conflict risk %.2f", coi.RiskScore))
	}

	if reviewer.Country != nil && preferred[strings.ToLower(strings.TrimSpace(*reviewer.Country))] {
		overall += diversityBonus
		reasons = append(reasons, "Preferred region")
	}

	if overall < 0 {
		overall = 0
	}

	return MatchResult{
		Reviewer:          *reviewer,
		RelevanceScore:    relevance,
		QualityScore:      quality,
		AvailabilityScore: availability,
		OverallScore:      overall,
		CurrentLoad:       st.pending,
		MatchReasons:      reasons,
		COI:               coi,
	}
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
