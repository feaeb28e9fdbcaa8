package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"review-assignment-api/models"

	"gorm.io/gorm"
)

// defaultQueryTimeout bounds every candidate-store query so a slow database
// degrades to a per-item error instead of hanging a batch.
const defaultQueryTimeout = 10 * time.Second

// CandidateFilter narrows the reviewer candidate pool at query time.
type CandidateFilter struct {
	MinHIndex        int
	MinPublications  int
	WithPublications bool // preload recent publications for citation checks
}

// ManuscriptContext is the matching-relevant snapshot of a manuscript.
type ManuscriptContext struct {
	Manuscript         models.Manuscript
	AuthorIDs          []int
	AuthorAffiliations []string
	ExplicitExclusions []int
}

// AuthorSet returns the author/co-author identity set as a lookup map.
func (mc *ManuscriptContext) AuthorSet() map[int]bool {
	set := make(map[int]bool, len(mc.AuthorIDs))
	for _, id := range mc.AuthorIDs {
		set[id] = true
	}
	return set
}

// AssignmentRecord is one row of a reviewer's recent review history. Declined
// invitations appear with status "declined" so availability scoring can see
// decline behaviour through the same narrow call.
type AssignmentRecord struct {
	ReviewerID   int
	ManuscriptID int
	Status       string // active|completed|declined
	AssignedAt   time.Time
	CompletedAt  *time.Time
}

// CandidateStore is the read-only collaborator surface the matching and
// conflict components depend on. The production implementation queries the
// primary database; tests substitute in-memory fakes.
type CandidateStore interface {
	GetReviewerCandidates(ctx context.Context, filter CandidateFilter) ([]models.Reviewer, error)
	GetReviewer(ctx context.Context, reviewerID int) (*models.Reviewer, error)
	GetManuscriptContext(ctx context.Context, manuscriptID int) (*ManuscriptContext, error)
	GetRecentAssignments(ctx context.Context, reviewerIDs []int, window time.Duration) ([]AssignmentRecord, error)
	GetExplicitConflicts(ctx context.Context, reviewerID, manuscriptID int) ([]models.ExplicitConflict, error)
}

type gormCandidateStore struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewCandidateStore returns a CandidateStore backed by the given database.
func NewCandidateStore(db *gorm.DB) CandidateStore {
	return &gormCandidateStore{db: db, timeout: defaultQueryTimeout}
}

func (s *gormCandidateStore) bounded(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	return s.db.WithContext(ctx), cancel
}

func (s *gormCandidateStore) GetReviewerCandidates(ctx context.Context, filter CandidateFilter) ([]models.Reviewer, error) {
	db, cancel := s.bounded(ctx)
	defer cancel()

	query := db.Where("delete_at IS NULL")
	if filter.MinHIndex > 0 {
		query = query.Where("h_index >= ?", filter.MinHIndex)
	}
	if filter.MinPublications > 0 {
		query = query.Where("publication_count >= ?", filter.MinPublications)
	}
	if filter.WithPublications {
		query = query.Preload("Publications")
	}

	var reviewers []models.Reviewer
	if err := query.Order("reviewer_id ASC").Find(&reviewers).Error; err != nil {
		return nil, fmt.Errorf("failed to load reviewer candidates: %w", err)
	}
	return reviewers, nil
}

func (s *gormCandidateStore) GetReviewer(ctx context.Context, reviewerID int) (*models.Reviewer, error) {
	db, cancel := s.bounded(ctx)
	defer cancel()

	var reviewer models.Reviewer
	err := db.Preload("Publications").
		Where("reviewer_id = ? AND delete_at IS NULL", reviewerID).
		First(&reviewer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("reviewer %d: %w", reviewerID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load reviewer %d: %w", reviewerID, err)
	}
	return &reviewer, nil
}

func (s *gormCandidateStore) GetManuscriptContext(ctx context.Context, manuscriptID int) (*ManuscriptContext, error) {
	db, cancel := s.bounded(ctx)
	defer cancel()

	var manuscript models.Manuscript
	err := db.Preload("Authors").Preload("Exclusions").
		Where("manuscript_id = ? AND delete_at IS NULL", manuscriptID).
		First(&manuscript).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("manuscript %d: %w", manuscriptID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load manuscript %d: %w", manuscriptID, err)
	}

	mc := &ManuscriptContext{Manuscript: manuscript}
	for _, author := range manuscript.Authors {
		mc.AuthorIDs = append(mc.AuthorIDs, author.ReviewerID)
		if author.Affiliation != "" {
			mc.AuthorAffiliations = append(mc.AuthorAffiliations, author.Affiliation)
		}
	}
	for _, exclusion := range manuscript.Exclusions {
		mc.ExplicitExclusions = append(mc.ExplicitExclusions, exclusion.ReviewerID)
	}
	return mc, nil
}

func (s *gormCandidateStore) GetRecentAssignments(ctx context.Context, reviewerIDs []int, window time.Duration) ([]AssignmentRecord, error) {
	if len(reviewerIDs) == 0 {
		return nil, nil
	}

	db, cancel := s.bounded(ctx)
	defer cancel()

	since := time.Now().Add(-window)

	var assignments []models.ReviewAssignment
	if err := db.Where("reviewer_id IN ? AND assigned_at >= ?", reviewerIDs, since).
		Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("failed to load recent assignments: %w", err)
	}

	records := make([]AssignmentRecord, 0, len(assignments))
	for _, a := range assignments {
		records = append(records, AssignmentRecord{
			ReviewerID:   a.ReviewerID,
			ManuscriptID: a.ManuscriptID,
			Status:       a.Status,
			AssignedAt:   a.AssignedAt,
			CompletedAt:  a.CompletedAt,
		})
	}

	// Declined invitations in the same window count toward decline rate.
	var declined []models.ReviewerInvitation
	if err := db.Where("reviewer_id IN ? AND status = ? AND responded_at >= ?",
		reviewerIDs, models.InvitationStatusDeclined, since).
		Find(&declined).Error; err != nil {
		return nil, fmt.Errorf("failed to load declined invitations: %w", err)
	}
	for _, inv := range declined {
		respondedAt := since
		if inv.RespondedAt != nil {
			respondedAt = *inv.RespondedAt
		}
		records = append(records, AssignmentRecord{
			ReviewerID:   inv.ReviewerID,
			ManuscriptID: inv.ManuscriptID,
			Status:       "declined",
			AssignedAt:   respondedAt,
		})
	}

	return records, nil
}

func (s *gormCandidateStore) GetExplicitConflicts(ctx context.Context, reviewerID, manuscriptID int) ([]models.ExplicitConflict, error) {
	db, cancel := s.bounded(ctx)
	defer cancel()

	var conflicts []models.ExplicitConflict
	if err := db.Where("reviewer_id = ? AND manuscript_id = ? AND delete_at IS NULL",
		reviewerID, manuscriptID).
		Find(&conflicts).Error; err != nil {
		return nil, fmt.Errorf("failed to load explicit conflicts: %w", err)
	}
	return conflicts, nil
}
