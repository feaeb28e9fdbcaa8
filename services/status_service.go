package services

import (
	"context"
	"fmt"
	"time"

	"review-assignment-api/models"

	"gorm.io/gorm"
)

// ManuscriptStatusStore advances manuscripts through editorial statuses.
type ManuscriptStatusStore interface {
	// AdvanceToUnderReview moves a manuscript into under_review and reports
	// whether this call performed the transition. Idempotent: a manuscript
	// already under review returns false, nil.
	AdvanceToUnderReview(ctx context.Context, manuscriptID int) (bool, error)
}

// StatusService is the database-backed ManuscriptStatusStore.
type StatusService struct {
	db *gorm.DB
}

func NewStatusService(db *gorm.DB) *StatusService {
	return &StatusService{db: db}
}

func (s *StatusService) AdvanceToUnderReview(ctx context.Context, manuscriptID int) (bool, error) {
	// Conditional update so concurrent batches cannot double-apply the
	// transition.
	result := s.db.WithContext(ctx).Model(&models.Manuscript{}).
		Where("manuscript_id = ? AND delete_at IS NULL AND status IN ?",
			manuscriptID,
			[]string{models.ManuscriptStatusSubmitted, models.ManuscriptStatusWithEditor}).
		Updates(map[string]interface{}{
			"status":    models.ManuscriptStatusUnderReview,
			"update_at": time.Now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to advance manuscript %d to under_review: %w", manuscriptID, result.Error)
	}
	return result.RowsAffected > 0, nil
}
