package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"review-assignment-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvitationStore owns invitation persistence. The duplicate check on create
// and the accept transition paired with assignment creation must be atomic,
// so both run as single transactions here and the service layer stays
// storage-agnostic.
type InvitationStore interface {
	CreateInvitation(ctx context.Context, inv *models.ReviewerInvitation) error
	GetByToken(ctx context.Context, token string) (*models.ReviewerInvitation, error)
	GetByID(ctx context.Context, invitationID int) (*models.ReviewerInvitation, error)

	// MarkExpired flips pending -> expired and reports whether this call won
	// the transition. Safe to call concurrently; losers see false, nil.
	MarkExpired(ctx context.Context, invitationID int) (bool, error)

	// Cancel flips pending -> cancelled (editor initiated).
	Cancel(ctx context.Context, invitationID int) (bool, error)

	// Decline flips pending -> declined, recording the response fields and
	// the optional alternative-reviewer suggestion in one transaction.
	Decline(ctx context.Context, inv *models.ReviewerInvitation, suggestion *models.ReviewerSuggestion) (bool, error)

	// AcceptAndAssign flips pending -> accepted and creates the assignment
	// as a single unit; a failure of either rolls back both.
	AcceptAndAssign(ctx context.Context, inv *models.ReviewerInvitation, assignment *models.ReviewAssignment) (bool, error)

	HasAssignment(ctx context.Context, manuscriptID, reviewerID int) (bool, error)
	HasAnyInvitation(ctx context.Context, manuscriptID, reviewerID int) (bool, error)
	CountByStatus(ctx context.Context, manuscriptID int) (map[models.InvitationStatus]int64, error)

	// ExpirePendingBefore sweeps pending invitations whose response deadline
	// passed before cutoff. Supports the optional reconciliation job.
	ExpirePendingBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type gormInvitationStore struct {
	db *gorm.DB
}

// NewInvitationStore returns the database-backed InvitationStore.
func NewInvitationStore(db *gorm.DB) InvitationStore {
	return &gormInvitationStore{db: db}
}

func (s *gormInvitationStore) CreateInvitation(ctx context.Context, inv *models.ReviewerInvitation) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock existing rows for the pair so two concurrent creates cannot
		// both pass the duplicate check.
		var active int64
		err := tx.Model(&models.ReviewerInvitation{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("manuscript_id = ? AND reviewer_id = ? AND status IN ?",
				inv.ManuscriptID, inv.ReviewerID,
				[]models.InvitationStatus{models.InvitationStatusPending, models.InvitationStatusAccepted}).
			Count(&active).Error
		if err != nil {
			return fmt.Errorf("failed to check for existing invitations: %w", err)
		}
		if active > 0 {
			return ErrDuplicateInvitation
		}

		if err := tx.Create(inv).Error; err != nil {
			return fmt.Errorf("failed to create invitation: %w", err)
		}
		return nil
	})
}

func (s *gormInvitationStore) GetByToken(ctx context.Context, token string) (*models.ReviewerInvitation, error) {
	var inv models.ReviewerInvitation
	err := s.db.WithContext(ctx).
		Preload("Reviewer").Preload("Manuscript").
		Where("token = ?", token).
		First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("invitation token: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load invitation by token: %w", err)
	}
	return &inv, nil
}

func (s *gormInvitationStore) GetByID(ctx context.Context, invitationID int) (*models.ReviewerInvitation, error) {
	var inv models.ReviewerInvitation
	err := s.db.WithContext(ctx).
		Preload("Reviewer").Preload("Manuscript").
		Where("invitation_id = ?", invitationID).
		First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("invitation %d: %w", invitationID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load invitation %d: %w", invitationID, err)
	}
	return &inv, nil
}

// casStatus performs the compare-and-swap status update every one-way
// transition in the state machine goes through.
func casStatus(tx *gorm.DB, invitationID int, from, to models.InvitationStatus, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to
	updates["update_at"] = time.Now()

	result := tx.Model(&models.ReviewerInvitation{}).
		Where("invitation_id = ? AND status = ?", invitationID, from).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to transition invitation %d to %s: %w", invitationID, to, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *gormInvitationStore) MarkExpired(ctx context.Context, invitationID int) (bool, error) {
	return casStatus(s.db.WithContext(ctx), invitationID,
		models.InvitationStatusPending, models.InvitationStatusExpired, nil)
}

func (s *gormInvitationStore) Cancel(ctx context.Context, invitationID int) (bool, error) {
	return casStatus(s.db.WithContext(ctx), invitationID,
		models.InvitationStatusPending, models.InvitationStatusCancelled, nil)
}

func (s *gormInvitationStore) Decline(ctx context.Context, inv *models.ReviewerInvitation, suggestion *models.ReviewerSuggestion) (bool, error) {
	var won bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		won, err = casStatus(tx, inv.InvitationID,
			models.InvitationStatusPending, models.InvitationStatusDeclined,
			map[string]interface{}{
				"responded_at":       inv.RespondedAt,
				"decline_reason":     inv.DeclineReason,
				"client_fingerprint": inv.ClientFingerprint,
			})
		if err != nil || !won {
			return err
		}
		if suggestion != nil {
			suggestion.InvitationID = inv.InvitationID
			if err := tx.Create(suggestion).Error; err != nil {
				return fmt.Errorf("failed to store reviewer suggestion: %w", err)
			}
		}
		return nil
	})
	return won, err
}

func (s *gormInvitationStore) AcceptAndAssign(ctx context.Context, inv *models.ReviewerInvitation, assignment *models.ReviewAssignment) (bool, error) {
	var won bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		won, err = casStatus(tx, inv.InvitationID,
			models.InvitationStatusPending, models.InvitationStatusAccepted,
			map[string]interface{}{
				"responded_at":         inv.RespondedAt,
				"expertise_rating":     inv.ExpertiseRating,
				"conflict_declared":    inv.ConflictDeclared,
				"conflict_type":        inv.ConflictType,
				"conflict_description": inv.ConflictDescription,
				"client_fingerprint":   inv.ClientFingerprint,
			})
		if err != nil || !won {
			return err
		}

		assignment.InvitationID = inv.InvitationID
		if err := tx.Create(assignment).Error; err != nil {
			return fmt.Errorf("failed to create review assignment: %w", err)
		}
		return nil
	})
	return won, err
}

func (s *gormInvitationStore) HasAssignment(ctx context.Context, manuscriptID, reviewerID int) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.ReviewAssignment{}).
		Where("manuscript_id = ? AND reviewer_id = ?", manuscriptID, reviewerID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check existing assignments: %w", err)
	}
	return count > 0, nil
}

func (s *gormInvitationStore) HasAnyInvitation(ctx context.Context, manuscriptID, reviewerID int) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.ReviewerInvitation{}).
		Where("manuscript_id = ? AND reviewer_id = ?", manuscriptID, reviewerID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check existing invitations: %w", err)
	}
	return count > 0, nil
}

func (s *gormInvitationStore) CountByStatus(ctx context.Context, manuscriptID int) (map[models.InvitationStatus]int64, error) {
	type statusCount struct {
		Status models.InvitationStatus
		Total  int64
	}
	var rows []statusCount
	err := s.db.WithContext(ctx).Model(&models.ReviewerInvitation{}).
		Select("status, COUNT(*) AS total").
		Where("manuscript_id = ?", manuscriptID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count invitations: %w", err)
	}
	counts := make(map[models.InvitationStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func (s *gormInvitationStore) ExpirePendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.ReviewerInvitation{}).
		Where("status = ? AND response_deadline < ?", models.InvitationStatusPending, cutoff).
		Updates(map[string]interface{}{
			"status":    models.InvitationStatusExpired,
			"update_at": time.Now(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to expire pending invitations: %w", result.Error)
	}
	return result.RowsAffected, nil
}
