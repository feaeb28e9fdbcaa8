package services

import (
	"context"
	"fmt"
	"time"

	"review-assignment-api/models"
)

// Per-item outcomes of a bulk invitation run.
const (
	BulkResultSuccess = "success"
	BulkResultBlocked = "blocked"
	BulkResultFailed  = "failed"
)

// BulkInviteOptions tunes one bulk invitation run.
type BulkInviteOptions struct {
	Staggered        bool             `json:"staggered"`
	StaggerHours     int              `json:"stagger_hours"`
	Overrides        map[int]Override `json:"overrides"` // keyed by reviewer id
	CustomMessage    *string          `json:"custom_message,omitempty"`
	ResponseDeadline *time.Time       `json:"response_deadline,omitempty"`
}

// InvitationResult is the per-reviewer outcome. The result slice always has
// exactly one entry per input reviewer id, in input order; callers reconcile
// against it.
type InvitationResult struct {
	ReviewerID   int               `json:"reviewer_id"`
	Status       string            `json:"status"` // success|blocked|failed
	Reason       string            `json:"reason,omitempty"`
	InvitationID int               `json:"invitation_id,omitempty"`
	NotifyAt     *time.Time        `json:"notify_at,omitempty"`
	COI          *models.COIResult `json:"coi,omitempty"`
}

// BulkInviteService drives the invitation lifecycle across a candidate set:
// per-reviewer COI gating with explicit overrides, duplicate checks, and
// optional staggered notification scheduling. Reviewers are processed
// sequentially and independently; one failure never aborts siblings.
type BulkInviteService struct {
	invitations *InvitationService
	conflicts   *ConflictService
	candidates  CandidateStore
	store       InvitationStore
	status      ManuscriptStatusStore
	now         func() time.Time
}

func NewBulkInviteService(invitations *InvitationService, conflicts *ConflictService, candidates CandidateStore, store InvitationStore, status ManuscriptStatusStore) *BulkInviteService {
	return &BulkInviteService{
		invitations: invitations,
		conflicts:   conflicts,
		candidates:  candidates,
		store:       store,
		status:      status,
		now:         time.Now,
	}
}

// Invite creates invitations for every eligible (or overridden) reviewer.
// Staggering only spreads the visible send time of the notifications:
// invitations are created and persisted immediately and response deadlines
// are computed from now, not from the send slot.
func (s *BulkInviteService) Invite(ctx context.Context, manuscriptID int, reviewerIDs []int, dueDate time.Time, inviterID int, opts BulkInviteOptions) ([]InvitationResult, error) {
	if len(reviewerIDs) == 0 {
		return nil, validationErrorf("reviewer_ids", "at least one reviewer is required")
	}
	if opts.Staggered && opts.StaggerHours <= 0 {
		return nil, validationErrorf("stagger_hours", "must be positive when staggering is enabled")
	}

	mc, err := s.candidates.GetManuscriptContext(ctx, manuscriptID)
	if err != nil {
		return nil, err
	}
	if !mc.Manuscript.IsInvitable() {
		return nil, fmt.Errorf("manuscript %d is %s: %w", manuscriptID, mc.Manuscript.Status, ErrNotInvitable)
	}

	now := s.now()
	results := make([]InvitationResult, 0, len(reviewerIDs))
	succeeded := 0

	for _, reviewerID := range reviewerIDs {
		result := s.inviteOne(ctx, mc, reviewerID, dueDate, inviterID, opts, now, succeeded)
		if result.Status == BulkResultSuccess {
			succeeded++
		}
		results = append(results, result)
	}

	if succeeded > 0 {
		if _, err := s.status.AdvanceToUnderReview(ctx, manuscriptID); err != nil {
			return results, err
		}
	}

	return results, nil
}

func (s *BulkInviteService) inviteOne(ctx context.Context, mc *ManuscriptContext, reviewerID int, dueDate time.Time, inviterID int, opts BulkInviteOptions, now time.Time, slot int) InvitationResult {
	result := InvitationResult{ReviewerID: reviewerID, Status: BulkResultFailed}

	assigned, err := s.store.HasAssignment(ctx, mc.Manuscript.ManuscriptID, reviewerID)
	if err != nil {
		result.Reason = fmt.Sprintf("duplicate check failed: %v", err)
		return result
	}
	if assigned {
		result.Reason = "reviewer already assigned to this manuscript"
		return result
	}

	invited, err := s.store.HasAnyInvitation(ctx, mc.Manuscript.ManuscriptID, reviewerID)
	if err != nil {
		result.Reason = fmt.Sprintf("duplicate check failed: %v", err)
		return result
	}
	if invited {
		result.Reason = "reviewer already invited for this manuscript"
		return result
	}

	reviewer, err := s.candidates.GetReviewer(ctx, reviewerID)
	if err != nil {
		result.Reason = fmt.Sprintf("reviewer lookup failed: %v", err)
		return result
	}

	coi, err := s.conflicts.CheckForCandidate(ctx, reviewer, mc)
	if err != nil {
		result.Reason = fmt.Sprintf("conflict check failed: %v", err)
		return result
	}
	result.COI = coi

	override, hasOverride := opts.Overrides[reviewerID]
	if !coi.IsEligible && !hasOverride {
		result.Status = BulkResultBlocked
		result.Reason = "coi"
		return result
	}

	input := CreateInvitationInput{
		ManuscriptID:     mc.Manuscript.ManuscriptID,
		ReviewerID:       reviewerID,
		InviterID:        inviterID,
		CustomMessage:    opts.CustomMessage,
		ReviewDeadline:   dueDate,
		ResponseDeadline: opts.ResponseDeadline,
	}
	if hasOverride {
		// Recorded even when the reviewer turned out to have no conflict: a
		// redundant override is a no-op, not an error.
		ov := override
		if ov.GrantedBy == 0 {
			ov.GrantedBy = inviterID
		}
		if ov.Timestamp.IsZero() {
			ov.Timestamp = now
		}
		input.Override = &ov
	}
	if opts.Staggered {
		notifyAt := now.Add(time.Duration(slot*opts.StaggerHours) * time.Hour)
		input.NotifyAt = &notifyAt
	}

	inv, err := s.invitations.Create(ctx, input)
	if err != nil {
		result.Reason = err.Error()
		return result
	}

	result.Status = BulkResultSuccess
	result.InvitationID = inv.InvitationID
	result.NotifyAt = inv.NotifyAt
	return result
}
