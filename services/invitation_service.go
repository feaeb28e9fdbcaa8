package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"review-assignment-api/models"
	"review-assignment-api/utils"

	"github.com/google/uuid"
)

const defaultResponseDeadlineDays = 7

// Override records an editor's explicit decision to invite past a COI
// block. It is always an explicit value, never inferred from the absence of
// a block.
type Override struct {
	GrantedBy int       `json:"granted_by"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// CreateInvitationInput carries everything needed to issue one invitation.
type CreateInvitationInput struct {
	ManuscriptID     int
	ReviewerID       int
	InviterID        int
	CustomMessage    *string
	ReviewDeadline   time.Time
	ResponseDeadline *time.Time // nil = now + configured default
	Override         *Override
	NotifyAt         *time.Time // nil = send immediately
}

// ConflictDeclaration is a reviewer's self-declared conflict at accept time.
type ConflictDeclaration struct {
	HasConflict         bool    `json:"hasConflict"`
	ConflictType        *string `json:"conflictType,omitempty"`
	ConflictDescription *string `json:"conflictDescription,omitempty"`
}

// AlternativeReviewer is a suggestion attached to a decline. Stored for the
// editor, never auto-invited.
type AlternativeReviewer struct {
	FullName    string  `json:"fullName"`
	Email       *string `json:"email,omitempty"`
	Affiliation *string `json:"affiliation,omitempty"`
	Reason      *string `json:"reason,omitempty"`
}

// RespondInput is a reviewer's response through the token endpoint.
type RespondInput struct {
	Decision              string               `json:"decision"` // accept|decline
	AvailabilityConfirmed bool                 `json:"availabilityConfirmed"`
	ConflictDeclaration   *ConflictDeclaration `json:"conflictDeclaration,omitempty"`
	ExpertiseRating       *int                 `json:"expertiseRating,omitempty"`
	DeclineReason         string               `json:"declineReason,omitempty"`
	AlternativeReviewer   *AlternativeReviewer `json:"alternativeReviewer,omitempty"`
	ClientFingerprint     string               `json:"-"`
}

// InvitationPublicView is what a token holder may see. It never exposes
// other invitees' identities or e-mail addresses, only counts.
type InvitationPublicView struct {
	Status           models.InvitationStatus `json:"status"`
	ManuscriptTitle  string                  `json:"manuscript_title"`
	ManuscriptField  string                  `json:"manuscript_field"`
	ReviewerName     string                  `json:"reviewer_name"`
	ReviewerEmail    string                  `json:"reviewer_email"`
	CustomMessage    *string                 `json:"custom_message,omitempty"`
	ReviewDeadline   time.Time               `json:"review_deadline"`
	ResponseDeadline time.Time               `json:"response_deadline"`
	RespondedAt      *time.Time              `json:"responded_at,omitempty"`
	OtherInvitations map[string]int64        `json:"other_invitations"` // counts by status only
}

// InvitationService owns the invitation state machine: issuance, token
// viewing with lazy expiry, response capture and editor cancellation.
type InvitationService struct {
	store      InvitationStore
	candidates CandidateStore
	notifier   *NotificationService
	now        func() time.Time

	responseDeadline time.Duration
}

// NewInvitationService wires the lifecycle manager. RESPONSE_DEADLINE_DAYS
// overrides the 7-day default response window.
func NewInvitationService(store InvitationStore, candidates CandidateStore, notifier *NotificationService) *InvitationService {
	days := defaultResponseDeadlineDays
	if raw := os.Getenv("RESPONSE_DEADLINE_DAYS"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			days = parsed
		}
	}
	return &InvitationService{
		store:            store,
		candidates:       candidates,
		notifier:         notifier,
		now:              time.Now,
		responseDeadline: time.Duration(days) * 24 * time.Hour,
	}
}

// newInvitationToken returns an unguessable token unrelated to any row id.
func newInvitationToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate invitation token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Create issues a single invitation. The manuscript must be in an invitable
// status and no active invitation may exist for the pair.
func (s *InvitationService) Create(ctx context.Context, input CreateInvitationInput) (*models.ReviewerInvitation, error) {
	now := s.now()

	if input.ReviewDeadline.IsZero() || !input.ReviewDeadline.After(now) {
		return nil, validationErrorf("review_deadline", "must be in the future")
	}

	mc, err := s.candidates.GetManuscriptContext(ctx, input.ManuscriptID)
	if err != nil {
		return nil, err
	}
	if !mc.Manuscript.IsInvitable() {
		return nil, fmt.Errorf("manuscript %d is %s: %w", input.ManuscriptID, mc.Manuscript.Status, ErrNotInvitable)
	}

	reviewer, err := s.candidates.GetReviewer(ctx, input.ReviewerID)
	if err != nil {
		return nil, err
	}

	token, err := newInvitationToken()
	if err != nil {
		return nil, err
	}

	responseDeadline := now.Add(s.responseDeadline)
	if input.ResponseDeadline != nil {
		if !input.ResponseDeadline.After(now) {
			return nil, validationErrorf("response_deadline", "must be in the future")
		}
		responseDeadline = *input.ResponseDeadline
	}

	inv := &models.ReviewerInvitation{
		ManuscriptID:     input.ManuscriptID,
		ReviewerID:       input.ReviewerID,
		InviterID:        input.InviterID,
		Status:           models.InvitationStatusPending,
		CustomMessage:    input.CustomMessage,
		ReviewDeadline:   input.ReviewDeadline,
		ResponseDeadline: responseDeadline,
		Token:            token,
		NotifyAt:         input.NotifyAt,
		CreateAt:         &now,
		UpdateAt:         &now,
	}
	if input.Override != nil {
		reason := input.Override.Reason
		grantedBy := input.Override.GrantedBy
		grantedAt := input.Override.Timestamp
		if grantedAt.IsZero() {
			grantedAt = now
		}
		inv.COIOverrideReason = &reason
		inv.COIApprovedBy = &grantedBy
		inv.COIOverrideAt = &grantedAt
	}

	if err := s.store.CreateInvitation(ctx, inv); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		sendAt := now
		if input.NotifyAt != nil {
			sendAt = *input.NotifyAt
		}
		// Delivery scheduling failures are logged by the notifier and never
		// unwind an already-created invitation.
		s.notifier.ScheduleInvitationEmail(ctx, inv, reviewer, &mc.Manuscript, sendAt)
	}

	return inv, nil
}

// GetByToken fetches an invitation for a token holder, lazily expiring it if
// the response deadline has passed. The expiry transition is a CAS, so
// concurrent reads race harmlessly: exactly one flips the row, all observe
// expired.
func (s *InvitationService) GetByToken(ctx context.Context, token string) (*models.ReviewerInvitation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, validationErrorf("token", "is required")
	}

	inv, err := s.store.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if inv.Status == models.InvitationStatusPending && inv.IsExpired(s.now()) {
		if _, err := s.store.MarkExpired(ctx, inv.InvitationID); err != nil {
			return nil, err
		}
		inv.Status = models.InvitationStatusExpired
	}

	return inv, nil
}

// PublicView shapes an invitation for the unauthenticated token endpoint.
func (s *InvitationService) PublicView(ctx context.Context, inv *models.ReviewerInvitation) (*InvitationPublicView, error) {
	view := &InvitationPublicView{
		Status:           inv.Status,
		CustomMessage:    inv.CustomMessage,
		ReviewDeadline:   inv.ReviewDeadline,
		ResponseDeadline: inv.ResponseDeadline,
		RespondedAt:      inv.RespondedAt,
	}
	if inv.Manuscript != nil {
		view.ManuscriptTitle = inv.Manuscript.Title
		view.ManuscriptField = inv.Manuscript.Field
	}
	if inv.Reviewer != nil {
		view.ReviewerName = inv.Reviewer.FullName
		view.ReviewerEmail = inv.Reviewer.Email
	}

	counts, err := s.store.CountByStatus(ctx, inv.ManuscriptID)
	if err != nil {
		return nil, err
	}
	view.OtherInvitations = make(map[string]int64, len(counts))
	for status, total := range counts {
		if status == inv.Status {
			total--
		}
		if total > 0 {
			view.OtherInvitations[string(status)] = total
		}
	}
	return view, nil
}

// Respond records a reviewer's accept or decline through the token endpoint.
func (s *InvitationService) Respond(ctx context.Context, token string, input RespondInput) (*models.ReviewerInvitation, error) {
	inv, err := s.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if err := s.checkRespondable(inv); err != nil {
		return nil, err
	}

	switch strings.ToLower(strings.TrimSpace(input.Decision)) {
	case "accept":
		return s.accept(ctx, inv, input)
	case "decline":
		return s.decline(ctx, inv, input)
	default:
		return nil, validationErrorf("decision", "must be either 'accept' or 'decline'")
	}
}

func (s *InvitationService) checkRespondable(inv *models.ReviewerInvitation) error {
	switch inv.Status {
	case models.InvitationStatusPending:
		return nil
	case models.InvitationStatusExpired:
		return fmt.Errorf("invitation expired on %s: %w",
			inv.ResponseDeadline.Format(time.RFC3339), ErrInvitationExpired)
	case models.InvitationStatusAccepted:
		return fmt.Errorf("invitation already accepted: %w", ErrInvitationResolved)
	case models.InvitationStatusDeclined:
		return fmt.Errorf("invitation already declined: %w", ErrInvitationResolved)
	case models.InvitationStatusCancelled:
		return fmt.Errorf("invitation was cancelled by the editor: %w", ErrInvitationResolved)
	default:
		return fmt.Errorf("invitation in unknown status %q: %w", inv.Status, ErrInvitationResolved)
	}
}

func (s *InvitationService) accept(ctx context.Context, inv *models.ReviewerInvitation, input RespondInput) (*models.ReviewerInvitation, error) {
	if !input.AvailabilityConfirmed {
		return nil, validationErrorf("availabilityConfirmed", "must be confirmed to accept")
	}
	if input.ExpertiseRating != nil && (*input.ExpertiseRating < 1 || *input.ExpertiseRating > 5) {
		return nil, validationErrorf("expertiseRating", "must be between 1 and 5")
	}

	declaration := input.ConflictDeclaration
	if declaration != nil && declaration.HasConflict {
		if declaration.ConflictDescription == nil || strings.TrimSpace(*declaration.ConflictDescription) == "" {
			return nil, validationErrorf("conflictDescription", "is required when declaring a conflict")
		}
	}

	now := s.now()
	inv.RespondedAt = &now
	inv.ExpertiseRating = input.ExpertiseRating
	if input.ClientFingerprint != "" {
		fingerprint := utils.SanitizeInput(input.ClientFingerprint)
		inv.ClientFingerprint = &fingerprint
	}

	assignment := &models.ReviewAssignment{
		AssignmentUUID: uuid.New().String(),
		ManuscriptID:   inv.ManuscriptID,
		ReviewerID:     inv.ReviewerID,
		DueDate:        inv.ReviewDeadline,
		Status:         models.AssignmentStatusActive,
		AssignedAt:     now,
	}
	if declaration != nil && declaration.HasConflict {
		inv.ConflictDeclared = true
		inv.ConflictType = declaration.ConflictType
		inv.ConflictDescription = declaration.ConflictDescription
		assignment.HasConflict = true
		assignment.ConflictDetails = declaration.ConflictDescription
	}

	won, err := s.store.AcceptAndAssign(ctx, inv, assignment)
	if err != nil {
		return nil, err
	}
	if !won {
		// Lost a race against another transition; report the current state.
		latest, err := s.store.GetByID(ctx, inv.InvitationID)
		if err != nil {
			return nil, err
		}
		return nil, s.checkRespondable(latest)
	}

	inv.Status = models.InvitationStatusAccepted
	return inv, nil
}

func (s *InvitationService) decline(ctx context.Context, inv *models.ReviewerInvitation, input RespondInput) (*models.ReviewerInvitation, error) {
	reason := strings.TrimSpace(input.DeclineReason)
	if reason == "" {
		return nil, validationErrorf("declineReason", "is required when declining")
	}

	now := s.now()
	inv.RespondedAt = &now
	inv.DeclineReason = &reason
	if input.ClientFingerprint != "" {
		fingerprint := utils.SanitizeInput(input.ClientFingerprint)
		inv.ClientFingerprint = &fingerprint
	}

	var suggestion *models.ReviewerSuggestion
	if alt := input.AlternativeReviewer; alt != nil && strings.TrimSpace(alt.FullName) != "" {
		if alt.Email != nil && !utils.ValidateEmail(*alt.Email) {
			return nil, validationErrorf("alternativeReviewer.email", "is not a valid email address")
		}
		suggestion = &models.ReviewerSuggestion{
			FullName:    strings.TrimSpace(alt.FullName),
			Email:       alt.Email,
			Affiliation: alt.Affiliation,
			Reason:      alt.Reason,
			CreateAt:    &now,
		}
	}

	won, err := s.store.Decline(ctx, inv, suggestion)
	if err != nil {
		return nil, err
	}
	if !won {
		latest, err := s.store.GetByID(ctx, inv.InvitationID)
		if err != nil {
			return nil, err
		}
		return nil, s.checkRespondable(latest)
	}

	inv.Status = models.InvitationStatusDeclined
	return inv, nil
}

// Cancel is the editor-initiated transition out of pending. Terminal states
// are reported distinctly so the UI can render the right read-only view.
func (s *InvitationService) Cancel(ctx context.Context, invitationID int) (*models.ReviewerInvitation, error) {
	inv, err := s.store.GetByID(ctx, invitationID)
	if err != nil {
		return nil, err
	}

	if inv.Status == models.InvitationStatusPending && inv.IsExpired(s.now()) {
		if _, err := s.store.MarkExpired(ctx, inv.InvitationID); err != nil {
			return nil, err
		}
		inv.Status = models.InvitationStatusExpired
	}

	if err := s.checkRespondable(inv); err != nil {
		return nil, err
	}

	won, err := s.store.Cancel(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if !won {
		latest, err := s.store.GetByID(ctx, invitationID)
		if err != nil {
			return nil, err
		}
		return nil, s.checkRespondable(latest)
	}

	inv.Status = models.InvitationStatusCancelled
	return inv, nil
}

// ExpirePending sweeps all overdue pending invitations. Installations that
// prefer background reconciliation over purely lazy expiry run this from
// cmd/expire-invitations.
func (s *InvitationService) ExpirePending(ctx context.Context) (int64, error) {
	return s.store.ExpirePendingBefore(ctx, s.now())
}
