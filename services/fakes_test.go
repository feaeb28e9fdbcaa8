package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"review-assignment-api/models"
)

// fakeCandidateStore serves fixtures for matcher and detector tests.
type fakeCandidateStore struct {
	reviewers   map[int]*models.Reviewer
	manuscripts map[int]*ManuscriptContext
	assignments []AssignmentRecord
	explicit    map[string][]models.ExplicitConflict
}

func newFakeCandidateStore() *fakeCandidateStore {
	return &fakeCandidateStore{
		reviewers:   make(map[int]*models.Reviewer),
		manuscripts: make(map[int]*ManuscriptContext),
		explicit:    make(map[string][]models.ExplicitConflict),
	}
}

func (f *fakeCandidateStore) addReviewer(r models.Reviewer) {
	f.reviewers[r.ReviewerID] = &r
}

func (f *fakeCandidateStore) addManuscript(mc ManuscriptContext) {
	f.manuscripts[mc.Manuscript.ManuscriptID] = &mc
}

func (f *fakeCandidateStore) addExplicitConflict(reviewerID, manuscriptID int, conflictType string) {
	key := fmt.Sprintf("%d/%d", reviewerID, manuscriptID)
	f.explicit[key] = append(f.explicit[key], models.ExplicitConflict{
		ReviewerID:   reviewerID,
		ManuscriptID: manuscriptID,
		ConflictType: conflictType,
		DeclaredBy:   1,
	})
}

func (f *fakeCandidateStore) GetReviewerCandidates(ctx context.Context, filter CandidateFilter) ([]models.Reviewer, error) {
	var out []models.Reviewer
	for _, r := range f.reviewers {
		if filter.MinHIndex > 0 && r.HIndex < filter.MinHIndex {
			continue
		}
		if filter.MinPublications > 0 && r.PublicationCount < filter.MinPublications {
			continue
		}
		out = append(out, *r)
	}
	// Stable order by id, mirroring the database query.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].ReviewerID < out[i].ReviewerID {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (f *fakeCandidateStore) GetReviewer(ctx context.Context, reviewerID int) (*models.Reviewer, error) {
	r, ok := f.reviewers[reviewerID]
	if !ok {
		return nil, fmt.Errorf("reviewer %d: %w", reviewerID, ErrNotFound)
	}
	copied := *r
	return &copied, nil
}

func (f *fakeCandidateStore) GetManuscriptContext(ctx context.Context, manuscriptID int) (*ManuscriptContext, error) {
	mc, ok := f.manuscripts[manuscriptID]
	if !ok {
		return nil, fmt.Errorf("manuscript %d: %w", manuscriptID, ErrNotFound)
	}
	copied := *mc
	return &copied, nil
}

func (f *fakeCandidateStore) GetRecentAssignments(ctx context.Context, reviewerIDs []int, window time.Duration) ([]AssignmentRecord, error) {
	wanted := make(map[int]bool, len(reviewerIDs))
	for _, id := range reviewerIDs {
		wanted[id] = true
	}
	var out []AssignmentRecord
	for _, record := range f.assignments {
		if wanted[record.ReviewerID] {
			out = append(out, record)
		}
	}
	return out, nil
}

func (f *fakeCandidateStore) GetExplicitConflicts(ctx context.Context, reviewerID, manuscriptID int) ([]models.ExplicitConflict, error) {
	return f.explicit[fmt.Sprintf("%d/%d", reviewerID, manuscriptID)], nil
}

// fakeInvitationStore reproduces the repository's compare-and-swap and
// transactional semantics in memory.
type fakeInvitationStore struct {
	mu          sync.Mutex
	nextID      int
	invitations map[int]*models.ReviewerInvitation
	assignments []models.ReviewAssignment
	suggestions []models.ReviewerSuggestion

	failAssignmentInsert bool // simulates a crash between transition and insert
}

func newFakeInvitationStore() *fakeInvitationStore {
	return &fakeInvitationStore{invitations: make(map[int]*models.ReviewerInvitation)}
}

func (f *fakeInvitationStore) CreateInvitation(ctx context.Context, inv *models.ReviewerInvitation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.invitations {
		if existing.ManuscriptID == inv.ManuscriptID && existing.ReviewerID == inv.ReviewerID &&
			(existing.Status == models.InvitationStatusPending || existing.Status == models.InvitationStatusAccepted) {
			return ErrDuplicateInvitation
		}
	}
	f.nextID++
	inv.InvitationID = f.nextID
	copied := *inv
	f.invitations[inv.InvitationID] = &copied
	return nil
}

func (f *fakeInvitationStore) GetByToken(ctx context.Context, token string) (*models.ReviewerInvitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inv := range f.invitations {
		if inv.Token == token {
			copied := *inv
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("invitation token: %w", ErrNotFound)
}

func (f *fakeInvitationStore) GetByID(ctx context.Context, invitationID int) (*models.ReviewerInvitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invitations[invitationID]
	if !ok {
		return nil, fmt.Errorf("invitation %d: %w", invitationID, ErrNotFound)
	}
	copied := *inv
	return &copied, nil
}

func (f *fakeInvitationStore) cas(invitationID int, to models.InvitationStatus, mutate func(*models.ReviewerInvitation)) bool {
	inv, ok := f.invitations[invitationID]
	if !ok || inv.Status != models.InvitationStatusPending {
		return false
	}
	inv.Status = to
	if mutate != nil {
		mutate(inv)
	}
	return true
}

func (f *fakeInvitationStore) MarkExpired(ctx context.Context, invitationID int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cas(invitationID, models.InvitationStatusExpired, nil), nil
}

func (f *fakeInvitationStore) Cancel(ctx context.Context, invitationID int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cas(invitationID, models.InvitationStatusCancelled, nil), nil
}

func (f *fakeInvitationStore) Decline(ctx context.Context, inv *models.ReviewerInvitation, suggestion *models.ReviewerSuggestion) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	won := f.cas(inv.InvitationID, models.InvitationStatusDeclined, func(stored *models.ReviewerInvitation) {
		stored.RespondedAt = inv.RespondedAt
		stored.DeclineReason = inv.DeclineReason
		stored.ClientFingerprint = inv.ClientFingerprint
	})
	if won && suggestion != nil {
		suggestion.InvitationID = inv.InvitationID
		f.suggestions = append(f.suggestions, *suggestion)
	}
	return won, nil
}

func (f *fakeInvitationStore) AcceptAndAssign(ctx context.Context, inv *models.ReviewerInvitation, assignment *models.ReviewAssignment) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAssignmentInsert {
		// The real store runs both writes in one transaction: an insert
		// failure rolls the status change back, leaving pending intact.
		return false, errors.New("assignment insert failed")
	}
	won := f.cas(inv.InvitationID, models.InvitationStatusAccepted, func(stored *models.ReviewerInvitation) {
		stored.RespondedAt = inv.RespondedAt
		stored.ExpertiseRating = inv.ExpertiseRating
		stored.ConflictDeclared = inv.ConflictDeclared
		stored.ConflictType = inv.ConflictType
		stored.ConflictDescription = inv.ConflictDescription
		stored.ClientFingerprint = inv.ClientFingerprint
	})
	if won {
		assignment.InvitationID = inv.InvitationID
		f.assignments = append(f.assignments, *assignment)
	}
	return won, nil
}

func (f *fakeInvitationStore) HasAssignment(ctx context.Context, manuscriptID, reviewerID int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.assignments {
		if a.ManuscriptID == manuscriptID && a.ReviewerID == reviewerID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeInvitationStore) HasAnyInvitation(ctx context.Context, manuscriptID, reviewerID int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inv := range f.invitations {
		if inv.ManuscriptID == manuscriptID && inv.ReviewerID == reviewerID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeInvitationStore) CountByStatus(ctx context.Context, manuscriptID int) (map[models.InvitationStatus]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[models.InvitationStatus]int64)
	for _, inv := range f.invitations {
		if inv.ManuscriptID == manuscriptID {
			counts[inv.Status]++
		}
	}
	return counts, nil
}

func (f *fakeInvitationStore) ExpirePendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var expired int64
	for _, inv := range f.invitations {
		if inv.Status == models.InvitationStatusPending && inv.ResponseDeadline.Before(cutoff) {
			inv.Status = models.InvitationStatusExpired
			expired++
		}
	}
	return expired, nil
}

func (f *fakeInvitationStore) assignmentsFor(manuscriptID, reviewerID int) []models.ReviewAssignment {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ReviewAssignment
	for _, a := range f.assignments {
		if a.ManuscriptID == manuscriptID && a.ReviewerID == reviewerID {
			out = append(out, a)
		}
	}
	return out
}

// fakeStatusStore counts under_review transitions.
type fakeStatusStore struct {
	mu           sync.Mutex
	status       map[int]string
	advanceCalls int
	advanceErr   error
}

func newFakeStatusStore() *fakeStatusStore {
	return &fakeStatusStore{status: make(map[int]string)}
}

func (f *fakeStatusStore) AdvanceToUnderReview(ctx context.Context, manuscriptID int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.advanceCalls++
	if f.advanceErr != nil {
		return false, f.advanceErr
	}
	current, ok := f.status[manuscriptID]
	if !ok {
		current = models.ManuscriptStatusSubmitted
	}
	if current == models.ManuscriptStatusUnderReview {
		return false, nil
	}
	f.status[manuscriptID] = models.ManuscriptStatusUnderReview
	return true, nil
}

// fakeNotificationStore is an in-memory outbox.
type fakeNotificationStore struct {
	mu     sync.Mutex
	nextID int
	rows   []*models.InvitationNotification
}

func newFakeNotificationStore() *fakeNotificationStore {
	return &fakeNotificationStore{}
}

func (f *fakeNotificationStore) Enqueue(ctx context.Context, row *models.InvitationNotification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	row.NotificationID = f.nextID
	stored := *row
	f.rows = append(f.rows, &stored)
	return nil
}

func (f *fakeNotificationStore) Due(ctx context.Context, at time.Time, limit int) ([]models.InvitationNotification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []models.InvitationNotification
	for _, row := range f.rows {
		if row.SentAt == nil && !row.ScheduledAt.After(at) {
			due = append(due, *row)
			if len(due) == limit {
				break
			}
		}
	}
	return due, nil
}

func (f *fakeNotificationStore) MarkSent(ctx context.Context, notificationID int, sentAt time.Time, attempts int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, err := f.find(notificationID)
	if err != nil {
		return err
	}
	row.SentAt = &sentAt
	row.Attempts = attempts
	row.LastError = nil
	return nil
}

func (f *fakeNotificationStore) RecordFailure(ctx context.Context, notificationID int, attempts int, lastError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, err := f.find(notificationID)
	if err != nil {
		return err
	}
	row.Attempts = attempts
	row.LastError = &lastError
	return nil
}

func (f *fakeNotificationStore) find(notificationID int) (*models.InvitationNotification, error) {
	for _, row := range f.rows {
		if row.NotificationID == notificationID {
			return row, nil
		}
	}
	return nil, fmt.Errorf("notification %d not found", notificationID)
}
