package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"review-assignment-api/models"
)

type bulkFixture struct {
	store      *fakeInvitationStore
	candidates *fakeCandidateStore
	status     *fakeStatusStore
	svc        *BulkInviteService
	now        time.Time
	dueDate    time.Time
}

// Manuscript 40 by reviewer 2; reviewers 1 and 3 are clean candidates.
func newBulkFixture(t *testing.T) *bulkFixture {
	t.Helper()
	now := time.Date(2026, 4, 6, 8, 0, 0, 0, time.UTC)

	candidates := newFakeCandidateStore()
	candidates.addManuscript(ManuscriptContext{
		Manuscript: models.Manuscript{
			ManuscriptID: 40,
			Title:        "Adaptive load shedding in stream processors",
			Field:        "computer science",
			Status:       models.ManuscriptStatusSubmitted,
		},
		AuthorIDs:          []int{2},
		AuthorAffiliations: []string{"Northport Institute"},
	})
	candidates.addReviewer(models.Reviewer{
		ReviewerID: 1, FullName: "Ada Stone", Email: "ada@westvale.edu",
		Affiliation: "Westvale Institute", IsAvailable: true,
	})
	candidates.addReviewer(models.Reviewer{
		ReviewerID: 2, FullName: "Ben Clear", Email: "ben@northport.edu",
		Affiliation: "Northport Institute", IsAvailable: true,
	})
	candidates.addReviewer(models.Reviewer{
		ReviewerID: 3, FullName: "Cara Field", Email: "cara@eastmoor.edu",
		Affiliation: "Eastmoor College", IsAvailable: true,
	})

	store := newFakeInvitationStore()
	status := newFakeStatusStore()

	invitations := NewInvitationService(store, candidates, nil)
	invitations.now = func() time.Time { return now }

	svc := NewBulkInviteService(invitations, NewConflictService(candidates), candidates, store, status)
	svc.now = func() time.Time { return now }

	return &bulkFixture{
		store:      store,
		candidates: candidates,
		status:     status,
		svc:        svc,
		now:        now,
		dueDate:    now.Add(30 * 24 * time.Hour),
	}
}

func TestBulkInviteBlocksConflictedReviewerInPlace(t *testing.T) {
	fx := newBulkFixture(t)

	results, err := fx.svc.Invite(context.Background(), 40, []int{1, 2, 3}, fx.dueDate, 11, BulkInviteOptions{})
	if err != nil {
		t.Fatalf("Invite returned error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected one result per input reviewer, got %d", len(results))
	}

	wantStatus := []string{BulkResultSuccess, BulkResultBlocked, BulkResultSuccess}
	for i, want := range wantStatus {
		if results[i].Status != want {
			t.Fatalf("result %d: expected %s, got %s (%s)", i, want, results[i].Status, results[i].Reason)
		}
		if results[i].ReviewerID != []int{1, 2, 3}[i] {
			t.Fatalf("result %d out of input order: %d", i, results[i].ReviewerID)
		}
	}

	blocked := results[1]
	if blocked.Reason != "coi" {
		t.Fatalf("blocked reason must be coi, got %q", blocked.Reason)
	}
	if blocked.COI == nil || blocked.COI.IsEligible || !blocked.COI.HasHardConflict() {
		t.Fatalf("blocked result must carry the conflict evidence: %#v", blocked.COI)
	}
	if blocked.InvitationID != 0 {
		t.Fatal("blocked reviewer must not receive an invitation")
	}

	if results[0].InvitationID == 0 || results[2].InvitationID == 0 {
		t.Fatal("successful reviewers must receive invitation ids")
	}
	if fx.status.advanceCalls != 1 {
		t.Fatalf("manuscript must advance exactly once, got %d calls", fx.status.advanceCalls)
	}
	if fx.status.status[40] != models.ManuscriptStatusUnderReview {
		t.Fatalf("expected under_review after a successful batch, got %s", fx.status.status[40])
	}
}

func TestBulkInviteOverrideRecordsAudit(t *testing.T) {
	fx := newBulkFixture(t)

	results, err := fx.svc.Invite(context.Background(), 40, []int{2}, fx.dueDate, 11, BulkInviteOptions{
		Overrides: map[int]Override{
			2: {Reason: "only remaining expert in the subfield"},
		},
	})
	if err != nil {
		t.Fatalf("Invite returned error: %v", err)
	}
	if results[0].Status != BulkResultSuccess {
		t.Fatalf("override must allow the invitation, got %s (%s)", results[0].Status, results[0].Reason)
	}

	inv, err := fx.store.GetByID(context.Background(), results[0].InvitationID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if inv.COIOverrideReason == nil || *inv.COIOverrideReason != "only remaining expert in the subfield" {
		t.Fatalf("override reason not persisted: %#v", inv.COIOverrideReason)
	}
	if inv.COIApprovedBy == nil || *inv.COIApprovedBy != 11 {
		t.Fatal("override granter must default to the inviter")
	}
	if inv.COIOverrideAt == nil || !inv.COIOverrideAt.Equal(fx.now) {
		t.Fatal("override timestamp must default to the batch time")
	}
}

func TestBulkInviteRedundantOverrideIsRecordedNoOp(t *testing.T) {
	fx := newBulkFixture(t)

	// Reviewer 3 has no conflict; the override must neither fail nor block.
	results, err := fx.svc.Invite(context.Background(), 40, []int{3}, fx.dueDate, 11, BulkInviteOptions{
		Overrides: map[int]Override{
			3: {GrantedBy: 12, Reason: "pre-approved by the editor in chief"},
		},
	})
	if err != nil {
		t.Fatalf("Invite returned error: %v", err)
	}
	if results[0].Status != BulkResultSuccess {
		t.Fatalf("expected success, got %s (%s)", results[0].Status, results[0].Reason)
	}

	inv, _ := fx.store.GetByID(context.Background(), results[0].InvitationID)
	if inv.COIOverrideReason == nil || inv.COIApprovedBy == nil || *inv.COIApprovedBy != 12 {
		t.Fatal("a redundant override must still be recorded for the audit trail")
	}
}

func TestBulkInviteSkipsAlreadyInvitedReviewer(t *testing.T) {
	fx := newBulkFixture(t)

	first, err := fx.svc.Invite(context.Background(), 40, []int{1}, fx.dueDate, 11, BulkInviteOptions{})
	if err != nil || first[0].Status != BulkResultSuccess {
		t.Fatalf("seed invitation failed: %v %#v", err, first)
	}

	results, err := fx.svc.Invite(context.Background(), 40, []int{1, 3}, fx.dueDate, 11, BulkInviteOptions{})
	if err != nil {
		t.Fatalf("Invite returned error: %v", err)
	}
	if results[0].Status != BulkResultFailed {
		t.Fatalf("re-inviting must fail per item, got %s", results[0].Status)
	}
	if results[0].Reason != "reviewer already invited for this manuscript" {
		t.Fatalf("unexpected failure reason: %q", results[0].Reason)
	}
	if results[1].Status != BulkResultSuccess {
		t.Fatalf("one failed item must not abort its siblings, got %s (%s)", results[1].Status, results[1].Reason)
	}
}

func TestBulkInviteSkipsAlreadyAssignedReviewer(t *testing.T) {
	fx := newBulkFixture(t)
	fx.store.assignments = append(fx.store.assignments, models.ReviewAssignment{
		ManuscriptID: 40,
		ReviewerID:   3,
	})

	results, err := fx.svc.Invite(context.Background(), 40, []int{3, 1}, fx.dueDate, 11, BulkInviteOptions{})
	if err != nil {
		t.Fatalf("Invite returned error: %v", err)
	}
	if results[0].Status != BulkResultFailed {
		t.Fatalf("inviting an assigned reviewer must fail per item, got %s", results[0].Status)
	}
	if results[0].Reason != "reviewer already assigned to this manuscript" {
		t.Fatalf("unexpected failure reason: %q", results[0].Reason)
	}
	if results[1].Status != BulkResultSuccess {
		t.Fatalf("one failed item must not abort its siblings, got %s (%s)", results[1].Status, results[1].Reason)
	}
}

func TestBulkInviteKeepsResultsWhenStatusAdvanceFails(t *testing.T) {
	fx := newBulkFixture(t)
	fx.status.advanceErr = errors.New("manuscripts table is read-only")

	results, err := fx.svc.Invite(context.Background(), 40, []int{1, 3}, fx.dueDate, 11, BulkInviteOptions{})
	if err == nil {
		t.Fatal("expected the status transition error to surface")
	}
	if len(results) != 2 {
		t.Fatalf("the reconciliation list must survive the status error, got %d results", len(results))
	}
	for i, result := range results {
		if result.Status != BulkResultSuccess {
			t.Fatalf("result %d: expected success, got %s (%s)", i, result.Status, result.Reason)
		}
	}
}

func TestBulkInviteStaggersNotificationsOnly(t *testing.T) {
	fx := newBulkFixture(t)

	results, err := fx.svc.Invite(context.Background(), 40, []int{1, 2, 3}, fx.dueDate, 11, BulkInviteOptions{
		Staggered:    true,
		StaggerHours: 24,
	})
	if err != nil {
		t.Fatalf("Invite returned error: %v", err)
	}

	// Reviewer 2 is blocked and does not consume a send slot: reviewer 1
	// notifies immediately, reviewer 3 takes the next slot.
	if results[0].NotifyAt == nil || !results[0].NotifyAt.Equal(fx.now) {
		t.Fatalf("first success must notify immediately, got %v", results[0].NotifyAt)
	}
	if results[1].NotifyAt != nil {
		t.Fatal("blocked reviewers must not be scheduled")
	}
	if results[2].NotifyAt == nil || !results[2].NotifyAt.Equal(fx.now.Add(24*time.Hour)) {
		t.Fatalf("second success must notify one slot later, got %v", results[2].NotifyAt)
	}

	// Staggering never shifts the response window.
	for _, idx := range []int{0, 2} {
		inv, _ := fx.store.GetByID(context.Background(), results[idx].InvitationID)
		if !inv.ResponseDeadline.Equal(fx.now.Add(7 * 24 * time.Hour)) {
			t.Fatalf("response deadline must be computed from now, got %s", inv.ResponseDeadline)
		}
	}
}

func TestBulkInviteValidatesStaggerHours(t *testing.T) {
	fx := newBulkFixture(t)

	_, err := fx.svc.Invite(context.Background(), 40, []int{1}, fx.dueDate, 11, BulkInviteOptions{
		Staggered: true,
	})
	if !IsValidationError(err) {
		t.Fatalf("staggering without stagger hours must fail validation, got %v", err)
	}
	if fx.status.advanceCalls != 0 {
		t.Fatal("a rejected batch must not touch the manuscript status")
	}
}

func TestBulkInviteRequiresReviewers(t *testing.T) {
	fx := newBulkFixture(t)

	_, err := fx.svc.Invite(context.Background(), 40, nil, fx.dueDate, 11, BulkInviteOptions{})
	if !IsValidationError(err) {
		t.Fatalf("expected validation error for an empty batch, got %v", err)
	}
}

func TestBulkInviteRequiresInvitableManuscript(t *testing.T) {
	fx := newBulkFixture(t)
	fx.candidates.manuscripts[40].Manuscript.Status = models.ManuscriptStatusPublished

	_, err := fx.svc.Invite(context.Background(), 40, []int{1}, fx.dueDate, 11, BulkInviteOptions{})
	if !errors.Is(err, ErrNotInvitable) {
		t.Fatalf("expected ErrNotInvitable, got %v", err)
	}
}

func TestBulkInviteAllBlockedLeavesStatusUntouched(t *testing.T) {
	fx := newBulkFixture(t)

	results, err := fx.svc.Invite(context.Background(), 40, []int{2}, fx.dueDate, 11, BulkInviteOptions{})
	if err != nil {
		t.Fatalf("Invite returned error: %v", err)
	}
	if results[0].Status != BulkResultBlocked {
		t.Fatalf("expected blocked, got %s", results[0].Status)
	}
	if fx.status.advanceCalls != 0 {
		t.Fatal("a batch with zero successes must not advance the manuscript")
	}
}

func TestBulkInviteIsolatesUnknownReviewer(t *testing.T) {
	fx := newBulkFixture(t)

	results, err := fx.svc.Invite(context.Background(), 40, []int{999, 3}, fx.dueDate, 11, BulkInviteOptions{})
	if err != nil {
		t.Fatalf("Invite returned error: %v", err)
	}
	if results[0].Status != BulkResultFailed || results[0].Reason == "" {
		t.Fatalf("unknown reviewer must fail with a reason: %#v", results[0])
	}
	if results[1].Status != BulkResultSuccess {
		t.Fatalf("siblings must still be processed, got %s (%s)", results[1].Status, results[1].Reason)
	}
	if fx.status.advanceCalls != 1 {
		t.Fatalf("expected one advance for the surviving success, got %d", fx.status.advanceCalls)
	}
}
