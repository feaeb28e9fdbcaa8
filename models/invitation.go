package models

import "time"

type InvitationStatus string

const (
	InvitationStatusPending   InvitationStatus = "pending"
	InvitationStatusAccepted  InvitationStatus = "accepted"
	InvitationStatusDeclined  InvitationStatus = "declined"
	InvitationStatusExpired   InvitationStatus = "expired"
	InvitationStatusCancelled InvitationStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are permitted.
func (s InvitationStatus) IsTerminal() bool {
	return s != InvitationStatusPending
}

// ReviewerInvitation represents one invitation to review a manuscript.
// Status is mutated only by the invitation service: reviewer response,
// deadline expiry evaluated lazily at read time, or editor cancellation.
type ReviewerInvitation struct {
	InvitationID     int              `gorm:"primaryKey;column:invitation_id" json:"invitation_id"`
	ManuscriptID     int              `gorm:"column:manuscript_id" json:"manuscript_id"`
	ReviewerID       int              `gorm:"column:reviewer_id" json:"reviewer_id"`
	InviterID        int              `gorm:"column:inviter_id" json:"inviter_id"`
	Status           InvitationStatus `gorm:"column:status" json:"status"`
	CustomMessage    *string          `gorm:"column:custom_message" json:"custom_message,omitempty"`
	ReviewDeadline   time.Time        `gorm:"column:review_deadline" json:"review_deadline"`
	ResponseDeadline time.Time        `gorm:"column:response_deadline" json:"response_deadline"`
	Token            string           `gorm:"column:token;unique" json:"-"`
	RespondedAt      *time.Time       `gorm:"column:responded_at" json:"responded_at,omitempty"`
	DeclineReason    *string          `gorm:"column:decline_reason" json:"decline_reason,omitempty"`

	// Response metadata captured for audit.
	ExpertiseRating     *int    `gorm:"column:expertise_rating" json:"expertise_rating,omitempty"`
	ConflictDeclared    bool    `gorm:"column:conflict_declared" json:"conflict_declared"`
	ConflictType        *string `gorm:"column:conflict_type" json:"conflict_type,omitempty"`
	ConflictDescription *string `gorm:"column:conflict_description" json:"conflict_description,omitempty"`
	ClientFingerprint   *string `gorm:"column:client_fingerprint" json:"-"`

	// COI override audit, set when an editor invited past a conflict block.
	COIOverrideReason *string    `gorm:"column:coi_override_reason" json:"coi_override_reason,omitempty"`
	COIApprovedBy     *int       `gorm:"column:coi_approved_by" json:"coi_approved_by,omitempty"`
	COIOverrideAt     *time.Time `gorm:"column:coi_override_at" json:"coi_override_at,omitempty"`

	// NotifyAt is the visible send time of the invitation email. Staggered
	// batches push it forward; state-machine timing is unaffected.
	NotifyAt *time.Time `gorm:"column:notify_at" json:"notify_at,omitempty"`

	CreateAt *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt *time.Time `gorm:"column:update_at" json:"update_at"`

	Reviewer   *Reviewer   `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
	Manuscript *Manuscript `gorm:"foreignKey:ManuscriptID" json:"manuscript,omitempty"`
}

// IsExpired reports whether the response deadline has passed at the given
// instant. Persisting the expired status is the service's job.
func (i *ReviewerInvitation) IsExpired(now time.Time) bool {
	return now.After(i.ResponseDeadline)
}

// ReviewerSuggestion is an alternative reviewer proposed by a declining
// reviewer. Suggestions are stored for the editor and never auto-invited.
type ReviewerSuggestion struct {
	SuggestionID int        `gorm:"primaryKey;column:suggestion_id" json:"suggestion_id"`
	InvitationID int        `gorm:"column:invitation_id" json:"invitation_id"`
	FullName     string     `gorm:"column:full_name" json:"full_name"`
	Email        *string    `gorm:"column:email" json:"email,omitempty"`
	Affiliation  *string    `gorm:"column:affiliation" json:"affiliation,omitempty"`
	Reason       *string    `gorm:"column:reason" json:"reason,omitempty"`
	CreateAt     *time.Time `gorm:"column:create_at" json:"create_at"`
}

// Review assignment statuses.
const (
	AssignmentStatusActive    = "active"
	AssignmentStatusCompleted = "completed"
	AssignmentStatusWithdrawn = "withdrawn"
)

// ReviewAssignment is created exactly once, as a side effect of an
// invitation transitioning to accepted.
type ReviewAssignment struct {
	AssignmentID    int        `gorm:"primaryKey;column:assignment_id" json:"assignment_id"`
	AssignmentUUID  string     `gorm:"column:assignment_uuid;unique" json:"assignment_uuid"`
	InvitationID    int        `gorm:"column:invitation_id;unique" json:"invitation_id"`
	ManuscriptID    int        `gorm:"column:manuscript_id" json:"manuscript_id"`
	ReviewerID      int        `gorm:"column:reviewer_id" json:"reviewer_id"`
	DueDate         time.Time  `gorm:"column:due_date" json:"due_date"`
	HasConflict     bool       `gorm:"column:has_conflict" json:"has_conflict"`
	ConflictDetails *string    `gorm:"column:conflict_details" json:"conflict_details,omitempty"`
	Status          string     `gorm:"column:status" json:"status"`
	AssignedAt      time.Time  `gorm:"column:assigned_at" json:"assigned_at"`
	CompletedAt     *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

// InvitationNotification is an outbox row for invitation e-mail delivery.
// Staggered batches schedule successive rows further in the future; the
// dispatcher sends whatever is due and records failures without touching
// invitation state.
type InvitationNotification struct {
	NotificationID int        `gorm:"primaryKey;column:notification_id" json:"notification_id"`
	InvitationID   int        `gorm:"column:invitation_id" json:"invitation_id"`
	RecipientEmail string     `gorm:"column:recipient_email" json:"recipient_email"`
	Subject        string     `gorm:"column:subject" json:"subject"`
	Body           string     `gorm:"column:body" json:"body"`
	ScheduledAt    time.Time  `gorm:"column:scheduled_at" json:"scheduled_at"`
	SentAt         *time.Time `gorm:"column:sent_at" json:"sent_at,omitempty"`
	Attempts       int        `gorm:"column:attempts" json:"attempts"`
	LastError      *string    `gorm:"column:last_error" json:"last_error,omitempty"`
	CreateAt       *time.Time `gorm:"column:create_at" json:"create_at"`
}

// TableName overrides
func (ReviewerInvitation) TableName() string {
	return "reviewer_invitations"
}

func (ReviewerSuggestion) TableName() string {
	return "reviewer_suggestions"
}

func (ReviewAssignment) TableName() string {
	return "review_assignments"
}

func (InvitationNotification) TableName() string {
	return "invitation_notifications"
}
