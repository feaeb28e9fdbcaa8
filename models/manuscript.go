package models

import (
	"strings"
	"time"
)

// Manuscript statuses (exact match with manuscripts.status values).
const (
	ManuscriptStatusSubmitted   = "submitted"
	ManuscriptStatusWithEditor  = "with_editor"
	ManuscriptStatusUnderReview = "under_review"
	ManuscriptStatusDecision    = "decision"
	ManuscriptStatusPublished   = "published"
	ManuscriptStatusRejected    = "rejected"
)

type Manuscript struct {
	ManuscriptID  int        `gorm:"primaryKey;column:manuscript_id" json:"manuscript_id"`
	Title         string     `gorm:"column:title" json:"title"`
	Abstract      string     `gorm:"column:abstract" json:"abstract"`
	Field         string     `gorm:"column:field" json:"field"`
	Subfield      *string    `gorm:"column:subfield" json:"subfield,omitempty"`
	Keywords      string     `gorm:"column:keywords" json:"keywords"` // comma separated
	ReferenceText string     `gorm:"column:reference_text" json:"reference_text"`
	Status        string     `gorm:"column:status" json:"status"`
	SubmittedAt   *time.Time `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	CreateAt      *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt      *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt      *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`

	Authors    []ManuscriptAuthor    `gorm:"foreignKey:ManuscriptID" json:"authors,omitempty"`
	Exclusions []ManuscriptExclusion `gorm:"foreignKey:ManuscriptID" json:"exclusions,omitempty"`
}

// ManuscriptAuthor links a manuscript to an author in the reviewers registry.
// The affiliation is snapshotted at submission time so shared-institution
// checks are stable even if the author later moves.
type ManuscriptAuthor struct {
	AuthorID     int        `gorm:"primaryKey;column:author_id" json:"author_id"`
	ManuscriptID int        `gorm:"column:manuscript_id" json:"manuscript_id"`
	ReviewerID   int        `gorm:"column:reviewer_id" json:"reviewer_id"`
	AuthorOrder  int        `gorm:"column:author_order" json:"author_order"`
	Affiliation  string     `gorm:"column:affiliation" json:"affiliation"`
	CreateAt     *time.Time `gorm:"column:create_at" json:"create_at"`
}

// ManuscriptExclusion is an editor-maintained "do not invite" entry.
type ManuscriptExclusion struct {
	ExclusionID  int        `gorm:"primaryKey;column:exclusion_id" json:"exclusion_id"`
	ManuscriptID int        `gorm:"column:manuscript_id" json:"manuscript_id"`
	ReviewerID   int        `gorm:"column:reviewer_id" json:"reviewer_id"`
	Reason       *string    `gorm:"column:reason" json:"reason,omitempty"`
	CreatedBy    int        `gorm:"column:created_by" json:"created_by"`
	CreateAt     *time.Time `gorm:"column:create_at" json:"create_at"`
}

// IsInvitable reports whether reviewer invitations may be created for the
// manuscript in its current status.
func (m *Manuscript) IsInvitable() bool {
	switch m.Status {
	case ManuscriptStatusSubmitted, ManuscriptStatusWithEditor, ManuscriptStatusUnderReview:
		return true
	}
	return false
}

// KeywordList splits the comma-separated keywords column into trimmed,
// lowercased entries.
func (m *Manuscript) KeywordList() []string {
	if m.Keywords == "" {
		return nil
	}
	parts := strings.Split(m.Keywords, ",")
	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		kw := strings.ToLower(strings.TrimSpace(p))
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

// TableName overrides
func (Manuscript) TableName() string {
	return "manuscripts"
}

func (ManuscriptAuthor) TableName() string {
	return "manuscript_authors"
}

func (ManuscriptExclusion) TableName() string {
	return "manuscript_exclusions"
}
