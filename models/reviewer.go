package models

import (
	"strings"
	"time"
)

// Reviewer is the registry of academics known to the system. The same
// population appears as manuscript authors and as reviewer candidates.
type Reviewer struct {
	ReviewerID       int        `gorm:"primaryKey;column:reviewer_id" json:"reviewer_id"`
	FullName         string     `gorm:"column:full_name" json:"full_name"`
	Email            string     `gorm:"column:email;unique" json:"email"`
	Affiliation      string     `gorm:"column:affiliation" json:"affiliation"`
	Country          *string    `gorm:"column:country" json:"country,omitempty"`
	HIndex           int        `gorm:"column:h_index" json:"h_index"`
	PublicationCount int        `gorm:"column:publication_count" json:"publication_count"`
	Expertise        string     `gorm:"column:expertise" json:"expertise"` // comma separated tags
	IsAvailable      bool       `gorm:"column:is_available" json:"is_available"`
	CreateAt         *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt         *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt         *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`

	Publications []ReviewerPublication `gorm:"foreignKey:ReviewerID" json:"publications,omitempty"`
}

// ReviewerPublication holds a reviewer's recent publication along with its raw
// reference list, used by the citation-overlap conflict signal.
type ReviewerPublication struct {
	PublicationID int        `gorm:"primaryKey;column:publication_id" json:"publication_id"`
	ReviewerID    int        `gorm:"column:reviewer_id" json:"reviewer_id"`
	Title         string     `gorm:"column:title" json:"title"`
	Year          int        `gorm:"column:year" json:"year"`
	DOI           *string    `gorm:"column:doi" json:"doi,omitempty"`
	ReferenceText string     `gorm:"column:reference_text" json:"reference_text"`
	CreateAt      *time.Time `gorm:"column:create_at" json:"create_at"`
}

// ExpertiseTags splits the comma-separated expertise column into trimmed,
// lowercased tags.
func (r *Reviewer) ExpertiseTags() []string {
	if r.Expertise == "" {
		return nil
	}
	parts := strings.Split(r.Expertise, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		tag := strings.ToLower(strings.TrimSpace(p))
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// TableName overrides
func (Reviewer) TableName() string {
	return "reviewers"
}

func (ReviewerPublication) TableName() string {
	return "reviewer_publications"
}
