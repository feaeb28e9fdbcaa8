package models

import "time"

// Conflict evidence types.
const (
	ConflictTypeCoAuthorship      = "co_authorship"
	ConflictTypeExplicitDeclared  = "explicit_declared"
	ConflictTypeSharedInstitution = "shared_institution"
	ConflictTypeCitationOverlap   = "citation_overlap"
	ConflictTypeFinancial         = "financial"
	ConflictTypeOther             = "other"
)

// ExplicitConflict is a declared conflict-of-interest row for a
// (reviewer, manuscript) pair. Rows here always hard-block eligibility.
type ExplicitConflict struct {
	ConflictID   int        `gorm:"primaryKey;column:conflict_id" json:"conflict_id"`
	ReviewerID   int        `gorm:"column:reviewer_id" json:"reviewer_id"`
	ManuscriptID int        `gorm:"column:manuscript_id" json:"manuscript_id"`
	ConflictType string     `gorm:"column:conflict_type" json:"conflict_type"` // financial|other
	Details      *string    `gorm:"column:details" json:"details,omitempty"`
	DeclaredBy   int        `gorm:"column:declared_by" json:"declared_by"`
	CreateAt     *time.Time `gorm:"column:create_at" json:"create_at"`
	DeleteAt     *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

// ConflictEvidence is one piece of evidence contributing to a COI verdict.
type ConflictEvidence struct {
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Severity    float64 `json:"severity"` // contribution to the risk score, in [0,1]
}

// IsHard reports whether this evidence alone makes the reviewer ineligible.
func (e ConflictEvidence) IsHard() bool {
	return e.Type == ConflictTypeCoAuthorship || e.Type == ConflictTypeExplicitDeclared
}

// COIResult is the eligibility verdict for a (reviewer, manuscript) pair.
type COIResult struct {
	ReviewerID int                `json:"reviewer_id"`
	IsEligible bool               `json:"is_eligible"`
	Conflicts  []ConflictEvidence `json:"conflicts"`
	RiskScore  float64            `json:"risk_score"`
}

// HasHardConflict reports whether any hard evidence is present.
func (r *COIResult) HasHardConflict() bool {
	for _, c := range r.Conflicts {
		if c.IsHard() {
			return true
		}
	}
	return false
}

// TableName overrides
func (ExplicitConflict) TableName() string {
	return "explicit_conflicts"
}
