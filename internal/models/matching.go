package models

import "time"

// Matching statuses.
const (
	MatchingStatusActive    = "ACTIVE"
	MatchingStatusDissolved = "DISSOLVED"
)

// Matching is a committed pairing of one approved mentor application with one
// approved mentee application of the same recruitment. An application is
// referenced by at most one ACTIVE matching.
type Matching struct {
	BaseModel

	RecruitmentID        string     `gorm:"type:uuid;not null;index" json:"recruitment_id"`
	MentorApplicationID  string     `gorm:"type:uuid;not null;index" json:"mentor_application_id"`
	MenteeApplicationID  string     `gorm:"type:uuid;not null;index" json:"mentee_application_id"`
	MatchedAt            time.Time  `gorm:"not null" json:"matched_at"`
	Status               string     `gorm:"type:varchar(16);not null;default:'ACTIVE';index" json:"status"`
	DissolvedAt          *time.Time `json:"dissolved_at,omitempty"`
}

// References reports whether the matching points at the supplied application.
func (m *Matching) References(applicationID string) bool {
	return m.MentorApplicationID == applicationID || m.MenteeApplicationID == applicationID
}
