package models

import "time"

// Recruitment lifecycle statuses. CLOSED is terminal.
const (
	RecruitmentStatusDraft  = "DRAFT"
	RecruitmentStatusOpen   = "OPEN"
	RecruitmentStatusClosed = "CLOSED"
)

// Recruitment is a time-boxed announcement under which mentor and mentee
// applications are collected.
type Recruitment struct {
	BaseModel

	SemesterID     string    `gorm:"type:uuid;index" json:"semester_id"`
	Title          string    `gorm:"type:varchar(255);not null" json:"title"`
	Description    string    `gorm:"type:text" json:"description"`
	RecruitStartAt time.Time `gorm:"not null" json:"recruit_start_at"`
	RecruitEndAt   time.Time `gorm:"not null" json:"recruit_end_at"`
	Status         string    `gorm:"type:varchar(16);not null;default:'DRAFT';index" json:"status"`
	CreatedBy      string    `gorm:"type:uuid;index" json:"created_by"`
}

// WindowContains reports whether the instant falls inside the recruiting window.
func (r *Recruitment) WindowContains(at time.Time) bool {
	return !at.Before(r.RecruitStartAt) && !at.After(r.RecruitEndAt)
}
