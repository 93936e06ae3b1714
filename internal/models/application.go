package models

import "time"

// Application roles.
const (
	ApplicationRoleMentor = "MENTOR"
	ApplicationRoleMentee = "MENTEE"
)

// Application statuses. REJECTED and CANCELED are terminal.
const (
	ApplicationStatusApplied  = "APPLIED"
	ApplicationStatusApproved = "APPROVED"
	ApplicationStatusRejected = "REJECTED"
	ApplicationStatusMatched  = "MATCHED"
	ApplicationStatusCanceled = "CANCELED"
)

// Application is one account's request to participate in a recruitment under
// a specific role. At most one non-CANCELED application may exist per
// (account, recruitment) pair.
type Application struct {
	BaseModel

	RecruitmentID string    `gorm:"type:uuid;not null;index:idx_applications_recruitment_account" json:"recruitment_id"`
	AccountID     string    `gorm:"type:uuid;not null;index:idx_applications_recruitment_account" json:"account_id"`
	Role          string    `gorm:"type:varchar(16);not null" json:"role"`
	Status        string    `gorm:"type:varchar(16);not null;default:'APPLIED';index" json:"status"`
	AppliedAt     time.Time `gorm:"not null" json:"applied_at"`
	ApplyReason   string    `gorm:"type:text" json:"apply_reason,omitempty"`
	RejectReason  string    `gorm:"type:text" json:"reject_reason,omitempty"`
}

// IsLive reports whether the application still counts against the
// one-live-application-per-recruitment rule.
func (a *Application) IsLive() bool {
	return a.Status != ApplicationStatusCanceled
}

// IsTerminal reports whether no further transitions are permitted.
func (a *Application) IsTerminal() bool {
	return a.Status == ApplicationStatusRejected || a.Status == ApplicationStatusCanceled
}
