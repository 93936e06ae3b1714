package models

import (
	"time"

	"gorm.io/datatypes"
)

// Alarm types emitted by the mentoring workflow.
const (
	AlarmTypeNewApplication    = "MENTORING_NEW_APPLICATION"
	AlarmTypeApplicationStatus = "MENTORING_APPLICATION_STATUS"
	AlarmTypeChatMessage       = "MENTORING_CHAT_MESSAGE"
	AlarmTypeQuestionAnswered  = "MENTORING_QUESTION_ANSWERED"
)

// Alarm is a persisted notification addressed to one account. The workflow
// only ever creates alarms; after creation they are mutated by the recipient
// alone (read flags, deletion).
type Alarm struct {
	BaseModel

	AccountID string         `gorm:"type:uuid;not null;index" json:"account_id"`
	Type      string         `gorm:"type:varchar(64);not null" json:"type"`
	Title     string         `gorm:"type:varchar(255);not null" json:"title"`
	Message   string         `gorm:"type:text" json:"message"`
	LinkURL   string         `gorm:"type:text" json:"link_url,omitempty"`
	Metadata  datatypes.JSON `json:"metadata,omitempty"`

	IsRead bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt *time.Time `json:"read_at,omitempty"`
}
