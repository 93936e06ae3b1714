package models

// Message types within a matching's chat channel.
const (
	MessageTypeQuestion = "QUESTION"
	MessageTypeAnswer   = "ANSWER"
)

// Message is one append-only entry in the question/answer log of a matching.
type Message struct {
	BaseModel

	MatchingID string `gorm:"type:uuid;not null;index" json:"matching_id"`
	SenderID   string `gorm:"type:uuid;not null;index" json:"sender_id"`
	Type       string `gorm:"type:varchar(16);not null" json:"type"`
	Content    string `gorm:"type:text;not null" json:"content"`
}
