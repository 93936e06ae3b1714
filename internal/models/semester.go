package models

// Semester identifies the academic term a recruitment belongs to.
type Semester struct {
	BaseModel

	Name string `gorm:"type:varchar(64);not null" json:"name"`
	Year int    `gorm:"not null" json:"year"`
	Term string `gorm:"type:varchar(16);not null" json:"term"`
}
