package models

// Account roles. Administrators run recruitments and pair applications;
// students and professors apply to them.
const (
	RoleStudent   = "student"
	RoleProfessor = "professor"
	RoleAdmin     = "admin"
)

// Account represents an authenticated portal user.
type Account struct {
	BaseModel

	Username    string `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	Password    string `gorm:"type:varchar(255);not null" json:"-"`
	DisplayName string `gorm:"type:varchar(128)" json:"display_name"`
	Email       string `gorm:"type:varchar(255)" json:"email"`
	Role        string `gorm:"type:varchar(32);not null;default:'student'" json:"role"`
}

// IsAdmin reports whether the account holds the administrator role.
func (a *Account) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}
