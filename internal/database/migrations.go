package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/campushub/mentorhub/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// AutoMigrate applies the schema for all mentoring workflow models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Account{},
		&models.Semester{},
		&models.Recruitment{},
		&models.Application{},
		&models.Matching{},
		&models.Message{},
		&models.Alarm{},
	); err != nil {
		return err
	}
	return ensureLiveApplicationIndex(db)
}

// liveApplicationIndex enforces at most one non-CANCELED application per
// (recruitment, account) pair at the schema level, independent of row locks.
const liveApplicationIndex = "idx_applications_one_live"

func ensureLiveApplicationIndex(db *gorm.DB) error {
	switch db.Dialector.Name() {
	case "mysql":
		// MySQL has no partial indexes. Canceled rows get their primary key
		// as the third key part, which makes each of them unique, while live
		// rows share a constant and collide on the pair.
		if db.Migrator().HasIndex(&models.Application{}, liveApplicationIndex) {
			return nil
		}
		return db.Exec(fmt.Sprintf(
			"CREATE UNIQUE INDEX %s ON applications (recruitment_id, account_id, ((CASE WHEN status = '%s' THEN id ELSE '' END)))",
			liveApplicationIndex, models.ApplicationStatusCanceled,
		)).Error
	default:
		return db.Exec(fmt.Sprintf(
			"CREATE UNIQUE INDEX IF NOT EXISTS %s ON applications (recruitment_id, account_id) WHERE status <> '%s'",
			liveApplicationIndex, models.ApplicationStatusCanceled,
		)).Error
	}
}

// SeedData populates the default administrator account and the current semesters.
func SeedData(db *gorm.DB) error {
	hash, err := bcrypt.GenerateFromPassword([]byte("changeme"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.Account{
		BaseModel:   models.BaseModel{ID: "admin"},
		Username:    "admin",
		Password:    string(hash),
		DisplayName: "Administrator",
		Role:        models.RoleAdmin,
	}
	if err := db.Where(models.Account{BaseModel: models.BaseModel{ID: admin.ID}}).
		Attrs(admin).
		FirstOrCreate(&models.Account{}).Error; err != nil {
		return err
	}

	semesters := []models.Semester{
		{BaseModel: models.BaseModel{ID: "2025-fall"}, Name: "2025 Fall", Year: 2025, Term: "fall"},
		{BaseModel: models.BaseModel{ID: "2026-spring"}, Name: "2026 Spring", Year: 2026, Term: "spring"},
	}
	for _, semester := range semesters {
		if err := db.Where(models.Semester{BaseModel: models.BaseModel{ID: semester.ID}}).
			Attrs(semester).
			FirstOrCreate(&models.Semester{}).Error; err != nil {
			return err
		}
	}

	return nil
}
