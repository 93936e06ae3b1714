package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/campushub/mentorhub/internal/models"
	apperrors "github.com/campushub/mentorhub/pkg/errors"
	"github.com/campushub/mentorhub/pkg/metrics"
)

// CreateRecruitmentInput captures new recruitment metadata.
type CreateRecruitmentInput struct {
	Title          string
	Description    string
	SemesterID     string
	RecruitStartAt time.Time
	RecruitEndAt   time.Time
	CreatedBy      string
}

// ListRecruitmentsInput defines paging for recruitment listings.
type ListRecruitmentsInput struct {
	Status string
	Page   int
	Size   int
}

// RecruitmentService owns recruitment records and their DRAFT→OPEN→CLOSED
// lifecycle. CLOSED is terminal.
type RecruitmentService struct {
	db *gorm.DB
}

// NewRecruitmentService constructs a RecruitmentService.
func NewRecruitmentService(db *gorm.DB) (*RecruitmentService, error) {
	if db == nil {
		return nil, errors.New("recruitment service: db is required")
	}
	return &RecruitmentService{db: db}, nil
}

// Create registers a new recruitment in DRAFT status.
func (s *RecruitmentService) Create(ctx context.Context, input CreateRecruitmentInput) (*models.Recruitment, error) {
	ctx = ensureContext(ctx)

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidation("title is required")
	}
	if input.RecruitStartAt.IsZero() || input.RecruitEndAt.IsZero() {
		return nil, apperrors.NewValidation("recruiting window is required")
	}
	if !input.RecruitStartAt.Before(input.RecruitEndAt) {
		return nil, apperrors.NewValidation("recruit start must be before recruit end")
	}

	recruitment := models.Recruitment{
		SemesterID:     strings.TrimSpace(input.SemesterID),
		Title:          title,
		Description:    strings.TrimSpace(input.Description),
		RecruitStartAt: input.RecruitStartAt,
		RecruitEndAt:   input.RecruitEndAt,
		Status:         models.RecruitmentStatusDraft,
		CreatedBy:      strings.TrimSpace(input.CreatedBy),
	}

	if err := s.db.WithContext(ctx).Create(&recruitment).Error; err != nil {
		return nil, fmt.Errorf("recruitment service: create recruitment: %w", err)
	}

	return &recruitment, nil
}

// Open transitions a recruitment from DRAFT to OPEN.
func (s *RecruitmentService) Open(ctx context.Context, recruitmentID string) (*models.Recruitment, error) {
	ctx = ensureContext(ctx)

	recruitment, err := s.transition(ctx, recruitmentID,
		models.RecruitmentStatusDraft, models.RecruitmentStatusOpen,
		"recruitment can only be opened from draft")
	if err != nil {
		return nil, err
	}

	metrics.WorkflowTransitions.WithLabelValues("recruitment", "open", "ok").Inc()
	return recruitment, nil
}

// Close transitions a recruitment from OPEN to CLOSED. Closing an already
// closed recruitment is a no-op; closed recruitments only block new
// applications and matches, pending applications are left untouched.
func (s *RecruitmentService) Close(ctx context.Context, recruitmentID string) (*models.Recruitment, error) {
	ctx = ensureContext(ctx)

	var recruitment models.Recruitment
	if err := s.db.WithContext(ctx).First(&recruitment, "id = ?", recruitmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("recruitment service: load recruitment: %w", err)
	}

	if recruitment.Status == models.RecruitmentStatusClosed {
		return &recruitment, nil
	}

	updated, err := s.transition(ctx, recruitmentID,
		models.RecruitmentStatusOpen, models.RecruitmentStatusClosed,
		"recruitment can only be closed while open")
	if err != nil {
		return nil, err
	}

	metrics.WorkflowTransitions.WithLabelValues("recruitment", "close", "ok").Inc()
	return updated, nil
}

// Get loads a single recruitment.
func (s *RecruitmentService) Get(ctx context.Context, recruitmentID string) (*models.Recruitment, error) {
	ctx = ensureContext(ctx)

	var recruitment models.Recruitment
	if err := s.db.WithContext(ctx).First(&recruitment, "id = ?", recruitmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("recruitment service: load recruitment: %w", err)
	}
	return &recruitment, nil
}

// List returns one page of recruitments ordered by recency plus the total count.
func (s *RecruitmentService) List(ctx context.Context, input ListRecruitmentsInput) ([]models.Recruitment, int64, error) {
	ctx = ensureContext(ctx)
	page, size := normalisePage(input.Page, input.Size)

	query := s.db.WithContext(ctx).Model(&models.Recruitment{})
	if status := strings.TrimSpace(input.Status); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("recruitment service: count recruitments: %w", err)
	}

	var rows []models.Recruitment
	if err := query.
		Order("created_at DESC").
		Limit(size).
		Offset((page - 1) * size).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("recruitment service: list recruitments: %w", err)
	}

	return rows, total, nil
}

// transition performs a status-guarded update so concurrent transitions on
// the same recruitment resolve to exactly one winner.
func (s *RecruitmentService) transition(ctx context.Context, recruitmentID, from, to, conflictMsg string) (*models.Recruitment, error) {
	var recruitment models.Recruitment

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&recruitment, "id = ?", recruitmentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("recruitment service: load recruitment: %w", err)
		}

		result := tx.Model(&models.Recruitment{}).
			Where("id = ? AND status = ?", recruitmentID, from).
			Update("status", to)
		if result.Error != nil {
			return fmt.Errorf("recruitment service: update status: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.NewConflict(conflictMsg)
		}

		recruitment.Status = to
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &recruitment, nil
}
