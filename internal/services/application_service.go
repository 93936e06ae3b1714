package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campushub/mentorhub/internal/models"
	apperrors "github.com/campushub/mentorhub/pkg/errors"
	"github.com/campushub/mentorhub/pkg/metrics"
)

// ApplyInput carries the payload required to submit an application.
type ApplyInput struct {
	RecruitmentID string
	AccountID     string
	Role          string
	ApplyReason   string
}

// ListApplicationsInput defines filters for querying applications of a recruitment.
type ListApplicationsInput struct {
	RecruitmentID string
	Role          string
	Status        string
	Page          int
	Size          int
}

// ApplicationOption customises ApplicationService behaviour.
type ApplicationOption func(*ApplicationService)

// WithApplicationClock injects a custom clock primarily for testing.
func WithApplicationClock(clock func() time.Time) ApplicationOption {
	return func(s *ApplicationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// ApplicationService owns applications and drives their state machine:
//
//	APPLIED --approve--> APPROVED --match--> MATCHED --cancel/dissolve--> APPROVED
//	APPLIED --reject(reason)--> REJECTED
//	APPLIED|APPROVED|MATCHED --cancel--> CANCELED
//
// REJECTED and CANCELED are terminal. Every transition commits first and
// emits its alarm after, so alarms are never observed for transitions that
// did not happen.
type ApplicationService struct {
	db     *gorm.DB
	alarms *AlarmService
	now    func() time.Time
}

// NewApplicationService constructs an ApplicationService.
func NewApplicationService(db *gorm.DB, alarms *AlarmService, opts ...ApplicationOption) (*ApplicationService, error) {
	if db == nil {
		return nil, errors.New("application service: db is required")
	}

	service := &ApplicationService{
		db:     db,
		alarms: alarms,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Apply submits an application for the account against an open recruitment.
// An account holds at most one non-CANCELED application per recruitment,
// regardless of role.
func (s *ApplicationService) Apply(ctx context.Context, input ApplyInput) (*models.Application, error) {
	ctx = ensureContext(ctx)

	role := strings.TrimSpace(input.Role)
	if role != models.ApplicationRoleMentor && role != models.ApplicationRoleMentee {
		return nil, apperrors.NewValidation("role must be MENTOR or MENTEE")
	}
	accountID := strings.TrimSpace(input.AccountID)
	if accountID == "" {
		return nil, apperrors.NewValidation("account id is required")
	}

	now := s.now()
	var application models.Application
	var recruitment models.Recruitment

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the recruitment row to serialise concurrent applies for it.
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&recruitment, "id = ?", strings.TrimSpace(input.RecruitmentID)).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("application service: load recruitment: %w", err)
		}

		if recruitment.Status != models.RecruitmentStatusOpen {
			return apperrors.NewState("recruitment is not open for applications")
		}
		if !recruitment.WindowContains(now) {
			return apperrors.NewState("outside the recruiting window")
		}

		var live int64
		if err := tx.Model(&models.Application{}).
			Where("recruitment_id = ? AND account_id = ? AND status <> ?",
				recruitment.ID, accountID, models.ApplicationStatusCanceled).
			Count(&live).Error; err != nil {
			return fmt.Errorf("application service: check existing application: %w", err)
		}
		if live > 0 {
			return apperrors.NewConflict("account already holds a live application for this recruitment")
		}

		application = models.Application{
			RecruitmentID: recruitment.ID,
			AccountID:     accountID,
			Role:          role,
			Status:        models.ApplicationStatusApplied,
			AppliedAt:     now,
			ApplyReason:   strings.TrimSpace(input.ApplyReason),
		}
		if err := tx.Create(&application).Error; err != nil {
			if isUniqueConstraintError(err) {
				return apperrors.NewConflict("account already holds a live application for this recruitment")
			}
			return fmt.Errorf("application service: create application: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.WorkflowTransitions.WithLabelValues("application", "apply", "ok").Inc()

	s.emitAlarm(ctx, NotifyInput{
		AccountID: recruitment.CreatedBy,
		Type:      models.AlarmTypeNewApplication,
		Title:     "New mentoring application",
		Message:   fmt.Sprintf("A new %s application was submitted for %q.", strings.ToLower(role), recruitment.Title),
		LinkURL:   "/mentoring/recruitments/" + recruitment.ID + "/applications",
		Metadata: map[string]any{
			"recruitment_id": recruitment.ID,
			"application_id": application.ID,
			"role":           role,
		},
	})

	return &application, nil
}

// Approve transitions an application from APPLIED to APPROVED and notifies
// the applicant.
func (s *ApplicationService) Approve(ctx context.Context, applicationID string) (*models.Application, error) {
	ctx = ensureContext(ctx)

	application, err := s.transitionFromApplied(ctx, applicationID, models.ApplicationStatusApproved, nil)
	if err != nil {
		return nil, err
	}

	metrics.WorkflowTransitions.WithLabelValues("application", "approve", "ok").Inc()

	s.emitAlarm(ctx, NotifyInput{
		AccountID: application.AccountID,
		Type:      models.AlarmTypeApplicationStatus,
		Title:     "Application approved",
		Message:   "Your mentoring application has been approved.",
		LinkURL:   "/mentoring/applications/" + application.ID,
		Metadata: map[string]any{
			"application_id": application.ID,
			"status":         application.Status,
		},
	})

	return application, nil
}

// Reject transitions an application from APPLIED to REJECTED with a mandatory
// reason and notifies the applicant.
func (s *ApplicationService) Reject(ctx context.Context, applicationID, reason string) (*models.Application, error) {
	ctx = ensureContext(ctx)

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewValidation("reject reason is required")
	}

	application, err := s.transitionFromApplied(ctx, applicationID, models.ApplicationStatusRejected,
		map[string]any{"reject_reason": reason})
	if err != nil {
		return nil, err
	}
	application.RejectReason = reason

	metrics.WorkflowTransitions.WithLabelValues("application", "reject", "ok").Inc()

	s.emitAlarm(ctx, NotifyInput{
		AccountID: application.AccountID,
		Type:      models.AlarmTypeApplicationStatus,
		Title:     "Application rejected",
		Message:   "Your mentoring application was rejected: " + reason,
		LinkURL:   "/mentoring/applications/" + application.ID,
		Metadata: map[string]any{
			"application_id": application.ID,
			"status":         application.Status,
			"reject_reason":  reason,
		},
	})

	return application, nil
}

// Cancel withdraws an application. Only the owning account may cancel, and
// only from APPLIED, APPROVED or MATCHED. Cancelling a matched application
// dissolves the matching in the same transaction: the partner application
// reverts to APPROVED and is notified that the match fell apart.
func (s *ApplicationService) Cancel(ctx context.Context, applicationID, byAccountID string) (*models.Application, error) {
	ctx = ensureContext(ctx)

	var application models.Application
	var partner *models.Application
	var dissolved *models.Matching

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&application, "id = ?", applicationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("application service: load application: %w", err)
		}

		if application.AccountID != strings.TrimSpace(byAccountID) {
			return apperrors.NewAuthorization("application belongs to another account")
		}

		switch application.Status {
		case models.ApplicationStatusApplied, models.ApplicationStatusApproved:
			ok, err := transitionApplication(tx, application.ID, application.Status, models.ApplicationStatusCanceled, nil)
			if err != nil {
				return fmt.Errorf("application service: cancel: %w", err)
			}
			if !ok {
				return apperrors.NewConflict("application state has changed, please refresh")
			}

		case models.ApplicationStatusMatched:
			var matching models.Matching
			if err := tx.
				Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("status = ? AND (mentor_application_id = ? OR mentee_application_id = ?)",
					models.MatchingStatusActive, application.ID, application.ID).
				First(&matching).Error; err != nil {
				return fmt.Errorf("application service: load active matching: %w", err)
			}

			survivors, err := dissolveMatchingTx(tx, &matching, s.now(), application.ID)
			if err != nil {
				return err
			}

			ok, err := transitionApplication(tx, application.ID, models.ApplicationStatusMatched, models.ApplicationStatusCanceled, nil)
			if err != nil {
				return fmt.Errorf("application service: cancel matched application: %w", err)
			}
			if !ok {
				return apperrors.NewConflict("application state has changed, please refresh")
			}

			if len(survivors) > 0 {
				partner = &survivors[0]
			}
			dissolved = &matching

		default:
			return apperrors.NewConflict("application is already finalised")
		}

		application.Status = models.ApplicationStatusCanceled
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.WorkflowTransitions.WithLabelValues("application", "cancel", "ok").Inc()

	if partner != nil && dissolved != nil {
		s.emitAlarm(ctx, NotifyInput{
			AccountID: partner.AccountID,
			Type:      models.AlarmTypeApplicationStatus,
			Title:     "Match dissolved",
			Message:   "Your mentoring match was dissolved because the other party withdrew. Your application is approved again.",
			LinkURL:   "/mentoring/applications/" + partner.ID,
			Metadata: map[string]any{
				"application_id": partner.ID,
				"matching_id":    dissolved.ID,
				"status":         models.ApplicationStatusApproved,
			},
		})
	}

	return &application, nil
}

// Get loads a single application.
func (s *ApplicationService) Get(ctx context.Context, applicationID string) (*models.Application, error) {
	ctx = ensureContext(ctx)

	var application models.Application
	if err := s.db.WithContext(ctx).First(&application, "id = ?", applicationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("application service: load application: %w", err)
	}
	return &application, nil
}

// ListByRecruitment returns one page of a recruitment's applications with
// optional role and status filters.
func (s *ApplicationService) ListByRecruitment(ctx context.Context, input ListApplicationsInput) ([]models.Application, int64, error) {
	ctx = ensureContext(ctx)
	page, size := normalisePage(input.Page, input.Size)

	query := s.db.WithContext(ctx).
		Model(&models.Application{}).
		Where("recruitment_id = ?", strings.TrimSpace(input.RecruitmentID))
	if role := strings.TrimSpace(input.Role); role != "" {
		query = query.Where("role = ?", role)
	}
	if status := strings.TrimSpace(input.Status); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("application service: count applications: %w", err)
	}

	var rows []models.Application
	if err := query.
		Order("applied_at ASC").
		Limit(size).
		Offset((page - 1) * size).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("application service: list applications: %w", err)
	}

	return rows, total, nil
}

// ListByAccount returns every application the account has submitted, newest first.
func (s *ApplicationService) ListByAccount(ctx context.Context, accountID string) ([]models.Application, error) {
	ctx = ensureContext(ctx)

	var rows []models.Application
	if err := s.db.WithContext(ctx).
		Where("account_id = ?", strings.TrimSpace(accountID)).
		Order("applied_at DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("application service: list applications: %w", err)
	}
	return rows, nil
}

// transitionFromApplied commits an APPLIED→target transition under a
// status-guarded update: of two racing calls exactly one succeeds, the other
// observes a conflict.
func (s *ApplicationService) transitionFromApplied(ctx context.Context, applicationID, target string, extra map[string]any) (*models.Application, error) {
	var application models.Application

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&application, "id = ?", applicationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("application service: load application: %w", err)
		}

		ok, err := transitionApplication(tx, application.ID, models.ApplicationStatusApplied, target, extra)
		if err != nil {
			return fmt.Errorf("application service: update status: %w", err)
		}
		if !ok {
			return apperrors.NewConflict("application cannot leave its current status")
		}

		application.Status = target
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &application, nil
}

// transitionApplication performs the guarded status update shared by every
// application transition.
func transitionApplication(tx *gorm.DB, applicationID, from, to string, extra map[string]any) (bool, error) {
	updates := map[string]any{"status": to}
	for key, value := range extra {
		updates[key] = value
	}

	result := tx.Model(&models.Application{}).
		Where("id = ? AND status = ?", applicationID, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// emitAlarm hands a workflow alarm to the dispatcher after the owning
// transaction committed. The dispatcher owns retries for failed writes; the
// business transition is the source of truth and is never unwound.
func (s *ApplicationService) emitAlarm(ctx context.Context, input NotifyInput) {
	if s.alarms == nil || strings.TrimSpace(input.AccountID) == "" {
		return
	}
	s.alarms.Dispatch(ctx, input)
}
