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

// MatchInput identifies the two approved applications to pair. RecruitmentID
// is optional; when set, both applications must belong to it.
type MatchInput struct {
	RecruitmentID       string
	MentorApplicationID string
	MenteeApplicationID string
}

// ListMatchingsInput defines filters for querying matchings.
type ListMatchingsInput struct {
	RecruitmentID string
	Status        string
	Page          int
	Size          int
}

// MatchingOption customises MatchingService behaviour.
type MatchingOption func(*MatchingService)

// WithMatchingClock injects a custom clock primarily for testing.
func WithMatchingClock(clock func() time.Time) MatchingOption {
	return func(s *MatchingService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// MatchingService pairs approved mentor and mentee applications and manages
// the resulting matching's ACTIVE→DISSOLVED lifecycle.
type MatchingService struct {
	db     *gorm.DB
	alarms *AlarmService
	now    func() time.Time
}

// NewMatchingService constructs a MatchingService.
func NewMatchingService(db *gorm.DB, alarms *AlarmService, opts ...MatchingOption) (*MatchingService, error) {
	if db == nil {
		return nil, errors.New("matching service: db is required")
	}

	service := &MatchingService{
		db:     db,
		alarms: alarms,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Match pairs one approved mentor application with one approved mentee
// application of the same recruitment. Both applications move to MATCHED in
// the same transaction that creates the ACTIVE matching, and both parties are
// notified after commit.
func (s *MatchingService) Match(ctx context.Context, input MatchInput) (*models.Matching, error) {
	ctx = ensureContext(ctx)

	mentorID := strings.TrimSpace(input.MentorApplicationID)
	menteeID := strings.TrimSpace(input.MenteeApplicationID)
	if mentorID == "" || menteeID == "" {
		return nil, apperrors.NewValidation("both application ids are required")
	}
	if mentorID == menteeID {
		return nil, apperrors.NewValidation("cannot match an application with itself")
	}

	var matching models.Matching
	var mentor, mentee models.Application

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock both application rows in a fixed order to avoid deadlocks
		// between concurrent match attempts sharing an application.
		firstID, secondID := mentorID, menteeID
		if secondID < firstID {
			firstID, secondID = secondID, firstID
		}
		var locked []models.Application
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ?", []string{firstID, secondID}).
			Order("id ASC").
			Find(&locked).Error; err != nil {
			return fmt.Errorf("matching service: load applications: %w", err)
		}
		if len(locked) != 2 {
			return apperrors.ErrNotFound
		}
		for i := range locked {
			switch locked[i].ID {
			case mentorID:
				mentor = locked[i]
			case menteeID:
				mentee = locked[i]
			}
		}

		if mentor.Role != models.ApplicationRoleMentor {
			return apperrors.NewValidation("mentor application does not carry the MENTOR role")
		}
		if mentee.Role != models.ApplicationRoleMentee {
			return apperrors.NewValidation("mentee application does not carry the MENTEE role")
		}
		if mentor.RecruitmentID != mentee.RecruitmentID {
			return apperrors.NewValidation("applications belong to different recruitments")
		}
		if recruitmentID := strings.TrimSpace(input.RecruitmentID); recruitmentID != "" && recruitmentID != mentor.RecruitmentID {
			return apperrors.NewValidation("applications do not belong to the given recruitment")
		}
		if mentor.Status != models.ApplicationStatusApproved || mentee.Status != models.ApplicationStatusApproved {
			return apperrors.NewValidation("both applications must be approved before matching")
		}

		var active int64
		if err := tx.Model(&models.Matching{}).
			Where("status = ? AND (mentor_application_id IN ? OR mentee_application_id IN ?)",
				models.MatchingStatusActive, []string{mentorID, menteeID}, []string{mentorID, menteeID}).
			Count(&active).Error; err != nil {
			return fmt.Errorf("matching service: check active matchings: %w", err)
		}
		if active > 0 {
			return apperrors.NewConflict("an application is already part of an active matching")
		}

		matching = models.Matching{
			RecruitmentID:       mentor.RecruitmentID,
			MentorApplicationID: mentorID,
			MenteeApplicationID: menteeID,
			MatchedAt:           s.now(),
			Status:              models.MatchingStatusActive,
		}
		if err := tx.Create(&matching).Error; err != nil {
			return fmt.Errorf("matching service: create matching: %w", err)
		}

		for _, id := range []string{mentorID, menteeID} {
			ok, err := transitionApplication(tx, id, models.ApplicationStatusApproved, models.ApplicationStatusMatched, nil)
			if err != nil {
				return fmt.Errorf("matching service: mark application matched: %w", err)
			}
			if !ok {
				return apperrors.NewConflict("application state has changed, please refresh")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.WorkflowTransitions.WithLabelValues("matching", "match", "ok").Inc()

	for _, party := range []models.Application{mentor, mentee} {
		s.notify(ctx, NotifyInput{
			AccountID: party.AccountID,
			Type:      models.AlarmTypeApplicationStatus,
			Title:     "Mentoring match confirmed",
			Message:   "You have been matched. Open the mentoring chat to get started.",
			LinkURL:   "/mentoring/matchings/" + matching.ID,
			Metadata: map[string]any{
				"matching_id":    matching.ID,
				"application_id": party.ID,
			},
		})
	}

	return &matching, nil
}

// Dissolve ends an active matching and reverts both applications to APPROVED
// so they can be matched again. Dissolving an already dissolved matching is a
// no-op.
func (s *MatchingService) Dissolve(ctx context.Context, matchingID string) (*models.Matching, error) {
	ctx = ensureContext(ctx)

	var matching models.Matching
	var survivors []models.Application

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&matching, "id = ?", matchingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("matching service: load matching: %w", err)
		}

		if matching.Status == models.MatchingStatusDissolved {
			return nil
		}

		reverted, err := dissolveMatchingTx(tx, &matching, s.now(), "")
		if err != nil {
			return err
		}
		survivors = reverted
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(survivors) == 0 {
		return &matching, nil
	}

	metrics.WorkflowTransitions.WithLabelValues("matching", "dissolve", "ok").Inc()

	for _, party := range survivors {
		s.notify(ctx, NotifyInput{
			AccountID: party.AccountID,
			Type:      models.AlarmTypeApplicationStatus,
			Title:     "Match dissolved",
			Message:   "Your mentoring match was dissolved. Your application is approved again.",
			LinkURL:   "/mentoring/applications/" + party.ID,
			Metadata: map[string]any{
				"matching_id":    matching.ID,
				"application_id": party.ID,
				"status":         models.ApplicationStatusApproved,
			},
		})
	}

	return &matching, nil
}

// Get loads a single matching.
func (s *MatchingService) Get(ctx context.Context, matchingID string) (*models.Matching, error) {
	ctx = ensureContext(ctx)

	var matching models.Matching
	if err := s.db.WithContext(ctx).First(&matching, "id = ?", matchingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("matching service: load matching: %w", err)
	}
	return &matching, nil
}

// GetAuthorized loads a matching and verifies that the requesting account is
// one of the matched parties, unless it is an administrator.
func (s *MatchingService) GetAuthorized(ctx context.Context, matchingID, accountID string, isAdmin bool) (*models.Matching, error) {
	matching, err := s.Get(ctx, matchingID)
	if err != nil {
		return nil, err
	}
	if isAdmin {
		return matching, nil
	}

	var parties []models.Application
	if err := s.db.WithContext(ensureContext(ctx)).
		Where("id IN ?", []string{matching.MentorApplicationID, matching.MenteeApplicationID}).
		Find(&parties).Error; err != nil {
		return nil, fmt.Errorf("matching service: load parties: %w", err)
	}
	for i := range parties {
		if parties[i].AccountID == strings.TrimSpace(accountID) {
			return matching, nil
		}
	}
	return nil, apperrors.NewAuthorization("matching belongs to other accounts")
}

// List returns one page of matchings with optional recruitment and status filters.
func (s *MatchingService) List(ctx context.Context, input ListMatchingsInput) ([]models.Matching, int64, error) {
	ctx = ensureContext(ctx)
	page, size := normalisePage(input.Page, input.Size)

	query := s.db.WithContext(ctx).Model(&models.Matching{})
	if recruitmentID := strings.TrimSpace(input.RecruitmentID); recruitmentID != "" {
		query = query.Where("recruitment_id = ?", recruitmentID)
	}
	if status := strings.TrimSpace(input.Status); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("matching service: count matchings: %w", err)
	}

	var rows []models.Matching
	if err := query.
		Order("matched_at DESC").
		Limit(size).
		Offset((page - 1) * size).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("matching service: list matchings: %w", err)
	}

	return rows, total, nil
}

// ListForAccount returns every matching referencing one of the account's
// applications, newest first.
func (s *MatchingService) ListForAccount(ctx context.Context, accountID string) ([]models.Matching, error) {
	ctx = ensureContext(ctx)

	var rows []models.Matching
	if err := s.db.WithContext(ctx).
		Joins("JOIN applications ON applications.id IN (matchings.mentor_application_id, matchings.mentee_application_id)").
		Where("applications.account_id = ?", strings.TrimSpace(accountID)).
		Order("matchings.matched_at DESC").
		Distinct("matchings.*").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("matching service: list matchings for account: %w", err)
	}
	return rows, nil
}

func (s *MatchingService) notify(ctx context.Context, input NotifyInput) {
	if s.alarms == nil || strings.TrimSpace(input.AccountID) == "" {
		return
	}
	s.alarms.Dispatch(ctx, input)
}

// dissolveMatchingTx marks an ACTIVE matching DISSOLVED and reverts its
// MATCHED applications to APPROVED, skipping skipApplicationID so a cancel
// cascade can move that one to CANCELED instead. It returns the reverted
// applications so the caller can notify them after commit.
func dissolveMatchingTx(tx *gorm.DB, matching *models.Matching, now time.Time, skipApplicationID string) ([]models.Application, error) {
	result := tx.Model(&models.Matching{}).
		Where("id = ? AND status = ?", matching.ID, models.MatchingStatusActive).
		Updates(map[string]any{
			"status":       models.MatchingStatusDissolved,
			"dissolved_at": now,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("matching service: dissolve matching: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.NewConflict("matching is no longer active")
	}
	matching.Status = models.MatchingStatusDissolved
	matching.DissolvedAt = &now

	var survivors []models.Application
	for _, id := range []string{matching.MentorApplicationID, matching.MenteeApplicationID} {
		if id == skipApplicationID {
			continue
		}
		ok, err := transitionApplication(tx, id, models.ApplicationStatusMatched, models.ApplicationStatusApproved, nil)
		if err != nil {
			return nil, fmt.Errorf("matching service: revert application: %w", err)
		}
		if !ok {
			return nil, apperrors.NewConflict("application state has changed, please refresh")
		}

		var application models.Application
		if err := tx.First(&application, "id = ?", id).Error; err != nil {
			return nil, fmt.Errorf("matching service: reload application: %w", err)
		}
		survivors = append(survivors, application)
	}
	return survivors, nil
}
