package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/campushub/mentorhub/internal/database/testutil"
	"github.com/campushub/mentorhub/internal/models"
	apperrors "github.com/campushub/mentorhub/pkg/errors"
)

type workflowFixture struct {
	db           *gorm.DB
	alarms       *AlarmService
	recruitments *RecruitmentService
	applications *ApplicationService
	matchings    *MatchingService
	chat         *ChatService
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	alarms, err := NewAlarmService(db, nil)
	require.NoError(t, err)
	recruitments, err := NewRecruitmentService(db)
	require.NoError(t, err)
	applications, err := NewApplicationService(db, alarms)
	require.NoError(t, err)
	matchings, err := NewMatchingService(db, alarms)
	require.NoError(t, err)
	chat, err := NewChatService(db, alarms)
	require.NoError(t, err)

	return &workflowFixture{
		db:           db,
		alarms:       alarms,
		recruitments: recruitments,
		applications: applications,
		matchings:    matchings,
		chat:         chat,
	}
}

// seedOpenRecruitment creates a recruitment, opens it and returns it with a
// window spanning the present.
func (f *workflowFixture) seedOpenRecruitment(t *testing.T, creator string) *models.Recruitment {
	t.Helper()
	ctx := context.Background()

	recruitment, err := f.recruitments.Create(ctx, CreateRecruitmentInput{
		Title:          "Mentoring " + uuid.NewString()[:8],
		RecruitStartAt: time.Now().Add(-time.Hour),
		RecruitEndAt:   time.Now().Add(24 * time.Hour),
		CreatedBy:      creator,
	})
	require.NoError(t, err)

	opened, err := f.recruitments.Open(ctx, recruitment.ID)
	require.NoError(t, err)
	return opened
}

func (f *workflowFixture) mustApply(t *testing.T, recruitmentID, accountID, role string) *models.Application {
	t.Helper()
	application, err := f.applications.Apply(context.Background(), ApplyInput{
		RecruitmentID: recruitmentID,
		AccountID:     accountID,
		Role:          role,
	})
	require.NoError(t, err)
	return application
}

func (f *workflowFixture) unreadAlarms(t *testing.T, accountID string) []AlarmDTO {
	t.Helper()
	rows, _, err := f.alarms.List(context.Background(), ListAlarmsInput{AccountID: accountID})
	require.NoError(t, err)
	unread := make([]AlarmDTO, 0, len(rows))
	for _, row := range rows {
		if !row.IsRead {
			unread = append(unread, row)
		}
	}
	return unread
}

func TestApplyCreatesAppliedApplicationAndNotifiesCreator(t *testing.T) {
	f := newWorkflowFixture(t)
	creator := uuid.NewString()
	recruitment := f.seedOpenRecruitment(t, creator)
	student := uuid.NewString()

	application, err := f.applications.Apply(context.Background(), ApplyInput{
		RecruitmentID: recruitment.ID,
		AccountID:     student,
		Role:          models.ApplicationRoleMentee,
		ApplyReason:   "  keen to learn  ",
	})
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusApplied, application.Status)
	require.Equal(t, "keen to learn", application.ApplyReason)
	require.False(t, application.AppliedAt.IsZero())

	alarms := f.unreadAlarms(t, creator)
	require.Len(t, alarms, 1)
	require.Equal(t, models.AlarmTypeNewApplication, alarms[0].Type)
	require.Equal(t, recruitment.ID, alarms[0].Metadata["recruitment_id"])
}

func TestApplyRejectsInvalidRole(t *testing.T) {
	f := newWorkflowFixture(t)
	recruitment := f.seedOpenRecruitment(t, uuid.NewString())

	_, err := f.applications.Apply(context.Background(), ApplyInput{
		RecruitmentID: recruitment.ID,
		AccountID:     uuid.NewString(),
		Role:          "OBSERVER",
	})
	require.True(t, apperrors.IsValidation(err))
}

func TestApplyRequiresOpenRecruitment(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	draft, err := f.recruitments.Create(ctx, CreateRecruitmentInput{
		Title:          "Not yet open",
		RecruitStartAt: time.Now().Add(-time.Hour),
		RecruitEndAt:   time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = f.applications.Apply(ctx, ApplyInput{
		RecruitmentID: draft.ID,
		AccountID:     uuid.NewString(),
		Role:          models.ApplicationRoleMentor,
	})
	require.True(t, apperrors.IsState(err))
}

func TestApplyOutsideWindowWhileOpen(t *testing.T) {
	f := newWorkflowFixture(t)
	recruitment := f.seedOpenRecruitment(t, uuid.NewString())

	// Same OPEN recruitment, but the clock has moved past the window.
	late, err := NewApplicationService(f.db, f.alarms, WithApplicationClock(func() time.Time {
		return recruitment.RecruitEndAt.Add(time.Minute)
	}))
	require.NoError(t, err)

	_, err = late.Apply(context.Background(), ApplyInput{
		RecruitmentID: recruitment.ID,
		AccountID:     uuid.NewString(),
		Role:          models.ApplicationRoleMentee,
	})
	require.True(t, apperrors.IsState(err))
}

func TestApplyWindowBoundsAreInclusive(t *testing.T) {
	f := newWorkflowFixture(t)
	recruitment := f.seedOpenRecruitment(t, uuid.NewString())

	atEnd, err := NewApplicationService(f.db, f.alarms, WithApplicationClock(func() time.Time {
		return recruitment.RecruitEndAt
	}))
	require.NoError(t, err)

	_, err = atEnd.Apply(context.Background(), ApplyInput{
		RecruitmentID: recruitment.ID,
		AccountID:     uuid.NewString(),
		Role:          models.ApplicationRoleMentee,
	})
	require.NoError(t, err)
}

func TestApplyDuplicateLiveApplicationConflicts(t *testing.T) {
	f := newWorkflowFixture(t)
	recruitment := f.seedOpenRecruitment(t, uuid.NewString())
	student := uuid.NewString()

	f.mustApply(t, recruitment.ID, student, models.ApplicationRoleMentee)

	_, err := f.applications.Apply(context.Background(), ApplyInput{
		RecruitmentID: recruitment.ID,
		AccountID:     student,
		Role:          models.ApplicationRoleMentor,
	})
	require.True(t, apperrors.IsConflict(err))
}

func TestDuplicateLiveApplicationBlockedBySchema(t *testing.T) {
	f := newWorkflowFixture(t)
	recruitment := f.seedOpenRecruitment(t, uuid.NewString())
	student := uuid.NewString()
	ctx := context.Background()

	first := f.mustApply(t, recruitment.ID, student, models.ApplicationRoleMentee)

	// A write that sidesteps the service-level pre-check still cannot create
	// a second live application for the same pair.
	duplicate := models.Application{
		RecruitmentID: recruitment.ID,
		AccountID:     student,
		Role:          models.ApplicationRoleMentor,
		Status:        models.ApplicationStatusApplied,
		AppliedAt:     time.Now().UTC(),
	}
	err := f.db.Create(&duplicate).Error
	require.Error(t, err)
	require.True(t, isUniqueConstraintError(err))

	// Canceled rows stay out of the index, so re-applying works.
	_, err = f.applications.Cancel(ctx, first.ID, student)
	require.NoError(t, err)
	second := f.mustApply(t, recruitment.ID, student, models.ApplicationRoleMentee)
	require.NotEqual(t, first.ID, second.ID)
}

func TestApplyAgainAfterCancel(t *testing.T) {
	f := newWorkflowFixture(t)
	recruitment := f.seedOpenRecruitment(t, uuid.NewString())
	student := uuid.NewString()
	ctx := context.Background()

	first := f.mustApply(t, recruitment.ID, student, models.ApplicationRoleMentee)
	_, err := f.applications.Cancel(ctx, first.ID, student)
	require.NoError(t, err)

	second := f.mustApply(t, recruitment.ID, student, models.ApplicationRoleMentee)
	require.NotEqual(t, first.ID, second.ID)
	require.Equal(t, models.ApplicationStatusApplied, second.Status)
}

func TestApproveNotifiesApplicant(t *testing.T) {
	f := newWorkflowFixture(t)
	recruitment := f.seedOpenRecruitment(t, uuid.NewString())
	student := uuid.NewString()
	application := f.mustApply(t, recruitment.ID, student, models.ApplicationRoleMentee)

	approved, err := f.applications.Approve(context.Background(), application.ID)
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusApproved, approved.Status)

	alarms := f.unreadAlarms(t, student)
	require.Len(t, alarms, 1)
	require.Equal(t, models.AlarmTypeApplicationStatus, alarms[0].Type)
}

func TestApproveSurvivesAlarmOutageAndRetriesDelivery(t *testing.T) {
	f := newWorkflowFixture(t)
	recruitment := f.seedOpenRecruitment(t, uuid.NewString())
	student := uuid.NewString()
	application := f.mustApply(t, recruitment.ID, student, models.ApplicationRoleMentee)
	ctx := context.Background()

	require.NoError(t, f.db.Migrator().DropTable(&models.Alarm{}))
	t.Cleanup(func() {
		_ = f.db.Migrator().CreateTable(&models.Alarm{})
	})

	// The transition commits even though its alarm cannot be written.
	approved, err := f.applications.Approve(ctx, application.ID)
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusApproved, approved.Status)
	require.Equal(t, 1, f.alarms.PendingRetries())

	// Once storage is back, the dispatcher sweep delivers the queued alarm.
	require.NoError(t, f.db.Migrator().CreateTable(&models.Alarm{}))
	require.Equal(t, 1, f.alarms.RetryPending(ctx))

	alarms := f.unreadAlarms(t, student)
	require.Len(t, alarms, 1)
	require.Equal(t, models.AlarmTypeApplicationStatus, alarms[0].Type)
}

func TestRejectRequiresReason(t *testing.T) {
	f := newWorkflowFixture(t)
	recruitment := f.seedOpenRecruitment(t, uuid.NewString())
	application := f.mustApply(t, recruitment.ID, uuid.NewString(), models.ApplicationRoleMentee)

	_, err := f.applications.Reject(context.Background(), application.ID, "   ")
	require.True(t, apperrors.IsValidation(err))
}

func TestRejectStoresReasonAndIsTerminal(t *testing.T) {
	f := newWorkflowFixture(t)
	recruitment := f.seedOpenRecruitment(t, uuid.NewString())
	application := f.mustApply(t, recruitment.ID, uuid.NewString(), models.ApplicationRoleMentee)
	ctx := context.Background()

	rejected, err := f.applications.Reject(ctx, application.ID, "incomplete transcript")
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusRejected, rejected.Status)
	require.Equal(t, "incomplete transcript", rejected.RejectReason)

	// Exactly one of approve/reject can win; the loser observes a conflict.
	_, err = f.applications.Approve(ctx, application.ID)
	require.True(t, apperrors.IsConflict(err))
}

func TestCancelByNonOwnerIsForbidden(t *testing.T) {
	f := newWorkflowFixture(t)
	recruitment := f.seedOpenRecruitment(t, uuid.NewString())
	application := f.mustApply(t, recruitment.ID, uuid.NewString(), models.ApplicationRoleMentee)

	_, err := f.applications.Cancel(context.Background(), application.ID, uuid.NewString())
	require.True(t, apperrors.IsAuthorization(err))
}

func TestCancelTwiceConflicts(t *testing.T) {
	f := newWorkflowFixture(t)
	recruitment := f.seedOpenRecruitment(t, uuid.NewString())
	student := uuid.NewString()
	application := f.mustApply(t, recruitment.ID, student, models.ApplicationRoleMentee)
	ctx := context.Background()

	_, err := f.applications.Cancel(ctx, application.ID, student)
	require.NoError(t, err)

	_, err = f.applications.Cancel(ctx, application.ID, student)
	require.True(t, apperrors.IsConflict(err))
}

func TestCancelMatchedApplicationDissolvesMatching(t *testing.T) {
	f := newWorkflowFixture(t)
	recruitment := f.seedOpenRecruitment(t, uuid.NewString())
	mentorAccount := uuid.NewString()
	menteeAccount := uuid.NewString()
	ctx := context.Background()

	mentor := f.mustApply(t, recruitment.ID, mentorAccount, models.ApplicationRoleMentor)
	mentee := f.mustApply(t, recruitment.ID, menteeAccount, models.ApplicationRoleMentee)
	_, err := f.applications.Approve(ctx, mentor.ID)
	require.NoError(t, err)
	_, err = f.applications.Approve(ctx, mentee.ID)
	require.NoError(t, err)

	matching, err := f.matchings.Match(ctx, MatchInput{
		MentorApplicationID: mentor.ID,
		MenteeApplicationID: mentee.ID,
	})
	require.NoError(t, err)

	canceled, err := f.applications.Cancel(ctx, mentee.ID, menteeAccount)
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusCanceled, canceled.Status)

	reloaded, err := f.matchings.Get(ctx, matching.ID)
	require.NoError(t, err)
	require.Equal(t, models.MatchingStatusDissolved, reloaded.Status)
	require.NotNil(t, reloaded.DissolvedAt)

	survivor, err := f.applications.Get(ctx, mentor.ID)
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusApproved, survivor.Status)

	// The surviving mentor learns about the dissolution.
	var found bool
	for _, alarm := range f.unreadAlarms(t, mentorAccount) {
		if alarm.Metadata["matching_id"] == matching.ID {
			found = true
		}
	}
	require.True(t, found)
}

func TestListByRecruitmentFilters(t *testing.T) {
	f := newWorkflowFixture(t)
	recruitment := f.seedOpenRecruitment(t, uuid.NewString())
	ctx := context.Background()

	mentor := f.mustApply(t, recruitment.ID, uuid.NewString(), models.ApplicationRoleMentor)
	f.mustApply(t, recruitment.ID, uuid.NewString(), models.ApplicationRoleMentee)

	rows, total, err := f.applications.ListByRecruitment(ctx, ListApplicationsInput{
		RecruitmentID: recruitment.ID,
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, rows, 2)

	rows, total, err = f.applications.ListByRecruitment(ctx, ListApplicationsInput{
		RecruitmentID: recruitment.ID,
		Role:          models.ApplicationRoleMentor,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, mentor.ID, rows[0].ID)

	_, total, err = f.applications.ListByRecruitment(ctx, ListApplicationsInput{
		RecruitmentID: recruitment.ID,
		Status:        models.ApplicationStatusRejected,
	})
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestListByAccount(t *testing.T) {
	f := newWorkflowFixture(t)
	student := uuid.NewString()
	ctx := context.Background()

	first := f.seedOpenRecruitment(t, uuid.NewString())
	second := f.seedOpenRecruitment(t, uuid.NewString())
	f.mustApply(t, first.ID, student, models.ApplicationRoleMentee)
	f.mustApply(t, second.ID, student, models.ApplicationRoleMentee)

	rows, err := f.applications.ListByAccount(ctx, student)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		require.Equal(t, student, row.AccountID)
	}
}
