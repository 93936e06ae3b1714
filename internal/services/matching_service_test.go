package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/campushub/mentorhub/internal/models"
	apperrors "github.com/campushub/mentorhub/pkg/errors"
)

// seedApprovedPair provisions one approved mentor and one approved mentee
// application on a fresh open recruitment.
func (f *workflowFixture) seedApprovedPair(t *testing.T) (*models.Application, *models.Application) {
	t.Helper()
	ctx := context.Background()
	recruitment := f.seedOpenRecruitment(t, uuid.NewString())

	mentor := f.mustApply(t, recruitment.ID, uuid.NewString(), models.ApplicationRoleMentor)
	mentee := f.mustApply(t, recruitment.ID, uuid.NewString(), models.ApplicationRoleMentee)

	approvedMentor, err := f.applications.Approve(ctx, mentor.ID)
	require.NoError(t, err)
	approvedMentee, err := f.applications.Approve(ctx, mentee.ID)
	require.NoError(t, err)
	return approvedMentor, approvedMentee
}

func (f *workflowFixture) mustMatch(t *testing.T, mentorID, menteeID string) *models.Matching {
	t.Helper()
	matching, err := f.matchings.Match(context.Background(), MatchInput{
		MentorApplicationID: mentorID,
		MenteeApplicationID: menteeID,
	})
	require.NoError(t, err)
	return matching
}

func TestMatchPairsApprovedApplications(t *testing.T) {
	f := newWorkflowFixture(t)
	mentor, mentee := f.seedApprovedPair(t)
	ctx := context.Background()

	matching := f.mustMatch(t, mentor.ID, mentee.ID)
	require.Equal(t, models.MatchingStatusActive, matching.Status)
	require.Equal(t, mentor.RecruitmentID, matching.RecruitmentID)
	require.False(t, matching.MatchedAt.IsZero())

	for _, id := range []string{mentor.ID, mentee.ID} {
		application, err := f.applications.Get(ctx, id)
		require.NoError(t, err)
		require.Equal(t, models.ApplicationStatusMatched, application.Status)
	}

	// Both parties are alerted about the new match.
	for _, accountID := range []string{mentor.AccountID, mentee.AccountID} {
		alarms := f.unreadAlarms(t, accountID)
		var found bool
		for _, alarm := range alarms {
			if alarm.Metadata["matching_id"] == matching.ID {
				found = true
			}
		}
		require.True(t, found)
	}
}

func TestMatchValidatesRolesAndRecruitment(t *testing.T) {
	f := newWorkflowFixture(t)
	mentor, mentee := f.seedApprovedPair(t)
	ctx := context.Background()

	_, err := f.matchings.Match(ctx, MatchInput{
		MentorApplicationID: mentor.ID,
		MenteeApplicationID: mentor.ID,
	})
	require.True(t, apperrors.IsValidation(err))

	// Roles swapped.
	_, err = f.matchings.Match(ctx, MatchInput{
		MentorApplicationID: mentee.ID,
		MenteeApplicationID: mentor.ID,
	})
	require.True(t, apperrors.IsValidation(err))

	// Mentee from a different recruitment.
	_, otherMentee := f.seedApprovedPair(t)
	_, err = f.matchings.Match(ctx, MatchInput{
		MentorApplicationID: mentor.ID,
		MenteeApplicationID: otherMentee.ID,
	})
	require.True(t, apperrors.IsValidation(err))
}

func TestMatchRequiresApprovedStatus(t *testing.T) {
	f := newWorkflowFixture(t)
	recruitment := f.seedOpenRecruitment(t, uuid.NewString())
	ctx := context.Background()

	mentor := f.mustApply(t, recruitment.ID, uuid.NewString(), models.ApplicationRoleMentor)
	mentee := f.mustApply(t, recruitment.ID, uuid.NewString(), models.ApplicationRoleMentee)
	_, err := f.applications.Approve(ctx, mentor.ID)
	require.NoError(t, err)

	// Mentee is still APPLIED, which is a request defect, not a lifecycle one.
	_, err = f.matchings.Match(ctx, MatchInput{
		MentorApplicationID: mentor.ID,
		MenteeApplicationID: mentee.ID,
	})
	require.True(t, apperrors.IsValidation(err))
}

func TestMatchMissingApplication(t *testing.T) {
	f := newWorkflowFixture(t)
	mentor, _ := f.seedApprovedPair(t)

	_, err := f.matchings.Match(context.Background(), MatchInput{
		MentorApplicationID: mentor.ID,
		MenteeApplicationID: uuid.NewString(),
	})
	require.True(t, apperrors.IsNotFound(err))
}

func TestDissolveRevertsBothApplications(t *testing.T) {
	f := newWorkflowFixture(t)
	mentor, mentee := f.seedApprovedPair(t)
	ctx := context.Background()

	matching := f.mustMatch(t, mentor.ID, mentee.ID)

	dissolved, err := f.matchings.Dissolve(ctx, matching.ID)
	require.NoError(t, err)
	require.Equal(t, models.MatchingStatusDissolved, dissolved.Status)
	require.NotNil(t, dissolved.DissolvedAt)

	for _, id := range []string{mentor.ID, mentee.ID} {
		application, err := f.applications.Get(ctx, id)
		require.NoError(t, err)
		require.Equal(t, models.ApplicationStatusApproved, application.Status)
	}
}

func TestDissolveIsIdempotent(t *testing.T) {
	f := newWorkflowFixture(t)
	mentor, mentee := f.seedApprovedPair(t)
	ctx := context.Background()

	matching := f.mustMatch(t, mentor.ID, mentee.ID)

	_, err := f.matchings.Dissolve(ctx, matching.ID)
	require.NoError(t, err)

	again, err := f.matchings.Dissolve(ctx, matching.ID)
	require.NoError(t, err)
	require.Equal(t, models.MatchingStatusDissolved, again.Status)
}

func TestRematchAfterDissolve(t *testing.T) {
	f := newWorkflowFixture(t)
	mentor, mentee := f.seedApprovedPair(t)
	ctx := context.Background()

	first := f.mustMatch(t, mentor.ID, mentee.ID)
	_, err := f.matchings.Dissolve(ctx, first.ID)
	require.NoError(t, err)

	second := f.mustMatch(t, mentor.ID, mentee.ID)
	require.NotEqual(t, first.ID, second.ID)
	require.Equal(t, models.MatchingStatusActive, second.Status)
}

func TestMatchRejectsApplicationAlreadyInActiveMatching(t *testing.T) {
	f := newWorkflowFixture(t)
	mentor, mentee := f.seedApprovedPair(t)
	ctx := context.Background()

	f.mustMatch(t, mentor.ID, mentee.ID)

	// Second mentee of the same recruitment, approved and eligible.
	otherMentee := f.mustApply(t, mentor.RecruitmentID, uuid.NewString(), models.ApplicationRoleMentee)
	_, err := f.applications.Approve(ctx, otherMentee.ID)
	require.NoError(t, err)

	// Mentor is MATCHED, so the state check fires before matching.
	_, err = f.matchings.Match(ctx, MatchInput{
		MentorApplicationID: mentor.ID,
		MenteeApplicationID: otherMentee.ID,
	})
	require.True(t, apperrors.IsState(err))
}

func TestGetAuthorized(t *testing.T) {
	f := newWorkflowFixture(t)
	mentor, mentee := f.seedApprovedPair(t)
	ctx := context.Background()

	matching := f.mustMatch(t, mentor.ID, mentee.ID)

	_, err := f.matchings.GetAuthorized(ctx, matching.ID, mentor.AccountID, false)
	require.NoError(t, err)

	_, err = f.matchings.GetAuthorized(ctx, matching.ID, uuid.NewString(), false)
	require.True(t, apperrors.IsAuthorization(err))

	_, err = f.matchings.GetAuthorized(ctx, matching.ID, uuid.NewString(), true)
	require.NoError(t, err)
}

func TestMatchRejectsMismatchedRecruitmentID(t *testing.T) {
	f := newWorkflowFixture(t)
	mentor, mentee := f.seedApprovedPair(t)

	_, err := f.matchings.Match(context.Background(), MatchInput{
		RecruitmentID:       uuid.NewString(),
		MentorApplicationID: mentor.ID,
		MenteeApplicationID: mentee.ID,
	})
	require.True(t, apperrors.IsValidation(err))
}

func TestMatchingListAndListForAccount(t *testing.T) {
	f := newWorkflowFixture(t)
	mentor, mentee := f.seedApprovedPair(t)
	ctx := context.Background()

	matching := f.mustMatch(t, mentor.ID, mentee.ID)

	rows, total, err := f.matchings.List(ctx, ListMatchingsInput{RecruitmentID: mentor.RecruitmentID})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, matching.ID, rows[0].ID)

	mine, err := f.matchings.ListForAccount(ctx, mentor.AccountID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, matching.ID, mine[0].ID)

	none, err := f.matchings.ListForAccount(ctx, uuid.NewString())
	require.NoError(t, err)
	require.Empty(t, none)
}
