package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/campushub/mentorhub/internal/models"
	apperrors "github.com/campushub/mentorhub/pkg/errors"
)

func (f *workflowFixture) seedActiveMatching(t *testing.T) (*models.Matching, *models.Application, *models.Application) {
	t.Helper()
	mentor, mentee := f.seedApprovedPair(t)
	matching := f.mustMatch(t, mentor.ID, mentee.ID)
	return matching, mentor, mentee
}

func TestPostMessageAppendsAndNotifiesCounterpart(t *testing.T) {
	f := newWorkflowFixture(t)
	matching, mentor, mentee := f.seedActiveMatching(t)
	ctx := context.Background()

	message, err := f.chat.PostMessage(ctx, PostMessageInput{
		MatchingID: matching.ID,
		SenderID:   mentee.AccountID,
		Type:       models.MessageTypeQuestion,
		Content:    "  How do I pick a thesis topic?  ",
	})
	require.NoError(t, err)
	require.Equal(t, models.MessageTypeQuestion, message.Type)
	require.Equal(t, "How do I pick a thesis topic?", message.Content)

	var found bool
	for _, alarm := range f.unreadAlarms(t, mentor.AccountID) {
		if alarm.Type == models.AlarmTypeChatMessage {
			found = true
		}
	}
	require.True(t, found)
}

func TestPostAnswerNotifiesWithAnsweredType(t *testing.T) {
	f := newWorkflowFixture(t)
	matching, mentor, mentee := f.seedActiveMatching(t)
	ctx := context.Background()

	_, err := f.chat.PostMessage(ctx, PostMessageInput{
		MatchingID: matching.ID,
		SenderID:   mentor.AccountID,
		Type:       models.MessageTypeAnswer,
		Content:    "Start from the lab's recent papers.",
	})
	require.NoError(t, err)

	var found bool
	for _, alarm := range f.unreadAlarms(t, mentee.AccountID) {
		if alarm.Type == models.AlarmTypeQuestionAnswered {
			found = true
		}
	}
	require.True(t, found)
}

func TestPostMessageValidation(t *testing.T) {
	f := newWorkflowFixture(t)
	matching, _, mentee := f.seedActiveMatching(t)
	ctx := context.Background()

	_, err := f.chat.PostMessage(ctx, PostMessageInput{
		MatchingID: matching.ID,
		SenderID:   mentee.AccountID,
		Type:       "COMMENT",
		Content:    "hello",
	})
	require.True(t, apperrors.IsValidation(err))

	_, err = f.chat.PostMessage(ctx, PostMessageInput{
		MatchingID: matching.ID,
		SenderID:   mentee.AccountID,
		Type:       models.MessageTypeQuestion,
		Content:    "   ",
	})
	require.True(t, apperrors.IsValidation(err))

	_, err = f.chat.PostMessage(ctx, PostMessageInput{
		MatchingID: matching.ID,
		SenderID:   mentee.AccountID,
		Type:       models.MessageTypeQuestion,
		Content:    strings.Repeat("a", maxMessageLength+1),
	})
	require.True(t, apperrors.IsValidation(err))
}

func TestPostMessageStoresContentVerbatim(t *testing.T) {
	f := newWorkflowFixture(t)
	matching, mentor, mentee := f.seedActiveMatching(t)
	ctx := context.Background()

	// Markup and operators survive the round trip unmodified; rendering
	// surfaces escape on output instead of mangling what was written.
	content := `does "x < y && y > 0" hold here? see <https://example.edu/notes>`
	message, err := f.chat.PostMessage(ctx, PostMessageInput{
		MatchingID: matching.ID,
		SenderID:   mentee.AccountID,
		Type:       models.MessageTypeQuestion,
		Content:    content,
	})
	require.NoError(t, err)
	require.Equal(t, content, message.Content)

	rows, _, err := f.chat.History(ctx, HistoryInput{
		MatchingID: matching.ID,
		AccountID:  mentor.AccountID,
	})
	require.NoError(t, err)
	require.Equal(t, content, rows[len(rows)-1].Content)
}

func TestPostMessageByOutsiderIsForbidden(t *testing.T) {
	f := newWorkflowFixture(t)
	matching, _, _ := f.seedActiveMatching(t)

	_, err := f.chat.PostMessage(context.Background(), PostMessageInput{
		MatchingID: matching.ID,
		SenderID:   uuid.NewString(),
		Type:       models.MessageTypeQuestion,
		Content:    "let me in",
	})
	require.True(t, apperrors.IsAuthorization(err))
}

func TestPostMessageOnDissolvedMatching(t *testing.T) {
	f := newWorkflowFixture(t)
	matching, _, mentee := f.seedActiveMatching(t)
	ctx := context.Background()

	_, err := f.matchings.Dissolve(ctx, matching.ID)
	require.NoError(t, err)

	_, err = f.chat.PostMessage(ctx, PostMessageInput{
		MatchingID: matching.ID,
		SenderID:   mentee.AccountID,
		Type:       models.MessageTypeQuestion,
		Content:    "anyone there?",
	})
	require.True(t, apperrors.IsState(err))
}

func TestHistoryOrderAndAccess(t *testing.T) {
	f := newWorkflowFixture(t)
	matching, mentor, mentee := f.seedActiveMatching(t)
	ctx := context.Background()

	for _, content := range []string{"first question", "second question"} {
		_, err := f.chat.PostMessage(ctx, PostMessageInput{
			MatchingID: matching.ID,
			SenderID:   mentee.AccountID,
			Type:       models.MessageTypeQuestion,
			Content:    content,
		})
		require.NoError(t, err)
	}
	_, err := f.chat.PostMessage(ctx, PostMessageInput{
		MatchingID: matching.ID,
		SenderID:   mentor.AccountID,
		Type:       models.MessageTypeAnswer,
		Content:    "one answer",
	})
	require.NoError(t, err)

	rows, total, err := f.chat.History(ctx, HistoryInput{
		MatchingID: matching.ID,
		AccountID:  mentor.AccountID,
	})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Equal(t, "first question", rows[0].Content)
	require.Equal(t, "one answer", rows[2].Content)

	// Outsiders are rejected, admins are not.
	_, _, err = f.chat.History(ctx, HistoryInput{
		MatchingID: matching.ID,
		AccountID:  uuid.NewString(),
	})
	require.True(t, apperrors.IsAuthorization(err))

	_, adminTotal, err := f.chat.History(ctx, HistoryInput{
		MatchingID: matching.ID,
		IsAdmin:    true,
	})
	require.NoError(t, err)
	require.Equal(t, int64(3), adminTotal)
}

func TestHistoryReadableAfterDissolve(t *testing.T) {
	f := newWorkflowFixture(t)
	matching, _, mentee := f.seedActiveMatching(t)
	ctx := context.Background()

	_, err := f.chat.PostMessage(ctx, PostMessageInput{
		MatchingID: matching.ID,
		SenderID:   mentee.AccountID,
		Type:       models.MessageTypeQuestion,
		Content:    "kept for the record",
	})
	require.NoError(t, err)

	_, err = f.matchings.Dissolve(ctx, matching.ID)
	require.NoError(t, err)

	rows, total, err := f.chat.History(ctx, HistoryInput{
		MatchingID: matching.ID,
		AccountID:  mentee.AccountID,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "kept for the record", rows[0].Content)
}
