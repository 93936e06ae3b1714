package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/campushub/mentorhub/internal/models"
	apperrors "github.com/campushub/mentorhub/pkg/errors"
)

const maxMessageLength = 4000

// PostMessageInput carries one chat message to append to a matching's log.
type PostMessageInput struct {
	MatchingID string
	SenderID   string
	Type       string
	Content    string
}

// HistoryInput identifies whose view of which matching's log to return.
type HistoryInput struct {
	MatchingID string
	AccountID  string
	IsAdmin    bool
	Page       int
	Size       int
}

// ChatService runs the per-matching question/answer channel. The log is
// append-only; messages can be posted only while the matching is ACTIVE but
// stay readable to both parties after dissolution.
type ChatService struct {
	db     *gorm.DB
	alarms *AlarmService
}

// NewChatService constructs a ChatService.
func NewChatService(db *gorm.DB, alarms *AlarmService) (*ChatService, error) {
	if db == nil {
		return nil, errors.New("chat service: db is required")
	}
	return &ChatService{db: db, alarms: alarms}, nil
}

// PostMessage appends a message to the matching's log. Only the two matched
// parties may post, and only while the matching is ACTIVE. The counterparty
// is alerted after the message is stored.
func (s *ChatService) PostMessage(ctx context.Context, input PostMessageInput) (*models.Message, error) {
	ctx = ensureContext(ctx)

	messageType := strings.TrimSpace(input.Type)
	if messageType != models.MessageTypeQuestion && messageType != models.MessageTypeAnswer {
		return nil, apperrors.NewValidation("message type must be QUESTION or ANSWER")
	}

	// Content is stored verbatim; escaping is left to whichever surface
	// renders it. The JSON API already neutralises markup on encoding.
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, apperrors.NewValidation("message content is required")
	}
	if len(content) > maxMessageLength {
		return nil, apperrors.NewValidation("message content is too long")
	}

	matching, parties, err := s.loadMatching(ctx, input.MatchingID)
	if err != nil {
		return nil, err
	}

	senderID := strings.TrimSpace(input.SenderID)
	isParty := false
	var counterpart *models.Application
	for i := range parties {
		if parties[i].AccountID == senderID {
			isParty = true
		} else {
			counterpart = &parties[i]
		}
	}
	if !isParty || counterpart == nil {
		return nil, apperrors.NewAuthorization("only matched parties may post in this chat")
	}

	if matching.Status != models.MatchingStatusActive {
		return nil, apperrors.NewState("chat is closed because the matching is dissolved")
	}

	message := models.Message{
		MatchingID: matching.ID,
		SenderID:   senderID,
		Type:       messageType,
		Content:    content,
	}
	if err := s.db.WithContext(ctx).Create(&message).Error; err != nil {
		return nil, fmt.Errorf("chat service: create message: %w", err)
	}

	s.notifyCounterpart(ctx, matching, counterpart.AccountID, messageType)

	return &message, nil
}

// History returns one page of the matching's message log in posting order.
// Both matched parties may read it, dissolved or not; admins may read any log.
func (s *ChatService) History(ctx context.Context, input HistoryInput) ([]models.Message, int64, error) {
	ctx = ensureContext(ctx)

	matching, parties, err := s.loadMatching(ctx, input.MatchingID)
	if err != nil {
		return nil, 0, err
	}

	if !input.IsAdmin {
		accountID := strings.TrimSpace(input.AccountID)
		isParty := false
		for i := range parties {
			if parties[i].AccountID == accountID {
				isParty = true
			}
		}
		if !isParty {
			return nil, 0, apperrors.NewAuthorization("only matched parties may read this chat")
		}
	}

	page, size := normalisePage(input.Page, input.Size)
	query := s.db.WithContext(ctx).Model(&models.Message{}).Where("matching_id = ?", matching.ID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("chat service: count messages: %w", err)
	}

	var rows []models.Message
	if err := query.
		Order("created_at ASC").
		Limit(size).
		Offset((page - 1) * size).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("chat service: list messages: %w", err)
	}

	return rows, total, nil
}

// loadMatching fetches a matching together with its two party applications.
func (s *ChatService) loadMatching(ctx context.Context, matchingID string) (*models.Matching, []models.Application, error) {
	var matching models.Matching
	if err := s.db.WithContext(ctx).First(&matching, "id = ?", strings.TrimSpace(matchingID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperrors.ErrNotFound
		}
		return nil, nil, fmt.Errorf("chat service: load matching: %w", err)
	}

	var parties []models.Application
	if err := s.db.WithContext(ctx).
		Where("id IN ?", []string{matching.MentorApplicationID, matching.MenteeApplicationID}).
		Find(&parties).Error; err != nil {
		return nil, nil, fmt.Errorf("chat service: load parties: %w", err)
	}

	return &matching, parties, nil
}

func (s *ChatService) notifyCounterpart(ctx context.Context, matching *models.Matching, accountID, messageType string) {
	if s.alarms == nil {
		return
	}

	alarmType := models.AlarmTypeChatMessage
	title := "New mentoring question"
	body := "You received a new question in your mentoring chat."
	if messageType == models.MessageTypeAnswer {
		alarmType = models.AlarmTypeQuestionAnswered
		title = "Your question was answered"
		body = "You received an answer in your mentoring chat."
	}

	s.alarms.Dispatch(ctx, NotifyInput{
		AccountID: accountID,
		Type:      alarmType,
		Title:     title,
		Message:   body,
		LinkURL:   "/mentoring/matchings/" + matching.ID + "/chat",
		Metadata: map[string]any{
			"matching_id": matching.ID,
		},
	})
}
