package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/campushub/mentorhub/internal/models"
	"github.com/campushub/mentorhub/internal/notifications"
	"github.com/campushub/mentorhub/pkg/logger"
	"github.com/campushub/mentorhub/pkg/metrics"
)

// AlarmDTO represents the API-friendly alarm payload.
type AlarmDTO struct {
	ID        string         `json:"id"`
	AccountID string         `json:"account_id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	LinkURL   string         `json:"link_url,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	IsRead    bool           `json:"is_read"`
	CreatedAt time.Time      `json:"created_at"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
}

// NotifyInput defines attributes required to persist an alarm.
type NotifyInput struct {
	AccountID string
	Type      string
	Title     string
	Message   string
	LinkURL   string
	Metadata  map[string]any
}

// ListAlarmsInput defines paging for querying an account's alarms.
type ListAlarmsInput struct {
	AccountID string
	Page      int
	Size      int
}

// AlarmService is the notification dispatcher: it persists alarms emitted by
// workflow transitions and serves the recipient-facing read/cleanup surface.
// Failed writes land on an in-memory retry queue drained by the periodic
// sweep. Delivery to clients is pull-based; the websocket hub only
// short-circuits the next poll.
type AlarmService struct {
	db  *gorm.DB
	hub *notifications.Hub
	log *zap.Logger

	mu            sync.Mutex
	pending       []pendingAlarm
	cron          *cron.Cron
	retrySchedule string
}

// AlarmOption customises AlarmService behaviour.
type AlarmOption func(*AlarmService)

// WithRetrySchedule overrides the cron specification for the retry sweep.
func WithRetrySchedule(spec string) AlarmOption {
	return func(s *AlarmService) {
		if spec != "" {
			s.retrySchedule = spec
		}
	}
}

// NewAlarmService constructs an AlarmService.
func NewAlarmService(db *gorm.DB, hub *notifications.Hub, opts ...AlarmOption) (*AlarmService, error) {
	if db == nil {
		return nil, errors.New("alarm service: db is required")
	}

	service := &AlarmService{
		db:            db,
		hub:           hub,
		log:           logger.WithModule("alarms"),
		retrySchedule: defaultRetrySchedule,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Notify appends an alarm row for the recipient and broadcasts it to any
// connected stream subscribers.
func (s *AlarmService) Notify(ctx context.Context, input NotifyInput) (*AlarmDTO, error) {
	ctx = ensureContext(ctx)

	accountID := strings.TrimSpace(input.AccountID)
	if accountID == "" {
		return nil, errors.New("alarm service: account id is required")
	}
	alarmType := strings.TrimSpace(input.Type)
	if alarmType == "" {
		return nil, errors.New("alarm service: type is required")
	}

	alarm := models.Alarm{
		AccountID: accountID,
		Type:      alarmType,
		Title:     strings.TrimSpace(input.Title),
		Message:   strings.TrimSpace(input.Message),
		LinkURL:   strings.TrimSpace(input.LinkURL),
	}

	if input.Metadata != nil {
		data, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, fmt.Errorf("alarm service: marshal metadata: %w", err)
		}
		alarm.Metadata = datatypes.JSON(data)
	}

	if err := s.db.WithContext(ctx).Create(&alarm).Error; err != nil {
		return nil, fmt.Errorf("alarm service: create alarm: %w", err)
	}

	metrics.AlarmsEmitted.WithLabelValues(alarmType).Inc()

	dto := mapAlarm(alarm)
	s.broadcast(accountID, "alarm.created", &dto)
	return &dto, nil
}

// List returns one page of the account's alarms ordered by recency, along
// with the total row count for pagination metadata.
func (s *AlarmService) List(ctx context.Context, input ListAlarmsInput) ([]AlarmDTO, int64, error) {
	ctx = ensureContext(ctx)
	accountID := strings.TrimSpace(input.AccountID)
	if accountID == "" {
		return nil, 0, errors.New("alarm service: account id is required")
	}

	page, size := normalisePage(input.Page, input.Size)

	query := s.db.WithContext(ctx).Model(&models.Alarm{}).Where("account_id = ?", accountID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("alarm service: count alarms: %w", err)
	}

	var rows []models.Alarm
	if err := query.
		Order("created_at DESC").
		Limit(size).
		Offset((page - 1) * size).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("alarm service: list alarms: %w", err)
	}

	items := make([]AlarmDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapAlarm(row))
	}
	return items, total, nil
}

// UnreadCount returns the number of unread alarms for the account. Clients
// poll this on a fixed interval.
func (s *AlarmService) UnreadCount(ctx context.Context, accountID string) (int64, error) {
	ctx = ensureContext(ctx)
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Alarm{}).
		Where("account_id = ? AND is_read = ?", accountID, false).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("alarm service: unread count: %w", err)
	}
	return count, nil
}

// MarkRead sets the read flag on one alarm. Repeating the call, or calling it
// for an alarm that no longer exists, has no further effect and does not error.
func (s *AlarmService) MarkRead(ctx context.Context, accountID, alarmID string) error {
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	result := s.db.WithContext(ctx).
		Model(&models.Alarm{}).
		Where("id = ? AND account_id = ? AND is_read = ?", alarmID, accountID, false).
		Updates(map[string]any{
			"is_read": true,
			"read_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("alarm service: mark read: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		s.broadcast(accountID, "alarm.read", &AlarmDTO{ID: alarmID, AccountID: accountID, IsRead: true})
	}
	return nil
}

// MarkAllRead marks every unread alarm for the account as read.
func (s *AlarmService) MarkAllRead(ctx context.Context, accountID string) error {
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).
		Model(&models.Alarm{}).
		Where("account_id = ? AND is_read = ?", accountID, false).
		Updates(map[string]any{
			"is_read": true,
			"read_at": now,
		}).Error; err != nil {
		return fmt.Errorf("alarm service: mark all read: %w", err)
	}

	s.broadcast(accountID, "alarm.read_all", nil)
	return nil
}

// Delete removes one alarm owned by the account. Deleting an already-deleted
// alarm is a no-op.
func (s *AlarmService) Delete(ctx context.Context, accountID, alarmID string) error {
	ctx = ensureContext(ctx)
	result := s.db.WithContext(ctx).
		Where("id = ? AND account_id = ?", alarmID, accountID).
		Delete(&models.Alarm{})
	if result.Error != nil {
		return fmt.Errorf("alarm service: delete alarm: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		s.broadcast(accountID, "alarm.deleted", &AlarmDTO{ID: alarmID, AccountID: accountID})
	}
	return nil
}

// DeleteAll removes every alarm owned by the account.
func (s *AlarmService) DeleteAll(ctx context.Context, accountID string) error {
	ctx = ensureContext(ctx)
	if err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Delete(&models.Alarm{}).Error; err != nil {
		return fmt.Errorf("alarm service: delete all alarms: %w", err)
	}

	s.broadcast(accountID, "alarm.deleted_all", nil)
	return nil
}

func (s *AlarmService) broadcast(accountID, event string, dto *AlarmDTO) {
	if s.hub == nil {
		return
	}
	ev := notifications.Event{Event: event}
	if dto != nil {
		ev.Alarm = dto
		ev.AlarmID = dto.ID
	}
	s.hub.Broadcast(accountID, ev)
}

func mapAlarm(row models.Alarm) AlarmDTO {
	return AlarmDTO{
		ID:        row.ID,
		AccountID: row.AccountID,
		Type:      row.Type,
		Title:     row.Title,
		Message:   row.Message,
		LinkURL:   row.LinkURL,
		Metadata:  decodeJSON(row.Metadata),
		IsRead:    row.IsRead,
		CreatedAt: row.CreatedAt,
		ReadAt:    row.ReadAt,
	}
}

func decodeJSON(data datatypes.JSON) map[string]any {
	if len(data) == 0 {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
