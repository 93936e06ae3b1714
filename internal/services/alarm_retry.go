package services

import (
	"context"
	"strings"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	defaultRetrySchedule = "@every 30s"
	maxDeliveryAttempts  = 5
)

type pendingAlarm struct {
	input    NotifyInput
	attempts int
}

// Dispatch persists the alarm and, when the write fails, parks it on the
// retry queue so the periodic sweep replays it later. Workflow callers fire
// and forget: a failed alarm write never unwinds the transition that
// produced it.
func (s *AlarmService) Dispatch(ctx context.Context, input NotifyInput) {
	_, err := s.Notify(ctx, input)
	if err == nil {
		return
	}

	// A malformed alarm will fail on every attempt; drop it immediately.
	if strings.TrimSpace(input.AccountID) == "" || strings.TrimSpace(input.Type) == "" {
		s.log.Error("dropping malformed alarm", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.pending = append(s.pending, pendingAlarm{input: input, attempts: 1})
	queued := len(s.pending)
	s.mu.Unlock()

	s.log.Error("alarm write failed, queued for retry",
		zap.Error(err),
		zap.String("type", input.Type),
		zap.String("account_id", input.AccountID),
		zap.Int("queued", queued),
	)
}

// RetryPending replays queued alarm writes once. Writes that still fail are
// requeued until they exhaust their attempts. It returns the number of alarms
// delivered.
func (s *AlarmService) RetryPending(ctx context.Context) int {
	ctx = ensureContext(ctx)

	s.mu.Lock()
	queued := s.pending
	s.pending = nil
	s.mu.Unlock()

	delivered := 0
	var remaining []pendingAlarm
	for _, item := range queued {
		if _, err := s.Notify(ctx, item.input); err != nil {
			item.attempts++
			if item.attempts >= maxDeliveryAttempts {
				s.log.Error("dropping alarm after repeated write failures",
					zap.Error(err),
					zap.String("type", item.input.Type),
					zap.String("account_id", item.input.AccountID),
				)
				continue
			}
			remaining = append(remaining, item)
			continue
		}
		delivered++
	}

	if len(remaining) > 0 {
		s.mu.Lock()
		s.pending = append(remaining, s.pending...)
		s.mu.Unlock()
	}
	return delivered
}

// PendingRetries reports how many failed alarm writes await the next sweep.
func (s *AlarmService) PendingRetries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// StartRetrySweep schedules the periodic replay of failed alarm writes.
// Calling it on a service whose sweep already runs is a no-op.
func (s *AlarmService) StartRetrySweep() error {
	if s.cron != nil {
		return nil
	}

	c := cron.New(cron.WithLogger(cron.DiscardLogger))
	if _, err := c.AddFunc(s.retrySchedule, func() {
		if n := s.RetryPending(context.Background()); n > 0 {
			s.log.Info("replayed failed alarm writes", zap.Int("delivered", n))
		}
	}); err != nil {
		return err
	}

	c.Start()
	s.cron = c
	return nil
}

// StopRetrySweep halts the scheduler. The returned context is done once any
// in-flight sweep has finished.
func (s *AlarmService) StopRetrySweep() context.Context {
	if s.cron == nil {
		return context.Background()
	}
	return s.cron.Stop()
}
