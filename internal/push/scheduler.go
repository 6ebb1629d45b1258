package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/sprout/internal/model"
	"github.com/dukerupert/sprout/internal/reminder"
	"github.com/dukerupert/sprout/internal/store"
)

const (
	// maxCatchUp bounds how many missed minutes a late tick re-checks.
	maxCatchUp = 10 * time.Minute
	// sentRetention is how long dedup records are kept.
	sentRetention = 48 * time.Hour
)

// Scheduler periodically checks for reminders that have come due and pushes
// a notification for each to every subscribed device.
type Scheduler struct {
	mu          sync.RWMutex
	sender      Sender
	push        *store.PushStore
	reminders   *reminder.Store
	interval    time.Duration
	now         func() time.Time
	logger      *slog.Logger
	last        time.Time
	lastCleanup time.Time
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewScheduler creates a notification scheduler. A non-positive interval
// means once a minute.
func NewScheduler(sender Sender, pushStore *store.PushStore, reminders *reminder.Store, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Scheduler{
		sender:    sender,
		push:      pushStore,
		reminders: reminders,
		interval:  interval,
		now:       time.Now,
		logger:    logger,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// tick checks every minute since the previous tick, so a late ticker does
// not skip a watering time.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.now().In(s.reminders.Location()).Truncate(time.Minute)

	from := now
	if !s.last.IsZero() && s.last.Before(now) {
		from = s.last.Add(time.Minute)
		if now.Sub(from) > maxCatchUp {
			from = now.Add(-maxCatchUp)
		}
	}
	for t := from; !t.After(now); t = t.Add(time.Minute) {
		s.checkDue(ctx, t)
	}
	s.last = now

	if now.Sub(s.lastCleanup) >= time.Hour {
		if err := s.push.CleanupSent(now.Add(-sentRetention)); err != nil {
			s.logger.Error("cleanup sent notifications", "error", err)
		}
		s.lastCleanup = now
	}
}

func (s *Scheduler) checkDue(ctx context.Context, at time.Time) {
	due := s.reminders.Due(at)
	if len(due) == 0 {
		return
	}

	subs, err := s.push.List()
	if err != nil {
		s.logger.Error("list push subscriptions", "error", err)
		return
	}
	if len(subs) == 0 {
		return
	}

	for _, r := range due {
		refID := fmt.Sprintf("reminder-%d-%s-%s", r.ID, at.Format("2006-01-02"), model.TimeOfDayOf(at))

		sent, err := s.push.WasSent(model.NotifTypeWateringDue, refID)
		if err != nil {
			s.logger.Error("check sent notification", "ref", refID, "error", err)
			continue
		}
		if sent {
			continue
		}

		payload := Payload{
			Title: "Time to water " + r.Name,
			Body:  fmt.Sprintf("%d ml", r.WaterAmount),
			URL:   "/",
			Tag:   fmt.Sprintf("reminder-%d", r.ID),
		}
		n := s.sendAll(ctx, subs, payload)
		s.logger.Info("watering notification sent", "reminder_id", r.ID, "name", r.Name, "devices", n)

		if err := s.push.RecordSent(model.NotifTypeWateringDue, refID); err != nil {
			s.logger.Error("record sent notification", "ref", refID, "error", err)
		}
	}
}

// SendToAll pushes payload to every subscription and returns how many
// deliveries succeeded.
func (s *Scheduler) SendToAll(ctx context.Context, payload Payload) (int, error) {
	subs, err := s.push.List()
	if err != nil {
		return 0, fmt.Errorf("list push subscriptions: %w", err)
	}
	return s.sendAll(ctx, subs, payload), nil
}

func (s *Scheduler) sendAll(ctx context.Context, subs []model.PushSubscription, payload Payload) int {
	sent := 0
	for _, sub := range subs {
		if err := s.sender.Send(ctx, &sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				s.logger.Info("removing expired push subscription", "id", sub.ID)
				if err := s.push.DeleteByEndpoint(sub.Endpoint); err != nil {
					s.logger.Error("delete expired subscription", "error", err)
				}
			} else {
				s.logger.Warn("send push notification", "id", sub.ID, "error", err)
			}
			continue
		}
		sent++
	}
	return sent
}
