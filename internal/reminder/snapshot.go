package reminder

import (
	"fmt"
	"slices"
	"time"

	"github.com/dukerupert/sprout/internal/model"
)

// Snapshot is a point-in-time export of everything the store persists.
type Snapshot struct {
	Version        int              `json:"version"`
	ExportedAt     time.Time        `json:"exportedAt"`
	Reminders      []model.Reminder `json:"reminders"`
	CompletedToday []int64          `json:"completedToday"`
	LastActiveDate string           `json:"lastActiveDate"`
}

const snapshotVersion = 1

// Snapshot copies the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollover()
	return Snapshot{
		Version:        snapshotVersion,
		ExportedAt:     s.clock().UTC(),
		Reminders:      cloneAll(s.reminders),
		CompletedToday: slices.Clone(s.completed),
		LastActiveDate: s.lastDate,
	}
}

// Import replaces the whole state with snap and persists it. Names are
// trimmed and unset counts defaulted; reminders that still break the
// collection rules reject the snapshot as a whole. A snapshot taken
// on an earlier day restores with an empty completion set.
func (s *Store) Import(snap Snapshot) error {
	if snap.Version > snapshotVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidSnapshot, snap.Version)
	}

	reminders := cloneAll(snap.Reminders)
	normalize(reminders)
	if err := checkReminders(reminders); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	seen := make(map[int64]bool, len(reminders))
	for _, r := range reminders {
		seen[r.ID] = true
	}
	completed := slices.DeleteFunc(slices.Clone(snap.CompletedToday), func(id int64) bool { return !seen[id] })

	s.mu.Lock()
	if err := s.saveReminders(reminders); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.saveCompletion(completed, snap.LastActiveDate); err != nil {
		if rerr := s.saveReminders(s.reminders); rerr != nil {
			s.logger.Error("restore reminders after failed import", "error", rerr)
		}
		s.mu.Unlock()
		return err
	}
	s.reminders = reminders
	s.completed = completed
	s.lastDate = snap.LastActiveDate
	s.rollover()
	s.mu.Unlock()

	s.logger.Info("reminders imported", "reminders", len(reminders), "completed_today", len(completed))
	s.changed(ActionImported, 0)
	s.notify("Reminders restored from backup", model.SeveritySuccess)
	return nil
}
