package reminder

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/sprout/internal/model"
)

// Keys under which state is persisted in the KV store.
const (
	KeyReminders      = "plant_reminders"
	KeyCompletedToday = "completed_today"
	KeyLastActiveDate = "last_active_date"
)

const dateLayout = "2006-01-02"

// DeletePrompt is the question put to the confirmation callback before a
// reminder is removed.
const DeletePrompt = "Are you sure you want to delete this reminder?"

const (
	defaultTimesPerDay = 2
	defaultWaterAmount = 500
)

// Change actions passed to Listener.ReminderChanged.
const (
	ActionCreated  = "created"
	ActionUpdated  = "updated"
	ActionDeleted  = "deleted"
	ActionWatered  = "watered"
	ActionImported = "imported"
)

// KV is the persistent string key/value store backing the reminder state.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Notifier receives the transient messages shown to the user.
type Notifier interface {
	Notify(message string, severity model.Severity)
}

// Listener is told whenever the collection or completion set changes so
// views can be refreshed.
type Listener interface {
	ReminderChanged(action string, id int64)
}

// ConfirmFunc asks the user a yes/no question.
type ConfirmFunc func(prompt string) bool

// Store owns the reminder collection and the set of reminders watered today.
// All methods are safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	kv        KV
	notifier  Notifier
	listener  Listener
	loc       *time.Location
	now       func() time.Time
	logger    *slog.Logger
	reminders []model.Reminder
	completed []int64
	lastDate  string
}

// NewStore creates an empty store. Call Load to read persisted state.
// A nil notifier or listener is ignored; a nil location means UTC.
func NewStore(kv KV, notifier Notifier, listener Listener, loc *time.Location, logger *slog.Logger) *Store {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		kv:       kv,
		notifier: notifier,
		listener: listener,
		loc:      loc,
		now:      time.Now,
		logger:   logger,
	}
}

// SetClock replaces the time source. Intended for tests and replays.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// SetListener replaces the change listener.
func (s *Store) SetListener(l Listener) {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
}

// Location returns the time zone "today" is evaluated in.
func (s *Store) Location() *time.Location {
	return s.loc
}

// Now returns the store's current time in its location.
func (s *Store) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock()
}

func (s *Store) clock() time.Time {
	return s.now().In(s.loc)
}

// Load reads the collection and completion set from the KV store. Missing
// keys yield an empty state. Values that do not decode, or that decode into
// reminders breaking the collection rules, are logged, copied aside under
// "<key>.corrupt" and treated as empty. Only KV read failures are returned.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reminders, err := readJSON(s, KeyReminders, func(rs []model.Reminder) error {
		normalize(rs)
		return checkReminders(rs)
	})
	if err != nil {
		return err
	}
	completed, err := readJSON[[]int64](s, KeyCompletedToday, nil)
	if err != nil {
		return err
	}
	lastDate, _, err := s.kv.Get(KeyLastActiveDate)
	if err != nil {
		return fmt.Errorf("read %s: %w", KeyLastActiveDate, err)
	}

	s.reminders = reminders
	s.completed = completed
	s.lastDate = lastDate

	s.rollover()

	s.logger.Info("reminders loaded", "reminders", len(s.reminders), "completed_today", len(s.completed), "date", s.lastDate)
	return nil
}

// readJSON decodes key into a fresh T. A value that fails to decode or to
// pass check is quarantined and the zero T returned, so a partial decode
// never reaches the caller.
func readJSON[T any](s *Store, key string, check func(T) error) (T, error) {
	var zero T
	raw, ok, err := s.kv.Get(key)
	if err != nil {
		return zero, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok || raw == "" {
		return zero, nil
	}

	var v T
	err = json.Unmarshal([]byte(raw), &v)
	if err == nil && check != nil {
		err = check(v)
	}
	if err != nil {
		s.logger.Warn("discarding unreadable persisted state", "key", key, "error", err)
		if err := s.kv.Set(key+".corrupt", raw); err != nil {
			s.logger.Error("preserve corrupt state", "key", key, "error", err)
		}
		return zero, nil
	}
	return v, nil
}

// rollover clears the completion set when the calendar day has changed since
// it was last written. The in-memory reset always applies; a failed write is
// logged and repaired by the next completion write or the next Load.
func (s *Store) rollover() {
	today := s.clock().Format(dateLayout)
	if s.lastDate == today {
		return
	}
	s.logger.Info("new day, clearing completion set", "previous", s.lastDate, "today", today, "cleared", len(s.completed))
	s.completed = nil
	s.lastDate = today
	if err := s.saveCompletion(s.completed, today); err != nil {
		s.logger.Error("persist day rollover", "error", err)
	}
}

func (s *Store) saveReminders(reminders []model.Reminder) error {
	if reminders == nil {
		reminders = []model.Reminder{}
	}
	data, err := json.Marshal(reminders)
	if err != nil {
		return fmt.Errorf("marshal reminders: %w", err)
	}
	if err := s.kv.Set(KeyReminders, string(data)); err != nil {
		return fmt.Errorf("save reminders: %w", err)
	}
	return nil
}

func (s *Store) saveCompletion(completed []int64, date string) error {
	if completed == nil {
		completed = []int64{}
	}
	data, err := json.Marshal(completed)
	if err != nil {
		return fmt.Errorf("marshal completion set: %w", err)
	}
	if err := s.kv.Set(KeyCompletedToday, string(data)); err != nil {
		return fmt.Errorf("save completion set: %w", err)
	}
	if err := s.kv.Set(KeyLastActiveDate, date); err != nil {
		return fmt.Errorf("save last active date: %w", err)
	}
	return nil
}

// normalize tidies reminders read back from storage or a snapshot: names are
// trimmed, times sorted, and unset counts get the defaults validate uses.
func normalize(reminders []model.Reminder) {
	for i := range reminders {
		r := &reminders[i]
		r.Name = strings.TrimSpace(r.Name)
		slices.Sort(r.Times)
		if r.TimesPerDay == 0 {
			r.TimesPerDay = defaultTimesPerDay
		}
		if r.WaterAmount == 0 {
			r.WaterAmount = defaultWaterAmount
		}
	}
}

// checkReminders reports the first stored reminder that breaks the rules
// validate enforces on new ones, or a repeated ID.
func checkReminders(reminders []model.Reminder) error {
	seen := make(map[int64]bool, len(reminders))
	for _, r := range reminders {
		if r.ID <= 0 {
			return fmt.Errorf("reminder id %d is not positive", r.ID)
		}
		if seen[r.ID] {
			return fmt.Errorf("duplicate reminder id %d", r.ID)
		}
		seen[r.ID] = true

		switch {
		case r.Name == "":
			return fmt.Errorf("reminder %d has no name", r.ID)
		case len(r.Days) == 0 || len(r.Times) == 0:
			return fmt.Errorf("reminder %d has no schedule", r.ID)
		case r.TimesPerDay <= 0:
			return fmt.Errorf("reminder %d has times per day %d", r.ID, r.TimesPerDay)
		case r.WaterAmount <= 0:
			return fmt.Errorf("reminder %d has water amount %d", r.ID, r.WaterAmount)
		}
		for _, d := range r.Days {
			if !d.Valid() {
				return fmt.Errorf("reminder %d has invalid day %d", r.ID, int(d))
			}
		}
		for _, t := range r.Times {
			if !t.Valid() {
				return fmt.Errorf("reminder %d has invalid time %d", r.ID, int(t))
			}
		}
	}
	return nil
}

// validate checks a draft and fills defaults. The first failing rule wins.
func validate(d model.Draft) (model.Reminder, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return model.Reminder{}, invalid("Please enter a plant name")
	}
	if len(d.Days) == 0 {
		return model.Reminder{}, invalid("Please select at least one day")
	}
	if len(d.Times) == 0 {
		return model.Reminder{}, invalid("Please add at least one time")
	}
	for _, day := range d.Days {
		if !day.Valid() {
			return model.Reminder{}, invalid("Please select valid days")
		}
	}
	for _, t := range d.Times {
		if !t.Valid() {
			return model.Reminder{}, invalid("Please enter valid times")
		}
	}

	timesPerDay := d.TimesPerDay
	switch {
	case timesPerDay == 0:
		timesPerDay = defaultTimesPerDay
	case timesPerDay < 0:
		return model.Reminder{}, invalid("Times per day must be positive")
	}
	waterAmount := d.WaterAmount
	switch {
	case waterAmount == 0:
		waterAmount = defaultWaterAmount
	case waterAmount < 0:
		return model.Reminder{}, invalid("Water amount must be positive")
	}

	return model.Reminder{
		Name:        name,
		Type:        d.Type,
		Days:        slices.Clone(d.Days),
		TimesPerDay: timesPerDay,
		Times:       sortedTimes(d.Times),
		WaterAmount: waterAmount,
	}, nil
}

func sortedTimes(times []model.TimeOfDay) []model.TimeOfDay {
	out := slices.Clone(times)
	slices.Sort(out)
	return out
}

// nextID derives an ID from the clock, moving past any existing ID so IDs
// stay unique and increasing even if the clock stalls or goes backwards.
func (s *Store) nextID(now time.Time) int64 {
	id := now.UnixMilli()
	for _, r := range s.reminders {
		if r.ID >= id {
			id = r.ID + 1
		}
	}
	return id
}

func (s *Store) indexOf(id int64) int {
	return slices.IndexFunc(s.reminders, func(r model.Reminder) bool { return r.ID == id })
}

// Create validates the draft and appends a new reminder.
func (s *Store) Create(d model.Draft) (model.Reminder, error) {
	r, err := validate(d)
	if err != nil {
		s.notify(err.Error(), model.SeverityError)
		return model.Reminder{}, err
	}

	s.mu.Lock()
	now := s.clock()
	r.ID = s.nextID(now)
	r.CreatedAt = now.UTC().Truncate(time.Millisecond)

	next := append(slices.Clone(s.reminders), r)
	if err := s.saveReminders(next); err != nil {
		s.mu.Unlock()
		s.logger.Error("create reminder", "name", r.Name, "error", err)
		s.notify("Could not save reminder", model.SeverityError)
		return model.Reminder{}, err
	}
	s.reminders = next
	s.mu.Unlock()

	s.logger.Info("reminder created", "id", r.ID, "name", r.Name)
	s.changed(ActionCreated, r.ID)
	s.notify("Reminder added successfully! 🌱", model.SeveritySuccess)
	return r.Clone(), nil
}

// Update replaces the editable fields of an existing reminder. ID and
// creation time are preserved.
func (s *Store) Update(id int64, d model.Draft) (model.Reminder, error) {
	r, err := validate(d)
	if err != nil {
		s.notify(err.Error(), model.SeverityError)
		return model.Reminder{}, err
	}

	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return model.Reminder{}, ErrNotFound
	}
	r.ID = id
	r.CreatedAt = s.reminders[idx].CreatedAt

	next := slices.Clone(s.reminders)
	next[idx] = r
	if err := s.saveReminders(next); err != nil {
		s.mu.Unlock()
		s.logger.Error("update reminder", "id", id, "error", err)
		s.notify("Could not save reminder", model.SeverityError)
		return model.Reminder{}, err
	}
	s.reminders = next
	s.mu.Unlock()

	s.logger.Info("reminder updated", "id", id, "name", r.Name)
	s.changed(ActionUpdated, id)
	s.notify("Reminder updated successfully! ✅", model.SeveritySuccess)
	return r.Clone(), nil
}

// Delete removes a reminder after confirm approves DeletePrompt. It reports
// whether the reminder was removed. A nil confirm counts as approval.
func (s *Store) Delete(id int64, confirm ConfirmFunc) (bool, error) {
	s.mu.Lock()
	if s.indexOf(id) < 0 {
		s.mu.Unlock()
		return false, ErrNotFound
	}
	s.mu.Unlock()

	// Asked without holding the lock: confirmation may wait on the user.
	if confirm != nil && !confirm(DeletePrompt) {
		return false, nil
	}

	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return false, ErrNotFound
	}
	next := slices.Delete(slices.Clone(s.reminders), idx, idx+1)
	if err := s.saveReminders(next); err != nil {
		s.mu.Unlock()
		s.logger.Error("delete reminder", "id", id, "error", err)
		s.notify("Could not delete reminder", model.SeverityError)
		return false, err
	}
	s.reminders = next
	s.mu.Unlock()

	s.logger.Info("reminder deleted", "id", id)
	s.changed(ActionDeleted, id)
	s.notify("Reminder deleted 🗑️", model.SeveritySuccess)
	return true, nil
}

// MarkWatered records that the reminder was watered today. Marking twice is
// harmless.
func (s *Store) MarkWatered(id int64) error {
	s.mu.Lock()
	if s.indexOf(id) < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	s.rollover()

	next := s.completed
	if !slices.Contains(next, id) {
		next = append(slices.Clone(s.completed), id)
	}
	if err := s.saveCompletion(next, s.lastDate); err != nil {
		s.mu.Unlock()
		s.logger.Error("mark watered", "id", id, "error", err)
		s.notify("Could not record watering", model.SeverityError)
		return err
	}
	s.completed = next
	s.mu.Unlock()

	s.logger.Info("reminder watered", "id", id)
	s.changed(ActionWatered, id)
	s.notify("Watering recorded successfully! 💧🌱", model.SeveritySuccess)
	return nil
}

// List returns every reminder in insertion order.
func (s *Store) List() []model.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.reminders)
}

func (s *Store) Get(id int64) (model.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return model.Reminder{}, ErrNotFound
	}
	return s.reminders[idx].Clone(), nil
}

// IsWatered reports whether id is in today's completion set.
func (s *Store) IsWatered(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollover()
	return slices.Contains(s.completed, id)
}

// Completed returns the IDs watered today, in the order they were marked.
func (s *Store) Completed() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollover()
	return slices.Clone(s.completed)
}

// Filter returns the reminders matching f: "all" or "" for everything,
// "today" for those scheduled on the current weekday, or a plant type tag.
func (s *Store) Filter(f string) []model.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterLocked(f)
}

func (s *Store) filterLocked(f string) []model.Reminder {
	switch f {
	case "", "all":
		return cloneAll(s.reminders)
	case "today":
		today := model.WeekdayOf(s.clock())
		return collect(s.reminders, func(r model.Reminder) bool { return r.ScheduledOn(today) })
	default:
		pt := model.PlantType(f)
		return collect(s.reminders, func(r model.Reminder) bool { return r.Type == pt })
	}
}

// Search matches query case-insensitively against reminder names and plant
// type labels. An empty query returns everything.
func (s *Store) Search(query string) []model.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return searchIn(s.reminders, query)
}

// Query applies a filter and then a search.
func (s *Store) Query(filter, query string) []model.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return searchIn(s.filterLocked(filter), query)
}

func searchIn(reminders []model.Reminder, query string) []model.Reminder {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return cloneAll(reminders)
	}
	return collect(reminders, func(r model.Reminder) bool {
		return strings.Contains(strings.ToLower(r.Name), q) ||
			strings.Contains(strings.ToLower(r.Type.Label()), q)
	})
}

// Stats summarises the collection for the dashboard counters.
type Stats struct {
	Total     int `json:"total"`
	Plants    int `json:"plants"`
	Today     int `json:"today"`
	Completed int `json:"completed"`
}

func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollover()

	today := model.WeekdayOf(s.clock())
	st := Stats{Total: len(s.reminders), Plants: len(s.reminders), Completed: len(s.completed)}
	for _, r := range s.reminders {
		if r.ScheduledOn(today) {
			st.Today++
		}
	}
	return st
}

// Due returns reminders scheduled for the weekday and minute of at that have
// not been watered today.
func (s *Store) Due(at time.Time) []model.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollover()

	at = at.In(s.loc)
	day := model.WeekdayOf(at)
	minute := model.TimeOfDayOf(at)
	return collect(s.reminders, func(r model.Reminder) bool {
		return r.ScheduledOn(day) && slices.Contains(r.Times, minute) && !slices.Contains(s.completed, r.ID)
	})
}

// Cards renders the filtered, searched view with each reminder's watered
// state as of now.
func (s *Store) Cards(filter, query string) []Card {
	s.mu.Lock()
	s.rollover()
	now := s.clock()
	matched := searchIn(s.filterLocked(filter), query)
	completed := slices.Clone(s.completed)
	s.mu.Unlock()

	cards := make([]Card, 0, len(matched))
	for _, r := range matched {
		cards = append(cards, NewCard(r, now, slices.Contains(completed, r.ID)))
	}
	return cards
}

func (s *Store) notify(message string, severity model.Severity) {
	if s.notifier != nil {
		s.notifier.Notify(message, severity)
	}
}

func (s *Store) changed(action string, id int64) {
	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()
	if l != nil {
		l.ReminderChanged(action, id)
	}
}

func cloneAll(reminders []model.Reminder) []model.Reminder {
	out := make([]model.Reminder, 0, len(reminders))
	for _, r := range reminders {
		out = append(out, r.Clone())
	}
	return out
}

func collect(reminders []model.Reminder, keep func(model.Reminder) bool) []model.Reminder {
	out := []model.Reminder{}
	for _, r := range reminders {
		if keep(r) {
			out = append(out, r.Clone())
		}
	}
	return out
}
