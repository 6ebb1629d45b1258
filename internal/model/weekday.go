package model

import (
	"fmt"
	"strings"
	"time"
)

// Weekday is the canonical day-of-week enumeration used by reminders.
// Its numeric values follow time.Weekday (Sunday = 0).
type Weekday time.Weekday

const (
	Sunday    = Weekday(time.Sunday)
	Monday    = Weekday(time.Monday)
	Tuesday   = Weekday(time.Tuesday)
	Wednesday = Weekday(time.Wednesday)
	Thursday  = Weekday(time.Thursday)
	Friday    = Weekday(time.Friday)
	Saturday  = Weekday(time.Saturday)
)

// DisplayWeek is the order day indicators are rendered on a reminder card.
var DisplayWeek = [7]Weekday{Saturday, Sunday, Monday, Tuesday, Wednesday, Thursday, Friday}

// WeekdayOf returns the weekday of t in t's location.
func WeekdayOf(t time.Time) Weekday {
	return Weekday(t.Weekday())
}

// String returns the full English day name, e.g. "Monday".
func (d Weekday) String() string {
	return time.Weekday(d).String()
}

// Short returns the three-letter day label, e.g. "Mon".
func (d Weekday) Short() string {
	return d.String()[:3]
}

// Valid reports whether d is one of the seven days.
func (d Weekday) Valid() bool {
	return d >= Sunday && d <= Saturday
}

// Add returns the weekday n days after d, wrapping around the week.
func (d Weekday) Add(n int) Weekday {
	return Weekday(((int(d)+n)%7 + 7) % 7)
}

// ParseWeekday accepts full or three-letter day names, case-insensitively.
func ParseWeekday(s string) (Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for d := Sunday; d <= Saturday; d++ {
		if name == strings.ToLower(d.String()) || name == strings.ToLower(d.Short()) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid weekday %q", s)
}

func (d Weekday) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid weekday %d", int(d))
	}
	return []byte(d.String()), nil
}

func (d *Weekday) UnmarshalText(b []byte) error {
	parsed, err := ParseWeekday(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ContainsDay reports whether days includes d.
func ContainsDay(days []Weekday, d Weekday) bool {
	for _, day := range days {
		if day == d {
			return true
		}
	}
	return false
}
