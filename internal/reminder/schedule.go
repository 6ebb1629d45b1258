package reminder

import (
	"fmt"
	"time"

	"github.com/dukerupert/sprout/internal/model"
)

// urgentWindow is how far ahead a same-day watering counts as imminent.
const urgentWindow = 60

type nextKind int

const (
	nextUnset nextKind = iota
	nextSoon
	nextToday
	nextTomorrow
	nextWeekday
)

// Next describes when a reminder is next due relative to a moment.
type Next struct {
	kind    nextKind
	minutes int
	day     model.Weekday
	at      model.TimeOfDay
}

// NextWatering computes the next watering for r as seen at now. Weekday and
// time of day are taken in now's location.
//
// A later time today wins. Otherwise the first scheduled day in the
// following seven (wrapping back to today's weekday) is used, at the
// reminder's earliest time.
func NextWatering(r model.Reminder, now time.Time) Next {
	if len(r.Days) == 0 || len(r.Times) == 0 {
		return Next{kind: nextUnset}
	}

	today := model.WeekdayOf(now)
	current := model.TimeOfDayOf(now)
	times := sortedTimes(r.Times)

	if r.ScheduledOn(today) {
		for _, t := range times {
			if t <= current {
				continue
			}
			diff := int(t - current)
			if diff <= urgentWindow {
				return Next{kind: nextSoon, minutes: diff, at: t}
			}
			return Next{kind: nextToday, at: t}
		}
	}

	for i := 1; i <= 7; i++ {
		day := today.Add(i)
		if !r.ScheduledOn(day) {
			continue
		}
		if i == 1 {
			return Next{kind: nextTomorrow, day: day, at: times[0]}
		}
		return Next{kind: nextWeekday, day: day, at: times[0]}
	}
	return Next{kind: nextUnset}
}

func (n Next) String() string {
	switch n.kind {
	case nextSoon:
		return fmt.Sprintf("in %d minute(s)", n.minutes)
	case nextToday:
		return "today at " + n.at.Clock()
	case nextTomorrow:
		return "tomorrow at " + n.at.Clock()
	case nextWeekday:
		return n.day.String() + " at " + n.at.Clock()
	default:
		return "not set"
	}
}

// Urgent reports whether the next watering is within the hour.
func (n Next) Urgent() bool {
	return n.kind == nextSoon
}

// Set reports whether the reminder has any upcoming watering at all.
func (n Next) Set() bool {
	return n.kind != nextUnset
}

// Minutes returns the minutes until an urgent watering, or 0.
func (n Next) Minutes() int {
	if n.kind != nextSoon {
		return 0
	}
	return n.minutes
}

// MarshalText renders the display string, so a Next can be embedded in JSON.
func (n Next) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}
