package reminder

import (
	"time"

	"github.com/dukerupert/sprout/internal/model"
)

// Card is the view model a renderer needs to draw one reminder.
type Card struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Icon         string   `json:"icon"`
	TypeLabel    string   `json:"type_label"`
	DaysPerWeek  int      `json:"days_per_week"`
	TimesPerDay  int      `json:"times_per_day"`
	WaterAmount  int      `json:"water_amount"`
	Days         []Dot    `json:"days"`
	Times        []string `json:"times"`
	NextWatering string   `json:"next_watering"`
	Urgent       bool     `json:"urgent"`
	Watered      bool     `json:"watered"`
	NeedsWater   bool     `json:"needs_water"`
	Button       string   `json:"button"`
}

// Dot is one day indicator on a card.
type Dot struct {
	Label  string `json:"label"`
	Active bool   `json:"active"`
}

// NewCard builds the card for r as seen at now.
func NewCard(r model.Reminder, now time.Time, watered bool) Card {
	next := NextWatering(r, now)

	dots := make([]Dot, 0, len(model.DisplayWeek))
	for _, d := range model.DisplayWeek {
		dots = append(dots, Dot{Label: d.Short(), Active: r.ScheduledOn(d)})
	}

	times := make([]string, 0, len(r.Times))
	for _, t := range r.Times {
		times = append(times, t.Clock())
	}

	button := "💧 Water now"
	if watered {
		button = "✓ Done"
	}

	return Card{
		ID:           r.ID,
		Name:         r.Name,
		Icon:         r.Type.Icon(),
		TypeLabel:    r.Type.Label(),
		DaysPerWeek:  len(r.Days),
		TimesPerDay:  r.TimesPerDay,
		WaterAmount:  r.WaterAmount,
		Days:         dots,
		Times:        times,
		NextWatering: next.String(),
		Urgent:       next.Urgent(),
		Watered:      watered,
		NeedsWater:   next.Urgent() && !watered,
		Button:       button,
	}
}
