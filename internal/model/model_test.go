package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestWeekdayFormatting(t *testing.T) {
	if Monday.String() != "Monday" {
		t.Errorf("String = %q, want %q", Monday.String(), "Monday")
	}
	if Saturday.Short() != "Sat" {
		t.Errorf("Short = %q, want %q", Saturday.Short(), "Sat")
	}
	if got := Saturday.Add(1); got != Sunday {
		t.Errorf("Saturday+1 = %v, want Sunday", got)
	}
	if got := Sunday.Add(-1); got != Saturday {
		t.Errorf("Sunday-1 = %v, want Saturday", got)
	}
	if got := Wednesday.Add(7); got != Wednesday {
		t.Errorf("Wednesday+7 = %v, want Wednesday", got)
	}
}

func TestParseWeekday(t *testing.T) {
	for _, in := range []string{"Tuesday", "tuesday", "TUE", " tue "} {
		d, err := ParseWeekday(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if d != Tuesday {
			t.Errorf("parse %q = %v, want Tuesday", in, d)
		}
	}
	_, err := ParseWeekday(" FunDay ")
	if err == nil {
		t.Fatal("expected error for unknown day")
	}
	if want := `invalid weekday " FunDay "`; err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestDisplayWeekStartsSaturday(t *testing.T) {
	if DisplayWeek[0] != Saturday || DisplayWeek[6] != Friday {
		t.Errorf("DisplayWeek = %v", DisplayWeek)
	}
	seen := map[Weekday]bool{}
	for _, d := range DisplayWeek {
		seen[d] = true
	}
	if len(seen) != 7 {
		t.Errorf("DisplayWeek has %d distinct days, want 7", len(seen))
	}
}

func TestTimeOfDayClock(t *testing.T) {
	tests := map[string]string{
		"00:05": "12:05 AM",
		"08:00": "8:00 AM",
		"12:00": "12:00 PM",
		"13:30": "1:30 PM",
		"23:59": "11:59 PM",
	}
	for in, want := range tests {
		tod, err := ParseTimeOfDay(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got := tod.Clock(); got != want {
			t.Errorf("Clock(%q) = %q, want %q", in, got, want)
		}
		if got := tod.String(); got != in {
			t.Errorf("String(%q) = %q", in, got)
		}
	}
}

func TestParseTimeOfDayRejectsInvalid(t *testing.T) {
	for _, in := range []string{"", "8", "24:00", "12:60", "ab:cd", "7:5", "123:00"} {
		if _, err := ParseTimeOfDay(in); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
	tod, err := ParseTimeOfDay("7:05")
	if err != nil {
		t.Fatalf("parse single-digit hour: %v", err)
	}
	if tod != NewTimeOfDay(7, 5) {
		t.Errorf("7:05 = %d, want %d", tod, NewTimeOfDay(7, 5))
	}
}

func TestTimeOfDayOf(t *testing.T) {
	now := time.Date(2026, 3, 4, 14, 25, 59, 0, time.UTC)
	if got := TimeOfDayOf(now); got != NewTimeOfDay(14, 25) {
		t.Errorf("TimeOfDayOf = %v, want 14:25", got)
	}
}

func TestPlantTypeLookup(t *testing.T) {
	if PlantIndoor.Label() != "Indoor plants" {
		t.Errorf("indoor label = %q", PlantIndoor.Label())
	}
	if PlantSucculents.Icon() != "🌵" {
		t.Errorf("succulents icon = %q", PlantSucculents.Icon())
	}
	if PlantUnspecified.Label() != "Plant" {
		t.Errorf("unspecified label = %q, want Plant", PlantUnspecified.Label())
	}
	unknown := PlantType("mushrooms")
	if unknown.Label() != "Plant" || unknown.Icon() != "🌱" {
		t.Errorf("unknown = %q %q, want Plant 🌱", unknown.Label(), unknown.Icon())
	}
	if unknown.Known() {
		t.Error("mushrooms should not be a known type")
	}
}

func TestReminderJSON(t *testing.T) {
	r := Reminder{
		ID:          1700000000000,
		Name:        "Basil",
		Type:        PlantHerbs,
		Days:        []Weekday{Monday, Friday},
		TimesPerDay: 1,
		Times:       []TimeOfDay{NewTimeOfDay(8, 0)},
		WaterAmount: 250,
		CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"id":1700000000000,"name":"Basil","type":"herbs","days":["Monday","Friday"],"timesPerDay":1,"times":["08:00"],"waterAmount":250,"createdAt":"2026-01-02T03:04:05Z"}`
	if string(data) != want {
		t.Errorf("json = %s\nwant   %s", data, want)
	}
}

func TestReminderClone(t *testing.T) {
	r := Reminder{Days: []Weekday{Monday}, Times: []TimeOfDay{60}}
	c := r.Clone()
	c.Days[0] = Sunday
	c.Times[0] = 120
	if r.Days[0] != Monday || r.Times[0] != 60 {
		t.Error("clone shares slices with original")
	}
}
