package reminder

import (
	"encoding/json"
	"testing"

	"github.com/dukerupert/sprout/internal/model"
)

func TestNewCard(t *testing.T) {
	r := model.Reminder{
		ID:          42,
		Name:        "Monstera",
		Type:        model.PlantIndoor,
		Days:        []model.Weekday{model.Wednesday, model.Saturday},
		TimesPerDay: 1,
		Times:       []model.TimeOfDay{model.NewTimeOfDay(7, 45)},
		WaterAmount: 300,
	}

	card := NewCard(r, at(7, 0), false)

	if card.Icon != "🪴" || card.TypeLabel != "Indoor plants" {
		t.Errorf("icon/label = %q %q", card.Icon, card.TypeLabel)
	}
	if card.DaysPerWeek != 2 || card.TimesPerDay != 1 || card.WaterAmount != 300 {
		t.Errorf("schedule boxes = %d/%d/%d", card.DaysPerWeek, card.TimesPerDay, card.WaterAmount)
	}
	if len(card.Days) != 7 {
		t.Fatalf("dots = %d, want 7", len(card.Days))
	}
	if card.Days[0].Label != "Sat" || !card.Days[0].Active {
		t.Errorf("first dot = %+v, want active Sat", card.Days[0])
	}
	if card.Days[1].Label != "Sun" || card.Days[1].Active {
		t.Errorf("second dot = %+v, want inactive Sun", card.Days[1])
	}
	if !card.Days[4].Active {
		t.Errorf("Wednesday dot = %+v, want active", card.Days[4])
	}
	if len(card.Times) != 1 || card.Times[0] != "7:45 AM" {
		t.Errorf("times = %v", card.Times)
	}
	if card.NextWatering != "in 45 minute(s)" || !card.Urgent {
		t.Errorf("next = %q urgent=%v", card.NextWatering, card.Urgent)
	}
	if !card.NeedsWater {
		t.Error("urgent and unwatered card should need water")
	}
	if card.Button != "💧 Water now" {
		t.Errorf("button = %q", card.Button)
	}
}

func TestNewCardWatered(t *testing.T) {
	r := model.Reminder{
		ID:    1,
		Name:  "Fern",
		Type:  model.PlantType("mystery"),
		Days:  []model.Weekday{model.Wednesday},
		Times: []model.TimeOfDay{model.NewTimeOfDay(7, 30)},
	}

	card := NewCard(r, at(7, 0), true)

	if card.NeedsWater {
		t.Error("watered card should not need water")
	}
	if !card.Urgent {
		t.Error("urgency does not depend on watered state")
	}
	if card.Button != "✓ Done" {
		t.Errorf("button = %q", card.Button)
	}
	if card.TypeLabel != "Plant" || card.Icon != "🌱" {
		t.Errorf("unknown type rendered as %q %q", card.TypeLabel, card.Icon)
	}
}

func TestCardsFromStore(t *testing.T) {
	s, _, _ := setupStore(t, newMemKV())
	rose, _, _ := seedGarden(t, s)
	s.MarkWatered(rose.ID)

	cards := s.Cards("today", "")
	if len(cards) != 2 {
		t.Fatalf("cards = %d, want 2", len(cards))
	}
	if cards[0].Name != "Rose Bush" || !cards[0].Watered {
		t.Errorf("first card = %+v", cards[0])
	}

	data, err := json.Marshal(cards[0])
	if err != nil {
		t.Fatalf("marshal card: %v", err)
	}
	var decoded map[string]any
	json.Unmarshal(data, &decoded)
	if decoded["next_watering"] != "in 30 minute(s)" {
		t.Errorf("next_watering = %v", decoded["next_watering"])
	}
}
