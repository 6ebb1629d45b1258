package model

import (
	"slices"
	"time"
)

// PlantType tags a reminder with a plant category. The empty value means
// unspecified.
type PlantType string

const (
	PlantVegetables  PlantType = "vegetables"
	PlantFruits      PlantType = "fruits"
	PlantFlowers     PlantType = "flowers"
	PlantSucculents  PlantType = "succulents"
	PlantHerbs       PlantType = "herbs"
	PlantTrees       PlantType = "trees"
	PlantIndoor      PlantType = "indoor"
	PlantOther       PlantType = "other"
	PlantUnspecified PlantType = ""
)

type plantInfo struct {
	label string
	icon  string
}

var plantTypes = map[PlantType]plantInfo{
	PlantVegetables:  {"Vegetables", "🥬"},
	PlantFruits:      {"Fruits", "🍎"},
	PlantFlowers:     {"Flowers", "🌸"},
	PlantSucculents:  {"Succulents", "🌵"},
	PlantHerbs:       {"Herbs", "🌿"},
	PlantTrees:       {"Trees", "🌳"},
	PlantIndoor:      {"Indoor plants", "🪴"},
	PlantOther:       {"Other", "🌱"},
	PlantUnspecified: {"Plant", "🌱"},
}

// Label returns the display name for the type. Unknown types are "Plant".
func (p PlantType) Label() string {
	if info, ok := plantTypes[p]; ok {
		return info.label
	}
	return "Plant"
}

// Icon returns the emoji for the type. Unknown types get the generic sprout.
func (p PlantType) Icon() string {
	if info, ok := plantTypes[p]; ok {
		return info.icon
	}
	return "🌱"
}

// Known reports whether p is one of the fixed plant categories.
func (p PlantType) Known() bool {
	_, ok := plantTypes[p]
	return ok
}

// Reminder is a scheduled watering task for one named plant.
type Reminder struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Type        PlantType   `json:"type"`
	Days        []Weekday   `json:"days"`
	TimesPerDay int         `json:"timesPerDay"`
	Times       []TimeOfDay `json:"times"`
	WaterAmount int         `json:"waterAmount"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// Clone returns a deep copy so callers cannot mutate store-owned slices.
func (r Reminder) Clone() Reminder {
	r.Days = slices.Clone(r.Days)
	r.Times = slices.Clone(r.Times)
	return r
}

// ScheduledOn reports whether the reminder is active on d.
func (r Reminder) ScheduledOn(d Weekday) bool {
	return ContainsDay(r.Days, d)
}

// Draft holds user-submitted, not yet validated reminder fields.
type Draft struct {
	Name        string      `json:"name"`
	Type        PlantType   `json:"type"`
	Days        []Weekday   `json:"days"`
	TimesPerDay int         `json:"timesPerDay"`
	Times       []TimeOfDay `json:"times"`
	WaterAmount int         `json:"waterAmount"`
}
