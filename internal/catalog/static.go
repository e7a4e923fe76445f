package catalog

import (
	"context"

	"github.com/Shivanand-hulikatti/meeting-registration/internal/model"
)

func age(n int) *int { return &n }

var staticEvents = []model.Event{
	{ID: "1", Name: "100m", Category: "track"},
	{ID: "2", Name: "200m", Category: "track"},
	{ID: "3", Name: "400m", Category: "track"},
	{ID: "4", Name: "800m", Category: "track"},
	{ID: "5", Name: "1500m", Category: "track"},
	{ID: "6", Name: "5000m", Category: "track"},
	{ID: "7", Name: "10000m", Category: "track"},
	{ID: "8", Name: "Long Jump", Category: "field"},
	{ID: "9", Name: "High Jump", Category: "field"},
	{ID: "10", Name: "Shot Put", Category: "field"},
	{ID: "11", Name: "Discus", Category: "field"},
	{ID: "12", Name: "Javelin", Category: "field"},
}

var staticAgeGroups = []model.AgeGroup{
	{ID: "1", Name: "Under 15", MaxAge: age(14)},
	{ID: "2", Name: "Under 17", MaxAge: age(16)},
	{ID: "3", Name: "Under 20", MaxAge: age(19)},
	{ID: "4", Name: "Senior", MinAge: age(20), MaxAge: age(34)},
	{ID: "5", Name: "Veteran 35+", MinAge: age(35), MaxAge: age(39)},
	{ID: "6", Name: "Veteran 40+", MinAge: age(40), MaxAge: age(44)},
	{ID: "7", Name: "Veteran 45+", MinAge: age(45), MaxAge: age(49)},
	{ID: "8", Name: "Veteran 50+", MinAge: age(50)},
}

// Static is the fixture catalog used when no catalog store is configured.
// It mirrors the rows seeded by the schema migrations.
type Static struct{}

// Events returns a copy of the fixture events.
func (Static) Events(context.Context) ([]model.Event, error) {
	return append([]model.Event(nil), staticEvents...), nil
}

// AgeGroups returns a copy of the fixture age groups.
func (Static) AgeGroups(context.Context) ([]model.AgeGroup, error) {
	return append([]model.AgeGroup(nil), staticAgeGroups...), nil
}
