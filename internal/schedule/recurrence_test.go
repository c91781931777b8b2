package schedule

import (
	"testing"
	"time"

	"github.com/openkiosk/fleetd/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func TestInScopeTimeSlot(t *testing.T) {
	weekdays := &models.Slot{
		Kind:       models.SlotTime,
		DaysOfWeek: []int{1, 2, 3, 4, 5}, // Mon-Fri
	}

	tests := []struct {
		name string
		slot *models.Slot
		date time.Time
		want bool
	}{
		{"weekday matches", weekdays, date(2026, time.March, 2), true},  // Monday
		{"weekend excluded", weekdays, date(2026, time.March, 7), false}, // Saturday
		{"sunday maps to 7", &models.Slot{Kind: models.SlotTime, DaysOfWeek: []int{7}}, date(2026, time.March, 1), true},
		{"empty weekday set is inert", &models.Slot{Kind: models.SlotTime}, date(2026, time.March, 2), false},
		{
			"range bounds recurrence",
			&models.Slot{
				Kind:       models.SlotTime,
				DaysOfWeek: []int{1},
				RangeStart: datePtr(2026, time.March, 1),
				RangeEnd:   datePtr(2026, time.March, 31),
			},
			date(2026, time.April, 6), // a Monday outside the range
			false,
		},
		{
			"range end is inclusive",
			&models.Slot{
				Kind:       models.SlotTime,
				DaysOfWeek: []int{2},
				RangeStart: datePtr(2026, time.March, 1),
				RangeEnd:   datePtr(2026, time.March, 31),
			},
			date(2026, time.March, 31), // Tuesday, last day of range
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InScope(tt.slot, tt.date); got != tt.want {
				t.Errorf("InScope(%s) = %v, want %v", tt.date.Format("2006-01-02"), got, tt.want)
			}
		})
	}
}

func TestInScopeOneShotEvent(t *testing.T) {
	oneShot := &models.Slot{
		Kind:       models.SlotEvent,
		RangeStart: datePtr(2026, time.March, 2),
	}

	if !InScope(oneShot, date(2026, time.March, 2)) {
		t.Error("one-shot event should be in scope on its anchor date")
	}
	if InScope(oneShot, date(2026, time.March, 3)) {
		t.Error("one-shot event should not be in scope on any other date")
	}

	// An event with neither weekdays nor an anchor date never matches.
	if InScope(&models.Slot{Kind: models.SlotEvent}, date(2026, time.March, 2)) {
		t.Error("unanchored event should never be in scope")
	}
}

func TestInScopeRecurringEvent(t *testing.T) {
	weekend := &models.Slot{
		Kind:       models.SlotEvent,
		DaysOfWeek: []int{6, 7}, // Sat, Sun
		RangeStart: datePtr(2026, time.March, 1),
		RangeEnd:   datePtr(2026, time.March, 31),
	}

	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{"saturday in range", date(2026, time.March, 7), true},
		{"sunday in range", date(2026, time.March, 1), true},
		{"weekday in range", date(2026, time.March, 4), false},
		{"saturday after range", date(2026, time.April, 4), false},
		{"saturday before range", date(2026, time.February, 28), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InScope(weekend, tt.date); got != tt.want {
				t.Errorf("InScope(%s) = %v, want %v", tt.date.Format("2006-01-02"), got, tt.want)
			}
		})
	}
}

func TestInScopeDefault(t *testing.T) {
	def := &models.Slot{Kind: models.SlotDefault, IsDefault: true}
	for _, d := range []time.Time{date(2026, time.March, 2), date(2030, time.December, 25)} {
		if !InScope(def, d) {
			t.Errorf("default slot should be in scope on %s", d.Format("2006-01-02"))
		}
	}
}
