package schedule

import (
	"testing"
	"time"

	"github.com/openkiosk/fleetd/internal/models"
)

func at(y int, m time.Month, d, hour, min int) time.Time {
	return time.Date(y, m, d, hour, min, 0, 0, time.UTC)
}

// fixtureSlots builds the end-to-end scenario: a fallback default, an
// "Office Hours" weekday time slot, and a "Lunch Special" one-shot event
// on 2026-03-02 (a Monday).
func fixtureSlots() []models.Slot {
	return []models.Slot{
		{
			ID:        "slot-default",
			Name:      "Fallback",
			Kind:      models.SlotDefault,
			IsDefault: true,
		},
		{
			ID:         "slot-office",
			Name:       "Office Hours",
			Kind:       models.SlotTime,
			WindowFrom: 9 * 60,
			WindowTo:   18 * 60,
			DaysOfWeek: []int{1, 2, 3, 4, 5},
		},
		{
			ID:         "slot-lunch",
			Name:       "Lunch Special",
			Kind:       models.SlotEvent,
			WindowFrom: 13 * 60,
			RangeStart: datePtr(2026, time.March, 2),
		},
	}
}

func TestResolvePriorityLaw(t *testing.T) {
	r := NewResolver(Config{})
	slots := fixtureSlots()

	tests := []struct {
		name         string
		now          time.Time
		wantSlot     string
		usingDefault bool
	}{
		{"time slot before event starts", at(2026, time.March, 2, 12, 59), "slot-office", false},
		{"event preempts time slot at start", at(2026, time.March, 2, 13, 0), "slot-lunch", false},
		{"event holds for the rest of the day", at(2026, time.March, 2, 18, 1), "slot-lunch", false},
		{"default outside all windows next day", at(2026, time.March, 3, 8, 0), "slot-default", true},
		{"event gone on the following day", at(2026, time.March, 3, 14, 0), "slot-office", false},
		{"default before event on anchor morning", at(2026, time.March, 2, 8, 0), "slot-default", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Resolve(slots, tt.now)
			if res.Slot == nil {
				t.Fatalf("Resolve() returned no slot, want %s", tt.wantSlot)
			}
			if res.Slot.ID != tt.wantSlot {
				t.Errorf("Resolve() = %s, want %s", res.Slot.ID, tt.wantSlot)
			}
			if res.UsingDefault != tt.usingDefault {
				t.Errorf("UsingDefault = %v, want %v", res.UsingDefault, tt.usingDefault)
			}
		})
	}
}

func TestResolveEndToEndScenario(t *testing.T) {
	// Per the product rule the event wins from 13:00, and with the
	// whole-day policy it holds through 18:01; the plain fallback case
	// needs a day without the event.
	r := NewResolver(Config{})
	slots := fixtureSlots()

	if got := r.Resolve(slots, at(2026, time.March, 2, 12, 59)); got.Slot.Name != "Office Hours" {
		t.Errorf("at 12:59 = %q, want Office Hours", got.Slot.Name)
	}
	if got := r.Resolve(slots, at(2026, time.March, 2, 13, 0)); got.Slot.Name != "Lunch Special" {
		t.Errorf("at 13:00 = %q, want Lunch Special", got.Slot.Name)
	}
	if got := r.Resolve(slots, at(2026, time.March, 3, 18, 1)); got.Slot.Name != "Fallback" {
		t.Errorf("at 18:01 next day = %q, want Fallback", got.Slot.Name)
	}
}

func TestResolveOvernightTimeSlot(t *testing.T) {
	r := NewResolver(Config{})
	slots := []models.Slot{
		{
			ID:         "slot-night",
			Name:       "Night Loop",
			Kind:       models.SlotTime,
			WindowFrom: 22 * 60,
			WindowTo:   6 * 60,
			DaysOfWeek: []int{1}, // Monday
		},
	}

	tests := []struct {
		name   string
		now    time.Time
		active bool
	}{
		{"monday evening", at(2026, time.March, 2, 23, 30), true},
		{"tuesday early morning tail", at(2026, time.March, 3, 2, 0), true},
		{"monday daytime", at(2026, time.March, 2, 10, 0), false},
		{"wednesday early morning", at(2026, time.March, 4, 2, 0), false},
		{"monday morning tail needs sunday recurrence", at(2026, time.March, 2, 2, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Resolve(slots, tt.now)
			if got := res.Slot != nil; got != tt.active {
				t.Errorf("active = %v, want %v", got, tt.active)
			}
		})
	}
}

func TestResolveAtMostOneSlot(t *testing.T) {
	r := NewResolver(Config{})
	slots := fixtureSlots()

	// Sweep a full day in 15 minute steps; every resolution must yield a
	// single deterministic answer.
	for minute := 0; minute < models.MinutesPerDay; minute += 15 {
		now := at(2026, time.March, 2, 0, 0).Add(time.Duration(minute) * time.Minute)
		first := r.Resolve(slots, now)
		second := r.Resolve(slots, now)
		if !sameActiveSlot(first, second) {
			t.Fatalf("resolution at %s is not idempotent", now)
		}
		if first.Slot == nil {
			t.Fatalf("fixture has a default slot; nil result at %s", now)
		}
	}
}

func TestResolveNoSlots(t *testing.T) {
	r := NewResolver(Config{})
	res := r.Resolve(nil, at(2026, time.March, 2, 12, 0))
	if res.Slot != nil || res.UsingDefault {
		t.Errorf("Resolve(nil) = %+v, want empty resolution", res)
	}
}

func TestResolveEventTieBreak(t *testing.T) {
	r := NewResolver(Config{})
	slots := []models.Slot{
		{
			ID:         "slot-b",
			Kind:       models.SlotEvent,
			WindowFrom: 9 * 60,
			SortOrder:  2,
			RangeStart: datePtr(2026, time.March, 2),
		},
		{
			ID:         "slot-a",
			Kind:       models.SlotEvent,
			WindowFrom: 9 * 60,
			SortOrder:  1,
			RangeStart: datePtr(2026, time.March, 2),
		},
		{
			ID:         "slot-later",
			Kind:       models.SlotEvent,
			WindowFrom: 11 * 60,
			SortOrder:  9,
			RangeStart: datePtr(2026, time.March, 2),
		},
	}

	// Same start: lowest sort_order wins, deterministically.
	res := r.Resolve(slots, at(2026, time.March, 2, 10, 0))
	if res.Slot == nil || res.Slot.ID != "slot-a" {
		t.Fatalf("tie-break picked %v, want slot-a", res.Slot)
	}

	// A later-starting event supersedes regardless of sort_order.
	res = r.Resolve(slots, at(2026, time.March, 2, 11, 30))
	if res.Slot == nil || res.Slot.ID != "slot-later" {
		t.Fatalf("latest-started = %v, want slot-later", res.Slot)
	}
}

func TestResolveOneShotEventBoundaries(t *testing.T) {
	r := NewResolver(Config{})
	slots := []models.Slot{
		{
			ID:         "slot-event",
			Kind:       models.SlotEvent,
			WindowFrom: 9 * 60,
			RangeStart: datePtr(2026, time.March, 2),
		},
	}

	if res := r.Resolve(slots, at(2026, time.March, 2, 8, 59)); res.Slot != nil {
		t.Error("event should not be active before its start minute")
	}
	if res := r.Resolve(slots, at(2026, time.March, 2, 9, 0)); res.Slot == nil {
		t.Error("event should be active at its start minute")
	}
	if res := r.Resolve(slots, at(2026, time.March, 9, 9, 0)); res.Slot != nil {
		t.Error("one-shot event should not fire on another date")
	}
}

func TestWindowEndEventPolicy(t *testing.T) {
	r := NewResolver(Config{EventActive: WindowEndEvent})
	slots := []models.Slot{
		{
			ID:         "slot-event",
			Kind:       models.SlotEvent,
			WindowFrom: 9 * 60,
			WindowTo:   10 * 60,
			RangeStart: datePtr(2026, time.March, 2),
		},
	}

	if res := r.Resolve(slots, at(2026, time.March, 2, 9, 30)); res.Slot == nil {
		t.Error("event should be active inside its explicit window")
	}
	if res := r.Resolve(slots, at(2026, time.March, 2, 10, 0)); res.Slot != nil {
		t.Error("window-end policy should end the event at its To minute")
	}

	// Without an explicit end the policy degrades to whole-day.
	open := []models.Slot{{
		ID:         "slot-open",
		Kind:       models.SlotEvent,
		WindowFrom: 9 * 60,
		RangeStart: datePtr(2026, time.March, 2),
	}}
	if res := r.Resolve(open, at(2026, time.March, 2, 23, 0)); res.Slot == nil {
		t.Error("event without explicit end should hold for the day")
	}
}

func TestStatusSnapshot(t *testing.T) {
	r := NewResolver(Config{})
	slots := fixtureSlots()

	status := r.Status(slots, at(2026, time.March, 2, 13, 0))
	if status.ActiveSlotID == nil || *status.ActiveSlotID != "slot-lunch" {
		t.Fatalf("ActiveSlotID = %v, want slot-lunch", status.ActiveSlotID)
	}
	if status.UsingDefault {
		t.Error("UsingDefault should be false for an event")
	}
	if status.TotalSlots != 3 {
		t.Errorf("TotalSlots = %d, want 3", status.TotalSlots)
	}
	if status.Playlist == nil {
		t.Error("Playlist should never be nil in a status snapshot")
	}

	empty := r.Status(nil, at(2026, time.March, 2, 13, 0))
	if empty.ActiveSlotID != nil || empty.UsingDefault || empty.NextChangeAt != nil {
		t.Errorf("empty status = %+v, want all-null snapshot", empty)
	}
}
