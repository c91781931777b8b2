/*
Copyright (C) 2026 OpenKiosk

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// SlotKind defines the three-tier slot priority classes.
type SlotKind string

const (
	// SlotDefault is the fallback shown when nothing else matches.
	SlotDefault SlotKind = "default"

	// SlotTime is a recurring, day-of-week-gated window of the day.
	SlotTime SlotKind = "time"

	// SlotEvent is a date-anchored slot that preempts time and default
	// slots once started.
	SlotEvent SlotKind = "event"
)

// MinutesPerDay bounds the window fields: From/To are minutes since
// midnight in [0, MinutesPerDay).
const MinutesPerDay = 1440

// Slot is a named playback rule on one player.
type Slot struct {
	ID       string   `gorm:"type:uuid;primaryKey"`
	PlayerID string   `gorm:"type:uuid;index:idx_slots_player"`
	Name     string   `gorm:"type:varchar(255)"`
	Kind     SlotKind `gorm:"type:varchar(16);index"`

	// IsDefault marks the single fallback slot of a player. Zero default
	// slots is valid; "no active slot" is then a reachable terminal state.
	IsDefault bool

	// WindowFrom/WindowTo are minutes since midnight. For time slots To is
	// mandatory and may be numerically below From (overnight wrap). For
	// event slots only From is meaningful.
	WindowFrom int
	WindowTo   int

	// DaysOfWeek holds ISO weekday codes (Mon=1 .. Sun=7). Empty on an
	// event slot means single occurrence; empty on a time slot makes the
	// slot inert (never matches).
	DaysOfWeek []int `gorm:"serializer:json"`

	// RangeStart/RangeEnd bound the calendar dates the recurrence applies
	// to, inclusive. Nil is unbounded on that side. A one-shot event has
	// RangeStart set and RangeEnd nil.
	RangeStart *time.Time
	RangeEnd   *time.Time

	// SortOrder is a deterministic tie-break within a priority class,
	// never a correctness signal.
	SortOrder int

	Items []SlotItem `gorm:"foreignKey:SlotID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SlotItem is one playable reference inside a slot.
type SlotItem struct {
	ID      string `gorm:"type:uuid;primaryKey"`
	SlotID  string `gorm:"type:uuid;index"`
	AssetID string `gorm:"type:uuid;index"`

	// DurationOverride replaces the asset's intrinsic duration in seconds.
	// Ignored when the referenced asset is a video.
	DurationOverride *int

	SortOrder int

	Asset *Asset `gorm:"foreignKey:AssetID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OnWeekday reports whether the slot recurs on the given weekday.
func (s *Slot) OnWeekday(d time.Weekday) bool {
	code := ISOWeekday(d)
	for _, wd := range s.DaysOfWeek {
		if wd == code {
			return true
		}
	}
	return false
}

// ISOWeekday converts a Go weekday (Sunday=0) to the ISO code (Mon=1..Sun=7).
func ISOWeekday(d time.Weekday) int {
	if d == time.Sunday {
		return 7
	}
	return int(d)
}
