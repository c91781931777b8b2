/*
Copyright (C) 2026 OpenKiosk

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"time"

	"github.com/openkiosk/fleetd/internal/models"
)

// EventActiveFunc decides whether an in-scope event slot is active at an
// instant. The boundary at which an event "finishes" is a product decision,
// so it is pluggable; the resolver's structure does not change with it.
type EventActiveFunc func(slot *models.Slot, now time.Time) bool

// WholeDayEvent is the conservative policy: once an event's start time has
// passed, the event remains active for the rest of that calendar day unless
// a later-starting event supersedes it.
func WholeDayEvent(slot *models.Slot, now time.Time) bool {
	return MinuteOfDay(now) >= slot.WindowFrom
}

// WindowEndEvent ends an event at its configured To minute when one is set,
// falling back to WholeDayEvent for events without an explicit end.
func WindowEndEvent(slot *models.Slot, now time.Time) bool {
	if slot.WindowTo == 0 || slot.WindowTo == slot.WindowFrom {
		return WholeDayEvent(slot, now)
	}
	return Window{From: slot.WindowFrom, To: slot.WindowTo}.Contains(MinuteOfDay(now))
}

// Config tunes a Resolver. Zero values select the defaults.
type Config struct {
	// EventActive selects the event-finished policy. Defaults to
	// WholeDayEvent.
	EventActive EventActiveFunc

	// FallbackItemSeconds is the effective duration for items whose asset
	// carries no intrinsic duration and no override. Defaults to 10.
	FallbackItemSeconds int

	// Horizon bounds the next-change look-ahead. Defaults to 24h.
	Horizon time.Duration
}

// Resolver decides the active slot for a player at an instant. It is
// stateless and safe for concurrent use across any number of players.
type Resolver struct {
	eventActive     EventActiveFunc
	fallbackSeconds int
	horizon         time.Duration
}

// NewResolver constructs a resolver with the given configuration.
func NewResolver(cfg Config) *Resolver {
	if cfg.EventActive == nil {
		cfg.EventActive = WholeDayEvent
	}
	if cfg.FallbackItemSeconds <= 0 {
		cfg.FallbackItemSeconds = 10
	}
	if cfg.Horizon <= 0 {
		cfg.Horizon = 24 * time.Hour
	}
	return &Resolver{
		eventActive:     cfg.EventActive,
		fallbackSeconds: cfg.FallbackItemSeconds,
		horizon:         cfg.Horizon,
	}
}

// Resolution is the outcome of one resolve call.
type Resolution struct {
	// Slot is the single active slot, or nil when nothing is scheduled.
	Slot *models.Slot

	// UsingDefault is true when Slot is the player's fallback slot.
	UsingDefault bool
}

// Resolve picks the single active slot at now. The priority law is
// event > time > default; sort_order only breaks ties within one class.
// A nil result means no content is scheduled, which is a valid state.
func (r *Resolver) Resolve(slots []models.Slot, now time.Time) Resolution {
	minute := MinuteOfDay(now)

	if best := r.pickEvent(slots, now, minute); best != nil {
		return Resolution{Slot: best}
	}
	if best := r.pickTime(slots, now, minute); best != nil {
		return Resolution{Slot: best}
	}
	if best := pickDefault(slots); best != nil {
		return Resolution{Slot: best, UsingDefault: true}
	}
	return Resolution{}
}

func (r *Resolver) pickEvent(slots []models.Slot, now time.Time, minute int) *models.Slot {
	var best *models.Slot
	bestElapsed := -1
	for i := range slots {
		s := &slots[i]
		if s.Kind != models.SlotEvent {
			continue
		}
		if !InScope(s, now) || !r.eventActive(s, now) {
			continue
		}
		elapsed := elapsedMinutes(s.WindowFrom, minute)
		if best == nil || elapsed < bestElapsed || (elapsed == bestElapsed && tieBreak(s, best)) {
			best = s
			bestElapsed = elapsed
		}
	}
	return best
}

func (r *Resolver) pickTime(slots []models.Slot, now time.Time, minute int) *models.Slot {
	var best *models.Slot
	bestElapsed := -1
	for i := range slots {
		s := &slots[i]
		if s.Kind != models.SlotTime {
			continue
		}
		if !timeSlotMatches(s, now, minute) {
			continue
		}
		elapsed := elapsedMinutes(s.WindowFrom, minute)
		if best == nil || elapsed < bestElapsed || (elapsed == bestElapsed && tieBreak(s, best)) {
			best = s
			bestElapsed = elapsed
		}
	}
	return best
}

// timeSlotMatches checks the window and the recurrence together. The tail
// of an overnight window belongs to the previous day's recurrence: a Monday
// 22:00-06:00 slot still matches at 02:00 on Tuesday.
func timeSlotMatches(s *models.Slot, now time.Time, minute int) bool {
	w := Window{From: s.WindowFrom, To: s.WindowTo}
	if !w.Contains(minute) {
		return false
	}
	if w.Wraps() && minute < w.To {
		return InScope(s, now.AddDate(0, 0, -1))
	}
	return InScope(s, now)
}

func pickDefault(slots []models.Slot) *models.Slot {
	var best *models.Slot
	for i := range slots {
		s := &slots[i]
		if s.Kind != models.SlotDefault && !s.IsDefault {
			continue
		}
		if best == nil || tieBreak(s, best) {
			best = s
		}
	}
	return best
}

// elapsedMinutes returns how long ago the window started, relative to the
// current minute of day. Most recently started wins, which handles the
// overnight wrap without special cases.
func elapsedMinutes(from, minute int) int {
	return (minute - from + models.MinutesPerDay) % models.MinutesPerDay
}

// tieBreak reports whether a should be preferred over b when both started
// at the same instant: lowest sort_order first, then lexical id.
func tieBreak(a, b *models.Slot) bool {
	if a.SortOrder != b.SortOrder {
		return a.SortOrder < b.SortOrder
	}
	return a.ID < b.ID
}

// ResolvedStatus is the point-in-time answer served on each poll.
type ResolvedStatus struct {
	ActiveSlotID   *string         `json:"active_slot_id"`
	ActiveSlotName string          `json:"active_slot_name,omitempty"`
	UsingDefault   bool            `json:"using_default"`
	NextChangeAt   *time.Time      `json:"next_change_at"`
	Playlist       []PlaylistEntry `json:"playlist"`
	TotalSlots     int             `json:"total_slots"`
}

// Status resolves the active slot, expands its playlist, and computes the
// next change instant in one call.
func (r *Resolver) Status(slots []models.Slot, now time.Time) ResolvedStatus {
	res := r.Resolve(slots, now)

	status := ResolvedStatus{
		UsingDefault: res.UsingDefault,
		NextChangeAt: r.NextChange(slots, now),
		Playlist:     []PlaylistEntry{},
		TotalSlots:   len(slots),
	}

	if res.Slot != nil {
		id := res.Slot.ID
		status.ActiveSlotID = &id
		status.ActiveSlotName = res.Slot.Name
		if playlist, err := r.Playlist(res.Slot); err == nil {
			status.Playlist = playlist
		}
	}

	return status
}
