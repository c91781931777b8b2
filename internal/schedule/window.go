/*
Copyright (C) 2026 OpenKiosk

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package schedule implements slot resolution for signage players: deciding,
// for a given instant, which configured slot is active, what it plays, and
// when the next transition occurs. Resolution is a pure function over an
// immutable slot snapshot; the package performs no I/O.
package schedule

import "time"

// Window is a time-of-day interval in minutes since midnight. To may be
// numerically below From, in which case the window wraps past midnight.
type Window struct {
	From int
	To   int
}

// Wraps reports whether the window crosses midnight.
func (w Window) Wraps() bool {
	return w.To <= w.From
}

// Contains reports whether the half-open interval covers the given minute
// of the day. A window with From == To is degenerate and never matches.
func (w Window) Contains(minute int) bool {
	if w.From == w.To {
		return false
	}
	if w.From < w.To {
		return minute >= w.From && minute < w.To
	}
	return minute >= w.From || minute < w.To
}

// MinuteOfDay returns t's minutes since midnight in t's location.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// CivilDate truncates t to midnight in t's location.
func CivilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sameCivilDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
