/*
Copyright (C) 2026 OpenKiosk

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"sort"
	"time"

	"github.com/openkiosk/fleetd/internal/models"
)

// TimelineLayer orders overlapping bars for rendering only.
type TimelineLayer int

const (
	// LayerBackground holds the default slot, painted as a full-day band.
	LayerBackground TimelineLayer = iota

	// LayerBars holds time slots as foreground bars.
	LayerBars

	// LayerMarkers holds events as point markers at their start minute.
	LayerMarkers
)

// TimelineBar is one visual interval on the day grid. It carries no
// decision logic of its own: scope and window math come from InScope and
// Window, so the picture can never disagree with the live resolution.
type TimelineBar struct {
	SlotID      string            `json:"slot_id"`
	SlotName    string            `json:"slot_name"`
	Kind        models.SlotKind   `json:"kind"`
	Date        time.Time         `json:"date"`
	StartMinute int               `json:"start_minute"`
	EndMinute   int               `json:"end_minute"`
	Marker      bool              `json:"marker"`
	Layer       TimelineLayer     `json:"layer"`
}

// ProjectDay maps every slot onto a single-day grid. Overnight time slots
// are split at midnight: the evening segment appears on the recurrence day
// and the morning tail on the following day.
func ProjectDay(slots []models.Slot, date time.Time) []TimelineBar {
	day := CivilDate(date)
	prev := day.AddDate(0, 0, -1)

	var bars []TimelineBar
	for i := range slots {
		s := &slots[i]
		switch s.Kind {
		case models.SlotDefault:
			bars = append(bars, bar(s, day, 0, models.MinutesPerDay, false, LayerBackground))
		case models.SlotTime:
			w := Window{From: s.WindowFrom, To: s.WindowTo}
			if w.From == w.To {
				continue
			}
			if !w.Wraps() {
				if InScope(s, day) {
					bars = append(bars, bar(s, day, w.From, w.To, false, LayerBars))
				}
				continue
			}
			if InScope(s, day) {
				bars = append(bars, bar(s, day, w.From, models.MinutesPerDay, false, LayerBars))
			}
			if InScope(s, prev) {
				bars = append(bars, bar(s, day, 0, w.To, false, LayerBars))
			}
		case models.SlotEvent:
			if InScope(s, day) {
				bars = append(bars, bar(s, day, s.WindowFrom, s.WindowFrom, true, LayerMarkers))
			}
		}
	}

	sort.Slice(bars, func(i, j int) bool {
		if bars[i].Layer != bars[j].Layer {
			return bars[i].Layer < bars[j].Layer
		}
		if bars[i].StartMinute != bars[j].StartMinute {
			return bars[i].StartMinute < bars[j].StartMinute
		}
		return bars[i].SlotID < bars[j].SlotID
	})
	return bars
}

// ProjectWeek maps every slot onto a 7-day grid starting at the given day.
func ProjectWeek(slots []models.Slot, start time.Time) []TimelineBar {
	day := CivilDate(start)
	var bars []TimelineBar
	for i := 0; i < 7; i++ {
		bars = append(bars, ProjectDay(slots, day.AddDate(0, 0, i))...)
	}
	return bars
}

func bar(s *models.Slot, date time.Time, from, to int, marker bool, layer TimelineLayer) TimelineBar {
	return TimelineBar{
		SlotID:      s.ID,
		SlotName:    s.Name,
		Kind:        s.Kind,
		Date:        date,
		StartMinute: from,
		EndMinute:   to,
		Marker:      marker,
		Layer:       layer,
	}
}
