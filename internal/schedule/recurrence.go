/*
Copyright (C) 2026 OpenKiosk

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"time"

	"github.com/openkiosk/fleetd/internal/models"
)

// InScope reports whether the slot applies on the given calendar date.
//
// Time slots recur on their weekday set; an empty set makes the slot inert.
// Event slots with an empty weekday set are single occurrences anchored to
// RangeStart. Recurring slots with a date range only apply to dates within
// the range, inclusive on both bounds; a nil bound is unbounded on that
// side. Default slots are date-independent.
func InScope(slot *models.Slot, date time.Time) bool {
	switch slot.Kind {
	case models.SlotDefault:
		return true
	case models.SlotEvent:
		if len(slot.DaysOfWeek) == 0 {
			// One-shot occurrence: only on its anchor date.
			return slot.RangeStart != nil && sameCivilDate(date, *slot.RangeStart)
		}
		return slot.OnWeekday(date.Weekday()) && withinRange(slot, date)
	case models.SlotTime:
		return slot.OnWeekday(date.Weekday()) && withinRange(slot, date)
	default:
		return false
	}
}

func withinRange(slot *models.Slot, date time.Time) bool {
	d := CivilDate(date)
	if slot.RangeStart != nil && d.Before(CivilDate(*slot.RangeStart)) {
		return false
	}
	if slot.RangeEnd != nil && d.After(CivilDate(*slot.RangeEnd)) {
		return false
	}
	return true
}
