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

// NextChange computes the next instant within the resolver's look-ahead
// horizon at which the active slot would change, or nil when no change
// occurs inside the horizon.
//
// Candidate boundaries are each slot's From and To minutes on every day the
// horizon touches, plus each midnight (a whole-day event ends there, and
// weekday recurrences flip there). Each candidate is re-resolved in
// ascending order until the outcome differs from the slot active at now.
func (r *Resolver) NextChange(slots []models.Slot, now time.Time) *time.Time {
	if len(slots) == 0 {
		return nil
	}

	current := r.Resolve(slots, now)
	limit := now.Add(r.horizon)

	candidates := boundaryInstants(slots, now, limit)
	for _, c := range candidates {
		res := r.Resolve(slots, c)
		if !sameActiveSlot(current, res) {
			changed := c
			return &changed
		}
	}
	return nil
}

func boundaryInstants(slots []models.Slot, now, limit time.Time) []time.Time {
	day := CivilDate(now)
	seen := make(map[int64]struct{})
	var out []time.Time

	add := func(t time.Time) {
		if !t.After(now) || t.After(limit) {
			return
		}
		key := t.Unix()
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}

	for !day.After(limit) {
		add(day)
		for i := range slots {
			s := &slots[i]
			switch s.Kind {
			case models.SlotTime:
				add(day.Add(time.Duration(s.WindowFrom) * time.Minute))
				add(day.Add(time.Duration(s.WindowTo) * time.Minute))
			case models.SlotEvent:
				add(day.Add(time.Duration(s.WindowFrom) * time.Minute))
				if s.WindowTo != 0 && s.WindowTo != s.WindowFrom {
					add(day.Add(time.Duration(s.WindowTo) * time.Minute))
				}
			}
		}
		day = day.AddDate(0, 0, 1)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func sameActiveSlot(a, b Resolution) bool {
	if a.Slot == nil || b.Slot == nil {
		return a.Slot == nil && b.Slot == nil
	}
	return a.Slot.ID == b.Slot.ID
}
