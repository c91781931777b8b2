/*
Copyright (C) 2026 OpenKiosk

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"errors"
	"sort"

	"github.com/openkiosk/fleetd/internal/models"
)

// ErrEmptySlot indicates a slot with no items. It is a valid "nothing to
// show" state, not a failure; callers must not treat it as fatal.
var ErrEmptySlot = errors.New("slot has no items")

// PlaylistEntry is one resolved item: what plays and for how long.
type PlaylistEntry struct {
	ItemID          string            `json:"item_id"`
	AssetID         string            `json:"asset_id"`
	AssetName       string            `json:"asset_name"`
	Class           models.AssetClass `json:"class"`
	DurationSeconds int               `json:"duration_seconds"`
}

// Playlist orders the slot's items and computes each item's effective play
// duration. Videos always play their intrinsic duration; a duration
// override on a video item is deliberately ignored. Items whose asset
// reference cannot be resolved are skipped rather than failing the whole
// playlist.
func (r *Resolver) Playlist(slot *models.Slot) ([]PlaylistEntry, error) {
	if len(slot.Items) == 0 {
		return nil, ErrEmptySlot
	}

	items := make([]models.SlotItem, len(slot.Items))
	copy(items, slot.Items)
	sort.Slice(items, func(i, j int) bool {
		if items[i].SortOrder != items[j].SortOrder {
			return items[i].SortOrder < items[j].SortOrder
		}
		return items[i].ID < items[j].ID
	})

	entries := make([]PlaylistEntry, 0, len(items))
	for _, item := range items {
		if item.Asset == nil {
			// Dangling reference; cascade deletion at the mutation
			// boundary should prevent this.
			continue
		}
		entries = append(entries, PlaylistEntry{
			ItemID:          item.ID,
			AssetID:         item.AssetID,
			AssetName:       item.Asset.Name,
			Class:           item.Asset.Class,
			DurationSeconds: r.effectiveDuration(item),
		})
	}
	return entries, nil
}

func (r *Resolver) effectiveDuration(item models.SlotItem) int {
	asset := item.Asset
	if asset.Class == models.AssetVideo {
		return asset.DurationSeconds
	}
	if item.DurationOverride != nil && *item.DurationOverride > 0 {
		return *item.DurationOverride
	}
	if asset.DurationSeconds > 0 {
		return asset.DurationSeconds
	}
	return r.fallbackSeconds
}
