/*
Copyright (C) 2026 OpenKiosk

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openkiosk/fleetd/internal/events"
	"github.com/openkiosk/fleetd/internal/models"
)

// validateSlot enforces the window and recurrence invariants at the
// mutation boundary. Reads never re-validate.
func validateSlot(slot *models.Slot) error {
	switch slot.Kind {
	case models.SlotDefault, models.SlotTime, models.SlotEvent:
	default:
		return ErrInvalidKind
	}

	if slot.WindowFrom < 0 || slot.WindowFrom >= models.MinutesPerDay {
		return ErrInvalidWindow
	}
	if slot.WindowTo < 0 || slot.WindowTo >= models.MinutesPerDay {
		return ErrInvalidWindow
	}

	for _, wd := range slot.DaysOfWeek {
		if wd < 1 || wd > 7 {
			return ErrInvalidWeekday
		}
	}

	if slot.RangeStart != nil && slot.RangeEnd != nil && slot.RangeEnd.Before(*slot.RangeStart) {
		return ErrInvalidRange
	}

	if slot.Kind == models.SlotEvent && slot.RangeStart == nil && len(slot.DaysOfWeek) == 0 {
		return ErrEventNeedsAnchor
	}

	for _, item := range slot.Items {
		if err := validateOverride(item.DurationOverride); err != nil {
			return err
		}
	}

	return nil
}

func validateOverride(override *int) error {
	if override != nil && *override <= 0 {
		return ErrInvalidOverride
	}
	return nil
}

// ensureSingleDefault rejects a default slot for a player that already
// has one. excludeID skips the slot being updated.
func ensureSingleDefault(tx *gorm.DB, playerID, excludeID string) error {
	var count int64
	q := tx.Model(&models.Slot{}).
		Where("player_id = ? AND is_default = ?", playerID, true)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return fmt.Errorf("check default slot: %w", err)
	}
	if count > 0 {
		return ErrDuplicateDefault
	}
	return nil
}

// ListSlots returns a player's slots with items and assets preloaded,
// ordered for deterministic resolution. This is the snapshot every
// schedule lookup runs against.
func (s *Service) ListSlots(ctx context.Context, playerID string) ([]models.Slot, error) {
	if s.cache != nil {
		if slots, ok := s.cache.GetSlots(ctx, playerID); ok {
			return slots, nil
		}
	}

	var slots []models.Slot
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order, id")
		}).
		Preload("Items.Asset").
		Where("player_id = ?", playerID).
		Order("sort_order, id").
		Find(&slots).Error
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}

	if s.cache != nil {
		s.cache.SetSlots(ctx, playerID, slots)
	}
	return slots, nil
}

// GetSlot returns one slot with items preloaded.
func (s *Service) GetSlot(ctx context.Context, id string) (*models.Slot, error) {
	var slot models.Slot
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order, id")
		}).
		Preload("Items.Asset").
		First(&slot, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("get slot: %w", err)
	}
	return &slot, nil
}

// CreateSlot validates and persists a new slot.
func (s *Service) CreateSlot(ctx context.Context, slot *models.Slot) error {
	if err := validateSlot(slot); err != nil {
		return err
	}
	if slot.ID == "" {
		slot.ID = uuid.New().String()
	}
	if slot.Kind == models.SlotDefault {
		slot.IsDefault = true
	}
	for i := range slot.Items {
		if slot.Items[i].ID == "" {
			slot.Items[i].ID = uuid.New().String()
		}
		slot.Items[i].SlotID = slot.ID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if slot.IsDefault {
			if err := ensureSingleDefault(tx, slot.PlayerID, ""); err != nil {
				return err
			}
		}
		return tx.Create(slot).Error
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateDefault) {
			return err
		}
		return fmt.Errorf("create slot: %w", err)
	}

	s.invalidateSchedule(ctx, slot.PlayerID)
	s.publish(events.EventSlotCreated, events.Payload{"slot_id": slot.ID, "player_id": slot.PlayerID})

	s.logger.Info().
		Str("slot_id", slot.ID).
		Str("player_id", slot.PlayerID).
		Str("kind", string(slot.Kind)).
		Msg("slot created")
	return nil
}

// UpdateSlot validates and persists slot changes. Items are managed
// through the item operations, not here.
func (s *Service) UpdateSlot(ctx context.Context, slot *models.Slot) error {
	if err := validateSlot(slot); err != nil {
		return err
	}

	if slot.Kind == models.SlotDefault {
		slot.IsDefault = true
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if slot.IsDefault {
			if err := ensureSingleDefault(tx, slot.PlayerID, slot.ID); err != nil {
				return err
			}
		}
		result := tx.Model(&models.Slot{}).
			Where("id = ?", slot.ID).
			Select("Name", "Kind", "IsDefault", "WindowFrom", "WindowTo",
				"DaysOfWeek", "RangeStart", "RangeEnd", "SortOrder").
			Updates(slot)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrSlotNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateDefault) || errors.Is(err, ErrSlotNotFound) {
			return err
		}
		return fmt.Errorf("update slot: %w", err)
	}

	s.invalidateSchedule(ctx, slot.PlayerID)
	s.publish(events.EventSlotUpdated, events.Payload{"slot_id": slot.ID, "player_id": slot.PlayerID})
	return nil
}

// DeleteSlot removes a slot and its items.
func (s *Service) DeleteSlot(ctx context.Context, id string) error {
	slot, err := s.GetSlot(ctx, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("slot_id = ?", id).Delete(&models.SlotItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Slot{}).Error
	})
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}

	s.invalidateSchedule(ctx, slot.PlayerID)
	s.publish(events.EventSlotDeleted, events.Payload{"slot_id": id, "player_id": slot.PlayerID})

	s.logger.Info().Str("slot_id", id).Msg("slot deleted")
	return nil
}

// AddItem appends an asset reference to a slot. A zero SortOrder places
// it after the current items.
func (s *Service) AddItem(ctx context.Context, slotID string, item *models.SlotItem) error {
	if err := validateOverride(item.DurationOverride); err != nil {
		return err
	}

	slot, err := s.GetSlot(ctx, slotID)
	if err != nil {
		return err
	}

	var asset models.Asset
	if err := s.db.WithContext(ctx).First(&asset, "id = ?", item.AssetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssetNotFound
		}
		return fmt.Errorf("check asset: %w", err)
	}

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	item.SlotID = slotID
	if item.SortOrder == 0 {
		item.SortOrder = len(slot.Items) + 1
	}

	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("add slot item: %w", err)
	}

	s.invalidateSchedule(ctx, slot.PlayerID)
	s.publish(events.EventSlotUpdated, events.Payload{"slot_id": slotID, "player_id": slot.PlayerID})
	return nil
}

// UpdateItem persists item changes (duration override, sort order).
func (s *Service) UpdateItem(ctx context.Context, item *models.SlotItem) error {
	if err := validateOverride(item.DurationOverride); err != nil {
		return err
	}

	var existing models.SlotItem
	if err := s.db.WithContext(ctx).First(&existing, "id = ?", item.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrItemNotFound
		}
		return fmt.Errorf("get slot item: %w", err)
	}

	updates := map[string]any{
		"duration_override": item.DurationOverride,
		"sort_order":        item.SortOrder,
	}
	if err := s.db.WithContext(ctx).Model(&models.SlotItem{}).
		Where("id = ?", item.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("update slot item: %w", err)
	}

	s.invalidateForSlot(ctx, existing.SlotID)
	return nil
}

// RemoveItem deletes an item from its slot.
func (s *Service) RemoveItem(ctx context.Context, itemID string) error {
	var existing models.SlotItem
	if err := s.db.WithContext(ctx).First(&existing, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrItemNotFound
		}
		return fmt.Errorf("get slot item: %w", err)
	}

	if err := s.db.WithContext(ctx).Delete(&models.SlotItem{}, "id = ?", itemID).Error; err != nil {
		return fmt.Errorf("remove slot item: %w", err)
	}

	s.invalidateForSlot(ctx, existing.SlotID)
	return nil
}

// ReorderItems rewrites the sort order of a slot's items to match the
// given ID sequence. IDs not in the slot are rejected.
func (s *Service) ReorderItems(ctx context.Context, slotID string, itemIDs []string) error {
	slot, err := s.GetSlot(ctx, slotID)
	if err != nil {
		return err
	}

	known := make(map[string]bool, len(slot.Items))
	for _, item := range slot.Items {
		known[item.ID] = true
	}
	for _, id := range itemIDs {
		if !known[id] {
			return fmt.Errorf("%w: %s", ErrItemNotFound, id)
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, id := range itemIDs {
			if err := tx.Model(&models.SlotItem{}).
				Where("id = ?", id).
				Update("sort_order", i+1).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("reorder slot items: %w", err)
	}

	s.invalidateSchedule(ctx, slot.PlayerID)
	s.publish(events.EventSlotUpdated, events.Payload{"slot_id": slotID, "player_id": slot.PlayerID})
	return nil
}

// invalidateSchedule drops the cached snapshot for one player.
func (s *Service) invalidateSchedule(ctx context.Context, playerID string) {
	if s.cache != nil {
		s.cache.InvalidateSlots(ctx, playerID)
	}
}

// invalidateForSlot resolves the owning player, then invalidates.
func (s *Service) invalidateForSlot(ctx context.Context, slotID string) {
	var slot models.Slot
	if err := s.db.WithContext(ctx).Select("id", "player_id").First(&slot, "id = ?", slotID).Error; err != nil {
		return
	}
	s.invalidateSchedule(ctx, slot.PlayerID)
	s.publish(events.EventSlotUpdated, events.Payload{"slot_id": slotID, "player_id": slot.PlayerID})
}
