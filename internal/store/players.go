/*
Copyright (C) 2026 OpenKiosk

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openkiosk/fleetd/internal/events"
	"github.com/openkiosk/fleetd/internal/models"
)

// RegisterPlayer creates a new player record.
func (s *Service) RegisterPlayer(ctx context.Context, player *models.Player) error {
	if player.ID == "" {
		player.ID = uuid.New().String()
	}
	if player.Timezone == "" {
		player.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(player.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", player.Timezone, err)
	}

	if err := s.db.WithContext(ctx).Create(player).Error; err != nil {
		return fmt.Errorf("create player: %w", err)
	}

	if s.cache != nil {
		s.cache.InvalidatePlayerList(ctx)
	}
	s.publish(events.EventPlayerCreated, events.Payload{"player_id": player.ID})

	s.logger.Info().Str("player_id", player.ID).Str("name", player.Name).Msg("player registered")
	return nil
}

// ListPlayers returns all players ordered by name.
func (s *Service) ListPlayers(ctx context.Context) ([]models.Player, error) {
	if s.cache != nil {
		if players, ok := s.cache.GetPlayerList(ctx); ok {
			return players, nil
		}
	}

	var players []models.Player
	if err := s.db.WithContext(ctx).Order("name").Find(&players).Error; err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}

	if s.cache != nil {
		s.cache.SetPlayerList(ctx, players)
	}
	return players, nil
}

// GetPlayer returns one player by ID.
func (s *Service) GetPlayer(ctx context.Context, id string) (*models.Player, error) {
	var player models.Player
	if err := s.db.WithContext(ctx).First(&player, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("get player: %w", err)
	}
	return &player, nil
}

// UpdatePlayer persists changes to a player.
func (s *Service) UpdatePlayer(ctx context.Context, player *models.Player) error {
	if player.Timezone != "" {
		if _, err := time.LoadLocation(player.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", player.Timezone, err)
		}
	}

	result := s.db.WithContext(ctx).Model(&models.Player{}).Where("id = ?", player.ID).Updates(player)
	if result.Error != nil {
		return fmt.Errorf("update player: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPlayerNotFound
	}

	if s.cache != nil {
		s.cache.InvalidatePlayerList(ctx)
	}
	s.publish(events.EventPlayerUpdated, events.Payload{"player_id": player.ID})
	return nil
}

// DeletePlayer removes a player and all its slots, items and assets.
func (s *Service) DeletePlayer(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var slotIDs []string
		if err := tx.Model(&models.Slot{}).Where("player_id = ?", id).Pluck("id", &slotIDs).Error; err != nil {
			return err
		}
		if len(slotIDs) > 0 {
			if err := tx.Where("slot_id IN ?", slotIDs).Delete(&models.SlotItem{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("player_id = ?", id).Delete(&models.Slot{}).Error; err != nil {
			return err
		}
		if err := tx.Where("player_id = ?", id).Delete(&models.Asset{}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ?", id).Delete(&models.Player{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrPlayerNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrPlayerNotFound) {
			return err
		}
		return fmt.Errorf("delete player: %w", err)
	}

	if s.cache != nil {
		s.cache.InvalidatePlayerList(ctx)
		s.cache.InvalidateSlots(ctx, id)
	}
	s.publish(events.EventPlayerDeleted, events.Payload{"player_id": id})

	s.logger.Info().Str("player_id", id).Msg("player deleted")
	return nil
}

// TouchPlayer records a successful contact with the player.
func (s *Service) TouchPlayer(ctx context.Context, id string, online bool) error {
	now := time.Now().UTC()
	updates := map[string]any{"online": online}
	if online {
		updates["last_seen_at"] = now
	}
	if err := s.db.WithContext(ctx).Model(&models.Player{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("touch player: %w", err)
	}
	return nil
}

// SetLastSlot stores the slot seen on the latest watcher pass.
func (s *Service) SetLastSlot(ctx context.Context, playerID, slotID string) error {
	if err := s.db.WithContext(ctx).Model(&models.Player{}).
		Where("id = ?", playerID).
		Update("last_slot_id", slotID).Error; err != nil {
		return fmt.Errorf("set last slot: %w", err)
	}
	return nil
}
