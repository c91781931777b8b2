/*
Copyright (C) 2026 OpenKiosk

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openkiosk/fleetd/internal/models"
)

// RecordPlayback appends a slot transition to the playback log.
func (s *Service) RecordPlayback(ctx context.Context, playerID, slotID, slotName string, startedAt time.Time) error {
	entry := models.PlaybackLog{
		ID:        uuid.New().String(),
		PlayerID:  playerID,
		SlotID:    slotID,
		SlotName:  slotName,
		StartedAt: startedAt.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("record playback: %w", err)
	}
	return nil
}

// ListPlayback returns the most recent playback entries for a player,
// newest first.
func (s *Service) ListPlayback(ctx context.Context, playerID string, limit int) ([]models.PlaybackLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var entries []models.PlaybackLog
	err := s.db.WithContext(ctx).
		Where("player_id = ?", playerID).
		Order("started_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list playback: %w", err)
	}
	return entries, nil
}

// PrunePlayback deletes playback entries older than the cutoff and
// returns the number removed.
func (s *Service) PrunePlayback(ctx context.Context, olderThan time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("started_at < ?", olderThan.UTC()).
		Delete(&models.PlaybackLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("prune playback: %w", result.Error)
	}
	return result.RowsAffected, nil
}
