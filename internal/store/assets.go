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

// CreateAsset persists a new asset.
func (s *Service) CreateAsset(ctx context.Context, asset *models.Asset) error {
	switch asset.Class {
	case models.AssetImage, models.AssetVideo, models.AssetWebpage, models.AssetStreaming:
	default:
		return fmt.Errorf("unknown asset class %q", asset.Class)
	}
	if asset.ID == "" {
		asset.ID = uuid.New().String()
	}

	if err := s.db.WithContext(ctx).Create(asset).Error; err != nil {
		return fmt.Errorf("create asset: %w", err)
	}

	if s.cache != nil {
		s.cache.SetAsset(ctx, asset)
	}
	s.logger.Info().Str("asset_id", asset.ID).Str("class", string(asset.Class)).Msg("asset created")
	return nil
}

// ListAssets returns a player's assets ordered by name.
func (s *Service) ListAssets(ctx context.Context, playerID string) ([]models.Asset, error) {
	var assets []models.Asset
	if err := s.db.WithContext(ctx).Where("player_id = ?", playerID).Order("name").Find(&assets).Error; err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	return assets, nil
}

// GetAsset returns one asset by ID.
func (s *Service) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	if s.cache != nil {
		if asset, ok := s.cache.GetAsset(ctx, id); ok {
			return asset, nil
		}
	}

	var asset models.Asset
	if err := s.db.WithContext(ctx).First(&asset, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("get asset: %w", err)
	}

	if s.cache != nil {
		s.cache.SetAsset(ctx, &asset)
	}
	return &asset, nil
}

// UpdateAsset persists asset changes.
func (s *Service) UpdateAsset(ctx context.Context, asset *models.Asset) error {
	result := s.db.WithContext(ctx).Model(&models.Asset{}).Where("id = ?", asset.ID).Updates(asset)
	if result.Error != nil {
		return fmt.Errorf("update asset: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAssetNotFound
	}

	if s.cache != nil {
		s.cache.InvalidateAsset(ctx, asset.ID)
		s.cache.InvalidateAllSlots(ctx)
	}
	s.publish(events.EventAssetUpdated, events.Payload{"asset_id": asset.ID, "player_id": asset.PlayerID})
	return nil
}

// DeleteAsset removes an asset and every slot item that references it.
// Slots keep running; a slot left without items resolves as empty.
func (s *Service) DeleteAsset(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("asset_id = ?", id).Delete(&models.SlotItem{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.Asset{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrAssetNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAssetNotFound) {
			return err
		}
		return fmt.Errorf("delete asset: %w", err)
	}

	if s.cache != nil {
		s.cache.InvalidateAsset(ctx, id)
		s.cache.InvalidateAllSlots(ctx)
	}
	s.publish(events.EventAssetDeleted, events.Payload{"asset_id": id})

	s.logger.Info().Str("asset_id", id).Msg("asset deleted")
	return nil
}
