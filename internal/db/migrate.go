/*
Copyright (C) 2026 OpenKiosk

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"

	"github.com/openkiosk/fleetd/internal/models"
	"gorm.io/gorm"
)

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		&models.Player{},
		&models.Asset{},
		&models.Slot{},
		&models.SlotItem{},
		&models.PlaybackLog{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
