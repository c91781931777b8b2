/*
Copyright (C) 2026 OpenKiosk

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// Player represents one signage device managed by the fleet.
type Player struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	Name        string `gorm:"uniqueIndex"`
	Description string `gorm:"type:text"`
	BaseURL     string
	Timezone    string `gorm:"type:varchar(64)"`
	Online      bool
	LastSeenAt  *time.Time

	// LastSlotID is the slot that was active on the previous watcher pass.
	// Used only for transition detection, never for resolution.
	LastSlotID string `gorm:"type:uuid"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AssetClass categorizes playable content by mimetype family.
type AssetClass string

const (
	AssetImage     AssetClass = "image"
	AssetVideo     AssetClass = "video"
	AssetWebpage   AssetClass = "webpage"
	AssetStreaming AssetClass = "streaming"
)

// Asset is a playable piece of content available on a player.
type Asset struct {
	ID       string     `gorm:"type:uuid;primaryKey"`
	PlayerID string     `gorm:"type:uuid;index"`
	Name     string     `gorm:"index"`
	Class    AssetClass `gorm:"type:varchar(16)"`
	URI      string

	// DurationSeconds is the intrinsic play length. For videos it is the
	// decoded media duration; for other classes it is the configured
	// dwell time.
	DurationSeconds int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PlaybackLog records slot transitions observed by the fleet watcher.
type PlaybackLog struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	PlayerID  string `gorm:"type:uuid;index:idx_playback_player_time"`
	SlotID    string `gorm:"type:uuid"`
	SlotName  string
	StartedAt time.Time `gorm:"index:idx_playback_player_time"`
}

// TableName overrides for GORM.
func (PlaybackLog) TableName() string {
	return "playback_log"
}
