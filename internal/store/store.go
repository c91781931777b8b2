/*
Copyright (C) 2026 OpenKiosk

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package store is the persistence boundary for players, slots, items
// and assets. All window and recurrence validation happens here, so the
// schedule resolver can assume well-formed inputs.
package store

import (
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/openkiosk/fleetd/internal/cache"
	"github.com/openkiosk/fleetd/internal/events"
)

var (
	// ErrPlayerNotFound indicates the player does not exist.
	ErrPlayerNotFound = errors.New("player not found")

	// ErrSlotNotFound indicates the slot does not exist.
	ErrSlotNotFound = errors.New("slot not found")

	// ErrItemNotFound indicates the slot item does not exist.
	ErrItemNotFound = errors.New("slot item not found")

	// ErrAssetNotFound indicates the asset does not exist.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrInvalidWindow indicates a window minute outside [0, 1440).
	ErrInvalidWindow = errors.New("window minutes must be in [0, 1440)")

	// ErrInvalidWeekday indicates a day-of-week code outside Mon=1..Sun=7.
	ErrInvalidWeekday = errors.New("weekday codes must be in 1..7")

	// ErrInvalidKind indicates an unknown slot kind.
	ErrInvalidKind = errors.New("unknown slot kind")

	// ErrInvalidRange indicates RangeEnd precedes RangeStart.
	ErrInvalidRange = errors.New("range end precedes range start")

	// ErrEventNeedsAnchor indicates an event slot with neither a date
	// anchor nor recurring weekdays.
	ErrEventNeedsAnchor = errors.New("event slot needs a start date or weekdays")

	// ErrDuplicateDefault indicates the player already has a default slot.
	ErrDuplicateDefault = errors.New("player already has a default slot")

	// ErrInvalidOverride indicates a non-positive duration override.
	ErrInvalidOverride = errors.New("duration override must be positive")
)

// Publisher is the event bus surface the store needs.
type Publisher interface {
	Publish(eventType events.EventType, payload events.Payload)
}

// Service provides CRUD over the fleet schema.
type Service struct {
	db     *gorm.DB
	bus    Publisher
	cache  *cache.Cache
	logger zerolog.Logger
}

// NewService creates a store service.
func NewService(db *gorm.DB, bus Publisher, c *cache.Cache, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		cache:  c,
		logger: logger.With().Str("component", "store").Logger(),
	}
}

func (s *Service) publish(eventType events.EventType, payload events.Payload) {
	if s.bus != nil {
		s.bus.Publish(eventType, payload)
	}
}
