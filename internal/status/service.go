/*
Copyright (C) 2026 OpenKiosk

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package status answers "what is this player showing right now" by
// combining the stored slot snapshot with the schedule resolver.
package status

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/openkiosk/fleetd/internal/models"
	"github.com/openkiosk/fleetd/internal/schedule"
	"github.com/openkiosk/fleetd/internal/store"
	"github.com/openkiosk/fleetd/internal/telemetry"
)

// Service resolves live schedule status for players.
type Service struct {
	store    *store.Service
	resolver *schedule.Resolver
	logger   zerolog.Logger
}

// NewService creates a status service.
func NewService(st *store.Service, resolver *schedule.Resolver, logger zerolog.Logger) *Service {
	return &Service{
		store:    st,
		resolver: resolver,
		logger:   logger.With().Str("component", "status").Logger(),
	}
}

// playerClock returns the current wall time in the player's timezone.
// Schedule windows are local, resolving in UTC would shift every window
// by the player's offset.
func playerClock(player *models.Player, now time.Time) time.Time {
	loc, err := time.LoadLocation(player.Timezone)
	if err != nil {
		return now.UTC()
	}
	return now.In(loc)
}

// PlayerStatus resolves the active slot, playlist and next change for
// one player at the given instant.
func (s *Service) PlayerStatus(ctx context.Context, playerID string, now time.Time) (*schedule.ResolvedStatus, error) {
	ctx, span := telemetry.StartSpan(ctx, "fleetd.status", "status.player_status")
	defer span.End()

	player, err := s.store.GetPlayer(ctx, playerID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	slots, err := s.store.ListSlots(ctx, playerID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("load slot snapshot: %w", err)
	}

	start := time.Now()
	resolved := s.resolver.Status(slots, playerClock(player, now))
	telemetry.ResolveDuration.Observe(time.Since(start).Seconds())

	telemetry.AddSpanAttributes(span, map[string]any{
		"player.id":              playerID,
		"schedule.slot_count":    len(slots),
		"schedule.using_default": resolved.UsingDefault,
	})

	return &resolved, nil
}

// PlayerTimeline projects one civil day of a player's schedule onto
// render-ready bars.
func (s *Service) PlayerTimeline(ctx context.Context, playerID string, day time.Time) ([]schedule.TimelineBar, error) {
	player, err := s.store.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}

	slots, err := s.store.ListSlots(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("load slot snapshot: %w", err)
	}

	return schedule.ProjectDay(slots, playerClock(player, day)), nil
}

// PlayerWeekTimeline projects seven civil days starting at the given day.
func (s *Service) PlayerWeekTimeline(ctx context.Context, playerID string, start time.Time) ([]schedule.TimelineBar, error) {
	player, err := s.store.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}

	slots, err := s.store.ListSlots(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("load slot snapshot: %w", err)
	}

	return schedule.ProjectWeek(slots, playerClock(player, start)), nil
}
