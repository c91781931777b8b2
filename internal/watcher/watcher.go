/*
Copyright (C) 2026 OpenKiosk

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package watcher runs the periodic fleet sweep: it re-resolves every
// player's schedule, records slot transitions, and probes player
// reachability.
package watcher

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/openkiosk/fleetd/internal/events"
	"github.com/openkiosk/fleetd/internal/models"
	"github.com/openkiosk/fleetd/internal/schedule"
	"github.com/openkiosk/fleetd/internal/store"
	"github.com/openkiosk/fleetd/internal/telemetry"
)

// Watcher periodically evaluates the fleet.
type Watcher struct {
	store    *store.Service
	resolver *schedule.Resolver
	bus      store.Publisher
	logger   zerolog.Logger
	interval time.Duration
	client   *http.Client
}

// New creates a watcher.
func New(st *store.Service, resolver *schedule.Resolver, bus store.Publisher, interval time.Duration, logger zerolog.Logger) *Watcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Watcher{
		store:    st,
		resolver: resolver,
		bus:      bus,
		logger:   logger.With().Str("component", "watcher").Logger(),
		interval: interval,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Run evaluates the fleet on a fixed interval until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	w.logger.Info().Dur("interval", w.interval).Msg("fleet watcher started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// First pass immediately, not one interval in.
	w.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("fleet watcher stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// tick runs one sweep over all players.
func (w *Watcher) tick(ctx context.Context) {
	telemetry.WatcherTicksTotal.Inc()

	players, err := w.store.ListPlayers(ctx)
	if err != nil {
		telemetry.WatcherErrorsTotal.Inc()
		w.logger.Error().Err(err).Msg("list players failed")
		return
	}

	now := time.Now()
	online := 0
	for i := range players {
		player := &players[i]
		if w.probe(ctx, player) {
			online++
		}
		if err := w.evaluate(ctx, player, now); err != nil {
			telemetry.WatcherErrorsTotal.Inc()
			w.logger.Error().Err(err).Str("player_id", player.ID).Msg("evaluate player failed")
		}
	}
	telemetry.PlayersOnline.Set(float64(online))
}

// evaluate re-resolves one player's schedule and records a transition
// when the active slot differs from the previous pass.
func (w *Watcher) evaluate(ctx context.Context, player *models.Player, now time.Time) error {
	slots, err := w.store.ListSlots(ctx, player.ID)
	if err != nil {
		return err
	}

	res := w.resolver.Resolve(slots, localClock(player, now))

	var currentID, currentName string
	var kind models.SlotKind
	if res.Slot != nil {
		currentID = res.Slot.ID
		currentName = res.Slot.Name
		kind = res.Slot.Kind
	}

	if currentID == player.LastSlotID {
		return nil
	}

	w.logger.Info().
		Str("player_id", player.ID).
		Str("from_slot", player.LastSlotID).
		Str("to_slot", currentID).
		Msg("schedule change detected")

	if currentID != "" {
		telemetry.ScheduleChangesTotal.WithLabelValues(string(kind)).Inc()
		if err := w.store.RecordPlayback(ctx, player.ID, currentID, currentName, now); err != nil {
			w.logger.Error().Err(err).Str("player_id", player.ID).Msg("record playback failed")
		}
	}

	if w.bus != nil {
		w.bus.Publish(events.EventScheduleChange, events.Payload{
			"player_id": player.ID,
			"from_slot": player.LastSlotID,
			"to_slot":   currentID,
			"slot_name": currentName,
		})
	}

	if err := w.store.SetLastSlot(ctx, player.ID, currentID); err != nil {
		return err
	}
	player.LastSlotID = currentID
	return nil
}

// probe checks player reachability over HTTP. Players without a base
// URL are treated as unmanaged and left alone.
func (w *Watcher) probe(ctx context.Context, player *models.Player) bool {
	if player.BaseURL == "" {
		return player.Online
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, player.BaseURL, nil)
	if err != nil {
		return w.markOnline(ctx, player, false)
	}

	resp, err := w.client.Do(req)
	reachable := err == nil && resp.StatusCode < http.StatusInternalServerError
	if resp != nil {
		resp.Body.Close()
	}
	return w.markOnline(ctx, player, reachable)
}

// markOnline persists reachability and publishes a transition event
// when the state flips.
func (w *Watcher) markOnline(ctx context.Context, player *models.Player, online bool) bool {
	if player.Online != online {
		eventType := events.EventPlayerOffline
		if online {
			eventType = events.EventPlayerOnline
		}
		if w.bus != nil {
			w.bus.Publish(eventType, events.Payload{"player_id": player.ID})
		}
		w.logger.Info().Str("player_id", player.ID).Bool("online", online).Msg("player reachability changed")
	}

	if err := w.store.TouchPlayer(ctx, player.ID, online); err != nil {
		w.logger.Error().Err(err).Str("player_id", player.ID).Msg("touch player failed")
	}
	player.Online = online
	return online
}

func localClock(player *models.Player, now time.Time) time.Time {
	loc, err := time.LoadLocation(player.Timezone)
	if err != nil {
		return now.UTC()
	}
	return now.In(loc)
}
