/*
Copyright (C) 2026 OpenKiosk

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the fleet management HTTP surface.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/openkiosk/fleetd/internal/schedule"
	"github.com/openkiosk/fleetd/internal/status"
	"github.com/openkiosk/fleetd/internal/store"
)

// API exposes HTTP handlers.
type API struct {
	store     *store.Service
	status    *status.Service
	exportSvc *schedule.ExportService
	logger    zerolog.Logger
}

// New creates the API router wrapper.
func New(st *store.Service, statusSvc *status.Service, exportSvc *schedule.ExportService, logger zerolog.Logger) *API {
	return &API{
		store:     st,
		status:    statusSvc,
		exportSvc: exportSvc,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// Routes mounts API routes on the provided router.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		r.Route("/players", func(r chi.Router) {
			r.Get("/", a.handlePlayersList)
			r.Post("/", a.handlePlayersCreate)

			r.Route("/{playerID}", func(r chi.Router) {
				r.Get("/", a.handlePlayersGet)
				r.Put("/", a.handlePlayersUpdate)
				r.Delete("/", a.handlePlayersDelete)

				r.Route("/slots", func(r chi.Router) {
					r.Get("/", a.handleSlotsList)
					r.Post("/", a.handleSlotsCreate)
				})

				r.Route("/assets", func(r chi.Router) {
					r.Get("/", a.handleAssetsList)
					r.Post("/", a.handleAssetsCreate)
				})

				r.Route("/schedule", func(r chi.Router) {
					r.Get("/status", a.handleScheduleStatus)
					r.Get("/timeline", a.handleScheduleTimeline)
					r.Get("/export/ical", a.handleScheduleExportICal)
				})

				r.Get("/playback-log", a.handlePlaybackLog)
			})
		})

		r.Route("/slots/{slotID}", func(r chi.Router) {
			r.Get("/", a.handleSlotsGet)
			r.Put("/", a.handleSlotsUpdate)
			r.Delete("/", a.handleSlotsDelete)

			r.Route("/items", func(r chi.Router) {
				r.Post("/", a.handleItemsAdd)
				r.Put("/reorder", a.handleItemsReorder)
			})
		})

		r.Route("/items/{itemID}", func(r chi.Router) {
			r.Put("/", a.handleItemsUpdate)
			r.Delete("/", a.handleItemsRemove)
		})

		r.Route("/assets/{assetID}", func(r chi.Router) {
			r.Get("/", a.handleAssetsGet)
			r.Put("/", a.handleAssetsUpdate)
			r.Delete("/", a.handleAssetsDelete)
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// storeError maps store sentinels onto HTTP responses.
func storeError(w http.ResponseWriter, err error) {
	switch err {
	case store.ErrPlayerNotFound, store.ErrSlotNotFound, store.ErrItemNotFound, store.ErrAssetNotFound:
		writeError(w, http.StatusNotFound, "not_found")
	case store.ErrInvalidWindow, store.ErrInvalidWeekday, store.ErrInvalidKind,
		store.ErrInvalidRange, store.ErrEventNeedsAnchor, store.ErrInvalidOverride:
		writeError(w, http.StatusBadRequest, err.Error())
	case store.ErrDuplicateDefault:
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "db_error")
	}
}
