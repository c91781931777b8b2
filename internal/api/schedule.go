/*
Copyright (C) 2026 OpenKiosk

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// handleScheduleStatus answers the dashboard poll: active slot,
// expanded playlist, and the next change instant.
func (a *API) handleScheduleStatus(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")

	now := time.Now()
	if at := r.URL.Query().Get("at"); at != "" {
		parsed, err := time.Parse(time.RFC3339, at)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_at_timestamp")
			return
		}
		now = parsed
	}

	resolved, err := a.status.PlayerStatus(r.Context(), playerID, now)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resolved)
}

// handleScheduleTimeline returns render-ready bars for a day or week grid.
func (a *API) handleScheduleTimeline(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")

	day := time.Now()
	if d := r.URL.Query().Get("date"); d != "" {
		parsed, err := time.Parse("2006-01-02", d)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date")
			return
		}
		day = parsed
	}

	span := r.URL.Query().Get("span")
	switch span {
	case "", "day":
		bars, err := a.status.PlayerTimeline(r.Context(), playerID, day)
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bars)
	case "week":
		bars, err := a.status.PlayerWeekTimeline(r.Context(), playerID, day)
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bars)
	default:
		writeError(w, http.StatusBadRequest, "invalid_span")
	}
}

// handleScheduleExportICal streams the player's schedule as iCalendar.
func (a *API) handleScheduleExportICal(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")

	// Default to the next 30 days
	start := time.Now()
	end := start.AddDate(0, 0, 30)

	if startStr := r.URL.Query().Get("start"); startStr != "" {
		if t, err := time.Parse("2006-01-02", startStr); err == nil {
			start = t
		}
	}
	if endStr := r.URL.Query().Get("end"); endStr != "" {
		if t, err := time.Parse("2006-01-02", endStr); err == nil {
			end = t
		}
	}

	result, err := a.exportSvc.ExportToICal(r.Context(), playerID, start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "export_failed")
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write(result.Data)
}
