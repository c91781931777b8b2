/*
Copyright (C) 2026 OpenKiosk

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openkiosk/fleetd/internal/models"
)

func (a *API) handlePlayersList(w http.ResponseWriter, r *http.Request) {
	players, err := a.store.ListPlayers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, players)
}

func (a *API) handlePlayersCreate(w http.ResponseWriter, r *http.Request) {
	var req models.Player
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name_required")
		return
	}

	if err := a.store.RegisterPlayer(r.Context(), &req); err != nil {
		a.logger.Error().Err(err).Msg("player create failed")
		writeError(w, http.StatusBadRequest, "create_failed")
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (a *API) handlePlayersGet(w http.ResponseWriter, r *http.Request) {
	player, err := a.store.GetPlayer(r.Context(), chi.URLParam(r, "playerID"))
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, player)
}

func (a *API) handlePlayersUpdate(w http.ResponseWriter, r *http.Request) {
	var req models.Player
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	req.ID = chi.URLParam(r, "playerID")

	if err := a.store.UpdatePlayer(r.Context(), &req); err != nil {
		storeError(w, err)
		return
	}

	player, err := a.store.GetPlayer(r.Context(), req.ID)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, player)
}

func (a *API) handlePlayersDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.store.DeletePlayer(r.Context(), chi.URLParam(r, "playerID")); err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (a *API) handlePlaybackLog(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	if _, err := a.store.GetPlayer(r.Context(), playerID); err != nil {
		storeError(w, err)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit = parseIntDefault(v, 0)
	}

	entries, err := a.store.ListPlayback(r.Context(), playerID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
