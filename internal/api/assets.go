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

func (a *API) handleAssetsList(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	if _, err := a.store.GetPlayer(r.Context(), playerID); err != nil {
		storeError(w, err)
		return
	}

	assets, err := a.store.ListAssets(r.Context(), playerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, assets)
}

func (a *API) handleAssetsCreate(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	if _, err := a.store.GetPlayer(r.Context(), playerID); err != nil {
		storeError(w, err)
		return
	}

	var req models.Asset
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Name == "" || req.URI == "" {
		writeError(w, http.StatusBadRequest, "missing_required_fields")
		return
	}
	req.PlayerID = playerID

	if err := a.store.CreateAsset(r.Context(), &req); err != nil {
		writeError(w, http.StatusBadRequest, "create_failed")
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (a *API) handleAssetsGet(w http.ResponseWriter, r *http.Request) {
	asset, err := a.store.GetAsset(r.Context(), chi.URLParam(r, "assetID"))
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

func (a *API) handleAssetsUpdate(w http.ResponseWriter, r *http.Request) {
	var req models.Asset
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	req.ID = chi.URLParam(r, "assetID")

	if err := a.store.UpdateAsset(r.Context(), &req); err != nil {
		storeError(w, err)
		return
	}

	asset, err := a.store.GetAsset(r.Context(), req.ID)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

func (a *API) handleAssetsDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.store.DeleteAsset(r.Context(), chi.URLParam(r, "assetID")); err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
