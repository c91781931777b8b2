/*
Copyright (C) 2026 OpenKiosk

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/openkiosk/fleetd/internal/models"
)

func (a *API) handleSlotsList(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	if _, err := a.store.GetPlayer(r.Context(), playerID); err != nil {
		storeError(w, err)
		return
	}

	slots, err := a.store.ListSlots(r.Context(), playerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

func (a *API) handleSlotsCreate(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	if _, err := a.store.GetPlayer(r.Context(), playerID); err != nil {
		storeError(w, err)
		return
	}

	var req models.Slot
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	req.PlayerID = playerID

	if err := a.store.CreateSlot(r.Context(), &req); err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (a *API) handleSlotsGet(w http.ResponseWriter, r *http.Request) {
	slot, err := a.store.GetSlot(r.Context(), chi.URLParam(r, "slotID"))
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

func (a *API) handleSlotsUpdate(w http.ResponseWriter, r *http.Request) {
	slotID := chi.URLParam(r, "slotID")
	existing, err := a.store.GetSlot(r.Context(), slotID)
	if err != nil {
		storeError(w, err)
		return
	}

	var req models.Slot
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	req.ID = slotID
	req.PlayerID = existing.PlayerID

	if err := a.store.UpdateSlot(r.Context(), &req); err != nil {
		storeError(w, err)
		return
	}

	updated, err := a.store.GetSlot(r.Context(), slotID)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) handleSlotsDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.store.DeleteSlot(r.Context(), chi.URLParam(r, "slotID")); err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (a *API) handleItemsAdd(w http.ResponseWriter, r *http.Request) {
	var req models.SlotItem
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.AssetID == "" {
		writeError(w, http.StatusBadRequest, "asset_id_required")
		return
	}

	if err := a.store.AddItem(r.Context(), chi.URLParam(r, "slotID"), &req); err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (a *API) handleItemsReorder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemIDs []string `json:"item_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	if err := a.store.ReorderItems(r.Context(), chi.URLParam(r, "slotID"), req.ItemIDs); err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reordered"})
}

func (a *API) handleItemsUpdate(w http.ResponseWriter, r *http.Request) {
	var req models.SlotItem
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	req.ID = chi.URLParam(r, "itemID")

	if err := a.store.UpdateItem(r.Context(), &req); err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (a *API) handleItemsRemove(w http.ResponseWriter, r *http.Request) {
	if err := a.store.RemoveItem(r.Context(), chi.URLParam(r, "itemID")); err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func parseIntDefault(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
