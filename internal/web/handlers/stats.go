package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/kozaktomas/photoface/internal/database"
)

// StatsHandler handles library statistics and settings endpoints.
type StatsHandler struct {
	store *database.Store
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(store *database.Store) *StatsHandler {
	return &StatsHandler{store: store}
}

// Get returns library-wide counters.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	folders, err := h.store.ListFolders(ctx)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	images, err := h.store.CountImages(ctx)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	faces, err := h.store.CountFaces(ctx)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	pending, err := h.store.CountImagesByStatus(ctx, database.StatusPending)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	failed, err := h.store.CountImagesByStatus(ctx, database.StatusError)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	persons, err := h.store.PersonStats(ctx)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	confirmed := 0
	for _, p := range persons {
		if p.IsConfirmed {
			confirmed++
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"folders":           len(folders),
		"images":            images,
		"pending_images":    pending,
		"error_images":      failed,
		"faces":             faces,
		"persons":           len(persons),
		"confirmed_persons": confirmed,
	})
}

// Settings returns the persisted settings map.
func (h *StatsHandler) Settings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.AllSettings(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"settings": settings})
}

// UpdateSettingsRequest carries settings keys to persist.
type UpdateSettingsRequest map[string]string

// UpdateSettings persists the given settings keys.
func (h *StatsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if len(req) == 0 {
		respondError(w, http.StatusBadRequest, "no settings given")
		return
	}

	for key, value := range req {
		if key == "" {
			respondError(w, http.StatusBadRequest, "empty setting key")
			return
		}
		if err := h.store.SetSetting(r.Context(), key, value); err != nil {
			respondStoreError(w, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]bool{"updated": true})
}
