package handlers

import (
	"encoding/json"
	"net/http"
	"path/filepath"

	"github.com/kozaktomas/photoface/internal/database"
)

// AlbumsHandler handles album configuration endpoints.
type AlbumsHandler struct {
	store *database.Store
}

// NewAlbumsHandler creates a new albums handler.
func NewAlbumsHandler(store *database.Store) *AlbumsHandler {
	return &AlbumsHandler{store: store}
}

// List returns all configured albums.
func (h *AlbumsHandler) List(w http.ResponseWriter, r *http.Request) {
	albums, err := h.store.ListAlbums(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"albums": albums})
}

// SetAlbumRequest represents an album configuration request.
type SetAlbumRequest struct {
	OutputPath string `json:"output_path"`
}

// Set configures (or replaces) a person's export destination.
func (h *AlbumsHandler) Set(w http.ResponseWriter, r *http.Request) {
	personID, ok := urlParamID(w, r, "id")
	if !ok {
		return
	}

	var req SetAlbumRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.OutputPath == "" {
		respondError(w, http.StatusBadRequest, "output_path is required")
		return
	}

	abs, err := filepath.Abs(req.OutputPath)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid output path")
		return
	}

	if err := h.store.SetAlbum(r.Context(), personID, abs); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"set": true})
}

// Remove deletes a person's album configuration.
func (h *AlbumsHandler) Remove(w http.ResponseWriter, r *http.Request) {
	personID, ok := urlParamID(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.RemoveAlbum(r.Context(), personID); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

// Photos returns the solo/group partition for a person's album without
// copying anything, for previewing an export.
func (h *AlbumsHandler) Photos(w http.ResponseWriter, r *http.Request) {
	personID, ok := urlParamID(w, r, "id")
	if !ok {
		return
	}

	if _, err := h.store.GetPerson(r.Context(), personID); err != nil {
		respondStoreError(w, err)
		return
	}

	solo, err := h.store.SoloPhotos(r.Context(), personID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	group, err := h.store.GroupPhotos(r.Context(), personID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"solo":         solo,
		"with_friends": group,
	})
}
