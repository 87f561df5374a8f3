package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/kozaktomas/photoface/internal/database"
)

// FoldersHandler handles folder registration endpoints.
type FoldersHandler struct {
	store *database.Store
}

// NewFoldersHandler creates a new folders handler.
func NewFoldersHandler(store *database.Store) *FoldersHandler {
	return &FoldersHandler{store: store}
}

// List returns all registered folders.
func (h *FoldersHandler) List(w http.ResponseWriter, r *http.Request) {
	folders, err := h.store.ListFolders(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"folders": folders})
}

// AddFolderRequest represents a folder registration request.
type AddFolderRequest struct {
	Path string `json:"path"`
}

// Add registers a folder. Re-registering an existing path returns the
// existing folder.
func (h *FoldersHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Path == "" {
		respondError(w, http.StatusBadRequest, "path is required")
		return
	}

	abs, err := filepath.Abs(req.Path)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		respondError(w, http.StatusBadRequest, "path is not an existing directory")
		return
	}

	id, err := h.store.AddFolder(r.Context(), abs)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	folder, err := h.store.GetFolder(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	log.Printf("registered folder %s", sanitizeForLog(abs))
	respondJSON(w, http.StatusCreated, folder)
}

// Get returns one folder with its per-status image counts.
func (h *FoldersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(w, r, "id")
	if !ok {
		return
	}

	folder, err := h.store.GetFolder(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	counts, err := h.store.FolderImageCounts(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"folder": folder,
		"images": counts,
		"total":  counts.Total(),
	})
}

// Remove deletes a folder and, through cascades, its images and faces.
func (h *FoldersHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.RemoveFolder(r.Context(), id); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"removed": true})
}
