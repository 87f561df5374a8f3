package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/kozaktomas/photoface/internal/cluster"
	"github.com/kozaktomas/photoface/internal/config"
	"github.com/kozaktomas/photoface/internal/database"
)

// FacesHandler handles single-face curation endpoints.
type FacesHandler struct {
	config *config.Config
	store  *database.Store
}

// NewFacesHandler creates a new faces handler.
func NewFacesHandler(cfg *config.Config, store *database.Store) *FacesHandler {
	return &FacesHandler{config: cfg, store: store}
}

// Get returns one face.
func (h *FacesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(w, r, "id")
	if !ok {
		return
	}

	face, err := h.store.GetFace(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, face)
}

// Similar returns all faces whose similarity to the given one meets the
// threshold query parameter (default: the configured clustering threshold).
// The limit query parameter caps the result count (default 10).
func (h *FacesHandler) Similar(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(w, r, "id")
	if !ok {
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	threshold := h.config.Cluster.SimilarityThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || f < 0 || f >= 1 {
			respondError(w, http.StatusBadRequest, "invalid threshold")
			return
		}
		threshold = f
	}

	matches, err := cluster.FindSimilar(r.Context(), h.store, id, threshold, limit)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	results := make([]map[string]any, 0, len(matches))
	for _, m := range matches {
		face, err := h.store.GetFace(r.Context(), m.FaceID)
		if err != nil {
			continue
		}
		results = append(results, map[string]any{
			"face":       face,
			"similarity": m.Similarity,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"matches": results})
}

// MoveRequest represents a face reassignment request.
type MoveRequest struct {
	PersonID int64 `json:"person_id"`
}

// Move reassigns a face to another person.
func (h *FacesHandler) Move(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(w, r, "id")
	if !ok {
		return
	}

	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.PersonID == 0 {
		respondError(w, http.StatusBadRequest, "person_id is required")
		return
	}

	if _, err := h.store.GetPerson(r.Context(), req.PersonID); err != nil {
		respondStoreError(w, err)
		return
	}

	if err := h.store.MoveFaceToPerson(r.Context(), id, req.PersonID); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"moved": true})
}

// ConfirmRequest represents a per-face confirmation toggle.
type ConfirmRequest struct {
	IsPerson bool `json:"is_person"`
}

// Confirm toggles the human-confirmed flag on a face.
func (h *FacesHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(w, r, "id")
	if !ok {
		return
	}

	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if err := h.store.SetFacePersonStatus(r.Context(), id, req.IsPerson); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

// Delete removes a face detection entirely.
func (h *FacesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.DeleteFace(r.Context(), id); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
