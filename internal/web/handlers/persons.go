package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/kozaktomas/photoface/internal/database"
)

// PersonsHandler handles person curation endpoints.
type PersonsHandler struct {
	store *database.Store
}

// NewPersonsHandler creates a new persons handler.
func NewPersonsHandler(store *database.Store) *PersonsHandler {
	return &PersonsHandler{store: store}
}

// normalizePersonName trims whitespace and applies Unicode NFC so that
// visually identical names compare equal.
func normalizePersonName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// List returns all persons with their face counts.
func (h *PersonsHandler) List(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.PersonStats(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"persons": stats})
}

// Get returns one person.
func (h *PersonsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(w, r, "id")
	if !ok {
		return
	}

	person, err := h.store.GetPerson(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, person)
}

// RenameRequest represents a person rename request.
type RenameRequest struct {
	Name string `json:"name"`
}

// Rename gives a person a human curated name. Renaming confirms the
// person and all of its faces.
func (h *PersonsHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(w, r, "id")
	if !ok {
		return
	}

	var req RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	name := normalizePersonName(req.Name)
	if name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	if err := h.store.RenamePerson(r.Context(), id, name); err != nil {
		respondStoreError(w, err)
		return
	}

	log.Printf("renamed person %d to %s", id, sanitizeForLog(name))
	respondJSON(w, http.StatusOK, map[string]bool{"renamed": true})
}

// Confirm marks a person identity as human verified.
func (h *PersonsHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.ConfirmPerson(r.Context(), id); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"confirmed": true})
}

// MergeRequest represents a person merge request.
type MergeRequest struct {
	SourceID int64 `json:"source_id"`
}

// Merge moves every face of the source person into the target person and
// deletes the source.
func (h *PersonsHandler) Merge(w http.ResponseWriter, r *http.Request) {
	targetID, ok := urlParamID(w, r, "id")
	if !ok {
		return
	}

	var req MergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.SourceID == 0 {
		respondError(w, http.StatusBadRequest, "source_id is required")
		return
	}
	if req.SourceID == targetID {
		respondError(w, http.StatusBadRequest, "cannot merge a person into itself")
		return
	}

	if err := h.store.MergePersons(r.Context(), req.SourceID, targetID); err != nil {
		respondStoreError(w, err)
		return
	}

	log.Printf("merged person %d into %d", req.SourceID, targetID)
	respondJSON(w, http.StatusOK, map[string]bool{"merged": true})
}

// Delete removes a person identity. Its faces return to the unassigned
// pool for a future clustering pass.
func (h *PersonsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.DeletePerson(r.Context(), id); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// Faces returns the faces belonging to a person, best confidence first.
func (h *PersonsHandler) Faces(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(w, r, "id")
	if !ok {
		return
	}

	if _, err := h.store.GetPerson(r.Context(), id); err != nil {
		respondStoreError(w, err)
		return
	}

	faces, err := h.store.FacesByPerson(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"faces": faces})
}
