package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/kozaktomas/photoface/internal/database"
)

func TestPersonsHandler_Rename_ConfirmsPerson(t *testing.T) {
	store := newTestStore(t)
	router := newTestRouter(store)
	ctx := context.Background()

	id, err := store.CreatePerson(ctx, "Person_1")
	if err != nil {
		t.Fatal(err)
	}
	seedFace(t, store, id, []float32{1, 0, 0, 0})

	recorder := doRequest(t, router, "PUT", fmt.Sprintf("/api/v1/persons/%d/name", id),
		map[string]string{"name": "  Alice  "})
	assertStatusCode(t, recorder, http.StatusOK)

	person, err := store.GetPerson(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if person.Name != "Alice" {
		t.Errorf("expected trimmed name Alice, got %q", person.Name)
	}
	if !person.IsConfirmed {
		t.Error("renaming must confirm the person")
	}

	faces, err := store.FacesByPerson(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range faces {
		if !f.IsPerson {
			t.Error("renaming must confirm the person's faces")
		}
	}
}

func TestPersonsHandler_Rename_RejectsSentinel(t *testing.T) {
	store := newTestStore(t)
	router := newTestRouter(store)

	sentinelID, err := store.UnassignedPerson(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	recorder := doRequest(t, router, "PUT", fmt.Sprintf("/api/v1/persons/%d/name", sentinelID),
		map[string]string{"name": "Alice"})
	assertStatusCode(t, recorder, http.StatusUnprocessableEntity)
}

func TestPersonsHandler_Rename_EmptyName(t *testing.T) {
	store := newTestStore(t)
	router := newTestRouter(store)

	id, err := store.CreatePerson(context.Background(), "Person_1")
	if err != nil {
		t.Fatal(err)
	}

	recorder := doRequest(t, router, "PUT", fmt.Sprintf("/api/v1/persons/%d/name", id),
		map[string]string{"name": "   "})
	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestPersonsHandler_Merge(t *testing.T) {
	store := newTestStore(t)
	router := newTestRouter(store)
	ctx := context.Background()

	target, err := store.CreatePerson(ctx, "Alice")
	if err != nil {
		t.Fatal(err)
	}
	source, err := store.CreatePerson(ctx, "Person_2")
	if err != nil {
		t.Fatal(err)
	}
	seedFace(t, store, source, []float32{1, 0, 0, 0})

	recorder := doRequest(t, router, "POST", fmt.Sprintf("/api/v1/persons/%d/merge", target),
		map[string]int64{"source_id": source})
	assertStatusCode(t, recorder, http.StatusOK)

	if _, err := store.GetPerson(ctx, source); err == nil {
		t.Error("source person must be deleted after merge")
	}
	faces, err := store.FacesByPerson(ctx, target)
	if err != nil {
		t.Fatal(err)
	}
	if len(faces) != 1 {
		t.Errorf("expected 1 face on target after merge, got %d", len(faces))
	}
}

func TestPersonsHandler_Merge_SelfIsRejected(t *testing.T) {
	store := newTestStore(t)
	router := newTestRouter(store)

	id, err := store.CreatePerson(context.Background(), "Alice")
	if err != nil {
		t.Fatal(err)
	}

	recorder := doRequest(t, router, "POST", fmt.Sprintf("/api/v1/persons/%d/merge", id),
		map[string]int64{"source_id": id})
	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestPersonsHandler_Delete_ReturnsFacesToUnassigned(t *testing.T) {
	store := newTestStore(t)
	router := newTestRouter(store)
	ctx := context.Background()

	id, err := store.CreatePerson(ctx, "Person_1")
	if err != nil {
		t.Fatal(err)
	}
	seedFace(t, store, id, []float32{1, 0, 0, 0})

	recorder := doRequest(t, router, "DELETE", fmt.Sprintf("/api/v1/persons/%d", id), nil)
	assertStatusCode(t, recorder, http.StatusOK)

	unassigned, err := store.UnassignedFaces(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(unassigned) != 1 {
		t.Errorf("expected face back in unassigned pool, got %d", len(unassigned))
	}
}

func TestPersonsHandler_Delete_SentinelIsRejected(t *testing.T) {
	store := newTestStore(t)
	router := newTestRouter(store)

	sentinelID, err := store.UnassignedPerson(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	recorder := doRequest(t, router, "DELETE", fmt.Sprintf("/api/v1/persons/%d", sentinelID), nil)
	assertStatusCode(t, recorder, http.StatusUnprocessableEntity)
}

func TestPersonsHandler_Get_NotFound(t *testing.T) {
	store := newTestStore(t)
	router := newTestRouter(store)

	recorder := doRequest(t, router, "GET", "/api/v1/persons/9999", nil)
	assertStatusCode(t, recorder, http.StatusNotFound)
}

func TestPersonsHandler_List_IncludesFaceCounts(t *testing.T) {
	store := newTestStore(t)
	router := newTestRouter(store)
	ctx := context.Background()

	id, err := store.CreatePerson(ctx, "Alice")
	if err != nil {
		t.Fatal(err)
	}
	seedFace(t, store, id, []float32{1, 0, 0, 0})

	recorder := doRequest(t, router, "GET", "/api/v1/persons", nil)
	assertStatusCode(t, recorder, http.StatusOK)

	var resp struct {
		Persons []database.PersonStat `json:"persons"`
	}
	parseJSONResponse(t, recorder, &resp)

	found := false
	for _, p := range resp.Persons {
		if p.Name == "Alice" {
			found = true
			if p.ConfirmedFaces+p.UnconfirmedFaces != 1 {
				t.Errorf("expected 1 face for Alice, got %+v", p)
			}
		}
	}
	if !found {
		t.Error("Alice missing from person list")
	}
}
