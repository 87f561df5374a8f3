package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photoface/internal/config"
	"github.com/kozaktomas/photoface/internal/database"
)

func newTestStore(t *testing.T) *database.Store {
	t.Helper()
	store, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testConfig() *config.Config {
	return &config.Config{
		Cluster: config.ClusterConfig{SimilarityThreshold: 0.6, MinClusterSize: 2},
	}
}

// newTestRouter wires the store-backed handlers onto a chi router so tests
// exercise real URL parameter parsing.
func newTestRouter(store *database.Store) *chi.Mux {
	cfg := testConfig()
	folders := NewFoldersHandler(store)
	persons := NewPersonsHandler(store)
	faces := NewFacesHandler(cfg, store)
	albums := NewAlbumsHandler(store)
	clusterer := NewClusterHandler(cfg, store)
	stats := NewStatsHandler(store)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/folders", folders.List)
		r.Post("/folders", folders.Add)
		r.Get("/folders/{id}", folders.Get)
		r.Delete("/folders/{id}", folders.Remove)

		r.Post("/cluster", clusterer.Run)

		r.Get("/persons", persons.List)
		r.Get("/persons/{id}", persons.Get)
		r.Put("/persons/{id}/name", persons.Rename)
		r.Post("/persons/{id}/confirm", persons.Confirm)
		r.Post("/persons/{id}/merge", persons.Merge)
		r.Delete("/persons/{id}", persons.Delete)
		r.Get("/persons/{id}/faces", persons.Faces)

		r.Get("/faces/{id}", faces.Get)
		r.Get("/faces/{id}/similar", faces.Similar)
		r.Put("/faces/{id}/person", faces.Move)
		r.Put("/faces/{id}/confirm", faces.Confirm)
		r.Delete("/faces/{id}", faces.Delete)

		r.Get("/albums", albums.List)
		r.Put("/persons/{id}/album", albums.Set)
		r.Delete("/persons/{id}/album", albums.Remove)
		r.Get("/persons/{id}/album/photos", albums.Photos)

		r.Get("/stats", stats.Get)
		r.Get("/settings", stats.Settings)
		r.Put("/settings", stats.UpdateSettings)
	})
	return r
}

// doRequest performs a request against the router, JSON-encoding body when
// it is non-nil.
func doRequest(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d: %s", expected, recorder.Code, recorder.Body.String())
	}
}

func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, recorder.Body.String())
	}
}

// seedFace inserts a folder, image and face, returning the face ID.
func seedFace(t *testing.T, store *database.Store, personID int64, embedding []float32) int64 {
	t.Helper()
	ctx := context.Background()

	folderID, err := store.AddFolder(ctx, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	imageID, err := store.AddImage(ctx, folderID, filepath.Join(t.TempDir(), "img.jpg"), "img.jpg",
		100, 800, 600, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	faceID, err := store.AddFace(ctx, imageID, personID, embedding, [4]float64{10, 10, 50, 50}, 0.9)
	if err != nil {
		t.Fatal(err)
	}
	return faceID
}
