package exporter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

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

type fixture struct {
	store    *database.Store
	srcDir   string
	folderID int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := newTestStore(t)
	srcDir := t.TempDir()

	folderID, err := store.AddFolder(ctx, srcDir)
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{store: store, srcDir: srcDir, folderID: folderID}
}

// addPhoto creates a real source file and its completed image row.
func (fx *fixture) addPhoto(t *testing.T, name, content string) int64 {
	t.Helper()
	ctx := context.Background()

	path := filepath.Join(fx.srcDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	imageID, err := fx.store.AddImage(ctx, fx.folderID, path, filepath.Base(path),
		int64(len(content)), 800, 600, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if err := fx.store.UpdateImageStatus(ctx, imageID, database.StatusCompleted); err != nil {
		t.Fatal(err)
	}
	return imageID
}

func (fx *fixture) addFace(t *testing.T, imageID, personID int64) {
	t.Helper()
	_, err := fx.store.AddFace(context.Background(), imageID, personID,
		[]float32{1, 0, 0, 0}, [4]float64{10, 10, 50, 50}, 0.9)
	if err != nil {
		t.Fatal(err)
	}
}

func (fx *fixture) confirmedPerson(t *testing.T, name, outputPath string) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := fx.store.CreatePerson(ctx, name)
	if err != nil {
		t.Fatal(err)
	}
	if err := fx.store.ConfirmPerson(ctx, id); err != nil {
		t.Fatal(err)
	}
	if outputPath != "" {
		if err := fx.store.SetAlbum(ctx, id, outputPath); err != nil {
			t.Fatal(err)
		}
	}
	return id
}

func TestRun_PartitionsSoloAndGroupShots(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	out := t.TempDir()

	alice := fx.confirmedPerson(t, "Alice", out)
	bob := fx.confirmedPerson(t, "Bob", out)

	soloImg := fx.addPhoto(t, "beach.jpg", "solo shot")
	groupImg := fx.addPhoto(t, "party.jpg", "group shot")

	fx.addFace(t, soloImg, alice)
	fx.addFace(t, groupImg, alice)
	fx.addFace(t, groupImg, bob)

	e := New(fx.store)
	result, err := e.Run(ctx, Options{PersonID: alice})
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if result.Copied != 2 {
		t.Errorf("expected 2 copied files, got %d", result.Copied)
	}

	soloDest := filepath.Join(out, "Alice", "beach.jpg")
	groupDest := filepath.Join(out, "Alice", "with_friends", "party.jpg")

	if data, err := os.ReadFile(soloDest); err != nil || string(data) != "solo shot" {
		t.Errorf("solo photo missing or wrong: %v", err)
	}
	if data, err := os.ReadFile(groupDest); err != nil || string(data) != "group shot" {
		t.Errorf("group photo missing or wrong: %v", err)
	}

	// The group shot must not appear in the solo directory.
	if _, err := os.Stat(filepath.Join(out, "Alice", "party.jpg")); !os.IsNotExist(err) {
		t.Error("group photo leaked into solo directory")
	}

	info, err := os.ReadFile(filepath.Join(out, "Alice", "info.txt"))
	if err != nil {
		t.Fatalf("info.txt not written: %v", err)
	}
	for _, want := range []string{"Album: Alice", "Solo photos: 1", "Photos with friends: 1", "Total photos: 2"} {
		if !strings.Contains(string(info), want) {
			t.Errorf("info.txt missing %q:\n%s", want, info)
		}
	}
}

func TestRun_RepeatedPersonOnOnePhotoCopiesOnce(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	out := t.TempDir()

	alice := fx.confirmedPerson(t, "Alice", out)

	// Two detections of the same person on a single photo must still
	// export as one group-shot copy.
	img := fx.addPhoto(t, "party.jpg", "mirror shot")
	fx.addFace(t, img, alice)
	fx.addFace(t, img, alice)

	e := New(fx.store)
	result, err := e.Run(ctx, Options{PersonID: alice})
	if err != nil {
		t.Fatal(err)
	}
	if result.Copied != 1 {
		t.Errorf("expected 1 copied file, got %d", result.Copied)
	}

	friendsDir := filepath.Join(out, "Alice", "with_friends")
	entries, err := os.ReadDir(friendsDir)
	if err != nil {
		t.Fatalf("with_friends dir missing: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "party.jpg" {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("expected exactly [party.jpg], got %v", names)
	}

	info, err := os.ReadFile(filepath.Join(out, "Alice", "info.txt"))
	if err != nil {
		t.Fatalf("info.txt not written: %v", err)
	}
	for _, want := range []string{"Photos with friends: 1", "Total photos: 1"} {
		if !strings.Contains(string(info), want) {
			t.Errorf("info.txt missing %q:\n%s", want, info)
		}
	}
}

func TestRun_CollisionGetsNumericSuffix(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	out := t.TempDir()

	alice := fx.confirmedPerson(t, "Alice", out)

	imgA := fx.addPhoto(t, filepath.Join("2023", "photo.jpg"), "first")
	imgB := fx.addPhoto(t, filepath.Join("2024", "photo.jpg"), "second")
	fx.addFace(t, imgA, alice)
	fx.addFace(t, imgB, alice)

	e := New(fx.store)
	result, err := e.Run(ctx, Options{PersonID: alice})
	if err != nil {
		t.Fatal(err)
	}
	if result.Copied != 2 {
		t.Fatalf("expected 2 copied files, got %d", result.Copied)
	}

	first, err := os.ReadFile(filepath.Join(out, "Alice", "photo.jpg"))
	if err != nil {
		t.Fatalf("base name missing: %v", err)
	}
	second, err := os.ReadFile(filepath.Join(out, "Alice", "photo_1.jpg"))
	if err != nil {
		t.Fatalf("suffixed name missing: %v", err)
	}
	if string(first) == string(second) {
		t.Error("both copies have the same content, one source was lost")
	}
}

func TestRun_NeverOverwritesExistingFiles(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	out := t.TempDir()

	alice := fx.confirmedPerson(t, "Alice", out)
	img := fx.addPhoto(t, "photo.jpg", "new export")
	fx.addFace(t, img, alice)

	// Simulate a leftover from an earlier export.
	albumDir := filepath.Join(out, "Alice")
	if err := os.MkdirAll(albumDir, 0o755); err != nil {
		t.Fatal(err)
	}
	existing := filepath.Join(albumDir, "photo.jpg")
	if err := os.WriteFile(existing, []byte("precious original"), 0o644); err != nil {
		t.Fatal(err)
	}

	e := New(fx.store)
	if _, err := e.Run(ctx, Options{PersonID: alice}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(existing)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "precious original" {
		t.Error("existing file was overwritten")
	}
	if data, err := os.ReadFile(filepath.Join(albumDir, "photo_1.jpg")); err != nil || string(data) != "new export" {
		t.Errorf("new copy not written under suffixed name: %v", err)
	}
}

func TestRun_RejectsUnconfirmedPerson(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	id, err := fx.store.CreatePerson(ctx, "Person_1")
	if err != nil {
		t.Fatal(err)
	}

	e := New(fx.store)
	if _, err := e.Run(ctx, Options{PersonID: id, OutputPath: t.TempDir()}); err == nil {
		t.Fatal("expected error for unconfirmed person")
	}
}

func TestRun_AllExportsEveryConfirmedPersonWithAlbum(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	out := t.TempDir()

	alice := fx.confirmedPerson(t, "Alice", out)
	bob := fx.confirmedPerson(t, "Bob", out)
	// Confirmed but has no album: must be skipped by the all-persons form.
	fx.confirmedPerson(t, "Carol", "")

	imgA := fx.addPhoto(t, "a.jpg", "alice solo")
	imgB := fx.addPhoto(t, "b.jpg", "bob solo")
	fx.addFace(t, imgA, alice)
	fx.addFace(t, imgB, bob)

	e := New(fx.store)
	result, err := e.Run(ctx, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Persons) != 2 {
		t.Fatalf("expected 2 exported persons, got %d", len(result.Persons))
	}

	if _, err := os.Stat(filepath.Join(out, "Alice", "a.jpg")); err != nil {
		t.Errorf("Alice's photo missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "Bob", "b.jpg")); err != nil {
		t.Errorf("Bob's photo missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "Carol")); !os.IsNotExist(err) {
		t.Error("Carol has no album and must not be exported")
	}
}

func TestRun_MissingSourceFileIsPerItemError(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	out := t.TempDir()

	alice := fx.confirmedPerson(t, "Alice", out)
	gone := fx.addPhoto(t, "gone.jpg", "will vanish")
	kept := fx.addPhoto(t, "kept.jpg", "still here")
	fx.addFace(t, gone, alice)
	fx.addFace(t, kept, alice)

	if err := os.Remove(filepath.Join(fx.srcDir, "gone.jpg")); err != nil {
		t.Fatal(err)
	}

	e := New(fx.store)
	result, err := e.Run(ctx, Options{PersonID: alice})
	if err != nil {
		t.Fatalf("missing source must not abort the run: %v", err)
	}
	if result.Copied != 1 {
		t.Errorf("expected 1 copied file, got %d", result.Copied)
	}
	if len(result.Persons) != 1 || len(result.Persons[0].Errors) != 1 {
		t.Errorf("expected exactly 1 recorded error, got %+v", result.Persons)
	}
}

func TestRun_FallbackOutputPathForPersonWithoutAlbum(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	out := t.TempDir()

	alice := fx.confirmedPerson(t, "Alice", "")
	img := fx.addPhoto(t, "a.jpg", "solo")
	fx.addFace(t, img, alice)

	e := New(fx.store)
	if _, err := e.Run(ctx, Options{PersonID: alice}); err == nil {
		t.Fatal("expected error without album and without output path")
	}

	if _, err := e.Run(ctx, Options{PersonID: alice, OutputPath: out}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(out, "Alice", "a.jpg")); err != nil {
		t.Errorf("photo missing under fallback output path: %v", err)
	}
}

func TestRun_Cancellation(t *testing.T) {
	fx := newFixture(t)
	out := t.TempDir()

	alice := fx.confirmedPerson(t, "Alice", out)
	img := fx.addPhoto(t, "a.jpg", "solo")
	fx.addFace(t, img, alice)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := New(fx.store)
	result, err := e.Run(ctx, Options{PersonID: alice})
	if err != nil {
		t.Fatalf("cancellation must not be reported as an error: %v", err)
	}
	if !result.Cancelled {
		t.Error("expected Cancelled to be set")
	}
	if result.Copied != 0 {
		t.Errorf("expected no copies after immediate cancel, got %d", result.Copied)
	}
}

func TestSanitizeDirName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Alice", "Alice"},
		{"a/b", "a_b"},
		{"a\\b:c", "a_b_c"},
		{"  ", "_"},
	}
	for _, tt := range tests {
		if got := sanitizeDirName(tt.in); got != tt.want {
			t.Errorf("sanitizeDirName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
