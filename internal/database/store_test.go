package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func addTestImage(t *testing.T, store *Store, folderID int64, path string) int64 {
	t.Helper()
	id, err := store.AddImage(context.Background(), folderID, path, filepath.Base(path), 1024, 800, 600, time.Now())
	if err != nil {
		t.Fatalf("failed to add image %s: %v", path, err)
	}
	return id
}

func TestAddFolder_Idempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id1, err := store.AddFolder(ctx, "/pics")
	if err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	id2, err := store.AddFolder(ctx, "/pics")
	if err != nil {
		t.Fatalf("second add failed: %v", err)
	}

	if id1 != id2 {
		t.Errorf("expected same folder id for duplicate path, got %d and %d", id1, id2)
	}

	folders, err := store.ListFolders(ctx)
	if err != nil {
		t.Fatalf("list folders failed: %v", err)
	}
	if len(folders) != 1 {
		t.Errorf("expected 1 folder, got %d", len(folders))
	}
}

func TestAddImage_Idempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	folderID, err := store.AddFolder(ctx, "/pics")
	if err != nil {
		t.Fatalf("add folder failed: %v", err)
	}

	id1 := addTestImage(t, store, folderID, "/pics/a.jpg")
	id2 := addTestImage(t, store, folderID, "/pics/a.jpg")

	if id1 != id2 {
		t.Errorf("expected same image id for duplicate path, got %d and %d", id1, id2)
	}

	count, err := store.CountImages(ctx)
	if err != nil {
		t.Fatalf("count images failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 image, got %d", count)
	}
}

func TestRemoveFolder_CascadesToImagesAndFaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	folderID, _ := store.AddFolder(ctx, "/pics")
	imageID := addTestImage(t, store, folderID, "/pics/a.jpg")
	unassigned, err := store.UnassignedPerson(ctx)
	if err != nil {
		t.Fatalf("unassigned person failed: %v", err)
	}
	if _, err := store.AddFace(ctx, imageID, unassigned, []float32{1, 0}, [4]float64{10, 10, 50, 50}, 0.9); err != nil {
		t.Fatalf("add face failed: %v", err)
	}

	if err := store.RemoveFolder(ctx, folderID); err != nil {
		t.Fatalf("remove folder failed: %v", err)
	}

	images, _ := store.CountImages(ctx)
	if images != 0 {
		t.Errorf("expected 0 images after cascade, got %d", images)
	}
	faces, _ := store.CountFaces(ctx)
	if faces != 0 {
		t.Errorf("expected 0 faces after cascade, got %d", faces)
	}
}

func TestImageStatus_ResumabilityContract(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	folderID, _ := store.AddFolder(ctx, "/pics")
	imageID := addTestImage(t, store, folderID, "/pics/a.jpg")

	done, err := store.ImageCompleted(ctx, "/pics/a.jpg")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if done {
		t.Error("pending image reported as completed")
	}

	if err := store.UpdateImageStatus(ctx, imageID, StatusCompleted); err != nil {
		t.Fatalf("update status failed: %v", err)
	}

	done, _ = store.ImageCompleted(ctx, "/pics/a.jpg")
	if !done {
		t.Error("completed image not reported as completed")
	}
}

func TestResetErrorImages(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	folderID, _ := store.AddFolder(ctx, "/pics")
	id1 := addTestImage(t, store, folderID, "/pics/a.jpg")
	id2 := addTestImage(t, store, folderID, "/pics/b.jpg")

	store.UpdateImageStatus(ctx, id1, StatusError)
	store.UpdateImageStatus(ctx, id2, StatusCompleted)

	n, err := store.ResetErrorImages(ctx)
	if err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 image reset, got %d", n)
	}

	img, _ := store.GetImage(ctx, id1)
	if img.ScanStatus != StatusPending {
		t.Errorf("expected error image back to pending, got %s", img.ScanStatus)
	}
	img, _ = store.GetImage(ctx, id2)
	if img.ScanStatus != StatusCompleted {
		t.Errorf("completed image must not be touched, got %s", img.ScanStatus)
	}
}

func TestUnassignedPerson_SingletonAndPermanent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id1, err := store.UnassignedPerson(ctx)
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	id2, err := store.UnassignedPerson(ctx)
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if id1 != id2 {
		t.Errorf("sentinel created twice: %d and %d", id1, id2)
	}

	if err := store.DeletePerson(ctx, id1); !errors.Is(err, ErrSentinelPerson) {
		t.Errorf("expected ErrSentinelPerson on delete, got %v", err)
	}
	if err := store.RenamePerson(ctx, id1, "Alice"); !errors.Is(err, ErrSentinelPerson) {
		t.Errorf("expected ErrSentinelPerson on rename, got %v", err)
	}
	target, _ := store.CreatePerson(ctx, "Bob")
	if err := store.MergePersons(ctx, id1, target); !errors.Is(err, ErrSentinelPerson) {
		t.Errorf("expected ErrSentinelPerson on merge source, got %v", err)
	}
}

func TestRenamePerson_ConfirmsPersonAndFaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	folderID, _ := store.AddFolder(ctx, "/pics")
	imageID := addTestImage(t, store, folderID, "/pics/a.jpg")
	personID, _ := store.CreatePerson(ctx, "Person_007")

	faceID, _ := store.AddFace(ctx, imageID, personID, []float32{1, 0}, [4]float64{10, 10, 50, 50}, 0.9)

	if err := store.RenamePerson(ctx, personID, "Alice"); err != nil {
		t.Fatalf("rename failed: %v", err)
	}

	p, _ := store.GetPerson(ctx, personID)
	if p.Name != "Alice" {
		t.Errorf("expected name Alice, got %s", p.Name)
	}
	if !p.IsConfirmed {
		t.Error("expected person confirmed after rename")
	}

	f, _ := store.GetFace(ctx, faceID)
	if !f.IsPerson {
		t.Error("expected face is_person set after rename")
	}
}

func TestMergePersons_MovesAllFaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	folderID, _ := store.AddFolder(ctx, "/pics")
	imageID := addTestImage(t, store, folderID, "/pics/a.jpg")

	source, _ := store.CreatePerson(ctx, "Person_1")
	target, _ := store.CreatePerson(ctx, "Person_2")

	for i := 0; i < 3; i++ {
		if _, err := store.AddFace(ctx, imageID, source, []float32{1, 0}, [4]float64{10, 10, 50, 50}, 0.9); err != nil {
			t.Fatalf("add face failed: %v", err)
		}
	}
	before, _ := store.CountFaces(ctx)

	if err := store.MergePersons(ctx, source, target); err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	if _, err := store.GetPerson(ctx, source); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected source person deleted, got %v", err)
	}

	faces, _ := store.FacesByPerson(ctx, target)
	if len(faces) != 3 {
		t.Errorf("expected 3 faces on target, got %d", len(faces))
	}

	after, _ := store.CountFaces(ctx)
	if before != after {
		t.Errorf("total face count changed by merge: %d -> %d", before, after)
	}
}

func TestDeletePerson_ReassignsFacesToSentinel(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	folderID, _ := store.AddFolder(ctx, "/pics")
	imageID := addTestImage(t, store, folderID, "/pics/a.jpg")
	personID, _ := store.CreatePerson(ctx, "Person_1")
	faceID, _ := store.AddFace(ctx, imageID, personID, []float32{1, 0}, [4]float64{10, 10, 50, 50}, 0.9)
	store.SetFacePersonStatus(ctx, faceID, true)

	if err := store.DeletePerson(ctx, personID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	f, err := store.GetFace(ctx, faceID)
	if err != nil {
		t.Fatalf("face lost by person deletion: %v", err)
	}
	unassigned, _ := store.UnassignedPerson(ctx)
	if f.PersonID != unassigned {
		t.Errorf("expected face reassigned to sentinel %d, got %d", unassigned, f.PersonID)
	}
	if f.IsPerson {
		t.Error("expected is_person cleared after reassignment to sentinel")
	}
}

func TestSoloAndGroupPhotos_PartitionComplete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	folderID, _ := store.AddFolder(ctx, "/pics")
	alice, _ := store.CreatePerson(ctx, "Alice")
	bob, _ := store.CreatePerson(ctx, "Bob")

	// Two solo photos of Alice, one group photo with Bob.
	solo1 := addTestImage(t, store, folderID, "/pics/solo1.jpg")
	solo2 := addTestImage(t, store, folderID, "/pics/solo2.jpg")
	group := addTestImage(t, store, folderID, "/pics/group.jpg")

	store.AddFace(ctx, solo1, alice, []float32{1, 0}, [4]float64{0, 0, 10, 10}, 0.9)
	store.AddFace(ctx, solo2, alice, []float32{1, 0}, [4]float64{0, 0, 10, 10}, 0.8)
	store.AddFace(ctx, group, alice, []float32{1, 0}, [4]float64{0, 0, 10, 10}, 0.7)
	store.AddFace(ctx, group, bob, []float32{0, 1}, [4]float64{20, 20, 30, 30}, 0.7)

	soloPhotos, err := store.SoloPhotos(ctx, alice)
	if err != nil {
		t.Fatalf("solo photos failed: %v", err)
	}
	groupPhotos, err := store.GroupPhotos(ctx, alice)
	if err != nil {
		t.Fatalf("group photos failed: %v", err)
	}
	allPhotos, err := store.PersonPhotos(ctx, alice)
	if err != nil {
		t.Fatalf("person photos failed: %v", err)
	}

	if len(soloPhotos) != 2 {
		t.Errorf("expected 2 solo photos, got %d", len(soloPhotos))
	}
	if len(groupPhotos) != 1 {
		t.Errorf("expected 1 group photo, got %d", len(groupPhotos))
	}
	if len(allPhotos) != len(soloPhotos)+len(groupPhotos) {
		t.Errorf("solo+group (%d) does not cover all photos (%d)",
			len(soloPhotos)+len(groupPhotos), len(allPhotos))
	}

	seen := make(map[string]bool)
	for _, p := range soloPhotos {
		seen[p.FilePath] = true
	}
	for _, p := range groupPhotos {
		if seen[p.FilePath] {
			t.Errorf("photo %s in both solo and group sets", p.FilePath)
		}
	}

	if groupPhotos[0].TotalFaces != 2 {
		t.Errorf("expected group photo with 2 total faces, got %d", groupPhotos[0].TotalFaces)
	}
}

func TestPersonPhotos_OneRowPerImageWithRepeatedPerson(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	folderID, _ := store.AddFolder(ctx, "/pics")
	alice, _ := store.CreatePerson(ctx, "Alice")

	// The same person appears twice on one photo, e.g. a mirror shot.
	party := addTestImage(t, store, folderID, "/pics/party.jpg")
	store.AddFace(ctx, party, alice, []float32{1, 0}, [4]float64{0, 0, 10, 10}, 0.9)
	store.AddFace(ctx, party, alice, []float32{1, 0}, [4]float64{20, 0, 30, 10}, 0.8)

	groupPhotos, err := store.GroupPhotos(ctx, alice)
	if err != nil {
		t.Fatalf("group photos failed: %v", err)
	}
	if len(groupPhotos) != 1 {
		t.Fatalf("expected 1 row for a photo with two faces of the same person, got %d", len(groupPhotos))
	}
	if groupPhotos[0].TotalFaces != 2 {
		t.Errorf("expected 2 total faces, got %d", groupPhotos[0].TotalFaces)
	}
	if groupPhotos[0].Confidence != 0.9 {
		t.Errorf("expected strongest face confidence 0.9, got %v", groupPhotos[0].Confidence)
	}

	allPhotos, err := store.PersonPhotos(ctx, alice)
	if err != nil {
		t.Fatalf("person photos failed: %v", err)
	}
	if len(allPhotos) != 1 {
		t.Errorf("expected 1 photo in total, got %d", len(allPhotos))
	}
	soloPhotos, err := store.SoloPhotos(ctx, alice)
	if err != nil {
		t.Fatalf("solo photos failed: %v", err)
	}
	if len(soloPhotos) != 0 {
		t.Errorf("expected no solo photos, got %d", len(soloPhotos))
	}
}

func TestPersonsWithAlbums_OnlyConfirmed(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice, _ := store.CreatePerson(ctx, "Alice")
	bob, _ := store.CreatePerson(ctx, "Bob")
	store.ConfirmPerson(ctx, alice)

	store.SetAlbum(ctx, alice, "/out/alice")
	store.SetAlbum(ctx, bob, "/out/bob")

	albums, err := store.PersonsWithAlbums(ctx)
	if err != nil {
		t.Fatalf("persons with albums failed: %v", err)
	}
	if len(albums) != 1 {
		t.Fatalf("expected only confirmed persons, got %d entries", len(albums))
	}
	if albums[0].Name != "Alice" || albums[0].OutputPath != "/out/alice" {
		t.Errorf("unexpected album entry: %+v", albums[0])
	}
}

func TestNextClusterID_Monotonic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, err := store.NextClusterID(ctx)
		if err != nil {
			t.Fatalf("next cluster id failed: %v", err)
		}
		if got != want {
			t.Errorf("expected counter %d, got %d", want, got)
		}
	}
}

func TestSettings_GetSetDefault(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	v, err := store.GetSetting(ctx, "scan.similarity_threshold", "0.6")
	if err != nil {
		t.Fatalf("get default failed: %v", err)
	}
	if v != "0.6" {
		t.Errorf("expected default 0.6, got %s", v)
	}

	if err := store.SetSetting(ctx, "scan.similarity_threshold", "0.75"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	v, _ = store.GetSetting(ctx, "scan.similarity_threshold", "0.6")
	if v != "0.75" {
		t.Errorf("expected 0.75 after set, got %s", v)
	}
}

func TestEmbeddingRoundTrip(t *testing.T) {
	original := []float32{0.1, -0.5, 3.75, 0}
	decoded, err := DecodeEmbedding(EncodeEmbedding(original))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(decoded) != len(original) {
		t.Fatalf("expected %d values, got %d", len(original), len(decoded))
	}
	for i := range original {
		if decoded[i] != original[i] {
			t.Errorf("value %d: expected %f, got %f", i, original[i], decoded[i])
		}
	}
}

func TestDecodeEmbedding_Invalid(t *testing.T) {
	if _, err := DecodeEmbedding(nil); err == nil {
		t.Error("expected error for empty blob")
	}
	if _, err := DecodeEmbedding([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated blob")
	}
}

func TestUnassignedFaces_SkipsBadEmbeddings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	folderID, _ := store.AddFolder(ctx, "/pics")
	imageID := addTestImage(t, store, folderID, "/pics/a.jpg")
	unassigned, _ := store.UnassignedPerson(ctx)

	store.AddFace(ctx, imageID, unassigned, []float32{1, 0, 0}, [4]float64{0, 0, 10, 10}, 0.9)
	store.AddFace(ctx, imageID, unassigned, nil, [4]float64{20, 20, 30, 30}, 0.8)

	faces, err := store.UnassignedFaces(ctx)
	if err != nil {
		t.Fatalf("unassigned faces failed: %v", err)
	}
	if len(faces) != 2 {
		t.Fatalf("expected 2 faces, got %d", len(faces))
	}

	withEmbedding := 0
	for _, f := range faces {
		if f.Embedding != nil {
			withEmbedding++
		}
	}
	if withEmbedding != 1 {
		t.Errorf("expected 1 face with a decodable embedding, got %d", withEmbedding)
	}
}
