// Package exporter copies the photos of confirmed persons into per-person
// album directories, split into solo shots and group shots.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kozaktomas/photoface/internal/database"
)

// withFriendsDir is the subdirectory holding group shots inside each
// person's album.
const withFriendsDir = "with_friends"

// ProgressInfo carries export progress for callbacks.
type ProgressInfo struct {
	Done    int
	Total   int
	Current string // file name currently being copied
}

// Options control a single export run.
type Options struct {
	PersonID   int64  // export one person; 0 means all with albums
	OutputPath string // default destination for persons without an album path
	OnProgress func(ProgressInfo)
}

// PersonResult summarizes the export of a single person.
type PersonResult struct {
	Name       string
	SoloCopied int
	WithCopied int
	Errors     []error
}

// Result summarizes a finished (or cancelled) export run.
type Result struct {
	Persons   []PersonResult
	Copied    int
	Cancelled bool
}

// Exporter copies album photos to the filesystem.
type Exporter struct {
	store *database.Store
}

func New(store *database.Store) *Exporter {
	return &Exporter{store: store}
}

// Run exports either one person or every confirmed person that has an
// album. Existing files are never overwritten; name collisions get a
// numeric suffix. A failed copy is recorded per person and never aborts
// the run. Cancellation is polled per file.
func (e *Exporter) Run(ctx context.Context, opts Options) (*Result, error) {
	if ctx.Err() != nil {
		return &Result{Cancelled: true}, nil
	}

	targets, err := e.resolveTargets(ctx, opts)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	total, err := e.countPhotos(ctx, targets)
	if err != nil {
		return nil, err
	}

	done := 0
	for _, target := range targets {
		pr, cancelled, err := e.exportPerson(ctx, target, opts, total, &done)
		if err != nil {
			return nil, err
		}
		result.Persons = append(result.Persons, *pr)
		result.Copied += pr.SoloCopied + pr.WithCopied
		if cancelled {
			result.Cancelled = true
			return result, nil
		}
	}

	return result, nil
}

// resolveTargets picks the persons to export. A single-person export
// requires the person to be confirmed; the all-persons form simply takes
// every confirmed person with an album.
func (e *Exporter) resolveTargets(ctx context.Context, opts Options) ([]database.PersonAlbum, error) {
	if opts.PersonID == 0 {
		return e.store.PersonsWithAlbums(ctx)
	}

	person, err := e.store.GetPerson(ctx, opts.PersonID)
	if err != nil {
		return nil, err
	}
	if !person.IsConfirmed {
		return nil, fmt.Errorf("person %q is not confirmed", person.Name)
	}

	target := database.PersonAlbum{PersonID: person.ID, Name: person.Name}
	album, err := e.store.GetAlbum(ctx, person.ID)
	switch {
	case err == nil:
		target.OutputPath = album.OutputPath
	case errors.Is(err, database.ErrNotFound):
		if opts.OutputPath == "" {
			return nil, fmt.Errorf("person %q has no album and no output path was given", person.Name)
		}
		target.OutputPath = opts.OutputPath
	default:
		return nil, err
	}

	return []database.PersonAlbum{target}, nil
}

func (e *Exporter) countPhotos(ctx context.Context, targets []database.PersonAlbum) (int, error) {
	total := 0
	for _, t := range targets {
		photos, err := e.store.PersonPhotos(ctx, t.PersonID)
		if err != nil {
			return 0, err
		}
		total += len(photos)
	}
	return total, nil
}

// exportPerson copies one person's photos into <output>/<Name> and
// <output>/<Name>/with_friends and writes a summary file next to them.
func (e *Exporter) exportPerson(ctx context.Context, target database.PersonAlbum, opts Options, total int, done *int) (*PersonResult, bool, error) {
	pr := &PersonResult{Name: target.Name}

	personDir := filepath.Join(target.OutputPath, sanitizeDirName(target.Name))
	friendsDir := filepath.Join(personDir, withFriendsDir)
	if err := os.MkdirAll(friendsDir, 0o755); err != nil {
		return nil, false, fmt.Errorf("create album directory: %w", err)
	}

	solo, err := e.store.SoloPhotos(ctx, target.PersonID)
	if err != nil {
		return nil, false, err
	}
	group, err := e.store.GroupPhotos(ctx, target.PersonID)
	if err != nil {
		return nil, false, err
	}

	copySet := func(photos []database.PersonPhoto, destDir string, counter *int) bool {
		for _, photo := range photos {
			if ctx.Err() != nil {
				return true
			}
			*done++
			if opts.OnProgress != nil {
				opts.OnProgress(ProgressInfo{Done: *done, Total: total, Current: photo.FileName})
			}
			if err := copyFile(photo.FilePath, destDir); err != nil {
				pr.Errors = append(pr.Errors, fmt.Errorf("%s: %w", photo.FileName, err))
				continue
			}
			*counter++
		}
		return false
	}

	if cancelled := copySet(solo, personDir, &pr.SoloCopied); cancelled {
		return pr, true, nil
	}
	if cancelled := copySet(group, friendsDir, &pr.WithCopied); cancelled {
		return pr, true, nil
	}

	if err := writeAlbumInfo(personDir, target.Name, pr); err != nil {
		pr.Errors = append(pr.Errors, err)
	}

	log.Printf("exported %s: %d solo, %d with friends, %d errors",
		target.Name, pr.SoloCopied, pr.WithCopied, len(pr.Errors))
	return pr, false, nil
}

// copyFile copies src into destDir, keeping the base name. An existing
// destination is never overwritten: the name gets a numeric suffix
// before the extension until a free one is found.
func copyFile(src, destDir string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	base := filepath.Base(src)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	dest := filepath.Join(destDir, base)
	for i := 1; ; i++ {
		out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			_, copyErr := io.Copy(out, in)
			closeErr := out.Close()
			if copyErr != nil {
				return copyErr
			}
			return closeErr
		}
		if !os.IsExist(err) {
			return err
		}
		dest = filepath.Join(destDir, fmt.Sprintf("%s_%d%s", stem, i, ext))
	}
}

// writeAlbumInfo writes a small human readable summary into the album.
func writeAlbumInfo(personDir, name string, pr *PersonResult) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Album: %s\n", name)
	fmt.Fprintf(&b, "Exported: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&b, "Solo photos: %d\n", pr.SoloCopied)
	fmt.Fprintf(&b, "Photos with friends: %d\n", pr.WithCopied)
	fmt.Fprintf(&b, "Total photos: %d\n", pr.SoloCopied+pr.WithCopied)

	if err := os.WriteFile(filepath.Join(personDir, "info.txt"), []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write info.txt: %w", err)
	}
	return nil
}

// sanitizeDirName makes a person name safe to use as a directory name.
func sanitizeDirName(name string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "\x00", "_")
	cleaned := strings.TrimSpace(replacer.Replace(name))
	if cleaned == "" {
		return "_"
	}
	return cleaned
}
