// Package scanner implements the incremental, resumable scan pipeline:
// walk registered folder trees, detect faces in every unprocessed image and
// persist the results.
package scanner

import (
	"context"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/kozaktomas/photoface/internal/database"
	"github.com/kozaktomas/photoface/internal/detector"
)

// imageExtensions is the set of file extensions treated as photos.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
	".webp": true,
}

// ProgressInfo carries scan progress for callbacks.
type ProgressInfo struct {
	Done    int
	Total   int
	Current string // file name currently being processed
}

// Options control a single scan run.
type Options struct {
	FolderID    int64 // scan one registered folder; 0 means all
	RetryErrors bool  // reset error images to pending before scanning
	OnProgress  func(ProgressInfo)
}

// Result summarizes a finished (or cancelled) scan run.
type Result struct {
	Processed  int // images processed during this run
	Skipped    int // images already completed by earlier runs
	FacesFound int
	Cancelled  bool
	Errors     []error // per-file failures, never fatal for the run
}

// Scanner drives the per-image scan state machine.
type Scanner struct {
	store         *database.Store
	det           detector.Detector
	minConfidence float64
}

// New creates a scanner. Detections below minConfidence are discarded.
func New(store *database.Store, det detector.Detector, minConfidence float64) *Scanner {
	return &Scanner{
		store:         store,
		det:           det,
		minConfidence: minConfidence,
	}
}

// workItem is one image file queued for processing.
type workItem struct {
	folderID int64
	path     string
}

// Scan runs one pass over the target folders. Completed images are skipped,
// so re-running after a partial or cancelled run resumes where it left off.
// One bad file never aborts the run; cancellation is polled per file and is
// a distinct non-error terminal state.
func (s *Scanner) Scan(ctx context.Context, opts Options) (*Result, error) {
	if err := s.det.Init(ctx); err != nil {
		return nil, fmt.Errorf("detector initialization: %w", err)
	}

	if ctx.Err() != nil {
		return &Result{Cancelled: true}, nil
	}

	if opts.RetryErrors {
		n, err := s.store.ResetErrorImages(ctx)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			log.Printf("reset %d error images for re-scan", n)
		}
	}

	roots, err := s.resolveFolders(ctx, opts.FolderID)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	if len(roots) == 0 {
		// No folders registered: a successful zero-effect run.
		return result, nil
	}

	unassignedID, err := s.store.UnassignedPerson(ctx)
	if err != nil {
		return nil, err
	}

	var items []workItem
	for _, root := range roots {
		found, err := s.discover(ctx, root)
		if err != nil {
			// A missing or unreadable root is a per-folder error, keep going.
			result.Errors = append(result.Errors, fmt.Errorf("folder %s: %w", root.Path, err))
			continue
		}
		items = append(items, found...)
	}

	total := len(items)
	for i, item := range items {
		if ctx.Err() != nil {
			result.Cancelled = true
			return result, nil
		}

		if opts.OnProgress != nil {
			opts.OnProgress(ProgressInfo{Done: i + 1, Total: total, Current: filepath.Base(item.path)})
		}

		done, err := s.store.ImageCompleted(ctx, item.path)
		if err != nil {
			if ctx.Err() != nil {
				result.Cancelled = true
				return result, nil
			}
			return result, err // storage failure is fatal for the run
		}
		if done {
			result.Skipped++
			continue
		}

		faces, err := s.processImage(ctx, item, unassignedID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("%s: %w", item.path, err))
			continue
		}
		result.Processed++
		result.FacesFound += faces
	}

	return result, nil
}

// resolveFolders returns the scan targets: the requested folder or all
// registered folders.
func (s *Scanner) resolveFolders(ctx context.Context, folderID int64) ([]database.Folder, error) {
	if folderID != 0 {
		folder, err := s.store.GetFolder(ctx, folderID)
		if err != nil {
			return nil, fmt.Errorf("resolve folder %d: %w", folderID, err)
		}
		return []database.Folder{*folder}, nil
	}
	return s.store.ListFolders(ctx)
}

// discover walks root's tree, registers every unseen subdirectory as a
// folder and returns the image files found, in sorted path order.
func (s *Scanner) discover(ctx context.Context, root database.Folder) ([]workItem, error) {
	folderIDs := map[string]int64{root.Path: root.ID}

	var items []workItem
	err := filepath.WalkDir(root.Path, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == root.Path {
				return nil
			}
			id, err := s.store.AddFolder(ctx, path)
			if err != nil {
				return err
			}
			folderIDs[path] = id
			return nil
		}
		if !imageExtensions[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}
		dir := filepath.Dir(path)
		folderID, ok := folderIDs[dir]
		if !ok {
			folderID = root.ID
		}
		items = append(items, workItem{folderID: folderID, path: path})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(items, func(i, j int) bool { return items[i].path < items[j].path })
	return items, nil
}

// processImage runs one image through pending -> processing -> completed,
// or marks it error. Returns the number of faces stored.
func (s *Scanner) processImage(ctx context.Context, item workItem, unassignedID int64) (int, error) {
	info, err := os.Stat(item.path)
	if err != nil {
		return 0, fmt.Errorf("stat: %w", err)
	}

	width, height, dimErr := decodeDimensions(item.path)

	imageID, err := s.store.AddImage(ctx, item.folderID, item.path, filepath.Base(item.path),
		info.Size(), width, height, info.ModTime())
	if err != nil {
		return 0, err
	}

	if err := s.store.UpdateImageStatus(ctx, imageID, database.StatusProcessing); err != nil {
		return 0, err
	}

	faces, err := s.detectAndStore(ctx, imageID, item.path, width, height, dimErr, unassignedID)
	if err != nil {
		if statusErr := s.store.UpdateImageStatus(ctx, imageID, database.StatusError); statusErr != nil {
			log.Printf("failed to mark image %d as error: %v", imageID, statusErr)
		}
		return 0, err
	}

	if err := s.store.UpdateImageStatus(ctx, imageID, database.StatusCompleted); err != nil {
		return 0, err
	}
	return faces, nil
}

func (s *Scanner) detectAndStore(ctx context.Context, imageID int64, path string, width, height int, dimErr error, unassignedID int64) (int, error) {
	if dimErr != nil {
		// Without trusted dimensions the coordinate invariant cannot be
		// guaranteed, so the image goes to the error state.
		return 0, fmt.Errorf("decode dimensions: %w", dimErr)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read file: %w", err)
	}

	detections, err := s.det.DetectFaces(ctx, data)
	if err != nil {
		return 0, fmt.Errorf("detect faces: %w", err)
	}

	stored := 0
	for _, det := range detections {
		if det.Confidence < s.minConfidence {
			continue
		}
		bbox, ok := clampBBox(det.BBox, width, height)
		if !ok {
			log.Printf("discarding degenerate bbox %v on %s", det.BBox, filepath.Base(path))
			continue
		}
		if _, err := s.store.AddFace(ctx, imageID, unassignedID, det.Embedding, bbox, det.Confidence); err != nil {
			return 0, err
		}
		stored++
	}
	return stored, nil
}

// clampBBox clamps a detection box to the image's original pixel space.
// Returns false for boxes that collapse to a degenerate rectangle.
func clampBBox(bbox [4]float64, width, height int) ([4]float64, bool) {
	x1 := max(0, bbox[0])
	y1 := max(0, bbox[1])
	x2 := min(float64(width), bbox[2])
	y2 := min(float64(height), bbox[3])

	if x1 >= x2 || y1 >= y2 {
		return [4]float64{}, false
	}
	return [4]float64{x1, y1, x2, y2}, true
}

// decodeDimensions reads the image header and returns pixel width and height.
func decodeDimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
