package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// AddImage registers an image file. A duplicate file path is resolved to the
// existing image's id (idempotent upsert) so repeated scans never create
// duplicate rows.
func (s *Store) AddImage(ctx context.Context, folderID int64, filePath, fileName string, fileSize int64, origWidth, origHeight int, createdTime time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO images
		(folder_id, file_path, file_name, file_size, orig_width, orig_height, created_time)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		folderID, filePath, fileName, fileSize, origWidth, origHeight, createdTime)
	if err != nil {
		return 0, fmt.Errorf("add image %s: %w", filePath, err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("add image %s: %w", filePath, err)
		}
		return id, nil
	}

	var id int64
	if err := s.db.QueryRowContext(ctx, "SELECT id FROM images WHERE file_path = ?", filePath).Scan(&id); err != nil {
		return 0, fmt.Errorf("resolve existing image %s: %w", filePath, err)
	}
	return id, nil
}

// GetImage returns an image by id.
func (s *Store) GetImage(ctx context.Context, id int64) (*Image, error) {
	var img Image
	err := s.db.QueryRowContext(ctx, `
		SELECT id, folder_id, file_path, file_name, file_size, orig_width, orig_height, created_time, scan_status
		FROM images WHERE id = ?`, id,
	).Scan(&img.ID, &img.FolderID, &img.FilePath, &img.FileName, &img.FileSize,
		&img.OrigWidth, &img.OrigHeight, &img.CreatedTime, &img.ScanStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get image %d: %w", id, err)
	}
	return &img, nil
}

// UpdateImageStatus moves an image through the scan state machine.
func (s *Store) UpdateImageStatus(ctx context.Context, id int64, status string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE images SET scan_status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("update image %d status: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ImageCompleted reports whether the file at path has already been scanned
// to completion. Completed images are skipped by future scans; this is the
// resumability contract.
func (s *Store) ImageCompleted(ctx context.Context, filePath string) (bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM images WHERE file_path = ? AND scan_status = ?", filePath, StatusCompleted,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check image %s: %w", filePath, err)
	}
	return true, nil
}

// ListImagesByFolder returns all images registered under a folder.
func (s *Store) ListImagesByFolder(ctx context.Context, folderID int64) ([]Image, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, folder_id, file_path, file_name, file_size, orig_width, orig_height, created_time, scan_status
		FROM images WHERE folder_id = ? ORDER BY file_name`, folderID)
	if err != nil {
		return nil, fmt.Errorf("list images for folder %d: %w", folderID, err)
	}
	defer rows.Close()

	var images []Image
	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.ID, &img.FolderID, &img.FilePath, &img.FileName, &img.FileSize,
			&img.OrigWidth, &img.OrigHeight, &img.CreatedTime, &img.ScanStatus); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// ResetErrorImages moves every image in the error state back to pending so
// the next scan retries it. Returns the number of images reset.
func (s *Store) ResetErrorImages(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE images SET scan_status = ? WHERE scan_status = ?", StatusPending, StatusError)
	if err != nil {
		return 0, fmt.Errorf("reset error images: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset error images: %w", err)
	}
	return n, nil
}

// CountImages returns the total number of registered images.
func (s *Store) CountImages(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM images").Scan(&n); err != nil {
		return 0, fmt.Errorf("count images: %w", err)
	}
	return n, nil
}

// CountImagesByStatus returns the number of images in the given scan status.
func (s *Store) CountImagesByStatus(ctx context.Context, status string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM images WHERE scan_status = ?", status).Scan(&n); err != nil {
		return 0, fmt.Errorf("count images by status: %w", err)
	}
	return n, nil
}
