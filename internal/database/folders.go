package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// AddFolder registers a directory. Adding an already registered path is not
// an error: the existing folder's identity is returned (idempotent upsert).
func (s *Store) AddFolder(ctx context.Context, path string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "INSERT OR IGNORE INTO folders (path) VALUES (?)", path)
	if err != nil {
		return 0, fmt.Errorf("add folder %s: %w", path, err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("add folder %s: %w", path, err)
		}
		return id, nil
	}

	// Duplicate path, resolve to the existing row.
	var id int64
	if err := s.db.QueryRowContext(ctx, "SELECT id FROM folders WHERE path = ?", path).Scan(&id); err != nil {
		return 0, fmt.Errorf("resolve existing folder %s: %w", path, err)
	}
	return id, nil
}

// GetFolder returns a folder by id.
func (s *Store) GetFolder(ctx context.Context, id int64) (*Folder, error) {
	var f Folder
	err := s.db.QueryRowContext(ctx,
		"SELECT id, path, added_date FROM folders WHERE id = ?", id,
	).Scan(&f.ID, &f.Path, &f.AddedDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get folder %d: %w", id, err)
	}
	return &f, nil
}

// GetFolderByPath returns a folder by its absolute path, or ErrNotFound.
func (s *Store) GetFolderByPath(ctx context.Context, path string) (*Folder, error) {
	var f Folder
	err := s.db.QueryRowContext(ctx,
		"SELECT id, path, added_date FROM folders WHERE path = ?", path,
	).Scan(&f.ID, &f.Path, &f.AddedDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get folder %s: %w", path, err)
	}
	return &f, nil
}

// ListFolders returns all registered folders in registration order.
func (s *Store) ListFolders(ctx context.Context) ([]Folder, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, path, added_date FROM folders ORDER BY added_date, id")
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	var folders []Folder
	for rows.Next() {
		var f Folder
		if err := rows.Scan(&f.ID, &f.Path, &f.AddedDate); err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

// RemoveFolder deletes a folder; its images and their faces cascade.
func (s *Store) RemoveFolder(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM folders WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("remove folder %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// FolderImageCounts returns per-status image counts for a folder.
func (s *Store) FolderImageCounts(ctx context.Context, folderID int64) (StatusCounts, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT scan_status, COUNT(*) FROM images WHERE folder_id = ? GROUP BY scan_status", folderID)
	if err != nil {
		return StatusCounts{}, fmt.Errorf("folder image counts: %w", err)
	}
	defer rows.Close()

	var counts StatusCounts
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return StatusCounts{}, fmt.Errorf("scan count: %w", err)
		}
		switch status {
		case StatusPending:
			counts.Pending = n
		case StatusProcessing:
			counts.Processing = n
		case StatusCompleted:
			counts.Completed = n
		case StatusError:
			counts.Error = n
		}
	}
	return counts, rows.Err()
}
