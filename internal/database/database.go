// Package database implements the local SQLite store that ties folders,
// images, faces, persons, albums and settings together. It is the single
// source of truth for every other component.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Scan status values for images.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// UnassignedPersonName is the permanent sentinel person holding faces that
// have not been attributed to a specific identity yet. It is created lazily
// and never deleted, renamed or merged away.
const UnassignedPersonName = "unassigned"

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrSentinelPerson is returned by operations that would delete, rename or
// merge away the unassigned sentinel person.
var ErrSentinelPerson = errors.New("operation not allowed on the unassigned person")

// Store wraps the SQLite database connection.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and runs
// schema migration. Foreign keys are enabled so cascade deletes work.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer; keep the pool small and long-lived.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS folders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT UNIQUE NOT NULL,
		added_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		folder_id INTEGER NOT NULL,
		file_path TEXT UNIQUE NOT NULL,
		file_name TEXT NOT NULL,
		file_size INTEGER,
		orig_width INTEGER DEFAULT 0,
		orig_height INTEGER DEFAULT 0,
		created_time TIMESTAMP,
		scan_status TEXT DEFAULT 'pending',
		FOREIGN KEY (folder_id) REFERENCES folders (id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_images_folder ON images(folder_id);
	CREATE INDEX IF NOT EXISTS idx_images_status ON images(scan_status);

	CREATE TABLE IF NOT EXISTS persons (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT DEFAULT 'not recognized',
		is_confirmed BOOLEAN DEFAULT FALSE,
		created_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS faces (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		image_id INTEGER NOT NULL,
		person_id INTEGER NOT NULL,
		embedding BLOB,
		bbox_x1 REAL,
		bbox_y1 REAL,
		bbox_x2 REAL,
		bbox_y2 REAL,
		confidence REAL,
		is_person BOOLEAN DEFAULT 0,
		created_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (image_id) REFERENCES images (id) ON DELETE CASCADE,
		FOREIGN KEY (person_id) REFERENCES persons (id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_faces_image ON faces(image_id);
	CREATE INDEX IF NOT EXISTS idx_faces_person ON faces(person_id);

	CREATE TABLE IF NOT EXISTS albums (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		person_id INTEGER UNIQUE NOT NULL,
		output_path TEXT,
		FOREIGN KEY (person_id) REFERENCES persons (id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY NOT NULL,
		value TEXT
	);
	`

	_, err := db.Exec(schema)
	return err
}

// ClearProcessedData deletes all faces, images and non-sentinel persons.
// Registered folders, albums for the sentinel and settings are kept.
func (s *Store) ClearProcessedData(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM faces"); err != nil {
		return fmt.Errorf("delete faces: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM images"); err != nil {
		return fmt.Errorf("delete images: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM persons WHERE name != ?", UnassignedPersonName); err != nil {
		return fmt.Errorf("delete persons: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
