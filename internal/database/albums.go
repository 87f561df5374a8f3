package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SetAlbum associates a person with an export destination directory,
// replacing any previous association.
func (s *Store) SetAlbum(ctx context.Context, personID int64, outputPath string) error {
	if _, err := s.GetPerson(ctx, personID); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO albums (person_id, output_path) VALUES (?, ?)", personID, outputPath); err != nil {
		return fmt.Errorf("set album for person %d: %w", personID, err)
	}
	return nil
}

// GetAlbum returns the album configured for a person, or ErrNotFound.
func (s *Store) GetAlbum(ctx context.Context, personID int64) (*Album, error) {
	var a Album
	err := s.db.QueryRowContext(ctx,
		"SELECT id, person_id, output_path FROM albums WHERE person_id = ?", personID,
	).Scan(&a.ID, &a.PersonID, &a.OutputPath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get album for person %d: %w", personID, err)
	}
	return &a, nil
}

// ListAlbums returns all configured albums.
func (s *Store) ListAlbums(ctx context.Context) ([]Album, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, person_id, output_path FROM albums ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list albums: %w", err)
	}
	defer rows.Close()

	var albums []Album
	for rows.Next() {
		var a Album
		if err := rows.Scan(&a.ID, &a.PersonID, &a.OutputPath); err != nil {
			return nil, fmt.Errorf("scan album: %w", err)
		}
		albums = append(albums, a)
	}
	return albums, rows.Err()
}

// RemoveAlbum deletes the album association for a person.
func (s *Store) RemoveAlbum(ctx context.Context, personID int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM albums WHERE person_id = ?", personID)
	if err != nil {
		return fmt.Errorf("remove album for person %d: %w", personID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// PersonsWithAlbums returns every confirmed person that has an export
// destination configured, in stable name order. The export engine walks
// this list.
func (s *Store) PersonsWithAlbums(ctx context.Context) ([]PersonAlbum, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, a.output_path
		FROM persons p
		JOIN albums a ON p.id = a.person_id
		WHERE p.is_confirmed = TRUE
		ORDER BY p.name`)
	if err != nil {
		return nil, fmt.Errorf("persons with albums: %w", err)
	}
	defer rows.Close()

	var result []PersonAlbum
	for rows.Next() {
		var pa PersonAlbum
		if err := rows.Scan(&pa.PersonID, &pa.Name, &pa.OutputPath); err != nil {
			return nil, fmt.Errorf("scan person album: %w", err)
		}
		result = append(result, pa)
	}
	return result, rows.Err()
}

// PersonPhotos returns every distinct photo containing a face of the person,
// with the total number of faces on each photo across all owners.
func (s *Store) PersonPhotos(ctx context.Context, personID int64) ([]PersonPhoto, error) {
	return s.queryPersonPhotos(ctx, personID, "")
}

// SoloPhotos returns the person's photos containing exactly one face in total.
func (s *Store) SoloPhotos(ctx context.Context, personID int64) ([]PersonPhoto, error) {
	return s.queryPersonPhotos(ctx, personID, "= 1")
}

// GroupPhotos returns the person's photos containing more than one face in total.
func (s *Store) GroupPhotos(ctx context.Context, personID int64) ([]PersonPhoto, error) {
	return s.queryPersonPhotos(ctx, personID, "> 1")
}

// An image holding several faces of the same person must still export as a
// single copy, so rows are grouped per image and the strongest face's
// confidence is reported.
func (s *Store) queryPersonPhotos(ctx context.Context, personID int64, faceCountCond string) ([]PersonPhoto, error) {
	query := `
		SELECT
			i.file_path,
			i.file_name,
			(SELECT COUNT(*) FROM faces f2 WHERE f2.image_id = i.id) AS total_faces,
			MAX(f.confidence) AS confidence
		FROM faces f
		JOIN images i ON f.image_id = i.id
		WHERE f.person_id = ?
		GROUP BY i.id`
	if faceCountCond != "" {
		query += "\n\t\tHAVING total_faces " + faceCountCond
	}
	query += "\n\t\tORDER BY total_faces, confidence DESC, i.file_name"

	rows, err := s.db.QueryContext(ctx, query, personID)
	if err != nil {
		return nil, fmt.Errorf("photos of person %d: %w", personID, err)
	}
	defer rows.Close()

	var photos []PersonPhoto
	for rows.Next() {
		var p PersonPhoto
		if err := rows.Scan(&p.FilePath, &p.FileName, &p.TotalFaces, &p.Confidence); err != nil {
			return nil, fmt.Errorf("scan person photo: %w", err)
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}
