package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// AddFace stores one detection for an image. The bounding box must already
// be clamped to the image's original pixel space by the caller.
func (s *Store) AddFace(ctx context.Context, imageID, personID int64, embedding []float32, bbox [4]float64, confidence float64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO faces
		(image_id, person_id, embedding, bbox_x1, bbox_y1, bbox_x2, bbox_y2, confidence, is_person)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		imageID, personID, EncodeEmbedding(embedding), bbox[0], bbox[1], bbox[2], bbox[3], confidence)
	if err != nil {
		return 0, fmt.Errorf("add face for image %d: %w", imageID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("add face for image %d: %w", imageID, err)
	}
	return id, nil
}

// GetFace returns a face by id with its decoded embedding.
func (s *Store) GetFace(ctx context.Context, id int64) (*Face, error) {
	var f Face
	var blob []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, image_id, person_id, embedding, bbox_x1, bbox_y1, bbox_x2, bbox_y2, confidence, is_person, created_date
		FROM faces WHERE id = ?`, id,
	).Scan(&f.ID, &f.ImageID, &f.PersonID, &blob,
		&f.BBox[0], &f.BBox[1], &f.BBox[2], &f.BBox[3], &f.Confidence, &f.IsPerson, &f.CreatedDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get face %d: %w", id, err)
	}
	if len(blob) > 0 {
		if emb, err := DecodeEmbedding(blob); err == nil {
			f.Embedding = emb
		}
	}
	return &f, nil
}

// UnassignedFaces returns every face owned by the sentinel person, with raw
// embedding blobs decoded. Faces with missing or unparseable embeddings are
// returned with a nil embedding so the clustering engine can exclude them.
func (s *Store) UnassignedFaces(ctx context.Context) ([]UnassignedFace, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.embedding, f.confidence
		FROM faces f
		JOIN persons p ON f.person_id = p.id
		WHERE p.name = ?
		ORDER BY f.id`, UnassignedPersonName)
	if err != nil {
		return nil, fmt.Errorf("unassigned faces: %w", err)
	}
	defer rows.Close()

	var faces []UnassignedFace
	for rows.Next() {
		var f UnassignedFace
		var blob []byte
		if err := rows.Scan(&f.ID, &blob, &f.Confidence); err != nil {
			return nil, fmt.Errorf("scan unassigned face: %w", err)
		}
		if len(blob) > 0 {
			if emb, err := DecodeEmbedding(blob); err == nil {
				f.Embedding = emb
			}
		}
		faces = append(faces, f)
	}
	return faces, rows.Err()
}

// AllFaceEmbeddings returns id and embedding for every stored face,
// used to build the similarity index.
func (s *Store) AllFaceEmbeddings(ctx context.Context) ([]UnassignedFace, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, embedding, confidence FROM faces ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("all face embeddings: %w", err)
	}
	defer rows.Close()

	var faces []UnassignedFace
	for rows.Next() {
		var f UnassignedFace
		var blob []byte
		if err := rows.Scan(&f.ID, &blob, &f.Confidence); err != nil {
			return nil, fmt.Errorf("scan face embedding: %w", err)
		}
		if len(blob) > 0 {
			if emb, err := DecodeEmbedding(blob); err == nil {
				f.Embedding = emb
			}
		}
		faces = append(faces, f)
	}
	return faces, rows.Err()
}

// FacesByPerson returns all faces of a person joined with their image paths,
// ordered by detector confidence descending.
func (s *Store) FacesByPerson(ctx context.Context, personID int64) ([]PersonFace, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.image_id, i.file_path, f.bbox_x1, f.bbox_y1, f.bbox_x2, f.bbox_y2, f.confidence, f.is_person
		FROM faces f
		JOIN images i ON f.image_id = i.id
		WHERE f.person_id = ?
		ORDER BY f.confidence DESC`, personID)
	if err != nil {
		return nil, fmt.Errorf("faces of person %d: %w", personID, err)
	}
	defer rows.Close()

	var faces []PersonFace
	for rows.Next() {
		var f PersonFace
		if err := rows.Scan(&f.FaceID, &f.ImageID, &f.FilePath,
			&f.BBox[0], &f.BBox[1], &f.BBox[2], &f.BBox[3], &f.Confidence, &f.IsPerson); err != nil {
			return nil, fmt.Errorf("scan person face: %w", err)
		}
		faces = append(faces, f)
	}
	return faces, rows.Err()
}

// FacesByImagePath returns every face detected on the image at path.
func (s *Store) FacesByImagePath(ctx context.Context, filePath string) ([]PersonFace, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.image_id, i.file_path, f.bbox_x1, f.bbox_y1, f.bbox_x2, f.bbox_y2, f.confidence, f.is_person
		FROM faces f
		JOIN images i ON f.image_id = i.id
		WHERE i.file_path = ?`, filePath)
	if err != nil {
		return nil, fmt.Errorf("faces of image %s: %w", filePath, err)
	}
	defer rows.Close()

	var faces []PersonFace
	for rows.Next() {
		var f PersonFace
		if err := rows.Scan(&f.FaceID, &f.ImageID, &f.FilePath,
			&f.BBox[0], &f.BBox[1], &f.BBox[2], &f.BBox[3], &f.Confidence, &f.IsPerson); err != nil {
			return nil, fmt.Errorf("scan image face: %w", err)
		}
		faces = append(faces, f)
	}
	return faces, rows.Err()
}

// MoveFaceToPerson reassigns a face to another person. Faces are only ever
// moved, never copied.
func (s *Store) MoveFaceToPerson(ctx context.Context, faceID, personID int64) error {
	res, err := s.db.ExecContext(ctx, "UPDATE faces SET person_id = ? WHERE id = ?", personID, faceID)
	if err != nil {
		return fmt.Errorf("move face %d: %w", faceID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetFacePersonStatus sets the per-face human confirmation flag.
func (s *Store) SetFacePersonStatus(ctx context.Context, faceID int64, isPerson bool) error {
	res, err := s.db.ExecContext(ctx, "UPDATE faces SET is_person = ? WHERE id = ?", isPerson, faceID)
	if err != nil {
		return fmt.Errorf("set face %d status: %w", faceID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteFace removes a single face.
func (s *Store) DeleteFace(ctx context.Context, faceID int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM faces WHERE id = ?", faceID)
	if err != nil {
		return fmt.Errorf("delete face %d: %w", faceID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountFaces returns the total number of stored faces. The clustering
// engine derives the zero-padding width of new cluster names from it.
func (s *Store) CountFaces(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM faces").Scan(&n); err != nil {
		return 0, fmt.Errorf("count faces: %w", err)
	}
	return n, nil
}
