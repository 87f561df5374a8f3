package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreatePerson creates a new person with the given name, unconfirmed.
func (s *Store) CreatePerson(ctx context.Context, name string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "INSERT INTO persons (name) VALUES (?)", name)
	if err != nil {
		return 0, fmt.Errorf("create person %s: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create person %s: %w", name, err)
	}
	return id, nil
}

// GetPerson returns a person by id.
func (s *Store) GetPerson(ctx context.Context, id int64) (*Person, error) {
	var p Person
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, is_confirmed, created_date FROM persons WHERE id = ?", id,
	).Scan(&p.ID, &p.Name, &p.IsConfirmed, &p.CreatedDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get person %d: %w", id, err)
	}
	return &p, nil
}

// GetPersonByName returns the person with the exact given name.
func (s *Store) GetPersonByName(ctx context.Context, name string) (*Person, error) {
	var p Person
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, is_confirmed, created_date FROM persons WHERE name = ?", name,
	).Scan(&p.ID, &p.Name, &p.IsConfirmed, &p.CreatedDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get person %s: %w", name, err)
	}
	return &p, nil
}

// UnassignedPerson returns the sentinel person, creating it if missing.
func (s *Store) UnassignedPerson(ctx context.Context) (int64, error) {
	p, err := s.GetPersonByName(ctx, UnassignedPersonName)
	if err == nil {
		return p.ID, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return 0, err
	}
	return s.CreatePerson(ctx, UnassignedPersonName)
}

// ListPersons returns all persons, confirmed first, then by name.
func (s *Store) ListPersons(ctx context.Context) ([]Person, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, is_confirmed, created_date FROM persons ORDER BY is_confirmed DESC, name")
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	defer rows.Close()

	var persons []Person
	for rows.Next() {
		var p Person
		if err := rows.Scan(&p.ID, &p.Name, &p.IsConfirmed, &p.CreatedDate); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		persons = append(persons, p)
	}
	return persons, rows.Err()
}

// RenamePerson gives a person a curated name. Renaming confirms the person
// and marks every owned face as person-confirmed. The sentinel cannot be
// renamed.
func (s *Store) RenamePerson(ctx context.Context, id int64, newName string) error {
	p, err := s.GetPerson(ctx, id)
	if err != nil {
		return err
	}
	if p.Name == UnassignedPersonName {
		return ErrSentinelPerson
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"UPDATE persons SET name = ?, is_confirmed = TRUE WHERE id = ?", newName, id); err != nil {
		return fmt.Errorf("rename person %d: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE faces SET is_person = 1 WHERE person_id = ?", id); err != nil {
		return fmt.Errorf("confirm faces of person %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ConfirmPerson sets the person's confirmed flag without renaming.
func (s *Store) ConfirmPerson(ctx context.Context, id int64) error {
	p, err := s.GetPerson(ctx, id)
	if err != nil {
		return err
	}
	if p.Name == UnassignedPersonName {
		return ErrSentinelPerson
	}
	if _, err := s.db.ExecContext(ctx,
		"UPDATE persons SET is_confirmed = TRUE WHERE id = ?", id); err != nil {
		return fmt.Errorf("confirm person %d: %w", id, err)
	}
	return nil
}

// MergePersons reassigns every face of the source person to the target and
// deletes the (now empty) source. The sentinel can be a merge target but
// never a source, since it must survive.
func (s *Store) MergePersons(ctx context.Context, sourceID, targetID int64) error {
	if sourceID == targetID {
		return errors.New("cannot merge a person into itself")
	}
	source, err := s.GetPerson(ctx, sourceID)
	if err != nil {
		return fmt.Errorf("merge source: %w", err)
	}
	if source.Name == UnassignedPersonName {
		return ErrSentinelPerson
	}
	if _, err := s.GetPerson(ctx, targetID); err != nil {
		return fmt.Errorf("merge target: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Move faces before deleting the source, person deletion cascades to faces.
	if _, err := tx.ExecContext(ctx,
		"UPDATE faces SET person_id = ? WHERE person_id = ?", targetID, sourceID); err != nil {
		return fmt.Errorf("move faces from person %d: %w", sourceID, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM persons WHERE id = ?", sourceID); err != nil {
		return fmt.Errorf("delete person %d: %w", sourceID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// DeletePerson removes a person after reassigning its faces to the sentinel,
// so no face is ever silently lost to the cascade. The sentinel itself
// cannot be deleted.
func (s *Store) DeletePerson(ctx context.Context, id int64) error {
	p, err := s.GetPerson(ctx, id)
	if err != nil {
		return err
	}
	if p.Name == UnassignedPersonName {
		return ErrSentinelPerson
	}

	unassignedID, err := s.UnassignedPerson(ctx)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"UPDATE faces SET person_id = ?, is_person = 0 WHERE person_id = ?", unassignedID, id); err != nil {
		return fmt.Errorf("reassign faces of person %d: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM persons WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete person %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// PersonStats returns per-person face counts split by the per-face
// confirmation flag, confirmed persons first, busiest first.
func (s *Store) PersonStats(ctx context.Context) ([]PersonStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.is_confirmed,
		       COALESCE(SUM(CASE WHEN f.is_person = 1 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN f.is_person = 0 THEN 1 ELSE 0 END), 0)
		FROM persons p
		LEFT JOIN faces f ON p.id = f.person_id
		GROUP BY p.id, p.name, p.is_confirmed
		ORDER BY p.is_confirmed DESC, COUNT(f.id) DESC`)
	if err != nil {
		return nil, fmt.Errorf("person stats: %w", err)
	}
	defer rows.Close()

	var stats []PersonStat
	for rows.Next() {
		var st PersonStat
		if err := rows.Scan(&st.PersonID, &st.Name, &st.IsConfirmed, &st.ConfirmedFaces, &st.UnconfirmedFaces); err != nil {
			return nil, fmt.Errorf("scan person stat: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}
