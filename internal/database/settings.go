package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

// Settings are a flat string store with dot-path hierarchical keys
// (e.g. "scan.similarity_threshold"). Typed configuration lives in the
// config package; this table is its persistence interface.

// GetSetting returns the value for key, or def when the key is unset.
func (s *Store) GetSetting(ctx context.Context, key, def string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting stores (or replaces) the value for key.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)", key, value); err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// AllSettings returns the full settings map.
func (s *Store) AllSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM settings ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

// clusterCounterKey holds the monotonically increasing counter used to name
// new clusters.
const clusterCounterKey = "cluster.last_cluster_id"

// NextClusterID increments and returns the cluster naming counter.
func (s *Store) NextClusterID(ctx context.Context) (int, error) {
	last, err := s.GetSetting(ctx, clusterCounterKey, "0")
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(last)
	if err != nil {
		n = 0
	}
	n++
	if err := s.SetSetting(ctx, clusterCounterKey, strconv.Itoa(n)); err != nil {
		return 0, err
	}
	return n, nil
}
