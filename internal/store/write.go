package store

import (
	"context"
	"fmt"
	"time"
)

// InsertObservations inserts rows, replacing any existing row with the
// same (city, date) key. Used by tests and one-off imports; ingestion
// should go through ReplaceRange.
func (s *Store) InsertObservations(ctx context.Context, rows []Row) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO observations
			(city, date, weather_condition, temp_min, temp_max, wind_info)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx,
			r.City, r.Date.Format(dateFormat), r.Condition, r.TempMin, r.TempMax, r.Wind,
		); err != nil {
			return fmt.Errorf("insert observation %s/%s: %w", r.City, r.Date.Format(dateFormat), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	return nil
}

// ReplaceRange atomically swaps a city's observations within [start, end]
// for the given rows. Existing rows in the range are removed first so a
// re-ingest never produces duplicates. Returns the number of rows added.
func (s *Store) ReplaceRange(ctx context.Context, city string, start, end time.Time, rows []Row) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM observations
		WHERE city = ? COLLATE NOCASE AND date >= ? AND date <= ?
	`, city, start.Format(dateFormat), end.Format(dateFormat)); err != nil {
		return 0, fmt.Errorf("delete range: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO observations
			(city, date, weather_condition, temp_min, temp_max, wind_info)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare replace: %w", err)
	}
	defer stmt.Close()

	added := 0
	for _, r := range rows {
		// Rows outside the requested range are the caller's bug; skip
		// them rather than widening the delete window.
		if r.Date.Before(start) || r.Date.After(end) {
			continue
		}
		if _, err := stmt.ExecContext(ctx,
			r.City, r.Date.Format(dateFormat), r.Condition, r.TempMin, r.TempMax, r.Wind,
		); err != nil {
			return 0, fmt.Errorf("insert observation %s/%s: %w", r.City, r.Date.Format(dateFormat), err)
		}
		added++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit replace: %w", err)
	}
	return added, nil
}
