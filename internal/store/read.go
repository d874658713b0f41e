package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ObservationColumns is the fixed SELECT list for observation reads.
// Projection to a request's output fields happens after scanning; the
// column order here must match scanRow.
const ObservationColumns = "city, date, weather_condition, temp_min, temp_max, wind_info"

// ReadObservations executes a compiled observation query and returns the
// scanned rows. The SQL is produced by internal/querysql and always
// carries a deterministic ORDER BY and a LIMIT.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) ReadObservations(ctx context.Context, query string, args []any) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	out := []Row{}
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observations: %w", err)
	}
	return out, nil
}

// scanRow scans one observation in observationColumns order.
func scanRow(rows *sql.Rows) (Row, error) {
	var (
		r         Row
		date      string
		condition sql.NullString
		tempMin   sql.NullFloat64
		tempMax   sql.NullFloat64
		wind      sql.NullString
	)
	if err := rows.Scan(&r.City, &date, &condition, &tempMin, &tempMax, &wind); err != nil {
		return Row{}, fmt.Errorf("scan observation: %w", err)
	}

	d, err := time.Parse(dateFormat, date)
	if err != nil {
		return Row{}, fmt.Errorf("parse stored date %q: %w", date, err)
	}
	r.Date = d
	if condition.Valid {
		r.Condition = &condition.String
	}
	if tempMin.Valid {
		r.TempMin = &tempMin.Float64
	}
	if tempMax.Valid {
		r.TempMax = &tempMax.Float64
	}
	if wind.Valid {
		r.Wind = &wind.String
	}
	return r, nil
}

// Overview summarizes the whole dataset.
type Overview struct {
	TotalRecords int
	Cities       []string // distinct, ascending
	Start        *time.Time
	End          *time.Time
}

// ReadOverview returns dataset-wide statistics: total row count, the
// distinct city list in ascending order, and the observed date range.
// Start and End are nil for an empty dataset.
func (s *Store) ReadOverview(ctx context.Context) (Overview, error) {
	var o Overview

	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM observations",
	).Scan(&o.TotalRecords); err != nil {
		return Overview{}, fmt.Errorf("count observations: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT city FROM observations ORDER BY city COLLATE BINARY ASC",
	)
	if err != nil {
		return Overview{}, fmt.Errorf("query cities: %w", err)
	}
	defer rows.Close()

	o.Cities = []string{}
	for rows.Next() {
		var city string
		if err := rows.Scan(&city); err != nil {
			return Overview{}, fmt.Errorf("scan city: %w", err)
		}
		o.Cities = append(o.Cities, city)
	}
	if err := rows.Err(); err != nil {
		return Overview{}, fmt.Errorf("iterate cities: %w", err)
	}

	var minDate, maxDate sql.NullString
	if err := s.db.QueryRowContext(ctx,
		"SELECT MIN(date), MAX(date) FROM observations",
	).Scan(&minDate, &maxDate); err != nil {
		return Overview{}, fmt.Errorf("query date range: %w", err)
	}
	if minDate.Valid {
		t, err := time.Parse(dateFormat, minDate.String)
		if err != nil {
			return Overview{}, fmt.Errorf("parse stored date %q: %w", minDate.String, err)
		}
		o.Start = &t
	}
	if maxDate.Valid {
		t, err := time.Parse(dateFormat, maxDate.String)
		if err != nil {
			return Overview{}, fmt.Errorf("parse stored date %q: %w", maxDate.String, err)
		}
		o.End = &t
	}

	return o, nil
}

// ReadCoveredDates returns the dates in [start, end] that have an
// observation for the city, ascending. City matching is
// case-insensitive, consistent with observation reads.
func (s *Store) ReadCoveredDates(ctx context.Context, city string, start, end time.Time) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date FROM observations
		WHERE city = ? COLLATE NOCASE AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, city, start.Format(dateFormat), end.Format(dateFormat))
	if err != nil {
		return nil, fmt.Errorf("query coverage: %w", err)
	}
	defer rows.Close()

	out := []time.Time{}
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, fmt.Errorf("scan coverage date: %w", err)
		}
		t, err := time.Parse(dateFormat, date)
		if err != nil {
			return nil, fmt.Errorf("parse stored date %q: %w", date, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coverage: %w", err)
	}
	return out, nil
}
