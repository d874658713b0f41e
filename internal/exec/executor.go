// Package exec runs canonical queries against the observation store.
//
// Each invocation performs exactly one bounded read. The executor adds
// two guarantees on top of the store: output order is always ascending
// (city then date for multi-city queries, date otherwise), and store
// failures surface as StoreUnavailableError without any local retry.
package exec

import (
	"context"
	"errors"
	"fmt"

	"github.com/tianqilab/tianqi/internal/query"
	"github.com/tianqilab/tianqi/internal/querysql"
	"github.com/tianqilab/tianqi/internal/schema"
	"github.com/tianqilab/tianqi/internal/store"
)

// RowReader is the single bounded read the executor needs from the
// store. *store.Store satisfies it.
type RowReader interface {
	ReadObservations(ctx context.Context, sql string, args []any) ([]store.Row, error)
}

// StoreUnavailableError wraps a failed store read. The cause propagates
// unmodified; the executor never retries.
type StoreUnavailableError struct {
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable: %v", e.Err)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}

// IsStoreUnavailable reports whether err is a StoreUnavailableError.
// Uses errors.As to handle wrapped errors.
func IsStoreUnavailable(err error) bool {
	var se *StoreUnavailableError
	return errors.As(err, &se)
}

// Executor translates validated queries into store reads.
type Executor struct {
	reader RowReader
	reg    *schema.Registry
}

// New creates an Executor over the given reader and registry.
func New(reader RowReader, reg *schema.Registry) *Executor {
	return &Executor{reader: reader, reg: reg}
}

// Rows executes one bounded read for a canonical query.
//
// Field names are re-checked against the registry before any SQL is
// compiled, even though the validator already did so: the executor does
// not assume its caller was the validator. Results never exceed
// q.Limit and are ordered ascending regardless of q.Latest.
//
// An empty result is valid and returns an empty slice, not an error.
func (e *Executor) Rows(ctx context.Context, q query.RowQuery) ([]store.Row, error) {
	for _, name := range q.Fields {
		if _, err := e.reg.Field(name); err != nil {
			return nil, err
		}
	}
	for _, name := range q.NotNull {
		if _, err := e.reg.Field(name); err != nil {
			return nil, err
		}
	}
	for _, f := range q.Filters {
		if _, err := e.reg.Field(f.Field.Name); err != nil {
			return nil, err
		}
	}

	sql, params, err := querysql.Compile(q, store.ObservationColumns)
	if err != nil {
		return nil, fmt.Errorf("compile query: %w", err)
	}

	rows, err := e.reader.ReadObservations(ctx, sql, params)
	if err != nil {
		return nil, &StoreUnavailableError{Err: err}
	}

	// A Latest read scans newest-first to bind LIMIT to the most recent
	// rows; flip it back so the output contract is always ascending.
	if q.Latest {
		reverse(rows)
	}
	return rows, nil
}

func reverse(rows []store.Row) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}
