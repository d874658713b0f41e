package exec

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tianqilab/tianqi/internal/query"
	"github.com/tianqilab/tianqi/internal/schema"
	"github.com/tianqilab/tianqi/internal/store"
)

// fakeReader records the SQL it was handed and returns canned rows.
type fakeReader struct {
	sql    string
	params []any
	rows   []store.Row
	err    error
}

func (f *fakeReader) ReadObservations(_ context.Context, sql string, params []any) ([]store.Row, error) {
	f.sql = sql
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func mustRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := schema.Load()
	require.NoError(t, err)
	return reg
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(query.DateFormat, s)
	require.NoError(t, err)
	return d
}

func TestRows_CompilesAndReads(t *testing.T) {
	reader := &fakeReader{rows: []store.Row{
		{City: "北京", Date: mustDate(t, "2024-01-01")},
	}}
	e := New(reader, mustRegistry(t))

	rows, err := e.Rows(context.Background(), query.RowQuery{
		Cities: []string{"北京"},
		Fields: []string{"city", "date"},
		Limit:  10,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Contains(t, reader.sql, "SELECT")
	assert.Contains(t, reader.sql, "ORDER BY")
	assert.Equal(t, []any{"北京", 10}, reader.params)
}

func TestRows_UnknownFieldRejected(t *testing.T) {
	e := New(&fakeReader{}, mustRegistry(t))

	testCases := []struct {
		name string
		q    query.RowQuery
	}{
		{
			name: "projection field",
			q:    query.RowQuery{Fields: []string{"humidity"}, Limit: 10},
		},
		{
			name: "not-null field",
			q:    query.RowQuery{Fields: []string{"date"}, NotNull: []string{"humidity"}, Limit: 10},
		},
		{
			name: "filter field",
			q: query.RowQuery{
				Fields: []string{"date"},
				Filters: []query.Filter{
					{Field: schema.FieldDescriptor{Name: "humidity", Column: "humidity"}, Op: schema.OpEq, Value: "x"},
				},
				Limit: 10,
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.Rows(context.Background(), tc.q)
			require.Error(t, err)
			assert.True(t, schema.IsUnknownField(err))
		})
	}
}

func TestRows_StoreFailureWrapped(t *testing.T) {
	cause := errors.New("disk I/O error")
	e := New(&fakeReader{err: cause}, mustRegistry(t))

	_, err := e.Rows(context.Background(), query.RowQuery{Fields: []string{"date"}, Limit: 10})
	require.Error(t, err)
	assert.True(t, IsStoreUnavailable(err))
	assert.ErrorIs(t, err, cause)
}

func TestRows_LatestReversedToAscending(t *testing.T) {
	// The store hands back newest-first for a Latest read.
	reader := &fakeReader{rows: []store.Row{
		{City: "北京", Date: mustDate(t, "2024-01-03")},
		{City: "北京", Date: mustDate(t, "2024-01-02")},
		{City: "北京", Date: mustDate(t, "2024-01-01")},
	}}
	e := New(reader, mustRegistry(t))

	rows, err := e.Rows(context.Background(), query.RowQuery{
		Cities: []string{"北京"},
		Fields: []string{"date", "temp_max"},
		Limit:  3,
		Latest: true,
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Contains(t, reader.sql, "DESC")
	assert.Equal(t, mustDate(t, "2024-01-01"), rows[0].Date)
	assert.Equal(t, mustDate(t, "2024-01-03"), rows[2].Date)
}

func TestRows_EmptyResultValid(t *testing.T) {
	e := New(&fakeReader{rows: []store.Row{}}, mustRegistry(t))

	rows, err := e.Rows(context.Background(), query.RowQuery{Fields: []string{"date"}, Limit: 10})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestRows_LimitOutOfBoundsFails(t *testing.T) {
	e := New(&fakeReader{}, mustRegistry(t))

	_, err := e.Rows(context.Background(), query.RowQuery{Fields: []string{"date"}, Limit: 0})
	require.Error(t, err)
	assert.False(t, IsStoreUnavailable(err))
}
