package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tianqilab/tianqi/internal/query"
	"github.com/tianqilab/tianqi/internal/querysql"
)

// compiledRead proves compiled statements prepare and run against a real
// database, not just that they look right as strings.
func compiledRead(t *testing.T, s *Store, q query.RowQuery) []Row {
	t.Helper()
	sql, params, err := querysql.Compile(q, ObservationColumns)
	require.NoError(t, err)
	rows, err := s.ReadObservations(context.Background(), sql, params)
	require.NoError(t, err)
	return rows
}

func TestReadObservations_CompiledMultiCity(t *testing.T) {
	s := openTestStore(t)
	seedRows(t, s, sampleRows(t))

	start := mustDate(t, "2024-01-01")
	end := mustDate(t, "2024-01-31")
	rows := compiledRead(t, s, query.RowQuery{
		Cities: []string{"北京", "上海"},
		Start:  &start,
		End:    &end,
		Limit:  10,
	})

	require.Len(t, rows, 4)
	// Binary collation puts 上海 before 北京; dates ascend within a city.
	assert.Equal(t, "上海", rows[0].City)
	assert.Equal(t, "北京", rows[1].City)
	assert.Equal(t, mustDate(t, "2024-01-01"), rows[1].Date)
	assert.Equal(t, mustDate(t, "2024-01-04"), rows[3].Date)
}

func TestReadObservations_CompiledWithoutCity(t *testing.T) {
	s := openTestStore(t)
	seedRows(t, s, sampleRows(t))

	rows := compiledRead(t, s, query.RowQuery{Limit: 2})

	require.Len(t, rows, 2)
	assert.Equal(t, "上海", rows[0].City)
	assert.Equal(t, "北京", rows[1].City)
}

func TestReadObservations_CompiledLatestWithoutCity(t *testing.T) {
	s := openTestStore(t)
	seedRows(t, s, sampleRows(t))

	rows := compiledRead(t, s, query.RowQuery{Limit: 3, Latest: true})

	require.Len(t, rows, 3)
	assert.Equal(t, "北京", rows[0].City)
	assert.Equal(t, mustDate(t, "2024-01-04"), rows[0].Date)
}
