package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tianqilab/tianqi/internal/store"
)

func f64Ptr(v float64) *float64 { return &v }

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

func dailyRows(t *testing.T, start string, values []float64) []store.Row {
	t.Helper()
	d := mustDate(t, start)
	out := make([]store.Row, 0, len(values))
	for i, v := range values {
		value := v
		out = append(out, store.Row{
			City:    "北京",
			Date:    d.AddDate(0, 0, i),
			TempMax: &value,
		})
	}
	return out
}

func TestForecast_InsufficientHistory(t *testing.T) {
	testCases := []struct {
		name string
		rows []store.Row
	}{
		{name: "no rows", rows: nil},
		{name: "one observation", rows: dailyRows(t, "2024-01-01", []float64{10})},
		{
			name: "values all null",
			rows: []store.Row{
				{City: "北京", Date: mustDate(t, "2024-01-01")},
				{City: "北京", Date: mustDate(t, "2024-01-02")},
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Forecast(tc.rows, "北京", "temp_max", 3)
			require.Error(t, err)
			assert.True(t, IsInsufficientHistory(err))
		})
	}
}

func TestForecast_InsufficientHistoryDetail(t *testing.T) {
	_, err := Forecast(dailyRows(t, "2024-01-01", []float64{10}), "北京", "temp_max", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "北京")
	assert.Contains(t, err.Error(), "temp_max")
	assert.Contains(t, err.Error(), "1 observations")
}

func TestForecast_ShortHistoryIsPersistence(t *testing.T) {
	// Below the fit threshold the model carries the last value forward
	// instead of extrapolating a line through a handful of points.
	rows := dailyRows(t, "2024-01-01", []float64{5, 9, 12})

	points, err := Forecast(rows, "北京", "temp_max", 3)
	require.NoError(t, err)
	require.Len(t, points, 3)
	for _, p := range points {
		assert.Equal(t, 12.0, p.Value)
	}
}

func TestForecast_LinearHistoryExtrapolatesExactly(t *testing.T) {
	// 10, 12, ..., 18 rises 2 per day; the fit continues the line.
	rows := dailyRows(t, "2024-01-01", []float64{10, 12, 14, 16, 18})

	points, err := Forecast(rows, "北京", "temp_max", 3)
	require.NoError(t, err)
	require.Len(t, points, 3)

	assert.Equal(t, mustDate(t, "2024-01-06"), points[0].Date)
	assert.Equal(t, 20.0, points[0].Value)
	assert.Equal(t, mustDate(t, "2024-01-07"), points[1].Date)
	assert.Equal(t, 22.0, points[1].Value)
	assert.Equal(t, 24.0, points[2].Value)
}

func TestForecast_DatesStartAfterLastObservation(t *testing.T) {
	rows := dailyRows(t, "2024-02-25", []float64{1, 2, 3, 4, 5})

	points, err := Forecast(rows, "北京", "temp_max", 2)
	require.NoError(t, err)
	require.Len(t, points, 2)
	// 2024 is a leap year; the calendar rolls through Feb 29.
	assert.Equal(t, mustDate(t, "2024-03-01"), points[0].Date)
	assert.Equal(t, mustDate(t, "2024-03-02"), points[1].Date)
}

func TestForecast_SkipsNullValues(t *testing.T) {
	rows := dailyRows(t, "2024-01-01", []float64{10, 12, 14, 16, 18})
	rows = append(rows, store.Row{City: "北京", Date: mustDate(t, "2024-01-06")})

	points, err := Forecast(rows, "北京", "temp_max", 1)
	require.NoError(t, err)
	require.Len(t, points, 1)
	// The null row is not an observation; estimates start after the
	// last usable value.
	assert.Equal(t, mustDate(t, "2024-01-06"), points[0].Date)
	assert.Equal(t, 20.0, points[0].Value)
}

func TestForecast_GappedHistory(t *testing.T) {
	// Observations two days apart rising 2 per observation: the slope is
	// 1 per day, and the estimate continues from the last calendar day.
	rows := []store.Row{
		{City: "北京", Date: mustDate(t, "2024-01-01"), TempMax: f64Ptr(10)},
		{City: "北京", Date: mustDate(t, "2024-01-03"), TempMax: f64Ptr(12)},
		{City: "北京", Date: mustDate(t, "2024-01-05"), TempMax: f64Ptr(14)},
		{City: "北京", Date: mustDate(t, "2024-01-07"), TempMax: f64Ptr(16)},
		{City: "北京", Date: mustDate(t, "2024-01-09"), TempMax: f64Ptr(18)},
	}

	points, err := Forecast(rows, "北京", "temp_max", 2)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, mustDate(t, "2024-01-10"), points[0].Date)
	assert.Equal(t, 19.0, points[0].Value)
	assert.Equal(t, 20.0, points[1].Value)
}

func TestForecast_ValuesRounded(t *testing.T) {
	rows := dailyRows(t, "2024-01-01", []float64{10, 10.1, 10.2, 10.3, 10.4})

	points, err := Forecast(rows, "北京", "temp_max", 1)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 10.5, points[0].Value)
}
