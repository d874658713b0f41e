package stats

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tianqilab/tianqi/internal/schema"
	"github.com/tianqilab/tianqi/internal/store"
)

func f64Ptr(v float64) *float64 { return &v }

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

func metricRows(t *testing.T, city string, values map[string]*float64) []store.Row {
	t.Helper()
	dates := make([]string, 0, len(values))
	for d := range values {
		dates = append(dates, d)
	}
	// Insertion order does not matter to the transforms under test, but
	// keep the fixture ascending like a real read.
	for i := range dates {
		for j := i + 1; j < len(dates); j++ {
			if dates[j] < dates[i] {
				dates[i], dates[j] = dates[j], dates[i]
			}
		}
	}
	out := make([]store.Row, 0, len(dates))
	for _, d := range dates {
		out = append(out, store.Row{City: city, Date: mustDate(t, d), TempMax: values[d]})
	}
	return out
}

func TestDescribe_Exact(t *testing.T) {
	rows := metricRows(t, "北京", map[string]*float64{
		"2024-01-01": f64Ptr(2),
		"2024-01-02": f64Ptr(4),
		"2024-01-03": f64Ptr(6),
		"2024-01-04": f64Ptr(8),
	})

	s := Describe(rows, "temp_max")
	assert.Equal(t, 4, s.Count)
	assert.Equal(t, 2.0, *s.Min)
	assert.Equal(t, 8.0, *s.Max)
	assert.Equal(t, 5.0, *s.Mean)
	// Population stddev of {2,4,6,8} is sqrt(5).
	assert.InDelta(t, math.Sqrt(5), *s.Stddev, 1e-12)
}

func TestDescribe_Empty(t *testing.T) {
	s := Describe(nil, "temp_max")
	assert.Zero(t, s.Count)
	assert.Nil(t, s.Min)
	assert.Nil(t, s.Max)
	assert.Nil(t, s.Mean)
	assert.Nil(t, s.Stddev)
}

func TestDescribe_SingleValueHasNoStddev(t *testing.T) {
	rows := metricRows(t, "北京", map[string]*float64{"2024-01-01": f64Ptr(7)})

	s := Describe(rows, "temp_max")
	assert.Equal(t, 1, s.Count)
	assert.Equal(t, 7.0, *s.Mean)
	// One value has no spread to measure; nil, not zero.
	assert.Nil(t, s.Stddev)
}

func TestDescribe_SkipsNullValues(t *testing.T) {
	rows := metricRows(t, "北京", map[string]*float64{
		"2024-01-01": f64Ptr(10),
		"2024-01-02": nil,
		"2024-01-03": f64Ptr(20),
	})

	s := Describe(rows, "temp_max")
	assert.Equal(t, 2, s.Count)
	assert.Equal(t, 15.0, *s.Mean)
}

func TestDescribe_StableUnderLargeOffset(t *testing.T) {
	// Welford keeps precision where the naive sum-of-squares form
	// cancels; the spread must not depend on the mean's magnitude.
	base := metricRows(t, "北京", map[string]*float64{
		"2024-01-01": f64Ptr(1),
		"2024-01-02": f64Ptr(2),
		"2024-01-03": f64Ptr(3),
	})
	offset := metricRows(t, "北京", map[string]*float64{
		"2024-01-01": f64Ptr(1e8 + 1),
		"2024-01-02": f64Ptr(1e8 + 2),
		"2024-01-03": f64Ptr(1e8 + 3),
	})

	sBase := Describe(base, "temp_max")
	sOffset := Describe(offset, "temp_max")
	assert.InDelta(t, *sBase.Stddev, *sOffset.Stddev, 1e-6)
}

func TestGroupByPeriod_Month(t *testing.T) {
	rows := metricRows(t, "北京", map[string]*float64{
		"2024-01-05": f64Ptr(2),
		"2024-01-20": f64Ptr(6),
		"2024-03-01": f64Ptr(10),
	})

	buckets := GroupByPeriod(rows, "temp_max", schema.PeriodMonth)
	require.Len(t, buckets, 2)

	assert.Equal(t, "2024-01", buckets[0].Period)
	assert.Equal(t, 2, buckets[0].Count)
	assert.Equal(t, 2.0, buckets[0].Min)
	assert.Equal(t, 6.0, buckets[0].Max)
	assert.Equal(t, 4.0, buckets[0].Mean)

	// February has no rows and therefore no bucket: sparse series.
	assert.Equal(t, "2024-03", buckets[1].Period)
	assert.Equal(t, 1, buckets[1].Count)
}

func TestGroupByPeriod_Year(t *testing.T) {
	rows := metricRows(t, "北京", map[string]*float64{
		"2022-06-01": f64Ptr(30),
		"2023-06-01": f64Ptr(32),
		"2023-07-01": f64Ptr(34),
	})

	buckets := GroupByPeriod(rows, "temp_max", schema.PeriodYear)
	require.Len(t, buckets, 2)
	assert.Equal(t, "2022", buckets[0].Period)
	assert.Equal(t, "2023", buckets[1].Period)
	assert.Equal(t, 33.0, buckets[1].Mean)
}

func TestGroupByPeriod_ChronologicalOrder(t *testing.T) {
	rows := metricRows(t, "北京", map[string]*float64{
		"2023-12-01": f64Ptr(1),
		"2024-02-01": f64Ptr(2),
		"2024-01-01": f64Ptr(3),
		"2024-10-01": f64Ptr(4),
	})

	buckets := GroupByPeriod(rows, "temp_max", schema.PeriodMonth)
	periods := make([]string, len(buckets))
	for i, b := range buckets {
		periods[i] = b.Period
	}
	assert.Equal(t, []string{"2023-12", "2024-01", "2024-02", "2024-10"}, periods)
}

func TestGroupByPeriod_Empty(t *testing.T) {
	buckets := GroupByPeriod(nil, "temp_max", schema.PeriodMonth)
	assert.Empty(t, buckets)
}

func TestCompareCities_RequestOrderPreserved(t *testing.T) {
	rows := []store.Row{
		{City: "上海", Date: mustDate(t, "2024-01-01"), TempMax: f64Ptr(9)},
		{City: "北京", Date: mustDate(t, "2024-01-01"), TempMax: f64Ptr(3)},
		{City: "北京", Date: mustDate(t, "2024-01-02"), TempMax: f64Ptr(5)},
	}

	out := CompareCities(rows, []string{"北京", "上海", "广州"}, "temp_max")
	require.Len(t, out, 3)

	assert.Equal(t, "北京", out[0].City)
	assert.Equal(t, 2, out[0].Count)
	assert.Equal(t, 4.0, *out[0].Mean)

	assert.Equal(t, "上海", out[1].City)
	assert.Equal(t, 1, out[1].Count)

	// A requested city with no rows still gets an entry.
	assert.Equal(t, "广州", out[2].City)
	assert.Zero(t, out[2].Count)
	assert.Nil(t, out[2].Mean)
}

func TestCompareCities_CaseInsensitiveGrouping(t *testing.T) {
	rows := []store.Row{
		{City: "Beijing", Date: mustDate(t, "2024-01-01"), TempMax: f64Ptr(3)},
		{City: "beijing", Date: mustDate(t, "2024-01-02"), TempMax: f64Ptr(5)},
	}

	out := CompareCities(rows, []string{"BEIJING"}, "temp_max")
	require.Len(t, out, 1)
	assert.Equal(t, 2, out[0].Count)
}

func TestCountEvents_Boundaries(t *testing.T) {
	rows := metricRows(t, "北京", map[string]*float64{
		"2024-01-01": f64Ptr(34),
		"2024-01-02": f64Ptr(35),
		"2024-01-03": f64Ptr(36),
		"2024-01-04": nil,
	})

	testCases := []struct {
		name       string
		comparison schema.Operator
		want       int
	}{
		{name: "strictly greater excludes threshold", comparison: schema.OpGt, want: 1},
		{name: "greater-equal includes threshold", comparison: schema.OpGte, want: 2},
		{name: "strictly less excludes threshold", comparison: schema.OpLt, want: 1},
		{name: "less-equal includes threshold", comparison: schema.OpLte, want: 2},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CountEvents(rows, "temp_max", 35, tc.comparison))
		})
	}
}

func TestCountEvents_UnknownComparisonCountsNothing(t *testing.T) {
	rows := metricRows(t, "北京", map[string]*float64{"2024-01-01": f64Ptr(34)})
	assert.Zero(t, CountEvents(rows, "temp_max", 0, schema.OpEq))
}
