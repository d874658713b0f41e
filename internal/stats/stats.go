// Package stats implements the analytical transforms over observation
// rows: descriptive statistics, period bucketing, cross-city comparison,
// threshold event counting, and trend classification.
//
// Every transform is a pure function of its parameters and the row
// sequence. Rows whose metric value is null are skipped. Zero matching
// rows is a valid outcome everywhere, never an error.
package stats

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/tianqilab/tianqi/internal/schema"
	"github.com/tianqilab/tianqi/internal/store"
)

// Summary holds descriptive statistics of one metric. Pointer fields
// are nil when undefined: min/max/mean for an empty series, stddev for
// fewer than two values. A nil stddev is deliberately distinct from
// zero so callers can tell "too little data" from "no spread".
type Summary struct {
	Count  int
	Min    *float64
	Max    *float64
	Mean   *float64
	Stddev *float64
}

// Describe computes count, min, max, mean, and population standard
// deviation of one metric.
//
// The standard deviation uses Welford's one-pass update rather than the
// naive sum-of-squares form, which loses precision to cancellation on
// long series with a large mean.
func Describe(rows []store.Row, metric string) Summary {
	var (
		count    int
		min, max float64
		mean, m2 float64
	)
	for _, r := range rows {
		v := r.Metric(metric)
		if v == nil {
			continue
		}
		count++
		if count == 1 {
			min, max = *v, *v
		} else {
			if *v < min {
				min = *v
			}
			if *v > max {
				max = *v
			}
		}
		delta := *v - mean
		mean += delta / float64(count)
		m2 += delta * (*v - mean)
	}

	s := Summary{Count: count}
	if count == 0 {
		return s
	}
	s.Min = &min
	s.Max = &max
	s.Mean = &mean
	if count >= 2 {
		stddev := math.Sqrt(m2 / float64(count))
		s.Stddev = &stddev
	}
	return s
}

// Bucket is one period's aggregate in a grouped series.
type Bucket struct {
	Period string
	Count  int
	Min    float64
	Max    float64
	Mean   float64
}

// GroupByPeriod truncates each row's date to the requested granularity
// and aggregates per bucket. Buckets are emitted in chronological order.
// The series is sparse: a period with no matching rows produces no
// bucket at all, so count is always >= 1.
func GroupByPeriod(rows []store.Row, metric string, period schema.Period) []Bucket {
	sums := map[string]*Bucket{}
	for _, r := range rows {
		v := r.Metric(metric)
		if v == nil {
			continue
		}
		key := periodKey(r.Date, period)
		b, ok := sums[key]
		if !ok {
			b = &Bucket{Period: key, Min: *v, Max: *v}
			sums[key] = b
		}
		if *v < b.Min {
			b.Min = *v
		}
		if *v > b.Max {
			b.Max = *v
		}
		b.Mean += *v // running sum until the final pass
		b.Count++
	}

	keys := make([]string, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	// Period labels are zero-padded, so lexicographic order is
	// chronological order.
	sort.Strings(keys)

	out := make([]Bucket, 0, len(keys))
	for _, k := range keys {
		b := sums[k]
		b.Mean /= float64(b.Count)
		out = append(out, *b)
	}
	return out
}

func periodKey(d time.Time, period schema.Period) string {
	if period == schema.PeriodYear {
		return fmt.Sprintf("%04d", d.Year())
	}
	return fmt.Sprintf("%04d-%02d", d.Year(), int(d.Month()))
}

// CitySummary is one city's entry in a cross-city comparison.
type CitySummary struct {
	City string
	Summary
}

// CompareCities describes the metric independently per requested city.
//
// Unlike GroupByPeriod, the group set here is explicit caller input, so
// every requested city appears in the result in request order - a city
// with no rows gets Count 0 and nil min/max/mean rather than being
// dropped. City matching is case-insensitive, consistent with reads.
func CompareCities(rows []store.Row, cities []string, metric string) []CitySummary {
	byCity := map[string][]store.Row{}
	for _, r := range rows {
		key := strings.ToLower(r.City)
		byCity[key] = append(byCity[key], r)
	}

	out := make([]CitySummary, 0, len(cities))
	for _, city := range cities {
		cityRows := byCity[strings.ToLower(city)]
		out = append(out, CitySummary{
			City:    city,
			Summary: Describe(cityRows, metric),
		})
	}
	return out
}

// CountEvents counts rows whose metric compares true against the
// threshold. comparison must be one of >, >=, <, <= (already validated);
// anything else counts nothing.
func CountEvents(rows []store.Row, metric string, threshold float64, comparison schema.Operator) int {
	count := 0
	for _, r := range rows {
		v := r.Metric(metric)
		if v == nil {
			continue
		}
		var match bool
		switch comparison {
		case schema.OpGt:
			match = *v > threshold
		case schema.OpGte:
			match = *v >= threshold
		case schema.OpLt:
			match = *v < threshold
		case schema.OpLte:
			match = *v <= threshold
		}
		if match {
			count++
		}
	}
	return count
}
