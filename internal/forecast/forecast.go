// Package forecast extrapolates a short trend from recent observations.
//
// The model is deliberately naive: a least-squares line over the most
// recent history, degrading to persistence (last value carried forward)
// when the history is too short to fit meaningfully. The contract is
// the stable part - slope-based estimates, a declared minimum history,
// and a horizon that is bounded before this package is reached.
package forecast

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/tianqilab/tianqi/internal/stats"
	"github.com/tianqilab/tianqi/internal/store"
)

// MinHistory is the fewest observations a forecast will extrapolate
// from. Below it the module fails rather than emit a degenerate line
// through one point.
const MinHistory = 2

// fitThreshold is the history length below which the model falls back
// from a fitted line to persistence. A line through a handful of noisy
// dailies extrapolates wildly; the last observed value does not.
const fitThreshold = 5

// InsufficientHistoryError is returned when a city/metric has fewer than
// MinHistory usable observations.
type InsufficientHistoryError struct {
	City     string
	Metric   string
	Observed int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history for %s/%s: %d observations, need %d",
		e.City, e.Metric, e.Observed, MinHistory)
}

// IsInsufficientHistory reports whether err is an
// InsufficientHistoryError. Uses errors.As to handle wrapped errors.
func IsInsufficientHistory(err error) bool {
	var ie *InsufficientHistoryError
	return errors.As(err, &ie)
}

// Point is one forecast estimate.
type Point struct {
	Date  time.Time
	Value float64
}

// Forecast extrapolates horizon daily estimates for one metric from
// time-ordered history rows. Estimates start the day after the last
// observation and are rounded to two decimals.
//
// The horizon is assumed already clamped by validation; a non-positive
// horizon yields an empty forecast.
func Forecast(rows []store.Row, city, metric string, horizon int) ([]Point, error) {
	var dates []time.Time
	var values []float64
	for _, r := range rows {
		v := r.Metric(metric)
		if v == nil {
			continue
		}
		dates = append(dates, r.Date)
		values = append(values, *v)
	}

	n := len(values)
	if n < MinHistory {
		return nil, &InsufficientHistoryError{City: city, Metric: metric, Observed: n}
	}

	// Fit y over days-since-first so gaps in the history weigh
	// correctly; fall back to persistence for very short histories.
	var slope, intercept float64
	first := dates[0]
	lastX := dates[n-1].Sub(first).Hours() / 24
	if n < fitThreshold {
		slope = 0
		intercept = values[n-1]
	} else {
		xs := make([]float64, n)
		for i, d := range dates {
			xs[i] = d.Sub(first).Hours() / 24
		}
		slope = stats.FitSlope(xs, values)
		meanX, meanY := mean(xs), mean(values)
		intercept = meanY - slope*meanX
	}

	last := dates[n-1]
	out := make([]Point, 0, max(horizon, 0))
	for i := 1; i <= horizon; i++ {
		estimate := intercept + slope*(lastX+float64(i))
		out = append(out, Point{
			Date:  last.AddDate(0, 0, i),
			Value: round2(estimate),
		})
	}
	return out, nil
}

func mean(vs []float64) float64 {
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
