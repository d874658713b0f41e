package stats

import (
	"time"

	"github.com/tianqilab/tianqi/internal/store"
)

// Trend directions.
const (
	TrendRising  = "rising"
	TrendFalling = "falling"
	TrendFlat    = "flat"
)

// daysPerDecade converts a per-day slope into a decadal rate of change.
const daysPerDecade = 3652.5

// flatEpsilon is the decadal-rate magnitude below which a slope is
// classified as flat rather than a direction.
const flatEpsilon = 0.05

// Trend is the classified direction of a time-ordered series, with the
// fitted per-day slope and its decadal scaling for chart and summary
// consumption.
type Trend struct {
	Direction   string
	Slope       float64 // metric units per day
	DecadalRate float64 // metric units per decade
}

// ClassifyTrend fits a least-squares slope over a time-ordered series of
// one metric and classifies its direction by slope sign. Fewer than two
// usable values classify as flat with a zero slope.
func ClassifyTrend(rows []store.Row, metric string) Trend {
	var first time.Time
	var xs, ys []float64
	for _, r := range rows {
		v := r.Metric(metric)
		if v == nil {
			continue
		}
		if len(xs) == 0 {
			first = r.Date
		}
		xs = append(xs, r.Date.Sub(first).Hours()/24)
		ys = append(ys, *v)
	}

	slope := FitSlope(xs, ys)
	rate := slope * daysPerDecade

	direction := TrendFlat
	switch {
	case rate > flatEpsilon:
		direction = TrendRising
	case rate < -flatEpsilon:
		direction = TrendFalling
	}
	return Trend{Direction: direction, Slope: slope, DecadalRate: rate}
}

// FitSlope computes the least-squares slope of y over x. Returns 0 when
// fewer than two points exist or all x values coincide.
func FitSlope(xs, ys []float64) float64 {
	n := len(xs)
	if n < 2 || n != len(ys) {
		return 0
	}
	var meanX, meanY float64
	for i := range xs {
		meanX += xs[i]
		meanY += ys[i]
	}
	meanX /= float64(n)
	meanY /= float64(n)

	var num, den float64
	for i := range xs {
		dx := xs[i] - meanX
		num += dx * (ys[i] - meanY)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}
