package query

import (
	"time"

	"github.com/tianqilab/tianqi/internal/schema"
)

// Bounds applied during validation. Out-of-range limits and horizons are
// clamped, not rejected: the caller is an automated planner, and a
// clamped answer is more useful to it than a refusal.
const (
	// MaxLimit is the hard ceiling on rows returned by any single read.
	MaxLimit = 500

	// DefaultLimit applies when a request omits its limit.
	DefaultLimit = 100

	// MaxHorizon is the hard ceiling on forecast length, in days.
	MaxHorizon = 365

	// DefaultHorizon applies when a forecast request omits horizon_days.
	DefaultHorizon = 7

	// HistoryWindow is how many of the most recent observations feed the
	// forecast trend fit.
	HistoryWindow = 120
)

// DateFormat is the wire format for calendar dates.
const DateFormat = "2006-01-02"

// Filter is one validated filter predicate. The descriptor guarantees
// the operator is permitted and the value type matches the field type.
type Filter struct {
	Field schema.FieldDescriptor
	Op    schema.Operator
	Value any // string, float64, time.Time, or []string for OpIn
}

// RowQuery is the canonical bounded read: it describes exactly one store
// read whose result can never exceed Limit rows.
//
// Field names and filters are validated against the registry before a
// RowQuery exists; the executor re-checks them defensively. The date
// range is inclusive on both ends; nil means unbounded on that side.
type RowQuery struct {
	Cities  []string // normalized; empty means all cities
	Fields  []string // output projection, never empty
	Start   *time.Time
	End     *time.Time
	Filters []Filter
	NotNull []string // fields that must be non-null in matched rows
	Limit   int      // always within [1, MaxLimit]

	// Latest binds the read to the most recent Limit rows instead of
	// the earliest. Results are still returned in ascending date order.
	Latest bool
}

// CoverageQuery is the validated form of query.check_coverage.
type CoverageQuery struct {
	City  string
	Start time.Time
	End   time.Time
}

// UpdateQuery is the validated form of query.update_range.
type UpdateQuery struct {
	City  string
	Start time.Time
	End   time.Time
}

// DescribeQuery is the validated form of analysis.describe.
type DescribeQuery struct {
	City   string
	Metric string
	Start  time.Time
	End    time.Time
	Read   RowQuery
}

// GroupQuery is the validated form of analysis.group_by_period.
type GroupQuery struct {
	City   string
	Metric string
	Period schema.Period
	Read   RowQuery
}

// CompareQuery is the validated form of analysis.compare_cities. Cities
// preserves request order; the result carries one entry per city in that
// order even when a city has no rows.
type CompareQuery struct {
	Cities []string
	Metric string
	Read   RowQuery
}

// ExtremeQuery is the validated form of analysis.extreme_event_stats.
type ExtremeQuery struct {
	City       string
	Metric     string
	Threshold  float64
	Comparison schema.Operator
	Read       RowQuery
}

// ForecastQuery is the validated form of analysis.forecast. Horizon is
// already clamped into [1, MaxHorizon]; Read is bound to the most recent
// HistoryWindow observations.
type ForecastQuery struct {
	City    string
	Metric  string
	Horizon int
	Read    RowQuery
}
