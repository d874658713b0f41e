package query

import (
	"encoding/json"
	"fmt"
)

// Tool names exposed to external callers. The set is closed: Decode
// rejects any name not listed here.
const (
	ToolRange         = "query.range"
	ToolOverview      = "query.overview"
	ToolCheckCoverage = "query.check_coverage"
	ToolCustom        = "query.custom"
	ToolUpdateRange   = "query.update_range"
	ToolDescribe      = "analysis.describe"
	ToolGroupByPeriod = "analysis.group_by_period"
	ToolCompareCities = "analysis.compare_cities"
	ToolExtremeEvents = "analysis.extreme_event_stats"
	ToolForecast      = "analysis.forecast"
)

// Tools lists every tool name, in the order they are documented.
var Tools = []string{
	ToolRange,
	ToolOverview,
	ToolCheckCoverage,
	ToolCustom,
	ToolUpdateRange,
	ToolDescribe,
	ToolGroupByPeriod,
	ToolCompareCities,
	ToolExtremeEvents,
	ToolForecast,
}

// Request represents a raw, unvalidated tool request.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and keeps
// the set of accepted request shapes closed: untrusted JSON can only
// decode into one of the variants below.
type Request interface {
	requestNode() // Marker method - seals interface to this package
}

// RawFilter is one unvalidated filter predicate from a custom query.
type RawFilter struct {
	Field string `json:"field"`
	Op    string `json:"op"`
	Value any    `json:"value"`
}

// RangeRequest asks for raw observation rows (query.range).
type RangeRequest struct {
	City      string `json:"city"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Limit     int    `json:"limit"`
}

func (RangeRequest) requestNode() {}

// OverviewRequest asks for dataset-wide statistics (query.overview).
// It takes no arguments.
type OverviewRequest struct{}

func (OverviewRequest) requestNode() {}

// CoverageRequest asks which dates in a range have no observation for a
// city (query.check_coverage).
type CoverageRequest struct {
	City      string `json:"city"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (CoverageRequest) requestNode() {}

// CustomRequest asks for rows restricted to an allow-listed field set,
// optionally filtered (query.custom).
type CustomRequest struct {
	Fields    []string    `json:"fields"`
	City      string      `json:"city"`
	StartDate string      `json:"start_date"`
	EndDate   string      `json:"end_date"`
	Limit     int         `json:"limit"`
	Filters   []RawFilter `json:"filters"`
}

func (CustomRequest) requestNode() {}

// UpdateRangeRequest asks the ingest collaborator to refresh a city's
// observations for a date range (query.update_range).
type UpdateRangeRequest struct {
	City      string `json:"city"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (UpdateRangeRequest) requestNode() {}

// DescribeRequest asks for descriptive statistics of one metric
// (analysis.describe).
type DescribeRequest struct {
	City      string `json:"city"`
	Metric    string `json:"metric"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (DescribeRequest) requestNode() {}

// GroupByPeriodRequest asks for per-bucket aggregates of one metric
// (analysis.group_by_period).
type GroupByPeriodRequest struct {
	City      string `json:"city"`
	Metric    string `json:"metric"`
	Period    string `json:"period"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (GroupByPeriodRequest) requestNode() {}

// CompareCitiesRequest asks for per-city aggregates of one metric across
// an explicit city set (analysis.compare_cities).
type CompareCitiesRequest struct {
	Cities    []string `json:"cities"`
	Metric    string   `json:"metric"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
}

func (CompareCitiesRequest) requestNode() {}

// ExtremeEventsRequest asks how many observations compare true against a
// threshold (analysis.extreme_event_stats).
type ExtremeEventsRequest struct {
	City       string   `json:"city"`
	Metric     string   `json:"metric"`
	Threshold  *float64 `json:"threshold"`
	Comparison string   `json:"comparison"`
	StartDate  string   `json:"start_date"`
	EndDate    string   `json:"end_date"`
}

func (ExtremeEventsRequest) requestNode() {}

// ForecastRequest asks for a bounded trend extrapolation of one metric
// (analysis.forecast).
type ForecastRequest struct {
	City        string `json:"city"`
	Metric      string `json:"metric"`
	HorizonDays int    `json:"horizon_days"`
}

func (ForecastRequest) requestNode() {}

// Decode maps a tool name and its raw JSON arguments to the matching
// request variant. Unknown tool names fail with UnknownToolError; the
// argument object may carry extra keys, which are ignored.
func Decode(tool string, args []byte) (Request, error) {
	if len(args) == 0 {
		args = []byte("{}")
	}

	var req Request
	switch tool {
	case ToolRange:
		req = &RangeRequest{}
	case ToolOverview:
		req = &OverviewRequest{}
	case ToolCheckCoverage:
		req = &CoverageRequest{}
	case ToolCustom:
		req = &CustomRequest{}
	case ToolUpdateRange:
		req = &UpdateRangeRequest{}
	case ToolDescribe:
		req = &DescribeRequest{}
	case ToolGroupByPeriod:
		req = &GroupByPeriodRequest{}
	case ToolCompareCities:
		req = &CompareCitiesRequest{}
	case ToolExtremeEvents:
		req = &ExtremeEventsRequest{}
	case ToolForecast:
		req = &ForecastRequest{}
	default:
		return nil, &UnknownToolError{Tool: tool}
	}

	if err := json.Unmarshal(args, req); err != nil {
		return nil, fmt.Errorf("decode %s arguments: %w", tool, err)
	}
	return req, nil
}
