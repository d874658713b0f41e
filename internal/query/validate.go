package query

import (
	"strings"
	"time"

	"github.com/tianqilab/tianqi/internal/schema"
)

// Each request variant validates itself against the registry, in the
// same order for every tool: required arguments, date parsing and range
// ordering, field existence, limit clamping, filter operators, then soft
// city normalization. Validation never touches the store.

// Validate canonicalizes a query.range request.
func (r RangeRequest) Validate(reg *schema.Registry) (RowQuery, error) {
	start, end, err := parseRange(ToolRange, r.StartDate, r.EndDate, true, true)
	if err != nil {
		return RowQuery{}, err
	}

	q := RowQuery{
		Fields: reg.FieldNames(),
		Start:  start,
		End:    end,
		Limit:  clampLimit(r.Limit),
	}
	if city := reg.NormalizeCity(r.City); city != "" {
		q.Cities = []string{city}
	}
	return q, nil
}

// Validate canonicalizes a query.custom request. Unknown requested
// fields are rejected rather than silently dropped, so the caller learns
// about its mistake instead of receiving a narrower row than asked for.
func (r CustomRequest) Validate(reg *schema.Registry) (RowQuery, error) {
	start, end, err := parseRange(ToolCustom, r.StartDate, r.EndDate, false, false)
	if err != nil {
		return RowQuery{}, err
	}

	fields := r.Fields
	if len(fields) == 0 {
		fields = reg.FieldNames()
	}
	for _, name := range fields {
		if _, err := reg.Field(name); err != nil {
			return RowQuery{}, err
		}
	}

	filters, err := validateFilters(r.Filters, reg)
	if err != nil {
		return RowQuery{}, err
	}

	q := RowQuery{
		Fields:  fields,
		Start:   start,
		End:     end,
		Filters: filters,
		Limit:   clampLimit(r.Limit),
	}
	if city := reg.NormalizeCity(r.City); city != "" {
		q.Cities = []string{city}
	}
	return q, nil
}

// Validate canonicalizes a query.check_coverage request.
func (r CoverageRequest) Validate(reg *schema.Registry) (CoverageQuery, error) {
	city, err := requiredCity(ToolCheckCoverage, r.City, reg)
	if err != nil {
		return CoverageQuery{}, err
	}
	start, end, err := parseRange(ToolCheckCoverage, r.StartDate, r.EndDate, true, true)
	if err != nil {
		return CoverageQuery{}, err
	}
	return CoverageQuery{City: city, Start: *start, End: *end}, nil
}

// Validate canonicalizes a query.update_range request.
func (r UpdateRangeRequest) Validate(reg *schema.Registry) (UpdateQuery, error) {
	city, err := requiredCity(ToolUpdateRange, r.City, reg)
	if err != nil {
		return UpdateQuery{}, err
	}
	start, end, err := parseRange(ToolUpdateRange, r.StartDate, r.EndDate, true, true)
	if err != nil {
		return UpdateQuery{}, err
	}
	return UpdateQuery{City: city, Start: *start, End: *end}, nil
}

// Validate canonicalizes an analysis.describe request.
func (r DescribeRequest) Validate(reg *schema.Registry) (DescribeQuery, error) {
	city, err := requiredCity(ToolDescribe, r.City, reg)
	if err != nil {
		return DescribeQuery{}, err
	}
	metric, err := metricField(ToolDescribe, r.Metric, reg)
	if err != nil {
		return DescribeQuery{}, err
	}
	start, end, err := parseRange(ToolDescribe, r.StartDate, r.EndDate, true, true)
	if err != nil {
		return DescribeQuery{}, err
	}

	return DescribeQuery{
		City:   city,
		Metric: metric.Name,
		Start:  *start,
		End:    *end,
		Read:   metricRead(city, metric.Name, start, end),
	}, nil
}

// Validate canonicalizes an analysis.group_by_period request.
func (r GroupByPeriodRequest) Validate(reg *schema.Registry) (GroupQuery, error) {
	city, err := requiredCity(ToolGroupByPeriod, r.City, reg)
	if err != nil {
		return GroupQuery{}, err
	}
	metric, err := metricField(ToolGroupByPeriod, r.Metric, reg)
	if err != nil {
		return GroupQuery{}, err
	}
	period := schema.Period(strings.TrimSpace(r.Period))
	if period == "" {
		return GroupQuery{}, &MissingArgumentError{Tool: ToolGroupByPeriod, Argument: "period"}
	}
	if !reg.ValidPeriod(period) {
		return GroupQuery{}, &UnsupportedOperatorError{Field: "period", Operator: string(period)}
	}
	start, end, err := parseRange(ToolGroupByPeriod, r.StartDate, r.EndDate, false, false)
	if err != nil {
		return GroupQuery{}, err
	}

	return GroupQuery{
		City:   city,
		Metric: metric.Name,
		Period: period,
		Read:   metricRead(city, metric.Name, start, end),
	}, nil
}

// Validate canonicalizes an analysis.compare_cities request. The
// validated city list preserves request order; duplicates are kept, as
// the result contract is one entry per requested city.
func (r CompareCitiesRequest) Validate(reg *schema.Registry) (CompareQuery, error) {
	var cities []string
	for _, c := range r.Cities {
		if norm := reg.NormalizeCity(c); norm != "" {
			cities = append(cities, norm)
		}
	}
	if len(cities) == 0 {
		return CompareQuery{}, &MissingArgumentError{Tool: ToolCompareCities, Argument: "cities"}
	}
	metric, err := metricField(ToolCompareCities, r.Metric, reg)
	if err != nil {
		return CompareQuery{}, err
	}
	start, end, err := parseRange(ToolCompareCities, r.StartDate, r.EndDate, false, false)
	if err != nil {
		return CompareQuery{}, err
	}

	read := metricRead("", metric.Name, start, end)
	read.Cities = cities
	return CompareQuery{Cities: cities, Metric: metric.Name, Read: read}, nil
}

// Validate canonicalizes an analysis.extreme_event_stats request.
func (r ExtremeEventsRequest) Validate(reg *schema.Registry) (ExtremeQuery, error) {
	city, err := requiredCity(ToolExtremeEvents, r.City, reg)
	if err != nil {
		return ExtremeQuery{}, err
	}
	metric, err := metricField(ToolExtremeEvents, r.Metric, reg)
	if err != nil {
		return ExtremeQuery{}, err
	}
	if r.Threshold == nil {
		return ExtremeQuery{}, &MissingArgumentError{Tool: ToolExtremeEvents, Argument: "threshold"}
	}
	cmp, err := parseComparison(metric.Name, r.Comparison)
	if err != nil {
		return ExtremeQuery{}, err
	}
	start, end, err := parseRange(ToolExtremeEvents, r.StartDate, r.EndDate, false, false)
	if err != nil {
		return ExtremeQuery{}, err
	}

	return ExtremeQuery{
		City:       city,
		Metric:     metric.Name,
		Threshold:  *r.Threshold,
		Comparison: cmp,
		Read:       metricRead(city, metric.Name, start, end),
	}, nil
}

// Validate canonicalizes an analysis.forecast request. The horizon is
// clamped into [1, MaxHorizon] - same policy as limit clamping.
func (r ForecastRequest) Validate(reg *schema.Registry) (ForecastQuery, error) {
	city, err := requiredCity(ToolForecast, r.City, reg)
	if err != nil {
		return ForecastQuery{}, err
	}
	metric, err := metricField(ToolForecast, r.Metric, reg)
	if err != nil {
		return ForecastQuery{}, err
	}

	horizon := r.HorizonDays
	switch {
	case horizon <= 0:
		horizon = DefaultHorizon
	case horizon > MaxHorizon:
		horizon = MaxHorizon
	}

	read := metricRead(city, metric.Name, nil, nil)
	read.Limit = HistoryWindow
	read.Latest = true
	return ForecastQuery{City: city, Metric: metric.Name, Horizon: horizon, Read: read}, nil
}

// metricRead builds the bounded read shared by the analysis tools: date
// plus one metric, null metric values excluded, capped at MaxLimit.
func metricRead(city, metric string, start, end *time.Time) RowQuery {
	q := RowQuery{
		Fields:  []string{"date", metric},
		Start:   start,
		End:     end,
		NotNull: []string{metric},
		Limit:   MaxLimit,
	}
	if city != "" {
		q.Cities = []string{city}
	}
	return q
}

func requiredCity(tool, raw string, reg *schema.Registry) (string, error) {
	city := reg.NormalizeCity(raw)
	if city == "" {
		return "", &MissingArgumentError{Tool: tool, Argument: "city"}
	}
	return city, nil
}

// parseDateArg parses one date argument. Absent optional arguments yield
// nil; absent required arguments are a MissingArgumentError.
func parseDateArg(tool, name, value string, required bool) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		if required {
			return nil, &MissingArgumentError{Tool: tool, Argument: name}
		}
		return nil, nil
	}
	t, err := time.Parse(DateFormat, trimmed)
	if err != nil {
		return nil, &InvalidRangeError{Start: trimmed, Reason: name + " is not a calendar date (want YYYY-MM-DD)"}
	}
	return &t, nil
}

func parseRange(tool, startRaw, endRaw string, startRequired, endRequired bool) (*time.Time, *time.Time, error) {
	start, err := parseDateArg(tool, "start_date", startRaw, startRequired)
	if err != nil {
		return nil, nil, err
	}
	end, err := parseDateArg(tool, "end_date", endRaw, endRequired)
	if err != nil {
		return nil, nil, err
	}
	if start != nil && end != nil && start.After(*end) {
		return nil, nil, &InvalidRangeError{Start: startRaw, End: endRaw, Reason: "start_date is after end_date"}
	}
	return start, end, nil
}

// clampLimit applies the [1, MaxLimit] bound. Zero and negative values
// mean "not set" and take the default rather than being rejected.
func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// metricField resolves a metric name. A field that exists but is not
// aggregatable fails the same way a disallowed operator does: the
// request is asking for an operation the schema does not permit.
func metricField(tool, name string, reg *schema.Registry) (schema.FieldDescriptor, error) {
	if strings.TrimSpace(name) == "" {
		return schema.FieldDescriptor{}, &MissingArgumentError{Tool: tool, Argument: "metric"}
	}
	f, err := reg.Field(name)
	if err != nil {
		return schema.FieldDescriptor{}, err
	}
	if !f.Aggregatable {
		return schema.FieldDescriptor{}, &UnsupportedOperatorError{Field: name, Operator: "aggregate"}
	}
	return f, nil
}

// comparisonAliases maps caller spellings to canonical operators. The
// alias set mirrors what planning agents actually emit.
var comparisonAliases = map[string]schema.Operator{
	">":             schema.OpGt,
	"gt":            schema.OpGt,
	"greater":       schema.OpGt,
	">=":            schema.OpGte,
	"gte":           schema.OpGte,
	"ge":            schema.OpGte,
	"greater_equal": schema.OpGte,
	"<":             schema.OpLt,
	"lt":            schema.OpLt,
	"less":          schema.OpLt,
	"<=":            schema.OpLte,
	"lte":           schema.OpLte,
	"le":            schema.OpLte,
	"less_equal":    schema.OpLte,
}

func parseComparison(metric, raw string) (schema.Operator, error) {
	op, ok := comparisonAliases[strings.TrimSpace(strings.ToLower(raw))]
	if !ok {
		return "", &UnsupportedOperatorError{Field: metric, Operator: raw}
	}
	return op, nil
}

// validateFilters checks each raw predicate against the registry: the
// field must exist and be filterable, the operator must be in the
// field's permitted set, and the literal must match the field type.
func validateFilters(raw []RawFilter, reg *schema.Registry) ([]Filter, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]Filter, 0, len(raw))
	for _, rf := range raw {
		f, err := reg.Field(rf.Field)
		if err != nil {
			return nil, err
		}
		op := schema.Operator(strings.TrimSpace(rf.Op))
		if !f.Filterable || !f.AllowsOperator(op) {
			return nil, &UnsupportedOperatorError{Field: rf.Field, Operator: rf.Op}
		}
		value, err := coerceFilterValue(f, op, rf.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, Filter{Field: f, Op: op, Value: value})
	}
	return out, nil
}

// coerceFilterValue checks the literal against the field type. JSON
// numbers arrive as float64; set membership takes an array of strings.
func coerceFilterValue(f schema.FieldDescriptor, op schema.Operator, v any) (any, error) {
	if op == schema.OpIn {
		items, ok := v.([]any)
		if !ok || len(items) == 0 {
			return nil, &UnsupportedOperatorError{Field: f.Name, Operator: string(op)}
		}
		set := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, &UnsupportedOperatorError{Field: f.Name, Operator: string(op)}
			}
			set = append(set, s)
		}
		return set, nil
	}

	switch f.Type {
	case schema.TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, &UnsupportedOperatorError{Field: f.Name, Operator: string(op)}
		}
		return s, nil
	case schema.TypeFloat:
		n, ok := v.(float64)
		if !ok {
			return nil, &UnsupportedOperatorError{Field: f.Name, Operator: string(op)}
		}
		return n, nil
	case schema.TypeDate:
		s, ok := v.(string)
		if !ok {
			return nil, &UnsupportedOperatorError{Field: f.Name, Operator: string(op)}
		}
		t, err := time.Parse(DateFormat, s)
		if err != nil {
			return nil, &InvalidRangeError{Start: s, Reason: "filter value is not a calendar date (want YYYY-MM-DD)"}
		}
		return t, nil
	default:
		return nil, &UnsupportedOperatorError{Field: f.Name, Operator: string(op)}
	}
}
