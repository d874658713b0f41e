// Package tool exposes the query and analysis tools to external
// callers: JSON arguments in, canonical JSON envelope out.
//
// Dispatch is the single entry point. Every invocation is an
// independent unit of work - validate, execute one bounded read,
// transform, normalize - with no state shared across invocations beyond
// the read-only schema registry. Failures propagate immediately; there
// is no retry and no partial execution.
package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/tianqilab/tianqi/internal/envelope"
	"github.com/tianqilab/tianqi/internal/exec"
	"github.com/tianqilab/tianqi/internal/forecast"
	"github.com/tianqilab/tianqi/internal/query"
	"github.com/tianqilab/tianqi/internal/schema"
	"github.com/tianqilab/tianqi/internal/stats"
	"github.com/tianqilab/tianqi/internal/store"
)

// Store is what the service needs from the observation store beyond the
// executor's single bounded read. *store.Store satisfies it.
type Store interface {
	exec.RowReader
	ReadOverview(ctx context.Context) (store.Overview, error)
	ReadCoveredDates(ctx context.Context, city string, start, end time.Time) ([]time.Time, error)
	ReplaceRange(ctx context.Context, city string, start, end time.Time, rows []store.Row) (int, error)
}

// Ingestor fetches observations from an external source for
// query.update_range. The service treats it as a collaborator: fetch
// failures propagate unmodified.
type Ingestor interface {
	FetchRange(ctx context.Context, city string, start, end time.Time) ([]store.Row, error)
}

// ErrIngestNotConfigured is returned by query.update_range when the
// service was built without an Ingestor.
var ErrIngestNotConfigured = errors.New("ingestion is not configured")

// Service dispatches tool invocations.
type Service struct {
	reg      *schema.Registry
	executor *exec.Executor
	store    Store
	ingestor Ingestor // nil when ingestion is disabled
	log      *zap.Logger
	metrics  *Metrics
	clock    clockwork.Clock
}

// Options configures optional Service collaborators.
type Options struct {
	Ingestor Ingestor
	Logger   *zap.Logger
	Metrics  *Metrics
	Clock    clockwork.Clock
}

// New creates a Service over the registry and store. Omitted options
// default to a nop logger, unregistered metrics, and the real clock.
func New(reg *schema.Registry, st Store, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		// Throwaway registry: metrics still work, nothing is exported.
		metrics = NewMetrics(prometheus.NewRegistry())
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		reg:      reg,
		executor: exec.New(st, reg),
		store:    st,
		ingestor: opts.Ingestor,
		log:      log,
		metrics:  metrics,
		clock:    clock,
	}
}

// Dispatch decodes, validates, and runs one tool invocation. The result
// is always one of the three envelope kinds; errors carry a typed kind
// retrievable via ErrorKind.
func (s *Service) Dispatch(ctx context.Context, toolName string, args json.RawMessage) (any, error) {
	id := uuid.NewString()
	log := s.log.With(zap.String("invocation_id", id), zap.String("tool", toolName))
	started := time.Now()

	result, err := s.dispatch(ctx, toolName, args)
	elapsed := time.Since(started)

	outcome := "ok"
	if err != nil {
		outcome = ErrorKind(err)
		log.Warn("tool invocation failed",
			zap.String("outcome", outcome),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
	} else {
		log.Info("tool invocation completed", zap.Duration("elapsed", elapsed))
	}
	s.metrics.InvocationsTotal.WithLabelValues(toolName, outcome).Inc()
	s.metrics.Duration.WithLabelValues(toolName).Observe(elapsed.Seconds())

	return result, err
}

func (s *Service) dispatch(ctx context.Context, toolName string, args json.RawMessage) (any, error) {
	req, err := query.Decode(toolName, args)
	if err != nil {
		return nil, err
	}

	switch r := req.(type) {
	case *query.RangeRequest:
		return s.handleRange(ctx, *r)
	case *query.OverviewRequest:
		return s.handleOverview(ctx)
	case *query.CoverageRequest:
		return s.handleCoverage(ctx, *r)
	case *query.CustomRequest:
		return s.handleCustom(ctx, *r)
	case *query.UpdateRangeRequest:
		return s.handleUpdateRange(ctx, *r)
	case *query.DescribeRequest:
		return s.handleDescribe(ctx, *r)
	case *query.GroupByPeriodRequest:
		return s.handleGroupByPeriod(ctx, *r)
	case *query.CompareCitiesRequest:
		return s.handleCompareCities(ctx, *r)
	case *query.ExtremeEventsRequest:
		return s.handleExtremeEvents(ctx, *r)
	case *query.ForecastRequest:
		return s.handleForecast(ctx, *r)
	default:
		return nil, fmt.Errorf("unhandled request type %T", req)
	}
}

// readRows runs the canonical read and records the row count metric.
func (s *Service) readRows(ctx context.Context, q query.RowQuery) ([]store.Row, error) {
	rows, err := s.executor.Rows(ctx, q)
	if err != nil {
		return nil, err
	}
	s.metrics.RowsRead.Observe(float64(len(rows)))
	return rows, nil
}

func (s *Service) handleRange(ctx context.Context, r query.RangeRequest) (any, error) {
	q, err := r.Validate(s.reg)
	if err != nil {
		return nil, err
	}
	rows, err := s.readRows(ctx, q)
	if err != nil {
		return nil, err
	}
	return envelope.NewItemList(q.Fields, projectRows(rows, q.Fields), s.clock.Now()), nil
}

func (s *Service) handleCustom(ctx context.Context, r query.CustomRequest) (any, error) {
	q, err := r.Validate(s.reg)
	if err != nil {
		return nil, err
	}
	rows, err := s.readRows(ctx, q)
	if err != nil {
		return nil, err
	}
	return envelope.NewItemList(q.Fields, projectRows(rows, q.Fields), s.clock.Now()), nil
}

func (s *Service) handleOverview(ctx context.Context) (any, error) {
	o, err := s.store.ReadOverview(ctx)
	if err != nil {
		return nil, &exec.StoreUnavailableError{Err: err}
	}
	fields := []string{"total_records", "cities_count", "cities", "date_range"}
	values := map[string]any{
		"total_records": o.TotalRecords,
		"cities_count":  len(o.Cities),
		"cities":        o.Cities,
		"date_range": map[string]any{
			"start": formatDatePtr(o.Start),
			"end":   formatDatePtr(o.End),
		},
	}
	return envelope.NewScalar(fields, values, s.clock.Now()), nil
}

func (s *Service) handleCoverage(ctx context.Context, r query.CoverageRequest) (any, error) {
	q, err := r.Validate(s.reg)
	if err != nil {
		return nil, err
	}
	covered, err := s.store.ReadCoveredDates(ctx, q.City, q.Start, q.End)
	if err != nil {
		return nil, &exec.StoreUnavailableError{Err: err}
	}

	have := make(map[string]bool, len(covered))
	for _, d := range covered {
		have[formatDate(d)] = true
	}
	missing := []string{}
	totalDays := 0
	for d := q.Start; !d.After(q.End); d = d.AddDate(0, 0, 1) {
		totalDays++
		if key := formatDate(d); !have[key] {
			missing = append(missing, key)
		}
	}

	fields := []string{"city", "start_date", "end_date", "total_days", "available_days", "missing_dates"}
	values := map[string]any{
		"city":           q.City,
		"start_date":     formatDate(q.Start),
		"end_date":       formatDate(q.End),
		"total_days":     totalDays,
		"available_days": len(covered),
		"missing_dates":  missing,
	}
	return envelope.NewScalar(fields, values, s.clock.Now()), nil
}

func (s *Service) handleUpdateRange(ctx context.Context, r query.UpdateRangeRequest) (any, error) {
	q, err := r.Validate(s.reg)
	if err != nil {
		return nil, err
	}
	if s.ingestor == nil {
		return nil, ErrIngestNotConfigured
	}

	rows, err := s.ingestor.FetchRange(ctx, q.City, q.Start, q.End)
	if err != nil {
		return nil, fmt.Errorf("fetch %s [%s, %s]: %w", q.City, formatDate(q.Start), formatDate(q.End), err)
	}
	added, err := s.store.ReplaceRange(ctx, q.City, q.Start, q.End, rows)
	if err != nil {
		return nil, &exec.StoreUnavailableError{Err: err}
	}

	fields := []string{"city", "start_date", "end_date", "records_added"}
	values := map[string]any{
		"city":          q.City,
		"start_date":    formatDate(q.Start),
		"end_date":      formatDate(q.End),
		"records_added": added,
	}
	return envelope.NewScalar(fields, values, s.clock.Now()), nil
}

func (s *Service) handleDescribe(ctx context.Context, r query.DescribeRequest) (any, error) {
	q, err := r.Validate(s.reg)
	if err != nil {
		return nil, err
	}
	rows, err := s.readRows(ctx, q.Read)
	if err != nil {
		return nil, err
	}

	sum := stats.Describe(rows, q.Metric)
	trend := stats.ClassifyTrend(rows, q.Metric)

	fields := []string{"city", "metric", "start_date", "end_date", "count", "min", "max", "mean", "stddev", "trend"}
	values := map[string]any{
		"city":       q.City,
		"metric":     q.Metric,
		"start_date": formatDate(q.Start),
		"end_date":   formatDate(q.End),
		"count":      sum.Count,
		"min":        floatPtr(sum.Min),
		"max":        floatPtr(sum.Max),
		"mean":       floatPtr(sum.Mean),
		"stddev":     floatPtr(sum.Stddev),
		"trend": map[string]any{
			"direction":    trend.Direction,
			"decadal_rate": trend.DecadalRate,
		},
	}
	return envelope.NewScalar(fields, values, s.clock.Now()), nil
}

func (s *Service) handleGroupByPeriod(ctx context.Context, r query.GroupByPeriodRequest) (any, error) {
	q, err := r.Validate(s.reg)
	if err != nil {
		return nil, err
	}
	rows, err := s.readRows(ctx, q.Read)
	if err != nil {
		return nil, err
	}

	buckets := stats.GroupByPeriod(rows, q.Metric, q.Period)
	points := make([]map[string]any, 0, len(buckets))
	for _, b := range buckets {
		points = append(points, map[string]any{
			"period": b.Period,
			"count":  b.Count,
			"min":    b.Min,
			"max":    b.Max,
			"mean":   b.Mean,
		})
	}
	columns := []string{"period", "count", "min", "max", "mean"}
	return envelope.NewSeries("series", columns, points, s.clock.Now()), nil
}

func (s *Service) handleCompareCities(ctx context.Context, r query.CompareCitiesRequest) (any, error) {
	q, err := r.Validate(s.reg)
	if err != nil {
		return nil, err
	}
	rows, err := s.readRows(ctx, q.Read)
	if err != nil {
		return nil, err
	}

	summaries := stats.CompareCities(rows, q.Cities, q.Metric)
	points := make([]map[string]any, 0, len(summaries))
	for _, cs := range summaries {
		points = append(points, map[string]any{
			"city":  cs.City,
			"count": cs.Count,
			"min":   floatPtr(cs.Min),
			"max":   floatPtr(cs.Max),
			"mean":  floatPtr(cs.Mean),
		})
	}
	columns := []string{"city", "count", "min", "max", "mean"}
	return envelope.NewSeries("results", columns, points, s.clock.Now()), nil
}

func (s *Service) handleExtremeEvents(ctx context.Context, r query.ExtremeEventsRequest) (any, error) {
	q, err := r.Validate(s.reg)
	if err != nil {
		return nil, err
	}
	rows, err := s.readRows(ctx, q.Read)
	if err != nil {
		return nil, err
	}

	count := stats.CountEvents(rows, q.Metric, q.Threshold, q.Comparison)
	fields := []string{"city", "metric", "threshold", "comparison", "event_days"}
	values := map[string]any{
		"city":       q.City,
		"metric":     q.Metric,
		"threshold":  q.Threshold,
		"comparison": string(q.Comparison),
		"event_days": count,
	}
	return envelope.NewScalar(fields, values, s.clock.Now()), nil
}

func (s *Service) handleForecast(ctx context.Context, r query.ForecastRequest) (any, error) {
	q, err := r.Validate(s.reg)
	if err != nil {
		return nil, err
	}
	rows, err := s.readRows(ctx, q.Read)
	if err != nil {
		return nil, err
	}

	points, err := forecast.Forecast(rows, q.City, q.Metric, q.Horizon)
	if err != nil {
		return nil, err
	}
	forecastList := make([]map[string]any, 0, len(points))
	for _, p := range points {
		forecastList = append(forecastList, map[string]any{
			"date":  formatDate(p.Date),
			"value": p.Value,
		})
	}

	fields := []string{"city", "metric", "horizon_days", "forecast"}
	values := map[string]any{
		"city":         q.City,
		"metric":       q.Metric,
		"horizon_days": q.Horizon,
		"forecast":     forecastList,
	}
	return envelope.NewScalar(fields, values, s.clock.Now()), nil
}

func projectRows(rows []store.Row, fields []string) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Project(fields))
	}
	return out
}

func formatDate(t time.Time) string {
	return t.Format(query.DateFormat)
}

func formatDatePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatDate(*t)
}

// floatPtr lifts a *float64 into an any that encodes as the number or
// null.
func floatPtr(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

