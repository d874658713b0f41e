package store

import "time"

// dateFormat is the on-disk and wire format for calendar dates.
const dateFormat = "2006-01-02"

// Row is one observation keyed by (city, date). Nil pointers mean the
// source had no value for that column. Rows are immutable once produced
// by a read.
type Row struct {
	City      string
	Date      time.Time
	Condition *string
	TempMin   *float64
	TempMax   *float64
	Wind      *string
}

// Metric returns the named numeric metric, or nil when the row has no
// value for it or the name is not a metric.
func (r Row) Metric(name string) *float64 {
	switch name {
	case "temp_min":
		return r.TempMin
	case "temp_max":
		return r.TempMax
	default:
		return nil
	}
}

// Project maps the row to the requested output fields. Absent values
// project to nil so the JSON shape is stable across rows.
func (r Row) Project(fields []string) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		switch f {
		case "city":
			out[f] = r.City
		case "date":
			out[f] = r.Date.Format(dateFormat)
		case "weather_condition":
			out[f] = deref(r.Condition)
		case "temp_min":
			out[f] = deref(r.TempMin)
		case "temp_max":
			out[f] = deref(r.TempMax)
		case "wind_info":
			out[f] = deref(r.Wind)
		}
	}
	return out
}

// deref lifts a typed pointer into an any that is either the value or
// untyped nil, so encoding/json emits null rather than a typed nil.
func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
