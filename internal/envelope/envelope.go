// Package envelope wraps transform output and raw rows into the three
// canonical response shapes: item_list, series, and scalar.
//
// Every envelope carries a type discriminator and the field/column names
// present, even when its collection is empty, so one downstream consumer
// can render any tool's output without per-tool knowledge.
package envelope

import (
	"encoding/json"
	"time"
)

// Envelope kinds.
const (
	KindItemList = "item_list"
	KindSeries   = "series"
	KindScalar   = "scalar"
)

// ItemList wraps a sequence of records sharing a column set.
type ItemList struct {
	Columns     []string
	Rows        []map[string]any
	GeneratedAt time.Time
}

// NewItemList builds an item-list envelope. Nil rows become an empty
// slice so the JSON always carries a "rows" array.
func NewItemList(columns []string, rows []map[string]any, at time.Time) ItemList {
	if rows == nil {
		rows = []map[string]any{}
	}
	return ItemList{Columns: nonNil(columns), Rows: rows, GeneratedAt: at}
}

// MarshalJSON emits the canonical shape:
//
//	{"type":"item_list","columns":[...],"generated_at":"...","rows":[...]}
func (e ItemList) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"type":         KindItemList,
		"columns":      e.Columns,
		"generated_at": e.GeneratedAt.UTC().Format(time.RFC3339),
		"rows":         e.Rows,
	})
}

// Series wraps labeled aggregates. Key names the collection in the JSON
// ("series" for derived buckets, "results" for explicit group sets) so
// the wire shape matches what each tool documents.
type Series struct {
	Key         string
	Columns     []string
	Points      []map[string]any
	GeneratedAt time.Time
}

// NewSeries builds a series envelope under the given collection key.
func NewSeries(key string, columns []string, points []map[string]any, at time.Time) Series {
	if points == nil {
		points = []map[string]any{}
	}
	return Series{Key: key, Columns: nonNil(columns), Points: points, GeneratedAt: at}
}

// MarshalJSON emits the canonical shape:
//
//	{"type":"series","columns":[...],"generated_at":"...",<key>:[...]}
func (e Series) MarshalJSON() ([]byte, error) {
	key := e.Key
	if key == "" {
		key = "series"
	}
	return json.Marshal(map[string]any{
		"type":         KindSeries,
		"columns":      e.Columns,
		"generated_at": e.GeneratedAt.UTC().Format(time.RFC3339),
		key:            e.Points,
	})
}

// Scalar wraps a single summary object. Fields lists the value names
// present, in a stable documented order.
type Scalar struct {
	Fields      []string
	Values      map[string]any
	GeneratedAt time.Time
}

// NewScalar builds a scalar envelope from named values. The field list
// is recorded explicitly rather than derived from the map so empty and
// null-valued summaries still declare their shape.
func NewScalar(fields []string, values map[string]any, at time.Time) Scalar {
	if values == nil {
		values = map[string]any{}
	}
	return Scalar{Fields: nonNil(fields), Values: values, GeneratedAt: at}
}

// MarshalJSON inlines the summary values beside the discriminator:
//
//	{"type":"scalar","fields":[...],"generated_at":"...","count":42,...}
func (e Scalar) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Values)+3)
	for k, v := range e.Values {
		out[k] = v
	}
	out["type"] = KindScalar
	out["fields"] = e.Fields
	out["generated_at"] = e.GeneratedAt.UTC().Format(time.RFC3339)
	return json.Marshal(out)
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
