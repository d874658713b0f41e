package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/width"
	"gopkg.in/yaml.v3"
)

//go:embed fields.yaml
var fieldsYAML []byte

// FieldType classifies the value type of a field.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeFloat  FieldType = "float"
	TypeDate   FieldType = "date"
)

// Operator is a filter operator token as it appears in requests.
type Operator string

const (
	OpEq  Operator = "="
	OpGt  Operator = ">"
	OpGte Operator = ">="
	OpLt  Operator = "<"
	OpLte Operator = "<="
	OpIn  Operator = "in"
)

// Period is a grouping granularity for bucketed aggregation.
type Period string

const (
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// FieldDescriptor declares one logical field: its storage column, value
// type, the operators requests may apply to it, and what the field may be
// used for. Descriptors are immutable after Load.
type FieldDescriptor struct {
	Name         string     `yaml:"name"`
	Column       string     `yaml:"column"`
	Type         FieldType  `yaml:"type"`
	Operators    []Operator `yaml:"operators"`
	Filterable   bool       `yaml:"filterable"`
	Groupable    bool       `yaml:"groupable"`
	Aggregatable bool       `yaml:"aggregatable"`
}

// AllowsOperator reports whether op is in the field's permitted set.
func (f FieldDescriptor) AllowsOperator(op Operator) bool {
	for _, o := range f.Operators {
		if o == op {
			return true
		}
	}
	return false
}

// UnknownFieldError is returned when a request names a field that is not
// declared in the registry.
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q", e.Field)
}

// IsUnknownField reports whether err is an UnknownFieldError.
// Uses errors.As to handle wrapped errors.
func IsUnknownField(err error) bool {
	var ue *UnknownFieldError
	return errors.As(err, &ue)
}

// Registry holds the declared fields, grouping periods, and the city-name
// synonym table. Built once at startup and read-only for the process
// lifetime, so it is safe for concurrent use without locking.
type Registry struct {
	fields   map[string]FieldDescriptor
	order    []string          // declaration order, for default field lists
	synonyms map[string]string // folded spelling -> canonical Chinese name
	pinyin   map[string]string // canonical Chinese name -> pinyin key
	periods  map[Period]bool
}

type registryDoc struct {
	Fields  []FieldDescriptor `yaml:"fields"`
	Periods []Period          `yaml:"periods"`
	Cities  map[string]string `yaml:"cities"`
}

// Load parses the embedded registry document.
func Load() (*Registry, error) {
	var doc registryDoc
	if err := yaml.Unmarshal(fieldsYAML, &doc); err != nil {
		return nil, fmt.Errorf("parse registry document: %w", err)
	}
	if len(doc.Fields) == 0 {
		return nil, fmt.Errorf("registry document declares no fields")
	}

	r := &Registry{
		fields:   make(map[string]FieldDescriptor, len(doc.Fields)),
		synonyms: make(map[string]string, len(doc.Cities)*2),
		pinyin:   make(map[string]string, len(doc.Cities)),
		periods:  make(map[Period]bool, len(doc.Periods)),
	}
	for _, f := range doc.Fields {
		if f.Name == "" || f.Column == "" {
			return nil, fmt.Errorf("field descriptor missing name or column: %+v", f)
		}
		if _, dup := r.fields[f.Name]; dup {
			return nil, fmt.Errorf("duplicate field %q", f.Name)
		}
		r.fields[f.Name] = f
		r.order = append(r.order, f.Name)
	}
	for _, p := range doc.Periods {
		r.periods[p] = true
	}
	for py, cn := range doc.Cities {
		r.synonyms[foldCityKey(py)] = cn
		// The canonical name maps to itself so any casing round-trips.
		r.synonyms[foldCityKey(cn)] = cn
		r.pinyin[cn] = py
	}
	return r, nil
}

// Field looks up a field descriptor by logical name.
func (r *Registry) Field(name string) (FieldDescriptor, error) {
	f, ok := r.fields[name]
	if !ok {
		return FieldDescriptor{}, &UnknownFieldError{Field: name}
	}
	return f, nil
}

// FieldNames returns all declared field names in declaration order.
func (r *Registry) FieldNames() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Metrics returns the names of aggregatable numeric fields, in
// declaration order.
func (r *Registry) Metrics() []string {
	var out []string
	for _, name := range r.order {
		if r.fields[name].Aggregatable {
			out = append(out, name)
		}
	}
	return out
}

// IsMetric reports whether name is a declared aggregatable field.
func (r *Registry) IsMetric(name string) bool {
	f, ok := r.fields[name]
	return ok && f.Aggregatable
}

// ValidPeriod reports whether p is a declared grouping granularity.
func (r *Registry) ValidPeriod(p Period) bool {
	return r.periods[p]
}

// NormalizeCity maps a caller-supplied city spelling to the canonical
// Chinese name. Matching folds case and character width, so "Beijing",
// "beijing", and "ＢＥＩＪＩＮＧ" all resolve to 北京.
//
// Unknown spellings pass through trimmed but otherwise unchanged. That
// leniency is deliberate: a misspelled city produces an empty result
// set, not an error, so callers are never blocked on spelling variance.
func (r *Registry) NormalizeCity(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return trimmed
	}
	if cn, ok := r.synonyms[foldCityKey(trimmed)]; ok {
		return cn
	}
	return trimmed
}

// Pinyin returns the pinyin key for a canonical city name. Used by the
// ingest crawler to build source URLs. The second return is false when
// the city is not in the synonym table.
func (r *Registry) Pinyin(city string) (string, bool) {
	py, ok := r.pinyin[r.NormalizeCity(city)]
	return py, ok
}

var cityCaser = cases.Fold()

// foldCityKey canonicalizes a spelling for synonym lookup: trim, fold
// fullwidth/halfwidth variants, then Unicode case-fold.
func foldCityKey(s string) string {
	return cityCaser.String(width.Fold.String(strings.TrimSpace(s)))
}
