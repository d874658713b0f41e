// Package querysql compiles canonical queries to parameterized SQL for
// SQLite.
//
// Two rules hold for every compiled statement: it carries an ORDER BY
// with a deterministic tiebreaker, so an identical query against an
// unchanged store returns identical output; and every literal travels as
// a ? parameter, never interpolated, since the values originate from an
// untrusted caller.
package querysql

import (
	"fmt"
	"strings"
	"time"

	"github.com/tianqilab/tianqi/internal/query"
	"github.com/tianqilab/tianqi/internal/schema"
)

const table = "observations"

// dateFormat matches the store's on-disk date representation, so string
// comparison in SQL agrees with calendar order.
const dateFormat = "2006-01-02"

// Compile converts a canonical RowQuery to parameterized SQL.
// Returns (sql, params, error).
//
// The SELECT list is the store's fixed observation column set; output
// projection happens after scanning. Rows come back ascending by date,
// and by city (COLLATE BINARY) then date when the query spans cities.
// A Latest query selects the most recent Limit rows instead of the
// earliest; the caller reverses them back into ascending order.
func Compile(q query.RowQuery, columns string) (string, []any, error) {
	if q.Limit < 1 || q.Limit > query.MaxLimit {
		return "", nil, fmt.Errorf("limit %d outside [1, %d]", q.Limit, query.MaxLimit)
	}

	var conds []string
	var params []any

	switch len(q.Cities) {
	case 0:
		// All cities.
	case 1:
		conds = append(conds, "city = ? COLLATE NOCASE")
		params = append(params, q.Cities[0])
	default:
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(q.Cities)), ", ")
		conds = append(conds, fmt.Sprintf("city COLLATE NOCASE IN (%s)", placeholders))
		for _, c := range q.Cities {
			params = append(params, c)
		}
	}

	if q.Start != nil {
		conds = append(conds, "date >= ?")
		params = append(params, q.Start.Format(dateFormat))
	}
	if q.End != nil {
		conds = append(conds, "date <= ?")
		params = append(params, q.End.Format(dateFormat))
	}

	for _, f := range q.Filters {
		sql, filterParams, err := compileFilter(f)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter on %q: %w", f.Field.Name, err)
		}
		conds = append(conds, sql)
		params = append(params, filterParams...)
	}

	for _, name := range q.NotNull {
		conds = append(conds, name+" IS NOT NULL")
	}

	var where string
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	sql := fmt.Sprintf("SELECT %s FROM %s%s%s LIMIT ?",
		columns, table, where, orderBy(q))
	params = append(params, q.Limit)

	return sql, params, nil
}

// orderBy returns the mandatory deterministic ordering clause. City is
// an outer key only when the query can span cities.
func orderBy(q query.RowQuery) string {
	direction := "ASC"
	if q.Latest {
		direction = "DESC"
	}
	if len(q.Cities) == 1 {
		return fmt.Sprintf(" ORDER BY date %s, id ASC", direction)
	}
	return fmt.Sprintf(" ORDER BY city COLLATE BINARY %s, date %s, id ASC", direction, direction)
}

// compileFilter compiles one validated predicate. Values are always
// parameterized.
func compileFilter(f query.Filter) (string, []any, error) {
	column := f.Field.Column

	if f.Op == schema.OpIn {
		set, ok := f.Value.([]string)
		if !ok || len(set) == 0 {
			return "", nil, fmt.Errorf("set membership needs a non-empty string set, got %T", f.Value)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(set)), ", ")
		params := make([]any, len(set))
		for i, s := range set {
			params[i] = s
		}
		return fmt.Sprintf("%s IN (%s)", column, placeholders), params, nil
	}

	op, err := sqlOperator(f.Op)
	if err != nil {
		return "", nil, err
	}

	switch v := f.Value.(type) {
	case string:
		return fmt.Sprintf("%s %s ?", column, op), []any{v}, nil
	case float64:
		return fmt.Sprintf("%s %s ?", column, op), []any{v}, nil
	case time.Time:
		return fmt.Sprintf("%s %s ?", column, op), []any{v.Format(dateFormat)}, nil
	default:
		return "", nil, fmt.Errorf("unsupported filter value type %T", f.Value)
	}
}

func sqlOperator(op schema.Operator) (string, error) {
	switch op {
	case schema.OpEq:
		return "=", nil
	case schema.OpGt:
		return ">", nil
	case schema.OpGte:
		return ">=", nil
	case schema.OpLt:
		return "<", nil
	case schema.OpLte:
		return "<=", nil
	default:
		return "", fmt.Errorf("unsupported operator %q", op)
	}
}
