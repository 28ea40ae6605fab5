package nbastats

import (
	"fmt"
	"strconv"
	"strings"
)

// resultSetEnvelope is the provider's standard answer shape: named
// tables, each a header list plus row tuples.
type resultSetEnvelope struct {
	Resource   string      `json:"resource"`
	ResultSets []resultSet `json:"resultSets"`
}

type resultSet struct {
	Name    string   `json:"name"`
	Headers []string `json:"headers"`
	RowSet  [][]any  `json:"rowSet"`
}

// table finds a result set by name, case-insensitive.
func (e *resultSetEnvelope) table(name string) (*resultTable, error) {
	for i := range e.ResultSets {
		set := &e.ResultSets[i]
		if !strings.EqualFold(set.Name, name) {
			continue
		}
		index := make(map[string]int, len(set.Headers))
		for col, header := range set.Headers {
			index[strings.ToUpper(strings.TrimSpace(header))] = col
		}
		return &resultTable{set: set, index: index}, nil
	}
	return nil, fmt.Errorf("result set %q missing from payload", name)
}

type resultTable struct {
	set   *resultSet
	index map[string]int
}

func (t *resultTable) len() int {
	if t == nil {
		return 0
	}
	return len(t.set.RowSet)
}

func (t *resultTable) row(i int) resultRow {
	return resultRow{table: t, cells: t.set.RowSet[i]}
}

type resultRow struct {
	table *resultTable
	cells []any
}

func (r resultRow) cell(header string) (any, bool) {
	col, ok := r.table.index[strings.ToUpper(header)]
	if !ok || col >= len(r.cells) {
		return nil, false
	}
	return r.cells[col], true
}

// str renders a cell as trimmed text. Numeric cells stringify, which
// matters for id columns the provider sometimes types as numbers.
func (r resultRow) str(header string) string {
	cell, ok := r.cell(header)
	if !ok || cell == nil {
		return ""
	}
	switch v := cell.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

// num reads a numeric cell; missing, null and unparseable cells report
// false rather than zero so callers can tell absent from zero.
func (r resultRow) num(header string) (float64, bool) {
	cell, ok := r.cell(header)
	if !ok || cell == nil {
		return 0, false
	}
	switch v := cell.(type) {
	case float64:
		return v, true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
