// Package table holds the in-memory tabular dataset passed between the local
// file adapters and the enrichment pipeline.
package table

import (
	"errors"
	"fmt"
	"strings"
)

// ErrColumnNotFound is returned when a named column is absent from a table.
var ErrColumnNotFound = errors.New("column not found")

// Kind describes how a cell value was typed by its source.
type Kind int

const (
	KindEmpty Kind = iota
	KindText
	KindNumber
	KindBool
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "other"
	}
}

// Cell is a single value with the kind inferred when it was read.
// Value is kept verbatim so untouched cells round-trip.
type Cell struct {
	Value string
	Kind  Kind
}

// Text returns a text cell.
func Text(v string) Cell {
	return Cell{Value: v, Kind: KindText}
}

// Number returns a numeric cell holding the given rendering.
func Number(v string) Cell {
	return Cell{Value: v, Kind: KindNumber}
}

// IsText reports whether the cell holds a textual value.
func (c Cell) IsText() bool {
	return c.Kind == KindText
}

// Table is a header plus rows of cells. Rows may be shorter than Columns;
// missing trailing cells read as empty.
type Table struct {
	Columns []string
	Rows    [][]Cell
}

// Len returns the number of data rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of the named column, or -1.
// Header names are compared after trimming surrounding whitespace.
func (t Table) ColumnIndex(name string) int {
	name = strings.TrimSpace(name)
	for i, col := range t.Columns {
		if strings.TrimSpace(col) == name {
			return i
		}
	}
	return -1
}

// Column returns the cells of the named column, one per row.
func (t Table) Column(name string) ([]Cell, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	out := make([]Cell, len(t.Rows))
	for i, row := range t.Rows {
		if idx < len(row) {
			out[i] = row[idx]
		}
	}
	return out, nil
}

// WithColumn returns a copy of t with the named column set to values. An
// existing column of that name is overwritten in place; otherwise the column
// is appended. values must hold exactly one cell per row. t itself is not
// modified.
func (t Table) WithColumn(name string, values []Cell) (Table, error) {
	if len(values) != len(t.Rows) {
		return Table{}, fmt.Errorf("column %q has %d values for %d rows", name, len(values), len(t.Rows))
	}
	idx := t.ColumnIndex(name)
	columns := append(make([]string, 0, len(t.Columns)+1), t.Columns...)
	if idx < 0 {
		idx = len(columns)
		columns = append(columns, name)
	}

	out := Table{Columns: columns, Rows: make([][]Cell, len(t.Rows))}
	for i, row := range t.Rows {
		r := make([]Cell, max(len(row), idx+1))
		copy(r, row)
		r[idx] = values[i]
		out.Rows[i] = r
	}
	return out, nil
}
