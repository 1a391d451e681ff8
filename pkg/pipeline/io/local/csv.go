package local

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shpitdev/ensembl-homology-pipeline/pkg/pipeline/table"
)

// ReadCSV reads a CSV with a header row into a table, inferring cell kinds
// the way spreadsheet loaders do: blank cells are empty, numeric and boolean
// literals are typed, everything else is text.
func ReadCSV(r io.Reader) (table.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return table.Table{}, fmt.Errorf("read header: %w", err)
	}

	t := table.Table{Columns: header}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return table.Table{}, fmt.Errorf("read row %d: %w", len(t.Rows)+1, err)
		}
		row := make([]table.Cell, len(rec))
		for i, v := range rec {
			row[i] = inferCell(v)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func inferCell(v string) table.Cell {
	s := strings.TrimSpace(v)
	if s == "" {
		return table.Cell{Value: v, Kind: table.KindEmpty}
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return table.Cell{Value: v, Kind: table.KindNumber}
	}
	switch strings.ToLower(s) {
	case "true", "false":
		return table.Cell{Value: v, Kind: table.KindBool}
	}
	return table.Text(v)
}

// WriteOptions controls CSV rendering.
type WriteOptions struct {
	// Index prepends an unnamed column holding the zero-based row number.
	Index bool
}

// WriteCSV writes the table header and rows as CSV.
func WriteCSV(w io.Writer, t table.Table, opts WriteOptions) error {
	cw := csv.NewWriter(w)

	header := t.Columns
	if opts.Index {
		header = append([]string{""}, t.Columns...)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	width := len(t.Columns)
	for i, row := range t.Rows {
		rec := make([]string, 0, width+1)
		if opts.Index {
			rec = append(rec, strconv.Itoa(i))
		}
		for c := 0; c < width; c++ {
			if c < len(row) {
				rec = append(rec, row[c].Value)
			} else {
				rec = append(rec, "")
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
