package local

import (
	"fmt"
	"io"
	"slices"

	"github.com/xuri/excelize/v2"

	"github.com/shpitdev/ensembl-homology-pipeline/pkg/pipeline/table"
)

// DefaultSheet is read when no sheet is requested and the workbook has one by this name.
const DefaultSheet = "Sheet1"

// ReadXLSX reads one worksheet of an xlsx workbook into a table. The first
// row is the header.
//
// sheet selects the worksheet; when empty, DefaultSheet is used if present,
// otherwise the first sheet in the workbook.
func ReadXLSX(r io.Reader, sheet string) (table.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return table.Table{}, fmt.Errorf("open workbook: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	sheet, err = pickSheet(f.GetSheetList(), sheet)
	if err != nil {
		return table.Table{}, err
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return table.Table{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return table.Table{}, fmt.Errorf("sheet %q has no header row", sheet)
	}

	t := table.Table{Columns: rows[0]}
	for r, rec := range rows[1:] {
		row := make([]table.Cell, len(rec))
		for c, v := range rec {
			// Header is spreadsheet row 1, so data row r lives at r+2.
			name, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return table.Table{}, err
			}
			typ, err := f.GetCellType(sheet, name)
			if err != nil {
				return table.Table{}, fmt.Errorf("cell %s: %w", name, err)
			}
			row[c] = xlsxCell(v, typ)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func pickSheet(sheets []string, want string) (string, error) {
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}
	if want != "" {
		if !slices.Contains(sheets, want) {
			return "", fmt.Errorf("sheet %q not found (have %v)", want, sheets)
		}
		return want, nil
	}
	if slices.Contains(sheets, DefaultSheet) {
		return DefaultSheet, nil
	}
	return sheets[0], nil
}

func xlsxCell(v string, typ excelize.CellType) table.Cell {
	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		if v == "" {
			return table.Cell{Kind: table.KindEmpty}
		}
		return table.Text(v)
	case excelize.CellTypeBool:
		return table.Cell{Value: v, Kind: table.KindBool}
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		// Numeric cells carry no type attribute in most writers.
		if v == "" {
			return table.Cell{Kind: table.KindEmpty}
		}
		return table.Number(v)
	default:
		return table.Cell{Value: v, Kind: table.KindOther}
	}
}
