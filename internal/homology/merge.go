package homology

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/shpitdev/ensembl-homology-pipeline/internal/ensembl"
	"github.com/shpitdev/ensembl-homology-pipeline/pkg/pipeline/table"
)

// CountColumn is the name of the appended homology count column.
const CountColumn = "Count"

// ErrRowCountMismatch is returned by Merge when results and rows are not 1:1.
var ErrRowCountMismatch = errors.New("result count does not match row count")

// Merge returns a copy of t with the Count column and a column named after
// relation appended. results[i] is written to row i; the two must have the
// same length.
func Merge(t table.Table, results []Result, relation ensembl.Relation) (table.Table, error) {
	if len(results) != t.Len() {
		return table.Table{}, fmt.Errorf("%w: %d results for %d rows", ErrRowCountMismatch, len(results), t.Len())
	}

	counts := make([]table.Cell, len(results))
	ids := make([]table.Cell, len(results))
	for i, r := range results {
		counts[i] = table.Number(strconv.Itoa(r.Count))
		ids[i] = table.Text(r.Joined())
	}

	out, err := t.WithColumn(CountColumn, counts)
	if err != nil {
		return table.Table{}, err
	}
	return out.WithColumn(string(relation), ids)
}
