// Package homology turns Ensembl homology responses into per-row results and
// merges them back into the input table.
package homology

import (
	"strings"

	"github.com/shpitdev/ensembl-homology-pipeline/internal/ensembl"
)

// Result is the reduced homology information for one gene. The zero value
// is the default emitted for ineligible or failed rows.
type Result struct {
	// Count is the number of homologies the service returned, before any
	// target species filtering.
	Count int
	// IDs are the target gene ids that passed the species filter, in
	// response order.
	IDs []string
}

// Joined renders IDs as a comma separated list.
func (r Result) Joined() string {
	return strings.Join(r.IDs, ",")
}

// Extract reduces a decoded homology response to a Result.
//
// Only the first element of data is considered. Count is the total number of
// homologies while IDs holds only the entries whose target species equals
// targetSpecies. A blank targetSpecies matches no entry, so the row keeps its
// count with no ids. Malformed entries are skipped rather than failing the
// row.
func Extract(body ensembl.Body, targetSpecies string) Result {
	root, ok := body.Object()
	if !ok {
		return Result{}
	}
	data, ok := ensembl.List(root, "data")
	if !ok || len(data) == 0 {
		return Result{}
	}
	first, ok := data[0].(map[string]any)
	if !ok {
		return Result{}
	}
	homologies, ok := ensembl.List(first, "homologies")
	if !ok || len(homologies) == 0 {
		return Result{}
	}

	res := Result{Count: len(homologies)}
	if !ensembl.HasTargetSpecies(targetSpecies) {
		return res
	}
	for _, raw := range homologies {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		target, ok := ensembl.Object(entry, "target")
		if !ok {
			continue
		}
		if species, _ := ensembl.String(target, "species"); species != targetSpecies {
			continue
		}
		id, ok := ensembl.String(target, "id")
		if !ok {
			continue
		}
		res.IDs = append(res.IDs, id)
	}
	return res
}
