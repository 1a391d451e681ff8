// Package ensembl builds and executes homology lookups against the Ensembl
// REST service.
package ensembl

import (
	"net/url"
	"strings"
)

// Relation is the homology category requested from the service.
type Relation string

const (
	RelationOrthologues Relation = "orthologues"
	RelationParalogues  Relation = "paralogues"
	RelationProjections Relation = "projections"
	RelationAll         Relation = "all"
)

// Sequence selects which sequence annotation the service returns alongside homologies.
type Sequence string

const (
	SequenceNone    Sequence = "none"
	SequenceCDNA    Sequence = "cdna"
	SequenceProtein Sequence = "protein"
)

// Known reports whether r is one of the documented relation types.
// Unknown values are still forwarded; the service decides.
func (r Relation) Known() bool {
	switch r {
	case RelationOrthologues, RelationParalogues, RelationProjections, RelationAll:
		return true
	}
	return false
}

// Known reports whether s is one of the documented sequence modes.
func (s Sequence) Known() bool {
	switch s {
	case SequenceNone, SequenceCDNA, SequenceProtein:
		return true
	}
	return false
}

// Query fully describes one homology lookup.
type Query struct {
	SourceSpecies string
	GeneID        string
	Relation      Relation
	Sequence      Sequence
	// TargetSpecies is optional. When empty no target_species filter is sent.
	TargetSpecies string
}

// BuildQuery assembles a Query. No validation is done on species codes or gene ids.
func BuildQuery(sourceSpecies, geneID string, relation Relation, sequence Sequence, targetSpecies string) Query {
	return Query{
		SourceSpecies: sourceSpecies,
		GeneID:        geneID,
		Relation:      relation,
		Sequence:      sequence,
		TargetSpecies: targetSpecies,
	}
}

// HasTargetSpecies reports whether s names a target species. Blank values
// mean no target species was given.
func HasTargetSpecies(s string) bool {
	return strings.TrimSpace(s) != ""
}

// Path returns the unescaped endpoint path relative to the service root.
func (q Query) Path() string {
	return "homology/id/" + q.SourceSpecies + "/" + q.GeneID
}

// Values returns the query parameters.
func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set("type", string(q.Relation))
	v.Set("sequence", string(q.Sequence))
	if HasTargetSpecies(q.TargetSpecies) {
		v.Set("target_species", q.TargetSpecies)
	}
	return v
}
