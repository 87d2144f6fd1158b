package rank

import (
	"slices"

	"github.com/elonfeng/clusterboard/pkg/cluster"
)

// DefaultHighlights is the size of the highlight set.
const DefaultHighlights = 3

// HighlightZeroPoints decides whether a zero-point cluster may take a
// highlight slot when fewer than DefaultHighlights clusters scored. It
// may not: a result with two scoring clusters highlights two.
const HighlightZeroPoints = false

// Highlight is a cluster with its 1-based rank in the highlight set.
type Highlight struct {
	Rank    int                   `json:"rank"`
	Cluster cluster.ClusterResult `json:"cluster"`
}

// TopOptions tunes SelectTopOpts.
type TopOptions struct {
	N           int  // <= 0 means DefaultHighlights
	IncludeZero bool // let zero-point clusters fill remaining slots
}

// SelectTop returns up to n highlights ranked by points descending, ties
// by ascending id. The ordering is computed here and never taken from a
// display view.
func SelectTop(list []cluster.ClusterResult, n int) []Highlight {
	return SelectTopOpts(list, TopOptions{N: n, IncludeZero: HighlightZeroPoints})
}

// SelectTopOpts is SelectTop with an explicit zero-point policy.
func SelectTopOpts(list []cluster.ClusterResult, opts TopOptions) []Highlight {
	n := opts.N
	if n <= 0 {
		n = DefaultHighlights
	}

	sorted := slices.Clone(list)
	slices.SortFunc(sorted, byPointsDesc)

	out := make([]Highlight, 0, min(n, len(sorted)))
	for _, c := range sorted {
		if len(out) == n {
			break
		}
		if c.Points == 0 && !opts.IncludeZero {
			// Sorted descending: everything after is zero too.
			break
		}
		out = append(out, Highlight{Rank: len(out) + 1, Cluster: c.Clone()})
	}
	return out
}
