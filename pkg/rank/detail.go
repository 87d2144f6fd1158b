package rank

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/elonfeng/clusterboard/pkg/cluster"
)

// Denominators for reporting totals. A cluster total is out of 48 and the
// aggregate is out of 84; the two are never interchangeable.
const (
	ClusterDenominator   = cluster.MaxClusterPoints
	AggregateDenominator = cluster.MaxAggregatePoints
)

// NoBadge is the badge of a subject with no grade.
const NoBadge = "-"

// DetailItem is a subject contribution with its grade badge class.
type DetailItem struct {
	cluster.SubjectContribution
	Badge string `json:"badge"`
}

// Detail is the subject breakdown of one total.
type Detail struct {
	Items       []DetailItem `json:"items"`
	Total       int          `json:"total"`
	Denominator int          `json:"denominator"`
}

// Aggregate annotates each subject with its badge and sums the points.
// The denominator is ClusterDenominator.
func Aggregate(subjects []cluster.SubjectContribution) Detail {
	return aggregate(subjects, ClusterDenominator)
}

// AggregateTop7 is Aggregate over the best-7 subjects, out of 84.
func AggregateTop7(subjects []cluster.SubjectContribution) Detail {
	return aggregate(subjects, AggregateDenominator)
}

func aggregate(subjects []cluster.SubjectContribution, denominator int) Detail {
	d := Detail{
		Items:       make([]DetailItem, len(subjects)),
		Denominator: denominator,
	}
	for i, s := range subjects {
		d.Items[i] = DetailItem{SubjectContribution: s, Badge: Badge(s.Grade)}
		d.Total += s.Points
	}
	return d
}

// Badge returns the badge class for a grade: its first letter, so "B+"
// and "B-" share the "B" badge.
func Badge(grade string) string {
	grade = strings.TrimSpace(grade)
	if grade == "" {
		return NoBadge
	}
	r, _ := utf8.DecodeRuneInString(grade)
	return string(unicode.ToUpper(r))
}
