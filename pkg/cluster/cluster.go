package cluster

import (
	"fmt"
	"slices"
)

// Bounds of the KUCCPS scoring scale.
const (
	MinID = 1
	MaxID = 20

	// MaxClusterPoints is the ceiling for one cluster (4 subjects x 12).
	MaxClusterPoints = 48
	// MaxAggregatePoints is the ceiling for the best-7 aggregate (7 x 12).
	MaxAggregatePoints = 84
	// MaxSubjectPoints is the value of an A grade.
	MaxSubjectPoints = 12
	// MaxTopSubjects is how many subjects count toward the aggregate.
	MaxTopSubjects = 7
)

// SubjectContribution is one subject's grade and points feeding a total.
type SubjectContribution struct {
	Subject          string `json:"subject"`
	Grade            string `json:"grade"`
	Points           int    `json:"points"`
	Requirement      string `json:"requirement,omitempty"`
	RequirementIndex int    `json:"requirement_index,omitempty"`
}

// ClusterResult is the normalized record for one scored cluster.
// Records are never modified after Normalize returns them.
type ClusterResult struct {
	ID              int                   `json:"id"`
	Name            string                `json:"name"`
	Points          float64               `json:"points"`
	PointsFormatted string                `json:"points_formatted"`
	Description     string                `json:"description"`
	SubjectsUsed    []SubjectContribution `json:"subjects_used"`
	Failures        []string              `json:"failures,omitempty"`
}

// Clone returns a copy of c that shares no slices with it.
func (c ClusterResult) Clone() ClusterResult {
	c.SubjectsUsed = slices.Clone(c.SubjectsUsed)
	c.Failures = slices.Clone(c.Failures)
	return c
}

// AggregateSummary is the best-7 aggregate reported with a result set.
type AggregateSummary struct {
	AggregatePoints float64               `json:"aggregate_points"`
	Top7Subjects    []SubjectContribution `json:"top_7_subjects"`
}

// Name returns the results key for a cluster id ("Cluster 7").
func Name(id int) string {
	return fmt.Sprintf("Cluster %d", id)
}

// ParseName returns the id for a results key, or false if the key is not
// one of "Cluster 1".."Cluster 20".
func ParseName(name string) (int, bool) {
	var id int
	if _, err := fmt.Sscanf(name, "Cluster %d", &id); err != nil {
		return 0, false
	}
	if id < MinID || id > MaxID || Name(id) != name {
		return 0, false
	}
	return id, true
}

// UnknownKeys returns the results keys that name no cluster, sorted.
// Normalize skips them.
func UnknownKeys(results map[string]string) []string {
	var out []string
	for k := range results {
		if _, ok := ParseName(k); !ok {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}
