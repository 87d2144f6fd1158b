package cluster

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Normalize turns the results and details maps of a payload into typed
// cluster records in ascending id order.
//
// Clusters missing from results are omitted, never given a zero
// placeholder. Entries that fail validation are dropped and reported in
// the returned error (a ValidationErrors value), alongside the records
// that did validate. When no record survives the error also matches
// ErrEmptyResult.
func Normalize(results map[string]string, details map[string]DetailRecord) ([]ClusterResult, error) {
	var (
		out  []ClusterResult
		errs ValidationErrors
	)

	for id := MinID; id <= MaxID; id++ {
		name := Name(id)
		raw, ok := results[name]
		if !ok {
			continue
		}

		points, verr := parsePoints(name, raw)
		if verr != nil {
			errs = append(errs, verr)
			continue
		}

		rec := ClusterResult{
			ID:              id,
			Name:            name,
			Points:          points,
			PointsFormatted: raw,
		}
		if d, ok := details[name]; ok {
			if verr := checkSubjects(name, d.SubjectsUsed); verr != nil {
				errs = append(errs, verr)
				continue
			}
			rec.Description = d.Description
			rec.SubjectsUsed = slices.Clone(d.SubjectsUsed)
			rec.Failures = slices.Clone(d.Failures)
		}
		out = append(out, rec)
	}

	return out, resultError(out, errs)
}

// NormalizePayload is Normalize over a decoded payload.
func NormalizePayload(p *Payload) ([]ClusterResult, error) {
	return Normalize(p.Results, p.Details)
}

// NormalizeAggregate builds the aggregate summary of a payload.
func NormalizeAggregate(p *Payload) (AggregateSummary, error) {
	var sum AggregateSummary
	if p.AggregatePoints != nil {
		v := *p.AggregatePoints
		if math.IsNaN(v) || v < 0 || v > MaxAggregatePoints {
			return sum, &ValidationError{
				Cluster: "aggregate",
				Value:   strconv.FormatFloat(v, 'f', -1, 64),
				Reason:  fmt.Sprintf("aggregate points outside [0,%d]", MaxAggregatePoints),
			}
		}
		sum.AggregatePoints = v
	}
	if len(p.Top7Subjects) > MaxTopSubjects {
		return sum, &ValidationError{
			Cluster: "aggregate",
			Reason:  fmt.Sprintf("%d top subjects, at most %d count", len(p.Top7Subjects), MaxTopSubjects),
		}
	}
	for _, s := range p.Top7Subjects {
		if s.Points < 0 || s.Points > MaxSubjectPoints {
			return sum, &ValidationError{
				Cluster: "aggregate",
				Value:   strconv.Itoa(s.Points),
				Reason:  fmt.Sprintf("subject %s points outside [0,%d]", s.Subject, MaxSubjectPoints),
			}
		}
	}
	sum.Top7Subjects = slices.Clone(p.Top7Subjects)
	return sum, nil
}

func parsePoints(name, raw string) (float64, *ValidationError) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, &ValidationError{Cluster: name, Value: raw, Reason: "points not numeric", Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > MaxClusterPoints {
		return 0, &ValidationError{
			Cluster: name,
			Value:   raw,
			Reason:  fmt.Sprintf("points outside [0,%d]", MaxClusterPoints),
		}
	}
	return v, nil
}

func checkSubjects(name string, subjects []SubjectContribution) *ValidationError {
	total := 0
	for _, s := range subjects {
		if s.Points < 0 || s.Points > MaxSubjectPoints {
			return &ValidationError{
				Cluster: name,
				Value:   strconv.Itoa(s.Points),
				Reason:  fmt.Sprintf("subject %s points outside [0,%d]", s.Subject, MaxSubjectPoints),
			}
		}
		total += s.Points
	}
	if total > MaxClusterPoints {
		return &ValidationError{
			Cluster: name,
			Value:   strconv.Itoa(total),
			Reason:  fmt.Sprintf("subject points exceed %d", MaxClusterPoints),
		}
	}
	return nil
}

func resultError(out []ClusterResult, errs ValidationErrors) error {
	if len(out) > 0 {
		if len(errs) == 0 {
			return nil
		}
		return errs
	}
	empty := &EmptyResultError{Dropped: len(errs)}
	if len(errs) == 0 {
		return empty
	}
	return errors.Join(errs, empty)
}
