package cluster

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyResult is matched by EmptyResultError via errors.Is.
var ErrEmptyResult = errors.New("no clusters in result")

// ValidationError reports one payload entry that was dropped during
// normalization.
type ValidationError struct {
	Cluster string // results key, or "aggregate"
	Value   string // offending raw value
	Reason  string
	Err     error
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Cluster, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (value %q)", e.Value)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ValidationErrors is the collected set of dropped entries, in cluster id order.
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Error()
	}
	return fmt.Sprintf("%d invalid entries: %s", len(v), strings.Join(parts, "; "))
}

// Unwrap lets errors.As reach each *ValidationError.
func (v ValidationErrors) Unwrap() []error {
	errs := make([]error, len(v))
	for i, e := range v {
		errs[i] = e
	}
	return errs
}

// EmptyResultError means normalization produced no clusters at all.
// It is distinct from a result set in which every cluster scored zero.
type EmptyResultError struct {
	Dropped int // entries removed by validation
}

func (e *EmptyResultError) Error() string {
	if e.Dropped > 0 {
		return fmt.Sprintf("%v (%d entries dropped)", ErrEmptyResult, e.Dropped)
	}
	return ErrEmptyResult.Error()
}

func (e *EmptyResultError) Is(target error) bool { return target == ErrEmptyResult }
