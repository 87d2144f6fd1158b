package cluster

import (
	"encoding/json"
	"fmt"
	"io"
)

// Payload is the response shape delivered by the scoring service.
type Payload struct {
	Success         bool                    `json:"success"`
	AggregatePoints *float64                `json:"aggregate_points,omitempty"`
	Top7Subjects    []SubjectContribution   `json:"top_7_subjects,omitempty"`
	Results         map[string]string       `json:"results"`
	Details         map[string]DetailRecord `json:"details,omitempty"`
	Warning         string                  `json:"warning,omitempty"`
	Error           string                  `json:"error,omitempty"`
	ResultID        string                  `json:"result_id,omitempty"`

	Method
}

// Method is the informational description of how the points were
// computed. Nothing here affects ranking.
type Method struct {
	SubjectsCount int    `json:"subjects_count,omitempty"`
	Formula       string `json:"formula,omitempty"`
	Note          string `json:"note,omitempty"`
	DeviationNote string `json:"deviation_note,omitempty"`
}

// IsZero reports whether the payload carried no method fields.
func (m Method) IsZero() bool {
	return m == Method{}
}

// DetailRecord is the optional per-cluster detail block of a payload.
type DetailRecord struct {
	Description  string                `json:"description"`
	SubjectsUsed []SubjectContribution `json:"subjects_used"`
	// Failures explains a 0.000 score: the requirements the grades missed.
	Failures []string `json:"failures,omitempty"`
}

// DecodePayload reads one JSON payload from r.
func DecodePayload(r io.Reader) (*Payload, error) {
	var p Payload
	dec := json.NewDecoder(r)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &p, nil
}
