// Package scoring obtains computed cluster results from outside the
// process: the scoring service over HTTP, or a saved payload file.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/elonfeng/clusterboard/pkg/cluster"
)

// SourceType identifies where a payload came from.
type SourceType string

const (
	SourceService SourceType = "service"
	SourceFile    SourceType = "file"
)

// Source delivers one scored payload per call.
type Source interface {
	Name() SourceType
	Fetch(ctx context.Context) (*cluster.Payload, error)
}

// ErrInvalidGrade is returned for a grade outside the KCSE letter scale.
var ErrInvalidGrade = errors.New("invalid grade")

// Grades is the KCSE letter scale, best first.
var Grades = []string{"A", "A-", "B+", "B", "B-", "C+", "C", "C-", "D+", "D", "D-", "E"}

// GradeSheet maps subject code to letter grade.
type GradeSheet map[string]string

// NormalizeGrades upper-cases every grade, drops blank entries and
// rejects anything outside the scale.
func NormalizeGrades(in map[string]string) (GradeSheet, error) {
	out := make(GradeSheet, len(in))
	var bad []string
	for subject, grade := range in {
		subject = strings.ToLower(strings.TrimSpace(subject))
		grade = strings.ToUpper(strings.TrimSpace(grade))
		if subject == "" || grade == "" {
			continue
		}
		if !slices.Contains(Grades, grade) {
			bad = append(bad, fmt.Sprintf("%s=%s", subject, grade))
			continue
		}
		out[subject] = grade
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return nil, fmt.Errorf("%w: %s", ErrInvalidGrade, strings.Join(bad, ", "))
	}
	return out, nil
}

// ParseGradeArgs parses "subject=GRADE" arguments.
func ParseGradeArgs(args []string) (GradeSheet, error) {
	raw := make(map[string]string, len(args))
	for _, arg := range args {
		subject, grade, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("%w: %q is not subject=GRADE", ErrInvalidGrade, arg)
		}
		raw[subject] = grade
	}
	return NormalizeGrades(raw)
}

// FileSource reads a payload saved as JSON. Path "-" reads stdin.
type FileSource struct {
	path  string
	stdin io.Reader
}

// NewFileSource creates a file source.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path, stdin: os.Stdin}
}

func (f *FileSource) Name() SourceType { return SourceFile }

func (f *FileSource) Fetch(ctx context.Context) (*cluster.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.path == "-" {
		p, err := cluster.DecodePayload(f.stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return p, nil
	}

	fh, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open payload %s: %w", f.path, err)
	}
	defer fh.Close()

	p, err := cluster.DecodePayload(fh)
	if err != nil {
		return nil, fmt.Errorf("read payload %s: %w", f.path, err)
	}
	return p, nil
}
