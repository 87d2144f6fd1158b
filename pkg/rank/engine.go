// Package rank orders, tiers, highlights and inspects normalized cluster
// results. Every function here is a pure transform over its arguments.
package rank

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/elonfeng/clusterboard/pkg/cluster"
)

// SortMode selects how a view is ordered and filtered.
type SortMode string

const (
	ModeNumber  SortMode = "number"
	ModePoints  SortMode = "points"
	ModeNonZero SortMode = "non-zero"
)

// Identifiers of the sort controls a surface exposes.
const (
	ControlSortNumber  = "sort-number"
	ControlSortPoints  = "sort-points"
	ControlSortNonZero = "sort-nonzero"
)

// AllModes returns the sort modes in control order.
func AllModes() []SortMode {
	return []SortMode{ModeNumber, ModePoints, ModeNonZero}
}

// ParseMode parses a mode name. "nonzero" is accepted for non-zero.
func ParseMode(s string) (SortMode, error) {
	switch SortMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeNumber:
		return ModeNumber, nil
	case ModePoints:
		return ModePoints, nil
	case ModeNonZero, "nonzero":
		return ModeNonZero, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// ModeForControl maps the id of the control that triggered a sort to its
// mode. The caller passes the id; nothing is inferred from ambient state.
func ModeForControl(controlID string) (SortMode, error) {
	switch controlID {
	case ControlSortNumber:
		return ModeNumber, nil
	case ControlSortPoints:
		return ModePoints, nil
	case ControlSortNonZero:
		return ModeNonZero, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownControl, controlID)
}

// Control returns the control id that selects m.
func (m SortMode) Control() string {
	switch m {
	case ModeNumber:
		return ControlSortNumber
	case ModePoints:
		return ControlSortPoints
	case ModeNonZero:
		return ControlSortNonZero
	}
	return ""
}

// Entry is one cluster in a view. Hidden entries keep their position.
type Entry struct {
	Cluster cluster.ClusterResult `json:"cluster"`
	Visible bool                  `json:"visible"`
}

// View is an ordering of a cluster list with a visibility mask.
type View struct {
	Mode    SortMode `json:"mode"`
	Entries []Entry  `json:"entries"`
}

// Visible returns the visible entries in view order.
func (v View) Visible() []Entry {
	var out []Entry
	for _, e := range v.Entries {
		if e.Visible {
			out = append(out, e)
		}
	}
	return out
}

// Hidden returns the entries filtered out by the mode, in view order.
func (v View) Hidden() []Entry {
	var out []Entry
	for _, e := range v.Entries {
		if !e.Visible {
			out = append(out, e)
		}
	}
	return out
}

// IDs returns the cluster ids of every entry in view order.
func (v View) IDs() []int {
	ids := make([]int, len(v.Entries))
	for i, e := range v.Entries {
		ids[i] = e.Cluster.ID
	}
	return ids
}

// Row is an entry flattened for output, with its tier and display text.
type Row struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Points      float64 `json:"points"`
	Formatted
	Visible bool `json:"visible"`
}

// Rows flattens every entry of the view. Hidden entries are kept with
// Visible false.
func (v View) Rows() []Row {
	rows := make([]Row, len(v.Entries))
	for i, e := range v.Entries {
		rows[i] = RowOf(e.Cluster, e.Visible)
	}
	return rows
}

// RowOf flattens one cluster.
func RowOf(c cluster.ClusterResult, visible bool) Row {
	return Row{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Points:      c.Points,
		Formatted:   FormatTier(c.Points, c.PointsFormatted),
		Visible:     visible,
	}
}

// Order returns a new view of list under mode. The view shares nothing
// with list.
func Order(list []cluster.ClusterResult, mode SortMode) (View, error) {
	sorted := slices.Clone(list)

	switch mode {
	case ModeNumber:
		slices.SortFunc(sorted, byID)
	case ModePoints, ModeNonZero:
		slices.SortFunc(sorted, byPointsDesc)
	default:
		return View{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	entries := make([]Entry, len(sorted))
	for i, c := range sorted {
		entries[i] = Entry{
			Cluster: c.Clone(),
			Visible: mode != ModeNonZero || c.Points != 0,
		}
	}
	return View{Mode: mode, Entries: entries}, nil
}

// OrderByControl is Order with the mode resolved from a control id.
func OrderByControl(list []cluster.ClusterResult, controlID string) (View, error) {
	mode, err := ModeForControl(controlID)
	if err != nil {
		return View{}, err
	}
	return Order(list, mode)
}

func byID(a, b cluster.ClusterResult) int {
	return cmp.Compare(a.ID, b.ID)
}

// byPointsDesc orders by points descending, then id ascending, so equal
// scores never depend on the incoming order.
func byPointsDesc(a, b cluster.ClusterResult) int {
	if c := cmp.Compare(b.Points, a.Points); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
