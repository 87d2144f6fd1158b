// Package render formats boards for the terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/elonfeng/clusterboard/pkg/cluster"
	"github.com/elonfeng/clusterboard/pkg/rank"
)

// EmptyMessage replaces ranking and highlight output when a result has
// no clusters.
const EmptyMessage = "No cluster results to display."

// Points renders a score in its tier style.
func Points(f rank.Formatted) string {
	return TierStyle(f.Tier).Render(f.DisplayText)
}

// Row renders one table row without trailing newline. Hidden rows are
// dimmed as a whole.
func Row(r rank.Row) string {
	head := fmt.Sprintf("%3d  %-11s", r.ID, r.Name)
	pts := fmt.Sprintf("%8s", r.DisplayText)
	if !r.Visible {
		return Muted.Render(strings.TrimRight(head+" "+pts+"  "+r.Description, " "))
	}
	line := head + " " + TierStyle(r.Tier).Render(pts)
	if r.Description != "" {
		line += "  " + Secondary.Render(r.Description)
	}
	return line
}

// Table renders a view. Hidden entries are listed only when showHidden
// is set.
func Table(v rank.View, showHidden bool) string {
	var b strings.Builder
	b.WriteString(Header.Render(fmt.Sprintf("Clusters (sorted by %s)", v.Mode)))
	b.WriteString("\n")

	hidden := 0
	for _, r := range v.Rows() {
		if !r.Visible {
			hidden++
			if !showHidden {
				continue
			}
		}
		b.WriteString(Row(r))
		b.WriteString("\n")
	}
	if hidden > 0 && !showHidden {
		b.WriteString(Muted.Render(fmt.Sprintf("(%d hidden)", hidden)))
		b.WriteString("\n")
	}
	return b.String()
}

// Highlights renders the highlight set.
func Highlights(top []rank.Highlight) string {
	var b strings.Builder
	b.WriteString(Header.Render("Top clusters"))
	b.WriteString("\n")
	if len(top) == 0 {
		b.WriteString(Muted.Render("No cluster scored above zero."))
		b.WriteString("\n")
		return b.String()
	}
	for _, h := range top {
		f := rank.FormatTier(h.Cluster.Points, h.Cluster.PointsFormatted)
		fmt.Fprintf(&b, "#%d  %s  %s", h.Rank, h.Cluster.Name, Points(f))
		if h.Cluster.Description != "" {
			b.WriteString("  " + Secondary.Render(h.Cluster.Description))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Breakdown renders a subject breakdown and its total over the
// breakdown's denominator.
func Breakdown(d rank.Detail) string {
	var b strings.Builder
	if len(d.Items) == 0 {
		b.WriteString(Muted.Render("No subject breakdown available."))
		b.WriteString("\n")
	}
	for _, it := range d.Items {
		fmt.Fprintf(&b, "%s %-14s %-3s %2d", BadgeStyle(it.Badge).Render(it.Badge), it.Subject, it.Grade, it.Points)
		if it.Requirement != "" {
			b.WriteString("  " + Muted.Render(it.Requirement))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Total: %d/%d\n", d.Total, d.Denominator)
	return b.String()
}

// Detail renders a selected cluster.
func Detail(cd rank.ClusterDetail) string {
	var b strings.Builder
	b.WriteString(Header.Render(fmt.Sprintf("%s  %s", cd.Cluster.Name, Points(cd.Format))))
	b.WriteString("\n")
	if cd.Cluster.Description != "" {
		b.WriteString(Secondary.Render(cd.Cluster.Description))
		b.WriteString("\n")
	}
	b.WriteString(Breakdown(cd.Detail))
	for _, f := range cd.Cluster.Failures {
		b.WriteString(ErrorStyle.Render("Failed: " + f))
		b.WriteString("\n")
	}
	return b.String()
}

// Aggregate renders the best-7 aggregate.
func Aggregate(points float64, d rank.Detail) string {
	var b strings.Builder
	b.WriteString(Header.Render(fmt.Sprintf("Aggregate  %g/%d", points, rank.AggregateDenominator)))
	b.WriteString("\n")
	b.WriteString(Breakdown(d))
	return b.String()
}

// Method renders the service's explanation of the scoring method, or
// nothing when the payload carried none.
func Method(m cluster.Method) string {
	if m.IsZero() {
		return ""
	}
	var b strings.Builder
	if m.Formula != "" {
		b.WriteString(Secondary.Render("Formula: " + m.Formula))
		b.WriteString("\n")
	}
	for _, note := range []string{m.Note, m.DeviationNote} {
		if note != "" {
			b.WriteString(Muted.Render(note))
			b.WriteString("\n")
		}
	}
	if m.SubjectsCount > 0 {
		b.WriteString(Muted.Render(fmt.Sprintf("Subjects graded: %d", m.SubjectsCount)))
		b.WriteString("\n")
	}
	return b.String()
}

// Notice renders the service warning, if any.
func Notice(msg string) string {
	if msg == "" {
		return ""
	}
	return Warning.Render("Warning: "+msg) + "\n"
}

// Empty renders the suppression message for an empty result.
func Empty() string {
	return Muted.Render(EmptyMessage) + "\n"
}
