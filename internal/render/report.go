package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/elonfeng/clusterboard/pkg/rank"
)

// ReportTitle heads every results report.
const ReportTitle = "KCSE Cluster Points Results"

// Report renders the full results of a board: every cluster in number
// order, the highlights, the best-7 aggregate and the scoring method.
func Report(b *rank.Board, top rank.TopOptions, at time.Time) string {
	var sb strings.Builder
	sb.WriteString(Header.Render(ReportTitle))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Result ID: %s\n", b.ID())
	fmt.Fprintf(&sb, "Generated: %s\n", at.Format("2006-01-02 15:04:05"))
	sb.WriteString(Notice(b.Warning()))
	sb.WriteString("\n")

	sb.WriteString(Highlights(b.Highlights(top)))
	sb.WriteString("\n")

	// The number-order view has no hidden entries.
	if view, err := b.Order(rank.ModeNumber); err == nil {
		sb.WriteString(Table(view, true))
		sb.WriteString("\n")
	}

	agg := b.Aggregate()
	sb.WriteString(Aggregate(agg.AggregatePoints, b.AggregateDetail()))

	if m := Method(b.Method()); m != "" {
		sb.WriteString("\n")
		sb.WriteString(m)
	}
	return sb.String()
}

// WriteReport writes the report to w without terminal styling.
func WriteReport(w io.Writer, b *rank.Board, top rank.TopOptions, at time.Time) error {
	_, err := io.WriteString(w, ansi.Strip(Report(b, top, at)))
	return err
}
