// Package notify publishes the highlight set of a result to chat and
// webhook destinations.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/elonfeng/clusterboard/pkg/rank"
)

// Highlight is one highlighted cluster as sent to destinations.
type Highlight struct {
	Rank        int       `json:"rank"`
	ClusterID   int       `json:"cluster_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Points      string    `json:"points"`
	Tier        rank.Tier `json:"tier"`
}

// Notification is the data sent to destinations.
type Notification struct {
	Title           string      `json:"title"`
	Body            string      `json:"body"`
	ResultID        string      `json:"result_id"`
	AggregatePoints float64     `json:"aggregate_points"`
	Highlights      []Highlight `json:"highlights"`
}

// FromBoard builds the notification for a board's highlight set.
func FromBoard(b *rank.Board, opts rank.TopOptions) *Notification {
	top := b.Highlights(opts)
	n := &Notification{
		Title:           "Top clusters",
		ResultID:        b.ID(),
		AggregatePoints: b.Aggregate().AggregatePoints,
		Highlights:      make([]Highlight, len(top)),
	}
	for i, h := range top {
		f := rank.FormatTier(h.Cluster.Points, h.Cluster.PointsFormatted)
		n.Highlights[i] = Highlight{
			Rank:        h.Rank,
			ClusterID:   h.Cluster.ID,
			Name:        h.Cluster.Name,
			Description: h.Cluster.Description,
			Points:      f.DisplayText,
			Tier:        f.Tier,
		}
	}

	var body []string
	body = append(body, fmt.Sprintf("Aggregate: %g/%d", n.AggregatePoints, rank.AggregateDenominator))
	if len(top) == 0 {
		body = append(body, "No cluster scored above zero.")
	}
	if w := b.Warning(); w != "" {
		body = append(body, "Warning: "+w)
	}
	n.Body = strings.Join(body, "\n")
	return n
}

// Lines renders the highlights one per line for chat destinations.
func (n *Notification) Lines(format func(h Highlight) string) []string {
	lines := make([]string, len(n.Highlights))
	for i, h := range n.Highlights {
		lines[i] = format(h)
	}
	return lines
}

// Notifier delivers notifications to a specific destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// Manager broadcasts notifications to all registered notifiers.
type Manager struct {
	notifiers []Notifier
}

// NewManager creates a new notification manager.
func NewManager(notifiers []Notifier) *Manager {
	return &Manager{notifiers: notifiers}
}

// HasNotifiers returns true if at least one notifier is configured.
func (m *Manager) HasNotifiers() bool {
	return len(m.notifiers) > 0
}

// Broadcast sends a notification to all registered notifiers.
func (m *Manager) Broadcast(ctx context.Context, n *Notification) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}
	return errors.Join(errs...)
}
