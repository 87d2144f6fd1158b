package rank

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/elonfeng/clusterboard/pkg/cluster"
)

// Board is one normalized scoring response. It is built once and never
// modified; every method returns fresh values.
type Board struct {
	id        string
	clusters  []cluster.ClusterResult
	aggregate cluster.AggregateSummary
	warning   string
	method    cluster.Method
	invalid   cluster.ValidationErrors
	unknown   []string
}

// ClusterDetail is the result of selecting one cluster.
type ClusterDetail struct {
	Cluster cluster.ClusterResult `json:"cluster"`
	Format  Formatted             `json:"format"`
	Detail  Detail                `json:"detail"`
}

// NewBoard normalizes a payload. A payload marked unsuccessful is
// rejected with ErrScoringFailed before anything is normalized, and a
// payload with no valid cluster is rejected with cluster.ErrEmptyResult.
// Entries dropped by validation are kept on the board (see Invalid).
func NewBoard(p *cluster.Payload) (*Board, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: no payload", ErrScoringFailed)
	}
	if !p.Success {
		if p.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrScoringFailed, p.Error)
		}
		return nil, ErrScoringFailed
	}

	list, err := cluster.NormalizePayload(p)
	if errors.Is(err, cluster.ErrEmptyResult) {
		return nil, err
	}

	b := &Board{
		id:       p.ResultID,
		clusters: list,
		warning:  p.Warning,
		method:   p.Method,
		unknown:  cluster.UnknownKeys(p.Results),
	}
	if b.id == "" {
		b.id = uuid.NewString()
	}

	var verrs cluster.ValidationErrors
	if errors.As(err, &verrs) {
		b.invalid = verrs
	}

	agg, err := cluster.NormalizeAggregate(p)
	if err != nil {
		var verr *cluster.ValidationError
		if errors.As(err, &verr) {
			b.invalid = append(b.invalid, verr)
		}
	} else {
		b.aggregate = agg
	}

	return b, nil
}

// ID identifies the result set.
func (b *Board) ID() string { return b.id }

// Warning is the service's advisory message, if any.
func (b *Board) Warning() string { return b.warning }

// Method is the service's description of how the points were computed.
func (b *Board) Method() cluster.Method { return b.method }

// Unknown lists the results keys that named no cluster.
func (b *Board) Unknown() []string { return slices.Clone(b.unknown) }

// Invalid lists the payload entries dropped during normalization.
func (b *Board) Invalid() cluster.ValidationErrors { return slices.Clone(b.invalid) }

// Len is the number of clusters on the board.
func (b *Board) Len() int { return len(b.clusters) }

// Clusters returns the normalized list in ascending id order.
func (b *Board) Clusters() []cluster.ClusterResult {
	out := make([]cluster.ClusterResult, len(b.clusters))
	for i, c := range b.clusters {
		out[i] = c.Clone()
	}
	return out
}

// Aggregate returns the best-7 summary.
func (b *Board) Aggregate() cluster.AggregateSummary {
	agg := b.aggregate
	agg.Top7Subjects = slices.Clone(agg.Top7Subjects)
	return agg
}

// Order returns a view of the board under mode.
func (b *Board) Order(mode SortMode) (View, error) {
	return Order(b.clusters, mode)
}

// OrderByControl returns a view for the sort control with the given id.
func (b *Board) OrderByControl(controlID string) (View, error) {
	return OrderByControl(b.clusters, controlID)
}

// Highlights returns the highlight set. It does not depend on any view.
func (b *Board) Highlights(opts TopOptions) []Highlight {
	return SelectTopOpts(b.clusters, opts)
}

// SelectCluster returns the detail of one cluster by id. Clusters hidden
// in the current view are still selectable.
func (b *Board) SelectCluster(id int) (ClusterDetail, error) {
	for _, c := range b.clusters {
		if c.ID == id {
			return ClusterDetail{
				Cluster: c.Clone(),
				Format:  FormatTier(c.Points, c.PointsFormatted),
				Detail:  Aggregate(c.SubjectsUsed),
			}, nil
		}
	}
	return ClusterDetail{}, fmt.Errorf("%w: %d", ErrClusterNotFound, id)
}

// AggregateDetail is the breakdown of the best-7 aggregate, out of 84.
func (b *Board) AggregateDetail() Detail {
	return AggregateTop7(b.aggregate.Top7Subjects)
}
