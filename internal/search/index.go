package search

import (
	"context"

	"github.com/dam2452/ranchbot/pkg/types"
)

// Filters narrows a query to one season or episode.
type Filters struct {
	Season  *int
	Episode *int
}

// ScoredSegment is an index hit with its engine-assigned relevance.
type ScoredSegment struct {
	types.Segment
	Score float64
}

// Index is the port to the external search engine. Implementations
// execute queries; index construction and ranking internals stay on the
// other side of this interface.
type Index interface {
	// Query returns up to limit segments matching the quote within the
	// series, optionally filtered. Result order is advisory; the
	// Searcher re-sorts deterministically.
	Query(ctx context.Context, series, quote string, filters Filters, limit int) ([]ScoredSegment, error)

	// EpisodesBySeason lists the episodes of one season in
	// chronological order.
	EpisodesBySeason(ctx context.Context, series string, season int) ([]types.EpisodeRef, error)
}
