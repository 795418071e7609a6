package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dam2452/ranchbot/pkg/types"
)

const (
	// DefaultLimit is how many results a search returns.
	DefaultLimit = 25
	// MaxLimit caps any single query against the index.
	MaxLimit = 100
)

// Searcher executes quote searches against an Index and guarantees
// deterministic result ordering.
type Searcher struct {
	index  Index
	series string
	limit  int
}

// NewSearcher creates a Searcher scoped to the active series.
func NewSearcher(index Index, series string) *Searcher {
	return &Searcher{index: index, series: series, limit: DefaultLimit}
}

// Search runs a fuzzy full-text query for the quote and returns the
// ordered hit list. Ordering is the position-addressing contract:
// relevance score descending, ties broken by (season, episode, start)
// ascending. An empty quote is a validation error; an empty result set
// is returned as-is for the caller to surface.
func (s *Searcher) Search(ctx context.Context, quote string, filters Filters, limit int) ([]types.Segment, error) {
	quote = strings.TrimSpace(quote)
	if quote == "" {
		return nil, types.NewError(types.KindValidation, "quote cannot be empty")
	}
	if limit <= 0 {
		limit = s.limit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	scored, err := s.index.Query(ctx, s.series, quote, filters, limit)
	if err != nil {
		return nil, types.WrapError(types.KindInternal, "search engine unavailable", err)
	}

	sortDeterministic(scored)

	segments := make([]types.Segment, len(scored))
	for i, hit := range scored {
		segments[i] = hit.Segment
	}
	return segments, nil
}

// Top returns the single best hit for a quote, used by quote selectors.
func (s *Searcher) Top(ctx context.Context, quote string, filters Filters) (types.Segment, error) {
	results, err := s.Search(ctx, quote, filters, 1)
	if err != nil {
		return types.Segment{}, err
	}
	if len(results) == 0 {
		return types.Segment{}, types.NewError(types.KindNotFound,
			fmt.Sprintf("no segment found for %q", quote))
	}
	return results[0], nil
}

// EpisodesBySeason lists one season's episodes chronologically.
func (s *Searcher) EpisodesBySeason(ctx context.Context, season int) ([]types.EpisodeRef, error) {
	episodes, err := s.index.EpisodesBySeason(ctx, s.series, season)
	if err != nil {
		return nil, types.WrapError(types.KindInternal, "search engine unavailable", err)
	}
	if len(episodes) == 0 {
		return nil, types.NewError(types.KindNotFound, fmt.Sprintf("no episodes in season %d", season))
	}
	sort.Slice(episodes, func(i, j int) bool {
		if episodes[i].Season != episodes[j].Season {
			return episodes[i].Season < episodes[j].Season
		}
		return episodes[i].Episode < episodes[j].Episode
	})
	return episodes, nil
}

// sortDeterministic orders hits by score descending, then
// chronologically. Stable position addressing depends on this sort, not
// on whatever order the engine happened to return.
func sortDeterministic(hits []ScoredSegment) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		a, b := hits[i].Episode, hits[j].Episode
		if a.Season != b.Season {
			return a.Season < b.Season
		}
		if a.Episode != b.Episode {
			return a.Episode < b.Episode
		}
		return hits[i].Start < hits[j].Start
	})
}
