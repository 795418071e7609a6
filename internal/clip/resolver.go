package clip

import (
	"context"
	"fmt"

	"github.com/dam2452/ranchbot/internal/search"
	"github.com/dam2452/ranchbot/pkg/types"
)

// Sessions is the slice of the session store the resolver needs.
type Sessions interface {
	GetSearch(userID string) (types.SearchSession, error)
	GetClip(userID string) (types.ClipSpec, error)
	SaveClip(userID string, spec types.ClipSpec)
}

// QuoteSearcher resolves a fresh quote to its top hit.
type QuoteSearcher interface {
	Top(ctx context.Context, quote string, filters search.Filters) (types.Segment, error)
}

// Limits bound what a resolved clip may look like.
type Limits struct {
	// MaxClipSeconds caps a single resolved clip's duration.
	MaxClipSeconds float64
	// ExtensionSeconds caps the combined magnitude of adjust deltas.
	ExtensionSeconds float64
}

// Resolver turns selectors into validated ClipSpecs and commits them as
// the user's current clip. Commit happens as soon as the logical spec
// is valid; whether a later render succeeds does not affect it.
type Resolver struct {
	sessions Sessions
	searcher QuoteSearcher
	limits   Limits
}

// NewResolver creates a Resolver.
func NewResolver(sessions Sessions, searcher QuoteSearcher, limits Limits) *Resolver {
	return &Resolver{sessions: sessions, searcher: searcher, limits: limits}
}

// ResolvePosition resolves a 1-based position into the user's current
// search session and commits the result.
func (r *Resolver) ResolvePosition(userID string, position int) (types.ClipSpec, error) {
	seg, err := r.segmentAt(userID, position)
	if err != nil {
		return types.ClipSpec{}, err
	}
	return r.commit(userID, specFromSegment(seg))
}

// ResolveQuote performs a 1-result search and commits the top hit.
func (r *Resolver) ResolveQuote(ctx context.Context, userID, quote string, filters search.Filters) (types.ClipSpec, error) {
	seg, err := r.searcher.Top(ctx, quote, filters)
	if err != nil {
		return types.ClipSpec{}, err
	}
	return r.commit(userID, specFromSegment(seg))
}

// ResolveManual builds a clip from explicit episode/time coordinates
// given as strings and commits it.
func (r *Resolver) ResolveManual(userID, series, episodeCode, startTC, endTC string) (types.ClipSpec, error) {
	season, episode, err := ParseEpisodeCode(episodeCode)
	if err != nil {
		return types.ClipSpec{}, err
	}
	start, err := ParseTimecode(startTC)
	if err != nil {
		return types.ClipSpec{}, err
	}
	end, err := ParseTimecode(endTC)
	if err != nil {
		return types.ClipSpec{}, err
	}

	ref := types.EpisodeRef{Series: series, Season: season, Episode: episode}
	spec := types.ClipSpec{
		Parts:      []types.ClipPart{{FileRef: ref.FileRef(), Start: start, End: end}},
		SourceText: fmt.Sprintf("%s %s-%s", ref.Code(), FormatTimecode(start), FormatTimecode(end)),
	}
	return r.commit(userID, spec)
}

// Adjust shifts the clip's boundaries by signed timeline offsets:
// before is added to the start and after to the end, so negative
// deltas move a boundary earlier and positive ones later. With a
// position it operates on a fresh resolution of that session entry,
// otherwise on the user's current clip. The prior clip stays untouched
// when the deltas are rejected.
func (r *Resolver) Adjust(userID string, before, after float64, position *int) (types.ClipSpec, error) {
	if mag := abs(before) + abs(after); mag > r.limits.ExtensionSeconds {
		return types.ClipSpec{}, types.NewError(types.KindValidation,
			fmt.Sprintf("combined adjustment %.1fs exceeds the %.1fs limit", mag, r.limits.ExtensionSeconds))
	}

	var spec types.ClipSpec
	if position != nil {
		seg, err := r.segmentAt(userID, *position)
		if err != nil {
			return types.ClipSpec{}, err
		}
		spec = specFromSegment(seg)
	} else {
		current, err := r.sessions.GetClip(userID)
		if err != nil {
			return types.ClipSpec{}, err
		}
		if current.IsCompilation {
			return types.ClipSpec{}, types.NewError(types.KindValidation, "cannot adjust a compilation")
		}
		spec = current
	}

	part := spec.Parts[0]
	part.Start += before
	if part.Start < 0 {
		part.Start = 0 // clamp to episode start
	}
	part.End += after
	if part.End <= part.Start {
		return types.ClipSpec{}, types.NewError(types.KindValidation, "clip end must be after start")
	}
	spec.Parts = []types.ClipPart{part}
	return r.commit(userID, spec)
}

// segmentAt fetches a session entry by 1-based position.
func (r *Resolver) segmentAt(userID string, position int) (types.Segment, error) {
	sess, err := r.sessions.GetSearch(userID)
	if err != nil {
		return types.Segment{}, err
	}
	if position < 1 || position > len(sess.Results) {
		return types.Segment{}, types.NewError(types.KindValidation,
			fmt.Sprintf("position %d out of range, session has %d results", position, len(sess.Results)))
	}
	return sess.Results[position-1], nil
}

// commit validates the spec, enforces the duration cap and stores it as
// the user's current clip.
func (r *Resolver) commit(userID string, spec types.ClipSpec) (types.ClipSpec, error) {
	if err := spec.Validate(); err != nil {
		return types.ClipSpec{}, err
	}
	if d := spec.Duration(); d > r.limits.MaxClipSeconds {
		return types.ClipSpec{}, types.NewError(types.KindValidation,
			fmt.Sprintf("clip is %.1fs long, limit is %.1fs", d, r.limits.MaxClipSeconds))
	}
	r.sessions.SaveClip(userID, spec)
	return spec, nil
}

func specFromSegment(seg types.Segment) types.ClipSpec {
	return types.ClipSpec{
		Parts:      []types.ClipPart{{FileRef: seg.FileRef, Start: seg.Start, End: seg.End}},
		SourceText: fmt.Sprintf("%s %q", seg.Episode.Code(), seg.Text),
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
