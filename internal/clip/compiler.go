package clip

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dam2452/ranchbot/pkg/types"
)

var rangeRe = regexp.MustCompile(`^(\d+)-(\d+)$`)

// SavedLookup fetches a saved clip by name so compilations can include
// previously saved material.
type SavedLookup interface {
	GetByName(ctx context.Context, ownerID, name string) (types.SavedClip, error)
}

// CompileLimits bound a single compilation.
type CompileLimits struct {
	MaxClips        int
	MaxTotalSeconds float64
}

// Compiler merges ordered selections into one composite clip. The
// caller's order is the output order; nothing is re-sorted. Limit
// violations reject the whole compilation before any state changes.
type Compiler struct {
	sessions Sessions
	saved    SavedLookup
	limits   CompileLimits
}

// NewCompiler creates a Compiler.
func NewCompiler(sessions Sessions, saved SavedLookup, limits CompileLimits) *Compiler {
	return &Compiler{sessions: sessions, saved: saved, limits: limits}
}

// Compile builds a composite clip from a selector set: the literal
// "all" (whole session in session order), an inclusive range "a-b"
// (ascending), or an explicit ordered list of positions and saved clip
// names. The result becomes the user's current clip.
func (c *Compiler) Compile(ctx context.Context, userID string, selectors []string) (types.ClipSpec, error) {
	if len(selectors) == 0 {
		return types.ClipSpec{}, types.NewError(types.KindValidation,
			`nothing to compile, give "all", a range like "2-4", or positions`)
	}

	parts, source, err := c.collect(ctx, userID, selectors)
	if err != nil {
		return types.ClipSpec{}, err
	}

	if len(parts) > c.limits.MaxClips {
		return types.ClipSpec{}, types.NewError(types.KindValidation,
			fmt.Sprintf("compilation has %d clips, limit is %d", len(parts), c.limits.MaxClips))
	}

	spec := types.ClipSpec{
		Parts:         parts,
		IsCompilation: true,
		SourceText:    source,
	}
	if err := spec.Validate(); err != nil {
		return types.ClipSpec{}, err
	}
	if d := spec.Duration(); d > c.limits.MaxTotalSeconds {
		return types.ClipSpec{}, types.NewError(types.KindValidation,
			fmt.Sprintf("compilation is %.1fs long, limit is %.1fs", d, c.limits.MaxTotalSeconds))
	}

	c.sessions.SaveClip(userID, spec)
	return spec, nil
}

func (c *Compiler) collect(ctx context.Context, userID string, selectors []string) ([]types.ClipPart, string, error) {
	if len(selectors) == 1 {
		sel := strings.ToLower(strings.TrimSpace(selectors[0]))
		if sel == "all" {
			return c.collectAll(userID)
		}
		if m := rangeRe.FindStringSubmatch(sel); m != nil {
			return c.collectRange(userID, m[1], m[2])
		}
	}
	return c.collectList(ctx, userID, selectors)
}

func (c *Compiler) collectAll(userID string) ([]types.ClipPart, string, error) {
	sess, err := c.sessions.GetSearch(userID)
	if err != nil {
		return nil, "", err
	}
	parts := make([]types.ClipPart, len(sess.Results))
	for i, seg := range sess.Results {
		parts[i] = types.ClipPart{FileRef: seg.FileRef, Start: seg.Start, End: seg.End}
	}
	return parts, fmt.Sprintf("all results for %q", sess.Query), nil
}

func (c *Compiler) collectRange(userID, lo, hi string) ([]types.ClipPart, string, error) {
	a, _ := strconv.Atoi(lo)
	b, _ := strconv.Atoi(hi)
	if a < 1 || b < a {
		return nil, "", types.NewError(types.KindValidation,
			fmt.Sprintf("invalid range %s-%s, expected ascending positions", lo, hi))
	}

	sess, err := c.sessions.GetSearch(userID)
	if err != nil {
		return nil, "", err
	}
	if b > len(sess.Results) {
		return nil, "", types.NewError(types.KindValidation,
			fmt.Sprintf("position %d out of range, session has %d results", b, len(sess.Results)))
	}

	parts := make([]types.ClipPart, 0, b-a+1)
	for i := a; i <= b; i++ {
		seg := sess.Results[i-1]
		parts = append(parts, types.ClipPart{FileRef: seg.FileRef, Start: seg.Start, End: seg.End})
	}
	return parts, fmt.Sprintf("results %d-%d for %q", a, b, sess.Query), nil
}

// collectList resolves an explicit ordered mix of session positions and
// saved clip names, preserving the given order exactly.
func (c *Compiler) collectList(ctx context.Context, userID string, selectors []string) ([]types.ClipPart, string, error) {
	var sess *types.SearchSession
	parts := make([]types.ClipPart, 0, len(selectors))

	for _, sel := range selectors {
		sel = strings.TrimSpace(sel)
		if pos, err := strconv.Atoi(sel); err == nil {
			if sess == nil {
				got, err := c.sessions.GetSearch(userID)
				if err != nil {
					return nil, "", err
				}
				sess = &got
			}
			if pos < 1 || pos > len(sess.Results) {
				return nil, "", types.NewError(types.KindValidation,
					fmt.Sprintf("position %d out of range, session has %d results", pos, len(sess.Results)))
			}
			seg := sess.Results[pos-1]
			parts = append(parts, types.ClipPart{FileRef: seg.FileRef, Start: seg.Start, End: seg.End})
			continue
		}

		saved, err := c.saved.GetByName(ctx, userID, sel)
		if err != nil {
			return nil, "", err
		}
		if len(saved.Parts) == 0 {
			return nil, "", types.NewError(types.KindValidation,
				fmt.Sprintf("saved clip %q has no source parts and cannot be recompiled", sel))
		}
		parts = append(parts, saved.Parts...)
	}

	return parts, "selection " + strings.Join(selectors, ","), nil
}
