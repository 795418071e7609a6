package bot

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dam2452/ranchbot/internal/clip"
	"github.com/dam2452/ranchbot/internal/render"
	"github.com/dam2452/ranchbot/internal/search"
	"github.com/dam2452/ranchbot/pkg/types"
)

// Searcher is the slice of the query layer the handlers need.
type Searcher interface {
	Search(ctx context.Context, quote string, filters search.Filters, limit int) ([]types.Segment, error)
	EpisodesBySeason(ctx context.Context, season int) ([]types.EpisodeRef, error)
}

// Resolver turns selectors into committed clip specs.
type Resolver interface {
	ResolvePosition(userID string, position int) (types.ClipSpec, error)
	ResolveQuote(ctx context.Context, userID, quote string, filters search.Filters) (types.ClipSpec, error)
	ResolveManual(userID, series, episodeCode, startTC, endTC string) (types.ClipSpec, error)
	Adjust(userID string, before, after float64, position *int) (types.ClipSpec, error)
}

// Compiler merges selections into composite clips.
type Compiler interface {
	Compile(ctx context.Context, userID string, selectors []string) (types.ClipSpec, error)
}

// Clips is the durable saved clip store.
type Clips interface {
	Save(ctx context.Context, clip *types.SavedClip) error
	List(ctx context.Context, ownerID string) ([]types.SavedClip, error)
	Get(ctx context.Context, ownerID, positionOrName string) (types.SavedClip, error)
	Delete(ctx context.Context, ownerID string, position int) error
}

// Sessions is the ephemeral per-user state the handlers read.
type Sessions interface {
	SaveSearch(userID, query string, results []types.Segment)
	GetSearch(userID string) (types.SearchSession, error)
	GetClip(userID string) (types.ClipSpec, error)
}

// Service implements every user command on top of the core components.
type Service struct {
	series   string
	searcher Searcher
	sessions Sessions
	resolver Resolver
	compiler Compiler
	clips    Clips
	renderer render.Renderer
}

// NewService wires the command handlers.
func NewService(series string, searcher Searcher, sessions Sessions, resolver Resolver,
	compiler Compiler, clips Clips, renderer render.Renderer) *Service {
	return &Service{
		series:   series,
		searcher: searcher,
		sessions: sessions,
		resolver: resolver,
		compiler: compiler,
		clips:    clips,
		renderer: renderer,
	}
}

// Registry builds the full command registry. This is the command
// surface shared by every transport.
func (s *Service) Registry() *Registry {
	commands := []Command{
		{Name: "start", MinTier: types.TierAnyUser, Usage: "", Summary: "show available commands",
			MinArgs: 0, MaxArgs: 0, Handler: s.handleStart},
		{Name: "clip", MinTier: types.TierWhitelisted, Usage: "<quote...>", Summary: "find the best match and send it as a clip",
			MinArgs: 1, MaxArgs: -1, Handler: s.handleClip},
		{Name: "search", MinTier: types.TierWhitelisted, Usage: "[SxxEyy|Sxx] <quote...>", Summary: "search the series for a quote",
			MinArgs: 1, MaxArgs: -1, Handler: s.handleSearch},
		{Name: "list", MinTier: types.TierWhitelisted, Usage: "", Summary: "show your last search results again",
			MinArgs: 0, MaxArgs: 0, Handler: s.handleList},
		{Name: "episodes", MinTier: types.TierWhitelisted, Usage: "<season>", Summary: "list a season's episodes",
			MinArgs: 1, MaxArgs: 1, Handler: s.handleEpisodes},
		{Name: "select", MinTier: types.TierWhitelisted, Usage: "<position>", Summary: "cut the clip at a result position",
			MinArgs: 1, MaxArgs: 1, Handler: s.handleSelect},
		{Name: "cut", MinTier: types.TierWhitelisted, Usage: "<SxxEyy> <start> <end>", Summary: "cut a clip from explicit coordinates",
			MinArgs: 3, MaxArgs: 3, Handler: s.handleCut},
		{Name: "adjust", MinTier: types.TierWhitelisted, Usage: "[position] <before> <after>", Summary: "extend or trim the current clip",
			MinArgs: 2, MaxArgs: 3, Handler: s.handleAdjust},
		{Name: "compile", MinTier: types.TierWhitelisted, Usage: "all | a-b | <p1> <p2> ...", Summary: "merge results into one clip",
			MinArgs: 1, MaxArgs: -1, Handler: s.handleCompile},
		{Name: "save", MinTier: types.TierSubscribed, Usage: "<name>", Summary: "save the current clip under a name",
			MinArgs: 1, MaxArgs: 1, Handler: s.handleSave},
		{Name: "myclips", MinTier: types.TierSubscribed, Usage: "", Summary: "list your saved clips",
			MinArgs: 0, MaxArgs: 0, Handler: s.handleMyClips},
		{Name: "sendclip", MinTier: types.TierSubscribed, Usage: "<position|name>", Summary: "send a saved clip",
			MinArgs: 1, MaxArgs: 1, Handler: s.handleSendClip},
		{Name: "deleteclip", MinTier: types.TierSubscribed, Usage: "<position>", Summary: "delete a saved clip",
			MinArgs: 1, MaxArgs: 1, Handler: s.handleDeleteClip},
	}
	return NewRegistry(commands)
}

// searchItem is one row of a search listing.
type searchItem struct {
	Position int    `json:"position"`
	Episode  string `json:"episode"`
	Time     string `json:"time"`
	Speaker  string `json:"speaker,omitempty"`
	Text     string `json:"text"`
}

type searchPayload struct {
	Query   string       `json:"query"`
	Total   int          `json:"total"`
	Results []searchItem `json:"results"`
}

func (s *Service) handleStart(_ context.Context, _ types.UserIdentity, _ []string) (Response, error) {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("**RanchBot** — clips from %s\n\n", s.series))
	for _, cmd := range s.Registry().Commands() {
		if cmd.Name == "start" {
			continue
		}
		b.WriteString(fmt.Sprintf("`%s %s` — %s\n", cmd.Name, cmd.Usage, cmd.Summary))
	}
	return markdownResponse(b.String()), nil
}

func (s *Service) handleSearch(ctx context.Context, identity types.UserIdentity, args []string) (Response, error) {
	filters, quote := splitFilters(args)
	results, err := s.searcher.Search(ctx, quote, filters, 0)
	if err != nil {
		return Response{}, err
	}
	if len(results) == 0 {
		return Response{}, types.NewError(types.KindNotFound, fmt.Sprintf("nothing found for %q", quote))
	}

	// Empty result sets never create a session; only a hit list is
	// worth addressing by position later.
	s.sessions.SaveSearch(identity.UserID, quote, results)
	return jsonResponse(buildSearchPayload(quote, results)), nil
}

func (s *Service) handleList(_ context.Context, identity types.UserIdentity, _ []string) (Response, error) {
	sess, err := s.sessions.GetSearch(identity.UserID)
	if err != nil {
		return Response{}, err
	}
	return jsonResponse(buildSearchPayload(sess.Query, sess.Results)), nil
}

func (s *Service) handleEpisodes(ctx context.Context, _ types.UserIdentity, args []string) (Response, error) {
	season, err := strconv.Atoi(args[0])
	if err != nil || season < 1 {
		return Response{}, types.NewError(types.KindValidation,
			fmt.Sprintf("invalid season %q", args[0]))
	}
	episodes, err := s.searcher.EpisodesBySeason(ctx, season)
	if err != nil {
		return Response{}, err
	}

	codes := make([]string, len(episodes))
	for i, ep := range episodes {
		codes[i] = ep.Code()
	}
	return jsonResponse(map[string]interface{}{
		"season":   season,
		"episodes": codes,
	}), nil
}

func (s *Service) handleClip(ctx context.Context, identity types.UserIdentity, args []string) (Response, error) {
	filters, quote := splitFilters(args)
	spec, err := s.resolver.ResolveQuote(ctx, identity.UserID, quote, filters)
	if err != nil {
		return Response{}, err
	}
	return s.renderClip(ctx, spec)
}

func (s *Service) handleSelect(ctx context.Context, identity types.UserIdentity, args []string) (Response, error) {
	position, err := strconv.Atoi(args[0])
	if err != nil {
		return Response{}, types.NewError(types.KindValidation,
			fmt.Sprintf("invalid position %q", args[0]))
	}
	spec, err := s.resolver.ResolvePosition(identity.UserID, position)
	if err != nil {
		return Response{}, err
	}
	return s.renderClip(ctx, spec)
}

func (s *Service) handleCut(ctx context.Context, identity types.UserIdentity, args []string) (Response, error) {
	spec, err := s.resolver.ResolveManual(identity.UserID, s.series, args[0], args[1], args[2])
	if err != nil {
		return Response{}, err
	}
	return s.renderClip(ctx, spec)
}

func (s *Service) handleAdjust(ctx context.Context, identity types.UserIdentity, args []string) (Response, error) {
	var position *int
	if len(args) == 3 {
		pos, err := strconv.Atoi(args[0])
		if err != nil {
			return Response{}, types.NewError(types.KindValidation,
				fmt.Sprintf("invalid position %q", args[0]))
		}
		position = &pos
		args = args[1:]
	}

	before, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return Response{}, types.NewError(types.KindValidation,
			fmt.Sprintf("invalid delta %q", args[0]))
	}
	after, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return Response{}, types.NewError(types.KindValidation,
			fmt.Sprintf("invalid delta %q", args[1]))
	}

	spec, err := s.resolver.Adjust(identity.UserID, before, after, position)
	if err != nil {
		return Response{}, err
	}
	return s.renderClip(ctx, spec)
}

func (s *Service) handleCompile(ctx context.Context, identity types.UserIdentity, args []string) (Response, error) {
	spec, err := s.compiler.Compile(ctx, identity.UserID, args)
	if err != nil {
		return Response{}, err
	}
	return s.renderClip(ctx, spec)
}

func (s *Service) handleSave(ctx context.Context, identity types.UserIdentity, args []string) (Response, error) {
	spec, err := s.sessions.GetClip(identity.UserID)
	if err != nil {
		return Response{}, err
	}

	video, err := s.renderer.Render(ctx, spec.Parts)
	if err != nil {
		return Response{}, err
	}

	saved := &types.SavedClip{
		OwnerID:    identity.UserID,
		Name:       args[0],
		Video:      video,
		Parts:      spec.Parts,
		Duration:   spec.Duration(),
		SourceText: spec.SourceText,
	}
	if err := s.clips.Save(ctx, saved); err != nil {
		return Response{}, err
	}
	return textResponse(fmt.Sprintf("saved clip %q (%.1fs)", saved.Name, saved.Duration)), nil
}

func (s *Service) handleMyClips(ctx context.Context, identity types.UserIdentity, _ []string) (Response, error) {
	clips, err := s.clips.List(ctx, identity.UserID)
	if err != nil {
		return Response{}, err
	}

	type item struct {
		Position int     `json:"position"`
		Name     string  `json:"name"`
		Duration float64 `json:"duration_seconds"`
		Source   string  `json:"source,omitempty"`
	}
	items := make([]item, len(clips))
	for i, c := range clips {
		items[i] = item{Position: i + 1, Name: c.Name, Duration: c.Duration, Source: c.SourceText}
	}
	return jsonResponse(map[string]interface{}{"clips": items}), nil
}

func (s *Service) handleSendClip(ctx context.Context, identity types.UserIdentity, args []string) (Response, error) {
	saved, err := s.clips.Get(ctx, identity.UserID, args[0])
	if err != nil {
		return Response{}, err
	}
	return videoResponse(saved.Video, saved.Name+".mp4"), nil
}

func (s *Service) handleDeleteClip(ctx context.Context, identity types.UserIdentity, args []string) (Response, error) {
	position, err := strconv.Atoi(args[0])
	if err != nil {
		return Response{}, types.NewError(types.KindValidation,
			fmt.Sprintf("invalid position %q", args[0]))
	}
	if err := s.clips.Delete(ctx, identity.UserID, position); err != nil {
		return Response{}, err
	}
	return textResponse(fmt.Sprintf("deleted clip %d", position)), nil
}

// renderClip renders an already-committed spec for display. The spec
// stays the user's current clip even when the render fails.
func (s *Service) renderClip(ctx context.Context, spec types.ClipSpec) (Response, error) {
	video, err := s.renderer.Render(ctx, spec.Parts)
	if err != nil {
		return Response{}, err
	}
	return videoResponse(video, "clip.mp4"), nil
}

var filterRe = regexp.MustCompile(`(?i)^S(\d{1,2})(?:E(\d{1,3}))?$`)

// splitFilters peels an optional leading SxxEyy / Sxx token off the
// quote arguments.
func splitFilters(args []string) (search.Filters, string) {
	var filters search.Filters
	if len(args) > 1 {
		if m := filterRe.FindStringSubmatch(args[0]); m != nil {
			season, _ := strconv.Atoi(m[1])
			filters.Season = &season
			if m[2] != "" {
				episode, _ := strconv.Atoi(m[2])
				filters.Episode = &episode
			}
			args = args[1:]
		}
	}
	return filters, strings.Join(args, " ")
}

func buildSearchPayload(query string, results []types.Segment) searchPayload {
	items := make([]searchItem, len(results))
	for i, seg := range results {
		items[i] = searchItem{
			Position: i + 1,
			Episode:  seg.Episode.Code(),
			Time:     fmt.Sprintf("%s-%s", clip.FormatTimecode(seg.Start), clip.FormatTimecode(seg.End)),
			Speaker:  seg.Speaker,
			Text:     seg.Text,
		}
	}
	return searchPayload{Query: query, Total: len(results), Results: items}
}
