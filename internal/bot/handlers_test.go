package bot

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dam2452/ranchbot/internal/search"
	"github.com/dam2452/ranchbot/pkg/types"
)

// fakeSearcher returns canned results.
type fakeSearcher struct {
	results  []types.Segment
	episodes []types.EpisodeRef
	filters  search.Filters
	quote    string
}

func (f *fakeSearcher) Search(_ context.Context, quote string, filters search.Filters, _ int) ([]types.Segment, error) {
	f.quote = quote
	f.filters = filters
	return f.results, nil
}

func (f *fakeSearcher) EpisodesBySeason(_ context.Context, season int) ([]types.EpisodeRef, error) {
	if len(f.episodes) == 0 {
		return nil, types.NewError(types.KindNotFound, fmt.Sprintf("no episodes in season %d", season))
	}
	return f.episodes, nil
}

// fakeResolver records calls and returns a fixed spec.
type fakeResolver struct {
	spec types.ClipSpec
	err  error

	lastPosition int
}

func (f *fakeResolver) ResolvePosition(_ string, position int) (types.ClipSpec, error) {
	f.lastPosition = position
	return f.spec, f.err
}

func (f *fakeResolver) ResolveQuote(_ context.Context, _, _ string, _ search.Filters) (types.ClipSpec, error) {
	return f.spec, f.err
}

func (f *fakeResolver) ResolveManual(_, _, _, _, _ string) (types.ClipSpec, error) {
	return f.spec, f.err
}

func (f *fakeResolver) Adjust(_ string, _, _ float64, _ *int) (types.ClipSpec, error) {
	return f.spec, f.err
}

type fakeCompiler struct {
	spec      types.ClipSpec
	err       error
	selectors []string
}

func (f *fakeCompiler) Compile(_ context.Context, _ string, selectors []string) (types.ClipSpec, error) {
	f.selectors = selectors
	return f.spec, f.err
}

// fakeClips is an in-memory Clips.
type fakeClips struct {
	clips []types.SavedClip
	err   error
}

func (f *fakeClips) Save(_ context.Context, clip *types.SavedClip) error {
	if f.err != nil {
		return f.err
	}
	clip.ID = fmt.Sprintf("id-%d", len(f.clips)+1)
	f.clips = append(f.clips, *clip)
	return nil
}

func (f *fakeClips) List(_ context.Context, _ string) ([]types.SavedClip, error) {
	return f.clips, f.err
}

func (f *fakeClips) Get(_ context.Context, _, positionOrName string) (types.SavedClip, error) {
	for _, c := range f.clips {
		if c.Name == positionOrName {
			return c, nil
		}
	}
	return types.SavedClip{}, types.NewError(types.KindNotFound, fmt.Sprintf("no saved clip %q", positionOrName))
}

func (f *fakeClips) Delete(_ context.Context, _ string, position int) error {
	if position < 1 || position > len(f.clips) {
		return types.NewError(types.KindNotFound, fmt.Sprintf("no saved clip %q", fmt.Sprint(position)))
	}
	f.clips = append(f.clips[:position-1], f.clips[position:]...)
	return nil
}

// fakeBotSessions is the handler-facing session fake.
type fakeBotSessions struct {
	search *types.SearchSession
	clip   *types.ClipSpec
}

func (f *fakeBotSessions) SaveSearch(userID, query string, results []types.Segment) {
	f.search = &types.SearchSession{UserID: userID, Query: query, Results: results}
}

func (f *fakeBotSessions) GetSearch(_ string) (types.SearchSession, error) {
	if f.search == nil {
		return types.SearchSession{}, types.NewError(types.KindNotFound, "no prior search, run a search first")
	}
	return *f.search, nil
}

func (f *fakeBotSessions) GetClip(_ string) (types.ClipSpec, error) {
	if f.clip == nil {
		return types.ClipSpec{}, types.NewError(types.KindNotFound, "no clip selected, select or cut one first")
	}
	return *f.clip, nil
}

// fakeRenderer returns fixed bytes or an error.
type fakeRenderer struct {
	video []byte
	err   error
	calls int
}

func (f *fakeRenderer) Render(_ context.Context, _ []types.ClipPart) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.video, nil
}

type serviceFixture struct {
	service  *Service
	searcher *fakeSearcher
	sessions *fakeBotSessions
	resolver *fakeResolver
	compiler *fakeCompiler
	clips    *fakeClips
	renderer *fakeRenderer
}

func setupService(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		searcher: &fakeSearcher{},
		sessions: &fakeBotSessions{},
		resolver: &fakeResolver{spec: sampleSpec()},
		compiler: &fakeCompiler{spec: sampleSpec()},
		clips:    &fakeClips{},
		renderer: &fakeRenderer{video: []byte("mp4")},
	}
	f.service = NewService("ranczo", f.searcher, f.sessions, f.resolver, f.compiler, f.clips, f.renderer)
	return f
}

func sampleSpec() types.ClipSpec {
	return types.ClipSpec{
		Parts:      []types.ClipPart{{FileRef: "ranczo/S01E02.mp4", Start: 10, End: 15}},
		SourceText: `S01E02 "quote"`,
	}
}

func sampleSegments() []types.Segment {
	return []types.Segment{
		{ID: "a", Episode: types.EpisodeRef{Series: "ranczo", Season: 1, Episode: 2},
			Text: "first hit", Speaker: "Kusy", Start: 10, End: 15, FileRef: "ranczo/S01E02.mp4"},
		{ID: "b", Episode: types.EpisodeRef{Series: "ranczo", Season: 2, Episode: 3},
			Text: "second hit", Start: 30, End: 33, FileRef: "ranczo/S02E03.mp4"},
	}
}

func identity(tier types.Tier) types.UserIdentity {
	return types.UserIdentity{UserID: "u1", Tier: tier}
}

func TestHandleStartListsCommands(t *testing.T) {
	f := setupService(t)

	resp, err := f.service.handleStart(context.Background(), identity(types.TierAnyUser), nil)
	require.NoError(t, err)
	assert.Equal(t, ResponseMarkdown, resp.Type)
	assert.Contains(t, resp.Content, "search")
	assert.Contains(t, resp.Content, "compile")
	assert.NotContains(t, resp.Content, "`start")
}

func TestHandleSearchSavesSession(t *testing.T) {
	f := setupService(t)
	f.searcher.results = sampleSegments()

	resp, err := f.service.handleSearch(context.Background(), identity(types.TierWhitelisted), []string{"first", "hit"})
	require.NoError(t, err)
	assert.Equal(t, ResponseJSON, resp.Type)

	payload, ok := resp.Payload.(searchPayload)
	require.True(t, ok)
	assert.Equal(t, "first hit", payload.Query)
	assert.Equal(t, 2, payload.Total)
	assert.Equal(t, 1, payload.Results[0].Position)
	assert.Equal(t, "S01E02", payload.Results[0].Episode)

	require.NotNil(t, f.sessions.search)
	assert.Equal(t, "first hit", f.sessions.search.Query)
}

func TestHandleSearchEpisodeFilter(t *testing.T) {
	f := setupService(t)
	f.searcher.results = sampleSegments()

	_, err := f.service.handleSearch(context.Background(), identity(types.TierWhitelisted), []string{"S02E03", "second", "hit"})
	require.NoError(t, err)
	require.NotNil(t, f.searcher.filters.Season)
	assert.Equal(t, 2, *f.searcher.filters.Season)
	require.NotNil(t, f.searcher.filters.Episode)
	assert.Equal(t, 3, *f.searcher.filters.Episode)
	assert.Equal(t, "second hit", f.searcher.quote)
}

func TestHandleSearchNoHits(t *testing.T) {
	f := setupService(t)

	_, err := f.service.handleSearch(context.Background(), identity(types.TierWhitelisted), []string{"nothing"})
	require.Error(t, err)
	assert.Equal(t, types.KindNotFound, types.KindOf(err))

	// No hits means no session either.
	assert.Nil(t, f.sessions.search)
}

func TestHandleListReplaysSession(t *testing.T) {
	f := setupService(t)
	f.sessions.SaveSearch("u1", "kozy", sampleSegments())

	resp, err := f.service.handleList(context.Background(), identity(types.TierWhitelisted), nil)
	require.NoError(t, err)

	payload, ok := resp.Payload.(searchPayload)
	require.True(t, ok)
	assert.Equal(t, "kozy", payload.Query)
	assert.Equal(t, 2, payload.Total)
}

func TestHandleListNoSession(t *testing.T) {
	f := setupService(t)

	_, err := f.service.handleList(context.Background(), identity(types.TierWhitelisted), nil)
	require.Error(t, err)
	assert.Equal(t, types.KindNotFound, types.KindOf(err))
}

func TestHandleEpisodes(t *testing.T) {
	f := setupService(t)
	f.searcher.episodes = []types.EpisodeRef{
		{Series: "ranczo", Season: 2, Episode: 1},
		{Series: "ranczo", Season: 2, Episode: 2},
	}

	resp, err := f.service.handleEpisodes(context.Background(), identity(types.TierWhitelisted), []string{"2"})
	require.NoError(t, err)

	payload, ok := resp.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, []string{"S02E01", "S02E02"}, payload["episodes"])
}

func TestHandleEpisodesInvalidSeason(t *testing.T) {
	f := setupService(t)

	_, err := f.service.handleEpisodes(context.Background(), identity(types.TierWhitelisted), []string{"zero"})
	require.Error(t, err)
	assert.Equal(t, types.KindValidation, types.KindOf(err))
}

func TestHandleSelectRendersVideo(t *testing.T) {
	f := setupService(t)

	resp, err := f.service.handleSelect(context.Background(), identity(types.TierWhitelisted), []string{"2"})
	require.NoError(t, err)
	assert.Equal(t, ResponseVideo, resp.Type)
	assert.Equal(t, []byte("mp4"), resp.Video)
	assert.Equal(t, 2, f.resolver.lastPosition)
}

func TestHandleSelectInvalidPosition(t *testing.T) {
	f := setupService(t)

	_, err := f.service.handleSelect(context.Background(), identity(types.TierWhitelisted), []string{"two"})
	require.Error(t, err)
	assert.Equal(t, types.KindValidation, types.KindOf(err))
}

func TestHandleSelectRenderFailure(t *testing.T) {
	f := setupService(t)
	f.renderer.err = types.NewError(types.KindRenderFailure, "renderer unavailable")

	_, err := f.service.handleSelect(context.Background(), identity(types.TierWhitelisted), []string{"1"})
	require.Error(t, err)
	assert.Equal(t, types.KindRenderFailure, types.KindOf(err))
}

func TestHandleAdjustPositionForm(t *testing.T) {
	f := setupService(t)

	_, err := f.service.handleAdjust(context.Background(), identity(types.TierWhitelisted), []string{"2", "1.5", "3"})
	require.NoError(t, err)

	_, err = f.service.handleAdjust(context.Background(), identity(types.TierWhitelisted), []string{"1.5", "3"})
	require.NoError(t, err)

	_, err = f.service.handleAdjust(context.Background(), identity(types.TierWhitelisted), []string{"x", "y"})
	require.Error(t, err)
	assert.Equal(t, types.KindValidation, types.KindOf(err))
}

func TestHandleCompilePassesSelectors(t *testing.T) {
	f := setupService(t)

	_, err := f.service.handleCompile(context.Background(), identity(types.TierWhitelisted), []string{"3", "1", "2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "1", "2"}, f.compiler.selectors)
}

func TestHandleSaveRendersAndPersists(t *testing.T) {
	f := setupService(t)
	spec := sampleSpec()
	f.sessions.clip = &spec

	resp, err := f.service.handleSave(context.Background(), identity(types.TierSubscribed), []string{"kozy"})
	require.NoError(t, err)
	assert.Equal(t, ResponseText, resp.Type)
	assert.Contains(t, resp.Content, `"kozy"`)

	require.Len(t, f.clips.clips, 1)
	saved := f.clips.clips[0]
	assert.Equal(t, "kozy", saved.Name)
	assert.Equal(t, []byte("mp4"), saved.Video)
	assert.Equal(t, spec.Parts, saved.Parts)
	assert.InDelta(t, 5.0, saved.Duration, 1e-9)
}

func TestHandleSaveNoCurrentClip(t *testing.T) {
	f := setupService(t)

	_, err := f.service.handleSave(context.Background(), identity(types.TierSubscribed), []string{"kozy"})
	require.Error(t, err)
	assert.Equal(t, types.KindNotFound, types.KindOf(err))
	assert.Zero(t, f.renderer.calls)
}

func TestHandleSaveRenderFailureSavesNothing(t *testing.T) {
	f := setupService(t)
	spec := sampleSpec()
	f.sessions.clip = &spec
	f.renderer.err = errors.New("timeout")

	_, err := f.service.handleSave(context.Background(), identity(types.TierSubscribed), []string{"kozy"})
	require.Error(t, err)
	assert.Empty(t, f.clips.clips)
}

func TestHandleMyClips(t *testing.T) {
	f := setupService(t)
	f.clips.clips = []types.SavedClip{
		{Name: "first", Duration: 5},
		{Name: "second", Duration: 8},
	}

	resp, err := f.service.handleMyClips(context.Background(), identity(types.TierSubscribed), nil)
	require.NoError(t, err)
	assert.Equal(t, ResponseJSON, resp.Type)
}

func TestHandleSendClip(t *testing.T) {
	f := setupService(t)
	f.clips.clips = []types.SavedClip{{Name: "kozy", Video: []byte("bytes")}}

	resp, err := f.service.handleSendClip(context.Background(), identity(types.TierSubscribed), []string{"kozy"})
	require.NoError(t, err)
	assert.Equal(t, ResponseVideo, resp.Type)
	assert.Equal(t, []byte("bytes"), resp.Video)
	assert.Equal(t, "kozy.mp4", resp.Filename)
}

func TestHandleDeleteClip(t *testing.T) {
	f := setupService(t)
	f.clips.clips = []types.SavedClip{{Name: "kozy"}}

	resp, err := f.service.handleDeleteClip(context.Background(), identity(types.TierSubscribed), []string{"1"})
	require.NoError(t, err)
	assert.Contains(t, resp.Content, "deleted")
	assert.Empty(t, f.clips.clips)

	_, err = f.service.handleDeleteClip(context.Background(), identity(types.TierSubscribed), []string{"9"})
	require.Error(t, err)
	assert.Equal(t, types.KindNotFound, types.KindOf(err))
}

func TestSplitFilters(t *testing.T) {
	filters, quote := splitFilters([]string{"S03", "kozy", "w", "oborze"})
	require.NotNil(t, filters.Season)
	assert.Equal(t, 3, *filters.Season)
	assert.Nil(t, filters.Episode)
	assert.Equal(t, "kozy w oborze", quote)

	// A lone filter-shaped token is the quote itself.
	filters, quote = splitFilters([]string{"S03"})
	assert.Nil(t, filters.Season)
	assert.Equal(t, "S03", quote)

	filters, quote = splitFilters([]string{"kozy", "w", "oborze"})
	assert.Nil(t, filters.Season)
	assert.Equal(t, "kozy w oborze", quote)
}
