package bot

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dam2452/ranchbot/internal/auth"
	"github.com/dam2452/ranchbot/pkg/types"
)

func setupDispatcher(t *testing.T) (*Dispatcher, *serviceFixture) {
	t.Helper()
	f := setupService(t)
	registry := f.service.Registry()
	gate := auth.NewGate(registry.MinTiers())
	limiter := auth.NewLimiter(5, 30*time.Second)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDispatcher(registry, gate, limiter, logger), f
}

func TestDispatchRunsHandler(t *testing.T) {
	d, f := setupDispatcher(t)
	f.searcher.results = sampleSegments()

	resp, err := d.Dispatch(context.Background(), identity(types.TierWhitelisted), "search", []string{"kozy"})
	require.NoError(t, err)
	assert.Equal(t, ResponseJSON, resp.Type)
}

func TestDispatchUnknownCommand(t *testing.T) {
	d, _ := setupDispatcher(t)

	_, err := d.Dispatch(context.Background(), identity(types.TierAdmin), "frobnicate", nil)
	require.Error(t, err)
	assert.Equal(t, types.KindNotFound, types.KindOf(err))
}

func TestDispatchPermissionDenied(t *testing.T) {
	d, f := setupDispatcher(t)

	_, err := d.Dispatch(context.Background(), identity(types.TierAnyUser), "search", []string{"kozy"})
	require.Error(t, err)
	assert.Equal(t, types.KindPermission, types.KindOf(err))

	_, err = d.Dispatch(context.Background(), identity(types.TierWhitelisted), "save", []string{"kozy"})
	require.Error(t, err)
	assert.Equal(t, types.KindPermission, types.KindOf(err))

	// Denied commands never reach the renderer or store.
	assert.Zero(t, f.renderer.calls)
	assert.Empty(t, f.clips.clips)
}

func TestDispatchStartOpenToAnyone(t *testing.T) {
	d, _ := setupDispatcher(t)

	resp, err := d.Dispatch(context.Background(), identity(types.TierAnyUser), "start", nil)
	require.NoError(t, err)
	assert.Equal(t, ResponseMarkdown, resp.Type)
}

func TestDispatchRateLimit(t *testing.T) {
	d, f := setupDispatcher(t)
	f.searcher.results = sampleSegments()
	user := identity(types.TierWhitelisted)

	for i := 0; i < 5; i++ {
		_, err := d.Dispatch(context.Background(), user, "search", []string{"kozy"})
		require.NoError(t, err, "command %d should pass", i+1)
	}

	_, err := d.Dispatch(context.Background(), user, "search", []string{"kozy"})
	require.Error(t, err)
	assert.Equal(t, types.KindRateLimited, types.KindOf(err))
}

func TestDispatchModeratorNotRateLimited(t *testing.T) {
	d, f := setupDispatcher(t)
	f.searcher.results = sampleSegments()
	moderator := types.UserIdentity{UserID: "mod", Tier: types.TierModerator}

	for i := 0; i < 20; i++ {
		_, err := d.Dispatch(context.Background(), moderator, "search", []string{"kozy"})
		require.NoError(t, err)
	}
}

func TestDispatchArgumentBounds(t *testing.T) {
	d, _ := setupDispatcher(t)
	user := identity(types.TierWhitelisted)

	_, err := d.Dispatch(context.Background(), user, "search", nil)
	require.Error(t, err)
	assert.Equal(t, types.KindValidation, types.KindOf(err))
	assert.Contains(t, err.Error(), "usage: search")

	_, err = d.Dispatch(context.Background(), user, "select", []string{"1", "2"})
	require.Error(t, err)
	assert.Equal(t, types.KindValidation, types.KindOf(err))
}

// Search, list again, then cut a clip at a position: the whole flow a
// user walks through.
func TestDispatchSearchListSelectFlow(t *testing.T) {
	d, f := setupDispatcher(t)
	f.searcher.results = sampleSegments()
	user := identity(types.TierWhitelisted)

	_, err := d.Dispatch(context.Background(), user, "search", []string{"hit"})
	require.NoError(t, err)

	listResp, err := d.Dispatch(context.Background(), user, "list", nil)
	require.NoError(t, err)
	payload, ok := listResp.Payload.(searchPayload)
	require.True(t, ok)
	assert.Equal(t, 2, payload.Total)

	selectResp, err := d.Dispatch(context.Background(), user, "select", []string{"2"})
	require.NoError(t, err)
	assert.Equal(t, ResponseVideo, selectResp.Type)
	assert.Equal(t, 2, f.resolver.lastPosition)
}

func TestRegistryCommandsSorted(t *testing.T) {
	_, f := setupDispatcher(t)

	commands := f.service.Registry().Commands()
	require.NotEmpty(t, commands)
	for i := 1; i < len(commands); i++ {
		assert.Less(t, commands[i-1].Name, commands[i].Name)
	}
}
