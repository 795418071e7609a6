package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dam2452/ranchbot/pkg/types"
)

// setupLimiter returns a limiter whose clock the test controls.
func setupLimiter(limit int, interval time.Duration) (*Limiter, *time.Time) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiter(limit, interval)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLimiterAllowsUpToLimit(t *testing.T) {
	l, _ := setupLimiter(5, 30*time.Second)
	identity := types.UserIdentity{UserID: "u1", Tier: types.TierSubscribed}

	for i := 0; i < 5; i++ {
		require.NoError(t, l.Allow(identity), "request %d should pass", i+1)
	}

	err := l.Allow(identity)
	require.Error(t, err)
	assert.Equal(t, types.KindRateLimited, types.KindOf(err))
}

func TestLimiterWindowReset(t *testing.T) {
	l, now := setupLimiter(5, 30*time.Second)
	identity := types.UserIdentity{UserID: "u1", Tier: types.TierSubscribed}

	for i := 0; i < 5; i++ {
		require.NoError(t, l.Allow(identity))
	}
	require.Error(t, l.Allow(identity))

	*now = now.Add(30 * time.Second)
	assert.NoError(t, l.Allow(identity))
}

func TestLimiterExemptTiers(t *testing.T) {
	l, _ := setupLimiter(1, time.Minute)

	moderator := types.UserIdentity{UserID: "mod", Tier: types.TierModerator}
	admin := types.UserIdentity{UserID: "adm", Tier: types.TierAdmin}

	for i := 0; i < 50; i++ {
		require.NoError(t, l.Allow(moderator))
		require.NoError(t, l.Allow(admin))
	}
}

func TestLimiterIndependentIdentities(t *testing.T) {
	l, _ := setupLimiter(2, time.Minute)
	alice := types.UserIdentity{UserID: "alice", Tier: types.TierSubscribed}
	bob := types.UserIdentity{UserID: "bob", Tier: types.TierSubscribed}

	require.NoError(t, l.Allow(alice))
	require.NoError(t, l.Allow(alice))
	require.Error(t, l.Allow(alice))

	assert.NoError(t, l.Allow(bob))
}

func TestLimiterAllowIDIgnoresExemption(t *testing.T) {
	l, _ := setupLimiter(1, time.Minute)

	require.NoError(t, l.AllowID("token-abc"))
	err := l.AllowID("token-abc")
	require.Error(t, err)
	assert.Equal(t, types.KindRateLimited, types.KindOf(err))
}

func TestLimiterSweep(t *testing.T) {
	l, now := setupLimiter(5, 30*time.Second)

	require.NoError(t, l.AllowID("a"))
	require.NoError(t, l.AllowID("b"))
	assert.Len(t, l.windows, 2)

	*now = now.Add(time.Minute)
	l.Sweep()
	assert.Empty(t, l.windows)
}
