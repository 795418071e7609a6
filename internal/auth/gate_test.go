package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dam2452/ranchbot/pkg/types"
)

func setupGate() *Gate {
	return NewGate(map[string]types.Tier{
		"search":     types.TierWhitelisted,
		"compile":    types.TierSubscribed,
		"deleteclip": types.TierModerator,
	})
}

func TestGateAllowsAtTier(t *testing.T) {
	gate := setupGate()

	identity := types.UserIdentity{UserID: "u1", Tier: types.TierWhitelisted}
	assert.NoError(t, gate.Authorize(identity, "search"))
}

func TestGateAllowsAboveTier(t *testing.T) {
	gate := setupGate()

	identity := types.UserIdentity{UserID: "u1", Tier: types.TierAdmin}
	assert.NoError(t, gate.Authorize(identity, "deleteclip"))
}

func TestGateRejectsBelowTier(t *testing.T) {
	gate := setupGate()

	identity := types.UserIdentity{UserID: "u1", Tier: types.TierWhitelisted}
	err := gate.Authorize(identity, "compile")
	require.Error(t, err)
	assert.Equal(t, types.KindPermission, types.KindOf(err))
}

func TestGateUnknownCommand(t *testing.T) {
	gate := setupGate()

	identity := types.UserIdentity{UserID: "u1", Tier: types.TierAdmin}
	err := gate.Authorize(identity, "frobnicate")
	require.Error(t, err)
	assert.Equal(t, types.KindNotFound, types.KindOf(err))
}
