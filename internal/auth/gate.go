package auth

import (
	"fmt"

	"github.com/dam2452/ranchbot/pkg/types"
)

// Gate authorizes commands against a flat name -> minimum tier table.
// The table is pure data, built once at startup from the command
// registry.
type Gate struct {
	minTiers map[string]types.Tier
}

// NewGate creates a Gate from the command -> minimum tier mapping.
func NewGate(minTiers map[string]types.Tier) *Gate {
	tiers := make(map[string]types.Tier, len(minTiers))
	for name, tier := range minTiers {
		tiers[name] = tier
	}
	return &Gate{minTiers: tiers}
}

// Authorize rejects the command if the identity's tier is below the
// command's minimum. Unknown commands surface as not found so the two
// transports report them identically.
func (g *Gate) Authorize(identity types.UserIdentity, command string) error {
	min, ok := g.minTiers[command]
	if !ok {
		return types.NewError(types.KindNotFound, fmt.Sprintf("unknown command %q", command))
	}
	if !identity.Tier.AtLeast(min) {
		return types.NewError(types.KindPermission,
			fmt.Sprintf("command %q requires %s tier", command, min))
	}
	return nil
}
