package httpapi

import (
	"context"
	"strings"

	"github.com/dam2452/ranchbot/pkg/types"
)

// IdentityResolver maps a bearer token to a user identity. Token
// issuance and JWT validation live outside the core; this port only
// yields the resulting user and tier.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (types.UserIdentity, error)
}

// StaticResolver resolves identities from a fixed token table, used for
// wiring and tests.
type StaticResolver struct {
	tokens map[string]types.UserIdentity
}

// NewStaticResolver creates a resolver over the given token table.
func NewStaticResolver(tokens map[string]types.UserIdentity) *StaticResolver {
	m := make(map[string]types.UserIdentity, len(tokens))
	for token, identity := range tokens {
		m[token] = identity
	}
	return &StaticResolver{tokens: m}
}

// Resolve looks the token up in the table.
func (r *StaticResolver) Resolve(_ context.Context, token string) (types.UserIdentity, error) {
	identity, ok := r.tokens[token]
	if !ok {
		return types.UserIdentity{}, types.NewError(types.KindAuth, "invalid or expired token")
	}
	return identity, nil
}

// ParseTokenTable parses "token:user:tier" triples separated by commas,
// the format of the RANCHBOT_TOKENS environment variable.
func ParseTokenTable(raw string) (map[string]types.UserIdentity, error) {
	tokens := make(map[string]types.UserIdentity)
	if strings.TrimSpace(raw) == "" {
		return tokens, nil
	}
	for _, entry := range strings.Split(raw, ",") {
		fields := strings.Split(strings.TrimSpace(entry), ":")
		if len(fields) != 3 {
			return nil, types.NewError(types.KindValidation,
				"token table entries must be token:user:tier")
		}
		tier, ok := types.ParseTier(fields[2])
		if !ok {
			return nil, types.NewError(types.KindValidation,
				"unknown tier "+fields[2])
		}
		tokens[fields[0]] = types.UserIdentity{UserID: fields[1], Tier: tier}
	}
	return tokens, nil
}
