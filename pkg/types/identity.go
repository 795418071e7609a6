package types

// Tier is a user's capability level. Tiers form an ordered set: a
// command's minimum tier authorizes that tier and every higher one.
type Tier int

const (
	TierAnyUser Tier = iota
	TierWhitelisted
	TierSubscribed
	TierModerator
	TierAdmin
)

var tierNames = map[Tier]string{
	TierAnyUser:     "any",
	TierWhitelisted: "whitelisted",
	TierSubscribed:  "subscribed",
	TierModerator:   "moderator",
	TierAdmin:       "admin",
}

func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return "unknown"
}

// AtLeast reports whether t meets the given minimum tier.
func (t Tier) AtLeast(min Tier) bool {
	return t >= min
}

// Exempt reports whether the tier skips command rate limiting.
func (t Tier) Exempt() bool {
	return t >= TierModerator
}

// ParseTier maps a tier name to its value.
func ParseTier(name string) (Tier, bool) {
	for t, n := range tierNames {
		if n == name {
			return t, true
		}
	}
	return TierAnyUser, false
}

// UserIdentity is the resolved caller of a command. Token validation is
// external; the core consumes only the resulting user and tier.
type UserIdentity struct {
	UserID string `json:"user_id"`
	Tier   Tier   `json:"tier"`
}
