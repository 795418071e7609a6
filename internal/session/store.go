package session

import (
	"context"
	"sync"
	"time"

	"github.com/dam2452/ranchbot/pkg/types"
)

// entry wraps a stored value with its expiration time.
type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// Store holds per-user search sessions and current clips. The two slots
// are independent: saving a clip never touches the user's search and
// vice versa. All access to a given user's slot is linearized by the
// store mutex; cross-user state is fully independent.
type Store struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	searches map[string]entry[types.SearchSession]
	clips    map[string]entry[types.ClipSpec]
}

// NewStore creates a session store with the given TTL.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:      ttl,
		now:      time.Now,
		searches: make(map[string]entry[types.SearchSession]),
		clips:    make(map[string]entry[types.ClipSpec]),
	}
}

// SaveSearch replaces the user's search session wholesale.
func (s *Store) SaveSearch(userID, query string, results []types.Segment) {
	now := s.now()
	sess := types.SearchSession{
		UserID:    userID,
		Query:     query,
		Results:   results,
		CreatedAt: now,
	}

	s.mu.Lock()
	s.searches[userID] = entry[types.SearchSession]{value: sess, expiresAt: now.Add(s.ttl)}
	s.mu.Unlock()
}

// GetSearch returns the user's live search session. Expired or absent
// sessions surface as not found; expired entries are dropped on read.
func (s *Store) GetSearch(userID string) (types.SearchSession, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.searches[userID]
	if !ok {
		return types.SearchSession{}, types.NewError(types.KindNotFound, "no prior search, run a search first")
	}
	if now.After(e.expiresAt) {
		delete(s.searches, userID)
		return types.SearchSession{}, types.NewError(types.KindNotFound, "search session expired, run a search first")
	}
	return e.value, nil
}

// SaveClip replaces the user's current clip wholesale.
func (s *Store) SaveClip(userID string, spec types.ClipSpec) {
	now := s.now()

	s.mu.Lock()
	s.clips[userID] = entry[types.ClipSpec]{value: spec, expiresAt: now.Add(s.ttl)}
	s.mu.Unlock()
}

// GetClip returns the user's live current clip, with the same TTL
// semantics as GetSearch.
func (s *Store) GetClip(userID string) (types.ClipSpec, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.clips[userID]
	if !ok {
		return types.ClipSpec{}, types.NewError(types.KindNotFound, "no clip selected, select or cut one first")
	}
	if now.After(e.expiresAt) {
		delete(s.clips, userID)
		return types.ClipSpec{}, types.NewError(types.KindNotFound, "clip selection expired, select or cut one first")
	}
	return e.value, nil
}

// Sweep drops all expired entries. Lazy expiry on read keeps the store
// correct without it; sweeping only reclaims space.
func (s *Store) Sweep() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range s.searches {
		if now.After(e.expiresAt) {
			delete(s.searches, id)
		}
	}
	for id, e := range s.clips {
		if now.After(e.expiresAt) {
			delete(s.clips, id)
		}
	}
}

// RunSweeper sweeps periodically until the context is canceled.
func (s *Store) RunSweeper(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
