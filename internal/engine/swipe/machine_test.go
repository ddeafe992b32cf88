// internal/engine/swipe/machine_test.go
package swipe

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venture-match-engine/internal/common/logger"
	"venture-match-engine/internal/models"
)

// memoryStore is a mutex-guarded Store used to exercise the machine's
// transition semantics, including the compare-and-set race.
type memoryStore struct {
	mu      sync.Mutex
	matches map[string]*models.Match
	swipes  map[string]models.Swipe
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		matches: make(map[string]*models.Match),
		swipes:  make(map[string]models.Swipe),
	}
}

func pairID(a, b string) string {
	ua, ub := models.PairKey(a, b)
	return ua + "|" + ub
}

func (s *memoryStore) EnsureMatch(ctx context.Context, userA, userB string) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairID(userA, userB)
	if m, ok := s.matches[key]; ok {
		copied := *m
		return &copied, nil
	}
	a, b := models.PairKey(userA, userB)
	m := &models.Match{
		ID:             uuid.New().String(),
		UserA:          a,
		UserB:          b,
		Status:         models.MatchPending,
		CreatedAt:      time.Now(),
		LastActivityAt: time.Now(),
	}
	s.matches[key] = m
	copied := *m
	return &copied, nil
}

func (s *memoryStore) RecordSwipe(ctx context.Context, sw models.Swipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sw.CreatedAt = time.Now()
	s.swipes[sw.ActorID+"|"+sw.TargetID] = sw
	return nil
}

func (s *memoryStore) LatestSwipe(ctx context.Context, actorID, targetID string) (*models.Swipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sw, ok := s.swipes[actorID+"|"+targetID]; ok {
		return &sw, nil
	}
	return nil, nil
}

func (s *memoryStore) TransitionStatus(ctx context.Context, matchID string, to models.MatchStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.matches {
		if m.ID == matchID {
			if m.Status != models.MatchPending {
				return false, nil
			}
			m.Status = to
			m.LastActivityAt = time.Now()
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryStore) AcceptedForUser(ctx context.Context, userID string) ([]models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Match
	for _, m := range s.matches {
		if m.Status == models.MatchAccepted && (m.UserA == userID || m.UserB == userID) {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *memoryStore) PartnerIDs(ctx context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, m := range s.matches {
		if m.UserA == userID {
			out = append(out, m.UserB)
		} else if m.UserB == userID {
			out = append(out, m.UserA)
		}
	}
	return out, nil
}

func (s *memoryStore) ExpirePending(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.matches {
		if m.Status == models.MatchPending && m.LastActivityAt.Before(olderThan) {
			m.Status = models.MatchExpired
			n++
		}
	}
	return n, nil
}

type countingConversations struct {
	mu    sync.Mutex
	calls int
}

func (c *countingConversations) CreateConversation(ctx context.Context, matchID, userA, userB string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil
}

type countingNotifier struct {
	mu    sync.Mutex
	calls int
}

func (n *countingNotifier) NotifyMutualMatch(ctx context.Context, matchID, userA, userB string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	return nil
}

func newTestMachine(t *testing.T) (*Machine, *memoryStore, *countingConversations, *countingNotifier) {
	t.Helper()
	store := newMemoryStore()
	conversations := &countingConversations{}
	notifier := &countingNotifier{}
	machine := NewMachine(store, conversations, notifier, logger.NewTestLogger(t))
	return machine, store, conversations, notifier
}

func TestApplyRejectsInvalidInput(t *testing.T) {
	machine, _, _, _ := newTestMachine(t)

	_, err := machine.Apply(context.Background(), "a", "b", "sideways")
	assert.Error(t, err)

	_, err = machine.Apply(context.Background(), "a", "a", models.SwipeRight)
	assert.Error(t, err)
}

func TestApplyFirstRightSwipeStaysPending(t *testing.T) {
	machine, _, conversations, _ := newTestMachine(t)

	result, err := machine.Apply(context.Background(), "alice", "bob", models.SwipeRight)
	require.NoError(t, err)

	assert.Equal(t, models.MatchPending, result.Status)
	assert.False(t, result.Mutual)
	assert.Zero(t, conversations.calls)
}

func TestApplyMutualRightSwipesAccept(t *testing.T) {
	machine, _, conversations, notifier := newTestMachine(t)

	first, err := machine.Apply(context.Background(), "alice", "bob", models.SwipeRight)
	require.NoError(t, err)
	assert.Equal(t, models.MatchPending, first.Status)

	second, err := machine.Apply(context.Background(), "bob", "alice", models.SwipeRight)
	require.NoError(t, err)

	assert.Equal(t, models.MatchAccepted, second.Status)
	assert.True(t, second.Mutual)
	assert.Equal(t, first.MatchID, second.MatchID)
	assert.Equal(t, 1, conversations.calls)
	assert.Equal(t, 1, notifier.calls)
}

func TestApplyLeftSwipeForcesRejected(t *testing.T) {
	machine, _, conversations, _ := newTestMachine(t)

	// Bob already liked Alice; her left swipe still resolves to rejected.
	_, err := machine.Apply(context.Background(), "bob", "alice", models.SwipeRight)
	require.NoError(t, err)

	result, err := machine.Apply(context.Background(), "alice", "bob", models.SwipeLeft)
	require.NoError(t, err)

	assert.Equal(t, models.MatchRejected, result.Status)
	assert.Zero(t, conversations.calls)
}

func TestApplyTerminalStateIsNoOp(t *testing.T) {
	machine, _, conversations, notifier := newTestMachine(t)

	_, err := machine.Apply(context.Background(), "alice", "bob", models.SwipeRight)
	require.NoError(t, err)
	_, err = machine.Apply(context.Background(), "bob", "alice", models.SwipeRight)
	require.NoError(t, err)

	// Further swipes in either direction report accepted without side effects.
	again, err := machine.Apply(context.Background(), "alice", "bob", models.SwipeLeft)
	require.NoError(t, err)
	assert.Equal(t, models.MatchAccepted, again.Status)
	assert.False(t, again.Mutual)

	assert.Equal(t, 1, conversations.calls)
	assert.Equal(t, 1, notifier.calls)
}

func TestApplyConcurrentMutualSwipesFireOnce(t *testing.T) {
	for i := 0; i < 50; i++ {
		machine, store, conversations, notifier := newTestMachine(t)

		// Seed both swipes so either racing Apply sees the counterparty's
		// like and attempts the accept transition.
		require.NoError(t, store.RecordSwipe(context.Background(), models.Swipe{
			ActorID: "alice", TargetID: "bob", Direction: models.SwipeRight,
		}))
		require.NoError(t, store.RecordSwipe(context.Background(), models.Swipe{
			ActorID: "bob", TargetID: "alice", Direction: models.SwipeRight,
		}))

		var wg sync.WaitGroup
		results := make([]*Result, 2)
		errs := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			results[0], errs[0] = machine.Apply(context.Background(), "alice", "bob", models.SwipeRight)
		}()
		go func() {
			defer wg.Done()
			results[1], errs[1] = machine.Apply(context.Background(), "bob", "alice", models.SwipeRight)
		}()
		wg.Wait()

		require.NoError(t, errs[0])
		require.NoError(t, errs[1])

		assert.Equal(t, models.MatchAccepted, results[0].Status)
		assert.Equal(t, models.MatchAccepted, results[1].Status)

		mutuals := 0
		for _, r := range results {
			if r.Mutual {
				mutuals++
			}
		}
		assert.Equal(t, 1, mutuals, "exactly one swipe must win the transition")
		assert.Equal(t, 1, conversations.calls, "conversation must be created once")
		assert.Equal(t, 1, notifier.calls, "participants must be notified once")

		accepted, err := store.AcceptedForUser(context.Background(), "alice")
		require.NoError(t, err)
		assert.Len(t, accepted, 1)
	}
}
