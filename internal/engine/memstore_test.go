// internal/engine/memstore_test.go
package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venture-match-engine/internal/models"
)

// memoryMatchStore backs the service tests without Postgres.
type memoryMatchStore struct {
	mu      sync.Mutex
	matches map[string]*models.Match
	swipes  map[string]models.Swipe
}

func newMemoryMatchStore() *memoryMatchStore {
	return &memoryMatchStore{
		matches: make(map[string]*models.Match),
		swipes:  make(map[string]models.Swipe),
	}
}

func (s *memoryMatchStore) EnsureMatch(ctx context.Context, userA, userB string) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, b := models.PairKey(userA, userB)
	key := a + "|" + b
	if m, ok := s.matches[key]; ok {
		copied := *m
		return &copied, nil
	}
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

func (s *memoryMatchStore) RecordSwipe(ctx context.Context, sw models.Swipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swipes[sw.ActorID+"|"+sw.TargetID] = sw
	return nil
}

func (s *memoryMatchStore) LatestSwipe(ctx context.Context, actorID, targetID string) (*models.Swipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sw, ok := s.swipes[actorID+"|"+targetID]; ok {
		return &sw, nil
	}
	return nil, nil
}

func (s *memoryMatchStore) TransitionStatus(ctx context.Context, matchID string, to models.MatchStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.matches {
		if m.ID == matchID && m.Status == models.MatchPending {
			m.Status = to
			m.LastActivityAt = time.Now()
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryMatchStore) AcceptedForUser(ctx context.Context, userID string) ([]models.Match, error) {
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

func (s *memoryMatchStore) PartnerIDs(ctx context.Context, userID string) ([]string, error) {
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

func (s *memoryMatchStore) ExpirePending(ctx context.Context, olderThan time.Time) (int64, error) {
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

func TestScoreAllSkipsFailingCandidates(t *testing.T) {
	profiles := &stubProfiles{profiles: map[string]models.Profile{}}
	service := newTestService(t, profiles, &stubPreferences{}, &stubGate{})

	viewer := testEntrepreneur("viewer")
	candidates := []models.Profile{
		testFunder("f1", []string{"fintech"}),
		testEntrepreneur("same-kind"), // scoring fails, candidate is dropped
		testFunder("f2", []string{"agritech"}),
	}

	scored := service.scoreAll(context.Background(), viewer, candidates)

	require.Len(t, scored, 2)
	for _, c := range scored {
		assert.NotEqual(t, "same-kind", c.Profile.ID())
	}
}
