// internal/engine/service.go
package engine

import (
	"context"
	"sync"
	"time"

	"venture-match-engine/internal/common/logger"
	"venture-match-engine/internal/common/metrics"
	"venture-match-engine/internal/engine/retrieval"
	"venture-match-engine/internal/engine/scoring"
	"venture-match-engine/internal/engine/swipe"
	"venture-match-engine/internal/models"
	"venture-match-engine/internal/profile"
	"venture-match-engine/internal/quota"
)

// UsageGate is the quota port consumed by the service.
type UsageGate interface {
	Allow(ctx context.Context, userID string, action quota.Action) error
	Remaining(ctx context.Context, userID string, action quota.Action) int
}

// Service orchestrates the matching pipeline: quota, retrieval, concurrent
// scoring, ranking, and the swipe state machine.
type Service struct {
	profiles    profile.Store
	preferences profile.PreferenceStore
	retriever   *retrieval.Retriever
	scorer      *scoring.Scorer
	ranker      *retrieval.Ranker
	machine     *swipe.Machine
	matches     swipe.Store
	gate        UsageGate
	concurrency int
	logger      logger.Logger
}

func NewService(
	profiles profile.Store,
	preferences profile.PreferenceStore,
	retriever *retrieval.Retriever,
	scorer *scoring.Scorer,
	ranker *retrieval.Ranker,
	machine *swipe.Machine,
	matches swipe.Store,
	gate UsageGate,
	concurrency int,
	log logger.Logger,
) *Service {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Service{
		profiles:    profiles,
		preferences: preferences,
		retriever:   retriever,
		scorer:      scorer,
		ranker:      ranker,
		machine:     machine,
		matches:     matches,
		gate:        gate,
		concurrency: concurrency,
		logger:      log.WithFields(map[string]interface{}{"component": "engine-service"}),
	}
}

// PotentialMatches runs the full retrieval pipeline for the viewer. A nil
// criteria falls back to the viewer's stored preferences. The quota unit is
// consumed before any scoring work starts.
func (s *Service) PotentialMatches(ctx context.Context, viewerID string, criteria *models.FilterCriteria, limit int) ([]models.ScoredCandidate, error) {
	if err := s.gate.Allow(ctx, viewerID, quota.ActionRetrieval); err != nil {
		metrics.RetrievalRequests.WithLabelValues("quota_rejected").Inc()
		return nil, err
	}

	viewer, err := s.profiles.Get(ctx, viewerID)
	if err != nil {
		metrics.RetrievalRequests.WithLabelValues("error").Inc()
		return nil, err
	}

	if criteria == nil {
		stored, err := s.preferences.Get(ctx, viewerID)
		if err != nil {
			s.logger.WithError(err).Warn("failed to load stored preferences", map[string]interface{}{
				"viewerId": viewerID,
			})
		} else {
			criteria = stored
		}
	}

	candidates, err := s.retriever.Candidates(ctx, viewer, criteria)
	if err != nil {
		metrics.RetrievalRequests.WithLabelValues("error").Inc()
		return nil, err
	}

	start := time.Now()
	scored := s.scoreAll(ctx, viewer, candidates)
	metrics.ScoringDuration.Observe(time.Since(start).Seconds())
	metrics.CandidatesScored.Observe(float64(len(scored)))

	ranked := s.ranker.Rank(scored)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	metrics.RetrievalRequests.WithLabelValues("success").Inc()
	s.logger.Info("potential matches computed", map[string]interface{}{
		"viewerId":   viewerID,
		"candidates": len(candidates),
		"returned":   len(ranked),
	})
	return ranked, nil
}

// scoreAll scores candidates on a bounded worker pool. A failure on one
// candidate drops that candidate and never fails the request.
func (s *Service) scoreAll(ctx context.Context, viewer models.Profile, candidates []models.Profile) []models.ScoredCandidate {
	results := make([]models.ScoredCandidate, len(candidates))
	valid := make([]bool, len(candidates))

	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup
	for i, candidate := range candidates {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, candidate models.Profile) {
			defer wg.Done()
			defer func() { <-sem }()

			score, err := s.scorer.Score(ctx, viewer, candidate)
			if err != nil {
				s.logger.WithError(err).Warn("skipping candidate after scoring failure", map[string]interface{}{
					"viewerId":    viewer.ID(),
					"candidateId": candidate.ID(),
				})
				return
			}
			results[i] = models.ScoredCandidate{Profile: candidate, Score: score}
			valid[i] = true
		}(i, candidate)
	}
	wg.Wait()

	scored := make([]models.ScoredCandidate, 0, len(candidates))
	for i := range results {
		if valid[i] {
			scored = append(scored, results[i])
		}
	}
	return scored
}

// Swipe records a decision and resolves the pair state.
func (s *Service) Swipe(ctx context.Context, actorID, targetID string, direction models.SwipeDirection) (*swipe.Result, error) {
	if err := s.gate.Allow(ctx, actorID, quota.ActionSwipe); err != nil {
		return nil, err
	}

	// Both profiles must exist before a pair row is created.
	if _, err := s.profiles.Get(ctx, actorID); err != nil {
		return nil, err
	}
	if _, err := s.profiles.Get(ctx, targetID); err != nil {
		return nil, err
	}

	return s.machine.Apply(ctx, actorID, targetID, direction)
}

// AcceptedMatches lists the user's mutual matches, most recent first.
func (s *Service) AcceptedMatches(ctx context.Context, userID string) ([]models.Match, error) {
	return s.matches.AcceptedForUser(ctx, userID)
}

// SavePreferences stores the user's default retrieval criteria.
func (s *Service) SavePreferences(ctx context.Context, userID string, criteria models.FilterCriteria) error {
	return s.preferences.Save(ctx, userID, criteria)
}

// Preferences returns the user's stored criteria, nil when none saved.
func (s *Service) Preferences(ctx context.Context, userID string) (*models.FilterCriteria, error) {
	return s.preferences.Get(ctx, userID)
}

// ExpireStalePending flips pending matches older than the TTL to expired.
// Called on a timer from main.
func (s *Service) ExpireStalePending(ctx context.Context, ttl time.Duration) (int64, error) {
	return s.matches.ExpirePending(ctx, time.Now().Add(-ttl))
}
