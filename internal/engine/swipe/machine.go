// internal/engine/swipe/machine.go
package swipe

import (
	"context"

	"venture-match-engine/internal/common/errors"
	"venture-match-engine/internal/common/logger"
	"venture-match-engine/internal/common/metrics"
	"venture-match-engine/internal/models"
)

// ConversationService opens the messaging channel for a mutual match.
type ConversationService interface {
	CreateConversation(ctx context.Context, matchID, userA, userB string) error
}

// Notifier delivers match lifecycle events to participants.
type Notifier interface {
	NotifyMutualMatch(ctx context.Context, matchID, userA, userB string) error
}

// Result is the outcome of one swipe.
type Result struct {
	MatchID string             `json:"matchId"`
	Status  models.MatchStatus `json:"status"`
	// Mutual is true only on the swipe that resolved the pair to accepted.
	Mutual bool `json:"mutual"`
}

// Machine drives the pair state transitions. A left swipe resolves the pair
// to rejected immediately; a right swipe resolves to accepted only when the
// counterparty already swiped right. Side effects fire exactly once, on the
// call that wins the pending-to-terminal compare-and-set.
type Machine struct {
	store         Store
	conversations ConversationService
	notifier      Notifier
	logger        logger.Logger
}

func NewMachine(store Store, conversations ConversationService, notifier Notifier, log logger.Logger) *Machine {
	return &Machine{
		store:         store,
		conversations: conversations,
		notifier:      notifier,
		logger:        log.WithFields(map[string]interface{}{"component": "swipe-machine"}),
	}
}

// Apply records the actor's decision and resolves the pair state.
// Swipes against an already resolved pair are no-ops that report the
// current status.
func (m *Machine) Apply(ctx context.Context, actorID, targetID string, direction models.SwipeDirection) (*Result, error) {
	if !direction.Valid() {
		return nil, errors.NewValidationError("direction must be left or right")
	}
	if actorID == targetID {
		return nil, errors.NewValidationError("cannot swipe on yourself")
	}

	match, err := m.store.EnsureMatch(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}
	if match.Status.Terminal() {
		metrics.Swipes.WithLabelValues(string(direction), string(match.Status)).Inc()
		return &Result{MatchID: match.ID, Status: match.Status}, nil
	}

	if err := m.store.RecordSwipe(ctx, models.Swipe{
		ActorID:   actorID,
		TargetID:  targetID,
		Direction: direction,
	}); err != nil {
		return nil, err
	}

	if direction == models.SwipeLeft {
		return m.resolveLeft(ctx, match, actorID)
	}
	return m.resolveRight(ctx, match, actorID, targetID)
}

func (m *Machine) resolveLeft(ctx context.Context, match *models.Match, actorID string) (*Result, error) {
	won, err := m.store.TransitionStatus(ctx, match.ID, models.MatchRejected)
	if err != nil {
		return nil, err
	}
	status := models.MatchRejected
	if !won {
		// Lost the race to a concurrent resolution; report what stuck.
		current, err := m.store.EnsureMatch(ctx, match.UserA, match.UserB)
		if err != nil {
			return nil, err
		}
		status = current.Status
	}

	metrics.Swipes.WithLabelValues(string(models.SwipeLeft), string(status)).Inc()
	m.logger.Info("swipe resolved", map[string]interface{}{
		"matchId": match.ID,
		"actorId": actorID,
		"status":  string(status),
	})
	return &Result{MatchID: match.ID, Status: status}, nil
}

func (m *Machine) resolveRight(ctx context.Context, match *models.Match, actorID, targetID string) (*Result, error) {
	counterpart, err := m.store.LatestSwipe(ctx, targetID, actorID)
	if err != nil {
		return nil, err
	}
	if counterpart == nil || counterpart.Direction != models.SwipeRight {
		metrics.Swipes.WithLabelValues(string(models.SwipeRight), string(models.MatchPending)).Inc()
		return &Result{MatchID: match.ID, Status: models.MatchPending}, nil
	}

	won, err := m.store.TransitionStatus(ctx, match.ID, models.MatchAccepted)
	if err != nil {
		return nil, err
	}
	if !won {
		current, err := m.store.EnsureMatch(ctx, match.UserA, match.UserB)
		if err != nil {
			return nil, err
		}
		metrics.Swipes.WithLabelValues(string(models.SwipeRight), string(current.Status)).Inc()
		return &Result{MatchID: match.ID, Status: current.Status}, nil
	}

	metrics.Swipes.WithLabelValues(string(models.SwipeRight), string(models.MatchAccepted)).Inc()
	metrics.MutualMatches.Inc()
	m.fireMutualMatch(ctx, match)

	return &Result{MatchID: match.ID, Status: models.MatchAccepted, Mutual: true}, nil
}

// fireMutualMatch runs the accepted-match side effects. Failures here do not
// roll the match back; they are logged for retry by operational tooling.
func (m *Machine) fireMutualMatch(ctx context.Context, match *models.Match) {
	if m.conversations != nil {
		if err := m.conversations.CreateConversation(ctx, match.ID, match.UserA, match.UserB); err != nil {
			m.logger.WithError(err).Error("failed to create conversation", map[string]interface{}{
				"matchId": match.ID,
			})
		}
	}
	if m.notifier != nil {
		if err := m.notifier.NotifyMutualMatch(ctx, match.ID, match.UserA, match.UserB); err != nil {
			m.logger.WithError(err).Error("failed to notify participants", map[string]interface{}{
				"matchId": match.ID,
			})
		}
	}
	m.logger.Info("mutual match created", map[string]interface{}{
		"matchId": match.ID,
		"userA":   match.UserA,
		"userB":   match.UserB,
	})
}
