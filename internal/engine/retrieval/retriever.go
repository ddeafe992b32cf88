// internal/engine/retrieval/retriever.go
package retrieval

import (
	"context"
	"strings"

	"venture-match-engine/internal/common/logger"
	"venture-match-engine/internal/models"
	"venture-match-engine/internal/profile"
)

// MatchIndex exposes the ids a viewer is already paired with, in any match
// status. Those ids never re-enter the candidate pool.
type MatchIndex interface {
	PartnerIDs(ctx context.Context, userID string) ([]string, error)
}

// Config holds the retrieval policy knobs.
type Config struct {
	// ExcludeTier removes the named subscription tier from candidate
	// pools. Policy, not business rule: empty disables the exclusion.
	ExcludeTier models.SubscriptionTier
	// MaxPull bounds the raw store pull. Ranking bounds the final result.
	MaxPull int
}

// Retriever produces the eligible, filtered candidate set for a viewer.
type Retriever struct {
	profiles profile.Store
	matches  MatchIndex
	cfg      Config
	logger   logger.Logger
}

func NewRetriever(profiles profile.Store, matches MatchIndex, cfg Config, log logger.Logger) *Retriever {
	return &Retriever{
		profiles: profiles,
		matches:  matches,
		cfg:      cfg,
		logger:   log.WithFields(map[string]interface{}{"component": "retriever"}),
	}
}

// Candidates returns the unordered eligible candidate list for the viewer.
// Exclusions (self, existing-match partners) are enforced here regardless
// of what the store returns; FilterCriteria is applied as an AND of
// per-field predicates where an absent field imposes no constraint.
func (r *Retriever) Candidates(ctx context.Context, viewer models.Profile, criteria *models.FilterCriteria) ([]models.Profile, error) {
	partnerIDs, err := r.matches.PartnerIDs(ctx, viewer.ID())
	if err != nil {
		return nil, err
	}

	excluded := make(map[string]bool, len(partnerIDs)+1)
	excluded[viewer.ID()] = true
	for _, id := range partnerIDs {
		excluded[id] = true
	}

	excludeIDs := make([]string, 0, len(excluded))
	for id := range excluded {
		excludeIDs = append(excludeIDs, id)
	}

	query := profile.CandidateQuery{
		Kind:                   viewer.ParticipantKind().Complement(),
		ExcludeIDs:             excludeIDs,
		ExcludeTier:            r.cfg.ExcludeTier,
		RequireContactVerified: true,
		Size:                   r.cfg.MaxPull,
	}
	if criteria != nil {
		query.Industries = criteria.Industries
	}

	pool, err := r.profiles.ListCandidates(ctx, query)
	if err != nil {
		return nil, err
	}

	candidates := make([]models.Profile, 0, len(pool))
	for _, candidate := range pool {
		if excluded[candidate.ID()] {
			continue
		}
		if !candidate.ContactVerified() {
			continue
		}
		if r.cfg.ExcludeTier != "" && candidate.SubscriptionTier() == r.cfg.ExcludeTier {
			continue
		}
		if candidate.ParticipantKind() != viewer.ParticipantKind().Complement() {
			continue
		}
		if !matchesCriteria(candidate, criteria) {
			continue
		}
		candidates = append(candidates, candidate)
	}

	r.logger.Debug("candidates retrieved", map[string]interface{}{
		"viewerId": viewer.ID(),
		"pool":     len(pool),
		"eligible": len(candidates),
	})

	return candidates, nil
}

// matchesCriteria evaluates the AND of the per-field predicates.
func matchesCriteria(p models.Profile, criteria *models.FilterCriteria) bool {
	if criteria.IsEmpty() {
		return true
	}

	if len(criteria.Industries) > 0 && !industriesOverlap(p.IndustrySet(), criteria.Industries) {
		return false
	}

	amount := p.InvestmentAmount()
	if criteria.InvestmentMin != nil && amount < *criteria.InvestmentMin {
		return false
	}
	if criteria.InvestmentMax != nil && amount > *criteria.InvestmentMax {
		return false
	}

	if criteria.TeamSizeMin != nil && p.Team() < *criteria.TeamSizeMin {
		return false
	}
	if criteria.TeamSizeMax != nil && p.Team() > *criteria.TeamSizeMax {
		return false
	}

	if criteria.Timeline != nil && p.TimelineBucket() != *criteria.Timeline {
		return false
	}

	if criteria.Location != "" && !strings.EqualFold(p.Location(), criteria.Location) {
		return false
	}

	if len(criteria.VerificationLevels) > 0 {
		found := false
		for _, level := range criteria.VerificationLevels {
			if p.VerificationLevel() == level {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

func industriesOverlap(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, item := range a {
		set[strings.ToLower(strings.TrimSpace(item))] = true
	}
	for _, item := range b {
		if set[strings.ToLower(strings.TrimSpace(item))] {
			return true
		}
	}
	return false
}
