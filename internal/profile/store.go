// internal/profile/store.go
package profile

import (
	"context"

	"venture-match-engine/internal/models"
)

// CandidateQuery narrows the candidate pull at the store level. The
// retriever applies the finer per-field predicates on top.
type CandidateQuery struct {
	Kind                   models.ParticipantKind
	ExcludeIDs             []string
	ExcludeTier            models.SubscriptionTier
	RequireContactVerified bool
	Industries             []string
	Size                   int
}

// Store is the read-only profile collaborator consumed by the engine.
type Store interface {
	Get(ctx context.Context, id string) (models.Profile, error)
	ListCandidates(ctx context.Context, q CandidateQuery) ([]models.Profile, error)
}
