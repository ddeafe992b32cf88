// internal/engine/scoring/adjuster.go
package scoring

import (
	"context"

	"venture-match-engine/internal/models"
)

// Adjuster applies per-factor multiplicative adjustments to the raw
// sub-scores, the extension point for a future learned-ranking signal.
// Implementations return a multiplier per factor; 1 leaves a factor
// untouched.
type Adjuster interface {
	Adjust(ctx context.Context, viewer, candidate models.Profile, factors models.Factors) models.Factors
}

// NoopAdjuster is the wired default: every multiplier is 1.
type NoopAdjuster struct{}

func (NoopAdjuster) Adjust(_ context.Context, _, _ models.Profile, _ models.Factors) models.Factors {
	return models.Factors{
		Industry:      1,
		Investment:    1,
		Experience:    1,
		Verification:  1,
		SuccessHist:   1,
		Team:          1,
		BusinessModel: 1,
		Timeline:      1,
	}
}
