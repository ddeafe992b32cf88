// internal/engine/retrieval/ranker.go
package retrieval

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"venture-match-engine/internal/models"
)

// RankerConfig carries the two post-scoring adjustment policies.
type RankerConfig struct {
	// DiversityHead is the rank count admitted without bucket checks.
	DiversityHead int
	// DiversityEscape lets a candidate bypass bucket dedupe when its raw
	// score exceeds this threshold.
	DiversityEscape float64
	// RecencyFloor is the multiplier applied to arbitrarily old profiles;
	// newly created ones approach a multiplier of 1.
	RecencyFloor float64
	// RecencyHalfLife is the profile-age decay constant in days.
	RecencyHalfLife float64
}

// Ranker orders scored candidates. A diversity pass thins runs of
// near-identical profiles in the tail, then a recency rescale favors newer
// profiles without letting profile age dominate raw compatibility.
type Ranker struct {
	cfg RankerConfig
	now func() time.Time
}

func NewRanker(cfg RankerConfig) *Ranker {
	return &Ranker{cfg: cfg, now: time.Now}
}

// Rank returns the surviving candidates ordered by adjusted score, highest
// first. The input slice is not modified.
func (r *Ranker) Rank(candidates []models.ScoredCandidate) []models.ScoredCandidate {
	ordered := make([]models.ScoredCandidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Score.Total > ordered[j].Score.Total
	})

	survivors := r.applyDiversity(ordered)

	for i := range survivors {
		survivors[i].Adjusted = survivors[i].Score.Total * r.recencyMultiplier(survivors[i].Profile.Created())
	}
	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].Adjusted > survivors[j].Adjusted
	})

	return survivors
}

// applyDiversity walks candidates in descending score order. The head is
// always admitted; after it, a candidate is dropped when its similarity
// bucket is already represented, unless its score clears the escape
// threshold.
func (r *Ranker) applyDiversity(ordered []models.ScoredCandidate) []models.ScoredCandidate {
	if len(ordered) <= r.cfg.DiversityHead {
		return ordered
	}

	kept := make([]models.ScoredCandidate, 0, len(ordered))
	seen := make(map[string]bool)

	for i, candidate := range ordered {
		bucket := similarityBucket(candidate.Profile)
		if i < r.cfg.DiversityHead || !seen[bucket] || candidate.Score.Total > r.cfg.DiversityEscape {
			kept = append(kept, candidate)
			seen[bucket] = true
		}
	}

	return kept
}

func (r *Ranker) recencyMultiplier(createdAt time.Time) float64 {
	if createdAt.IsZero() {
		return r.cfg.RecencyFloor
	}
	ageDays := r.now().Sub(createdAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return r.cfg.RecencyFloor + (1-r.cfg.RecencyFloor)*math.Exp(-ageDays/r.cfg.RecencyHalfLife)
}

// similarityBucket groups candidates by primary industry and coarse team
// size. Two profiles in the same bucket read as near-duplicates in a feed.
func similarityBucket(p models.Profile) string {
	primary := "none"
	if industries := p.IndustrySet(); len(industries) > 0 {
		primary = strings.ToLower(strings.TrimSpace(industries[0]))
	}
	return fmt.Sprintf("%s|%d", primary, teamBand(p.Team()))
}

func teamBand(size int) int {
	switch {
	case size <= 1:
		return 0
	case size <= 5:
		return 1
	case size <= 20:
		return 2
	default:
		return 3
	}
}
