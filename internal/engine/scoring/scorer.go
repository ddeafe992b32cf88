// internal/engine/scoring/scorer.go
package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"venture-match-engine/internal/common/config"
	"venture-match-engine/internal/common/logger"
	"venture-match-engine/internal/models"
)

var (
	ErrSameKind = errors.New("participants must be of complementary kinds")
)

// Reason thresholds per factor. A sub-score above its threshold emits a
// human-readable explanation for the UI.
const (
	industryReasonThreshold     = 0.7
	investmentReasonThreshold   = 0.7
	experienceStrongThreshold   = 0.8
	experienceModerateThreshold = 0.6
	successHistReasonThreshold  = 0.7
	verificationReasonThreshold = 0.8
	teamReasonThreshold         = 0.7
	timelineReasonThreshold     = 0.8
	experienceDecayYears        = 10.0
	teamSizeDecayScale          = 10.0
	activityRecencyHalfLifeDays = 30.0
)

// AffinitySource supplies the cached industry relationship score between
// two industry sets. Implementations must degrade to a neutral default
// rather than fail.
type AffinitySource interface {
	Affinity(ctx context.Context, a, b []string) float64
}

// Scorer computes the eight weighted compatibility sub-scores between a
// viewer and a candidate.
type Scorer struct {
	weights  config.WeightsConfig
	cfg      config.ScoringConfig
	affinity AffinitySource
	adjuster Adjuster
	logger   logger.Logger
}

// NewScorer builds a Scorer. The weight set is validated; an adjuster of
// nil falls back to the no-op strategy.
func NewScorer(weights config.WeightsConfig, cfg config.ScoringConfig, affinity AffinitySource, adjuster Adjuster, log logger.Logger) (*Scorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if adjuster == nil {
		adjuster = NoopAdjuster{}
	}
	return &Scorer{
		weights:  weights,
		cfg:      cfg,
		affinity: affinity,
		adjuster: adjuster,
		logger:   log.WithFields(map[string]interface{}{"component": "scorer"}),
	}, nil
}

// Score computes the compatibility between viewer and candidate. The two
// profiles must be of complementary kinds.
func (s *Scorer) Score(ctx context.Context, viewer, candidate models.Profile) (models.CompatibilityScore, error) {
	ent, fun, err := pairRoles(viewer, candidate)
	if err != nil {
		return models.CompatibilityScore{}, err
	}

	jaccard := jaccardIndex(viewer.IndustrySet(), candidate.IndustrySet())
	affinity := s.affinity.Affinity(ctx, viewer.IndustrySet(), candidate.IndustrySet())

	factors := models.Factors{
		Industry:      clamp01(0.7*jaccard + 0.3*affinity),
		Investment:    s.scoreInvestment(ent, fun),
		Experience:    s.scoreExperience(ent, fun),
		Verification:  scoreVerification(viewer, candidate),
		SuccessHist:   s.scoreSuccessHistory(candidate),
		Team:          scoreTeam(viewer, candidate),
		BusinessModel: scoreBusinessModel(ent, fun),
		Timeline:      scoreTimeline(viewer, candidate),
	}

	mult := s.adjuster.Adjust(ctx, viewer, candidate, factors)
	factors = applyMultipliers(factors, mult)

	total := factors.Industry*s.weights.Industry +
		factors.Investment*s.weights.Investment +
		factors.Experience*s.weights.Experience +
		factors.Verification*s.weights.Verification +
		factors.SuccessHist*s.weights.SuccessHist +
		factors.Team*s.weights.Team +
		factors.BusinessModel*s.weights.BusinessModel +
		factors.Timeline*s.weights.Timeline

	score := models.CompatibilityScore{
		Factors: factors,
		Total:   clamp01(total),
		Reasons: s.buildReasons(viewer, candidate, factors, jaccard),
	}

	s.logger.Debug("compatibility scored", map[string]interface{}{
		"viewerId":    viewer.ID(),
		"candidateId": candidate.ID(),
		"total":       score.Total,
	})

	return score, nil
}

// pairRoles resolves which side is the entrepreneur and which the funder.
func pairRoles(a, b models.Profile) (ent, fun models.Profile, err error) {
	switch {
	case a.ParticipantKind() == models.KindEntrepreneur && b.ParticipantKind() == models.KindFunder:
		return a, b, nil
	case a.ParticipantKind() == models.KindFunder && b.ParticipantKind() == models.KindEntrepreneur:
		return b, a, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s vs %s", ErrSameKind, a.ParticipantKind(), b.ParticipantKind())
	}
}

// scoreInvestment measures proximity of the entrepreneur's desired amount to
// the funder's available funds. A desired amount outside the funder's
// declared min/max range scores exactly 0.
func (s *Scorer) scoreInvestment(ent, fun models.Profile) float64 {
	desired := ent.InvestmentAmount()
	available := fun.InvestmentAmount()
	min, max := fun.InvestmentRange()

	if desired <= 0 || available <= 0 {
		return 0
	}
	if min > 0 && desired < min {
		return 0
	}
	if max > 0 && desired > max {
		return 0
	}

	gap := math.Abs(float64(desired - available))
	return clamp01(math.Exp(-gap / float64(available)))
}

// scoreExperience decays with the years-of-experience gap, plus a flat bonus
// when the funder is the more experienced party.
func (s *Scorer) scoreExperience(ent, fun models.Profile) float64 {
	gap := math.Abs(float64(ent.Years() - fun.Years()))
	score := math.Exp(-gap / experienceDecayYears)
	if fun.Years() > ent.Years() {
		score += s.cfg.ComplementBonus
	}
	return clamp01(score)
}

// scoreVerification rewards the pair's position on the verification scale
// and penalizes a gap between the two levels.
func scoreVerification(a, b models.Profile) float64 {
	maxLevel := float64(models.VerificationMax)
	la := float64(a.VerificationLevel())
	lb := float64(b.VerificationLevel())

	base := (la + lb) / (2 * maxLevel)
	penalty := math.Abs(la-lb) / (2 * maxLevel)
	return clamp01(base - penalty)
}

// scoreSuccessHistory blends the counterparty's recent successful-match
// count, verification score and account-activity recency.
func (s *Scorer) scoreSuccessHistory(candidate models.Profile) float64 {
	count := math.Min(float64(candidate.RecentSuccesses())/s.cfg.SuccessCountNorm, 1)
	verification := float64(candidate.VerificationLevel()) / float64(models.VerificationMax)

	recency := 0.0
	if last := candidate.LastActive(); !last.IsZero() {
		days := time.Since(last).Hours() / 24
		recency = math.Exp(-days / activityRecencyHalfLifeDays)
	}

	return clamp01(0.4*count + 0.3*verification + 0.3*recency)
}

// scoreTeam blends team-size proximity with skill-set complementarity;
// lower skill overlap scores higher.
func scoreTeam(a, b models.Profile) float64 {
	gap := math.Abs(float64(a.Team() - b.Team()))
	proximity := math.Exp(-gap / teamSizeDecayScale)

	complement := 0.5
	if len(a.SkillSet()) > 0 || len(b.SkillSet()) > 0 {
		complement = 1 - jaccardIndex(a.SkillSet(), b.SkillSet())
	}

	return clamp01(0.6*proximity + 0.4*complement)
}

// scoreBusinessModel checks the funder's declared business-type preference
// against the entrepreneur's model and aligns target market sizes.
func scoreBusinessModel(ent, fun models.Profile) float64 {
	typeMatch := 0.5 // no declared preference
	if pref := fun.PreferredBusinessType(); pref != "" {
		if pref == ent.DeclaredBusinessType() {
			typeMatch = 1
		} else {
			typeMatch = 0
		}
	}

	market := 0.5
	ma, mb := ent.Market(), fun.Market()
	if ma != models.MarketUnknown && mb != models.MarketUnknown {
		switch diff := absInt(int(ma) - int(mb)); {
		case diff == 0:
			market = 1
		case diff == 1:
			market = 0.5
		default:
			market = 0
		}
	}

	return clamp01(0.6*typeMatch + 0.4*market)
}

// scoreTimeline is 1 minus the normalized distance between the two
// discretized timeline buckets.
func scoreTimeline(a, b models.Profile) float64 {
	dist := absInt(int(a.TimelineBucket()) - int(b.TimelineBucket()))
	return clamp01(1 - float64(dist)/float64(models.TimelineMaxDistance))
}

func (s *Scorer) buildReasons(viewer, candidate models.Profile, f models.Factors, jaccard float64) []string {
	var reasons []string

	if jaccard > industryReasonThreshold {
		shared := sharedIndustries(viewer.IndustrySet(), candidate.IndustrySet())
		if len(shared) > 0 {
			reasons = append(reasons, "aligned industries: "+strings.Join(shared, ", "))
		}
	}
	if f.Investment > investmentReasonThreshold {
		reasons = append(reasons, "strong investment alignment between desired and available funds")
	}
	switch {
	case f.Experience > experienceStrongThreshold:
		reasons = append(reasons, "highly compatible experience levels")
	case f.Experience > experienceModerateThreshold:
		reasons = append(reasons, "complementary experience levels")
	}
	if f.SuccessHist > successHistReasonThreshold {
		reasons = append(reasons, "strong track record of successful partnerships")
	}
	if f.Verification > verificationReasonThreshold {
		reasons = append(reasons, "both profiles thoroughly verified")
	}
	if f.Team > teamReasonThreshold {
		reasons = append(reasons, "complementary team composition")
	}
	if f.Timeline > timelineReasonThreshold {
		reasons = append(reasons, "aligned timelines")
	}

	return reasons
}

// jaccardIndex returns |A∩B| / |A∪B| over case-insensitive sets. Two empty
// sets yield 0.
func jaccardIndex(a, b []string) float64 {
	setA := normalizeSet(a)
	setB := normalizeSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	intersection := 0
	for item := range setA {
		if _, ok := setB[item]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func sharedIndustries(a, b []string) []string {
	setB := normalizeSet(b)
	seen := make(map[string]bool)
	var shared []string
	for _, item := range a {
		key := strings.ToLower(strings.TrimSpace(item))
		if key == "" || seen[key] {
			continue
		}
		if _, ok := setB[key]; ok {
			shared = append(shared, item)
			seen[key] = true
		}
	}
	sort.Strings(shared)
	return shared
}

func normalizeSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		key := strings.ToLower(strings.TrimSpace(item))
		if key != "" {
			set[key] = struct{}{}
		}
	}
	return set
}

func applyMultipliers(f, m models.Factors) models.Factors {
	return models.Factors{
		Industry:      clamp01(f.Industry * m.Industry),
		Investment:    clamp01(f.Investment * m.Investment),
		Experience:    clamp01(f.Experience * m.Experience),
		Verification:  clamp01(f.Verification * m.Verification),
		SuccessHist:   clamp01(f.SuccessHist * m.SuccessHist),
		Team:          clamp01(f.Team * m.Team),
		BusinessModel: clamp01(f.BusinessModel * m.BusinessModel),
		Timeline:      clamp01(f.Timeline * m.Timeline),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
