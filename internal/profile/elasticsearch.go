// internal/profile/elasticsearch.go
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	commonerrors "venture-match-engine/internal/common/errors"
	"venture-match-engine/internal/common/logger"
	"venture-match-engine/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const defaultCandidatePull = 500

// ElasticsearchStore implements Store against the profile search index.
type ElasticsearchStore struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewElasticsearchStore(client *elasticsearch.Client, index string, log logger.Logger) *ElasticsearchStore {
	return &ElasticsearchStore{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "profile-store"}),
	}
}

// profileDoc is the indexed document shape for both participant kinds.
type profileDoc struct {
	UserID            string   `json:"user_id"`
	Kind              string   `json:"kind"`
	Industries        []string `json:"industries"`
	ExperienceYears   int      `json:"experience_years"`
	Verification      string   `json:"verification_level"`
	TeamSize          int      `json:"team_size"`
	Skills            []string `json:"skills"`
	MarketSize        int      `json:"market_size"`
	Timeline          int      `json:"timeline"`
	Tier              string   `json:"subscription_tier"`
	Location          string   `json:"location"`
	ContactVerified   bool     `json:"contact_verified"`
	CreatedAt         string   `json:"created_at"`
	LastActiveAt      string   `json:"last_active_at"`
	SuccessfulMatches int      `json:"successful_matches"`

	BusinessType      string `json:"business_type,omitempty"`
	DesiredInvestment int64  `json:"desired_investment,omitempty"`

	AvailableFunds   int64  `json:"available_funds,omitempty"`
	InvestmentMin    int64  `json:"investment_min,omitempty"`
	InvestmentMax    int64  `json:"investment_max,omitempty"`
	PreferredBizType string `json:"preferred_business_type,omitempty"`
}

// Get fetches a single profile document by user id.
func (s *ElasticsearchStore) Get(ctx context.Context, id string) (models.Profile, error) {
	res, err := s.client.Get(s.index, id, s.client.Get.WithContext(ctx))
	if err != nil {
		return nil, commonerrors.NewSearchError(err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return nil, commonerrors.NewNotFoundError("profile", id)
	}
	if res.IsError() {
		return nil, commonerrors.NewSearchError(fmt.Errorf("get profile: %s", res.Status()))
	}

	var envelope struct {
		Source profileDoc `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return nil, commonerrors.NewSearchError(fmt.Errorf("decode profile: %w", err))
	}

	return docToProfile(envelope.Source)
}

// ListCandidates runs a bool query over the profile index applying the
// coarse eligibility constraints.
func (s *ElasticsearchStore) ListCandidates(ctx context.Context, q CandidateQuery) ([]models.Profile, error) {
	size := q.Size
	if size <= 0 {
		size = defaultCandidatePull
	}

	body, err := json.Marshal(buildCandidateQuery(q))
	if err != nil {
		return nil, commonerrors.NewSearchError(err)
	}

	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  strings.NewReader(string(body)),
		Size:  &size,
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, commonerrors.NewSearchError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, commonerrors.NewSearchError(fmt.Errorf("candidate search: %s", res.Status()))
	}

	var envelope struct {
		Hits struct {
			Hits []struct {
				Source profileDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return nil, commonerrors.NewSearchError(fmt.Errorf("decode candidates: %w", err))
	}

	profiles := make([]models.Profile, 0, len(envelope.Hits.Hits))
	for _, hit := range envelope.Hits.Hits {
		p, err := docToProfile(hit.Source)
		if err != nil {
			s.logger.Warn("skipping malformed profile document", map[string]interface{}{
				"userId": hit.Source.UserID,
				"error":  err,
			})
			continue
		}
		profiles = append(profiles, p)
	}

	return profiles, nil
}

// buildCandidateQuery assembles the eligibility bool query: participant
// kind, verified contact, tier exclusion and id exclusions. An industries
// hint boosts overlapping candidates without filtering them out.
func buildCandidateQuery(q CandidateQuery) map[string]interface{} {
	filterClauses := []interface{}{
		map[string]interface{}{
			"term": map[string]interface{}{"kind": string(q.Kind)},
		},
	}

	if q.RequireContactVerified {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"contact_verified": true},
		})
	}

	mustNotClauses := []interface{}{}
	if q.ExcludeTier != "" {
		mustNotClauses = append(mustNotClauses, map[string]interface{}{
			"term": map[string]interface{}{"subscription_tier": string(q.ExcludeTier)},
		})
	}
	if len(q.ExcludeIDs) > 0 {
		mustNotClauses = append(mustNotClauses, map[string]interface{}{
			"ids": map[string]interface{}{"values": q.ExcludeIDs},
		})
	}

	boolQuery := map[string]interface{}{
		"filter": filterClauses,
	}
	if len(mustNotClauses) > 0 {
		boolQuery["must_not"] = mustNotClauses
	}
	if len(q.Industries) > 0 {
		boolQuery["should"] = []interface{}{
			map[string]interface{}{
				"terms": map[string]interface{}{"industries": q.Industries},
			},
		}
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": boolQuery,
		},
	}
}

func docToProfile(doc profileDoc) (models.Profile, error) {
	if doc.UserID == "" {
		return nil, fmt.Errorf("profile document missing user_id")
	}

	base := models.ProfileBase{
		UserID:            doc.UserID,
		Industries:        doc.Industries,
		ExperienceYears:   doc.ExperienceYears,
		Verification:      models.ParseVerificationLevel(doc.Verification),
		TeamSize:          doc.TeamSize,
		Skills:            doc.Skills,
		MarketSize:        models.MarketSize(doc.MarketSize),
		Timeline:          models.TimelineBucket(doc.Timeline),
		Tier:              models.SubscriptionTier(doc.Tier),
		City:              doc.Location,
		Verified:          doc.ContactVerified,
		CreatedAt:         parseTime(doc.CreatedAt),
		LastActiveAt:      parseTime(doc.LastActiveAt),
		SuccessfulMatches: doc.SuccessfulMatches,
	}

	switch models.ParticipantKind(doc.Kind) {
	case models.KindEntrepreneur:
		return &models.EntrepreneurProfile{
			ProfileBase:       base,
			BusinessType:      models.BusinessType(doc.BusinessType),
			DesiredInvestment: doc.DesiredInvestment,
		}, nil
	case models.KindFunder:
		return &models.FunderProfile{
			ProfileBase:      base,
			AvailableFunds:   doc.AvailableFunds,
			InvestmentMin:    doc.InvestmentMin,
			InvestmentMax:    doc.InvestmentMax,
			PreferredBizType: models.BusinessType(doc.PreferredBizType),
		}, nil
	default:
		return nil, fmt.Errorf("unknown participant kind %q", doc.Kind)
	}
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
