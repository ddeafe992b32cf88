// internal/transport/httpapi/server_test.go
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venture-match-engine/internal/common/errors"
	"venture-match-engine/internal/common/logger"
	"venture-match-engine/internal/engine/swipe"
	"venture-match-engine/internal/models"
)

type fakeService struct {
	potential     []models.ScoredCandidate
	potentialErr  error
	lastCriteria  *models.FilterCriteria
	lastLimit     int
	swipeResult   *swipe.Result
	swipeErr      error
	accepted      []models.Match
	savedCriteria *models.FilterCriteria
	prefs         *models.FilterCriteria
}

func (f *fakeService) PotentialMatches(ctx context.Context, viewerID string, criteria *models.FilterCriteria, limit int) ([]models.ScoredCandidate, error) {
	f.lastCriteria = criteria
	f.lastLimit = limit
	return f.potential, f.potentialErr
}

func (f *fakeService) Swipe(ctx context.Context, actorID, targetID string, direction models.SwipeDirection) (*swipe.Result, error) {
	return f.swipeResult, f.swipeErr
}

func (f *fakeService) AcceptedMatches(ctx context.Context, userID string) ([]models.Match, error) {
	return f.accepted, nil
}

func (f *fakeService) SavePreferences(ctx context.Context, userID string, criteria models.FilterCriteria) error {
	f.savedCriteria = &criteria
	return nil
}

func (f *fakeService) Preferences(ctx context.Context, userID string) (*models.FilterCriteria, error) {
	return f.prefs, nil
}

func newTestServer(t *testing.T, service *fakeService) *Server {
	t.Helper()
	return NewServer(service, logger.NewTestLogger(t), nil)
}

func TestMissingUserHeaderRejected(t *testing.T) {
	server := newTestServer(t, &fakeService{})

	for _, tc := range []struct {
		method, path string
	}{
		{http.MethodGet, "/api/v1/matches/potential"},
		{http.MethodPost, "/api/v1/matches/swipe"},
		{http.MethodGet, "/api/v1/matches/"},
		{http.MethodPut, "/api/v1/matches/preferences"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestPotentialMatchesResponse(t *testing.T) {
	service := &fakeService{potential: []models.ScoredCandidate{
		{
			Profile: &models.FunderProfile{ProfileBase: models.ProfileBase{UserID: "f1"}},
			Score: models.CompatibilityScore{
				Total:   0.82,
				Reasons: []string{"aligned timelines"},
			},
		},
	}}
	server := newTestServer(t, service)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/matches/potential?limit=5", nil)
	req.Header.Set(userHeader, "viewer")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, service.lastLimit)
	assert.Nil(t, service.lastCriteria, "no filter params means nil criteria")

	var body struct {
		Candidates []candidateResponse `json:"candidates"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Candidates, 1)
	assert.Equal(t, "f1", body.Candidates[0].ProfileID)
	assert.InDelta(t, 0.82, body.Candidates[0].Score.Total, 1e-9)
	assert.Equal(t, []string{"aligned timelines"}, body.Candidates[0].Score.Reasons)
}

func TestPotentialMatchesParsesCriteria(t *testing.T) {
	service := &fakeService{}
	server := newTestServer(t, service)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/matches/potential?industries=fintech,agritech&investmentMin=100000&timeline=short&location=Austin", nil)
	req.Header.Set(userHeader, "viewer")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, service.lastCriteria)
	assert.Equal(t, []string{"fintech", "agritech"}, service.lastCriteria.Industries)
	require.NotNil(t, service.lastCriteria.InvestmentMin)
	assert.Equal(t, int64(100000), *service.lastCriteria.InvestmentMin)
	require.NotNil(t, service.lastCriteria.Timeline)
	assert.Equal(t, models.TimelineShortTerm, *service.lastCriteria.Timeline)
	assert.Equal(t, "Austin", service.lastCriteria.Location)
}

func TestPotentialMatchesRejectsBadParams(t *testing.T) {
	server := newTestServer(t, &fakeService{})

	for _, query := range []string{
		"investmentMin=abc",
		"investmentMin=-5",
		"timeline=someday",
		"verificationLevels=platinum",
		"investmentMin=200&investmentMax=100",
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/matches/potential?"+query, nil)
		req.Header.Set(userHeader, "viewer")
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "query %q", query)
	}
}

func TestQuotaErrorSetsRetryAfter(t *testing.T) {
	service := &fakeService{potentialErr: errors.NewQuotaExceededError("retrieval", 2*time.Hour)}
	server := newTestServer(t, service)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/matches/potential", nil)
	req.Header.Set(userHeader, "viewer")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "7200", rec.Header().Get("Retry-After"))
}

func TestSwipeEndpoint(t *testing.T) {
	service := &fakeService{swipeResult: &swipe.Result{
		MatchID: "m1",
		Status:  models.MatchAccepted,
		Mutual:  true,
	}}
	server := newTestServer(t, service)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/matches/swipe",
		strings.NewReader(`{"targetId": "bob", "direction": "right"}`))
	req.Header.Set(userHeader, "alice")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result swipe.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "m1", result.MatchID)
	assert.Equal(t, models.MatchAccepted, result.Status)
	assert.True(t, result.Mutual)
}

func TestSwipeSchemaValidation(t *testing.T) {
	server := newTestServer(t, &fakeService{})

	for _, body := range []string{
		`{}`,
		`{"targetId": "bob"}`,
		`{"targetId": "bob", "direction": "up"}`,
		`{"targetId": "", "direction": "right"}`,
		`{"targetId": "bob", "direction": "right", "extra": true}`,
		`not json`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/matches/swipe", strings.NewReader(body))
		req.Header.Set(userHeader, "alice")
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
}

func TestSwipeNotFoundTarget(t *testing.T) {
	service := &fakeService{swipeErr: errors.NewNotFoundError("profile", "ghost")}
	server := newTestServer(t, service)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/matches/swipe",
		strings.NewReader(`{"targetId": "ghost", "direction": "right"}`))
	req.Header.Set(userHeader, "alice")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAcceptedMatchesResponse(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	service := &fakeService{accepted: []models.Match{
		{ID: "m1", UserA: "alice", UserB: "bob", Status: models.MatchAccepted, CreatedAt: now, LastActivityAt: now},
	}}
	server := newTestServer(t, service)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/matches/", nil)
	req.Header.Set(userHeader, "alice")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Matches []matchResponse `json:"matches"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Matches, 1)
	assert.Equal(t, "m1", body.Matches[0].MatchID)
	assert.Equal(t, "bob", body.Matches[0].PartnerID)
}

func TestSavePreferences(t *testing.T) {
	service := &fakeService{}
	server := newTestServer(t, service)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/matches/preferences",
		strings.NewReader(`{"industries": ["fintech"], "timeline": "short"}`))
	req.Header.Set(userHeader, "alice")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, service.savedCriteria)
	assert.Equal(t, []string{"fintech"}, service.savedCriteria.Industries)
	require.NotNil(t, service.savedCriteria.Timeline)
	assert.Equal(t, models.TimelineShortTerm, *service.savedCriteria.Timeline)
}

func TestSavePreferencesRejectsInvertedRange(t *testing.T) {
	server := newTestServer(t, &fakeService{})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/matches/preferences",
		strings.NewReader(`{"investmentMin": 500, "investmentMax": 100}`))
	req.Header.Set(userHeader, "alice")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t, &fakeService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}
