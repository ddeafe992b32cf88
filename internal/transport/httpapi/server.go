// internal/transport/httpapi/server.go
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"venture-match-engine/internal/common/errors"
	"venture-match-engine/internal/common/logger"
	"venture-match-engine/internal/common/observability"
	"venture-match-engine/internal/engine/swipe"
	"venture-match-engine/internal/models"
)

const (
	userHeader     = "X-User-ID"
	maxBodyBytes   = 64 * 1024
	defaultLimit   = 20
	maxResultLimit = 100
)

// MatchService is the engine surface the API depends on.
type MatchService interface {
	PotentialMatches(ctx context.Context, viewerID string, criteria *models.FilterCriteria, limit int) ([]models.ScoredCandidate, error)
	Swipe(ctx context.Context, actorID, targetID string, direction models.SwipeDirection) (*swipe.Result, error)
	AcceptedMatches(ctx context.Context, userID string) ([]models.Match, error)
	SavePreferences(ctx context.Context, userID string, criteria models.FilterCriteria) error
	Preferences(ctx context.Context, userID string) (*models.FilterCriteria, error)
}

// Server exposes the matching engine over HTTP.
type Server struct {
	service MatchService
	logger  logger.Logger
	obs     *observability.Observability
	router  chi.Router
}

func NewServer(service MatchService, log logger.Logger, obs *observability.Observability) *Server {
	s := &Server{
		service: service,
		logger:  log.WithFields(map[string]interface{}{"component": "http-server"}),
		obs:     obs,
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(s.logger, s.obs))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/matches", func(r chi.Router) {
		r.Get("/potential", s.handlePotential)
		r.Post("/swipe", s.handleSwipe)
		r.Get("/", s.handleAccepted)
		r.Put("/preferences", s.handleSavePreferences)
		r.Get("/preferences", s.handleGetPreferences)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// candidateResponse is the wire shape of one ranked candidate.
type candidateResponse struct {
	ProfileID string                    `json:"profileId"`
	Kind      string                    `json:"kind"`
	Score     models.CompatibilityScore `json:"score"`
}

func (s *Server) handlePotential(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userHeader)
	if userID == "" {
		s.writeError(w, errors.NewValidationError("missing "+userHeader+" header"))
		return
	}

	criteria, err := parseCriteria(r.URL.Query())
	if err != nil {
		s.writeError(w, err)
		return
	}
	limit := parseLimit(r.URL.Query().Get("limit"))

	ranked, err := s.service.PotentialMatches(r.Context(), userID, criteria, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]candidateResponse, 0, len(ranked))
	for _, candidate := range ranked {
		out = append(out, candidateResponse{
			ProfileID: candidate.Profile.ID(),
			Kind:      string(candidate.Profile.ParticipantKind()),
			Score:     candidate.Score,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"candidates": out})
}

type swipeRequest struct {
	TargetID  string `json:"targetId"`
	Direction string `json:"direction"`
}

func (s *Server) handleSwipe(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userHeader)
	if userID == "" {
		s.writeError(w, errors.NewValidationError("missing "+userHeader+" header"))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, errors.NewValidationError("failed to read request body"))
		return
	}
	if err := validateJSON(swipeSchema, body); err != nil {
		s.writeError(w, err)
		return
	}

	var req swipeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, errors.NewValidationError("request body is not valid JSON"))
		return
	}

	result, err := s.service.Swipe(r.Context(), userID, req.TargetID, models.SwipeDirection(req.Direction))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type matchResponse struct {
	MatchID        string    `json:"matchId"`
	PartnerID      string    `json:"partnerId"`
	MatchedAt      time.Time `json:"matchedAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
}

func (s *Server) handleAccepted(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userHeader)
	if userID == "" {
		s.writeError(w, errors.NewValidationError("missing "+userHeader+" header"))
		return
	}

	matches, err := s.service.AcceptedMatches(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]matchResponse, 0, len(matches))
	for i := range matches {
		out = append(out, matchResponse{
			MatchID:        matches[i].ID,
			PartnerID:      matches[i].Partner(userID),
			MatchedAt:      matches[i].CreatedAt,
			LastActivityAt: matches[i].LastActivityAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"matches": out})
}

func (s *Server) handleSavePreferences(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userHeader)
	if userID == "" {
		s.writeError(w, errors.NewValidationError("missing "+userHeader+" header"))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, errors.NewValidationError("failed to read request body"))
		return
	}
	if err := validateJSON(prefsSchema, body); err != nil {
		s.writeError(w, err)
		return
	}

	var criteria models.FilterCriteria
	if err := json.Unmarshal(body, &criteria); err != nil {
		s.writeError(w, errors.NewValidationError("request body is not valid JSON"))
		return
	}
	if criteria.InvestmentMin != nil && criteria.InvestmentMax != nil && *criteria.InvestmentMin > *criteria.InvestmentMax {
		s.writeError(w, errors.NewValidationError("investmentMin exceeds investmentMax"))
		return
	}
	if criteria.TeamSizeMin != nil && criteria.TeamSizeMax != nil && *criteria.TeamSizeMin > *criteria.TeamSizeMax {
		s.writeError(w, errors.NewValidationError("teamSizeMin exceeds teamSizeMax"))
		return
	}

	if err := s.service.SavePreferences(r.Context(), userID, criteria); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userHeader)
	if userID == "" {
		s.writeError(w, errors.NewValidationError("missing "+userHeader+" header"))
		return
	}

	criteria, err := s.service.Preferences(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if criteria == nil {
		criteria = &models.FilterCriteria{}
	}
	writeJSON(w, http.StatusOK, criteria)
}

// parseCriteria builds filter criteria from query parameters. Returns nil
// when no filter parameter is present, which lets stored preferences apply.
func parseCriteria(q map[string][]string) (*models.FilterCriteria, error) {
	get := func(key string) string {
		if v, ok := q[key]; ok && len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}

	criteria := &models.FilterCriteria{}

	if raw := get("industries"); raw != "" {
		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				criteria.Industries = append(criteria.Industries, item)
			}
		}
	}
	if raw := get("investmentMin"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			return nil, errors.NewValidationError("investmentMin must be a non-negative integer")
		}
		criteria.InvestmentMin = &v
	}
	if raw := get("investmentMax"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			return nil, errors.NewValidationError("investmentMax must be a non-negative integer")
		}
		criteria.InvestmentMax = &v
	}
	if raw := get("teamSizeMin"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return nil, errors.NewValidationError("teamSizeMin must be a non-negative integer")
		}
		criteria.TeamSizeMin = &v
	}
	if raw := get("teamSizeMax"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return nil, errors.NewValidationError("teamSizeMax must be a non-negative integer")
		}
		criteria.TeamSizeMax = &v
	}
	if raw := get("timeline"); raw != "" {
		bucket, ok := models.ParseTimelineBucket(raw)
		if !ok {
			return nil, errors.NewValidationError("timeline must be one of immediate, short, medium, long")
		}
		criteria.Timeline = &bucket
	}
	if raw := get("location"); raw != "" {
		criteria.Location = raw
	}
	if raw := get("verificationLevels"); raw != "" {
		for _, item := range strings.Split(raw, ",") {
			level, ok := models.LookupVerificationLevel(strings.TrimSpace(item))
			if !ok {
				return nil, errors.NewValidationError("unknown verification level: " + item)
			}
			criteria.VerificationLevels = append(criteria.VerificationLevels, level)
		}
	}

	if criteria.IsEmpty() {
		return nil, nil
	}
	if criteria.InvestmentMin != nil && criteria.InvestmentMax != nil && *criteria.InvestmentMin > *criteria.InvestmentMax {
		return nil, errors.NewValidationError("investmentMin exceeds investmentMax")
	}
	return criteria, nil
}

func parseLimit(raw string) int {
	if raw == "" {
		return defaultLimit
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return defaultLimit
	}
	if v > maxResultLimit {
		return maxResultLimit
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	stdErr := errors.AsStandard(err)
	if retryAfter := stdErr.RetryAfter(); retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
	}
	if stdErr.HTTPStatus() >= 500 {
		s.logger.WithError(err).Error("request failed", map[string]interface{}{
			"code": string(stdErr.Code),
		})
	}
	writeJSON(w, stdErr.HTTPStatus(), map[string]interface{}{"error": stdErr})
}
