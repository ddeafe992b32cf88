// internal/models/match.go
package models

import "time"

// SwipeDirection is the one-sided decision a participant records.
type SwipeDirection string

const (
	SwipeLeft  SwipeDirection = "left"
	SwipeRight SwipeDirection = "right"
)

// Valid reports whether the direction is one of the two known values.
func (d SwipeDirection) Valid() bool {
	return d == SwipeLeft || d == SwipeRight
}

// Swipe records one participant's decision toward another. One active swipe
// exists per (actor, target) pair; re-swiping overwrites the prior decision
// while the match is unresolved.
type Swipe struct {
	ActorID   string         `json:"actorId"`
	TargetID  string         `json:"targetId"`
	Direction SwipeDirection `json:"direction"`
	CreatedAt time.Time      `json:"createdAt"`
}

// MatchStatus is the resolution state of a pair.
type MatchStatus string

const (
	MatchPending  MatchStatus = "pending"
	MatchAccepted MatchStatus = "accepted"
	MatchRejected MatchStatus = "rejected"
	MatchExpired  MatchStatus = "expired"
)

// Terminal reports whether the status allows no further transitions.
func (s MatchStatus) Terminal() bool {
	return s == MatchAccepted || s == MatchRejected || s == MatchExpired
}

// Match tracks the relationship state between two participants. The
// unordered pair (UserA, UserB) is the uniqueness key; UserA sorts before
// UserB lexicographically.
type Match struct {
	ID             string      `json:"id"`
	UserA          string      `json:"userA"`
	UserB          string      `json:"userB"`
	Status         MatchStatus `json:"status"`
	CreatedAt      time.Time   `json:"createdAt"`
	LastActivityAt time.Time   `json:"lastActivityAt"`
}

// Partner returns the other side of the match for the given user.
func (m *Match) Partner(userID string) string {
	if m.UserA == userID {
		return m.UserB
	}
	return m.UserA
}

// PairKey normalizes two user ids into the canonical (UserA, UserB) order.
func PairKey(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

// Factors holds the eight named compatibility sub-scores, each in [0,1].
type Factors struct {
	Industry      float64 `json:"industry"`
	Investment    float64 `json:"investment"`
	Experience    float64 `json:"experience"`
	Verification  float64 `json:"verification"`
	SuccessHist   float64 `json:"successHistory"`
	Team          float64 `json:"team"`
	BusinessModel float64 `json:"businessModel"`
	Timeline      float64 `json:"timeline"`
}

// CompatibilityScore is the ephemeral output of scoring one (viewer,
// candidate) pair. It is recomputed per request and never persisted.
type CompatibilityScore struct {
	Factors Factors  `json:"factors"`
	Total   float64  `json:"total"`
	Reasons []string `json:"reasons"`
}

// ScoredCandidate pairs a candidate profile with its compatibility score.
// Adjusted is the ranker's recency-rescaled ordering score; Score.Total is
// the raw compatibility value shown to the user.
type ScoredCandidate struct {
	Profile  Profile
	Score    CompatibilityScore
	Adjusted float64
}
