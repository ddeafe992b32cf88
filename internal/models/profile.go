// internal/models/profile.go
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ParticipantKind distinguishes the two sides of the marketplace.
type ParticipantKind string

const (
	KindEntrepreneur ParticipantKind = "entrepreneur"
	KindFunder       ParticipantKind = "funder"
)

// Complement returns the opposite participant kind.
func (k ParticipantKind) Complement() ParticipantKind {
	if k == KindEntrepreneur {
		return KindFunder
	}
	return KindEntrepreneur
}

// VerificationLevel is the ordered verification scale. Higher is more
// thoroughly verified.
type VerificationLevel int

const (
	VerificationNone VerificationLevel = iota
	VerificationBusinessPlan
	VerificationUseCase
	VerificationDemographicAlignment
	VerificationAppUXUI
	VerificationFiscalAnalysis

	VerificationMax = VerificationFiscalAnalysis
)

var verificationNames = map[VerificationLevel]string{
	VerificationNone:                 "none",
	VerificationBusinessPlan:         "business_plan",
	VerificationUseCase:              "use_case",
	VerificationDemographicAlignment: "demographic_alignment",
	VerificationAppUXUI:              "app_ux_ui",
	VerificationFiscalAnalysis:       "fiscal_analysis",
}

func (v VerificationLevel) String() string {
	if name, ok := verificationNames[v]; ok {
		return name
	}
	return "none"
}

// ParseVerificationLevel maps a stored level name back to its ordinal.
// Unknown names degrade to VerificationNone.
func ParseVerificationLevel(s string) VerificationLevel {
	level, _ := LookupVerificationLevel(s)
	return level
}

// LookupVerificationLevel is the strict form of ParseVerificationLevel,
// used where an unknown name must be rejected rather than degraded.
func LookupVerificationLevel(s string) (VerificationLevel, bool) {
	for level, name := range verificationNames {
		if name == s {
			return level, true
		}
	}
	return VerificationNone, false
}

// MarshalJSON renders the level as its stable name.
func (v VerificationLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

func (v *VerificationLevel) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	level, ok := LookupVerificationLevel(name)
	if !ok {
		return fmt.Errorf("unknown verification level %q", name)
	}
	*v = level
	return nil
}

// BusinessType is the declared business model.
type BusinessType string

const (
	BusinessB2B BusinessType = "B2B"
	BusinessB2C BusinessType = "B2C"
)

// MarketSize buckets the target or preferred market.
type MarketSize int

const (
	MarketUnknown MarketSize = iota
	MarketNiche
	MarketRegional
	MarketNational
	MarketGlobal
)

// TimelineBucket discretizes the preferred engagement timeline.
type TimelineBucket int

const (
	TimelineImmediate TimelineBucket = iota
	TimelineShortTerm
	TimelineMediumTerm
	TimelineLongTerm

	TimelineMaxDistance = int(TimelineLongTerm) - int(TimelineImmediate)
)

var timelineNames = map[TimelineBucket]string{
	TimelineImmediate:  "immediate",
	TimelineShortTerm:  "short",
	TimelineMediumTerm: "medium",
	TimelineLongTerm:   "long",
}

func (t TimelineBucket) String() string {
	if name, ok := timelineNames[t]; ok {
		return name
	}
	return "immediate"
}

// ParseTimelineBucket maps a bucket name to its ordinal.
func ParseTimelineBucket(s string) (TimelineBucket, bool) {
	for bucket, name := range timelineNames {
		if name == s {
			return bucket, true
		}
	}
	return TimelineImmediate, false
}

// MarshalJSON renders the bucket as its stable name.
func (t TimelineBucket) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimelineBucket) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	bucket, ok := ParseTimelineBucket(name)
	if !ok {
		return fmt.Errorf("unknown timeline bucket %q", name)
	}
	*t = bucket
	return nil
}

// SubscriptionTier is the participant's plan. The lowest tier is excluded
// from candidate pools by policy (configurable, see retrieval).
type SubscriptionTier string

const (
	TierFree     SubscriptionTier = "free"
	TierStandard SubscriptionTier = "standard"
	TierPremium  SubscriptionTier = "premium"
)

// Profile is the read-only capability view the engine needs of a
// participant. The profile subsystem owns the data; the two concrete shapes
// below implement it.
type Profile interface {
	ID() string
	ParticipantKind() ParticipantKind
	IndustrySet() []string
	Years() int
	VerificationLevel() VerificationLevel
	Team() int
	SkillSet() []string
	Market() MarketSize
	TimelineBucket() TimelineBucket
	SubscriptionTier() SubscriptionTier
	Location() string
	ContactVerified() bool
	Created() time.Time
	LastActive() time.Time
	RecentSuccesses() int

	// InvestmentAmount is the desired amount for entrepreneurs and the
	// available funds for funders.
	InvestmentAmount() int64
	// InvestmentRange is the funder's declared min/max; entrepreneurs
	// return (0, 0) meaning no declared range.
	InvestmentRange() (min, max int64)
	// DeclaredBusinessType is the entrepreneur's business model; empty for
	// funders.
	DeclaredBusinessType() BusinessType
	// PreferredBusinessType is the funder's preference; empty means no
	// preference.
	PreferredBusinessType() BusinessType
}

// ProfileBase carries the attributes shared by both participant shapes.
type ProfileBase struct {
	UserID            string            `json:"userId"`
	Industries        []string          `json:"industries"`
	ExperienceYears   int               `json:"experienceYears"`
	Verification      VerificationLevel `json:"verification"`
	TeamSize          int               `json:"teamSize"`
	Skills            []string          `json:"skills"`
	MarketSize        MarketSize        `json:"marketSize"`
	Timeline          TimelineBucket    `json:"timeline"`
	Tier              SubscriptionTier  `json:"tier"`
	City              string            `json:"location"`
	Verified          bool              `json:"contactVerified"`
	CreatedAt         time.Time         `json:"createdAt"`
	LastActiveAt      time.Time         `json:"lastActiveAt"`
	SuccessfulMatches int               `json:"successfulMatches"`
}

func (p *ProfileBase) ID() string                           { return p.UserID }
func (p *ProfileBase) IndustrySet() []string                { return p.Industries }
func (p *ProfileBase) Years() int                           { return p.ExperienceYears }
func (p *ProfileBase) VerificationLevel() VerificationLevel { return p.Verification }
func (p *ProfileBase) Team() int                            { return p.TeamSize }
func (p *ProfileBase) SkillSet() []string                   { return p.Skills }
func (p *ProfileBase) Market() MarketSize                   { return p.MarketSize }
func (p *ProfileBase) TimelineBucket() TimelineBucket       { return p.Timeline }
func (p *ProfileBase) SubscriptionTier() SubscriptionTier   { return p.Tier }
func (p *ProfileBase) Location() string                     { return p.City }
func (p *ProfileBase) ContactVerified() bool                { return p.Verified }
func (p *ProfileBase) Created() time.Time                   { return p.CreatedAt }
func (p *ProfileBase) LastActive() time.Time                { return p.LastActiveAt }
func (p *ProfileBase) RecentSuccesses() int                 { return p.SuccessfulMatches }

// EntrepreneurProfile is the entrepreneur-side shape.
type EntrepreneurProfile struct {
	ProfileBase
	BusinessType      BusinessType `json:"businessType"`
	DesiredInvestment int64        `json:"desiredInvestment"`
}

func (p *EntrepreneurProfile) ParticipantKind() ParticipantKind    { return KindEntrepreneur }
func (p *EntrepreneurProfile) InvestmentAmount() int64             { return p.DesiredInvestment }
func (p *EntrepreneurProfile) InvestmentRange() (int64, int64)     { return 0, 0 }
func (p *EntrepreneurProfile) DeclaredBusinessType() BusinessType  { return p.BusinessType }
func (p *EntrepreneurProfile) PreferredBusinessType() BusinessType { return "" }

// FunderProfile is the funder-side shape.
type FunderProfile struct {
	ProfileBase
	AvailableFunds   int64        `json:"availableFunds"`
	InvestmentMin    int64        `json:"investmentMin"`
	InvestmentMax    int64        `json:"investmentMax"`
	PreferredBizType BusinessType `json:"preferredBusinessType"`
}

func (p *FunderProfile) ParticipantKind() ParticipantKind    { return KindFunder }
func (p *FunderProfile) InvestmentAmount() int64             { return p.AvailableFunds }
func (p *FunderProfile) InvestmentRange() (int64, int64)     { return p.InvestmentMin, p.InvestmentMax }
func (p *FunderProfile) DeclaredBusinessType() BusinessType  { return "" }
func (p *FunderProfile) PreferredBusinessType() BusinessType { return p.PreferredBizType }
