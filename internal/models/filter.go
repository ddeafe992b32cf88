// internal/models/filter.go
package models

// FilterCriteria carries optional viewer-supplied retrieval constraints.
// Nil or empty fields impose no constraint; populated fields are combined
// as a logical AND.
type FilterCriteria struct {
	Industries         []string            `json:"industries,omitempty"`
	InvestmentMin      *int64              `json:"investmentMin,omitempty"`
	InvestmentMax      *int64              `json:"investmentMax,omitempty"`
	TeamSizeMin        *int                `json:"teamSizeMin,omitempty"`
	TeamSizeMax        *int                `json:"teamSizeMax,omitempty"`
	Timeline           *TimelineBucket     `json:"timeline,omitempty"`
	Location           string              `json:"location,omitempty"`
	VerificationLevels []VerificationLevel `json:"verificationLevels,omitempty"`
}

// IsEmpty reports whether no constraint is set at all.
func (f *FilterCriteria) IsEmpty() bool {
	if f == nil {
		return true
	}
	return len(f.Industries) == 0 && f.InvestmentMin == nil && f.InvestmentMax == nil &&
		f.TeamSizeMin == nil && f.TeamSizeMax == nil && f.Timeline == nil &&
		f.Location == "" && len(f.VerificationLevels) == 0
}
