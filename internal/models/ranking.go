// internal/models/ranking.go
package models

import "time"

// ComponentScores holds the six ranking components, each in [0,1].
type ComponentScores struct {
	Constraint    float64 `json:"constraint"`
	Preference    float64 `json:"preference"`
	Accessibility float64 `json:"accessibility"`
	Trust         float64 `json:"trust"`
	Market        float64 `json:"market"`
	Engagement    float64 `json:"engagement"`
}

// RankedResult is returned by every search and ranking operation. Retrieval
// results leave Components zeroed.
type RankedResult struct {
	ApartmentID string          `json:"apartmentId"`
	Score       float64         `json:"score"`
	Components  ComponentScores `json:"components"`
	Reasons     []string        `json:"reasons"`
	ReasonCodes []string        `json:"reasonCodes"`
	TradeOffs   []string        `json:"tradeOffs"`
	Source      Source          `json:"source"`
}

// Explanation returns the justification carried by the result.
func (r RankedResult) Explanation() Explanation {
	return NewExplanation(r.Reasons, r.ReasonCodes, r.TradeOffs)
}

// WithExplanation returns a copy of r carrying e.
func (r RankedResult) WithExplanation(e Explanation) RankedResult {
	r.Reasons = e.Reasons()
	r.ReasonCodes = e.Codes()
	r.TradeOffs = e.TradeOffs()
	return r
}

// RankingWeights are non-negative and normalized by their sum.
type RankingWeights struct {
	Constraint    float64   `json:"constraint"`
	Preference    float64   `json:"preference"`
	Accessibility float64   `json:"accessibility"`
	Trust         float64   `json:"trust"`
	Market        float64   `json:"market"`
	Engagement    float64   `json:"engagement"`
	LoadedAt      time.Time `json:"loadedAt,omitempty"`
}

func DefaultRankingWeights() RankingWeights {
	return RankingWeights{
		Constraint:    0.30,
		Preference:    0.20,
		Accessibility: 0.15,
		Trust:         0.15,
		Market:        0.10,
		Engagement:    0.10,
	}
}

func (w RankingWeights) Sum() float64 {
	return w.Constraint + w.Preference + w.Accessibility + w.Trust + w.Market + w.Engagement
}

// Valid reports whether every weight is non-negative and at least one is positive.
func (w RankingWeights) Valid() bool {
	for _, v := range []float64{w.Constraint, w.Preference, w.Accessibility, w.Trust, w.Market, w.Engagement} {
		if v < 0 {
			return false
		}
	}
	return w.Sum() > 0
}

// UserPreferences are supplied per request and never stored here.
type UserPreferences struct {
	BudgetMin          *float64 `json:"budgetMin,omitempty"`
	BudgetMax          *float64 `json:"budgetMax,omitempty"`
	PreferredDistricts []string `json:"preferredDistricts,omitempty"`
	MaxCommuteMinutes  *int     `json:"maxCommuteMinutes,omitempty"`
	UniversityID       string   `json:"universityId,omitempty"`
	CommuteMode        string   `json:"commuteMode,omitempty"`
	PreferredBedrooms  *int     `json:"preferredBedrooms,omitempty"`
	MustHaveFurnished  bool     `json:"mustHaveFurnished"`
	PreferredAmenities []string `json:"preferredAmenities,omitempty"`
}

// RankContext is the optional per-call context used for analytics.
type RankContext struct {
	UserID    string `json:"userId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Query     string `json:"query,omitempty"`
	Source    Source `json:"source,omitempty"`
	// AnalyticsTopK overrides the engine default when positive.
	AnalyticsTopK int `json:"analyticsTopK,omitempty"`
}
