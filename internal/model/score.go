package model

import "time"

// Trend labels score movement relative to the previous calculation.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// TrendOf classifies a score delta. Movements under two points are
// treated as noise.
func TrendOf(delta float64) Trend {
	switch {
	case delta >= 2:
		return TrendUp
	case delta <= -2:
		return TrendDown
	default:
		return TrendStable
	}
}

// ComponentScore is one evidence category's sub-score within a
// composite. Recomputed on every scoring pass, never persisted on its
// own.
type ComponentScore struct {
	Component   string    `json:"component"`
	Score       float64   `json:"score"`  // 0-100
	Weight      float64   `json:"weight"` // normalized, 0-1
	SignalCount int       `json:"signal_count"`
	LastUpdated time.Time `json:"last_updated"`
	Trend       Trend     `json:"trend"`
}

// WeightedContribution returns the component's share of the composite.
func (c ComponentScore) WeightedContribution() float64 {
	return c.Score * c.Weight
}

// MAScore is the composite acquisition-likelihood score for a company.
// Persisted as an append-only time series keyed by (company,
// calculated_at); the newest row is the company's current score.
type MAScore struct {
	CompanyID    string                    `json:"company_id"`
	CompanyName  string                    `json:"company_name"`
	OverallScore float64                   `json:"overall_score"` // 0-100
	Components   map[string]ComponentScore `json:"components"`
	Trend        Trend                     `json:"trend"`
	TrendDelta   float64                   `json:"trend_delta"`
	Confidence   float64                   `json:"confidence"` // 0-1
	KeySignals   []string                  `json:"key_signals"`
	TopAcquirers []AcquirerMatch           `json:"top_acquirers,omitempty"`
	ConfigHash   string                    `json:"config_hash,omitempty"`
	CalculatedAt time.Time                 `json:"calculated_at"`
}
