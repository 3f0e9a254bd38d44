package model

import "time"

// AcquirerType categorizes acquirer candidates by size and strategy.
type AcquirerType string

const (
	AcquirerMajorPharma      AcquirerType = "major_pharma"
	AcquirerMidPharma        AcquirerType = "mid_pharma"
	AcquirerLargeBiotech     AcquirerType = "large_biotech"
	AcquirerStrategic        AcquirerType = "strategic"
	AcquirerFinancialSponsor AcquirerType = "financial_sponsor"
)

// AcquirerCandidate is a potential buyer evaluated by the matcher.
// StrategicPriorities maps therapeutic area to a 0-1 priority weight
// from the acquirer's stated strategy; PipelineGaps lists areas where
// the acquirer has publicly flagged a thin pipeline.
type AcquirerCandidate struct {
	ID                     string             `json:"id"`
	Name                   string             `json:"name"`
	Type                   AcquirerType       `json:"type"`
	TherapeuticAreas       []string           `json:"therapeutic_areas"`
	StrategicPriorities    map[string]float64 `json:"strategic_priorities,omitempty"`
	PipelineGaps           []string           `json:"pipeline_gaps,omitempty"`
	Cash                   float64            `json:"cash"`
	Debt                   float64            `json:"debt"`
	MarketCap              float64            `json:"market_cap"`
	RecentAcquisitionSpend float64            `json:"recent_acquisition_spend"`
	TechnologyFit          float64            `json:"technology_fit"` // 0-1 platform compatibility input
}

// HistoricalDeal is one prior acquisition by an acquirer, used for
// precedent similarity.
type HistoricalDeal struct {
	AcquirerID       string    `json:"acquirer_id"`
	TargetName       string    `json:"target_name"`
	TherapeuticAreas []string  `json:"therapeutic_areas"`
	LeadStage        Phase     `json:"lead_stage"`
	TargetMarketCap  float64   `json:"target_market_cap"`
	DealValue        float64   `json:"deal_value"`
	Date             time.Time `json:"date"`
}

// PatentCliff is an acquirer product facing loss of exclusivity.
// ErosionRate is the expected revenue erosion fraction after expiry.
type PatentCliff struct {
	AcquirerID      string    `json:"acquirer_id"`
	Product         string    `json:"product"`
	TherapeuticArea string    `json:"therapeutic_area"`
	AnnualRevenue   float64   `json:"annual_revenue"`
	Expiry          time.Time `json:"expiry"`
	ErosionRate     float64   `json:"erosion_rate"`
}

// AcquirerMatch is the matcher's output for one candidate against one
// target. Ephemeral; recomputed per query.
type AcquirerMatch struct {
	AcquirerID           string       `json:"acquirer_id"`
	AcquirerName         string       `json:"acquirer_name"`
	Type                 AcquirerType `json:"type"`
	MatchScore           float64      `json:"match_score"` // 0-100
	TherapeuticAlignment float64      `json:"therapeutic_alignment"`
	PatentCliff          *PatentCliff `json:"patent_cliff,omitempty"`
	CliffUrgency         float64      `json:"cliff_urgency"`
	FinancialCapacity    float64      `json:"financial_capacity"`
	HistoricalPrecedents []string     `json:"historical_precedents,omitempty"`
	DealLikelihood       float64      `json:"deal_likelihood"` // 0-1
	EstimatedPremiumPct  float64      `json:"estimated_premium_pct"`
	KeyDrivers           []string     `json:"key_drivers,omitempty"`
}
