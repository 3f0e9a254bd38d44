package model

import "time"

// SignalKind tags the evidence category a signal belongs to.
type SignalKind string

const (
	SignalClinicalTrial SignalKind = "clinical_trial"
	SignalPatent        SignalKind = "patent"
	SignalInsider       SignalKind = "insider"
	SignalFinancial     SignalKind = "financial"
	SignalRegulatory    SignalKind = "regulatory"
	SignalStrategic     SignalKind = "strategic"
)

// Signal is a single piece of evidence contributing to a component
// score. Relevance is the time-decayed weight the scorer applied to it
// (1.0 = full weight, boosted above 1.0 inside the recency window).
type Signal struct {
	ID          string        `json:"id"`
	Kind        SignalKind    `json:"kind"`
	Timestamp   time.Time     `json:"timestamp"`
	Relevance   float64       `json:"relevance"`
	Confidence  float64       `json:"confidence"`
	Description string        `json:"description"`
	Payload     SignalPayload `json:"payload,omitempty"`
}

// SignalPayload carries kind-specific detail. Implementations are the
// *Detail structs below; the interface exists so a []Signal can hold a
// mixed evidence log.
type SignalPayload interface {
	SignalKind() SignalKind
}

// ClinicalTrialDetail describes a pipeline-asset signal.
type ClinicalTrialDetail struct {
	Asset      string `json:"asset"`
	Phase      Phase  `json:"phase"`
	Indication string `json:"indication"`
}

func (ClinicalTrialDetail) SignalKind() SignalKind { return SignalClinicalTrial }

// PatentDetail describes a patent signal.
type PatentDetail struct {
	PatentID     string    `json:"patent_id"`
	Expiry       time.Time `json:"expiry"`
	YearsToCliff float64   `json:"years_to_cliff"`
}

func (PatentDetail) SignalKind() SignalKind { return SignalPatent }

// InsiderDetail describes an insider or institutional trading signal.
type InsiderDetail struct {
	Direction string  `json:"direction"` // "buy" or "sell"
	Amount    float64 `json:"amount"`
	Executive bool    `json:"executive"`
}

func (InsiderDetail) SignalKind() SignalKind { return SignalInsider }

// FinancialDetail describes a runway or valuation signal.
type FinancialDetail struct {
	RunwayMonths float64 `json:"runway_months"`
	MarketCap    float64 `json:"market_cap"`
}

func (FinancialDetail) SignalKind() SignalKind { return SignalFinancial }

// RegulatoryDetail describes an FDA interaction signal.
type RegulatoryDetail struct {
	Interaction string `json:"interaction"`
	Outcome     string `json:"outcome"`
}

func (RegulatoryDetail) SignalKind() SignalKind { return SignalRegulatory }
