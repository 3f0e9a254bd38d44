package model

import "time"

// Phase is the development stage of a pipeline asset, ordered from
// discovery through regulatory approval.
type Phase string

const (
	PhaseDiscovery   Phase = "discovery"
	PhasePreclinical Phase = "preclinical"
	PhaseI           Phase = "phase_1"
	PhaseII          Phase = "phase_2"
	PhaseIII         Phase = "phase_3"
	PhaseFiled       Phase = "filed"
	PhaseApproved    Phase = "approved"
)

// phaseRank orders phases for clinical-stage distance calculations.
var phaseRank = map[Phase]int{
	PhaseDiscovery:   0,
	PhasePreclinical: 1,
	PhaseI:           2,
	PhaseII:          3,
	PhaseIII:         4,
	PhaseFiled:       5,
	PhaseApproved:    6,
}

// Rank returns the ordinal position of the phase (0 = discovery).
// Unknown phases rank 0.
func (p Phase) Rank() int {
	return phaseRank[p]
}

// Company is the scoring target. Therapeutic areas are lowercase
// free-form tags ("oncology", "rare disease", ...).
type Company struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Ticker           string   `json:"ticker,omitempty"`
	TherapeuticAreas []string `json:"therapeutic_areas"`
	MarketCap        float64  `json:"market_cap"`
}

// Designations holds FDA special-designation flags for a pipeline asset.
type Designations struct {
	Breakthrough   bool `json:"breakthrough"`
	Orphan         bool `json:"orphan"`
	FastTrack      bool `json:"fast_track"`
	PriorityReview bool `json:"priority_review"`
}

// PipelineAsset is one development program owned by a company.
// Assets are immutable per snapshot and replaced wholesale on each
// data refresh.
type PipelineAsset struct {
	Name              string       `json:"name"`
	Phase             Phase        `json:"phase"`
	Indication        string       `json:"indication"`
	TherapeuticArea   string       `json:"therapeutic_area"`
	PatientPopulation int64        `json:"patient_population,omitempty"` // 0 = unknown
	Designations      Designations `json:"designations"`
	LastUpdated       *time.Time   `json:"last_updated,omitempty"`
}

// Patent is one granted patent owned by a company.
type Patent struct {
	ID                  string    `json:"id"`
	Title               string    `json:"title"`
	Expiry              time.Time `json:"expiry"`
	Claims              int       `json:"claims"`
	Citations           int       `json:"citations"`
	CompositionOfMatter bool      `json:"composition_of_matter"`
	MethodOfUse         bool      `json:"method_of_use"`
	Formulation         bool      `json:"formulation"`
}

// FinancialSnapshot is a company's balance-sheet picture as of a date.
// Monetary values in USD; burn rate is monthly.
type FinancialSnapshot struct {
	AsOf         time.Time  `json:"as_of"`
	MarketCap    float64    `json:"market_cap"`
	Cash         float64    `json:"cash"`
	MonthlyBurn  float64    `json:"monthly_burn"`
	Revenue      float64    `json:"revenue"`
	NextCatalyst *time.Time `json:"next_catalyst,omitempty"`
}

// RunwayMonths returns cash divided by monthly burn. A non-positive
// burn rate means the company is cash-flow neutral or better; callers
// treat that as indefinite runway.
func (f FinancialSnapshot) RunwayMonths() float64 {
	if f.MonthlyBurn <= 0 {
		return -1
	}
	return f.Cash / f.MonthlyBurn
}

// InsiderTransaction is one Form 4 purchase or sale.
type InsiderTransaction struct {
	Date        time.Time `json:"date"`
	Amount      float64   `json:"amount"` // USD value of the transaction
	Executive   bool      `json:"executive"`
	PlannedSale bool      `json:"planned_sale"` // 10b5-1 plan sale, ignored by scoring
}

// InstitutionalChange is one 13F/13D position change.
type InstitutionalChange struct {
	Date          time.Time `json:"date"`
	PercentChange float64   `json:"percent_change"` // signed, e.g. +12.5
	Activist      bool      `json:"activist"`
}

// InsiderActivity bundles the trailing-12-month insider and
// institutional event log for a company.
type InsiderActivity struct {
	Purchases            []InsiderTransaction  `json:"purchases"`
	Sales                []InsiderTransaction  `json:"sales"`
	InstitutionalChanges []InstitutionalChange `json:"institutional_changes"`
}

// RegulatoryInteraction is one recorded FDA interaction.
type RegulatoryInteraction struct {
	Type    string    `json:"type"`    // e.g. "type_b_meeting", "spa"
	Outcome string    `json:"outcome"` // e.g. "spa_agreement", "favorable", "crl"
	Date    time.Time `json:"date"`
}

// RegulatoryHistory holds a company's regulatory pathway and the
// interaction log, with hold/letter counters already windowed to the
// provider's lookback period.
type RegulatoryHistory struct {
	Pathway        string                  `json:"pathway"` // "breakthrough", "orphan", "505b2", "unclear", "none", ...
	Interactions   []RegulatoryInteraction `json:"interactions"`
	ClinicalHolds  int                     `json:"clinical_holds"`
	WarningLetters int                     `json:"warning_letters"`
}

// CompanyData is the full stored snapshot for a company, used by bulk
// import and the data refresh path.
type CompanyData struct {
	Company    Company            `json:"company"`
	Pipeline   []PipelineAsset    `json:"pipeline"`
	Patents    []Patent           `json:"patents"`
	Financials *FinancialSnapshot `json:"financials,omitempty"`
	Insider    InsiderActivity    `json:"insider"`
	Regulatory RegulatoryHistory  `json:"regulatory"`
}
