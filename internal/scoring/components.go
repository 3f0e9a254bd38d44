package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/bioma-cli/internal/decay"
	"github.com/sells-group/bioma-cli/internal/model"
)

// phaseValues maps development phase to a 0-1 maturity factor.
var phaseValues = map[model.Phase]float64{
	model.PhaseDiscovery:   0.05,
	model.PhasePreclinical: 0.10,
	model.PhaseI:           0.25,
	model.PhaseII:          0.45,
	model.PhaseIII:         0.70,
	model.PhaseFiled:       0.85,
	model.PhaseApproved:    1.00,
}

// areaValues maps therapeutic area to a demand multiplier. Areas not
// listed use areaValueDefault.
var areaValues = map[string]float64{
	"oncology":       1.00,
	"rare disease":   0.95,
	"immunology":     0.90,
	"neurology":      0.90,
	"cardiovascular": 0.80,
	"metabolic":      0.80,
	"infectious":     0.75,
}

const areaValueDefault = 0.70

// pathwayValues maps regulatory pathway to a base score.
var pathwayValues = map[string]float64{
	"breakthrough": 95,
	"orphan":       90,
	"505b2":        85,
	"accelerated":  85,
	"fast_track":   80,
	"standard":     60,
	"unclear":      40,
	"none":         30,
}

// PipelineScore scores a company's development pipeline 0-100.
// Each asset is valued by phase maturity and therapeutic-area demand,
// boosted for special designations and patient-population size, and
// decayed by staleness; the top three decayed asset scores dominate,
// with a small diversity bonus for breadth.
func PipelineScore(assets []model.PipelineAsset, d decay.Decay, now time.Time) (float64, []model.Signal) {
	if len(assets) == 0 {
		return 0, nil
	}

	scores := make([]float64, 0, len(assets))
	signals := make([]model.Signal, 0, len(assets))
	for _, a := range assets {
		av, ok := areaValues[strings.ToLower(a.TherapeuticArea)]
		if !ok {
			av = areaValueDefault
		}
		base := phaseValues[a.Phase] * av * 100

		base += populationAdjustment(a.PatientPopulation)

		if a.Designations.Breakthrough {
			base += 15
		}
		if a.Designations.Orphan {
			base += 10
		}
		if a.Designations.FastTrack {
			base += 8
		}
		if a.Designations.PriorityReview {
			base += 5
		}

		weight := 1.0
		ts := now
		if a.LastUpdated != nil {
			ts = *a.LastUpdated
			weight = d.Weight(decay.AgeDays(ts, now))
			base *= weight
		}
		scores = append(scores, base)
		signals = append(signals, model.Signal{
			ID:          uuid.NewString(),
			Kind:        model.SignalClinicalTrial,
			Timestamp:   ts,
			Relevance:   weight,
			Confidence:  phaseValues[a.Phase],
			Description: fmt.Sprintf("%s (%s, %s)", a.Name, a.Phase, a.Indication),
			Payload:     model.ClinicalTrialDetail{Asset: a.Name, Phase: a.Phase, Indication: a.Indication},
		})
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))
	var total float64
	switch len(scores) {
	case 1:
		total = scores[0]
	case 2:
		total = 0.6*scores[0] + 0.4*scores[1]
	default:
		total = 0.5*scores[0] + 0.3*scores[1] + 0.2*scores[2]
	}

	// Diversity bonus for a broad pipeline.
	total += math.Min(float64(len(assets))*2, 15)

	return clamp100(total), signals
}

// populationAdjustment rewards large addressable populations and
// lightly penalizes vanishingly small ones (orphan designation already
// compensates those).
func populationAdjustment(pop int64) float64 {
	switch {
	case pop <= 0:
		return 0
	case pop >= 1_000_000:
		return 8
	case pop >= 100_000:
		return 4
	case pop < 5_000:
		return -5
	default:
		return 0
	}
}

// PatentScore scores a company's patent estate 0-100. Each patent is
// valued by remaining life, patent type, and claim/citation strength;
// a weighted top-four plus a portfolio-size bonus forms the score.
func PatentScore(patents []model.Patent, d decay.Decay, now time.Time) (float64, []model.Signal) {
	if len(patents) == 0 {
		return 0, nil
	}

	scores := make([]float64, 0, len(patents))
	signals := make([]model.Signal, 0, len(patents))
	for _, p := range patents {
		years := p.Expiry.Sub(now).Hours() / 24 / 365.25
		life := patentLifeScore(years)
		life *= patentTypeMultiplier(p)
		life += math.Min(float64(p.Claims)*2, 30)
		life += math.Min(float64(p.Citations)*3, 20)
		scores = append(scores, life)
		signals = append(signals, model.Signal{
			ID:          uuid.NewString(),
			Kind:        model.SignalPatent,
			Timestamp:   now,
			Relevance:   1.0,
			Confidence:  0.9,
			Description: fmt.Sprintf("patent %s expires %s", p.ID, p.Expiry.Format("2006-01")),
			Payload:     model.PatentDetail{PatentID: p.ID, Expiry: p.Expiry, YearsToCliff: years},
		})
	}
	_ = d // patent value derives from remaining life, not filing age

	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))
	total := weightedTop(scores, []float64{0.4, 0.3, 0.2, 0.1})
	total += math.Min(float64(len(patents))*3, 20)

	return clamp100(total), signals
}

// patentLifeScore buckets remaining patent life in years. The sweet
// spot is 3-8 years: long enough to monetize, short enough to motivate
// a buyer before generic erosion.
func patentLifeScore(years float64) float64 {
	switch {
	case years <= 0:
		return 0
	case years < 3:
		return 20
	case years <= 8:
		return 100
	case years <= 15:
		return 80
	default:
		return 60
	}
}

func patentTypeMultiplier(p model.Patent) float64 {
	switch {
	case p.CompositionOfMatter:
		return 1.5
	case p.MethodOfUse:
		return 1.0
	case p.Formulation:
		return 0.8
	default:
		return 1.0
	}
}

// FinancialScore scores financial acquisition pressure 0-100. Shorter
// runway means higher acquisition likelihood; the catalyst term adds
// urgency when cash runs out before the next value-inflection event.
func FinancialScore(fin *model.FinancialSnapshot, now time.Time) (float64, []model.Signal) {
	if fin == nil || fin.MarketCap <= 0 {
		return 0, nil
	}

	runway := fin.RunwayMonths()
	runwayScore := runwayPressureScore(runway)
	catalystScore := catalystTimingScore(fin, runway, now)
	valuationScore := valuationAttractiveness(fin.MarketCap)
	revenueScore := math.Min(fin.Revenue/5_000_000*10, 100)

	total := 0.4*runwayScore + 0.2*catalystScore + 0.3*valuationScore + 0.1*revenueScore

	sig := model.Signal{
		ID:          uuid.NewString(),
		Kind:        model.SignalFinancial,
		Timestamp:   fin.AsOf,
		Relevance:   1.0,
		Confidence:  0.95,
		Description: fmt.Sprintf("runway %.1f months, market cap $%.0fM", runway, fin.MarketCap/1e6),
		Payload:     model.FinancialDetail{RunwayMonths: runway, MarketCap: fin.MarketCap},
	}

	return clamp100(total), []model.Signal{sig}
}

// runwayPressureScore descends as runway lengthens: a company months
// from a financing wall is far more likely to entertain offers.
func runwayPressureScore(runwayMonths float64) float64 {
	if runwayMonths < 0 { // cash-flow neutral or better
		return 20
	}
	switch {
	case runwayMonths < 3:
		return 100
	case runwayMonths < 6:
		return 85
	case runwayMonths < 9:
		return 70
	case runwayMonths < 12:
		return 55
	case runwayMonths < 18:
		return 35
	case runwayMonths < 24:
		return 25
	default:
		return 20
	}
}

// catalystTimingScore measures whether cash lasts to the next catalyst.
// Running dry before the readout is maximum pressure.
func catalystTimingScore(fin *model.FinancialSnapshot, runwayMonths float64, now time.Time) float64 {
	if fin.NextCatalyst == nil || runwayMonths < 0 {
		return 0
	}
	monthsToCatalyst := fin.NextCatalyst.Sub(now).Hours() / 24 / 30.44
	if monthsToCatalyst < 0 {
		return 0
	}
	switch {
	case runwayMonths < monthsToCatalyst:
		return 40
	case runwayMonths < monthsToCatalyst+3:
		return 25
	case runwayMonths < monthsToCatalyst+6:
		return 10
	default:
		return 0
	}
}

// valuationAttractiveness scores inversely by market cap: smaller
// targets are digestible for more acquirers.
func valuationAttractiveness(marketCap float64) float64 {
	switch {
	case marketCap < 100_000_000:
		return 100
	case marketCap < 500_000_000:
		return 80
	case marketCap < 2_000_000_000:
		return 60
	case marketCap < 10_000_000_000:
		return 40
	default:
		return 20
	}
}

// insiderWindowDays bounds insider and institutional events to the
// trailing twelve months; older events carry no scoring information.
const insiderWindowDays = 365.0

// InsiderScore scores insider and institutional trading 0-100 from a
// neutral baseline of 50. Only events from the trailing twelve months
// count. Purchases add decayed points, unplanned sales subtract,
// institutional moves scale by magnitude with an activist multiplier.
func InsiderScore(act *model.InsiderActivity, d decay.Decay, now time.Time) (float64, []model.Signal) {
	score := 50.0
	var signals []model.Signal
	if act == nil {
		return score, nil
	}

	for _, p := range act.Purchases {
		if decay.AgeDays(p.Date, now) > insiderWindowDays {
			continue
		}
		base := 3.0
		if p.Executive {
			base = 5.0
		}
		base += math.Min(p.Amount/100_000, 10)
		w := d.Weight(decay.AgeDays(p.Date, now))
		score += base * w
		signals = append(signals, insiderSignal(p, "buy", w))
	}

	for _, s := range act.Sales {
		if s.PlannedSale || decay.AgeDays(s.Date, now) > insiderWindowDays {
			continue
		}
		base := 3.0
		if s.Executive {
			base = 6.0
		}
		base += math.Min(s.Amount/100_000, 10)
		w := d.Weight(decay.AgeDays(s.Date, now))
		score -= base * w
		signals = append(signals, insiderSignal(s, "sell", w))
	}

	for _, ic := range act.InstitutionalChanges {
		if decay.AgeDays(ic.Date, now) > insiderWindowDays {
			continue
		}
		pts := math.Min(math.Abs(ic.PercentChange)*0.5, 8)
		if ic.Activist {
			pts *= 1.5
		}
		w := d.Weight(decay.AgeDays(ic.Date, now))
		if ic.PercentChange >= 0 {
			score += pts * w
		} else {
			score -= pts * w
		}
		signals = append(signals, model.Signal{
			ID:          uuid.NewString(),
			Kind:        model.SignalInsider,
			Timestamp:   ic.Date,
			Relevance:   w,
			Confidence:  0.7,
			Description: fmt.Sprintf("institutional position %+.1f%%", ic.PercentChange),
			Payload:     model.InsiderDetail{Direction: directionOf(ic.PercentChange), Amount: ic.PercentChange},
		})
	}

	return clamp100(score), signals
}

func insiderSignal(tx model.InsiderTransaction, direction string, weight float64) model.Signal {
	role := "insider"
	if tx.Executive {
		role = "executive"
	}
	return model.Signal{
		ID:          uuid.NewString(),
		Kind:        model.SignalInsider,
		Timestamp:   tx.Date,
		Relevance:   weight,
		Confidence:  0.8,
		Description: fmt.Sprintf("%s %s $%.0fk", role, direction, tx.Amount/1000),
		Payload:     model.InsiderDetail{Direction: direction, Amount: tx.Amount, Executive: tx.Executive},
	}
}

func directionOf(v float64) string {
	if v >= 0 {
		return "buy"
	}
	return "sell"
}

// RegulatoryScore scores regulatory posture 0-100: pathway base value
// plus decayed bonuses for favorable FDA interactions, penalties for
// complete-response letters, clinical holds, and warning letters.
func RegulatoryScore(hist *model.RegulatoryHistory, d decay.Decay, now time.Time) (float64, []model.Signal) {
	if hist == nil {
		return pathwayValues["none"], nil
	}

	base, ok := pathwayValues[strings.ToLower(hist.Pathway)]
	if !ok {
		base = pathwayValues["unclear"]
	}
	score := base

	var signals []model.Signal
	for _, in := range hist.Interactions {
		w := d.Weight(decay.AgeDays(in.Date, now))
		switch strings.ToLower(in.Outcome) {
		case "spa_agreement":
			score += 15 * w
		case "favorable":
			score += 10 * w
		case "crl", "complete_response":
			score -= 20
		default:
			score += 5 * w
		}
		signals = append(signals, model.Signal{
			ID:          uuid.NewString(),
			Kind:        model.SignalRegulatory,
			Timestamp:   in.Date,
			Relevance:   w,
			Confidence:  0.85,
			Description: fmt.Sprintf("%s: %s", in.Type, in.Outcome),
			Payload:     model.RegulatoryDetail{Interaction: in.Type, Outcome: in.Outcome},
		})
	}

	score -= float64(hist.ClinicalHolds) * 25
	score -= float64(hist.WarningLetters) * 15

	return clamp100(score), signals
}

// StrategicFitScore scores how well a target fits one acquirer, 0-100.
// Returns a neutral 50 when either side's area list is empty.
func StrategicFitScore(targetAreas []string, acq model.AcquirerCandidate) float64 {
	if len(targetAreas) == 0 || len(acq.TherapeuticAreas) == 0 {
		return 50
	}

	acqAreas := toSet(acq.TherapeuticAreas)
	gapAreas := toSet(acq.PipelineGaps)

	var overlap, novel int
	var gapScore float64
	for _, area := range targetAreas {
		a := strings.ToLower(area)
		if acqAreas[a] {
			overlap++
		} else {
			novel++
		}
		if gapAreas[a] {
			gapScore += 0.25
		}
	}

	overlapRatio := float64(overlap) / float64(len(targetAreas))
	novelRatio := float64(novel) / float64(len(targetAreas))
	gapScore = math.Min(gapScore, 1.0)

	fit := 0.4*overlapRatio + 0.3*gapScore + 0.2*acq.TechnologyFit + 0.1*novelRatio
	return clamp100(fit * 100)
}

// weightedTop combines the highest scores using positional weights,
// renormalized over the available positions when fewer scores than
// weights exist.
func weightedTop(sorted []float64, weights []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n > len(weights) {
		n = len(weights)
	}

	var wsum float64
	for i := 0; i < n; i++ {
		wsum += weights[i]
	}

	var total float64
	for i := 0; i < n; i++ {
		total += sorted[i] * (weights[i] / wsum)
	}
	return total
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[strings.ToLower(it)] = true
	}
	return set
}
