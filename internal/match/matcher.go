// Package match ranks acquirer candidates for a target company by
// therapeutic alignment, patent-cliff urgency, financial capacity, and
// historical deal precedent.
package match

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bioma-cli/internal/config"
	"github.com/sells-group/bioma-cli/internal/model"
	"github.com/sells-group/bioma-cli/internal/store"
)

// Composite weights over the match sub-scores.
const (
	alignmentWeight  = 0.35
	cliffWeight      = 0.25
	financialWeight  = 0.20
	historicalWeight = 0.15
	activityWeight   = 0.05
)

// typeActivity is the baseline M&A activity multiplier per acquirer
// category. Large pharma does the most buying.
var typeActivity = map[model.AcquirerType]float64{
	model.AcquirerMajorPharma:      0.90,
	model.AcquirerMidPharma:        0.70,
	model.AcquirerLargeBiotech:     0.60,
	model.AcquirerStrategic:        0.50,
	model.AcquirerFinancialSponsor: 0.40,
}

// Matcher scores and ranks acquirer candidates against a target.
type Matcher struct {
	acquirers store.AcquirerProvider
	cfg       config.MatcherConfig
	now       func() time.Time
}

// New creates a Matcher over the given acquirer data provider.
func New(acquirers store.AcquirerProvider, cfg config.MatcherConfig) *Matcher {
	if cfg.CandidatePool <= 0 {
		cfg.CandidatePool = 50
	}
	if cfg.CliffYearsAhead <= 0 {
		cfg.CliffYearsAhead = 5
	}
	if cfg.HistoryYears <= 0 {
		cfg.HistoryYears = 7
	}
	return &Matcher{acquirers: acquirers, cfg: cfg, now: time.Now}
}

// Match scores the candidate pool against the target, filters to
// matches at or above minScore, and returns the top N sorted by match
// score descending. topN <= 0 means no cap; minScore <= 0 falls back
// to the configured floor.
func (m *Matcher) Match(ctx context.Context, target *model.Company, topN int, minScore float64) ([]model.AcquirerMatch, error) {
	if minScore <= 0 {
		minScore = m.cfg.MinScore
	}

	candidates, err := m.acquirers.ListAcquirers(ctx, m.cfg.CandidatePool)
	if err != nil {
		return nil, eris.Wrap(err, "match: list acquirers")
	}

	cliffs, err := m.acquirers.ListPatentCliffs(ctx, target.TherapeuticAreas, m.cfg.CliffYearsAhead)
	if err != nil {
		return nil, eris.Wrap(err, "match: list patent cliffs")
	}
	cliffsByAcquirer := groupCliffs(cliffs)

	matches := make([]model.AcquirerMatch, 0, len(candidates))
	for _, acq := range candidates {
		deals, err := m.acquirers.ListHistoricalDeals(ctx, acq.ID, m.cfg.HistoryYears)
		if err != nil {
			zap.L().Warn("match: historical deals unavailable",
				zap.String("acquirer_id", acq.ID),
				zap.Error(err),
			)
			deals = nil
		}

		match := m.scoreCandidate(target, acq, cliffsByAcquirer[acq.ID], deals)
		if match.MatchScore >= minScore {
			matches = append(matches, match)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].MatchScore > matches[j].MatchScore
	})
	if topN > 0 && len(matches) > topN {
		matches = matches[:topN]
	}

	zap.L().Debug("match: candidates ranked",
		zap.String("company_id", target.ID),
		zap.Int("candidates", len(candidates)),
		zap.Int("matched", len(matches)),
	)

	return matches, nil
}

// FindPatentCliffMatches ranks acquirers by patent-cliff urgency
// first: who most needs revenue replacement in the target's areas
// within the horizon.
func (m *Matcher) FindPatentCliffMatches(ctx context.Context, target *model.Company, yearsAhead int) ([]model.AcquirerMatch, error) {
	if yearsAhead <= 0 {
		yearsAhead = m.cfg.CliffYearsAhead
	}

	cliffs, err := m.acquirers.ListPatentCliffs(ctx, target.TherapeuticAreas, yearsAhead)
	if err != nil {
		return nil, eris.Wrap(err, "match: list patent cliffs")
	}
	if len(cliffs) == 0 {
		return nil, nil
	}

	var matches []model.AcquirerMatch
	for acquirerID, acqCliffs := range groupCliffs(cliffs) {
		acq, err := m.acquirers.GetAcquirer(ctx, acquirerID)
		if err != nil {
			if eris.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, eris.Wrapf(err, "match: acquirer %s", acquirerID)
		}

		deals, err := m.acquirers.ListHistoricalDeals(ctx, acq.ID, m.cfg.HistoryYears)
		if err != nil {
			deals = nil
		}

		match := m.scoreCandidate(target, *acq, acqCliffs, deals)
		if match.CliffUrgency > 0 {
			matches = append(matches, match)
		}
	}

	// Urgency first, match score as tiebreaker.
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CliffUrgency != matches[j].CliffUrgency {
			return matches[i].CliffUrgency > matches[j].CliffUrgency
		}
		return matches[i].MatchScore > matches[j].MatchScore
	})

	return matches, nil
}

// scoreCandidate computes the full match record for one candidate.
func (m *Matcher) scoreCandidate(target *model.Company, acq model.AcquirerCandidate, cliffs []model.PatentCliff, deals []model.HistoricalDeal) model.AcquirerMatch {
	now := m.now()

	alignment := therapeuticAlignment(target.TherapeuticAreas, acq)
	bestCliff, urgency := bestCliffUrgency(cliffs, now)
	capacity := financialCapacity(target, acq)
	precedents, historical := historicalPrecedent(target, deals)
	activity := typeActivity[acq.Type]

	composite := alignmentWeight*alignment +
		cliffWeight*urgency +
		financialWeight*capacity +
		historicalWeight*historical +
		activityWeight*(activity*100)
	composite = math.Max(0, math.Min(composite, 100))

	match := model.AcquirerMatch{
		AcquirerID:           acq.ID,
		AcquirerName:         acq.Name,
		Type:                 acq.Type,
		MatchScore:           composite,
		TherapeuticAlignment: alignment,
		PatentCliff:          bestCliff,
		CliffUrgency:         urgency,
		FinancialCapacity:    capacity,
		HistoricalPrecedents: precedents,
		DealLikelihood:       DealLikelihood(composite),
		EstimatedPremiumPct:  estimatedPremium(urgency, alignment),
	}
	match.KeyDrivers = keyDrivers(match)
	return match
}

// therapeuticAlignment scores 0-100 how well the acquirer's footprint
// and stated priorities cover the target's areas.
func therapeuticAlignment(targetAreas []string, acq model.AcquirerCandidate) float64 {
	if len(targetAreas) == 0 || len(acq.TherapeuticAreas) == 0 {
		return 50
	}

	acqAreas := make(map[string]bool, len(acq.TherapeuticAreas))
	for _, a := range acq.TherapeuticAreas {
		acqAreas[strings.ToLower(a)] = true
	}

	var overlap int
	var prioritySum float64
	for _, area := range targetAreas {
		a := strings.ToLower(area)
		if acqAreas[a] {
			overlap++
		}
		prioritySum += acq.StrategicPriorities[a]
	}
	overlapRatio := float64(overlap) / float64(len(targetAreas))
	priority := prioritySum / float64(len(targetAreas))

	// A modest bonus for areas the acquirer does not yet cover;
	// diversification has value, concentration has more.
	diversification := 1 - overlapRatio

	score := 0.6*overlapRatio + 0.3*priority + 0.1*diversification
	return math.Min(score*100, 100)
}

// bestCliffUrgency returns the most urgent matching cliff and its
// bucketed urgency score.
func bestCliffUrgency(cliffs []model.PatentCliff, now time.Time) (*model.PatentCliff, float64) {
	var best *model.PatentCliff
	var bestScore float64
	for i := range cliffs {
		score := CliffUrgency(cliffs[i].Expiry, now)
		if score > bestScore {
			best = &cliffs[i]
			bestScore = score
		}
	}
	return best, bestScore
}

// CliffUrgency buckets years-to-expiry into an urgency score. Past
// cliffs score zero: the revenue is already lost and no acquisition
// undoes that.
func CliffUrgency(expiry, now time.Time) float64 {
	years := expiry.Sub(now).Hours() / 24 / 365.25
	switch {
	case years < 0:
		return 0
	case years < 1:
		return 100
	case years < 2:
		return 90
	case years < 3:
		return 80
	case years < 4:
		return 60
	case years < 5:
		return 40
	case years < 7:
		return 20
	default:
		return 0
	}
}

// financialCapacity buckets the acquirer's ability to pay for the
// target: cash relative to the target's market cap, leverage relative
// to its own. Recent heavy M&A spend discounts capacity 30%.
func financialCapacity(target *model.Company, acq model.AcquirerCandidate) float64 {
	if target.MarketCap <= 0 || acq.MarketCap <= 0 {
		return 20
	}

	cashRatio := acq.Cash / target.MarketCap
	debtRatio := acq.Debt / acq.MarketCap

	var score float64
	switch {
	case cashRatio >= 0.5 && debtRatio < 0.3:
		score = 100
	case cashRatio >= 0.3 && debtRatio < 0.5:
		score = 80
	case cashRatio >= 0.2:
		score = 60
	case cashRatio >= 0.1:
		score = 40
	default:
		score = 20
	}

	if acq.RecentAcquisitionSpend > 0.2*acq.MarketCap {
		score *= 0.7
	}
	return score
}

// historicalPrecedent scores 0-100 from the count of sufficiently
// similar prior deals and returns their descriptions.
func historicalPrecedent(target *model.Company, deals []model.HistoricalDeal) ([]string, float64) {
	var precedents []string
	for _, deal := range deals {
		if dealSimilarity(target, deal) >= 0.6 {
			precedents = append(precedents, fmt.Sprintf("%s (%s, $%.0fM)",
				deal.TargetName, deal.Date.Format("2006"), deal.DealValue/1e6))
		}
	}

	bonus := math.Min(float64(len(precedents))*10, 30)
	return precedents, bonus / 30 * 100
}

// dealSimilarity measures 0-1 how closely a past deal resembles buying
// the target: therapeutic overlap, clinical-stage distance, and
// market-cap ratio.
func dealSimilarity(target *model.Company, deal model.HistoricalDeal) float64 {
	overlap := areaOverlap(target.TherapeuticAreas, deal.TherapeuticAreas)

	// Stage distance: assume the target's interesting assets sit
	// mid-to-late clinical; compare against the deal's lead stage.
	stageDist := math.Abs(float64(deal.LeadStage.Rank()-model.PhaseII.Rank())) / 6
	stageScore := 1 - stageDist

	var capScore float64
	if target.MarketCap > 0 && deal.TargetMarketCap > 0 {
		capScore = math.Min(target.MarketCap, deal.TargetMarketCap) / math.Max(target.MarketCap, deal.TargetMarketCap)
	}

	return 0.4*overlap + 0.3*stageScore + 0.3*capScore
}

func areaOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(b))
	for _, area := range b {
		set[strings.ToLower(area)] = true
	}
	var hits int
	for _, area := range a {
		if set[strings.ToLower(area)] {
			hits++
		}
	}
	return float64(hits) / float64(len(a))
}

// DealLikelihood maps a match score to a bucketed probability. The
// steps are deliberately coarse; precision here would be false.
func DealLikelihood(matchScore float64) float64 {
	switch {
	case matchScore >= 80:
		return 0.70
	case matchScore >= 70:
		return 0.50
	case matchScore >= 60:
		return 0.30
	case matchScore >= 50:
		return 0.15
	default:
		return 0.05
	}
}

// estimatedPremium starts from the sector-baseline 30% and adds for
// cliff urgency and tight alignment, capped at 80%.
func estimatedPremium(urgency, alignment float64) float64 {
	premium := 30.0
	if urgency >= 80 {
		premium += 20
	}
	if alignment >= 80 {
		premium += 15
	}
	return math.Min(premium, 80)
}

func keyDrivers(m model.AcquirerMatch) []string {
	var drivers []string
	if m.TherapeuticAlignment >= 80 {
		drivers = append(drivers, "strong therapeutic alignment")
	}
	if m.CliffUrgency >= 80 && m.PatentCliff != nil {
		drivers = append(drivers, fmt.Sprintf("imminent patent cliff: %s ($%.0fM revenue at risk)",
			m.PatentCliff.Product, m.PatentCliff.AnnualRevenue/1e6))
	}
	if m.FinancialCapacity >= 80 {
		drivers = append(drivers, "ample balance-sheet capacity")
	}
	if n := len(m.HistoricalPrecedents); n > 0 {
		drivers = append(drivers, fmt.Sprintf("%d similar precedent deal(s)", n))
	}
	return drivers
}

func groupCliffs(cliffs []model.PatentCliff) map[string][]model.PatentCliff {
	grouped := make(map[string][]model.PatentCliff)
	for _, c := range cliffs {
		grouped[c.AcquirerID] = append(grouped[c.AcquirerID], c)
	}
	return grouped
}
