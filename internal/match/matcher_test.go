package match

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bioma-cli/internal/config"
	"github.com/sells-group/bioma-cli/internal/model"
	"github.com/sells-group/bioma-cli/internal/store"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeAcquirers serves a canned acquirer universe.
type fakeAcquirers struct {
	acquirers []model.AcquirerCandidate
	cliffs    []model.PatentCliff
	deals     map[string][]model.HistoricalDeal
}

func (f *fakeAcquirers) ListAcquirers(_ context.Context, _ int) ([]model.AcquirerCandidate, error) {
	return f.acquirers, nil
}

func (f *fakeAcquirers) GetAcquirer(_ context.Context, id string) (*model.AcquirerCandidate, error) {
	for i := range f.acquirers {
		if f.acquirers[i].ID == id {
			return &f.acquirers[i], nil
		}
	}
	return nil, eris.Wrapf(store.ErrNotFound, "acquirer %s", id)
}

func (f *fakeAcquirers) ListPatentCliffs(_ context.Context, _ []string, _ int) ([]model.PatentCliff, error) {
	return f.cliffs, nil
}

func (f *fakeAcquirers) ListHistoricalDeals(_ context.Context, acquirerID string, _ int) ([]model.HistoricalDeal, error) {
	return f.deals[acquirerID], nil
}

func newTestMatcher(f *fakeAcquirers) *Matcher {
	m := New(f, config.MatcherConfig{})
	m.now = func() time.Time { return testNow }
	return m
}

func TestCliffUrgencyBuckets(t *testing.T) {
	tests := []struct {
		yearsOut float64
		want     float64
	}{
		{-0.5, 0},
		{0.5, 100},
		{1.5, 90},
		{2.5, 80},
		{3.5, 60},
		{4.5, 40},
		{6, 20},
		{10, 0},
	}
	for _, tt := range tests {
		expiry := testNow.Add(time.Duration(tt.yearsOut * 365.25 * 24 * float64(time.Hour)))
		assert.Equal(t, tt.want, CliffUrgency(expiry, testNow), "years %v", tt.yearsOut)
	}
}

func TestDealLikelihoodSteps(t *testing.T) {
	tests := []struct {
		score float64
		want  float64
	}{
		{95, 0.70},
		{80, 0.70},
		{75, 0.50},
		{65, 0.30},
		{55, 0.15},
		{40, 0.05},
		{0, 0.05},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DealLikelihood(tt.score), "score %v", tt.score)
	}

	// Monotone in the match score.
	prev := DealLikelihood(0)
	for s := 1.0; s <= 100; s++ {
		cur := DealLikelihood(s)
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestTherapeuticAlignment(t *testing.T) {
	target := []string{"oncology", "immunology"}

	assert.Equal(t, 50.0, therapeuticAlignment(nil, model.AcquirerCandidate{TherapeuticAreas: []string{"oncology"}}))
	assert.Equal(t, 50.0, therapeuticAlignment(target, model.AcquirerCandidate{}))

	full := model.AcquirerCandidate{
		TherapeuticAreas:    []string{"oncology", "immunology"},
		StrategicPriorities: map[string]float64{"oncology": 0.9, "immunology": 0.9},
	}
	// 0.6 overlap + 0.3*0.9 priority, no diversification.
	assert.InDelta(t, 87.0, therapeuticAlignment(target, full), 1e-9)

	none := model.AcquirerCandidate{TherapeuticAreas: []string{"cardiovascular"}}
	// Pure diversification: 0.1 * 100.
	assert.InDelta(t, 10.0, therapeuticAlignment(target, none), 1e-9)
}

func TestFinancialCapacity(t *testing.T) {
	target := &model.Company{MarketCap: 1_000_000_000}

	assert.Equal(t, 20.0, financialCapacity(&model.Company{}, model.AcquirerCandidate{MarketCap: 1}))

	flush := model.AcquirerCandidate{Cash: 600_000_000, Debt: 10_000_000_000, MarketCap: 50_000_000_000}
	assert.Equal(t, 100.0, financialCapacity(target, flush))

	stretched := model.AcquirerCandidate{Cash: 50_000_000, MarketCap: 5_000_000_000}
	assert.Equal(t, 20.0, financialCapacity(target, stretched))

	spent := model.AcquirerCandidate{
		Cash: 600_000_000, MarketCap: 1_000_000_000,
		RecentAcquisitionSpend: 300_000_000,
	}
	// Recent heavy M&A spend discounts capacity 30%.
	assert.InDelta(t, 70.0, financialCapacity(target, spent), 1e-9)
}

// A flush major pharma with a near-term billion-dollar cliff in the
// target's area and two precedent deals is a near-certain suitor.
func TestMatchUrgentCliffScenario(t *testing.T) {
	target := &model.Company{
		ID: "acme", Name: "Acme Bio",
		TherapeuticAreas: []string{"oncology"},
		MarketCap:        800_000_000,
	}
	f := &fakeAcquirers{
		acquirers: []model.AcquirerCandidate{{
			ID: "pharma-1", Name: "Global Pharma", Type: model.AcquirerMajorPharma,
			TherapeuticAreas:    []string{"oncology"},
			StrategicPriorities: map[string]float64{"oncology": 0.9},
			Cash:                500_000_000, Debt: 2_000_000_000, MarketCap: 100_000_000_000,
		}},
		cliffs: []model.PatentCliff{{
			AcquirerID: "pharma-1", Product: "Oncozyme", TherapeuticArea: "oncology",
			AnnualRevenue: 1_000_000_000,
			Expiry:        testNow.Add(time.Duration(0.5 * 365.25 * 24 * float64(time.Hour))),
			ErosionRate:   0.8,
		}},
		deals: map[string][]model.HistoricalDeal{
			"pharma-1": {
				{AcquirerID: "pharma-1", TargetName: "Alpha Tx", TherapeuticAreas: []string{"oncology"},
					LeadStage: model.PhaseII, TargetMarketCap: 700_000_000, DealValue: 900_000_000,
					Date: testNow.AddDate(-2, 0, 0)},
				{AcquirerID: "pharma-1", TargetName: "Beta Tx", TherapeuticAreas: []string{"oncology"},
					LeadStage: model.PhaseIII, TargetMarketCap: 900_000_000, DealValue: 1_200_000_000,
					Date: testNow.AddDate(-4, 0, 0)},
			},
		},
	}

	matches, err := newTestMatcher(f).Match(context.Background(), target, 5, 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	m := matches[0]
	assert.GreaterOrEqual(t, m.TherapeuticAlignment, 80.0)
	assert.Equal(t, 100.0, m.CliffUrgency)
	assert.Equal(t, 100.0, m.FinancialCapacity)
	assert.GreaterOrEqual(t, m.MatchScore, 85.0)
	assert.Equal(t, 0.70, m.DealLikelihood)
	assert.GreaterOrEqual(t, m.EstimatedPremiumPct, 65.0)
	require.NotNil(t, m.PatentCliff)
	assert.Equal(t, "Oncozyme", m.PatentCliff.Product)
	assert.Len(t, m.HistoricalPrecedents, 2)
	assert.NotEmpty(t, m.KeyDrivers)
}

func TestMatchFiltersAndSorts(t *testing.T) {
	target := &model.Company{
		ID: "acme", TherapeuticAreas: []string{"oncology"}, MarketCap: 500_000_000,
	}
	f := &fakeAcquirers{
		acquirers: []model.AcquirerCandidate{
			{ID: "a", Name: "Aligned", Type: model.AcquirerMajorPharma,
				TherapeuticAreas: []string{"oncology"}, StrategicPriorities: map[string]float64{"oncology": 1},
				Cash: 400_000_000, MarketCap: 10_000_000_000},
			{ID: "b", Name: "Unrelated", Type: model.AcquirerFinancialSponsor,
				TherapeuticAreas: []string{"dermatology"}, Cash: 10_000_000, MarketCap: 100_000_000},
		},
		deals: map[string][]model.HistoricalDeal{},
	}

	matches, err := newTestMatcher(f).Match(context.Background(), target, 0, 40)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Aligned", matches[0].AcquirerName)

	all, err := newTestMatcher(f).Match(context.Background(), target, 0, 1)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.GreaterOrEqual(t, all[0].MatchScore, all[1].MatchScore)

	capped, err := newTestMatcher(f).Match(context.Background(), target, 1, 1)
	require.NoError(t, err)
	assert.Len(t, capped, 1)
}

func TestFindPatentCliffMatchesOrdersByUrgency(t *testing.T) {
	target := &model.Company{ID: "acme", TherapeuticAreas: []string{"oncology"}, MarketCap: 500_000_000}
	f := &fakeAcquirers{
		acquirers: []model.AcquirerCandidate{
			{ID: "soon", Name: "Soon Pharma", Type: model.AcquirerMidPharma,
				TherapeuticAreas: []string{"oncology"}, Cash: 300_000_000, MarketCap: 20_000_000_000},
			{ID: "later", Name: "Later Pharma", Type: model.AcquirerMajorPharma,
				TherapeuticAreas: []string{"oncology"}, Cash: 900_000_000, MarketCap: 80_000_000_000},
		},
		cliffs: []model.PatentCliff{
			{AcquirerID: "later", Product: "LaterDrug", TherapeuticArea: "oncology",
				Expiry: testNow.AddDate(4, 6, 0)},
			{AcquirerID: "soon", Product: "SoonDrug", TherapeuticArea: "oncology",
				Expiry: testNow.AddDate(0, 8, 0)},
		},
		deals: map[string][]model.HistoricalDeal{},
	}

	matches, err := newTestMatcher(f).FindPatentCliffMatches(context.Background(), target, 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "Soon Pharma", matches[0].AcquirerName)
	assert.Greater(t, matches[0].CliffUrgency, matches[1].CliffUrgency)
}

func TestFindPatentCliffMatchesEmpty(t *testing.T) {
	target := &model.Company{ID: "acme", TherapeuticAreas: []string{"oncology"}}
	matches, err := newTestMatcher(&fakeAcquirers{}).FindPatentCliffMatches(context.Background(), target, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestEstimatedPremium(t *testing.T) {
	assert.Equal(t, 30.0, estimatedPremium(0, 0))
	assert.Equal(t, 50.0, estimatedPremium(90, 0))
	assert.Equal(t, 45.0, estimatedPremium(0, 90))
	assert.Equal(t, 65.0, estimatedPremium(90, 90))
}
