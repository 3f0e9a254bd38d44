package scoring

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/bioma-cli/internal/config"
	"github.com/sells-group/bioma-cli/internal/model"
	"github.com/sells-group/bioma-cli/internal/store"
)

// AcquirerMatcher ranks acquirer candidates for a target. Satisfied by
// match.Matcher; optional on the engine.
type AcquirerMatcher interface {
	Match(ctx context.Context, target *model.Company, topN int, minScore float64) ([]model.AcquirerMatch, error)
}

// Engine orchestrates the component calculators into one composite
// score per company. Stateless between calls except for the persisted
// score history; safe for concurrent use.
type Engine struct {
	companies store.CompanyProvider
	acquirers store.AcquirerProvider
	scores    store.ScoreStore
	matcher   AcquirerMatcher

	weights       Weights // normalized
	rawWeights    Weights // pre-normalization, for degraded renormalization
	hash          string
	topAcquirers  int
	maxConcurrent int

	// Serializes scoring per company so the previous-score trend
	// lookup cannot race a concurrent write for the same id. Entries
	// are ref-counted and evicted once the last holder releases, so
	// long-lived serve/watch processes don't accumulate stale locks.
	locksMu sync.Mutex
	locks   map[string]*companyLock

	now func() time.Time
}

type companyLock struct {
	mu   sync.Mutex
	refs int
}

// NewEngine validates and normalizes the weight configuration and
// returns a ready engine. The matcher may be nil, in which case scores
// carry no acquirer matches.
func NewEngine(
	companies store.CompanyProvider,
	acquirers store.AcquirerProvider,
	scores store.ScoreStore,
	matcher AcquirerMatcher,
	scoringCfg config.ScoringConfig,
	batchCfg config.BatchConfig,
) (*Engine, error) {
	raw, err := WeightsFromConfig(scoringCfg)
	if err != nil {
		return nil, err
	}
	normalized, err := raw.Normalize()
	if err != nil {
		return nil, err
	}

	maxConcurrent := batchCfg.MaxConcurrentCompanies
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}
	topAcquirers := scoringCfg.TopAcquirers
	if topAcquirers <= 0 {
		topAcquirers = 5
	}

	return &Engine{
		companies:     companies,
		acquirers:     acquirers,
		scores:        scores,
		matcher:       matcher,
		weights:       normalized,
		rawWeights:    raw,
		hash:          raw.Hash(),
		topAcquirers:  topAcquirers,
		maxConcurrent: maxConcurrent,
		locks:         make(map[string]*companyLock),
		now:           time.Now,
	}, nil
}

// componentResult is one component calculator's outcome.
type componentResult struct {
	name    string
	score   float64
	signals []model.Signal
	err     error
}

// CalculateScore computes, persists, and returns the composite score
// for one company. Returns store.ErrNotFound (wrapped) for unknown
// ids. A component whose data fetch fails is excluded and the
// remaining weights renormalized rather than aborting the company.
func (e *Engine) CalculateScore(ctx context.Context, companyID string) (*model.MAScore, error) {
	unlock := e.lockCompany(companyID)
	defer unlock()

	company, err := e.companies.GetCompany(ctx, companyID)
	if err != nil {
		return nil, eris.Wrapf(err, "scoring: company %s", companyID)
	}

	now := e.now()
	results := make([]componentResult, 6)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		assets, err := e.companies.GetPipeline(gctx, companyID)
		if err != nil {
			results[0] = componentResult{name: ComponentPipeline, err: err}
			return nil
		}
		score, sigs := PipelineScore(assets, e.weights.Decay(ComponentPipeline), now)
		results[0] = componentResult{name: ComponentPipeline, score: score, signals: sigs}
		return nil
	})
	g.Go(func() error {
		patents, err := e.companies.GetPatents(gctx, companyID)
		if err != nil {
			results[1] = componentResult{name: ComponentPatent, err: err}
			return nil
		}
		score, sigs := PatentScore(patents, e.weights.Decay(ComponentPatent), now)
		results[1] = componentResult{name: ComponentPatent, score: score, signals: sigs}
		return nil
	})
	g.Go(func() error {
		fin, err := e.companies.GetFinancials(gctx, companyID)
		if err != nil {
			results[2] = componentResult{name: ComponentFinancial, err: err}
			return nil
		}
		score, sigs := FinancialScore(fin, now)
		results[2] = componentResult{name: ComponentFinancial, score: score, signals: sigs}
		return nil
	})
	g.Go(func() error {
		act, err := e.companies.GetInsiderActivity(gctx, companyID)
		if err != nil {
			results[3] = componentResult{name: ComponentInsider, err: err}
			return nil
		}
		score, sigs := InsiderScore(act, e.weights.Decay(ComponentInsider), now)
		results[3] = componentResult{name: ComponentInsider, score: score, signals: sigs}
		return nil
	})
	g.Go(func() error {
		hist, err := e.companies.GetRegulatoryHistory(gctx, companyID)
		if err != nil {
			results[4] = componentResult{name: ComponentRegulatory, err: err}
			return nil
		}
		score, sigs := RegulatoryScore(hist, e.weights.Decay(ComponentRegulatory), now)
		results[4] = componentResult{name: ComponentRegulatory, score: score, signals: sigs}
		return nil
	})
	g.Go(func() error {
		score, sigs, err := e.averageStrategicFit(gctx, company, now)
		results[5] = componentResult{name: ComponentStrategic, score: score, signals: sigs, err: err}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "scoring: component fan-out")
	}

	prev, err := e.scores.PreviousScore(ctx, companyID)
	if err != nil {
		return nil, eris.Wrapf(err, "scoring: previous score for %s", companyID)
	}

	score := e.assemble(company, results, prev, now)

	if e.matcher != nil {
		matches, err := e.matcher.Match(ctx, company, e.topAcquirers, 0)
		if err != nil {
			zap.L().Warn("scoring: acquirer matching failed",
				zap.String("company_id", companyID),
				zap.Error(err),
			)
		} else {
			score.TopAcquirers = matches
		}
	}

	if err := e.scores.StoreScore(ctx, score); err != nil {
		return nil, eris.Wrapf(err, "scoring: store score for %s", companyID)
	}

	zap.L().Info("scoring: company scored",
		zap.String("company_id", companyID),
		zap.Float64("overall", score.OverallScore),
		zap.String("trend", string(score.Trend)),
		zap.Float64("confidence", score.Confidence),
	)

	return score, nil
}

// assemble combines component results into an MAScore, renormalizing
// weights across the components that actually produced a score.
func (e *Engine) assemble(company *model.Company, results []componentResult, prev *model.MAScore, now time.Time) *model.MAScore {
	var failed int
	var weightSum float64
	for _, r := range results {
		if r.err != nil {
			failed++
			zap.L().Warn("scoring: component degraded",
				zap.String("company_id", company.ID),
				zap.String("component", r.name),
				zap.Error(r.err),
			)
			continue
		}
		weightSum += e.rawWeights.Weight(r.name)
	}

	components := make(map[string]model.ComponentScore, len(results))
	var composite, totalSignals, recencySum float64
	var scoreValues []float64
	for _, r := range results {
		if r.err != nil || !e.enabledComponent(r.name) {
			continue
		}
		weight := 0.0
		if weightSum > 0 {
			weight = e.rawWeights.Weight(r.name) / weightSum
		}
		components[r.name] = model.ComponentScore{
			Component:   r.name,
			Score:       r.score,
			Weight:      weight,
			SignalCount: len(r.signals),
			LastUpdated: now,
			Trend:       componentTrend(prev, r.name, r.score),
		}
		composite += r.score * weight
		totalSignals += float64(len(r.signals))
		for _, s := range r.signals {
			recencySum += math.Min(s.Relevance, 1)
		}
		scoreValues = append(scoreValues, r.score)
	}
	composite = clamp100(composite)

	trend := model.TrendStable
	var delta float64
	if prev != nil {
		delta = composite - prev.OverallScore
		trend = model.TrendOf(delta)
	}

	return &model.MAScore{
		CompanyID:    company.ID,
		CompanyName:  company.Name,
		OverallScore: composite,
		Components:   components,
		Trend:        trend,
		TrendDelta:   delta,
		Confidence:   confidence(totalSignals, recencySum, scoreValues, failed),
		KeySignals:   keySignals(components),
		ConfigHash:   e.hash,
		CalculatedAt: now,
	}
}

func (e *Engine) enabledComponent(name string) bool {
	cc, ok := e.rawWeights[name]
	return ok && cc.Enabled
}

// averageStrategicFit scores the target against the top candidate pool
// and averages, so the component reflects general acquirability rather
// than one suitor.
func (e *Engine) averageStrategicFit(ctx context.Context, company *model.Company, now time.Time) (float64, []model.Signal, error) {
	candidates, err := e.acquirers.ListAcquirers(ctx, e.topAcquirers)
	if err != nil {
		return 0, nil, err
	}
	if len(candidates) == 0 {
		return 50, nil, nil
	}

	var sum float64
	for _, acq := range candidates {
		sum += StrategicFitScore(company.TherapeuticAreas, acq)
	}
	avg := sum / float64(len(candidates))

	sig := model.Signal{
		ID:          uuid.NewString(),
		Kind:        model.SignalStrategic,
		Timestamp:   now,
		Relevance:   1.0,
		Confidence:  0.6,
		Description: fmt.Sprintf("average fit %.0f across %d acquirers", avg, len(candidates)),
	}
	return avg, []model.Signal{sig}, nil
}

// confidence scores how much to trust a composite: more signals,
// fresher signals, and agreeing components all raise it. Each degraded
// component costs a tenth. Bounded to [0.1, 1].
func confidence(totalSignals, recencySum float64, scores []float64, failedComponents int) float64 {
	conf := math.Min(totalSignals/50, 0.4)

	if totalSignals > 0 {
		avgRecency := recencySum / totalSignals
		conf += math.Min(avgRecency, 1) * 0.3
	}

	conf += math.Max(1-variance(scores)/1000, 0) * 0.3
	conf -= 0.1 * float64(failedComponents)

	return math.Max(0.1, math.Min(conf, 1))
}

func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return sq / float64(len(values))
}

// keySignals describes the top three components by weighted contribution,
// plus anything trending up with a score worth watching.
func keySignals(components map[string]model.ComponentScore) []string {
	ranked := make([]model.ComponentScore, 0, len(components))
	for _, cs := range components {
		ranked = append(ranked, cs)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].WeightedContribution() != ranked[j].WeightedContribution() {
			return ranked[i].WeightedContribution() > ranked[j].WeightedContribution()
		}
		return ranked[i].Component < ranked[j].Component
	})

	var out []string
	seen := make(map[string]bool)
	for i, cs := range ranked {
		if i >= 3 {
			break
		}
		var label string
		switch {
		case cs.Score >= 70:
			label = "strong"
		case cs.Score >= 50:
			label = "moderate"
		default:
			continue
		}
		out = append(out, fmt.Sprintf("%s %s signal (%.0f)", label, cs.Component, cs.Score))
		seen[cs.Component] = true
	}

	for _, cs := range ranked {
		if cs.Trend == model.TrendUp && cs.Score >= 60 && !seen[cs.Component] {
			out = append(out, fmt.Sprintf("%s trending up (%.0f)", cs.Component, cs.Score))
			seen[cs.Component] = true
		}
	}
	return out
}

func componentTrend(prev *model.MAScore, name string, score float64) model.Trend {
	if prev == nil {
		return model.TrendStable
	}
	pc, ok := prev.Components[name]
	if !ok {
		return model.TrendStable
	}
	return model.TrendOf(score - pc.Score)
}

// BatchCalculate scores many companies concurrently. Individual
// failures are logged and dropped; the batch never fails for one
// company's error.
func (e *Engine) BatchCalculate(ctx context.Context, companyIDs []string) ([]model.MAScore, error) {
	if len(companyIDs) == 0 {
		return nil, nil
	}

	zap.L().Info("scoring: batch started",
		zap.Int("companies", len(companyIDs)),
		zap.Int("concurrency", e.maxConcurrent),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConcurrent)

	var mu sync.Mutex
	var results []model.MAScore

	for _, id := range companyIDs {
		g.Go(func() error {
			score, err := e.CalculateScore(gctx, id)
			if err != nil {
				zap.L().Error("scoring: batch company failed",
					zap.String("company_id", id),
					zap.Error(err),
				)
				return nil // don't abort batch on individual failure
			}
			mu.Lock()
			results = append(results, *score)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "scoring: batch")
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].OverallScore > results[j].OverallScore
	})

	zap.L().Info("scoring: batch complete",
		zap.Int("succeeded", len(results)),
		zap.Int("failed", len(companyIDs)-len(results)),
	)

	return results, nil
}

// lockCompany acquires the per-company mutex and returns its release
// func. The entry is dropped when the last holder releases.
func (e *Engine) lockCompany(companyID string) func() {
	e.locksMu.Lock()
	cl, ok := e.locks[companyID]
	if !ok {
		cl = &companyLock{}
		e.locks[companyID] = cl
	}
	cl.refs++
	e.locksMu.Unlock()

	cl.mu.Lock()
	return func() {
		cl.mu.Unlock()

		e.locksMu.Lock()
		cl.refs--
		if cl.refs == 0 {
			delete(e.locks, companyID)
		}
		e.locksMu.Unlock()
	}
}
