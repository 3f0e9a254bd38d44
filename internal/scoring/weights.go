// Package scoring implements the composite M&A-likelihood scoring
// engine: per-category component calculators combined under a
// normalized, configurable weight table.
package scoring

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bioma-cli/internal/config"
	"github.com/sells-group/bioma-cli/internal/decay"
)

// Component names. These are the only keys the weight table accepts.
const (
	ComponentPipeline   = "pipeline"
	ComponentPatent     = "patent"
	ComponentFinancial  = "financial"
	ComponentInsider    = "insider"
	ComponentRegulatory = "regulatory"
	ComponentStrategic  = "strategic_fit"
)

// knownComponents guards against typos in config files.
var knownComponents = map[string]bool{
	ComponentPipeline:   true,
	ComponentPatent:     true,
	ComponentFinancial:  true,
	ComponentInsider:    true,
	ComponentRegulatory: true,
	ComponentStrategic:  true,
}

// Weights is the validated, normalizable weight table mapping component
// name to weight, enabled flag, and decay half-life.
type Weights map[string]config.ComponentConfig

// DefaultWeights returns the built-in weight table. Weights sum to 1.0;
// half-lives reflect how quickly each evidence category stales.
func DefaultWeights() Weights {
	return Weights{
		ComponentPipeline:   {Weight: 0.25, Enabled: true, HalfLifeDays: 60},
		ComponentPatent:     {Weight: 0.15, Enabled: true, HalfLifeDays: 90},
		ComponentFinancial:  {Weight: 0.20, Enabled: true, HalfLifeDays: 14},
		ComponentInsider:    {Weight: 0.15, Enabled: true, HalfLifeDays: 30},
		ComponentRegulatory: {Weight: 0.15, Enabled: true, HalfLifeDays: 45},
		ComponentStrategic:  {Weight: 0.10, Enabled: true, HalfLifeDays: 180},
	}
}

// WeightsFromConfig builds a weight table from configuration, falling
// back to defaults when no components are configured. Unknown component
// names and negative weights are configuration errors.
func WeightsFromConfig(cfg config.ScoringConfig) (Weights, error) {
	if len(cfg.Components) == 0 {
		return DefaultWeights(), nil
	}

	w := make(Weights, len(cfg.Components))
	var errs []string
	for name, cc := range cfg.Components {
		if !knownComponents[name] {
			errs = append(errs, fmt.Sprintf("unknown component %q", name))
			continue
		}
		if cc.Weight < 0 {
			errs = append(errs, fmt.Sprintf("%s: weight must be >= 0", name))
		}
		if cc.HalfLifeDays <= 0 {
			errs = append(errs, fmt.Sprintf("%s: half_life_days must be > 0", name))
		}
		w[name] = cc
	}
	if len(errs) > 0 {
		sort.Strings(errs)
		return nil, eris.Errorf("scoring: config validation failed: %s", strings.Join(errs, "; "))
	}
	return w, nil
}

// Normalize returns a copy with enabled weights scaled so they sum to
// 1.0. Fails when the enabled weight sum is zero.
func (w Weights) Normalize() (Weights, error) {
	var sum float64
	for _, cc := range w {
		if cc.Enabled {
			sum += cc.Weight
		}
	}
	if sum <= 0 {
		return nil, eris.New("scoring: enabled weights sum to zero")
	}

	out := make(Weights, len(w))
	for name, cc := range w {
		if cc.Enabled {
			cc.Weight /= sum
		}
		out[name] = cc
	}
	return out, nil
}

// Weight returns the component's weight, or 0 for unknown or disabled
// components.
func (w Weights) Weight(name string) float64 {
	cc, ok := w[name]
	if !ok || !cc.Enabled {
		return 0
	}
	return cc.Weight
}

// HalfLife returns the component's decay half-life in days, or a
// 30-day default for unknown components.
func (w Weights) HalfLife(name string) float64 {
	cc, ok := w[name]
	if !ok || cc.HalfLifeDays <= 0 {
		return 30
	}
	return cc.HalfLifeDays
}

// Decay returns the decay curve for the component.
func (w Weights) Decay(name string) decay.Decay {
	return decay.New(w.HalfLife(name))
}

// Enabled returns the enabled component names in stable order.
func (w Weights) Enabled() []string {
	var names []string
	for name, cc := range w {
		if cc.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Hash returns a short SHA-256 hash of the weight table, stored with
// each score row for reproducibility.
func (w Weights) Hash() string {
	data, err := json.Marshal(w)
	if err != nil {
		return ""
	}
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:16])
}

// clamp100 bounds a score to [0, 100].
func clamp100(v float64) float64 {
	return math.Max(0, math.Min(v, 100))
}
