// Package decay converts signal age into a time weight. Fresh signals
// inside the recency window get a flat boost; older signals decay
// exponentially by half-life down to a floor.
package decay

import (
	"math"
	"time"
)

const (
	// DefaultRecentBoost is applied to signals younger than the recency window.
	DefaultRecentBoost = 1.5
	// DefaultMinWeight is the floor below which decay never drops.
	DefaultMinWeight = 0.1
	// RecentWindowDays bounds the flat-boost window.
	RecentWindowDays = 7.0
)

// Decay holds the parameters of one decay curve. The zero value is not
// usable; construct with New.
type Decay struct {
	HalfLifeDays float64
	RecentBoost  float64
	MinWeight    float64
}

// New returns a Decay with the given half-life and default boost/floor.
func New(halfLifeDays float64) Decay {
	return Decay{
		HalfLifeDays: halfLifeDays,
		RecentBoost:  DefaultRecentBoost,
		MinWeight:    DefaultMinWeight,
	}
}

// Weight returns the time weight for a signal of the given age in days.
// Ages inside the recency window return the boost regardless of
// half-life; beyond it the weight is exp(-ln2/halfLife * age), floored
// at MinWeight. Negative ages are treated as zero.
func (d Decay) Weight(ageDays float64) float64 {
	if ageDays < 0 {
		ageDays = 0
	}
	if ageDays < RecentWindowDays {
		return d.RecentBoost
	}
	if d.HalfLifeDays <= 0 {
		return d.MinWeight
	}
	w := math.Exp(-math.Ln2 / d.HalfLifeDays * ageDays)
	return math.Max(w, d.MinWeight)
}

// Apply scales a score by the time weight for the given age.
func (d Decay) Apply(score, ageDays float64) float64 {
	return score * d.Weight(ageDays)
}

// AgeDays returns the age of t relative to now, in fractional days.
func AgeDays(t, now time.Time) float64 {
	return now.Sub(t).Hours() / 24
}
