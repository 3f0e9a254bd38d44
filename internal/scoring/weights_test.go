package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bioma-cli/internal/config"
)

func TestDefaultWeightsSumToOne(t *testing.T) {
	w := DefaultWeights()
	var sum float64
	for _, cc := range w {
		require.True(t, cc.Enabled)
		sum += cc.Weight
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestWeightsFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.ScoringConfig
		wantErr string
	}{
		{
			name: "empty config falls back to defaults",
			cfg:  config.ScoringConfig{},
		},
		{
			name: "unknown component rejected",
			cfg: config.ScoringConfig{Components: map[string]config.ComponentConfig{
				"sentiment": {Weight: 0.5, Enabled: true, HalfLifeDays: 30},
			}},
			wantErr: "unknown component",
		},
		{
			name: "negative weight rejected",
			cfg: config.ScoringConfig{Components: map[string]config.ComponentConfig{
				ComponentPipeline: {Weight: -0.1, Enabled: true, HalfLifeDays: 30},
			}},
			wantErr: "weight must be >= 0",
		},
		{
			name: "non-positive half-life rejected",
			cfg: config.ScoringConfig{Components: map[string]config.ComponentConfig{
				ComponentPatent: {Weight: 0.5, Enabled: true},
			}},
			wantErr: "half_life_days must be > 0",
		},
		{
			name: "valid custom table",
			cfg: config.ScoringConfig{Components: map[string]config.ComponentConfig{
				ComponentPipeline:  {Weight: 0.7, Enabled: true, HalfLifeDays: 30},
				ComponentFinancial: {Weight: 0.3, Enabled: true, HalfLifeDays: 14},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := WeightsFromConfig(tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotEmpty(t, w)
		})
	}
}

func TestNormalize(t *testing.T) {
	w := Weights{
		ComponentPipeline:  {Weight: 2, Enabled: true, HalfLifeDays: 60},
		ComponentFinancial: {Weight: 2, Enabled: true, HalfLifeDays: 14},
		ComponentInsider:   {Weight: 99, Enabled: false, HalfLifeDays: 30},
	}
	n, err := w.Normalize()
	require.NoError(t, err)

	assert.InDelta(t, 0.5, n.Weight(ComponentPipeline), 1e-9)
	assert.InDelta(t, 0.5, n.Weight(ComponentFinancial), 1e-9)
	// Disabled components contribute nothing regardless of raw weight.
	assert.Zero(t, n.Weight(ComponentInsider))
}

func TestNormalizeZeroSum(t *testing.T) {
	w := Weights{
		ComponentPipeline: {Weight: 0.5, Enabled: false, HalfLifeDays: 60},
	}
	_, err := w.Normalize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to zero")
}

func TestHashTracksWeightChanges(t *testing.T) {
	a := DefaultWeights()
	b := DefaultWeights()
	assert.Equal(t, a.Hash(), b.Hash())
	assert.Len(t, a.Hash(), 32)

	cc := b[ComponentPipeline]
	cc.Weight = 0.99
	b[ComponentPipeline] = cc
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestHalfLifeDefault(t *testing.T) {
	w := Weights{}
	assert.Equal(t, 30.0, w.HalfLife("missing"))
}

func TestClamp100(t *testing.T) {
	assert.Equal(t, 0.0, clamp100(-5))
	assert.Equal(t, 100.0, clamp100(140))
	assert.Equal(t, 55.5, clamp100(55.5))
}
