package ml

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedLoader map[Task]*Bundle

func (f fixedLoader) Load(_ context.Context, task Task) (*Bundle, error) {
	b, ok := f[task]
	if !ok {
		return nil, ErrModelNotFound
	}
	return b, nil
}

// constRegressor always predicts v.
type constRegressor struct {
	v     float64
	width int
}

func (c constRegressor) Kind() string                { return "const" }
func (c constRegressor) InputWidth() int             { return c.width }
func (c constRegressor) Predict(_ []float64) float64 { return c.v }

func oneFeature(task Task, model Estimator) *Bundle {
	return &Bundle{Task: task, Model: model, Features: []string{"x"}, FeatureMeans: map[string]float64{"x": 0}}
}

func TestCostPredictorNeverNegative(t *testing.T) {
	p := NewCostPredictor(fixedLoader{TaskCost: oneFeature(TaskCost, constRegressor{v: -12, width: 1})}, NewResolver(nil))
	got, err := p.Predict(context.Background(), map[string]any{"x": 1.0})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.Value)
}

func TestCostPredictorRejectsNonFinite(t *testing.T) {
	b := &Bundle{
		Task:         TaskCost,
		Model:        &LinearRegression{Coef: []float64{1, -1}},
		Features:     []string{"power_kw", "load_percent"},
		FeatureMeans: map[string]float64{},
	}
	p := NewCostPredictor(fixedLoader{TaskCost: b}, NewResolver(nil))

	tests := []struct {
		name  string
		input map[string]any
	}{
		{"inf minus inf", map[string]any{"power_kw": math.Inf(1), "load_percent": math.Inf(1)}},
		{"positive inf", map[string]any{"power_kw": math.Inf(1), "load_percent": 0.0}},
		{"nan input", map[string]any{"power_kw": math.NaN(), "load_percent": 1.0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Predict(context.Background(), tt.input)
			assert.ErrorIs(t, err, ErrNonFinite)
		})
	}
}

func TestEfficiencyPredictorClips(t *testing.T) {
	for _, raw := range []float64{-3, 0.4, 7} {
		p := NewEfficiencyPredictor(fixedLoader{TaskEfficiency: oneFeature(TaskEfficiency, constRegressor{v: raw, width: 1})}, NewResolver(nil))
		got, err := p.Predict(context.Background(), nil)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got.Value, 0.0)
		assert.LessOrEqual(t, got.Value, 1.0)
	}
}

func TestPredictorWidthMismatch(t *testing.T) {
	p := NewCostPredictor(fixedLoader{TaskCost: oneFeature(TaskCost, constRegressor{v: 1, width: 3})}, NewResolver(nil))
	_, err := p.Predict(context.Background(), nil)
	assert.ErrorIs(t, err, ErrFeatureWidth)
}

func TestPredictorModelMissing(t *testing.T) {
	p := NewAnomalyPredictor(fixedLoader{}, NewResolver(nil))
	_, err := p.Predict(context.Background(), nil)
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestAnomalyPredictorRejectsRegressor(t *testing.T) {
	p := NewAnomalyPredictor(fixedLoader{TaskAnomaly: oneFeature(TaskAnomaly, constRegressor{width: 1})}, NewResolver(nil))
	_, err := p.Predict(context.Background(), nil)
	assert.Error(t, err)
}

func TestAnomalyPredictorBatch(t *testing.T) {
	forest, err := FitIsolationForest(context.Background(), clusterWithOutlier(), 100, 42)
	require.NoError(t, err)
	b := &Bundle{
		Task:         TaskAnomaly,
		Model:        forest,
		Features:     []string{"power_kw", "load_percent"},
		FeatureMeans: map[string]float64{"power_kw": 10, "load_percent": 50},
	}
	p := NewAnomalyPredictor(fixedLoader{TaskAnomaly: b}, NewResolver(nil))

	out, err := p.PredictBatch(context.Background(), []map[string]any{
		{"power_kw": 40.0, "load_percent": 5.0},
		{},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, out[0].Anomalous())
	assert.False(t, out[1].Anomalous())
	for _, p := range out {
		assert.Equal(t, p.Score < 0, p.Anomalous())
	}
}

func TestLegacyBundleDerivedOncePerBatch(t *testing.T) {
	src := &staticMeans{means: map[string]float64{"power_kw": 10, "load_percent": 50, "temperature": 40}}
	resolver := NewResolver(src)
	b := &Bundle{Task: TaskEfficiency, Model: constRegressor{v: 0.5, width: 2}}
	p := NewEfficiencyPredictor(fixedLoader{TaskEfficiency: b}, resolver)

	inputs := make([]map[string]any, 500)
	for i := range inputs {
		inputs[i] = map[string]any{"load_percent": float64(i)}
	}
	out, err := p.PredictBatch(context.Background(), inputs)
	require.NoError(t, err)
	assert.Len(t, out, 500)
	assert.Equal(t, 1, resolver.derived)

	_, err = p.PredictBatch(context.Background(), inputs[:10])
	require.NoError(t, err)
	assert.Equal(t, 1, resolver.derived)
	assert.Equal(t, 1, src.calls)
}
