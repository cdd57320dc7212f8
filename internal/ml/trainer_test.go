package ml

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frameFunc func(ctx context.Context) (*Frame, error)

func (f frameFunc) LoadFrame(ctx context.Context) (*Frame, error) { return f(ctx) }

func sampleFrame(t *testing.T, rows int) *Frame {
	t.Helper()
	f := NewFrame(rows)
	cols := map[string]func(i int) float64{
		"id":                 func(i int) float64 { return float64(i + 1) },
		"power_kw":           func(i int) float64 { return 10 + float64(i%5) },
		"energy_kwh":         func(i int) float64 { return 5 + float64(i%3) },
		"electricity_tariff": func(i int) float64 { return 2 + float64(i%2) },
		"production_output":  func(i int) float64 { return float64(i % 4) },
		"load_percent":       func(i int) float64 { return 60 + float64(i%7) },
	}
	for _, name := range []string{"id", "power_kw", "energy_kwh", "electricity_tariff", "production_output", "load_percent"} {
		values := make([]float64, rows)
		for i := range values {
			values[i] = cols[name](i)
		}
		require.NoError(t, f.AddColumn(name, values))
	}
	return f
}

func TestCostTargetDerived(t *testing.T) {
	f := sampleFrame(t, 12)
	y, err := CostTarget(f)
	require.NoError(t, err)

	energy, _ := f.Column("energy_kwh")
	tariff, _ := f.Column("electricity_tariff")
	for i := range y {
		assert.Equal(t, energy[i]*tariff[i], y[i])
	}
}

func TestCostTargetPrefersColumn(t *testing.T) {
	f := sampleFrame(t, 3)
	require.NoError(t, f.AddColumn("energy_cost", []float64{1, math.NaN(), 3}))
	y, err := CostTarget(f)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 3}, y)
}

func TestCostTargetMissingColumns(t *testing.T) {
	f := NewFrame(1)
	require.NoError(t, f.AddColumn("power_kw", []float64{1}))
	_, err := CostTarget(f)
	var tde *TrainingDataError
	assert.True(t, errors.As(err, &tde))
	assert.Equal(t, TaskCost, tde.Task)
}

func TestEfficiencyTargetGuards(t *testing.T) {
	f := NewFrame(4)
	require.NoError(t, f.AddColumn("production_output", []float64{10, 5, math.NaN(), 3}))
	require.NoError(t, f.AddColumn("energy_kwh", []float64{5, 0, 2, math.NaN()}))
	y, err := EfficiencyTarget(f)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 0, 0, 0}, y)
}

func TestEnsureTrainedWritesAllBundles(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	frame := sampleFrame(t, 40)
	tr := NewTrainer(frameFunc(func(context.Context) (*Frame, error) { return frame, nil }), store, TrainerConfig{Trees: 10, Seed: 42})

	report := tr.EnsureTrained(ctx, false)
	assert.False(t, report.Skipped)
	assert.ElementsMatch(t, Tasks, report.Trained)
	assert.Empty(t, report.Failed)
	assert.Equal(t, 40, report.Rows)

	reg := NewRegistry(store)
	cost, err := reg.Load(ctx, TaskCost)
	require.NoError(t, err)
	assert.NotContains(t, cost.Features, "id")
	assert.NotContains(t, cost.Features, "energy_cost")
	assert.Equal(t, len(cost.Features), cost.Model.InputWidth())

	anomaly, err := reg.Load(ctx, TaskAnomaly)
	require.NoError(t, err)
	assert.Equal(t, []string{"power_kw", "energy_kwh", "electricity_tariff", "production_output", "load_percent"}, anomaly.Features)
	assert.InDelta(t, 12.0, anomaly.FeatureMeans["power_kw"], 1e-9)
}

func TestEnsureTrainedSkipsWhenPresent(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	frame := sampleFrame(t, 20)
	loads := 0
	src := frameFunc(func(context.Context) (*Frame, error) { loads++; return frame, nil })
	tr := NewTrainer(src, store, TrainerConfig{Trees: 5, Seed: 1})

	tr.EnsureTrained(ctx, false)
	before := map[string]string{}
	for k, v := range store.data {
		before[k] = string(v)
	}

	report := tr.EnsureTrained(ctx, false)
	assert.True(t, report.Skipped)
	assert.Equal(t, 1, loads)
	for k, v := range store.data {
		assert.Equal(t, before[k], string(v), "artifact %s changed", k)
	}

	report = tr.EnsureTrained(ctx, true)
	assert.False(t, report.Skipped)
	assert.Equal(t, 2, loads)
}

func TestEnsureTrainedEmptyStoreDoesNotFail(t *testing.T) {
	store := newMemStore()
	tr := NewTrainer(frameFunc(func(context.Context) (*Frame, error) { return NewFrame(0), nil }), store, TrainerConfig{Trees: 5})

	report := tr.EnsureTrained(context.Background(), false)
	assert.Empty(t, report.Trained)
	assert.Len(t, report.Failed, 3)
	assert.Empty(t, store.data)
}

func TestEnsureTrainedSourceError(t *testing.T) {
	tr := NewTrainer(frameFunc(func(context.Context) (*Frame, error) { return nil, errors.New("connection refused") }), newMemStore(), TrainerConfig{})
	report := tr.EnsureTrained(context.Background(), true)
	assert.Len(t, report.Failed, 3)
}

func TestEnsureTrainedPartialFailure(t *testing.T) {
	// No tariff and no production columns: only the anomaly task can train.
	f := NewFrame(10)
	require.NoError(t, f.AddColumn("power_kw", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}))
	store := newMemStore()
	tr := NewTrainer(frameFunc(func(context.Context) (*Frame, error) { return f, nil }), store, TrainerConfig{Trees: 5})

	report := tr.EnsureTrained(context.Background(), false)
	assert.Equal(t, []Task{TaskAnomaly}, report.Trained)
	assert.Contains(t, report.Failed, TaskCost)
	assert.Contains(t, report.Failed, TaskEfficiency)
	assert.Len(t, store.data, 1)
}
