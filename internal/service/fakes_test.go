package service

import (
	"context"
	"errors"
	"sync"

	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/domain"
	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/ml"
)

var errStore = errors.New("store down")

// fakeStore is an in-memory stand-in for repository.Repos.
type fakeStore struct {
	machines map[string]domain.MachineAverages
	global   domain.MachineAverages
	avgErr   error

	totals     domain.Totals
	byMachine  []domain.MachineEnergy
	byShift    []domain.ShiftEnergy
	inference  []domain.InferenceRow
	totalsErr  error
	listing    []domain.Machine
	latest     []domain.EnergyRecord
	overloads  []domain.EnergyRecord
	series     []domain.PowerSample
	stats      map[string]domain.MachineStats
	totalsHits int

	mu        sync.Mutex
	inserted  []domain.EnergyRecord
	batches   int
	insertErr error
}

func (f *fakeStore) MachineAverages(_ context.Context, id string) (domain.MachineAverages, error) {
	if f.avgErr != nil {
		return domain.MachineAverages{}, f.avgErr
	}
	return f.machines[id], nil
}

func (f *fakeStore) GlobalAverages(context.Context) (domain.MachineAverages, error) {
	if f.avgErr != nil {
		return domain.MachineAverages{}, f.avgErr
	}
	return f.global, nil
}

func (f *fakeStore) Totals(context.Context) (domain.Totals, error) {
	f.mu.Lock()
	f.totalsHits++
	f.mu.Unlock()
	return f.totals, f.totalsErr
}

func (f *fakeStore) EnergyByMachine(context.Context) ([]domain.MachineEnergy, error) {
	return f.byMachine, nil
}

func (f *fakeStore) EnergyByShift(context.Context) ([]domain.ShiftEnergy, error) {
	return f.byShift, nil
}

func (f *fakeStore) InferenceColumns(context.Context, int) ([]domain.InferenceRow, error) {
	return f.inference, nil
}

func (f *fakeStore) ListMachines(context.Context) ([]domain.Machine, error) { return f.listing, nil }

func (f *fakeStore) Latest(_ context.Context, n int) ([]domain.EnergyRecord, error) {
	return f.latest[:min(n, len(f.latest))], nil
}

func (f *fakeStore) Overloads(_ context.Context, _, _ float64, n int) ([]domain.EnergyRecord, error) {
	return f.overloads[:min(n, len(f.overloads))], nil
}

func (f *fakeStore) PowerSeries(context.Context, string, int) ([]domain.PowerSample, error) {
	return f.series, nil
}

func (f *fakeStore) MachineStats(_ context.Context, id string) (domain.MachineStats, error) {
	return f.stats[id], nil
}

func (f *fakeStore) Insert(_ context.Context, rec *domain.EnergyRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, *rec)
	return nil
}

func (f *fakeStore) InsertBatch(_ context.Context, recs []domain.EnergyRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.batches++
	f.inserted = append(f.inserted, recs...)
	return nil
}

// fakePredictor answers every input with fn; a nil fn means "model not found".
type fakePredictor struct {
	fn     func(map[string]any) ml.Prediction
	inputs []map[string]any
}

func (p *fakePredictor) Predict(_ context.Context, in map[string]any) (ml.Prediction, error) {
	p.inputs = append(p.inputs, in)
	if p.fn == nil {
		return ml.Prediction{}, ml.ErrModelNotFound
	}
	return p.fn(in), nil
}

func (p *fakePredictor) PredictBatch(ctx context.Context, ins []map[string]any) ([]ml.Prediction, error) {
	out := make([]ml.Prediction, 0, len(ins))
	for _, in := range ins {
		pred, err := p.Predict(ctx, in)
		if err != nil {
			return nil, err
		}
		out = append(out, pred)
	}
	return out, nil
}

func missingModels() Predictors {
	return Predictors{Anomaly: &fakePredictor{}, Cost: &fakePredictor{}, Efficiency: &fakePredictor{}}
}

func label(l int, score float64) func(map[string]any) ml.Prediction {
	return func(map[string]any) ml.Prediction { return ml.Prediction{Task: ml.TaskAnomaly, Label: l, Score: score} }
}

func value(v float64) func(map[string]any) ml.Prediction {
	return func(map[string]any) ml.Prediction { return ml.Prediction{Value: v} }
}

type fakeAlerter struct {
	alerts []domain.Alert
	err    error
}

func (a *fakeAlerter) Notify(_ context.Context, alert domain.Alert) error {
	a.alerts = append(a.alerts, alert)
	return a.err
}

type mapCache struct {
	mu   sync.Mutex
	data map[string]domain.Dashboard
}

func newMapCache() *mapCache { return &mapCache{data: map[string]domain.Dashboard{}} }

func (c *mapCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.data[key]
	if ok {
		*dst.(*domain.Dashboard) = d
	}
	return ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = v.(domain.Dashboard)
	return nil
}

func (c *mapCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func ptr[T any](v T) *T { return &v }
