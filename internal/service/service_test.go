package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/domain"
	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/ml"
)

func TestFromMQTT(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantRows  int
		wantBatch int
		wantErr   bool
	}{
		{"single object", `{"machine_id":"M1","power_kw":12.5,"idle_flag":true}`, 1, 0, false},
		{"array", ` [{"machine_id":"M1"},{"machine_id":"M2","energy_kwh":3}]`, 2, 1, false},
		{"empty array", `[]`, 0, 0, false},
		{"garbage", `not json`, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			err := NewReadingService(store, nil).FromMQTT(context.Background(), "energy/records", []byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, store.inserted, tt.wantRows)
			assert.Equal(t, tt.wantBatch, store.batches)
		})
	}
}

func TestIngestInvalidatesDashboard(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name      string
		recs      []domain.EnergyRecord
		storeErr  error
		wantEvict bool
	}{
		{"single record", []domain.EnergyRecord{{}}, nil, true},
		{"batch", []domain.EnergyRecord{{}, {}}, nil, true},
		{"nothing stored", nil, nil, false},
		{"insert fails", []domain.EnergyRecord{{}}, errStore, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := newMapCache()
			require.NoError(t, cache.Set(ctx, dashboardCacheKey, domain.Dashboard{TotalEnergyConsumption: 1}))

			_, err := NewReadingService(&fakeStore{insertErr: tt.storeErr}, cache).Ingest(ctx, tt.recs)
			if tt.storeErr != nil {
				require.ErrorIs(t, err, tt.storeErr)
			} else {
				require.NoError(t, err)
			}
			ok, _ := cache.Get(ctx, dashboardCacheKey, &domain.Dashboard{})
			assert.Equal(t, tt.wantEvict, !ok)
		})
	}
}

func TestDecodeRecordsKeepsNulls(t *testing.T) {
	recs, err := DecodeRecords([]byte(`{"machine_id":"M1","power_kw":null,"load_percent":55}`))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "M1", *recs[0].MachineID)
	assert.Nil(t, recs[0].PowerKW)
	assert.Equal(t, 55.0, *recs[0].LoadPercent)
}

type fakeTrainer struct {
	report ml.TrainReport
	forced []bool
}

func (f *fakeTrainer) EnsureTrained(_ context.Context, force bool) ml.TrainReport {
	f.forced = append(f.forced, force)
	return f.report
}

type countingInvalidator struct{ n int }

func (c *countingInvalidator) Invalidate() { c.n++ }

func TestModelServiceRetrain(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()
	require.NoError(t, cache.Set(ctx, dashboardCacheKey, domain.Dashboard{TotalEnergyConsumption: 1}))
	dashboard := NewDashboardService(&fakeStore{}, missingModels(), cache, 0)

	t.Run("skipped keeps caches", func(t *testing.T) {
		reg := &countingInvalidator{}
		svc := NewModelService(&fakeTrainer{report: ml.TrainReport{Skipped: true}}, reg, dashboard)
		svc.Retrain(ctx, false)
		assert.Zero(t, reg.n)
		ok, _ := cache.Get(ctx, dashboardCacheKey, &domain.Dashboard{})
		assert.True(t, ok)
	})

	t.Run("trained drops caches", func(t *testing.T) {
		reg := &countingInvalidator{}
		trainer := &fakeTrainer{report: ml.TrainReport{Trained: []ml.Task{ml.TaskCost}, Rows: 10}}
		report := NewModelService(trainer, reg, dashboard).Retrain(ctx, true)
		assert.Equal(t, 10, report.Rows)
		assert.Equal(t, []bool{true}, trainer.forced)
		assert.Equal(t, 1, reg.n)
		ok, _ := cache.Get(ctx, dashboardCacheKey, &domain.Dashboard{})
		assert.False(t, ok)
	})
}
