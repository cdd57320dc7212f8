package service

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/domain"
	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/ml"
)

const dashboardCacheKey = "dashboard"

type DashboardStore interface {
	Totals(ctx context.Context) (domain.Totals, error)
	EnergyByMachine(ctx context.Context) ([]domain.MachineEnergy, error)
	EnergyByShift(ctx context.Context) ([]domain.ShiftEnergy, error)
	InferenceColumns(ctx context.Context, limit int) ([]domain.InferenceRow, error)
}

// Cache is a JSON value cache; cache.JSONCache satisfies it.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, keys ...string) error
}

type DashboardService struct {
	store      DashboardStore
	anomaly    ml.Predictor
	efficiency ml.Predictor
	cache      Cache
	// limit caps the rows scored by the model pass; 0 scores everything.
	limit int
}

func NewDashboardService(store DashboardStore, models Predictors, cache Cache, limit int) *DashboardService {
	return &DashboardService{store: store, anomaly: models.Anomaly, efficiency: models.Efficiency, cache: cache, limit: limit}
}

// Dashboard merges the SQL aggregates with the model insight. Only store
// failures in the SQL pass are returned.
func (s *DashboardService) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	var d domain.Dashboard
	if s.cache != nil {
		ok, err := s.cache.Get(ctx, dashboardCacheKey, &d)
		if err != nil {
			log.Warn().Err(err).Msg("dashboard cache read failed")
		}
		if ok {
			return d, nil
		}
	}

	var (
		totals   domain.Totals
		machines []domain.MachineEnergy
		shifts   []domain.ShiftEnergy
		insight  domain.ModelInsight
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		if totals, err = s.store.Totals(gctx); err != nil {
			return fmt.Errorf("totals: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if machines, err = s.store.EnergyByMachine(gctx); err != nil {
			return fmt.Errorf("energy by machine: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if shifts, err = s.store.EnergyByShift(gctx); err != nil {
			return fmt.Errorf("energy by shift: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		insight = s.ModelInsight(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.Dashboard{}, err
	}

	if machines == nil {
		machines = []domain.MachineEnergy{}
	}
	if shifts == nil {
		shifts = []domain.ShiftEnergy{}
	}
	d = domain.Dashboard{
		TotalEnergyConsumption:    totals.TotalEnergy,
		TotalEnergyCost:           totals.TotalCost,
		AverageEfficiency:         totals.AverageEfficiency,
		AverageEfficiencyTrue:     totals.AverageEfficiency,
		TotalAnomalies:            totals.TotalAnomalies,
		AnomalyCount:              insight.AnomalyCount,
		MachineEnergyDistribution: machines,
		ShiftEnergyDistribution:   shifts,
	}
	if insight.AverageEfficiencyML > 0 {
		d.AverageEfficiency = insight.AverageEfficiencyML
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardCacheKey, d); err != nil {
			log.Warn().Err(err).Msg("dashboard cache write failed")
		}
	}
	return d, nil
}

// Invalidate drops the cached dashboard.
func (s *DashboardService) Invalidate(ctx context.Context) {
	invalidateDashboard(ctx, s.cache)
}

func invalidateDashboard(ctx context.Context, c Cache) {
	if c == nil {
		return
	}
	if err := c.Delete(ctx, dashboardCacheKey); err != nil {
		log.Warn().Err(err).Msg("dashboard cache invalidation failed")
	}
}

// ModelInsight scores every stored row with the anomaly and efficiency models.
// Any failure yields the zero insight.
func (s *DashboardService) ModelInsight(ctx context.Context) domain.ModelInsight {
	insight, err := s.modelInsight(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("model insight unavailable")
		return domain.ModelInsight{}
	}
	return insight
}

func (s *DashboardService) modelInsight(ctx context.Context) (out domain.ModelInsight, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model insight panicked: %v", r)
		}
	}()

	rows, err := s.store.InferenceColumns(ctx, s.limit)
	if err != nil {
		return out, err
	}
	if len(rows) == 0 {
		return out, nil
	}
	inputs := ImputeMedians(rows)

	labels, err := s.anomaly.PredictBatch(ctx, inputs)
	if err != nil {
		return out, fmt.Errorf("anomaly batch: %w", err)
	}
	effs, err := s.efficiency.PredictBatch(ctx, inputs)
	if err != nil {
		return out, fmt.Errorf("efficiency batch: %w", err)
	}

	for _, p := range labels {
		if p.Anomalous() {
			out.AnomalyCount++
		}
	}
	var sum float64
	for _, p := range effs {
		sum += ml.Clip01(p.Value)
	}
	out.AverageEfficiencyML = sum / float64(len(effs))
	return out, nil
}

// ImputeMedians turns inference rows into model inputs, replacing nulls with
// the column median (0 when a column has no values).
func ImputeMedians(rows []domain.InferenceRow) []map[string]any {
	names := []string{"power_kw", "load_percent", "temperature", "downtime_minutes", "power_factor", "energy_kwh"}
	cols := make([][]float64, len(names))
	for _, r := range rows {
		for i, v := range []*float64{r.PowerKW, r.LoadPercent, r.Temperature, r.DowntimeMinutes, r.PowerFactor, r.EnergyKWh} {
			if v == nil {
				cols[i] = append(cols[i], math.NaN())
			} else {
				cols[i] = append(cols[i], *v)
			}
		}
	}
	medians := make([]float64, len(names))
	for i := range names {
		medians[i], _ = ml.Median(cols[i])
	}

	out := make([]map[string]any, len(rows))
	for j := range rows {
		in := make(map[string]any, len(names))
		for i, name := range names {
			v := cols[i][j]
			if math.IsNaN(v) {
				v = medians[i]
			}
			in[name] = v
		}
		out[j] = in
	}
	return out
}
