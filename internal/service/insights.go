package service

import (
	"context"

	"github.com/ANIKETSHETTY47/energy-grid-analytics-go/aggregator"
	"github.com/ANIKETSHETTY47/energy-grid-analytics-go/anomaly"
	"github.com/ANIKETSHETTY47/energy-grid-analytics-go/converter"

	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/domain"
)

// Alert thresholds for raw telemetry.
const (
	HighPowerKW        = 80.0
	OverloadLoadPct    = 90.0
	defaultListLimit   = 10
	movingAvgWindow    = 12
	powerSeriesLength  = 96
	nextHourGrowthRate = 1.1
)

type InsightsStore interface {
	ListMachines(ctx context.Context) ([]domain.Machine, error)
	Latest(ctx context.Context, n int) ([]domain.EnergyRecord, error)
	Overloads(ctx context.Context, powerKW, loadPercent float64, n int) ([]domain.EnergyRecord, error)
	PowerSeries(ctx context.Context, machineID string, n int) ([]domain.PowerSample, error)
	GlobalAverages(ctx context.Context) (domain.MachineAverages, error)
	Totals(ctx context.Context) (domain.Totals, error)
}

// InsightsService serves the raw-telemetry views that need no trained model.
type InsightsService struct {
	store InsightsStore
	conv  *converter.EnergyConverter
}

func NewInsightsService(store InsightsStore) *InsightsService {
	return &InsightsService{store: store, conv: &converter.EnergyConverter{}}
}

func (s *InsightsService) Machines(ctx context.Context) ([]domain.Machine, error) {
	return s.store.ListMachines(ctx)
}

// Live returns the n most recent readings; n <= 0 means 10.
func (s *InsightsService) Live(ctx context.Context, n int) ([]domain.EnergyRecord, error) {
	if n <= 0 {
		n = defaultListLimit
	}
	return s.store.Latest(ctx, n)
}

func (s *InsightsService) Summary(ctx context.Context) (domain.Summary, error) {
	totals, err := s.store.Totals(ctx)
	if err != nil {
		return domain.Summary{}, err
	}
	avg, err := s.store.GlobalAverages(ctx)
	if err != nil {
		return domain.Summary{}, err
	}
	series, err := s.store.PowerSeries(ctx, "", powerSeriesLength)
	if err != nil {
		return domain.Summary{}, err
	}

	out := domain.Summary{
		TotalEnergyKWh:     round(totals.TotalEnergy, 2),
		TotalEnergyMWh:     round(s.conv.KWhToMWh(totals.TotalEnergy), 4),
		AvgPowerKW:         round(avg.PowerKW, 2),
		AvgLoadPercent:     round(avg.LoadPercent, 2),
		PowerMovingAverage: []float64{},
	}
	if len(series) == 0 {
		return out, nil
	}

	points := make([]aggregator.Point, len(series))
	readings := make([]anomaly.Reading, len(series))
	for i, p := range series {
		points[i] = aggregator.Point{Value: p.PowerKW, Timestamp: p.Timestamp}
		readings[i] = anomaly.Reading{Consumption: p.PowerKW}
	}
	window := min(movingAvgWindow, len(points))
	if ma := aggregator.MovingAverage(points, window); ma != nil {
		out.PowerMovingAverage = ma
	}

	detector := &anomaly.AnomalyDetector{Threshold: 2.0, WindowSize: 3}
	out.PowerSpikes = len(detector.DetectSpikes(readings))
	out.PowerOutliers = len(detector.DetectOutliers(readings))
	return out, nil
}

// Alerts lists up to n threshold breaches; n <= 0 means 10.
func (s *InsightsService) Alerts(ctx context.Context, n int) ([]domain.MachineAlert, error) {
	if n <= 0 {
		n = defaultListLimit
	}
	recs, err := s.store.Overloads(ctx, HighPowerKW, OverloadLoadPct, n)
	if err != nil {
		return nil, err
	}
	out := make([]domain.MachineAlert, 0, len(recs))
	for _, r := range recs {
		a := domain.MachineAlert{MachineID: "Unknown"}
		if r.MachineID != nil {
			a.MachineID = *r.MachineID
		}
		if r.PowerKW != nil {
			a.PowerKW = *r.PowerKW
		}
		if r.LoadPercent != nil {
			a.LoadPercent = *r.LoadPercent
		}
		switch {
		case a.PowerKW > HighPowerKW:
			a.Message = "High Power Consumption"
		case a.LoadPercent > OverloadLoadPct:
			a.Message = "Machine Overloaded"
		}
		out = append(out, a)
	}
	return out, nil
}

// NextHourPrediction is the baseline forecast: average energy per reading plus 10%.
func (s *InsightsService) NextHourPrediction(ctx context.Context) (domain.HourlyPrediction, error) {
	avg, err := s.store.GlobalAverages(ctx)
	if err != nil {
		return domain.HourlyPrediction{}, err
	}
	return domain.HourlyPrediction{PredictedNextHourKWh: round(avg.EnergyKWh*nextHourGrowthRate, 2)}, nil
}
