package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/cloud"
	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/domain"
	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/metrics"
	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/ml"
)

var (
	ErrMissingMachineID = errors.New("machine_id is required")
	ErrNegativeHours    = errors.New("on_time_hours and off_time_hours must be >= 0")
)

// restPenaltyMinutes is added to the downtime input when a machine rests
// for less than restThresholdHours between runs.
const (
	restPenaltyMinutes = 10.0
	restThresholdHours = 4.0
)

type AveragesStore interface {
	MachineAverages(ctx context.Context, machineID string) (domain.MachineAverages, error)
	GlobalAverages(ctx context.Context) (domain.MachineAverages, error)
}

// Alerter receives anomaly alerts. cloud.Fanout satisfies it.
type Alerter interface {
	Notify(ctx context.Context, alert domain.Alert) error
}

// Predictors groups the three task models.
type Predictors struct {
	Anomaly    ml.Predictor
	Cost       ml.Predictor
	Efficiency ml.Predictor
}

type AnalysisService struct {
	store   AveragesStore
	models  Predictors
	alerter Alerter
}

// NewAnalysisService builds the service; a nil alerter disables anomaly alerts.
func NewAnalysisService(store AveragesStore, models Predictors, alerter Alerter) *AnalysisService {
	return &AnalysisService{store: store, models: models, alerter: alerter}
}

// Analyze projects one machine's behaviour over the planned schedule. Each
// model degrades to its own heuristic on failure, so the other models' outputs
// are kept; only store failures and invalid input are returned as errors.
func (s *AnalysisService) Analyze(ctx context.Context, machineID string, onHours, offHours float64) (domain.AnalysisResult, error) {
	if machineID == "" {
		return domain.AnalysisResult{}, ErrMissingMachineID
	}
	if onHours < 0 || offHours < 0 || math.IsNaN(onHours) || math.IsNaN(offHours) {
		return domain.AnalysisResult{}, ErrNegativeHours
	}

	avg, err := s.averages(ctx, machineID)
	if err != nil {
		return domain.AnalysisResult{}, err
	}

	estimated := finite(math.Max(0, avg.PowerKW) * onHours)
	res := domain.AnalysisResult{
		MachineID:       machineID,
		AnomalyStatus:   domain.StatusNormal,
		EstimatedEnergy: round(estimated, 2),
		EnergyWasted:    round(finite(WastedEnergy(avg, onHours)), 2),
	}

	anomaly, err := s.models.Anomaly.Predict(ctx, map[string]any{
		"power_kw":         avg.PowerKW,
		"load_percent":     avg.LoadPercent,
		"temperature":      avg.Temperature,
		"downtime_minutes": avg.DowntimeMinutes,
		"power_factor":     avg.PowerFactor,
		"energy_kwh":       avg.EnergyKWh,
	})
	if err != nil {
		fallback(ml.TaskAnomaly, machineID, err)
	} else {
		res.AnomalyScore = anomaly.Score
		if anomaly.Anomalous() {
			res.AnomalyStatus = domain.StatusAnomaly
		}
	}

	cost := estimated * avg.ElectricityTariff
	pred, err := s.models.Cost.Predict(ctx, map[string]any{
		"power_kw":           avg.PowerKW,
		"load_percent":       avg.LoadPercent,
		"on_time_hours":      onHours,
		"electricity_tariff": avg.ElectricityTariff,
	})
	if err != nil {
		fallback(ml.TaskCost, machineID, err)
	} else {
		cost = pred.Value
	}
	res.PredictedCost = int64(math.RoundToEven(math.Max(0, finite(cost))))

	downtime := avg.DowntimeMinutes
	if offHours < restThresholdHours {
		downtime += restPenaltyMinutes
	}
	eff, err := s.models.Efficiency.Predict(ctx, map[string]any{
		"load_percent":     avg.LoadPercent,
		"downtime_minutes": downtime,
		"temperature":      avg.Temperature,
		"power_factor":     avg.PowerFactor,
	})
	if err != nil {
		fallback(ml.TaskEfficiency, machineID, err)
	} else {
		res.EfficiencyScore = round(ml.Clip01(eff.Value), 4)
	}

	if res.AnomalyStatus == domain.StatusAnomaly {
		s.raise(ctx, res)
	}
	return res, nil
}

func (s *AnalysisService) averages(ctx context.Context, machineID string) (domain.MachineAverages, error) {
	avg, err := s.store.MachineAverages(ctx, machineID)
	if err != nil {
		return avg, fmt.Errorf("machine averages: %w", err)
	}
	if !avg.Found {
		log.Debug().Str("machine_id", machineID).Msg("no rows for machine; using global averages")
		if avg, err = s.store.GlobalAverages(ctx); err != nil {
			return avg, fmt.Errorf("global averages: %w", err)
		}
	}
	avg.IdleRate = ml.Clip01(avg.IdleRate)
	return avg, nil
}

func (s *AnalysisService) raise(ctx context.Context, res domain.AnalysisResult) {
	if s.alerter == nil {
		return
	}
	if err := s.alerter.Notify(ctx, cloud.NewAnomalyAlert(res)); err != nil {
		log.Warn().Err(err).Str("machine_id", res.MachineID).Msg("anomaly alert delivery failed")
	}
}

// WastedEnergy scales the machine's average idle energy to the requested
// runtime. The implied average run length is energy/power, floored at 0.1h.
func WastedEnergy(avg domain.MachineAverages, onHours float64) float64 {
	avgOn := 1.0
	if avg.PowerKW > 0 {
		avgOn = avg.EnergyKWh / avg.PowerKW
	}
	avgOn = math.Max(avgOn, 0.1)
	return avg.IdleRate * avg.EnergyKWh * (onHours / avgOn)
}

func fallback(task ml.Task, machineID string, err error) {
	metrics.RecordFallback(string(task))
	log.Warn().Err(err).Str("task", string(task)).Str("machine_id", machineID).Msg("model unavailable; using fallback")
}

// finite maps NaN and infinities to 0.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
