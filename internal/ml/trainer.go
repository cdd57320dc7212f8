package ml

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/metrics"
)

const (
	colEnergyCost = "energy_cost"
	colEfficiency = "efficiency"
	colEnergy     = "energy_kwh"
	colTariff     = "electricity_tariff"
	colProduction = "production_output"
)

// FrameSource loads the full record store as a numeric frame.
type FrameSource interface {
	LoadFrame(ctx context.Context) (*Frame, error)
}

type TrainerConfig struct {
	Trees    int
	Seed     int64
	MaxDepth int
}

// TrainReport summarises one EnsureTrained call.
type TrainReport struct {
	Skipped bool            `json:"skipped"`
	Trained []Task          `json:"trained"`
	Failed  map[Task]string `json:"failed"`
	Rows    int             `json:"rows"`
}

type Trainer struct {
	source FrameSource
	store  ArtifactStore
	cfg    TrainerConfig
	now    func() time.Time
}

func NewTrainer(source FrameSource, store ArtifactStore, cfg TrainerConfig) *Trainer {
	if cfg.Trees <= 0 {
		cfg.Trees = 250
	}
	return &Trainer{source: source, store: store, cfg: cfg, now: time.Now}
}

// EnsureTrained fits and stores the three bundles unless all artifacts already
// exist and force is false. Failures are logged and reported, never returned:
// a process without models still serves raw aggregates.
func (t *Trainer) EnsureTrained(ctx context.Context, force bool) TrainReport {
	report := TrainReport{Failed: map[Task]string{}}

	if !force && t.allExist(ctx) {
		log.Info().Msg("ML models already exist; skipping training")
		report.Skipped = true
		return report
	}

	frame, err := t.source.LoadFrame(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("skipping ML training: record store unavailable")
		for _, task := range Tasks {
			report.Failed[task] = err.Error()
		}
		return report
	}
	report.Rows = frame.Len()
	log.Info().Int("rows", frame.Len()).Bool("force", force).Msg("training ML models")

	for _, task := range Tasks {
		err := t.trainOne(ctx, task, frame)
		metrics.RecordTraining(string(task), err)
		if err != nil {
			log.Warn().Err(err).Str("task", string(task)).Msg("model training failed")
			report.Failed[task] = err.Error()
			continue
		}
		report.Trained = append(report.Trained, task)
	}
	log.Info().Int("trained", len(report.Trained)).Int("failed", len(report.Failed)).Msg("ML training finished")
	return report
}

func (t *Trainer) allExist(ctx context.Context) bool {
	for _, task := range Tasks {
		ok, err := t.store.Exists(ctx, task.ArtifactName())
		if err != nil {
			log.Warn().Err(err).Str("task", string(task)).Msg("artifact existence check failed")
			return false
		}
		if !ok {
			return false
		}
	}
	return true
}

func (t *Trainer) trainOne(ctx context.Context, task Task, frame *Frame) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s training panicked: %v", task, r)
		}
	}()

	var b *Bundle
	switch task {
	case TaskAnomaly:
		b, err = t.TrainAnomaly(ctx, frame)
	case TaskCost:
		b, err = t.TrainCost(frame)
	case TaskEfficiency:
		b, err = t.TrainEfficiency(ctx, frame)
	default:
		return fmt.Errorf("unknown task %q", task)
	}
	if err != nil {
		return err
	}
	data, err := EncodeBundle(b)
	if err != nil {
		return err
	}
	if err := t.store.Write(ctx, task.ArtifactName(), data); err != nil {
		return fmt.Errorf("write %s: %w", task.ArtifactName(), err)
	}
	return nil
}

// TrainAnomaly fits an isolation forest over every numeric non-identifier column.
func (t *Trainer) TrainAnomaly(ctx context.Context, frame *Frame) (*Bundle, error) {
	if frame.Len() == 0 {
		return nil, &TrainingDataError{Task: TaskAnomaly, Reason: "no records"}
	}
	features := featureColumns(frame)
	if len(features) == 0 {
		return nil, &TrainingDataError{Task: TaskAnomaly, Reason: "no numeric feature columns"}
	}
	means := subset(frame.Means(), features)
	model, err := FitIsolationForest(ctx, frame.Matrix(features, means), t.cfg.Trees, t.cfg.Seed)
	if err != nil {
		return nil, err
	}
	return t.bundle(TaskAnomaly, model, features, means, frame.Len()), nil
}

// TrainCost fits OLS on energy_cost, or on energy_kwh × electricity_tariff
// when no cost column exists.
func (t *Trainer) TrainCost(frame *Frame) (*Bundle, error) {
	if frame.Len() == 0 {
		return nil, &TrainingDataError{Task: TaskCost, Reason: "no records"}
	}
	y, err := CostTarget(frame)
	if err != nil {
		return nil, err
	}
	features := featureColumns(frame, colEnergyCost)
	means := subset(frame.Means(), features)
	model, err := FitLinearRegression(frame.Matrix(features, means), y)
	if err != nil {
		return nil, err
	}
	return t.bundle(TaskCost, model, features, means, frame.Len()), nil
}

// TrainEfficiency fits a random forest on efficiency, or on
// production_output ÷ energy_kwh when no efficiency column exists.
func (t *Trainer) TrainEfficiency(ctx context.Context, frame *Frame) (*Bundle, error) {
	if frame.Len() == 0 {
		return nil, &TrainingDataError{Task: TaskEfficiency, Reason: "no records"}
	}
	y, err := EfficiencyTarget(frame)
	if err != nil {
		return nil, err
	}
	features := featureColumns(frame, colEfficiency)
	means := subset(frame.Means(), features)
	model, err := FitRandomForest(ctx, frame.Matrix(features, means), y, t.cfg.Trees, t.cfg.MaxDepth, t.cfg.Seed)
	if err != nil {
		return nil, err
	}
	return t.bundle(TaskEfficiency, model, features, means, frame.Len()), nil
}

func (t *Trainer) bundle(task Task, model Estimator, features []string, means map[string]float64, rows int) *Bundle {
	return &Bundle{
		Task:         task,
		Model:        model,
		Features:     features,
		FeatureMeans: means,
		TrainedAt:    t.now().UTC(),
		Rows:         rows,
	}
}

// CostTarget returns the per-row cost target. Null inputs count as 0.
func CostTarget(frame *Frame) ([]float64, error) {
	if cost, ok := frame.Column(colEnergyCost); ok {
		return zeroNaN(cost), nil
	}
	energy, okE := frame.Column(colEnergy)
	tariff, okT := frame.Column(colTariff)
	if !okE || !okT {
		return nil, &TrainingDataError{Task: TaskCost, Reason: "need energy_cost or both energy_kwh and electricity_tariff"}
	}
	y := make([]float64, frame.Len())
	for i := range y {
		y[i] = zero(energy[i]) * zero(tariff[i])
	}
	return y, nil
}

// EfficiencyTarget returns the per-row efficiency target. Zero energy and
// non-finite ratios map to 0.
func EfficiencyTarget(frame *Frame) ([]float64, error) {
	if eff, ok := frame.Column(colEfficiency); ok {
		return zeroNaN(eff), nil
	}
	prod, okP := frame.Column(colProduction)
	energy, okE := frame.Column(colEnergy)
	if !okP || !okE {
		return nil, &TrainingDataError{Task: TaskEfficiency, Reason: "need efficiency or both production_output and energy_kwh"}
	}
	y := make([]float64, frame.Len())
	for i := range y {
		if energy[i] == 0 || math.IsNaN(energy[i]) {
			continue
		}
		v := prod[i] / energy[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		y[i] = v
	}
	return y, nil
}

func subset(means map[string]float64, keys []string) map[string]float64 {
	out := make(map[string]float64, len(keys))
	for _, k := range keys {
		out[k] = means[k]
	}
	return out
}

func zero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func zeroNaN(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = zero(v)
	}
	return out
}
