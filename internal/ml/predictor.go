package ml

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/metrics"
)

// Prediction is the outcome of one model call. Anomaly predictions fill Label
// and Score; regressions fill Value.
type Prediction struct {
	Task  Task
	Label int
	Score float64
	Value float64
}

// Anomalous reports whether the classifier labelled the sample -1.
func (p Prediction) Anomalous() bool { return p.Label == -1 }

// Predictor is the single inference capability shared by every task.
type Predictor interface {
	Predict(ctx context.Context, input map[string]any) (Prediction, error)
	PredictBatch(ctx context.Context, inputs []map[string]any) ([]Prediction, error)
}

// BundleLoader is satisfied by *Registry.
type BundleLoader interface {
	Load(ctx context.Context, task Task) (*Bundle, error)
}

type adapter struct {
	task     Task
	loader   BundleLoader
	resolver *Resolver
	score    func(e Estimator, x []float64) (Prediction, error)
}

func (a *adapter) Predict(ctx context.Context, input map[string]any) (Prediction, error) {
	out, err := a.PredictBatch(ctx, []map[string]any{input})
	if err != nil {
		return Prediction{}, err
	}
	return out[0], nil
}

func (a *adapter) PredictBatch(ctx context.Context, inputs []map[string]any) (_ []Prediction, err error) {
	start := time.Now()
	defer func() { metrics.RecordInference(string(a.task), time.Since(start), err) }()

	bundle, err := a.loader.Load(ctx, a.task)
	if err != nil {
		return nil, err
	}
	out := make([]Prediction, len(inputs))
	for i, in := range inputs {
		res := a.resolver.Resolve(ctx, bundle, in)
		if w := bundle.Model.InputWidth(); len(res.Vector) != w {
			return nil, fmt.Errorf("%s: got %d features, model expects %d: %w", a.task, len(res.Vector), w, ErrFeatureWidth)
		}
		p, err := a.score(bundle.Model, res.Vector)
		if err != nil {
			return nil, err
		}
		p.Task = a.task
		out[i] = p
	}
	return out, nil
}

// NewAnomalyPredictor scores samples with the anomaly classifier.
func NewAnomalyPredictor(loader BundleLoader, resolver *Resolver) Predictor {
	return &adapter{task: TaskAnomaly, loader: loader, resolver: resolver, score: func(e Estimator, x []float64) (Prediction, error) {
		c, ok := e.(Classifier)
		if !ok {
			return Prediction{}, fmt.Errorf("anomaly model %s is not a classifier", e.Kind())
		}
		return Prediction{Label: c.Predict(x), Score: c.DecisionFunction(x)}, nil
	}}
}

// NewCostPredictor predicts energy cost, floored at zero. Non-finite
// predictions are errors so callers fall back.
func NewCostPredictor(loader BundleLoader, resolver *Resolver) Predictor {
	return &adapter{task: TaskCost, loader: loader, resolver: resolver, score: func(e Estimator, x []float64) (Prediction, error) {
		r, ok := e.(Regressor)
		if !ok {
			return Prediction{}, fmt.Errorf("cost model %s is not a regressor", e.Kind())
		}
		v := r.Predict(x)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Prediction{}, fmt.Errorf("cost prediction %v: %w", v, ErrNonFinite)
		}
		return Prediction{Value: math.Max(0, v)}, nil
	}}
}

// NewEfficiencyPredictor predicts efficiency clipped to [0, 1].
func NewEfficiencyPredictor(loader BundleLoader, resolver *Resolver) Predictor {
	return &adapter{task: TaskEfficiency, loader: loader, resolver: resolver, score: func(e Estimator, x []float64) (Prediction, error) {
		r, ok := e.(Regressor)
		if !ok {
			return Prediction{}, fmt.Errorf("efficiency model %s is not a regressor", e.Kind())
		}
		return Prediction{Value: Clip01(r.Predict(x))}, nil
	}}
}

// Clip01 clamps v to [0, 1]; NaN maps to 0.
func Clip01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
