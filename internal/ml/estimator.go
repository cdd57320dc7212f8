package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Estimator is a fitted model with a fixed input width.
type Estimator interface {
	Kind() string
	InputWidth() int
}

// Classifier labels a sample 1 (normal) or -1 (anomalous) and scores it;
// more negative scores are more anomalous.
type Classifier interface {
	Estimator
	Predict(x []float64) int
	DecisionFunction(x []float64) float64
}

type Regressor interface {
	Estimator
	Predict(x []float64) float64
}

const (
	kindIsolationForest  = "isolation_forest"
	kindLinearRegression = "linear_regression"
	kindRandomForest     = "random_forest_regressor"
)

type estimatorDoc struct {
	Kind   string          `json:"kind"`
	Params json.RawMessage `json:"params"`
}

func encodeEstimator(e Estimator) (*estimatorDoc, error) {
	params, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.Kind(), err)
	}
	return &estimatorDoc{Kind: e.Kind(), Params: params}, nil
}

func decodeEstimator(doc *estimatorDoc) (Estimator, error) {
	var e Estimator
	switch doc.Kind {
	case kindIsolationForest:
		e = &IsolationForest{}
	case kindLinearRegression:
		e = &LinearRegression{}
	case kindRandomForest:
		e = &RandomForestRegressor{}
	default:
		return nil, fmt.Errorf("unknown estimator kind %q", doc.Kind)
	}
	if err := json.Unmarshal(doc.Params, e); err != nil {
		return nil, fmt.Errorf("decode %s: %w", doc.Kind, err)
	}
	return e, nil
}

// fitTrees builds n trees concurrently. Tree i always gets the same seeded
// source so results do not depend on scheduling.
func fitTrees[T any](ctx context.Context, n int, seed int64, build func(rng *rand.Rand) T) ([]T, error) {
	trees := make([]T, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(uint64(seed), uint64(i)))
			trees[i] = build(rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return trees, nil
}
