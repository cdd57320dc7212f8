package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// ColumnMeansSource supplies the null-excluding means of the record store's
// numeric columns.
type ColumnMeansSource interface {
	NumericColumnMeans(ctx context.Context) (map[string]float64, error)
}

// Resolved is a model input vector and the feature names behind each slot.
type Resolved struct {
	Vector   []float64
	Features []string
	Legacy   bool
}

// Resolver turns partial input mappings into fixed-order vectors using mean
// imputation for absent or null features.
type Resolver struct {
	source ColumnMeansSource

	mu        sync.Mutex
	storeMean map[string]float64

	layoutMu sync.Mutex
	layouts  map[*Bundle][]string
	derived  int
}

func NewResolver(source ColumnMeansSource) *Resolver {
	return &Resolver{source: source}
}

// Resolve never fails: unparsable values fall back to 0 and unavailable means to 0.
func (r *Resolver) Resolve(ctx context.Context, b *Bundle, input map[string]any) Resolved {
	features := b.Features
	means := b.FeatureMeans
	legacy := false

	if len(features) == 0 {
		legacy = true
		means = r.datasetMeans(ctx)
		features = r.legacyFeatures(b, means)
	}
	if len(means) == 0 {
		means = r.datasetMeans(ctx)
	}

	return Resolved{
		Vector:   BuildVector(features, means, input, 0),
		Features: features,
		Legacy:   legacy,
	}
}

// legacyFeatures derives a featureless bundle's columns once: the store's
// numeric columns sorted by name, truncated to the model's input width.
// Derivations from an unavailable store are not kept.
func (r *Resolver) legacyFeatures(b *Bundle, means map[string]float64) []string {
	r.layoutMu.Lock()
	defer r.layoutMu.Unlock()
	if names, ok := r.layouts[b]; ok {
		return names
	}

	names := make([]string, 0, len(means))
	for name := range means {
		names = append(names, name)
	}
	sort.Strings(names)
	if w := b.Model.InputWidth(); len(names) > w {
		names = names[:w]
	}
	r.derived++
	if len(names) == 0 {
		return names
	}
	if r.layouts == nil {
		r.layouts = make(map[*Bundle][]string)
	}
	r.layouts[b] = names
	log.Warn().Str("task", string(b.Task)).Strs("features", names).Msg("derived feature list from record store")
	return names
}

// BuildVector emits one value per feature in order: the parsed input when
// present and non-null, otherwise means[feature] (0 when absent). Parse
// failures use def.
func BuildVector(features []string, means map[string]float64, input map[string]any, def float64) []float64 {
	vec := make([]float64, len(features))
	for i, name := range features {
		v, ok := input[name]
		if !ok || isNull(v) {
			vec[i] = means[name]
			continue
		}
		f, err := ParseFloat(v)
		if err != nil {
			log.Debug().Err(&FeatureParseError{Feature: name, Value: v, Cause: err}).Msg("feature parse fallback")
			f = def
		}
		vec[i] = f
	}
	return vec
}

func isNull(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case *float64:
		return t == nil
	case *int64:
		return t == nil
	case *bool:
		return t == nil
	case *string:
		return t == nil
	}
	return false
}

// ParseFloat converts common scalar representations to float64.
func ParseFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case *float64:
		return *t, nil
	case *int64:
		return float64(*t), nil
	case *bool:
		return ParseFloat(*t)
	case json.Number:
		return t.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, err
		}
		return f, nil
	case *string:
		return ParseFloat(*t)
	}
	return 0, fmt.Errorf("unsupported type %T", v)
}

// datasetMeans is computed on first use and then reused for the process
// lifetime. Failed loads are not cached.
func (r *Resolver) datasetMeans(ctx context.Context) map[string]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.storeMean != nil {
		return r.storeMean
	}
	if r.source == nil {
		return map[string]float64{}
	}
	means, err := r.source.NumericColumnMeans(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("record store means unavailable")
		return map[string]float64{}
	}
	for k, v := range means {
		if math.IsNaN(v) {
			means[k] = 0
		}
	}
	r.storeMean = means
	return means
}
