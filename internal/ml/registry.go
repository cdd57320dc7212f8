package ml

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Registry loads bundles from an ArtifactStore once per task and serves the
// cached value afterwards. Concurrent first loads of a task share one read.
type Registry struct {
	store ArtifactStore

	group singleflight.Group
	mu    sync.RWMutex
	cache map[Task]*Bundle
}

func NewRegistry(store ArtifactStore) *Registry {
	return &Registry{store: store, cache: make(map[Task]*Bundle)}
}

// Load returns the task's bundle. A missing artifact yields an error wrapping
// ErrModelNotFound; failures are not cached so a later call may succeed.
func (r *Registry) Load(ctx context.Context, task Task) (*Bundle, error) {
	r.mu.RLock()
	b, ok := r.cache[task]
	r.mu.RUnlock()
	if ok {
		return b, nil
	}

	v, err, _ := r.group.Do(string(task), func() (any, error) {
		r.mu.RLock()
		cached, ok := r.cache[task]
		r.mu.RUnlock()
		if ok {
			return cached, nil
		}

		name := task.ArtifactName()
		data, err := r.store.Read(ctx, name)
		if errors.Is(err, ErrArtifactNotFound) {
			return nil, fmt.Errorf("%s (%s): %w", task, name, ErrModelNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		bundle, err := DecodeBundle(task, data)
		if err != nil {
			return nil, err
		}
		if bundle.Legacy() {
			log.Warn().Str("task", string(task)).Msg("artifact has no feature metadata; using legacy feature derivation")
		}

		r.mu.Lock()
		r.cache[task] = bundle
		r.mu.Unlock()
		log.Debug().Str("task", string(task)).Int("features", len(bundle.Features)).Msg("model bundle loaded")
		return bundle, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Bundle), nil
}

// Invalidate drops every cached bundle, e.g. after a forced retrain.
func (r *Registry) Invalidate() {
	r.mu.Lock()
	r.cache = make(map[Task]*Bundle)
	r.mu.Unlock()
}
