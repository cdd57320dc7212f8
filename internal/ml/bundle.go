package ml

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Task string

const (
	TaskAnomaly    Task = "anomaly"
	TaskCost       Task = "cost"
	TaskEfficiency Task = "efficiency"
)

// Tasks lists every prediction task in training order.
var Tasks = []Task{TaskAnomaly, TaskCost, TaskEfficiency}

// ArtifactName is the fixed storage key of a task's bundle.
func (t Task) ArtifactName() string { return string(t) + "_model.json" }

// Bundle is a fitted model plus the metadata needed to rebuild its input
// vectors. Features order defines vector positions. Bundles are never mutated
// after creation.
type Bundle struct {
	Task         Task
	Model        Estimator
	Features     []string
	FeatureMeans map[string]float64
	TrainedAt    time.Time
	Rows         int
}

// Legacy reports whether the bundle came from a bare estimator artifact.
func (b *Bundle) Legacy() bool { return len(b.Features) == 0 }

type bundleDoc struct {
	Task         Task               `json:"task,omitempty"`
	Model        *estimatorDoc      `json:"model,omitempty"`
	Features     []string           `json:"features"`
	FeatureMeans map[string]float64 `json:"feature_means"`
	TrainedAt    time.Time          `json:"trained_at"`
	Rows         int                `json:"rows"`
}

func EncodeBundle(b *Bundle) ([]byte, error) {
	model, err := encodeEstimator(b.Model)
	if err != nil {
		return nil, err
	}
	return json.Marshal(bundleDoc{
		Task:         b.Task,
		Model:        model,
		Features:     b.Features,
		FeatureMeans: b.FeatureMeans,
		TrainedAt:    b.TrainedAt,
		Rows:         b.Rows,
	})
}

// DecodeBundle accepts both bundle documents and bare estimator documents;
// the latter decode to a bundle with no features or means.
func DecodeBundle(task Task, data []byte) (*Bundle, error) {
	var doc bundleDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s bundle: %w", task, err)
	}
	if doc.Model == nil {
		var bare estimatorDoc
		if err := json.Unmarshal(data, &bare); err != nil {
			return nil, fmt.Errorf("decode %s estimator: %w", task, err)
		}
		model, err := decodeEstimator(&bare)
		if err != nil {
			return nil, err
		}
		return &Bundle{Task: task, Model: model, FeatureMeans: map[string]float64{}}, nil
	}
	model, err := decodeEstimator(doc.Model)
	if err != nil {
		return nil, err
	}
	if doc.FeatureMeans == nil {
		doc.FeatureMeans = map[string]float64{}
	}
	return &Bundle{
		Task:         task,
		Model:        model,
		Features:     doc.Features,
		FeatureMeans: doc.FeatureMeans,
		TrainedAt:    doc.TrainedAt,
		Rows:         doc.Rows,
	}, nil
}

// ArtifactStore persists serialized bundles by name.
type ArtifactStore interface {
	Exists(ctx context.Context, name string) (bool, error)
	// Read returns an error wrapping ErrArtifactNotFound for a missing name.
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
}

// FileStore keeps artifacts in a local directory.
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) *FileStore { return &FileStore{Dir: dir} }

func (s *FileStore) path(name string) string { return filepath.Join(s.Dir, name) }

func (s *FileStore) Exists(_ context.Context, name string) (bool, error) {
	_, err := os.Stat(s.path(name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (s *FileStore) Read(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", s.path(name), ErrArtifactNotFound)
	}
	return data, err
}

// Write replaces the artifact atomically via a temp file and rename.
func (s *FileStore) Write(_ context.Context, name string, data []byte) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.Dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	return os.Rename(tmp.Name(), s.path(name))
}
