package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/domain"
	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/ml"
	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/repository"
)

// AlertHistory is the queryable alert log. cloud.DynamoDBClient satisfies it.
type AlertHistory interface {
	Alerts(ctx context.Context, machineID string, limit int32) ([]domain.Alert, error)
	AcknowledgeAlert(ctx context.Context, alertID string) error
}

// Options carries the optional collaborators. Zero values disable them.
type Options struct {
	Trainer      ml.TrainerConfig
	Alerter      Alerter
	AlertHistory AlertHistory
	Cache        Cache
	Recommender  *Recommender
	// InsightLimit caps the rows scored for the dashboard model pass.
	InsightLimit int
}

type Services struct {
	Repos        *repository.Repos
	Registry     *ml.Registry
	Analysis     *AnalysisService
	Dashboard    *DashboardService
	Insights     *InsightsService
	Maintenance  *MaintenanceService
	Readings     *ReadingService
	Models       *ModelService
	Recommender  *Recommender
	AlertHistory AlertHistory
}

func New(repos *repository.Repos, artifacts ml.ArtifactStore, opts Options) *Services {
	registry := ml.NewRegistry(artifacts)
	resolver := ml.NewResolver(repos)
	models := Predictors{
		Anomaly:    ml.NewAnomalyPredictor(registry, resolver),
		Cost:       ml.NewCostPredictor(registry, resolver),
		Efficiency: ml.NewEfficiencyPredictor(registry, resolver),
	}
	dashboard := NewDashboardService(repos, models, opts.Cache, opts.InsightLimit)
	return &Services{
		Repos:        repos,
		Registry:     registry,
		Analysis:     NewAnalysisService(repos, models, opts.Alerter),
		Dashboard:    dashboard,
		Insights:     NewInsightsService(repos),
		Maintenance:  NewMaintenanceService(repos, opts.Alerter),
		Readings:     NewReadingService(repos, opts.Cache),
		Models:       NewModelService(ml.NewTrainer(repos, artifacts, opts.Trainer), registry, dashboard),
		Recommender:  opts.Recommender,
		AlertHistory: opts.AlertHistory,
	}
}

type RecordStore interface {
	Insert(ctx context.Context, rec *domain.EnergyRecord) error
	InsertBatch(ctx context.Context, recs []domain.EnergyRecord) error
}

type ReadingService struct {
	store RecordStore
	cache Cache
}

// NewReadingService stores telemetry. A non-nil cache has its dashboard
// entry dropped after every stored batch.
func NewReadingService(store RecordStore, cache Cache) *ReadingService {
	return &ReadingService{store: store, cache: cache}
}

// FromMQTT persists one payload: either a single EnergyRecord object or an array of them.
func (s *ReadingService) FromMQTT(ctx context.Context, topic string, payload []byte) error {
	recs, err := DecodeRecords(payload)
	if err != nil {
		return fmt.Errorf("decode %s payload: %w", topic, err)
	}
	n, err := s.Ingest(ctx, recs)
	if err != nil {
		return err
	}
	log.Debug().Str("topic", topic).Int("rows", n).Msg("telemetry ingested")
	return nil
}

// Ingest stores records, using a single transaction for more than one.
func (s *ReadingService) Ingest(ctx context.Context, recs []domain.EnergyRecord) (int, error) {
	switch len(recs) {
	case 0:
		return 0, nil
	case 1:
		if err := s.store.Insert(ctx, &recs[0]); err != nil {
			return 0, fmt.Errorf("insert record: %w", err)
		}
	default:
		if err := s.store.InsertBatch(ctx, recs); err != nil {
			return 0, fmt.Errorf("insert %d records: %w", len(recs), err)
		}
	}
	invalidateDashboard(ctx, s.cache)
	return len(recs), nil
}

func DecodeRecords(payload []byte) ([]domain.EnergyRecord, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) > 0 && payload[0] == '[' {
		var recs []domain.EnergyRecord
		if err := json.Unmarshal(payload, &recs); err != nil {
			return nil, err
		}
		return recs, nil
	}
	var rec domain.EnergyRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, err
	}
	return []domain.EnergyRecord{rec}, nil
}

type Trainer interface {
	EnsureTrained(ctx context.Context, force bool) ml.TrainReport
}

type invalidator interface {
	Invalidate()
}

// ModelService retrains bundles and drops every cache that holds stale predictions.
type ModelService struct {
	trainer   Trainer
	registry  invalidator
	dashboard *DashboardService
}

func NewModelService(trainer Trainer, registry invalidator, dashboard *DashboardService) *ModelService {
	return &ModelService{trainer: trainer, registry: registry, dashboard: dashboard}
}

func (s *ModelService) Retrain(ctx context.Context, force bool) ml.TrainReport {
	report := s.trainer.EnsureTrained(ctx, force)
	if len(report.Trained) > 0 {
		s.registry.Invalidate()
		if s.dashboard != nil {
			s.dashboard.Invalidate(ctx)
		}
	}
	log.Info().
		Bool("skipped", report.Skipped).
		Int("trained", len(report.Trained)).
		Int("failed", len(report.Failed)).
		Int("rows", report.Rows).
		Msg("model training finished")
	return report
}
