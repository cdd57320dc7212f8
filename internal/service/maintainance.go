package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ANIKETSHETTY47/energy-grid-analytics-go/maintenance"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/domain"
)

const (
	serviceInterval = 365 * 24 * time.Hour
	// baselineFailureRate is assumed for machines without labelled history.
	baselineFailureRate = 0.3
	// Maintenance risk above this raises an alert.
	maintenanceAlertRisk = 0.5
)

type StatsStore interface {
	MachineStats(ctx context.Context, machineID string) (domain.MachineStats, error)
}

// MaintenanceService predicts failure risk from a machine's labelled anomaly history.
type MaintenanceService struct {
	store   StatsStore
	alerter Alerter
	now     func() time.Time
}

func NewMaintenanceService(store StatsStore, alerter Alerter) *MaintenanceService {
	return &MaintenanceService{store: store, alerter: alerter, now: time.Now}
}

// ErrUnknownMachine is returned when the machine has no telemetry.
var ErrUnknownMachine = errors.New("machine not found")

func (s *MaintenanceService) Outlook(ctx context.Context, machineID string) (domain.MaintenanceOutlook, error) {
	stats, err := s.store.MachineStats(ctx, machineID)
	if err != nil {
		return domain.MaintenanceOutlook{}, fmt.Errorf("machine stats: %w", err)
	}
	if stats.Rows == 0 || stats.FirstSeen == nil || stats.LastSeen == nil {
		return domain.MaintenanceOutlook{}, fmt.Errorf("%s: %w", machineID, ErrUnknownMachine)
	}

	health := maintenance.AssetHealth{
		HoursRun:           stats.LastSeen.Sub(*stats.FirstSeen).Hours(),
		FailureRatePerYear: failureRate(stats),
		// Telemetry does not record service dates; the first reading stands in.
		LastService:     *stats.FirstSeen,
		ServiceInterval: serviceInterval,
	}
	risk30 := maintenance.FailureRisk(health.FailureRatePerYear, 30*24*time.Hour)
	risk90 := maintenance.FailureRisk(health.FailureRatePerYear, 90*24*time.Hour)
	next := maintenance.NextServiceDate(health)

	out := domain.MaintenanceOutlook{
		MachineID:          machineID,
		FailureRatePerYear: round(health.FailureRatePerYear, 4),
		FailureRisk30Days:  round(risk30*100, 2),
		FailureRisk90Days:  round(risk90*100, 2),
		NextServiceDate:    next,
		DaysUntilService:   int(next.Sub(s.now()).Hours() / 24),
		Recommendation:     maintenanceRecommendation(risk30, risk90),
	}

	if risk30 > maintenanceAlertRisk && s.alerter != nil {
		alert := domain.Alert{
			MachineID: machineID,
			Severity:  "critical",
			Type:      "maintenance",
			Message:   fmt.Sprintf("Failure risk in the next 30 days is %.1f%%; next service due %s", out.FailureRisk30Days, next.Format("2006-01-02")),
			Score:     risk30,
			CreatedAt: s.now().UTC(),
		}
		if err := s.alerter.Notify(ctx, alert); err != nil {
			log.Warn().Err(err).Str("machine_id", machineID).Msg("maintenance alert delivery failed")
		}
	}
	return out, nil
}

// failureRate annualises labelled anomalies over the observed span.
func failureRate(stats domain.MachineStats) float64 {
	span := stats.LastSeen.Sub(*stats.FirstSeen)
	if stats.LabelledAnomalies == 0 || span < 24*time.Hour {
		return baselineFailureRate
	}
	years := span.Hours() / (365 * 24)
	return float64(stats.LabelledAnomalies) / years
}

func maintenanceRecommendation(risk30, risk90 float64) string {
	switch {
	case risk30 > 0.5:
		return "URGENT: Schedule immediate maintenance inspection"
	case risk30 > 0.3:
		return "Schedule maintenance within next 30 days"
	case risk90 > 0.3:
		return "Plan maintenance within next 90 days"
	}
	return "Machine operating normally"
}
