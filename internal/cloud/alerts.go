package cloud

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/domain"
)

// Notifier delivers one alert to a sink.
type Notifier interface {
	Notify(ctx context.Context, alert domain.Alert) error
}

// Fanout delivers to every sink and joins their errors.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, alert domain.Alert) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewAnomalyAlert builds the alert raised for an anomalous analysis.
func NewAnomalyAlert(res domain.AnalysisResult) domain.Alert {
	severity := "warning"
	if res.AnomalyScore < -0.1 {
		severity = "critical"
	}
	return domain.Alert{
		AlertID:   uuid.NewString(),
		MachineID: res.MachineID,
		Severity:  severity,
		Type:      "anomaly",
		Message: fmt.Sprintf("Machine %s flagged as anomalous (score %.4f, efficiency %.4f, %.2f kWh wasted)",
			res.MachineID, res.AnomalyScore, res.EfficiencyScore, res.EnergyWasted),
		Score:     res.AnomalyScore,
		CreatedAt: time.Now().UTC(),
	}
}
