package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/domain"
)

func statsFor(anomalies int64, span time.Duration) domain.MachineStats {
	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	last := first.Add(span)
	return domain.MachineStats{Rows: 100, LabelledAnomalies: anomalies, FirstSeen: &first, LastSeen: &last}
}

func TestFailureRate(t *testing.T) {
	year := 365 * 24 * time.Hour
	tests := []struct {
		name  string
		stats domain.MachineStats
		want  float64
	}{
		{"no labelled history", statsFor(0, year), baselineFailureRate},
		{"span too short", statsFor(3, time.Hour), baselineFailureRate},
		{"two per year", statsFor(2, year), 2},
		{"half year", statsFor(1, year/2), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, failureRate(tt.stats), 1e-9)
		})
	}
}

func TestMaintenanceOutlook(t *testing.T) {
	store := &fakeStore{stats: map[string]domain.MachineStats{
		"calm": statsFor(0, 30*24*time.Hour),
		"hot":  statsFor(40, 365*24*time.Hour),
	}}

	t.Run("baseline machine", func(t *testing.T) {
		alerter := &fakeAlerter{}
		svc := NewMaintenanceService(store, alerter)
		svc.now = func() time.Time { return time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC) }

		out, err := svc.Outlook(context.Background(), "calm")
		require.NoError(t, err)
		assert.Equal(t, "calm", out.MachineID)
		assert.Equal(t, baselineFailureRate, out.FailureRatePerYear)
		assert.Greater(t, out.FailureRisk90Days, out.FailureRisk30Days)
		assert.GreaterOrEqual(t, out.FailureRisk30Days, 0.0)
		assert.LessOrEqual(t, out.FailureRisk90Days, 100.0)
		assert.NotEmpty(t, out.Recommendation)
		assert.Empty(t, alerter.alerts)
	})

	t.Run("frequent failures alert", func(t *testing.T) {
		alerter := &fakeAlerter{}
		out, err := NewMaintenanceService(store, alerter).Outlook(context.Background(), "hot")
		require.NoError(t, err)
		assert.Equal(t, 40.0, out.FailureRatePerYear)
		assert.Equal(t, "URGENT: Schedule immediate maintenance inspection", out.Recommendation)
		require.Len(t, alerter.alerts, 1)
		assert.Equal(t, "maintenance", alerter.alerts[0].Type)
	})

	t.Run("unknown machine", func(t *testing.T) {
		_, err := NewMaintenanceService(store, nil).Outlook(context.Background(), "ghost")
		assert.ErrorIs(t, err, ErrUnknownMachine)
	})
}

func TestMaintenanceRecommendation(t *testing.T) {
	tests := []struct {
		r30, r90 float64
		want     string
	}{
		{0.6, 0.9, "URGENT: Schedule immediate maintenance inspection"},
		{0.35, 0.7, "Schedule maintenance within next 30 days"},
		{0.1, 0.31, "Plan maintenance within next 90 days"},
		{0.01, 0.05, "Machine operating normally"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, maintenanceRecommendation(tt.r30, tt.r90))
		})
	}
}
