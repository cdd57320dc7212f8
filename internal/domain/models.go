package domain

import "time"

// EnergyRecord is one telemetry sample. Every measurement is nullable.
type EnergyRecord struct {
	ID                 int64      `db:"id" json:"id"`
	MachineID          *string    `db:"machine_id" json:"machine_id"`
	MachineModel       *string    `db:"machine_model" json:"machine_model"`
	RatedCapacityKW    *float64   `db:"rated_capacity_kw" json:"rated_capacity_kw"`
	ContractDemandKW   *float64   `db:"contract_demand_kw" json:"contract_demand_kw"`
	Timestamp          *time.Time `db:"timestamp" json:"timestamp"`
	Shift              *string    `db:"shift" json:"shift"`
	OperatorID         *string    `db:"operator_id" json:"operator_id"`
	PowerKW            *float64   `db:"power_kw" json:"power_kw"`
	EnergyKWh          *float64   `db:"energy_kwh" json:"energy_kwh"`
	LoadPercent        *float64   `db:"load_percent" json:"load_percent"`
	PowerFactor        *float64   `db:"power_factor" json:"power_factor"`
	Temperature        *float64   `db:"temperature" json:"temperature"`
	AmbientTemperature *float64   `db:"ambient_temperature" json:"ambient_temperature"`
	ProductionOutput   *float64   `db:"production_output" json:"production_output"`
	OperatingStatus    *string    `db:"operating_status" json:"operating_status"`
	IdleFlag           *bool      `db:"idle_flag" json:"idle_flag"`
	ElectricityTariff  *float64   `db:"electricity_tariff" json:"electricity_tariff"`
	MaintenanceCost    *float64   `db:"maintenance_cost" json:"maintenance_cost"`
	CO2Emission        *float64   `db:"co2_emission" json:"co2_emission"`
	TrueAnomalyLabel   *int64     `db:"true_anomaly_label" json:"true_anomaly_label"`
	DowntimeMinutes    *float64   `db:"downtime_minutes" json:"downtime_minutes"`
}

// MachineAverages are the per-machine (or global) means used for what-if analysis.
type MachineAverages struct {
	PowerKW           float64
	LoadPercent       float64
	Temperature       float64
	DowntimeMinutes   float64
	PowerFactor       float64
	EnergyKWh         float64
	ElectricityTariff float64
	IdleRate          float64
	// Found is false when the machine had no rows and global averages were used.
	Found bool
}

type AnomalyStatus string

const (
	StatusNormal  AnomalyStatus = "Normal"
	StatusAnomaly AnomalyStatus = "Anomaly"
)

// AnalysisResult is computed per request and never persisted.
type AnalysisResult struct {
	MachineID       string        `json:"machine_id"`
	AnomalyStatus   AnomalyStatus `json:"anomaly_status"`
	AnomalyScore    float64       `json:"anomaly_score"`
	PredictedCost   int64         `json:"predicted_cost"`
	EfficiencyScore float64       `json:"efficiency_score"`
	EnergyWasted    float64       `json:"energy_wasted"`
	EstimatedEnergy float64       `json:"estimated_energy"`
}

type AnalyzeRequest struct {
	MachineID    string   `json:"machine_id"`
	OnTimeHours  *float64 `json:"on_time_hours"`
	OffTimeHours *float64 `json:"off_time_hours"`
}

type AnalyzeResponse struct {
	MachineID        string        `json:"machine_id"`
	AnomalyStatus    AnomalyStatus `json:"anomaly_status"`
	AnomalyScore     float64       `json:"anomaly_score"`
	PredictedCost    int64         `json:"predicted_cost"`
	EfficiencyScore  float64       `json:"efficiency_score"`
	EnergyWasted     float64       `json:"energy_wasted"`
	AIRecommendation string        `json:"ai_recommendation"`
}

type Totals struct {
	TotalEnergy       float64 `db:"total_energy"`
	TotalCost         float64 `db:"total_cost"`
	AverageEfficiency float64 `db:"average_efficiency"`
	TotalAnomalies    int64   `db:"total_anomalies"`
	Rows              int64   `db:"row_count"`
}

type MachineEnergy struct {
	MachineID   string  `db:"machine_id" json:"machine_id"`
	TotalEnergy float64 `db:"total_energy" json:"total_energy"`
}

type ShiftEnergy struct {
	Shift       string  `db:"shift" json:"shift"`
	TotalEnergy float64 `db:"total_energy" json:"total_energy"`
}

type Dashboard struct {
	TotalEnergyConsumption    float64         `json:"total_energy_consumption"`
	TotalEnergyCost           float64         `json:"total_energy_cost"`
	AverageEfficiency         float64         `json:"average_efficiency"`
	AverageEfficiencyTrue     float64         `json:"average_efficiency_true"`
	TotalAnomalies            int64           `json:"total_anomalies"`
	AnomalyCount              int64           `json:"anomaly_count"`
	MachineEnergyDistribution []MachineEnergy `json:"machine_energy_distribution"`
	ShiftEnergyDistribution   []ShiftEnergy   `json:"shift_energy_distribution"`
}

// ModelInsight is the model-derived half of the dashboard.
type ModelInsight struct {
	AnomalyCount        int64   `json:"anomaly_count"`
	AverageEfficiencyML float64 `json:"average_efficiency_ml"`
}

// InferenceRow holds the six columns the dashboard batch pass scores.
type InferenceRow struct {
	PowerKW         *float64 `db:"power_kw"`
	LoadPercent     *float64 `db:"load_percent"`
	Temperature     *float64 `db:"temperature"`
	DowntimeMinutes *float64 `db:"downtime_minutes"`
	PowerFactor     *float64 `db:"power_factor"`
	EnergyKWh       *float64 `db:"energy_kwh"`
}

type Machine struct {
	MachineID    string  `db:"machine_id" json:"machine_id"`
	MachineModel *string `db:"machine_model" json:"machine_model"`
}

type MachineStats struct {
	Rows               int64      `db:"row_count"`
	LabelledAnomalies  int64      `db:"labelled_anomalies"`
	AvgMaintenanceCost float64    `db:"avg_maintenance_cost"`
	FirstSeen          *time.Time `db:"first_seen"`
	LastSeen           *time.Time `db:"last_seen"`
}

type PowerSample struct {
	Timestamp time.Time `db:"timestamp"`
	PowerKW   float64   `db:"power_kw"`
}

type Alert struct {
	AlertID      string    `json:"alert_id"`
	MachineID    string    `json:"machine_id"`
	Severity     string    `json:"severity"`
	Type         string    `json:"type"`
	Message      string    `json:"message"`
	Score        float64   `json:"score"`
	Acknowledged bool      `json:"acknowledged"`
	CreatedAt    time.Time `json:"created_at"`
}

// Summary is the fleet-wide analytics overview.
type Summary struct {
	TotalEnergyKWh     float64   `json:"total_energy_kWh"`
	TotalEnergyMWh     float64   `json:"total_energy_MWh"`
	AvgPowerKW         float64   `json:"avg_power_kW"`
	AvgLoadPercent     float64   `json:"avg_load_percent"`
	PowerMovingAverage []float64 `json:"power_moving_average"`
	PowerSpikes        int       `json:"power_spikes"`
	PowerOutliers      int       `json:"power_outliers"`
}

// MachineAlert is a threshold breach read back from telemetry.
type MachineAlert struct {
	MachineID   string  `json:"machine_id"`
	Message     string  `json:"message"`
	PowerKW     float64 `json:"power_kw"`
	LoadPercent float64 `json:"load_percent"`
}

type HourlyPrediction struct {
	PredictedNextHourKWh float64 `json:"predicted_next_hour_kWh"`
}

type MaintenanceOutlook struct {
	MachineID          string    `json:"machine_id"`
	FailureRatePerYear float64   `json:"failure_rate_per_year"`
	FailureRisk30Days  float64   `json:"failure_risk_30_days"`
	FailureRisk90Days  float64   `json:"failure_risk_90_days"`
	NextServiceDate    time.Time `json:"next_service_date"`
	DaysUntilService   int       `json:"days_until_service"`
	Recommendation     string    `json:"recommendation"`
}
