package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/domain"
	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/metrics"
	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/ml"
)

type Repos struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Repos { return &Repos{db: db} }

func observe(query string, start time.Time, err error) {
	metrics.RecordDBQuery(query, time.Since(start), err)
}

const recordColumns = `id, machine_id, machine_model, rated_capacity_kw, contract_demand_kw, timestamp, shift,
	operator_id, power_kw, energy_kwh, load_percent, power_factor, temperature, ambient_temperature,
	production_output, operating_status, idle_flag, electricity_tariff, maintenance_cost, co2_emission,
	true_anomaly_label, downtime_minutes`

const insertRecord = `INSERT INTO energy_records (machine_id, machine_model, rated_capacity_kw, contract_demand_kw,
	timestamp, shift, operator_id, power_kw, energy_kwh, load_percent, power_factor, temperature,
	ambient_temperature, production_output, operating_status, idle_flag, electricity_tariff,
	maintenance_cost, co2_emission, true_anomaly_label, downtime_minutes)
VALUES (:machine_id, :machine_model, :rated_capacity_kw, :contract_demand_kw, :timestamp, :shift,
	:operator_id, :power_kw, :energy_kwh, :load_percent, :power_factor, :temperature,
	:ambient_temperature, :production_output, :operating_status, :idle_flag, :electricity_tariff,
	:maintenance_cost, :co2_emission, :true_anomaly_label, :downtime_minutes)`

func (r *Repos) Insert(ctx context.Context, rec *domain.EnergyRecord) (err error) {
	defer func(start time.Time) { observe("insert_record", start, err) }(time.Now())
	_, err = r.db.NamedExecContext(ctx, insertRecord, rec)
	return err
}

// InsertBatch writes all records in one transaction.
func (r *Repos) InsertBatch(ctx context.Context, recs []domain.EnergyRecord) (err error) {
	defer func(start time.Time) { observe("insert_batch", start, err) }(time.Now())

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, insertRecord)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i := range recs {
		if _, err = stmt.ExecContext(ctx, &recs[i]); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}
	return tx.Commit()
}

type averagesRow struct {
	PowerKW           sql.NullFloat64 `db:"power_kw"`
	LoadPercent       sql.NullFloat64 `db:"load_percent"`
	Temperature       sql.NullFloat64 `db:"temperature"`
	DowntimeMinutes   sql.NullFloat64 `db:"downtime_minutes"`
	PowerFactor       sql.NullFloat64 `db:"power_factor"`
	EnergyKWh         sql.NullFloat64 `db:"energy_kwh"`
	ElectricityTariff sql.NullFloat64 `db:"electricity_tariff"`
	IdleRate          sql.NullFloat64 `db:"idle_rate"`
}

func (a averagesRow) toDomain() domain.MachineAverages {
	fields := []sql.NullFloat64{a.PowerKW, a.LoadPercent, a.Temperature, a.DowntimeMinutes,
		a.PowerFactor, a.EnergyKWh, a.ElectricityTariff, a.IdleRate}
	found := false
	for _, f := range fields {
		found = found || f.Valid
	}
	return domain.MachineAverages{
		PowerKW:           a.PowerKW.Float64,
		LoadPercent:       a.LoadPercent.Float64,
		Temperature:       a.Temperature.Float64,
		DowntimeMinutes:   a.DowntimeMinutes.Float64,
		PowerFactor:       a.PowerFactor.Float64,
		EnergyKWh:         a.EnergyKWh.Float64,
		ElectricityTariff: a.ElectricityTariff.Float64,
		IdleRate:          a.IdleRate.Float64,
		Found:             found,
	}
}

const averagesSelect = `SELECT AVG(power_kw) AS power_kw,
	AVG(load_percent) AS load_percent,
	AVG(temperature) AS temperature,
	AVG(downtime_minutes) AS downtime_minutes,
	AVG(power_factor) AS power_factor,
	AVG(energy_kwh) AS energy_kwh,
	AVG(electricity_tariff) AS electricity_tariff,
	AVG(CASE WHEN idle_flag THEN 1.0 WHEN idle_flag IS NOT NULL THEN 0.0 END) AS idle_rate
FROM energy_records`

// MachineAverages returns null-excluding means for one machine. Found is false
// when the machine has no rows.
func (r *Repos) MachineAverages(ctx context.Context, machineID string) (_ domain.MachineAverages, err error) {
	defer func(start time.Time) { observe("machine_averages", start, err) }(time.Now())
	var row averagesRow
	if err = r.db.GetContext(ctx, &row, averagesSelect+` WHERE machine_id = $1`, machineID); err != nil {
		return domain.MachineAverages{}, err
	}
	return row.toDomain(), nil
}

func (r *Repos) GlobalAverages(ctx context.Context) (_ domain.MachineAverages, err error) {
	defer func(start time.Time) { observe("global_averages", start, err) }(time.Now())
	var row averagesRow
	if err = r.db.GetContext(ctx, &row, averagesSelect); err != nil {
		return domain.MachineAverages{}, err
	}
	return row.toDomain(), nil
}

func (r *Repos) Totals(ctx context.Context) (_ domain.Totals, err error) {
	defer func(start time.Time) { observe("totals", start, err) }(time.Now())
	var t domain.Totals
	err = r.db.GetContext(ctx, &t, `SELECT
		COALESCE(SUM(energy_kwh), 0) AS total_energy,
		COALESCE(SUM(energy_kwh * electricity_tariff), 0) AS total_cost,
		COALESCE(AVG(production_output / NULLIF(energy_kwh, 0)), 0) AS average_efficiency,
		COUNT(*) FILTER (WHERE true_anomaly_label = 1) AS total_anomalies,
		COUNT(*) AS row_count
	FROM energy_records`)
	return t, err
}

// EnergyByMachine groups on the raw column, so rows without a machine id form
// their own "Unknown" entry next to any machine actually named Unknown.
func (r *Repos) EnergyByMachine(ctx context.Context) (_ []domain.MachineEnergy, err error) {
	defer func(start time.Time) { observe("energy_by_machine", start, err) }(time.Now())
	out := []domain.MachineEnergy{}
	err = r.db.SelectContext(ctx, &out, `SELECT COALESCE(machine_id, 'Unknown') AS machine_id,
		COALESCE(SUM(energy_kwh), 0) AS total_energy
	FROM energy_records GROUP BY energy_records.machine_id ORDER BY energy_records.machine_id NULLS LAST`)
	return out, err
}

func (r *Repos) EnergyByShift(ctx context.Context) (_ []domain.ShiftEnergy, err error) {
	defer func(start time.Time) { observe("energy_by_shift", start, err) }(time.Now())
	out := []domain.ShiftEnergy{}
	err = r.db.SelectContext(ctx, &out, `SELECT COALESCE(shift, 'Unknown') AS shift,
		COALESCE(SUM(energy_kwh), 0) AS total_energy
	FROM energy_records GROUP BY energy_records.shift ORDER BY energy_records.shift NULLS LAST`)
	return out, err
}

// frameColumns are the numeric columns exposed to training. Booleans and
// integers are cast so every value scans as a nullable float.
var frameColumns = []struct{ name, expr string }{
	{"id", "id::float8"},
	{"rated_capacity_kw", "rated_capacity_kw"},
	{"contract_demand_kw", "contract_demand_kw"},
	{"power_kw", "power_kw"},
	{"energy_kwh", "energy_kwh"},
	{"load_percent", "load_percent"},
	{"power_factor", "power_factor"},
	{"temperature", "temperature"},
	{"ambient_temperature", "ambient_temperature"},
	{"production_output", "production_output"},
	{"idle_flag", "CASE WHEN idle_flag THEN 1.0 WHEN idle_flag IS NOT NULL THEN 0.0 END"},
	{"electricity_tariff", "electricity_tariff"},
	{"maintenance_cost", "maintenance_cost"},
	{"co2_emission", "co2_emission"},
	{"true_anomaly_label", "true_anomaly_label::float8"},
	{"downtime_minutes", "downtime_minutes"},
}

func frameQuery() string {
	q := "SELECT "
	for i, c := range frameColumns {
		if i > 0 {
			q += ", "
		}
		q += c.expr + " AS " + c.name
	}
	return q + " FROM energy_records ORDER BY id"
}

// LoadFrame reads the whole table as numeric columns, with NaN for nulls.
func (r *Repos) LoadFrame(ctx context.Context) (_ *ml.Frame, err error) {
	defer func(start time.Time) { observe("load_frame", start, err) }(time.Now())

	rows, err := r.db.QueryxContext(ctx, frameQuery())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make([][]float64, len(frameColumns))
	scan := make([]sql.NullFloat64, len(frameColumns))
	dest := make([]any, len(frameColumns))
	for i := range scan {
		dest[i] = &scan[i]
	}
	n := 0
	for rows.Next() {
		if err = rows.Scan(dest...); err != nil {
			return nil, err
		}
		for i, v := range scan {
			if v.Valid {
				cols[i] = append(cols[i], v.Float64)
			} else {
				cols[i] = append(cols[i], math.NaN())
			}
		}
		n++
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	frame := ml.NewFrame(n)
	for i, c := range frameColumns {
		if cols[i] == nil {
			cols[i] = []float64{}
		}
		if err = frame.AddColumn(c.name, cols[i]); err != nil {
			return nil, err
		}
	}
	return frame, nil
}

// NumericColumnMeans returns the null-excluding mean of every numeric column.
func (r *Repos) NumericColumnMeans(ctx context.Context) (map[string]float64, error) {
	frame, err := r.LoadFrame(ctx)
	if err != nil {
		return nil, err
	}
	return frame.Means(), nil
}

// InferenceColumns returns the six dashboard inference columns; limit <= 0 reads every row.
func (r *Repos) InferenceColumns(ctx context.Context, limit int) (_ []domain.InferenceRow, err error) {
	defer func(start time.Time) { observe("inference_columns", start, err) }(time.Now())
	q := `SELECT power_kw, load_percent, temperature, downtime_minutes, power_factor, energy_kwh
	FROM energy_records ORDER BY id`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT $1`
		args = append(args, limit)
	}
	out := []domain.InferenceRow{}
	err = r.db.SelectContext(ctx, &out, q, args...)
	return out, err
}

func (r *Repos) ListMachines(ctx context.Context) (_ []domain.Machine, err error) {
	defer func(start time.Time) { observe("list_machines", start, err) }(time.Now())
	out := []domain.Machine{}
	err = r.db.SelectContext(ctx, &out, `SELECT machine_id, MAX(machine_model) AS machine_model
	FROM energy_records WHERE machine_id IS NOT NULL GROUP BY machine_id ORDER BY machine_id`)
	return out, err
}

// Latest returns the n most recent records.
func (r *Repos) Latest(ctx context.Context, n int) (_ []domain.EnergyRecord, err error) {
	defer func(start time.Time) { observe("latest", start, err) }(time.Now())
	out := []domain.EnergyRecord{}
	err = r.db.SelectContext(ctx, &out, `SELECT `+recordColumns+` FROM energy_records
	ORDER BY timestamp DESC NULLS LAST, id DESC LIMIT $1`, n)
	return out, err
}

// Overloads returns the n most recent records above either threshold.
func (r *Repos) Overloads(ctx context.Context, powerKW, loadPercent float64, n int) (_ []domain.EnergyRecord, err error) {
	defer func(start time.Time) { observe("overloads", start, err) }(time.Now())
	out := []domain.EnergyRecord{}
	err = r.db.SelectContext(ctx, &out, `SELECT `+recordColumns+` FROM energy_records
	WHERE power_kw > $1 OR load_percent > $2
	ORDER BY timestamp DESC NULLS LAST, id DESC LIMIT $3`, powerKW, loadPercent, n)
	return out, err
}

// PowerSeries returns up to n recent power samples in chronological order.
// An empty machineID covers every machine.
func (r *Repos) PowerSeries(ctx context.Context, machineID string, n int) (_ []domain.PowerSample, err error) {
	defer func(start time.Time) { observe("power_series", start, err) }(time.Now())
	q := `SELECT timestamp, power_kw FROM energy_records
	WHERE power_kw IS NOT NULL AND timestamp IS NOT NULL`
	args := []any{}
	if machineID != "" {
		q += ` AND machine_id = $1 ORDER BY timestamp DESC LIMIT $2`
		args = append(args, machineID, n)
	} else {
		q += ` ORDER BY timestamp DESC LIMIT $1`
		args = append(args, n)
	}
	out := []domain.PowerSample{}
	if err = r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *Repos) MachineStats(ctx context.Context, machineID string) (_ domain.MachineStats, err error) {
	defer func(start time.Time) { observe("machine_stats", start, err) }(time.Now())
	var s domain.MachineStats
	err = r.db.GetContext(ctx, &s, `SELECT COUNT(*) AS row_count,
		COUNT(*) FILTER (WHERE true_anomaly_label = 1) AS labelled_anomalies,
		COALESCE(AVG(maintenance_cost), 0) AS avg_maintenance_cost,
		MIN(timestamp) AS first_seen,
		MAX(timestamp) AS last_seen
	FROM energy_records WHERE machine_id = $1`, machineID)
	return s, err
}
