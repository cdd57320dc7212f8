package database

import (
	"context"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/viper"
)

func Connect() (*sqlx.DB, error) {
	dsn := viper.GetString("DB_DSN")
	return sqlx.Connect("pgx", dsn)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS energy_records (
		id BIGSERIAL PRIMARY KEY,
		machine_id TEXT,
		machine_model TEXT,
		rated_capacity_kw DOUBLE PRECISION,
		contract_demand_kw DOUBLE PRECISION,
		timestamp TIMESTAMPTZ,
		shift TEXT,
		operator_id TEXT,
		power_kw DOUBLE PRECISION,
		energy_kwh DOUBLE PRECISION,
		load_percent DOUBLE PRECISION,
		power_factor DOUBLE PRECISION,
		temperature DOUBLE PRECISION,
		ambient_temperature DOUBLE PRECISION,
		production_output DOUBLE PRECISION,
		operating_status TEXT,
		idle_flag BOOLEAN,
		electricity_tariff DOUBLE PRECISION,
		maintenance_cost DOUBLE PRECISION,
		co2_emission DOUBLE PRECISION,
		true_anomaly_label INTEGER,
		downtime_minutes DOUBLE PRECISION
	)`,
	`CREATE INDEX IF NOT EXISTS idx_energy_records_timestamp ON energy_records (timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_energy_records_machine_id ON energy_records (machine_id)`,
}

// Migrate creates the energy_records table and its indexes when missing.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
