package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/cloud"
	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/config"
	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/database"
	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/ml"
	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/repository"
)

func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	config.SetupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := trainCmd().Run(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("training failed")
	}
}

func trainCmd() *cli.Command {
	return &cli.Command{
		Name:  "trainer",
		Usage: "Fit the anomaly, cost and efficiency models from the energy_records table",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Retrain even when every artifact already exists",
				Value: config.ForceRetrain(),
			},
			&cli.IntFlag{
				Name:  "trees",
				Usage: "Trees per forest",
				Value: config.ModelTrees(),
			},
			&cli.IntFlag{
				Name:  "seed",
				Usage: "Random seed for reproducible fits",
				Value: int(config.ModelSeed()),
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "Exit non-zero when any task fails to train",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			db, err := database.Connect()
			if err != nil {
				return fmt.Errorf("db connect: %w", err)
			}
			defer db.Close()
			if err := database.Migrate(ctx, db); err != nil {
				return err
			}

			artifacts, err := cloud.ArtifactStore(ctx)
			if err != nil {
				return err
			}
			trainer := ml.NewTrainer(repository.New(db), artifacts, ml.TrainerConfig{
				Trees: int(cmd.Int("trees")),
				Seed:  int64(cmd.Int("seed")),
			})

			report := trainer.EnsureTrained(ctx, cmd.Bool("force"))
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			if cmd.Bool("strict") && len(report.Failed) > 0 {
				return fmt.Errorf("%d of %d tasks failed", len(report.Failed), len(ml.Tasks))
			}
			return nil
		},
	}
}
