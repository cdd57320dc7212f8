package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/cache"
	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/cloud"
	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/config"
	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/database"
	httpHandlers "github.com/ANIKETSHETTY47/machine-energy-insights/internal/http"
	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/ml"
	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/repository"
	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/service"
)

func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	config.SetupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect()
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("db migrate failed")
	}

	artifacts, err := cloud.ArtifactStore(ctx)
	if err != nil {
		log.Fatal().Err(err).Str("store", config.ModelStore()).Msg("artifact store init failed")
	}

	opts := service.Options{
		Trainer:     ml.TrainerConfig{Trees: config.ModelTrees(), Seed: config.ModelSeed()},
		Recommender: service.NewRecommender(config.GroqAPIKey(), config.GroqBaseURL(), config.GroqModel(), config.RecommendationTimeout()),
	}
	if addr := config.RedisAddr(); addr != "" {
		client, err := cache.Connect(ctx, addr)
		if err != nil {
			log.Warn().Err(err).Str("addr", addr).Msg("redis unavailable; dashboard cache disabled")
		} else {
			defer client.Close()
			opts.Cache = cache.New(client, config.DashboardCacheTTL())
		}
	}
	if config.UseCloudServices() {
		sinks, history, err := cloud.AlertSinks(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("cloud alert sinks init failed")
		}
		opts.Alerter = sinks
		opts.AlertHistory = history
	}

	svcs := service.New(repository.New(db), artifacts, opts)
	svcs.Models.Retrain(ctx, config.ForceRetrain())

	app := fiber.New(fiber.Config{ReadTimeout: 30 * time.Second})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{AllowOrigins: config.CORSOrigins()}))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	httpHandlers.Register(app, svcs)

	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("shutdown failed")
		}
	}()

	addr := config.APIAddr()
	log.Info().Str("addr", addr).Msg("api listening")
	if err := app.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("server exit")
	}
}
