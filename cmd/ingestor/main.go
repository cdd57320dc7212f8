package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/cache"
	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/config"
	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/database"
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

	// the API's dashboard cache is shared through redis
	var dashboardCache service.Cache
	if addr := config.RedisAddr(); addr != "" {
		client, err := cache.Connect(ctx, addr)
		if err != nil {
			log.Warn().Err(err).Str("addr", addr).Msg("redis unavailable; dashboard cache not invalidated")
		} else {
			defer client.Close()
			dashboardCache = cache.New(client, config.DashboardCacheTTL())
		}
	}
	readings := service.NewReadingService(repository.New(db), dashboardCache)

	opts := mqtt.NewClientOptions().
		AddBroker(config.MQTTBroker()).
		SetClientID("energy-ingestor").
		SetAutoReconnect(true)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("mqtt connect")
	}
	defer client.Disconnect(250)

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		msgCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := readings.FromMQTT(msgCtx, msg.Topic(), msg.Payload()); err != nil {
			log.Error().Err(err).Str("topic", msg.Topic()).Msg("ingest failed")
		}
	}

	topic := config.MQTTTopic()
	if token := client.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("subscribe failed")
	}

	log.Info().Str("topic", topic).Msg("ingestor running; Ctrl+C to stop")
	<-ctx.Done()
	log.Info().Msg("ingestor stopping")
}
