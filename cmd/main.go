package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"voice-message-pipeline/internal/app"
	"voice-message-pipeline/internal/audiostore"
	"voice-message-pipeline/internal/capture/mock"
	"voice-message-pipeline/internal/config"
	"voice-message-pipeline/internal/events"
	"voice-message-pipeline/internal/gate"
	"voice-message-pipeline/internal/observability"
	"voice-message-pipeline/internal/pipeline"
	"voice-message-pipeline/internal/recognition"
)

func main() {
	cfg := config.Load()

	application := app.New(cfg)
	if err := application.Start(); err != nil {
		log.Fatal().Err(err).Msg("Application start failed")
	}

	// Kafka publisher with separate topics for completed and failed
	// voice messages; log-only when disabled.
	publisher := events.New(&events.Config{
		Enabled:        cfg.Kafka.Enabled,
		Brokers:        cfg.Kafka.Brokers,
		TopicCompleted: cfg.Kafka.TopicCompleted,
		TopicFailed:    cfg.Kafka.TopicFailed,
		Principal:      cfg.Kafka.Principal,
	})
	defer publisher.Close()

	obs := observability.NewServer(cfg.Service.MetricsAddr)
	obs.Start()

	// The simulated device stands in for a platform capture backend;
	// deployments wire a real capture.Device here.
	device := mock.New()
	g := &gate.Gate{
		Mic: gate.StaticMicrophone{Result: gate.PermissionGranted},
		Net: gate.NewProber(),
	}

	p := pipeline.New(
		cfg,
		device,
		g,
		audiostore.New(cfg.Store.Dir),
		recognition.NewClient(cfg.Provider),
		publisher,
	)
	if err := p.Init(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Pipeline init failed")
	}

	log.Info().
		Str("metricsAddr", cfg.Service.MetricsAddr).
		Str("storeDir", cfg.Store.Dir).
		Msg("Voice message pipeline ready")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("Shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := p.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Pipeline shutdown error")
	}
	if err := obs.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Observability server shutdown error")
	}
	application.Shutdown()
}
