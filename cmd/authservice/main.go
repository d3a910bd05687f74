package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/theadityachoudhury/auth-service/internal/config"
	"github.com/theadityachoudhury/auth-service/internal/database"
	"github.com/theadityachoudhury/auth-service/internal/logging"
	"github.com/theadityachoudhury/auth-service/internal/monitoring"
	"github.com/theadityachoudhury/auth-service/internal/server"
)

func main() {
	// Bootstrap logger for failures before the real sinks exist.
	boot := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		boot.Fatal().Err(err).Msg("could not load configuration")
	}

	log, err := logging.Setup(cfg.LoggingConfig())
	if err != nil {
		boot.Fatal().Err(err).Msg("could not set up logging")
	}
	defer log.Close()

	for _, w := range cfg.Warnings() {
		log.Base().Warn().Msg(w)
	}
	log.Base().Info().
		Dict("extra", logging.Extra(map[string]any{
			"app_name":    cfg.AppName,
			"app_version": cfg.AppVersion,
			"environment": cfg.Environment,
			"debug":       cfg.Debug,
		})).
		Msg("application starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
		log.Base().Fatal().Err(err).Msg("migrations failed")
	}

	nrApp, err := monitoring.NewRelicApp(cfg.AppName, cfg.NewRelicLicenseKey, cfg.MonitoringEnabled)
	if err != nil {
		log.Base().Fatal().Err(err).Msg("could not start monitoring agent")
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseConfig(), log, nrApp)
	if err != nil {
		log.Base().Fatal().Err(err).Msg("could not connect to database")
	}
	defer pool.Close()

	var metrics *monitoring.Metrics
	if cfg.PrometheusEnabled {
		metrics = monitoring.NewMetrics(cfg.AppName)
	}

	srv, err := server.New(cfg, log, pool, metrics)
	if err != nil {
		log.Base().Fatal().Err(err).Msg("could not build server")
	}

	if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Base().Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
	log.Base().Info().Msg("application shut down")
}
