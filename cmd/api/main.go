package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"fundraiser/internal/adapter/memstore"
	"fundraiser/internal/adapter/repo"
	"fundraiser/internal/domain"
	"fundraiser/internal/eventbus"
	"fundraiser/internal/http/handlers"
	httpapi "fundraiser/internal/http/httpapi"
	"fundraiser/internal/infra"
	"fundraiser/internal/ledger"
	"fundraiser/internal/metrics"
	"fundraiser/internal/payout"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		store domain.FundraiserStore
		ready func(context.Context) error
	)
	if cfg.UsePostgres() {
		dbpool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer dbpool.Close()

		runner := infra.NewSQLRunner(dbpool, logger)
		if cfg.MigrateOnStart {
			n, err := infra.Migrate(ctx, runner, logger)
			if err != nil {
				logger.Fatal().Err(err).Msg("failed to apply migrations")
			}
			logger.Info().Int("applied", n).Msg("migrations up to date")
		}
		store = repo.NewFundraiserRepository(runner)
		ready = dbpool.Ping
	} else {
		logger.Warn().Msg("DATABASE_URL not set, using in-memory store")
		store = memstore.New()
	}

	var transferrer domain.Transferrer
	if cfg.PayoutWebhookURL != "" {
		transferrer, err = payout.NewWebhookTransferrer(payout.Options{
			URL:            cfg.PayoutWebhookURL,
			Secret:         cfg.PayoutWebhookSecret,
			Logger:         &logger,
			RequestTimeout: cfg.PayoutTimeout,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure payout webhook")
		}
	} else {
		logger.Warn().Msg("PAYOUT_WEBHOOK_URL not set, withdrawals credit the in-memory vault")
		transferrer = payout.NewVault()
	}

	sinks := eventbus.Multi{eventbus.NewLogSink(logger)}
	var kafkaPub *eventbus.KafkaPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub, err = eventbus.NewKafkaPublisher(eventbus.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure kafka publisher")
		}
		kafkaPub.Start(context.Background())
		sinks = append(sinks, kafkaPub)
	}

	m := metrics.New()
	svc, err := ledger.NewService(store, transferrer, ledger.Options{
		Policy:   &ledger.Policy{RejectNonPositive: cfg.RejectNonPositiveDonations},
		Sink:     sinks,
		Recorder: m,
		Logger:   &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build ledger service")
	}

	app := handlers.NewApp(svc, logger, cfg.AmountDecimals)
	app.Ready = ready

	router := httpapi.NewRouter(app, httpapi.Options{
		JWTSecret:       cfg.JWTSecret,
		JWTIssuer:       cfg.JWTIssuer,
		RateLimitPerMin: cfg.RateLimitPerMin,
		CORSOrigins:     cfg.CORSAllowedOrigins,
		Metrics:         m,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if kafkaPub != nil {
		if err := kafkaPub.Stop(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to stop kafka publisher")
		}
	}
	logger.Info().Msg("server stopped")
}
