package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/backend-payintent/internal/app"
	"github.com/noah-isme/backend-payintent/internal/config"
	"github.com/noah-isme/backend-payintent/internal/health"
	"github.com/noah-isme/backend-payintent/internal/obs"
	"github.com/noah-isme/backend-payintent/internal/secrets"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := cfg.RequireIdentity(); err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, registry)

	tracingEnabled := cfg.EnableTracing
	if tracingEnabled {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:   "payintent-api",
			Endpoint:      cfg.OTLPEndpoint,
			Exporter:      "otlp",
			SamplingRatio: cfg.TracingSampleRatio,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(flushCtx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	processor, err := app.NewProcessor(ctx, cfg, logger, secretsClient(ctx, cfg, logger))
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise payment processor")
	}
	verifier, err := app.NewVerifier(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise identity verifier")
	}

	handler := app.NewRouter(app.Dependencies{
		Config:    cfg,
		Logger:    logger,
		Registry:  registry,
		Processor: processor,
		Verifier:  verifier,
	}, app.RouterOptions{Tracing: tracingEnabled})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", srv.Addr).Str("provider", cfg.PaymentProvider).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		health.SetReady(false)
		logger.Info().Msg("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server stopped")
}

func secretsClient(ctx context.Context, cfg *config.Config, logger zerolog.Logger) secrets.SecretsManagerAPI {
	if cfg.StripeSecretID == "" {
		return nil
	}
	client, err := secrets.NewSecretsManagerClient(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise secrets manager client")
	}
	return client
}
