package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/noah-isme/backend-payintent/internal/app"
	"github.com/noah-isme/backend-payintent/internal/config"
	"github.com/noah-isme/backend-payintent/internal/obs"
	"github.com/noah-isme/backend-payintent/internal/secrets"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().
		Str("env", cfg.AppEnv).
		Str("transport", "lambda").
		Logger()

	ctx := context.Background()
	var sm secrets.SecretsManagerAPI
	if cfg.StripeSecretID != "" {
		client, err := secrets.NewSecretsManagerClient(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("initialise secrets manager client")
		}
		sm = client
	}

	processor, err := app.NewProcessor(ctx, cfg, logger, sm)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise payment processor")
	}

	handler := app.Dependencies{Config: cfg, Logger: logger, Processor: processor}.NewLambdaHandler()
	lambda.Start(handler.Handle)
}
