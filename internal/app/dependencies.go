// Package app wires configuration into the processor, identity verifier and
// transports shared by cmd/api and cmd/lambda.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-payintent/internal/auth"
	"github.com/noah-isme/backend-payintent/internal/config"
	"github.com/noah-isme/backend-payintent/internal/payment"
	"github.com/noah-isme/backend-payintent/internal/secrets"
	"github.com/noah-isme/backend-payintent/internal/serverless"
)

// IdentityVerifier verifies bearer tokens and reports whether its keys are usable.
type IdentityVerifier interface {
	auth.TokenVerifier
	Ready(ctx context.Context) error
}

// Dependencies enumerates what the transports are built from.
type Dependencies struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Registry  *prometheus.Registry
	Processor payment.Processor
	Verifier  IdentityVerifier
}

// NewProcessor selects the payment processor named by configuration. The
// Stripe key is resolved from the secret store or the environment; sm may be
// nil when no secret id is configured.
func NewProcessor(ctx context.Context, cfg *config.Config, logger zerolog.Logger, sm secrets.SecretsManagerAPI) (payment.Processor, error) {
	switch cfg.PaymentProvider {
	case config.ProviderSandbox:
		if cfg.IsProduction() {
			return nil, errors.New("sandbox processor refused in production")
		}
		logger.Warn().Msg("payment_processor_sandbox")
		return payment.Sandbox{}, nil
	case config.ProviderStripe, "":
		key, err := secrets.Resolve(ctx, secrets.Source{
			SecretID: cfg.StripeSecretID,
			EnvValue: cfg.StripeSecretKey,
			Client:   sm,
		})
		if err != nil {
			return nil, err
		}
		timeout := cfg.StripeHTTPTimeout
		if timeout <= 0 {
			timeout = payment.DefaultStripeTimeout
		}
		return payment.NewStripe(payment.StripeConfig{
			SecretKey: key,
			BaseURL:   cfg.StripeAPIBaseURL,
			HTTPClient: &http.Client{
				Timeout:   timeout,
				Transport: otelhttp.NewTransport(http.DefaultTransport),
			},
			Logger: logger,
		})
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.PaymentProvider)
	}
}

// NewVerifier builds the bearer token verifier from configuration.
func NewVerifier(ctx context.Context, cfg *config.Config) (*auth.Verifier, error) {
	return auth.NewVerifier(ctx, auth.VerifierConfig{
		Secret:    cfg.JWTSecret,
		JWKSURL:   cfg.JWKSURL,
		Issuer:    cfg.AuthIssuer,
		Audience:  cfg.AuthAudience,
		ClockSkew: cfg.AuthClockSkew,
	})
}

// NewService builds the payment service for deps.
func (d Dependencies) NewService() *payment.Service {
	return &payment.Service{Processor: d.Processor, Logger: d.Logger}
}

// NewLambdaHandler builds the API Gateway transport. Identity comes from the
// gateway authorizer, so no verifier is needed.
func (d Dependencies) NewLambdaHandler() *serverless.Handler {
	return &serverless.Handler{Svc: d.NewService(), Logger: d.Logger}
}
