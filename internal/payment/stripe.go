package payment

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-payintent/internal/obs"
)

// DefaultStripeTimeout mirrors the Stripe library's own HTTP client timeout.
const DefaultStripeTimeout = 80 * time.Second

// StripeConfig configures the Stripe processor.
type StripeConfig struct {
	SecretKey string
	// BaseURL overrides the Stripe API host, e.g. for stripe-mock or tests.
	BaseURL    string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Stripe creates payment intents through the Stripe API.
type Stripe struct {
	client paymentintent.Client
}

// NewStripe builds a Stripe processor bound to its own backend. The backend
// never retries: a failed call is surfaced to the caller as-is.
func NewStripe(cfg StripeConfig) (*Stripe, error) {
	key := strings.TrimSpace(cfg.SecretKey)
	if key == "" {
		return nil, errors.New("payment: stripe secret key is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   DefaultStripeTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	backendCfg := &stripe.BackendConfig{
		HTTPClient:        httpClient,
		LeveledLogger:     obs.StripeLogger{Logger: cfg.Logger},
		MaxNetworkRetries: stripe.Int64(0),
	}
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		backendCfg.URL = stripe.String(base)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg)
	return &Stripe{client: paymentintent.Client{B: backend, Key: key}}, nil
}

// CreatePaymentIntent opens a payment intent and returns its id and client secret.
func (s *Stripe) CreatePaymentIntent(ctx context.Context, p CreateParams) (Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(p.Amount),
		Currency:           stripe.String(p.Currency),
		PaymentMethodTypes: stripe.StringSlice(p.PaymentMethodTypes),
	}
	params.Context = ctx
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := s.client.New(params)
	if err != nil {
		return Intent{}, stripeError(err)
	}
	if pi == nil {
		return Intent{}, &ProcessorError{Provider: "stripe", Err: errMissingClientSecret}
	}
	return Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func stripeError(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		return &ProcessorError{
			Provider:   "stripe",
			StatusCode: se.HTTPStatusCode,
			Code:       string(se.Code),
			Type:       string(se.Type),
			Message:    strings.TrimSpace(se.Msg),
			Err:        err,
		}
	}
	return &ProcessorError{Provider: "stripe", Err: err}
}
