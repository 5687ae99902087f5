package payment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/backend-payintent/internal/auth"
	"github.com/noah-isme/backend-payintent/internal/obs"
)

const (
	msgUnauthenticated = "You must be logged in to create a payment intent."
	msgInvalidAmount   = "Amount must be a positive number."
	msgUpstreamFailed  = "Failed to create Payment Intent"
)

const (
	resultSuccess         = "success"
	resultUnauthenticated = "unauthenticated"
	resultInvalidAmount   = "invalid_amount"
	resultUpstreamError   = "upstream_error"
)

var (
	errMissingClientSecret = errors.New("processor response carried no client secret")
	errAmountOutOfRange    = errors.New("amount in minor units exceeds the processor range")
)

// cardOnly is the fixed set of payment methods offered on every intent.
var cardOnly = []string{"card"}

// Service brokers creation of one payment intent per invocation. It holds no
// per-invocation state and is safe for concurrent use.
type Service struct {
	Processor Processor
	Logger    zerolog.Logger
}

// Create authenticates the caller, validates the amount and asks the processor
// for a payment intent. Failures are returned as *Error; the processor is only
// called once both guards pass, and never retried.
func (s *Service) Create(ctx context.Context, caller auth.Caller, req Request) (Result, error) {
	if s == nil || s.Processor == nil {
		return Result{}, errors.New("payment service not configured")
	}
	ctx, span := otel.Tracer("payment.Service").Start(ctx, "PaymentService.Create")
	defer span.End()

	provider := providerName(s.Processor)
	result := resultUpstreamError
	defer func() {
		span.SetAttributes(
			attribute.String("payment.provider", provider),
			attribute.String("payment.intent.result", result),
		)
		if obs.PaymentIntentTotal != nil {
			obs.PaymentIntentTotal.WithLabelValues(provider, result).Inc()
		}
	}()
	logger := s.loggerFor(ctx)

	if !caller.Authenticated() {
		result = resultUnauthenticated
		logger.Error().Msg("payment_intent_unauthenticated")
		return Result{}, unauthenticated(msgUnauthenticated)
	}
	span.SetAttributes(attribute.String("payment.caller_id", caller.ID))

	amount, ok := req.MajorAmount()
	if !ok {
		result = resultInvalidAmount
		logger.Error().Str("caller_id", caller.ID).Str("amount", rawAmount(req)).Msg("payment_intent_invalid_amount")
		return Result{}, invalidArgument(msgInvalidAmount, nil)
	}
	minor, fits := MinorUnits(amount)
	if !fits {
		span.RecordError(errAmountOutOfRange)
		span.SetStatus(codes.Error, "create payment intent")
		logger.Error().Err(errAmountOutOfRange).Str("caller_id", caller.ID).Str("amount", rawAmount(req)).Msg("payment_intent_failed")
		return Result{}, invalidArgument(msgUpstreamFailed, errAmountOutOfRange)
	}

	params := CreateParams{
		Amount:             minor,
		Currency:           req.currency(),
		PaymentMethodTypes: append([]string(nil), cardOnly...),
		Metadata: map[string]string{
			"callerId":  caller.ID,
			"bookingId": req.bookingID(),
		},
	}
	span.SetAttributes(
		attribute.Int64("payment.amount_minor", params.Amount),
		attribute.String("payment.currency", params.Currency),
	)

	start := time.Now()
	intent, err := s.Processor.CreatePaymentIntent(ctx, params)
	if err == nil && strings.TrimSpace(intent.ClientSecret) == "" {
		err = errMissingClientSecret
	}
	s.observeLatency(provider, err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create payment intent")
		message := upstreamMessage(err)
		logger.Error().Err(err).Str("caller_id", caller.ID).Str("provider", provider).Msg("payment_intent_failed")
		return Result{}, invalidArgument(message, err)
	}

	result = resultSuccess
	logger.Info().
		Str("payment_intent_id", intent.ID).
		Str("caller_id", caller.ID).
		Str("booking_id", params.Metadata["bookingId"]).
		Int64("amount_minor", params.Amount).
		Str("currency", params.Currency).
		Msg("payment_intent_created")
	return Result{ClientSecret: intent.ClientSecret}, nil
}

func (s *Service) loggerFor(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &s.Logger
}

func (s *Service) observeLatency(provider string, err error, d time.Duration) {
	if obs.ProcessorLatency == nil {
		return
	}
	result := resultSuccess
	if err != nil {
		result = resultUpstreamError
	}
	obs.ProcessorLatency.WithLabelValues(provider, result).Observe(obs.DurationMillis(d))
}

// upstreamMessage prefers the processor's own message, then the error text,
// and falls back to a generic message. Malformed responses and Stripe errors
// without a message only ever get the generic message.
func upstreamMessage(err error) string {
	if errors.Is(err, errMissingClientSecret) {
		return msgUpstreamFailed
	}
	var pe *ProcessorError
	if errors.As(err, &pe) && strings.TrimSpace(pe.Message) == "" {
		var se *stripe.Error
		if errors.As(pe.Err, &se) {
			return msgUpstreamFailed
		}
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return msgUpstreamFailed
}

func rawAmount(req Request) string {
	if len(req.Amount) == 0 {
		return "<absent>"
	}
	return string(req.Amount)
}
