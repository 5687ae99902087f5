package payment

import (
	"context"
	"strings"
)

// CreateParams is what the processor receives to open a payment intent.
type CreateParams struct {
	// Amount is expressed in minor currency units (cents).
	Amount             int64
	Currency           string
	PaymentMethodTypes []string
	Metadata           map[string]string
}

// Intent is the subset of the processor's payment intent this service uses.
type Intent struct {
	ID           string
	ClientSecret string
}

// Processor abstracts the upstream payment processor.
type Processor interface {
	CreatePaymentIntent(ctx context.Context, params CreateParams) (Intent, error)
}

// ProcessorError carries the processor's own description of a failed call.
// Message is empty when the failure happened below the processor API (for
// example a transport error), in which case Err describes it.
type ProcessorError struct {
	Provider   string
	StatusCode int
	Code       string
	Type       string
	Message    string
	Err        error
}

func (e *ProcessorError) Error() string {
	if msg := strings.TrimSpace(e.Message); msg != "" {
		return msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}

func (e *ProcessorError) Unwrap() error { return e.Err }

func providerName(p Processor) string {
	switch p.(type) {
	case *Stripe:
		return "stripe"
	case Sandbox, *Sandbox:
		return "sandbox"
	default:
		return "custom"
	}
}
