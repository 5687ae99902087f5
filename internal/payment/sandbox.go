package payment

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Sandbox synthesises payment intents without calling a processor. It backs
// local development and is refused in production by configuration.
type Sandbox struct{}

// CreatePaymentIntent returns a fresh pi_sandbox_* intent with a client secret
// shaped like the processor's.
func (Sandbox) CreatePaymentIntent(_ context.Context, p CreateParams) (Intent, error) {
	if p.Amount <= 0 {
		return Intent{}, &ProcessorError{Provider: "sandbox", Code: "amount_too_small", Message: "Amount must be at least 1 minor unit."}
	}
	if strings.TrimSpace(p.Currency) == "" {
		return Intent{}, &ProcessorError{Provider: "sandbox", Err: errors.New("currency is required")}
	}
	id := "pi_sandbox_" + compactUUID()
	return Intent{
		ID:           id,
		ClientSecret: id + "_secret_" + compactUUID(),
	}, nil
}

func compactUUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
