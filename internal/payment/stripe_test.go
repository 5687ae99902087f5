package payment_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-payintent/internal/payment"
)

type stripeStub struct {
	hits   atomic.Int32
	form   url.Values
	auth   string
	status int
	body   string
}

func (s *stripeStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.hits.Add(1)
	s.auth = r.Header.Get("Authorization")
	raw, _ := io.ReadAll(r.Body)
	s.form, _ = url.ParseQuery(string(raw))
	if r.Method != http.MethodPost || r.URL.Path != "/v1/payment_intents" {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"unexpected route"}}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(s.status)
	_, _ = w.Write([]byte(s.body))
}

func newStripe(t *testing.T, stub *stripeStub) *payment.Stripe {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	p, err := payment.NewStripe(payment.StripeConfig{
		SecretKey:  "sk_test_123",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)
	return p
}

func bookingParams() payment.CreateParams {
	return payment.CreateParams{
		Amount:             4999,
		Currency:           "usd",
		PaymentMethodTypes: []string{"card"},
		Metadata:           map[string]string{"callerId": "caller-alice", "bookingId": "B123"},
	}
}

func TestNewStripeRequiresKey(t *testing.T) {
	_, err := payment.NewStripe(payment.StripeConfig{SecretKey: "  "})
	require.Error(t, err)
}

func TestStripeCreatesPaymentIntent(t *testing.T) {
	stub := &stripeStub{
		status: http.StatusOK,
		body:   `{"id":"pi_123","object":"payment_intent","amount":4999,"currency":"usd","client_secret":"pi_123_secret_abc"}`,
	}
	p := newStripe(t, stub)

	intent, err := p.CreatePaymentIntent(context.Background(), bookingParams())

	require.NoError(t, err)
	require.Equal(t, payment.Intent{ID: "pi_123", ClientSecret: "pi_123_secret_abc"}, intent)
	require.Equal(t, "Bearer sk_test_123", stub.auth)
	require.Equal(t, "4999", stub.form.Get("amount"))
	require.Equal(t, "usd", stub.form.Get("currency"))
	require.Equal(t, "caller-alice", stub.form.Get("metadata[callerId]"))
	require.Equal(t, "B123", stub.form.Get("metadata[bookingId]"))

	var methods []string
	for key, values := range stub.form {
		if strings.HasPrefix(key, "payment_method_types") {
			methods = append(methods, values...)
		}
	}
	require.Equal(t, []string{"card"}, methods)
}

func TestStripeSurfacesProcessorMessage(t *testing.T) {
	stub := &stripeStub{
		status: http.StatusPaymentRequired,
		body:   `{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`,
	}
	p := newStripe(t, stub)

	_, err := p.CreatePaymentIntent(context.Background(), bookingParams())

	var pe *payment.ProcessorError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "stripe", pe.Provider)
	require.Equal(t, http.StatusPaymentRequired, pe.StatusCode)
	require.Equal(t, "card_declined", pe.Code)
	require.Equal(t, "card_error", pe.Type)
	require.Equal(t, "Your card was declined.", pe.Error())
}

func TestStripeDoesNotRetryServerErrors(t *testing.T) {
	stub := &stripeStub{
		status: http.StatusInternalServerError,
		body:   `{"error":{"type":"api_error","message":"Something went wrong on our end."}}`,
	}
	p := newStripe(t, stub)

	_, err := p.CreatePaymentIntent(context.Background(), bookingParams())

	require.Error(t, err)
	require.EqualValues(t, 1, stub.hits.Load())
}

func TestStripeThroughServiceKeepsMessage(t *testing.T) {
	stub := &stripeStub{
		status: http.StatusBadRequest,
		body:   `{"error":{"type":"invalid_request_error","param":"currency","message":"Invalid currency: zzz"}}`,
	}
	svc, _ := newService(newStripe(t, stub))

	_, err := svc.Create(context.Background(), alice, payment.Request{
		Amount:   []byte("10"),
		Currency: []byte(`"zzz"`),
	})

	pe := requireKind(t, err, payment.KindInvalidArgument)
	require.Equal(t, "Invalid currency: zzz", pe.Message)
	require.Equal(t, "zzz", stub.form.Get("currency"))
	require.Equal(t, "unknown", stub.form.Get("metadata[bookingId]"))
}

func TestStripeMissingClientSecretIsGeneric(t *testing.T) {
	stub := &stripeStub{status: http.StatusOK, body: `{"id":"pi_9","object":"payment_intent"}`}
	svc, _ := newService(newStripe(t, stub))

	_, err := svc.Create(context.Background(), alice, amount("1"))

	pe := requireKind(t, err, payment.KindInvalidArgument)
	require.Equal(t, "Failed to create Payment Intent", pe.Message)
}

func TestStripeTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	p, err := payment.NewStripe(payment.StripeConfig{SecretKey: "sk_test_123", BaseURL: base, Logger: zerolog.Nop()})
	require.NoError(t, err)

	_, err = p.CreatePaymentIntent(context.Background(), bookingParams())

	var pe *payment.ProcessorError
	require.ErrorAs(t, err, &pe)
	require.Empty(t, pe.Message)
	require.NotEmpty(t, pe.Error())
}

func TestStripeErrorWithoutMessageIsGeneric(t *testing.T) {
	stub := &stripeStub{
		status: http.StatusBadRequest,
		body:   `{"error":{"type":"invalid_request_error","code":"parameter_unknown"}}`,
	}
	svc, _ := newService(newStripe(t, stub))

	_, err := svc.Create(context.Background(), alice, amount("10"))

	pe := requireKind(t, err, payment.KindInvalidArgument)
	require.Equal(t, "Failed to create Payment Intent", pe.Message)
	var perr *payment.ProcessorError
	require.ErrorAs(t, err, &perr)
	require.Empty(t, perr.Message)
	require.Equal(t, "parameter_unknown", perr.Code)
}
