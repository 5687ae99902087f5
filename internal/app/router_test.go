package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-payintent/internal/app"
	"github.com/noah-isme/backend-payintent/internal/auth"
	"github.com/noah-isme/backend-payintent/internal/config"
	"github.com/noah-isme/backend-payintent/internal/payment"
)

const signingSecret = "router-test-secret"

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:               "test",
		Port:                 "0",
		LogFormat:            "json",
		LogLevel:             "info",
		EnablePrometheus:     true,
		MetricsNamespace:     "payintent_router",
		PaymentProvider:      config.ProviderSandbox,
		StripeHTTPTimeout:    time.Second,
		JWTSecret:            signingSecret,
		BodyLimitBytes:       1024,
		SecureHeadersEnabled: true,
		ShutdownTimeout:      time.Second,
	}
}

func newRouter(t *testing.T) (http.Handler, *bytes.Buffer) {
	t.Helper()
	cfg := testConfig()
	verifier, err := app.NewVerifier(context.Background(), cfg)
	require.NoError(t, err)
	var logs bytes.Buffer
	deps := app.Dependencies{
		Config:    cfg,
		Logger:    zerolog.New(&logs),
		Registry:  prometheus.NewRegistry(),
		Processor: payment.Sandbox{},
		Verifier:  verifier,
	}
	return app.NewRouter(deps, app.RouterOptions{}), &logs
}

func bearer(t *testing.T, secret, subject string) string {
	t.Helper()
	now := time.Now()
	tok, err := jwt.NewBuilder().Subject(subject).IssuedAt(now).Expiration(now.Add(time.Minute)).Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte(secret)))
	require.NoError(t, err)
	return "Bearer " + string(signed)
}

func call(h http.Handler, path, authorization, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorStatus(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Status string `json:"status"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.Error.Status
}

func TestRouterCreatesPaymentIntent(t *testing.T) {
	h, logs := newRouter(t)

	for _, path := range []string{"/v1/createPaymentIntent", "/createPaymentIntent"} {
		rec := call(h, path, bearer(t, signingSecret, "user-1"), `{"data":{"amount":49.99,"bookingId":"B123"}}`)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var env struct {
			Result payment.Result `json:"result"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		require.True(t, strings.HasPrefix(env.Result.ClientSecret, "pi_sandbox_"))
		require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	}
	require.Contains(t, logs.String(), `"caller_id":"user-1"`)
	require.Contains(t, logs.String(), "payment_intent_created")
}

func TestRouterRejectsMissingIdentity(t *testing.T) {
	h, _ := newRouter(t)
	rec := call(h, "/v1/createPaymentIntent", "", `{"data":{"amount":10}}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "UNAUTHENTICATED", errorStatus(t, rec))
}

func TestRouterRejectsForgedToken(t *testing.T) {
	h, _ := newRouter(t)
	rec := call(h, "/v1/createPaymentIntent", bearer(t, "someone-else", "user-1"), `{"data":{"amount":10}}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "UNAUTHENTICATED", errorStatus(t, rec))
}

func TestRouterRejectsInvalidAmount(t *testing.T) {
	h, _ := newRouter(t)
	rec := call(h, "/v1/createPaymentIntent", bearer(t, signingSecret, "user-1"), `{"data":{"amount":"ten"}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "INVALID_ARGUMENT", errorStatus(t, rec))
}

func TestRouterEnforcesBodyLimit(t *testing.T) {
	h, _ := newRouter(t)
	body := `{"data":{"amount":10,"bookingId":"` + strings.Repeat("x", 2048) + `"}}`
	rec := call(h, "/v1/createPaymentIntent", bearer(t, signingSecret, "user-1"), body)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRouterHealthAndMetrics(t *testing.T) {
	h, _ := newRouter(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	_ = call(h, "/v1/createPaymentIntent", "", `{}`)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `payintent_router_http_requests_total{method="POST",route="/v1/createPaymentIntent",status="401"} 1`)
}

func TestRouterCORSPreflight(t *testing.T) {
	h, _ := newRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/v1/createPaymentIntent", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

type failingVerifier struct{}

func (failingVerifier) Verify(context.Context, string) (auth.Caller, error) {
	return auth.Caller{}, auth.ErrNoToken
}

func (failingVerifier) Ready(context.Context) error { return errors.New("jwks unreachable") }

func TestRouterNotReadyWithoutKeys(t *testing.T) {
	deps := app.Dependencies{
		Config:    testConfig(),
		Logger:    zerolog.Nop(),
		Registry:  prometheus.NewRegistry(),
		Processor: payment.Sandbox{},
		Verifier:  failingVerifier{},
	}
	rec := httptest.NewRecorder()
	app.NewRouter(deps, app.RouterOptions{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "jwks unreachable")
}
