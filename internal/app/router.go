package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/backend-payintent/internal/auth"
	"github.com/noah-isme/backend-payintent/internal/health"
	"github.com/noah-isme/backend-payintent/internal/obs"
	"github.com/noah-isme/backend-payintent/internal/payment"
	"github.com/noah-isme/backend-payintent/internal/security"
)

const readinessTimeout = 500 * time.Millisecond

// RouterOptions toggles optional middleware.
type RouterOptions struct {
	Tracing bool
}

// NewRouter builds the HTTP surface: health, metrics and the callable endpoint.
func NewRouter(d Dependencies, opts RouterOptions) http.Handler {
	cfg := d.Config
	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if d.Registry != nil {
		registerer, gatherer = d.Registry, d.Registry
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if opts.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if cfg.EnablePrometheus {
		buckets := obs.ParseBucketsCSV(cfg.MetricsBucketsMS)
		r.Use(obs.HTTPObs{Metrics: obs.NewHTTPMetrics(cfg.MetricsNamespace, buckets, registerer)}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg.CORSAllowedOrigins),
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(security.Headers{Enable: cfg.SecureHeadersEnabled, EnableHSTS: cfg.IsProduction()}.Middleware)

	if cfg.EnablePrometheus {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	healthHandler := health.Handler{Checks: d.readinessChecks(), Timeout: readinessTimeout}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	authMiddleware := auth.Middleware{Verifier: d.Verifier, Logger: d.Logger}
	handler := &payment.Handler{Svc: d.NewService()}
	r.Group(func(g chi.Router) {
		g.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)
		g.Use(authMiddleware.Authenticate)
		g.Post("/v1/createPaymentIntent", handler.CreatePaymentIntent)
		g.Post("/createPaymentIntent", handler.CreatePaymentIntent)
	})
	return r
}

func (d Dependencies) readinessChecks() map[string]health.Check {
	return map[string]health.Check{
		"processor": func(context.Context) error {
			if d.Processor == nil {
				return errors.New("processor not configured")
			}
			return nil
		},
		"identity": func(ctx context.Context) error {
			if d.Verifier == nil {
				return errors.New("identity verifier not configured")
			}
			return d.Verifier.Ready(ctx)
		},
	}
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
