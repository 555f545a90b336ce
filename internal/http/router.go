package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	aggregatorhandler "trustgate/internal/aggregator/handler"
	"trustgate/internal/platform/metrics"
	"trustgate/internal/platform/middleware"
	verificationhandler "trustgate/internal/verification/handler"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker func() error

// NewRouter wires all endpoints with the shared middleware chain. Handlers
// delegate to domain services; transport concerns stay here.
func NewRouter(
	verification *verificationhandler.Handler,
	aggregation *aggregatorhandler.Handler,
	appMetrics *metrics.Metrics,
	logger *slog.Logger,
	health HealthChecker,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.LatencyMiddleware(appMetrics))

	verification.Register(r)
	verification.RegisterAdmin(r)
	if aggregation != nil {
		aggregation.Register(r)
	}

	r.Get("/healthz", handleHealthz(health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

func handleHealthz(health HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if health != nil {
			if err := health(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
