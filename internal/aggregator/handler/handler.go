package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"trustgate/internal/aggregator"
	"trustgate/internal/platform/middleware"
	"trustgate/pkg/domain"
	"trustgate/pkg/platform/httputil"
)

// Service defines the interface for cross-service status aggregation.
type Service interface {
	Aggregate(ctx context.Context, subjectID domain.SubjectID) (*aggregator.Report, error)
}

// Handler wires the aggregate status endpoint to the aggregator service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an aggregator handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the aggregate status endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/aggregate-status/{subjectID}", h.handleAggregateStatus)
}

// handleAggregateStatus handles GET /aggregate-status/{subjectID}. A report
// is returned even when some downstream services are unreachable; the
// report's state says how complete it is.
func (h *Handler) handleAggregateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	start := time.Now()

	subjectID, err := domain.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	report, err := h.service.Aggregate(ctx, subjectID)
	if err != nil {
		h.logger.ErrorContext(ctx, "aggregation failed",
			"request_id", requestID,
			"subject_id", subjectID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "aggregate status collected",
		"request_id", requestID,
		"subject_id", subjectID,
		"state", report.State,
		"verified", report.VerifiedCount,
		"total", report.TotalServices,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, report)
}
