package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"trustgate/internal/audit"
	"trustgate/internal/platform/middleware"
	"trustgate/internal/verification/models"
	"trustgate/internal/verification/workflow"
	"trustgate/pkg/domain"
	tgerrors "trustgate/pkg/errors"
	"trustgate/pkg/platform/httputil"
)

// WorkflowService defines the interface for subject lifecycle operations.
type WorkflowService interface {
	StartRegistration(ctx context.Context, id domain.SubjectID, subjectType domain.SubjectType, initial workflow.ProfileData) (*models.Subject, error)
	CompleteProfile(ctx context.Context, id domain.SubjectID, profile workflow.ProfileData) (*models.Subject, error)
	AttachDocument(ctx context.Context, id domain.SubjectID, docType models.DocumentType, data []byte) (*models.Document, error)
	SubmitForVerification(ctx context.Context, id domain.SubjectID) (*models.Subject, error)
	Cancel(ctx context.Context, id domain.SubjectID, actor string) (*models.Subject, error)
	Status(ctx context.Context, id domain.SubjectID) (*models.Subject, []models.Document, error)
	History(ctx context.Context, id domain.SubjectID) ([]models.CheckResult, error)
	Risk(ctx context.Context, id domain.SubjectID) (*workflow.RiskAssessment, error)
	Delete(ctx context.Context, id domain.SubjectID, actor string) error
}

// ReviewService defines the interface for manual admin decisions.
type ReviewService interface {
	Approve(ctx context.Context, id domain.SubjectID, actor, notes string) (*models.Subject, error)
	Reject(ctx context.Context, id domain.SubjectID, actor, reason string) (*models.Subject, error)
	RequestReview(ctx context.Context, id domain.SubjectID, actor, reason string) (*models.Subject, error)
}

// AuditReader exposes the per-subject audit trail to the admin surface.
type AuditReader interface {
	List(ctx context.Context, subjectID domain.SubjectID) ([]audit.Event, error)
}

// Handler wires verification endpoints to the workflow and review services.
type Handler struct {
	workflow  WorkflowService
	review    ReviewService
	auditor   AuditReader
	logger    *slog.Logger
	validator *middleware.TokenValidator
}

// New constructs a verification handler with its dependencies.
func New(wf WorkflowService, review ReviewService, auditor AuditReader, validator *middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{
		workflow:  wf,
		review:    review,
		auditor:   auditor,
		validator: validator,
		logger:    logger,
	}
}

// Register mounts the public subject endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/subjects", h.handleCreateSubject)
	r.Get("/subjects/{subjectID}", h.handleGetSubject)
	r.Put("/subjects/{subjectID}/profile", h.handleUpdateProfile)
	r.Post("/subjects/{subjectID}/documents", h.handleAttachDocument)
	r.Post("/subjects/{subjectID}/submit", h.handleSubmit)
	r.Post("/subjects/{subjectID}/cancel", h.handleCancel)
	r.Get("/subjects/{subjectID}/history", h.handleHistory)
	r.Get("/subjects/{subjectID}/risk", h.handleRisk)
}

// RegisterAdmin mounts the admin decision endpoints behind token auth.
func (h *Handler) RegisterAdmin(r chi.Router) {
	adminRouter := chi.NewRouter()
	adminRouter.Use(middleware.RequireAdmin(h.validator, h.logger))
	adminRouter.Post("/subjects/{subjectID}/approve", h.handleApprove)
	adminRouter.Post("/subjects/{subjectID}/reject", h.handleReject)
	adminRouter.Post("/subjects/{subjectID}/request-review", h.handleRequestReview)
	adminRouter.Get("/subjects/{subjectID}/audit", h.handleAuditTrail)
	adminRouter.Delete("/subjects/{subjectID}", h.handleDelete)

	r.Mount("/admin", adminRouter)
}

func (h *Handler) subjectID(w http.ResponseWriter, r *http.Request) (domain.SubjectID, bool) {
	id, err := domain.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return id, true
}

// handleCreateSubject handles POST /subjects.
func (h *Handler) handleCreateSubject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[CreateSubjectRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	subject, err := h.workflow.StartRegistration(ctx, req.ParsedID(), req.ParsedType(), req.Profile.toProfileData())
	if err != nil {
		h.logger.WarnContext(ctx, "registration failed",
			"request_id", requestID,
			"subject_id", req.SubjectID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "registration started",
		"request_id", requestID,
		"subject_id", subject.ID,
		"subject_type", subject.Type,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromSubject(subject))
}

// handleGetSubject handles GET /subjects/{subjectID}.
func (h *Handler) handleGetSubject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.subjectID(w, r)
	if !ok {
		return
	}

	subject, docs, err := h.workflow.Status(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromStatus(subject, docs))
}

// handleUpdateProfile handles PUT /subjects/{subjectID}/profile.
func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	id, ok := h.subjectID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateProfileRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	subject, err := h.workflow.CompleteProfile(ctx, id, req.toProfileData())
	if err != nil {
		h.logger.WarnContext(ctx, "profile update failed",
			"request_id", requestID,
			"subject_id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSubject(subject))
}

// handleAttachDocument handles POST /subjects/{subjectID}/documents.
func (h *Handler) handleAttachDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	id, ok := h.subjectID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AttachDocumentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	doc, err := h.workflow.AttachDocument(ctx, id, req.ParsedType(), req.ParsedData())
	if err != nil {
		h.logger.WarnContext(ctx, "document upload failed",
			"request_id", requestID,
			"subject_id", id,
			"document_type", req.DocumentType,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "document attached",
		"request_id", requestID,
		"subject_id", id,
		"document_id", doc.ID,
		"document_type", doc.Type,
		"processing_status", doc.ProcessingStatus,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromDocument(doc))
}

// handleSubmit handles POST /subjects/{subjectID}/submit. The verification
// cycle runs synchronously; the response carries the decided subject.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	start := time.Now()

	id, ok := h.subjectID(w, r)
	if !ok {
		return
	}

	subject, err := h.workflow.SubmitForVerification(ctx, id)
	if err != nil {
		h.logger.WarnContext(ctx, "submission failed",
			"request_id", requestID,
			"subject_id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "verification cycle completed",
		"request_id", requestID,
		"subject_id", id,
		"status", subject.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromSubject(subject))
}

// handleCancel handles POST /subjects/{subjectID}/cancel.
func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.subjectID(w, r)
	if !ok {
		return
	}

	subject, err := h.workflow.Cancel(ctx, id, "subject")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSubject(subject))
}

// handleHistory handles GET /subjects/{subjectID}/history.
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.subjectID(w, r)
	if !ok {
		return
	}

	results, err := h.workflow.History(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &HistoryResponse{
		SubjectID: string(id),
		Results:   fromCheckResults(results),
		Total:     len(results),
	})
}

// handleRisk handles GET /subjects/{subjectID}/risk.
func (h *Handler) handleRisk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.subjectID(w, r)
	if !ok {
		return
	}

	assessment, err := h.workflow.Risk(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRisk(assessment))
}

// handleApprove handles POST /admin/subjects/{subjectID}/approve.
func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.adminDecision(w, r, "approve", h.review.Approve)
}

// handleReject handles POST /admin/subjects/{subjectID}/reject.
func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.adminDecision(w, r, "reject", h.review.Reject)
}

// handleRequestReview handles POST /admin/subjects/{subjectID}/request-review.
func (h *Handler) handleRequestReview(w http.ResponseWriter, r *http.Request) {
	h.adminDecision(w, r, "request_review", h.review.RequestReview)
}

func (h *Handler) adminDecision(w http.ResponseWriter, r *http.Request, action string, decide func(context.Context, domain.SubjectID, string, string) (*models.Subject, error)) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	actor := middleware.GetActor(ctx)
	if actor == "" {
		// Should never happen behind RequireAdmin.
		h.logger.ErrorContext(ctx, "actor missing from context despite auth middleware",
			"request_id", requestID,
		)
		httputil.WriteError(w, tgerrors.New(tgerrors.CodeInternal, "authentication context error"))
		return
	}

	id, ok := h.subjectID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AdminActionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	subject, err := decide(ctx, id, actor, req.Message())
	if err != nil {
		h.logger.WarnContext(ctx, "admin decision failed",
			"request_id", requestID,
			"subject_id", id,
			"actor", actor,
			"action", action,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "admin decision applied",
		"request_id", requestID,
		"subject_id", id,
		"actor", actor,
		"action", action,
		"status", subject.Status,
	)
	httputil.WriteJSON(w, http.StatusOK, FromSubject(subject))
}

// handleDelete handles DELETE /admin/subjects/{subjectID}. Check results and
// audit events survive the deletion.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	actor := middleware.GetActor(ctx)
	id, ok := h.subjectID(w, r)
	if !ok {
		return
	}

	if err := h.workflow.Delete(ctx, id, actor); err != nil {
		h.logger.WarnContext(ctx, "subject deletion failed",
			"request_id", requestID,
			"subject_id", id,
			"actor", actor,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "subject deleted",
		"request_id", requestID,
		"subject_id", id,
		"actor", actor,
	)
	w.WriteHeader(http.StatusNoContent)
}

// handleAuditTrail handles GET /admin/subjects/{subjectID}/audit.
func (h *Handler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.subjectID(w, r)
	if !ok {
		return
	}

	events, err := h.auditor.List(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &AuditTrailResponse{
		SubjectID: string(id),
		Events:    events,
		Total:     len(events),
	})
}
