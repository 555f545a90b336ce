package review

import (
	"context"
	"fmt"
	"log/slog"

	"trustgate/internal/verification/models"
	"trustgate/internal/verification/store"
	"trustgate/internal/verification/workflow"
	"trustgate/pkg/domain"
	tgerrors "trustgate/pkg/errors"
)

// Service is the manual-review gate: a thin authorization and idempotency
// wrapper around the workflow engine's admin transitions. Every decision
// carries the acting admin's identity; decisions against an already-terminal
// subject are no-ops so duplicate admin submissions never error.
type Service struct {
	workflow *workflow.Service
	subjects store.SubjectStore
	logger   *slog.Logger
}

func New(wf *workflow.Service, subjects store.SubjectStore, logger *slog.Logger) (*Service, error) {
	if wf == nil || subjects == nil {
		return nil, fmt.Errorf("workflow service and subject store are required")
	}
	return &Service{workflow: wf, subjects: subjects, logger: logger}, nil
}

// actionable reports whether a manual approve/reject may touch the subject.
func actionable(status models.Status) bool {
	return status == models.StatusPendingChecks || status == models.StatusUnderReview
}

// Approve finalizes the subject as Verified, overriding the automatic
// scoring outcome.
func (s *Service) Approve(ctx context.Context, id domain.SubjectID, actor, notes string) (*models.Subject, error) {
	subject, done, err := s.gate(ctx, id, actor, "approve")
	if err != nil || done {
		return subject, err
	}
	if !actionable(subject.Status) {
		return nil, tgerrors.Newf(tgerrors.CodeInvalidTransition,
			"subject in state %s cannot be approved", subject.Status)
	}
	return s.workflow.Approve(ctx, id, actor, notes)
}

// Reject finalizes the subject as Rejected.
func (s *Service) Reject(ctx context.Context, id domain.SubjectID, actor, reason string) (*models.Subject, error) {
	subject, done, err := s.gate(ctx, id, actor, "reject")
	if err != nil || done {
		return subject, err
	}
	if !actionable(subject.Status) {
		return nil, tgerrors.Newf(tgerrors.CodeInvalidTransition,
			"subject in state %s cannot be rejected", subject.Status)
	}
	return s.workflow.Reject(ctx, id, actor, reason)
}

// RequestReview pulls any non-terminal subject into the manual queue.
func (s *Service) RequestReview(ctx context.Context, id domain.SubjectID, actor, reason string) (*models.Subject, error) {
	subject, done, err := s.gate(ctx, id, actor, "request_review")
	if err != nil || done {
		return subject, err
	}
	return s.workflow.RequestReview(ctx, id, actor, reason)
}

// gate runs the shared preconditions. done=true means the subject is already
// terminal and the decision is absorbed as an idempotent no-op.
func (s *Service) gate(ctx context.Context, id domain.SubjectID, actor, action string) (*models.Subject, bool, error) {
	if actor == "" {
		return nil, false, tgerrors.New(tgerrors.CodeUnauthorized, "review decisions require an authenticated actor")
	}
	subject, err := s.subjects.Find(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if subject.Status.IsTerminal() {
		if s.logger != nil {
			s.logger.InfoContext(ctx, "review decision ignored, subject already terminal",
				"subject_id", id,
				"status", subject.Status,
				"actor", actor,
				"action", action,
			)
		}
		return subject, true, nil
	}
	return subject, false, nil
}
