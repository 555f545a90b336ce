package review

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"trustgate/internal/documents"
	"trustgate/internal/verification/checks"
	"trustgate/internal/verification/models"
	checklogstore "trustgate/internal/verification/store/checklog"
	documentstore "trustgate/internal/verification/store/document"
	subjectstore "trustgate/internal/verification/store/subject"
	"trustgate/internal/verification/workflow"
	"trustgate/pkg/domain"
	tgerrors "trustgate/pkg/errors"
)

type ReviewSuite struct {
	suite.Suite
	ctx      context.Context
	subjects *subjectstore.InMemory
	service  *Service
}

func TestReviewSuite(t *testing.T) {
	suite.Run(t, new(ReviewSuite))
}

func (s *ReviewSuite) SetupTest() {
	s.ctx = context.Background()
	s.subjects = subjectstore.NewInMemory()

	wf, err := workflow.New(
		s.subjects, documentstore.NewInMemory(), checklogstore.NewInMemory(),
		documents.NewInMemoryBlobStore(), documents.SimulatedOCR{},
		checks.NewRegistry(),
	)
	s.Require().NoError(err)

	s.service, err = New(wf, s.subjects, nil)
	s.Require().NoError(err)
}

func (s *ReviewSuite) seed(id domain.SubjectID, status models.Status) {
	now := time.Now()
	s.Require().NoError(s.subjects.Create(s.ctx, &models.Subject{
		ID:        id,
		Type:      domain.SubjectTypeIndividual,
		Status:    status,
		CycleID:   domain.NewCycleID(),
		Name:      "Jordan Doe",
		Email:     "jordan@example.com",
		Phone:     "+4915112345678",
		Address:   "1 Main St",
		UpdatedAt: now,
	}))
}

func (s *ReviewSuite) TestApprove() {
	s.Run("approves a subject under review", func() {
		s.seed("subj-1", models.StatusUnderReview)

		subject, err := s.service.Approve(s.ctx, "subj-1", "admin-1", "looks legitimate")
		s.Require().NoError(err)
		s.Equal(models.StatusVerified, subject.Status)
		s.Equal("looks legitimate", subject.AdminNotes)
	})

	s.Run("approves directly from pending checks", func() {
		s.seed("subj-2", models.StatusPendingChecks)

		subject, err := s.service.Approve(s.ctx, "subj-2", "admin-1", "")
		s.Require().NoError(err)
		s.Equal(models.StatusVerified, subject.Status)
	})

	s.Run("refuses draft subjects", func() {
		s.seed("subj-3", models.StatusDraft)

		_, err := s.service.Approve(s.ctx, "subj-3", "admin-1", "")
		s.Require().Error(err)
		s.Equal(tgerrors.CodeInvalidTransition, tgerrors.CodeOf(err))
	})

	s.Run("requires an actor", func() {
		s.seed("subj-4", models.StatusUnderReview)

		_, err := s.service.Approve(s.ctx, "subj-4", "", "")
		s.Require().Error(err)
		s.Equal(tgerrors.CodeUnauthorized, tgerrors.CodeOf(err))
	})
}

func (s *ReviewSuite) TestReject() {
	s.seed("subj-5", models.StatusUnderReview)

	subject, err := s.service.Reject(s.ctx, "subj-5", "admin-1", "forged documents")
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, subject.Status)
	s.Equal("forged documents", subject.AdminNotes)
}

func (s *ReviewSuite) TestRequestReview() {
	s.Run("pulls any non-terminal subject into the queue", func() {
		for i, status := range []models.Status{models.StatusDraft, models.StatusDocumentsUploaded, models.StatusPendingChecks} {
			id := domain.SubjectID([]string{"subj-q1", "subj-q2", "subj-q3"}[i])
			s.seed(id, status)

			subject, err := s.service.RequestReview(s.ctx, id, "admin-1", "random audit")
			s.Require().NoError(err)
			s.Equal(models.StatusUnderReview, subject.Status)
		}
	})

	s.Run("terminal subject is a no-op", func() {
		s.seed("subj-q4", models.StatusCancelled)

		subject, err := s.service.RequestReview(s.ctx, "subj-q4", "admin-1", "")
		s.Require().NoError(err)
		s.Equal(models.StatusCancelled, subject.Status)
	})
}

func (s *ReviewSuite) TestTerminalDecisionsAreIdempotent() {
	s.seed("subj-6", models.StatusUnderReview)

	first, err := s.service.Approve(s.ctx, "subj-6", "admin-1", "ok")
	s.Require().NoError(err)
	s.Equal(models.StatusVerified, first.Status)

	// A duplicate submission of the same decision is absorbed.
	second, err := s.service.Approve(s.ctx, "subj-6", "admin-1", "ok")
	s.Require().NoError(err)
	s.Equal(models.StatusVerified, second.Status)

	// So is a conflicting one; the recorded state does not change.
	third, err := s.service.Reject(s.ctx, "subj-6", "admin-2", "changed my mind")
	s.Require().NoError(err)
	s.Equal(models.StatusVerified, third.Status)
}

func (s *ReviewSuite) TestUnknownSubject() {
	_, err := s.service.Approve(s.ctx, "subj-missing", "admin-1", "")
	s.Require().Error(err)
	s.Equal(tgerrors.CodeNotFound, tgerrors.CodeOf(err))
}
