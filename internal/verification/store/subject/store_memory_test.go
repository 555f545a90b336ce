package subject

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"trustgate/internal/verification/models"
	"trustgate/internal/verification/store"
	"trustgate/pkg/domain"
)

type SubjectStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestSubjectStoreSuite(t *testing.T) {
	suite.Run(t, new(SubjectStoreSuite))
}

func (s *SubjectStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *SubjectStoreSuite) newSubject(id domain.SubjectID) *models.Subject {
	return &models.Subject{
		ID:        id,
		Type:      domain.SubjectTypeIndividual,
		Status:    models.StatusDraft,
		CycleID:   domain.NewCycleID(),
		Metadata:  map[string]string{"source": "test"},
		UpdatedAt: time.Now(),
	}
}

func (s *SubjectStoreSuite) TestCreateAndFind() {
	s.Run("round trips a subject", func() {
		subject := s.newSubject("subj-1")
		s.Require().NoError(s.store.Create(s.ctx, subject))

		found, err := s.store.Find(s.ctx, "subj-1")
		s.Require().NoError(err)
		s.Equal(subject.CycleID, found.CycleID)
	})

	s.Run("duplicate create is refused", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newSubject("subj-2")))
		s.Require().ErrorIs(s.store.Create(s.ctx, s.newSubject("subj-2")), store.ErrDuplicate)
	})

	s.Run("unknown id is ErrNotFound", func() {
		_, err := s.store.Find(s.ctx, "subj-none")
		s.Require().ErrorIs(err, store.ErrNotFound)
	})

	s.Run("stored record does not alias the caller's", func() {
		subject := s.newSubject("subj-3")
		s.Require().NoError(s.store.Create(s.ctx, subject))

		subject.Status = models.StatusCancelled
		subject.Metadata["source"] = "mutated"

		found, err := s.store.Find(s.ctx, "subj-3")
		s.Require().NoError(err)
		s.Equal(models.StatusDraft, found.Status)
		s.Equal("test", found.Metadata["source"])
	})
}

func (s *SubjectStoreSuite) TestUpdateIfStatus() {
	s.Run("applies when the status matches", func() {
		subject := s.newSubject("subj-4")
		s.Require().NoError(s.store.Create(s.ctx, subject))

		subject.Status = models.StatusDocumentsUploaded
		s.Require().NoError(s.store.UpdateIfStatus(s.ctx, subject, models.StatusDraft))

		found, err := s.store.Find(s.ctx, "subj-4")
		s.Require().NoError(err)
		s.Equal(models.StatusDocumentsUploaded, found.Status)
	})

	s.Run("loses when another writer moved the status", func() {
		subject := s.newSubject("subj-5")
		s.Require().NoError(s.store.Create(s.ctx, subject))

		winner, err := s.store.Find(s.ctx, "subj-5")
		s.Require().NoError(err)
		winner.Status = models.StatusCancelled
		s.Require().NoError(s.store.UpdateIfStatus(s.ctx, winner, models.StatusDraft))

		loser, _ := s.store.Find(s.ctx, "subj-5")
		loser.Status = models.StatusDocumentsUploaded
		err = s.store.UpdateIfStatus(s.ctx, loser, models.StatusDraft)
		s.Require().ErrorIs(err, store.ErrStatusConflict)
	})

	s.Run("missing subject is ErrNotFound", func() {
		err := s.store.UpdateIfStatus(s.ctx, s.newSubject("subj-none"), models.StatusDraft)
		s.Require().ErrorIs(err, store.ErrNotFound)
	})
}

func (s *SubjectStoreSuite) TestDelete() {
	subject := s.newSubject("subj-6")
	s.Require().NoError(s.store.Create(s.ctx, subject))

	s.Require().NoError(s.store.Delete(s.ctx, "subj-6"))
	_, err := s.store.Find(s.ctx, "subj-6")
	s.Require().ErrorIs(err, store.ErrNotFound)

	s.Require().ErrorIs(s.store.Delete(s.ctx, "subj-6"), store.ErrNotFound)
}
