package subject

import (
	"context"
	"sync"

	"trustgate/internal/verification/models"
	"trustgate/internal/verification/store"
	"trustgate/pkg/domain"
)

// InMemory keeps subjects in a map for tests and local development.
type InMemory struct {
	mu       sync.RWMutex
	subjects map[domain.SubjectID]*models.Subject
}

func NewInMemory() *InMemory {
	return &InMemory{subjects: make(map[domain.SubjectID]*models.Subject)}
}

func (s *InMemory) Create(_ context.Context, subject *models.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.subjects[subject.ID]; exists {
		return store.ErrDuplicate
	}
	s.subjects[subject.ID] = cloneSubject(subject)
	return nil
}

func (s *InMemory) Find(_ context.Context, id domain.SubjectID) (*models.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subject, ok := s.subjects[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneSubject(subject), nil
}

func (s *InMemory) UpdateIfStatus(_ context.Context, subject *models.Subject, expected models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.subjects[subject.ID]
	if !ok {
		return store.ErrNotFound
	}
	if current.Status != expected {
		return store.ErrStatusConflict
	}
	s.subjects[subject.ID] = cloneSubject(subject)
	return nil
}

func (s *InMemory) Delete(_ context.Context, id domain.SubjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subjects[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.subjects, id)
	return nil
}

// cloneSubject guards callers from aliasing the stored record.
func cloneSubject(in *models.Subject) *models.Subject {
	out := *in
	if in.VerificationScore != nil {
		v := *in.VerificationScore
		out.VerificationScore = &v
	}
	if in.RiskScore != nil {
		v := *in.RiskScore
		out.RiskScore = &v
	}
	if in.Metadata != nil {
		out.Metadata = make(map[string]string, len(in.Metadata))
		for k, v := range in.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}
