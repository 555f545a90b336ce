package document

import (
	"context"
	"sort"
	"sync"

	"trustgate/internal/verification/models"
	"trustgate/internal/verification/store"
	"trustgate/pkg/domain"
)

// InMemory keeps document metadata in maps for tests and local development.
type InMemory struct {
	mu        sync.RWMutex
	documents map[domain.DocumentID]*models.Document
}

func NewInMemory() *InMemory {
	return &InMemory{documents: make(map[domain.DocumentID]*models.Document)}
}

func (s *InMemory) Create(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = cloneDocument(doc)
	return nil
}

func (s *InMemory) Find(_ context.Context, id domain.DocumentID) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneDocument(doc), nil
}

func (s *InMemory) ListBySubject(_ context.Context, subjectID domain.SubjectID) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Document
	for _, doc := range s.documents {
		if doc.SubjectID == subjectID {
			out = append(out, *cloneDocument(doc))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.Before(out[j].UploadedAt) })
	return out, nil
}

func (s *InMemory) Update(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[doc.ID]; !ok {
		return store.ErrNotFound
	}
	s.documents[doc.ID] = cloneDocument(doc)
	return nil
}

func (s *InMemory) DeleteBySubject(_ context.Context, subjectID domain.SubjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, doc := range s.documents {
		if doc.SubjectID == subjectID {
			delete(s.documents, id)
		}
	}
	return nil
}

func cloneDocument(in *models.Document) *models.Document {
	out := *in
	if in.ExtractedFields != nil {
		out.ExtractedFields = make(map[string]string, len(in.ExtractedFields))
		for k, v := range in.ExtractedFields {
			out.ExtractedFields[k] = v
		}
	}
	return &out
}
