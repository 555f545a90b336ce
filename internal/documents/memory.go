package documents

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"trustgate/internal/verification/models"
	"trustgate/pkg/domain"
)

// InMemoryBlobStore holds uploaded bytes in a map for tests and local runs.
type InMemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewInMemoryBlobStore() *InMemoryBlobStore {
	return &InMemoryBlobStore{blobs: make(map[string][]byte)}
}

func (s *InMemoryBlobStore) Save(_ context.Context, subjectID domain.SubjectID, docType models.DocumentType, data []byte) (string, error) {
	ref := fmt.Sprintf("mem://%s/%s/%s", subjectID, docType, uuid.NewString())
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	s.blobs[ref] = stored
	return ref, nil
}

func (s *InMemoryBlobStore) Fetch(_ context.Context, storageRef string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.blobs[storageRef]
	if !ok {
		return nil, ErrBlobNotFound
	}
	out := make([]byte, len(blob))
	copy(out, blob)
	return out, nil
}

// SimulatedOCR stands in for the external document-analysis provider in
// tests and local runs. Confidence follows the provider's published
// per-document-type accuracy figures.
type SimulatedOCR struct{}

func (SimulatedOCR) Extract(_ context.Context, docType models.DocumentType, data []byte) (map[string]string, float64, error) {
	if len(data) == 0 {
		return nil, 0, fmt.Errorf("empty document payload")
	}
	confidence := 0.70
	switch docType {
	case models.DocumentTypePassport:
		confidence = 0.95
	case models.DocumentTypeIDCard:
		confidence = 0.90
	case models.DocumentTypeBusinessLicense, models.DocumentTypeTaxCertificate:
		confidence = 0.85
	}
	fields := map[string]string{
		"document_type": string(docType),
		"byte_size":     fmt.Sprintf("%d", len(data)),
	}
	return fields, confidence, nil
}
