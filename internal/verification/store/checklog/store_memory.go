package checklog

import (
	"context"
	"sync"

	"trustgate/internal/verification/models"
	"trustgate/pkg/domain"
)

// InMemory is the append-only check-result log for tests and local
// development. Entries are returned in append order.
type InMemory struct {
	mu      sync.RWMutex
	results map[domain.SubjectID][]models.CheckResult
}

func NewInMemory() *InMemory {
	return &InMemory{results: make(map[domain.SubjectID][]models.CheckResult)}
}

func (s *InMemory) Append(_ context.Context, results []models.CheckResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range results {
		s.results[r.SubjectID] = append(s.results[r.SubjectID], r)
	}
	return nil
}

func (s *InMemory) ListBySubject(_ context.Context, subjectID domain.SubjectID) ([]models.CheckResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.CheckResult, len(s.results[subjectID]))
	copy(out, s.results[subjectID])
	return out, nil
}

func (s *InMemory) ListByCycle(_ context.Context, subjectID domain.SubjectID, cycleID domain.CycleID) ([]models.CheckResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.CheckResult
	for _, r := range s.results[subjectID] {
		if r.CycleID == cycleID {
			out = append(out, r)
		}
	}
	return out, nil
}
