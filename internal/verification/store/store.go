package store

import (
	"context"

	"trustgate/internal/verification/models"
	"trustgate/pkg/domain"
	tgerrors "trustgate/pkg/errors"
)

// Stores are interface-driven so the workflow engine never owns persistence.
// Each entity has an in-memory implementation for tests/dev and a
// PostgreSQL implementation for production, both honouring the same error
// contract: ErrNotFound for missing records, ErrStatusConflict when a
// compare-and-swap loses, wrapped errors for infrastructure failures.
var (
	ErrNotFound       = tgerrors.New(tgerrors.CodeNotFound, "record not found")
	ErrDuplicate      = tgerrors.New(tgerrors.CodeDuplicateActiveCycle, "subject already exists")
	ErrStatusConflict = tgerrors.New(tgerrors.CodeInvalidTransition, "subject status changed concurrently")
)

// SubjectStore persists Subject records.
type SubjectStore interface {
	Create(ctx context.Context, subject *models.Subject) error
	Find(ctx context.Context, id domain.SubjectID) (*models.Subject, error)
	// UpdateIfStatus writes the subject only when its stored status still
	// equals expected. This optimistic check is the sole mutual-exclusion
	// mechanism for the one-active-cycle invariant.
	UpdateIfStatus(ctx context.Context, subject *models.Subject, expected models.Status) error
	Delete(ctx context.Context, id domain.SubjectID) error
}

// DocumentStore persists document metadata. Raw bytes live behind the
// object-storage adapter, not here.
type DocumentStore interface {
	Create(ctx context.Context, doc *models.Document) error
	Find(ctx context.Context, id domain.DocumentID) (*models.Document, error)
	ListBySubject(ctx context.Context, subjectID domain.SubjectID) ([]models.Document, error)
	Update(ctx context.Context, doc *models.Document) error
	DeleteBySubject(ctx context.Context, subjectID domain.SubjectID) error
}

// CheckLogStore is the append-only audit log of check results, keyed by
// (subject, cycle). Past cycles are never mutated.
type CheckLogStore interface {
	Append(ctx context.Context, results []models.CheckResult) error
	ListBySubject(ctx context.Context, subjectID domain.SubjectID) ([]models.CheckResult, error)
	ListByCycle(ctx context.Context, subjectID domain.SubjectID, cycleID domain.CycleID) ([]models.CheckResult, error)
}
