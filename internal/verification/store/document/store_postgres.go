package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"trustgate/internal/verification/models"
	"trustgate/internal/verification/store"
	"trustgate/pkg/domain"
)

// Postgres persists document metadata in PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) Create(ctx context.Context, doc *models.Document) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents (
			id, subject_id, document_type, storage_ref, uploaded_at,
			processing_status, extracted_fields, admin_notes
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		doc.ID.String(), doc.SubjectID.String(), string(doc.Type),
		doc.StorageRef, doc.UploadedAt, string(doc.ProcessingStatus),
		doc.ExtractedFields, doc.AdminNotes,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *Postgres) Find(ctx context.Context, id domain.DocumentID) (*models.Document, error) {
	row := s.pool.QueryRow(ctx, selectDocuments+` WHERE id = $1`, id.String())
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (s *Postgres) ListBySubject(ctx context.Context, subjectID domain.SubjectID) ([]models.Document, error) {
	rows, err := s.pool.Query(ctx, selectDocuments+` WHERE subject_id = $1 ORDER BY uploaded_at`, subjectID.String())
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}
	return out, rows.Err()
}

func (s *Postgres) Update(ctx context.Context, doc *models.Document) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE documents SET
			processing_status = $2, extracted_fields = $3, admin_notes = $4
		WHERE id = $1`,
		doc.ID.String(), string(doc.ProcessingStatus), doc.ExtractedFields, doc.AdminNotes,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Postgres) DeleteBySubject(ctx context.Context, subjectID domain.SubjectID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE subject_id = $1`, subjectID.String())
	if err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}
	return nil
}

const selectDocuments = `
	SELECT id, subject_id, document_type, storage_ref, uploaded_at,
	       processing_status, extracted_fields, admin_notes
	FROM documents`

func scanDocument(row pgx.Row) (*models.Document, error) {
	var (
		doc                models.Document
		id, subjectID      string
		docType, procState string
	)
	err := row.Scan(&id, &subjectID, &docType, &doc.StorageRef, &doc.UploadedAt,
		&procState, &doc.ExtractedFields, &doc.AdminNotes)
	if err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("scan document id: %w", err)
	}
	doc.ID = domain.DocumentID(parsed)
	doc.SubjectID = domain.SubjectID(subjectID)
	doc.Type = models.DocumentType(docType)
	doc.ProcessingStatus = models.ProcessingStatus(procState)
	return &doc, nil
}
