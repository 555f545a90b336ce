package subject

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"trustgate/internal/verification/models"
	"trustgate/internal/verification/store"
	"trustgate/pkg/domain"
)

// Postgres persists subjects in PostgreSQL. The status column carries the
// optimistic concurrency check: UpdateIfStatus only matches rows whose
// stored status equals the one the caller read.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) Create(ctx context.Context, subject *models.Subject) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO subjects (
			id, subject_type, status, cycle_id, submitted_at,
			name, email, phone, address,
			verification_score, risk_score, admin_notes, metadata, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		subject.ID.String(), string(subject.Type), string(subject.Status),
		subject.CycleID.String(), subject.SubmittedAt,
		subject.Name, subject.Email, subject.Phone, subject.Address,
		subject.VerificationScore, subject.RiskScore, subject.AdminNotes,
		subject.Metadata, subject.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return store.ErrDuplicate
		}
		return fmt.Errorf("insert subject: %w", err)
	}
	return nil
}

func (s *Postgres) Find(ctx context.Context, id domain.SubjectID) (*models.Subject, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, subject_type, status, cycle_id, submitted_at,
		       name, email, phone, address,
		       verification_score, risk_score, admin_notes, metadata, updated_at
		FROM subjects WHERE id = $1`, id.String())
	return scanSubject(row)
}

func (s *Postgres) UpdateIfStatus(ctx context.Context, subject *models.Subject, expected models.Status) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE subjects SET
			status = $2, cycle_id = $3, submitted_at = $4,
			name = $5, email = $6, phone = $7, address = $8,
			verification_score = $9, risk_score = $10,
			admin_notes = $11, metadata = $12, updated_at = $13
		WHERE id = $1 AND status = $14`,
		subject.ID.String(), string(subject.Status), subject.CycleID.String(),
		subject.SubmittedAt, subject.Name, subject.Email, subject.Phone,
		subject.Address, subject.VerificationScore, subject.RiskScore,
		subject.AdminNotes, subject.Metadata, subject.UpdatedAt,
		string(expected),
	)
	if err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the subject is gone or another writer moved the status.
		if _, findErr := s.Find(ctx, subject.ID); errors.Is(findErr, store.ErrNotFound) {
			return store.ErrNotFound
		}
		return store.ErrStatusConflict
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, id domain.SubjectID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM subjects WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanSubject(row pgx.Row) (*models.Subject, error) {
	var (
		subject         models.Subject
		id, subjectType string
		status, cycleID string
	)
	err := row.Scan(
		&id, &subjectType, &status, &cycleID, &subject.SubmittedAt,
		&subject.Name, &subject.Email, &subject.Phone, &subject.Address,
		&subject.VerificationScore, &subject.RiskScore,
		&subject.AdminNotes, &subject.Metadata, &subject.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scan subject: %w", err)
	}
	subject.ID = domain.SubjectID(id)
	subject.Type = domain.SubjectType(subjectType)
	subject.Status = models.Status(status)
	parsed, err := uuidFromString(cycleID)
	if err != nil {
		return nil, fmt.Errorf("scan subject cycle id: %w", err)
	}
	subject.CycleID = parsed
	return &subject, nil
}

func uuidFromString(raw string) (domain.CycleID, error) {
	u, err := uuid.Parse(raw)
	if err != nil {
		return domain.CycleID{}, err
	}
	return domain.CycleID(u), nil
}
