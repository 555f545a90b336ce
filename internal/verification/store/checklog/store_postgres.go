package checklog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"trustgate/internal/verification/models"
	"trustgate/pkg/domain"
)

// Postgres is the append-only check-result log. Rows are never updated or
// deleted; each verification cycle contributes a fresh batch.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) Append(ctx context.Context, results []models.CheckResult) error {
	if len(results) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range results {
		batch.Queue(`
			INSERT INTO check_results (
				check_name, subject_id, cycle_id, passed, confidence, details, recorded_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			r.CheckName, r.SubjectID.String(), r.CycleID.String(),
			r.Passed, r.Confidence, r.Details, r.Timestamp,
		)
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range results {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("append check result: %w", err)
		}
	}
	return nil
}

func (s *Postgres) ListBySubject(ctx context.Context, subjectID domain.SubjectID) ([]models.CheckResult, error) {
	rows, err := s.pool.Query(ctx, selectResults+` WHERE subject_id = $1 ORDER BY recorded_at`, subjectID.String())
	if err != nil {
		return nil, fmt.Errorf("list check results: %w", err)
	}
	return collectResults(rows)
}

func (s *Postgres) ListByCycle(ctx context.Context, subjectID domain.SubjectID, cycleID domain.CycleID) ([]models.CheckResult, error) {
	rows, err := s.pool.Query(ctx, selectResults+` WHERE subject_id = $1 AND cycle_id = $2 ORDER BY recorded_at`,
		subjectID.String(), cycleID.String())
	if err != nil {
		return nil, fmt.Errorf("list cycle check results: %w", err)
	}
	return collectResults(rows)
}

const selectResults = `
	SELECT check_name, subject_id, cycle_id, passed, confidence, details, recorded_at
	FROM check_results`

func collectResults(rows pgx.Rows) ([]models.CheckResult, error) {
	defer rows.Close()
	var out []models.CheckResult
	for rows.Next() {
		var (
			r                  models.CheckResult
			subjectID, cycleID string
		)
		if err := rows.Scan(&r.CheckName, &subjectID, &cycleID, &r.Passed,
			&r.Confidence, &r.Details, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan check result: %w", err)
		}
		r.SubjectID = domain.SubjectID(subjectID)
		parsed, err := uuid.Parse(cycleID)
		if err != nil {
			return nil, fmt.Errorf("scan check result cycle id: %w", err)
		}
		r.CycleID = domain.CycleID(parsed)
		out = append(out, r)
	}
	return out, rows.Err()
}
