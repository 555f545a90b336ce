package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"trustgate/pkg/domain"
)

// PostgresStore persists audit events. Append-only by construction: no
// update or delete statements exist.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_events (
			recorded_at, subject_id, cycle_id, actor, action, from_state, to_state, reason
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		event.Timestamp, event.SubjectID.String(), event.CycleID,
		event.Actor, event.Action, event.FromState, event.ToState, event.Reason,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subjectID domain.SubjectID) ([]Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT recorded_at, subject_id, cycle_id, actor, action, from_state, to_state, reason
		FROM audit_events WHERE subject_id = $1 ORDER BY recorded_at`,
		subjectID.String())
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			event     Event
			subjectID string
		)
		if err := rows.Scan(&event.Timestamp, &subjectID, &event.CycleID, &event.Actor,
			&event.Action, &event.FromState, &event.ToState, &event.Reason); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.SubjectID = domain.SubjectID(subjectID)
		out = append(out, event)
	}
	return out, rows.Err()
}
