package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutortrack-api/internal/models"
)

const sessionColumns = `id, student_ids, date, duration_minutes, status, student_statuses, type, topic, notes, price, version`

// SessionRepository manages persistence for lessons.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// List returns every stored session in chronological order.
func (r *SessionRepository) List(ctx context.Context) ([]models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions ORDER BY date, id", sessionColumns)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// Upsert writes the session unless a newer version is already stored.
func (r *SessionRepository) Upsert(ctx context.Context, session models.Session) error {
	const query = `INSERT INTO sessions (id, student_ids, date, duration_minutes, status, student_statuses, type, topic, notes, price, version)
        VALUES (:id, :student_ids, :date, :duration_minutes, :status, :student_statuses, :type, :topic, :notes, :price, :version)
        ON CONFLICT (id) DO UPDATE SET student_ids = excluded.student_ids, date = excluded.date,
        duration_minutes = excluded.duration_minutes, status = excluded.status, student_statuses = excluded.student_statuses,
        type = excluded.type, topic = excluded.topic, notes = excluded.notes, price = excluded.price, version = excluded.version
        WHERE sessions.version < excluded.version`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// Delete removes the session if the stored row is not newer than the delete.
func (r *SessionRepository) Delete(ctx context.Context, id string, version int64) error {
	query := r.db.Rebind(`DELETE FROM sessions WHERE id = ? AND version <= ?`)
	if _, err := r.db.ExecContext(ctx, query, id, version); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
