package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutortrack-api/internal/models"
)

// PaymentRepository persists ledger entries. Entries are append-only.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs a PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// List returns every entry in chronological order.
func (r *PaymentRepository) List(ctx context.Context) ([]models.Payment, error) {
	const query = `SELECT id, student_id, amount, date, method, kind, note, version FROM payments ORDER BY date, id`
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// Upsert writes the entry unless a newer version is already stored.
func (r *PaymentRepository) Upsert(ctx context.Context, payment models.Payment) error {
	const query = `INSERT INTO payments (id, student_id, amount, date, method, kind, note, version)
        VALUES (:id, :student_id, :amount, :date, :method, :kind, :note, :version)
        ON CONFLICT (id) DO UPDATE SET student_id = excluded.student_id, amount = excluded.amount, date = excluded.date,
        method = excluded.method, kind = excluded.kind, note = excluded.note, version = excluded.version
        WHERE payments.version < excluded.version`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("upsert payment: %w", err)
	}
	return nil
}
