package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutortrack-api/internal/models"
)

const studentColumns = `id, name, email, parent_name, class_types, notes, balance, opening_balance, joined_date, status, packages, progress_history, version`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns every stored student ordered by join date.
func (r *StudentRepository) List(ctx context.Context) ([]models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students ORDER BY joined_date, id", studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// Upsert writes the student unless a newer version is already stored.
func (r *StudentRepository) Upsert(ctx context.Context, student models.Student) error {
	const query = `INSERT INTO students (id, name, email, parent_name, class_types, notes, balance, opening_balance, joined_date, status, packages, progress_history, version)
        VALUES (:id, :name, :email, :parent_name, :class_types, :notes, :balance, :opening_balance, :joined_date, :status, :packages, :progress_history, :version)
        ON CONFLICT (id) DO UPDATE SET name = excluded.name, email = excluded.email, parent_name = excluded.parent_name,
        class_types = excluded.class_types, notes = excluded.notes, balance = excluded.balance, opening_balance = excluded.opening_balance,
        joined_date = excluded.joined_date, status = excluded.status, packages = excluded.packages,
        progress_history = excluded.progress_history, version = excluded.version
        WHERE students.version < excluded.version`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("upsert student: %w", err)
	}
	return nil
}

// Delete removes the student if the stored row is not newer than the delete.
func (r *StudentRepository) Delete(ctx context.Context, id string, version int64) error {
	query := r.db.Rebind(`DELETE FROM students WHERE id = ? AND version <= ?`)
	if _, err := r.db.ExecContext(ctx, query, id, version); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}
