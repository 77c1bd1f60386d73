package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutortrack-api/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestStudentRepositoryList(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	joined := time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "name", "email", "parent_name", "class_types", "notes", "balance", "opening_balance", "joined_date", "status", "packages", "progress_history", "version"}).
		AddRow("s1", "Alice", "", "Martha", `["One-on-One","One-on-Two"]`, "notes", "12.50", "0", joined, "Active",
			`[{"type":"One-on-One","total":10,"active":true}]`,
			`[{"id":"ph1","date":"2023-09-01T00:00:00Z","reading":60,"writing":55,"listening":70,"speaking":65,"notes":"Initial"}]`, 7)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + studentColumns + " FROM students ORDER BY joined_date, id")).
		WillReturnRows(rows)

	students, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, students, 1)

	st := students[0]
	assert.Equal(t, models.ProgramTypes{models.ProgramOneOnOne, models.ProgramGroup}, st.ProgramTypes)
	assert.True(t, st.Balance.Equal(decimal.RequireFromString("12.5")))
	require.Len(t, st.Packages, 1)
	assert.Equal(t, 10, st.Packages[0].Total)
	require.Len(t, st.ProgressHistory, 1)
	assert.Equal(t, 65, st.ProgressHistory[0].Speaking)
	assert.Equal(t, int64(7), st.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpsertIsVersionGuarded(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(`INSERT INTO students .* ON CONFLICT \(id\) DO UPDATE SET .* WHERE students.version < excluded.version`).
		WithArgs("s1", "Alice", "", "", "[]", "", "40", "0", sqlmock.AnyArg(), "Active", "[]", "[]", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), models.Student{
		ID:         "s1",
		Name:       "Alice",
		Balance:    decimal.NewFromInt(40),
		JoinedDate: time.Now(),
		Status:     models.StudentActive,
		Version:    3,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students WHERE id = ? AND version <= ?")).
		WithArgs("s1", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "s1", 9))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryWrapsErrors(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("SELECT .* FROM students").WillReturnError(errors.New("connection reset"))

	_, err := repo.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list students")
}
