package repository

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutortrack-api/internal/models"
)

func TestRemoteStudentRepositoryReadsLegacyRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/students", r.URL.Path)
		_, _ = w.Write([]byte(`[{
			"id": "s1",
			"name": "Alice",
			"email": null,
			"parent_name": "Martha",
			"class_types": ["One-on-One"],
			"notes": "",
			"balance": -50,
			"joined_date": "2023-09-01",
			"status": "Active",
			"packages": "[{\"type\":\"One-on-One\",\"total\":10,\"active\":true}]",
			"progress_history": "[]"
		}]`))
	}))
	defer srv.Close()

	repo := NewRemoteStudentRepository(newTestRESTClient(t, srv.URL))
	students, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, students, 1)

	st := students[0]
	assert.Equal(t, "Martha", st.ParentName)
	assert.Empty(t, st.Email)
	assert.Equal(t, models.ProgramTypes{models.ProgramOneOnOne}, st.ProgramTypes)
	assert.True(t, st.Balance.Equal(decimal.NewFromInt(-50)))
	assert.Equal(t, 2023, st.JoinedDate.Year())
	require.Len(t, st.Packages, 1)
	assert.Equal(t, 10, st.Packages[0].Total)
	assert.Equal(t, int64(0), st.Version)
}

func TestRemoteSessionRepositoryUpsertSendsJSONText(t *testing.T) {
	var body []map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	repo := NewRemoteSessionRepository(newTestRESTClient(t, srv.URL))
	err := repo.Upsert(context.Background(), models.Session{
		ID:              "x1",
		StudentIDs:      models.StringList{"s1"},
		Date:            time.Date(2024, 3, 14, 15, 0, 0, 0, time.UTC),
		Status:          models.AttendancePresent,
		StudentStatuses: models.StudentStatuses{{StudentID: "s1", Status: models.AttendancePresent}},
		Type:            models.ProgramOneOnOne,
		Price:           decimal.NewFromInt(40),
		Version:         12,
	})
	require.NoError(t, err)

	require.Len(t, body, 1)
	assert.Equal(t, `[{"student_id":"s1","status":"Present"}]`, body[0]["student_statuses"])
	assert.Equal(t, `["s1"]`, body[0]["student_ids"])
	assert.Equal(t, "2024-03-14T15:00:00Z", body[0]["date"])
	assert.Equal(t, float64(12), body[0]["version"])
}

func TestRemotePaymentRepositoryDefaultsKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"p1","student_id":"s1","amount":200,"date":"2023-10-01","method":"Cash"}]`))
	}))
	defer srv.Close()

	repo := NewRemotePaymentRepository(newTestRESTClient(t, srv.URL))
	payments, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, models.EntryPayment, payments[0].Kind)
	assert.True(t, payments[0].Amount.Equal(decimal.NewFromInt(200)))
}

func TestJSONTextAcceptsBothShapes(t *testing.T) {
	var quoted, native jsonText[models.StringList]
	require.NoError(t, json.Unmarshal([]byte(`"[\"a\",\"b\"]"`), &quoted))
	require.NoError(t, json.Unmarshal([]byte(`["a","b"]`), &native))
	assert.Equal(t, quoted.V, native.V)

	var empty jsonText[models.StringList]
	require.NoError(t, json.Unmarshal([]byte(`""`), &empty))
	assert.Nil(t, empty.V)
}
