package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/tutortrack-api/internal/models"
)

// restTable is the subset of RESTClient used by the remote repositories.
type restTable interface {
	Select(ctx context.Context, table string, dest interface{}) error
	Upsert(ctx context.Context, table string, rows interface{}) error
	Delete(ctx context.Context, table, column, value string) error
}

// jsonText is a structured field sent as JSON text. Reads accept either a JSON string holding
// the document or the document itself, so rows written by older clients still load.
type jsonText[T any] struct {
	V T
}

func (j jsonText[T]) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(j.V)
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(raw))
}

func (j *jsonText[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return err
		}
		if inner == "" {
			return nil
		}
		data = []byte(inner)
	}
	return json.Unmarshal(data, &j.V)
}

// flexTime parses both full timestamps and bare dates.
type flexTime struct {
	time.Time
}

func (f flexTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.UTC().Format(time.RFC3339))
}

func (f *flexTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			f.Time = t
			return nil
		}
	}
	return fmt.Errorf("unsupported time %q", raw)
}

type studentRecord struct {
	ID              string                           `json:"id"`
	Name            string                           `json:"name"`
	Email           *string                          `json:"email"`
	ParentName      *string                          `json:"parent_name"`
	ClassTypes      jsonText[models.ProgramTypes]    `json:"class_types"`
	Notes           string                           `json:"notes"`
	Balance         decimal.Decimal                  `json:"balance"`
	OpeningBalance  decimal.Decimal                  `json:"opening_balance"`
	JoinedDate      flexTime                         `json:"joined_date"`
	Status          models.StudentStatus             `json:"status"`
	Packages        jsonText[models.Packages]        `json:"packages"`
	ProgressHistory jsonText[models.ProgressHistory] `json:"progress_history"`
	Version         int64                            `json:"version"`
}

func toStudentRecord(s models.Student) studentRecord {
	return studentRecord{
		ID:              s.ID,
		Name:            s.Name,
		Email:           nullable(s.Email),
		ParentName:      nullable(s.ParentName),
		ClassTypes:      jsonText[models.ProgramTypes]{V: s.ProgramTypes},
		Notes:           s.Notes,
		Balance:         s.Balance,
		OpeningBalance:  s.OpeningBalance,
		JoinedDate:      flexTime{s.JoinedDate},
		Status:          s.Status,
		Packages:        jsonText[models.Packages]{V: s.Packages},
		ProgressHistory: jsonText[models.ProgressHistory]{V: s.ProgressHistory},
		Version:         s.Version,
	}
}

func (r studentRecord) model() models.Student {
	status := r.Status
	if status == "" {
		status = models.StudentActive
	}
	return models.Student{
		ID:              r.ID,
		Name:            r.Name,
		Email:           deref(r.Email),
		ParentName:      deref(r.ParentName),
		ProgramTypes:    r.ClassTypes.V,
		Notes:           r.Notes,
		Balance:         r.Balance,
		OpeningBalance:  r.OpeningBalance,
		JoinedDate:      r.JoinedDate.Time,
		Status:          status,
		Packages:        r.Packages.V,
		ProgressHistory: r.ProgressHistory.V,
		Version:         r.Version,
	}
}

type sessionRecord struct {
	ID              string                           `json:"id"`
	StudentIDs      jsonText[models.StringList]      `json:"student_ids"`
	Date            flexTime                         `json:"date"`
	DurationMinutes int                              `json:"duration_minutes"`
	Status          models.AttendanceStatus          `json:"status"`
	StudentStatuses jsonText[models.StudentStatuses] `json:"student_statuses"`
	Type            models.ProgramType               `json:"type"`
	Topic           string                           `json:"topic"`
	Notes           string                           `json:"notes"`
	Price           decimal.Decimal                  `json:"price"`
	Version         int64                            `json:"version"`
}

func toSessionRecord(s models.Session) sessionRecord {
	return sessionRecord{
		ID:              s.ID,
		StudentIDs:      jsonText[models.StringList]{V: s.StudentIDs},
		Date:            flexTime{s.Date},
		DurationMinutes: s.DurationMinutes,
		Status:          s.Status,
		StudentStatuses: jsonText[models.StudentStatuses]{V: s.StudentStatuses},
		Type:            s.Type,
		Topic:           s.Topic,
		Notes:           s.Notes,
		Price:           s.Price,
		Version:         s.Version,
	}
}

func (r sessionRecord) model() models.Session {
	return models.Session{
		ID:              r.ID,
		StudentIDs:      r.StudentIDs.V,
		Date:            r.Date.Time,
		DurationMinutes: r.DurationMinutes,
		Status:          r.Status,
		StudentStatuses: r.StudentStatuses.V,
		Type:            r.Type,
		Topic:           r.Topic,
		Notes:           r.Notes,
		Price:           r.Price,
		Version:         r.Version,
	}
}

type paymentRecord struct {
	ID        string           `json:"id"`
	StudentID string           `json:"student_id"`
	Amount    decimal.Decimal  `json:"amount"`
	Date      flexTime         `json:"date"`
	Method    string           `json:"method"`
	Kind      models.EntryKind `json:"kind"`
	Note      string           `json:"note"`
	Version   int64            `json:"version"`
}

func (r paymentRecord) model() models.Payment {
	kind := r.Kind
	if kind == "" {
		kind = models.EntryPayment
	}
	return models.Payment{
		ID:        r.ID,
		StudentID: r.StudentID,
		Amount:    r.Amount,
		Date:      r.Date.Time,
		Method:    r.Method,
		Kind:      kind,
		Note:      r.Note,
		Version:   r.Version,
	}
}

// RemoteStudentRepository stores students in a hosted PostgREST table.
type RemoteStudentRepository struct {
	client restTable
}

// NewRemoteStudentRepository constructs a RemoteStudentRepository.
func NewRemoteStudentRepository(client restTable) *RemoteStudentRepository {
	return &RemoteStudentRepository{client: client}
}

// List fetches every student.
func (r *RemoteStudentRepository) List(ctx context.Context) ([]models.Student, error) {
	var records []studentRecord
	if err := r.client.Select(ctx, "students", &records); err != nil {
		return nil, fmt.Errorf("list remote students: %w", err)
	}
	out := make([]models.Student, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.model())
	}
	return out, nil
}

// Upsert writes the student, merging on id.
func (r *RemoteStudentRepository) Upsert(ctx context.Context, student models.Student) error {
	if err := r.client.Upsert(ctx, "students", []studentRecord{toStudentRecord(student)}); err != nil {
		return fmt.Errorf("upsert remote student: %w", err)
	}
	return nil
}

// Delete removes the student. PostgREST offers no conditional delete, so the version is unused.
func (r *RemoteStudentRepository) Delete(ctx context.Context, id string, _ int64) error {
	if err := r.client.Delete(ctx, "students", "id", id); err != nil {
		return fmt.Errorf("delete remote student: %w", err)
	}
	return nil
}

// RemoteSessionRepository stores sessions in a hosted PostgREST table.
type RemoteSessionRepository struct {
	client restTable
}

// NewRemoteSessionRepository constructs a RemoteSessionRepository.
func NewRemoteSessionRepository(client restTable) *RemoteSessionRepository {
	return &RemoteSessionRepository{client: client}
}

// List fetches every session.
func (r *RemoteSessionRepository) List(ctx context.Context) ([]models.Session, error) {
	var records []sessionRecord
	if err := r.client.Select(ctx, "sessions", &records); err != nil {
		return nil, fmt.Errorf("list remote sessions: %w", err)
	}
	out := make([]models.Session, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.model())
	}
	return out, nil
}

// Upsert writes the session, merging on id.
func (r *RemoteSessionRepository) Upsert(ctx context.Context, session models.Session) error {
	if err := r.client.Upsert(ctx, "sessions", []sessionRecord{toSessionRecord(session)}); err != nil {
		return fmt.Errorf("upsert remote session: %w", err)
	}
	return nil
}

// Delete removes the session.
func (r *RemoteSessionRepository) Delete(ctx context.Context, id string, _ int64) error {
	if err := r.client.Delete(ctx, "sessions", "id", id); err != nil {
		return fmt.Errorf("delete remote session: %w", err)
	}
	return nil
}

// RemotePaymentRepository stores ledger entries in a hosted PostgREST table.
type RemotePaymentRepository struct {
	client restTable
}

// NewRemotePaymentRepository constructs a RemotePaymentRepository.
func NewRemotePaymentRepository(client restTable) *RemotePaymentRepository {
	return &RemotePaymentRepository{client: client}
}

// List fetches every entry.
func (r *RemotePaymentRepository) List(ctx context.Context) ([]models.Payment, error) {
	var records []paymentRecord
	if err := r.client.Select(ctx, "payments", &records); err != nil {
		return nil, fmt.Errorf("list remote payments: %w", err)
	}
	out := make([]models.Payment, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.model())
	}
	return out, nil
}

// Upsert writes the entry, merging on id.
func (r *RemotePaymentRepository) Upsert(ctx context.Context, p models.Payment) error {
	rec := paymentRecord{
		ID:        p.ID,
		StudentID: p.StudentID,
		Amount:    p.Amount,
		Date:      flexTime{p.Date},
		Method:    p.Method,
		Kind:      p.Kind,
		Note:      p.Note,
		Version:   p.Version,
	}
	if err := r.client.Upsert(ctx, "payments", []paymentRecord{rec}); err != nil {
		return fmt.Errorf("upsert remote payment %s: %w", strconv.Quote(p.ID), err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
