package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/tutortrack-api/internal/ledger"
	"github.com/noah-isme/tutortrack-api/internal/models"
	appErrors "github.com/noah-isme/tutortrack-api/pkg/errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type studentStore interface {
	Snapshot() *ledger.State
	RegisterStudent(in ledger.StudentInput) (models.Student, []ledger.Change, error)
	UpdateStudent(id string, profile ledger.StudentProfile) (models.Student, []ledger.Change, error)
	SetStudentStatus(id string, status models.StudentStatus) (models.Student, []ledger.Change, error)
	DeleteStudent(id string) ([]ledger.Change, error)
	AddProgress(studentID string, progress models.SkillProgress) (models.Student, []ledger.Change, error)
	RecordPayment(entry models.Payment) (models.Payment, []ledger.Change, error)
	AdjustBalance(entry models.Payment) (models.Payment, []ledger.Change, error)
	PurchasePackage(studentID string, purchase ledger.PackagePurchase) (models.Student, []ledger.Change, error)
}

// PackageRequest describes a prepaid block of sessions.
type PackageRequest struct {
	Program  models.ProgramType `json:"program" validate:"required,oneof=One-on-One One-on-Two"`
	Sessions int                `json:"sessions" validate:"required,min=1"`
	Amount   decimal.Decimal    `json:"amount"`
	Method   string             `json:"method"`
	Date     *time.Time         `json:"date"`
}

// RegisterStudentRequest holds payload for registering students.
type RegisterStudentRequest struct {
	Name            string               `json:"name" validate:"required"`
	Email           string               `json:"email" validate:"omitempty,email"`
	ParentName      string               `json:"parent_name"`
	Notes           string               `json:"notes"`
	ProgramTypes    []models.ProgramType `json:"program_types" validate:"dive,oneof=One-on-One One-on-Two"`
	JoinedDate      *time.Time           `json:"joined_date"`
	InitialPackages []PackageRequest     `json:"initial_packages" validate:"dive"`
}

// UpdateStudentRequest holds the editable profile fields.
type UpdateStudentRequest struct {
	Name         string               `json:"name" validate:"required"`
	Email        string               `json:"email" validate:"omitempty,email"`
	ParentName   string               `json:"parent_name"`
	Notes        string               `json:"notes"`
	ProgramTypes []models.ProgramType `json:"program_types" validate:"dive,oneof=One-on-One One-on-Two"`
}

// StudentStatusRequest archives or re-activates a student.
type StudentStatusRequest struct {
	Status models.StudentStatus `json:"status" validate:"required,oneof=Active Archived"`
}

// ProgressRequest records a skill snapshot. Scores are ignored when rubrics are supplied.
type ProgressRequest struct {
	Date       *time.Time        `json:"date"`
	ReportType models.ReportType `json:"report_type" validate:"omitempty,oneof=Session Beginning Mid End"`
	Reading    int               `json:"reading" validate:"min=0,max=100"`
	Writing    int               `json:"writing" validate:"min=0,max=100"`
	Listening  int               `json:"listening" validate:"min=0,max=100"`
	Speaking   int               `json:"speaking" validate:"min=0,max=100"`
	Rubrics    *models.RubricSet `json:"rubrics"`
	Notes      string            `json:"notes"`
}

// PaymentRequest records money received from a student.
type PaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method"`
	Date   *time.Time      `json:"date"`
	Note   string          `json:"note"`
}

// AdjustmentRequest corrects a balance. Positive amounts reduce what the student owes.
type AdjustmentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Date   *time.Time      `json:"date"`
	Note   string          `json:"note" validate:"required"`
}

// StudentOverview is the per-student detail page payload.
type StudentOverview struct {
	Student         models.Student                               `json:"student"`
	AttendanceRate  int                                          `json:"attendance_rate"`
	Sessions        []models.Session                             `json:"sessions"`
	Payments        []models.Payment                             `json:"payments"`
	LatestProgress  *models.SkillProgress                        `json:"latest_progress,omitempty"`
	Milestones      map[models.ReportType]*models.SkillProgress `json:"milestones"`
	ExpectedBalance decimal.Decimal                              `json:"expected_balance"`
}

// StudentService handles student use-cases on top of the ledger store.
type StudentService struct {
	store     studentStore
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(store studentStore, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{store: store, validator: validate, metrics: metrics, logger: logger}
}

// List returns students matching the filter, ordered by name, and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid status filter")
	}
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	matched := []models.Student{}
	for _, st := range s.store.Snapshot().Students {
		if filter.Status != "" && st.Status != filter.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(st.Name), search) &&
			!strings.Contains(strings.ToLower(st.ParentName), search) {
			continue
		}
		matched = append(matched, st)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return strings.ToLower(matched[i].Name) < strings.ToLower(matched[j].Name)
	})

	page, size := normalizePage(filter.Page, filter.PageSize)
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: len(matched)}
	start := (page - 1) * size
	if start >= len(matched) {
		return []models.Student{}, pagination, nil
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], pagination, nil
}

// Get returns one student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	st, ok := s.store.Snapshot().Student(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return &st, nil
}

// Register creates a student with optional initial packages.
func (s *StudentService) Register(ctx context.Context, req RegisterStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	in := ledger.StudentInput{
		Name:         req.Name,
		Email:        req.Email,
		ParentName:   req.ParentName,
		Notes:        req.Notes,
		ProgramTypes: req.ProgramTypes,
	}
	if req.JoinedDate != nil {
		in.JoinedDate = *req.JoinedDate
	}
	for _, p := range req.InitialPackages {
		in.InitialPackages = append(in.InitialPackages, p.purchase())
	}

	student, _, err := s.store.RegisterStudent(in)
	s.observe("register_student", err)
	if err != nil {
		return nil, err
	}
	s.logger.Info("student registered", zap.String("student_id", student.ID), zap.Int("packages", len(in.InitialPackages)))
	return &student, nil
}

// Update edits a student's profile.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, _, err := s.store.UpdateStudent(id, ledger.StudentProfile{
		Name:         req.Name,
		Email:        req.Email,
		ParentName:   req.ParentName,
		Notes:        req.Notes,
		ProgramTypes: req.ProgramTypes,
	})
	s.observe("update_student", err)
	if err != nil {
		return nil, err
	}
	return &student, nil
}

// SetStatus archives or re-activates a student.
func (s *StudentService) SetStatus(ctx context.Context, id string, req StudentStatusRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	student, _, err := s.store.SetStudentStatus(id, req.Status)
	s.observe("set_student_status", err)
	if err != nil {
		return nil, err
	}
	return &student, nil
}

// Delete removes an archived student.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	_, err := s.store.DeleteStudent(id)
	s.observe("delete_student", err)
	if err == nil {
		s.logger.Info("student deleted", zap.String("student_id", id))
	}
	return err
}

// AddProgress appends a skill snapshot.
func (s *StudentService) AddProgress(ctx context.Context, id string, req ProgressRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid progress payload")
	}
	progress := models.SkillProgress{
		ReportType: req.ReportType,
		Reading:    req.Reading,
		Writing:    req.Writing,
		Listening:  req.Listening,
		Speaking:   req.Speaking,
		Rubrics:    req.Rubrics,
		Notes:      req.Notes,
	}
	if req.Date != nil {
		progress.Date = *req.Date
	}
	student, _, err := s.store.AddProgress(id, progress)
	s.observe("add_progress", err)
	if err != nil {
		return nil, err
	}
	return &student, nil
}

// RecordPayment records a payment against the student's balance.
func (s *StudentService) RecordPayment(ctx context.Context, id string, req PaymentRequest) (*models.Payment, error) {
	entry := models.Payment{StudentID: id, Amount: req.Amount, Method: req.Method, Note: req.Note}
	if req.Date != nil {
		entry.Date = *req.Date
	}
	payment, _, err := s.store.RecordPayment(entry)
	s.observe("record_payment", err)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// PurchasePackage credits a package of sessions.
func (s *StudentService) PurchasePackage(ctx context.Context, id string, req PackageRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid package payload")
	}
	student, _, err := s.store.PurchasePackage(id, req.purchase())
	s.observe("purchase_package", err)
	if err != nil {
		return nil, err
	}
	return &student, nil
}

// Adjust records a manual balance correction.
func (s *StudentService) Adjust(ctx context.Context, id string, req AdjustmentRequest) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid adjustment payload")
	}
	entry := models.Payment{StudentID: id, Amount: req.Amount, Note: req.Note}
	if req.Date != nil {
		entry.Date = *req.Date
	}
	adjustment, _, err := s.store.AdjustBalance(entry)
	s.observe("adjust_balance", err)
	if err != nil {
		return nil, err
	}
	s.logger.Info("balance adjusted", zap.String("student_id", id), zap.String("amount", req.Amount.String()))
	return &adjustment, nil
}

// Overview assembles the student detail payload from one snapshot.
func (s *StudentService) Overview(ctx context.Context, id string) (*StudentOverview, error) {
	state := s.store.Snapshot()
	student, ok := state.Student(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	payments := []models.Payment{}
	for _, p := range state.Payments {
		if p.StudentID == id {
			payments = append(payments, p)
		}
	}
	sort.SliceStable(payments, func(i, j int) bool { return payments[i].Date.After(payments[j].Date) })

	milestones := map[models.ReportType]*models.SkillProgress{}
	for _, tag := range []models.ReportType{models.ReportBeginning, models.ReportMid, models.ReportEnd} {
		if p := student.LatestProgress(tag); p != nil {
			milestones[tag] = p
		}
	}

	return &StudentOverview{
		Student:         student,
		AttendanceRate:  ledger.StudentAttendanceRate(state.Sessions, id),
		Sessions:        ledger.StudentSessions(state.Sessions, id),
		Payments:        payments,
		LatestProgress:  student.LatestProgress(""),
		Milestones:      milestones,
		ExpectedBalance: ledger.ExpectedBalance(student, state.Sessions, state.Payments),
	}, nil
}

func (s *StudentService) observe(command string, err error) {
	s.metrics.RecordLedgerCommand(command, err)
	if err == nil {
		s.metrics.SetLedgerRevision(s.store.Snapshot().Revision)
	}
}

func (p PackageRequest) purchase() ledger.PackagePurchase {
	out := ledger.PackagePurchase{Program: p.Program, Sessions: p.Sessions, Amount: p.Amount, Method: p.Method}
	if p.Date != nil {
		out.Date = *p.Date
	}
	return out
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}
