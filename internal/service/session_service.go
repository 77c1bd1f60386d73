package service

import (
	"context"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/tutortrack-api/internal/ledger"
	"github.com/noah-isme/tutortrack-api/internal/models"
	appErrors "github.com/noah-isme/tutortrack-api/pkg/errors"
)

type sessionStore interface {
	Snapshot() *ledger.State
	AddSession(session models.Session) (models.Session, []ledger.Change, error)
	UpdateSession(session models.Session) (models.Session, []ledger.Change, error)
	DeleteSession(id string) ([]ledger.Change, error)
}

// Pricing holds the default per-participant session prices.
type Pricing struct {
	OneOnOne decimal.Decimal
	Group    decimal.Decimal
}

// DefaultPrice is the price of a session of the given program with n participants.
func (p Pricing) DefaultPrice(program models.ProgramType, n int) decimal.Decimal {
	per := p.OneOnOne
	if program == models.ProgramGroup {
		per = p.Group
	}
	return per.Mul(decimal.NewFromInt(int64(n)))
}

// SessionRequest holds payload for logging or editing a session. A nil price uses the
// default pricing on create. On update it keeps the stored price unless the participant
// count or program changed, in which case the session is repriced.
type SessionRequest struct {
	StudentIDs      []string                      `json:"student_ids" validate:"required,min=1,max=2,dive,required"`
	Date            *time.Time                    `json:"date"`
	DurationMinutes int                           `json:"duration_minutes" validate:"min=0,max=600"`
	Status          models.AttendanceStatus       `json:"status" validate:"omitempty,oneof=Present Absent Late Cancelled"`
	StudentStatuses []models.StudentSessionStatus `json:"student_statuses"`
	Type            models.ProgramType            `json:"type" validate:"omitempty,oneof=One-on-One One-on-Two"`
	Topic           string                        `json:"topic"`
	Notes           string                        `json:"notes"`
	Price           *decimal.Decimal              `json:"price"`
}

// SessionService handles lesson logging.
type SessionService struct {
	store     sessionStore
	pricing   Pricing
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewSessionService constructs the session service.
func NewSessionService(store sessionStore, pricing Pricing, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{store: store, pricing: pricing, validator: validate, metrics: metrics, logger: logger}
}

// List returns sessions matching the filter, newest first.
func (s *SessionService) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error) {
	if !filter.From.IsZero() && !filter.To.IsZero() && !filter.From.Before(filter.To) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "from must be before to")
	}
	out := []models.Session{}
	for _, se := range s.store.Snapshot().Sessions {
		if filter.Match(se) {
			out = append(out, se)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// Get returns one session.
func (s *SessionService) Get(ctx context.Context, id string) (*models.Session, error) {
	se, ok := s.store.Snapshot().Session(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	return &se, nil
}

// Create logs a session and charges its billable participants.
func (s *SessionService) Create(ctx context.Context, req SessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	session := req.session()
	if req.Price == nil {
		session.Price = s.pricing.DefaultPrice(programOf(session), len(session.StudentIDs))
	}

	created, changes, err := s.store.AddSession(session)
	s.observe("add_session", err)
	if err != nil {
		return nil, err
	}
	s.logger.Info("session logged", zap.String("session_id", created.ID), zap.Int("changes", len(changes)))
	return &created, nil
}

// Update replaces a session, reversing its previous charges first.
func (s *SessionService) Update(ctx context.Context, id string, req SessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	previous, ok := s.store.Snapshot().Session(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	session := req.session()
	session.ID = id
	if req.Price == nil {
		session.Price = previous.Price
		program := programOf(session)
		if len(session.StudentIDs) != len(previous.StudentIDs) || program != previous.Type {
			session.Price = s.pricing.DefaultPrice(program, len(session.StudentIDs))
		}
	}
	if req.Date == nil {
		session.Date = previous.Date
	}

	updated, _, err := s.store.UpdateSession(session)
	s.observe("update_session", err)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a session and reverses its charges.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	_, err := s.store.DeleteSession(id)
	s.observe("delete_session", err)
	return err
}

func (s *SessionService) observe(command string, err error) {
	s.metrics.RecordLedgerCommand(command, err)
	if err == nil {
		s.metrics.SetLedgerRevision(s.store.Snapshot().Revision)
	}
}

func programOf(session models.Session) models.ProgramType {
	if session.Type != "" {
		return session.Type
	}
	return models.ProgramForParticipants(len(session.StudentIDs))
}

func (r SessionRequest) session() models.Session {
	se := models.Session{
		StudentIDs:      append(models.StringList(nil), r.StudentIDs...),
		DurationMinutes: r.DurationMinutes,
		Status:          r.Status,
		StudentStatuses: append(models.StudentStatuses(nil), r.StudentStatuses...),
		Type:            r.Type,
		Topic:           r.Topic,
		Notes:           r.Notes,
	}
	if r.Date != nil {
		se.Date = *r.Date
	}
	if r.Price != nil {
		se.Price = *r.Price
	}
	return se
}
