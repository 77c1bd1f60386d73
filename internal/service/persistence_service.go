package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/tutortrack-api/internal/ledger"
	"github.com/noah-isme/tutortrack-api/internal/models"
	"github.com/noah-isme/tutortrack-api/internal/seed"
	"github.com/noah-isme/tutortrack-api/pkg/jobs"
)

// Bootstrap sources.
const (
	SourceBackend = "backend"
	SourceSeed    = "seed"
	SourceSeeded  = "seeded-backend"
)

type ledgerOwner interface {
	Snapshot() *ledger.State
	Subscribe(l ledger.Listener)
	Load(students []models.Student, sessions []models.Session, payments []models.Payment, offset decimal.Decimal)
	Seed(students []models.Student, sessions []models.Session, payments []models.Payment, offset decimal.Decimal) []ledger.Change
}

type studentPersister interface {
	List(ctx context.Context) ([]models.Student, error)
	Upsert(ctx context.Context, student models.Student) error
	Delete(ctx context.Context, id string, version int64) error
}

type sessionPersister interface {
	List(ctx context.Context) ([]models.Session, error)
	Upsert(ctx context.Context, session models.Session) error
	Delete(ctx context.Context, id string, version int64) error
}

type paymentPersister interface {
	List(ctx context.Context) ([]models.Payment, error)
	Upsert(ctx context.Context, payment models.Payment) error
}

// Backend groups the repositories of one persistence driver.
type Backend struct {
	Name     string
	Students studentPersister
	Sessions sessionPersister
	Payments paymentPersister
}

// PersistenceConfig tunes loading and write-behind.
type PersistenceConfig struct {
	Workers         int
	MaxRetries      int
	RetryDelay      time.Duration
	Timeout         time.Duration
	SeedEmpty       bool
	FinancialOffset decimal.Decimal
}

// BootstrapResult reports where the initial state came from.
type BootstrapResult struct {
	Source   string `json:"source"`
	Backend  string `json:"backend"`
	Students int    `json:"students"`
	Sessions int    `json:"sessions"`
	Payments int    `json:"payments"`
	Persist  bool   `json:"persist"`
}

// PersistenceService loads the ledger at startup and mirrors committed changes to the backend.
// The in-memory state is authoritative: write failures are retried and logged, never rolled back.
type PersistenceService struct {
	store   ledgerOwner
	backend *Backend
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
	cfg     PersistenceConfig
	result  BootstrapResult
}

// NewPersistenceService constructs the service. A nil backend means persistence is not configured.
func NewPersistenceService(store ledgerOwner, backend *Backend, metrics *MetricsService, logger *zap.Logger, cfg PersistenceConfig) *PersistenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	s := &PersistenceService{store: store, backend: backend, metrics: metrics, logger: logger, cfg: cfg}
	s.queue = jobs.NewQueue("persistence", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
		OnDrop: func(job jobs.Job, err error) {
			metrics.RecordPersistenceDrop(job.Type)
		},
	})
	return s
}

// Start loads the initial state and, when the backend is healthy, begins mirroring changes.
// It never fails: an unconfigured or unreachable backend falls back to the bundled seed data.
func (s *PersistenceService) Start(ctx context.Context) BootstrapResult {
	if s.backend == nil {
		s.logger.Info("persistence not configured, loading seed data")
		return s.finish(s.loadSeed(""))
	}

	students, sessions, payments, err := s.fetch(ctx)
	if err != nil {
		s.logger.Warn("persistence unavailable, loading seed data in memory only", zap.String("backend", s.backend.Name), zap.Error(err))
		return s.finish(s.loadSeed(s.backend.Name))
	}

	s.queue.Start(context.WithoutCancel(ctx))
	s.store.Subscribe(s.enqueue)

	if len(students)+len(sessions)+len(payments) == 0 && s.cfg.SeedEmpty {
		ds := seed.Load()
		s.store.Seed(ds.Students, ds.Sessions, ds.Payments, s.cfg.FinancialOffset)
		s.logger.Info("empty backend seeded with demo data", zap.String("backend", s.backend.Name))
		return s.finish(BootstrapResult{Source: SourceSeeded, Backend: s.backend.Name, Students: len(ds.Students), Sessions: len(ds.Sessions), Payments: len(ds.Payments), Persist: true})
	}

	s.store.Load(students, sessions, payments, s.cfg.FinancialOffset)
	s.logger.Info("ledger loaded",
		zap.String("backend", s.backend.Name),
		zap.Int("students", len(students)),
		zap.Int("sessions", len(sessions)),
		zap.Int("payments", len(payments)),
		zap.Int64("revision", s.store.Snapshot().Revision))
	return s.finish(BootstrapResult{Source: SourceBackend, Backend: s.backend.Name, Students: len(students), Sessions: len(sessions), Payments: len(payments), Persist: true})
}

// Status returns the bootstrap outcome and the number of pending writes.
func (s *PersistenceService) Status() (BootstrapResult, int) {
	return s.result, s.queue.Pending()
}

// Stop flushes pending writes until ctx expires.
func (s *PersistenceService) Stop(ctx context.Context) error {
	return s.queue.Stop(ctx)
}

func (s *PersistenceService) finish(result BootstrapResult) BootstrapResult {
	s.result = result
	s.metrics.SetLedgerRevision(s.store.Snapshot().Revision)
	return result
}

func (s *PersistenceService) fetch(ctx context.Context) ([]models.Student, []models.Session, []models.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	students, err := s.backend.Students.List(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	sessions, err := s.backend.Sessions.List(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	payments, err := s.backend.Payments.List(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return students, sessions, payments, nil
}

func (s *PersistenceService) loadSeed(backend string) BootstrapResult {
	ds := seed.Load()
	students := ledger.DeriveOpeningBalances(ds.Students, ds.Sessions, ds.Payments)
	s.store.Load(students, ds.Sessions, ds.Payments, s.cfg.FinancialOffset)
	return BootstrapResult{Source: SourceSeed, Backend: backend, Students: len(students), Sessions: len(ds.Sessions), Payments: len(ds.Payments)}
}

// enqueue runs under the store's writer lock, so jobs are queued in commit order. The queue
// never blocks; a record still waiting to be written is replaced by its newer version.
func (s *PersistenceService) enqueue(changes []ledger.Change) {
	for _, c := range changes {
		job := jobs.Job{
			ID:      fmt.Sprintf("%s:%s:%d", c.Entity, c.ID, c.Version),
			Key:     fmt.Sprintf("%s:%s", c.Entity, c.ID),
			Type:    string(c.Entity),
			Payload: c,
		}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Error("persistence job not queued", zap.String("job_id", job.ID), zap.Error(err))
			s.metrics.RecordPersistenceDrop(job.Type)
		}
	}
}

func (s *PersistenceService) handle(ctx context.Context, job jobs.Job) error {
	change, ok := job.Payload.(ledger.Change)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	err := s.write(ctx, change)
	s.metrics.ObservePersistence(job.Type, time.Since(start), err)
	return err
}

func (s *PersistenceService) write(ctx context.Context, c ledger.Change) error {
	switch c.Entity {
	case ledger.EntityStudent:
		if c.Op == ledger.OpDelete {
			return s.backend.Students.Delete(ctx, c.ID, c.Version)
		}
		return s.backend.Students.Upsert(ctx, *c.Student)
	case ledger.EntitySession:
		if c.Op == ledger.OpDelete {
			return s.backend.Sessions.Delete(ctx, c.ID, c.Version)
		}
		return s.backend.Sessions.Upsert(ctx, *c.Session)
	case ledger.EntityPayment:
		if c.Op == ledger.OpDelete {
			return nil
		}
		return s.backend.Payments.Upsert(ctx, *c.Payment)
	default:
		return nil
	}
}
