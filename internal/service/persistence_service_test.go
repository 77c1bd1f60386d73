package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutortrack-api/internal/ledger"
	"github.com/noah-isme/tutortrack-api/internal/models"
	"github.com/noah-isme/tutortrack-api/internal/seed"
)

// memoryTable is an in-memory stand-in for one backend table.
type memoryTable[T any] struct {
	mu       sync.Mutex
	rows     map[string]T
	order    []string
	deleted  map[string]int64
	listErr  error
	failNext int
	idOf     func(T) string
}

func newMemoryTable[T any](idOf func(T) string, rows ...T) *memoryTable[T] {
	t := &memoryTable[T]{rows: map[string]T{}, deleted: map[string]int64{}, idOf: idOf}
	for _, r := range rows {
		t.rows[idOf(r)] = r
	}
	return t
}

func (m *memoryTable[T]) List(context.Context) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]T, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r)
	}
	return out, nil
}

func (m *memoryTable[T]) Upsert(_ context.Context, row T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext > 0 {
		m.failNext--
		return errors.New("connection reset")
	}
	id := m.idOf(row)
	m.rows[id] = row
	m.order = append(m.order, id)
	return nil
}

func (m *memoryTable[T]) Delete(_ context.Context, id string, version int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	m.deleted[id] = version
	return nil
}

func (m *memoryTable[T]) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type memoryBackend struct {
	students *memoryTable[models.Student]
	sessions *memoryTable[models.Session]
	payments *memoryTable[models.Payment]
}

func newMemoryBackend(students []models.Student, sessions []models.Session, payments []models.Payment) *memoryBackend {
	return &memoryBackend{
		students: newMemoryTable(func(s models.Student) string { return s.ID }, students...),
		sessions: newMemoryTable(func(s models.Session) string { return s.ID }, sessions...),
		payments: newMemoryTable(func(p models.Payment) string { return p.ID }, payments...),
	}
}

func (b *memoryBackend) backend() *Backend {
	return &Backend{Name: "memory", Students: b.students, Sessions: b.sessions, Payments: b.payments}
}

func newEmptyStore() *ledger.Store {
	n := 0
	return ledger.NewStore(
		ledger.WithClock(func() time.Time { return fixedNow }),
		ledger.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("gen-%d", n)
		}),
	)
}

func persistenceConfig() PersistenceConfig {
	return PersistenceConfig{Workers: 1, MaxRetries: 3, RetryDelay: time.Millisecond, Timeout: time.Second}
}

func stop(t *testing.T, svc *PersistenceService) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, svc.Stop(ctx))
}

func TestPersistenceServiceWithoutBackendLoadsSeed(t *testing.T) {
	store := newEmptyStore()
	metrics := NewMetricsService()
	svc := NewPersistenceService(store, nil, metrics, nil, persistenceConfig())

	result := svc.Start(context.Background())
	assert.Equal(t, SourceSeed, result.Source)
	assert.False(t, result.Persist)
	assert.Equal(t, 3, result.Students)
	assert.Len(t, store.Snapshot().Students, 3)
	assert.True(t, ledger.Reconcile(store.Snapshot()).Balanced())

	status, pending := svc.Status()
	assert.Equal(t, result, status)
	assert.Zero(t, pending)
	stop(t, svc)
}

func TestPersistenceServiceUnavailableBackendStaysInMemory(t *testing.T) {
	backend := newMemoryBackend(nil, nil, nil)
	backend.sessions.listErr = errors.New("dial tcp: connection refused")
	store := newEmptyStore()
	svc := NewPersistenceService(store, backend.backend(), nil, nil, persistenceConfig())

	result := svc.Start(context.Background())
	assert.Equal(t, SourceSeed, result.Source)
	assert.Equal(t, "memory", result.Backend)
	assert.False(t, result.Persist)

	_, _, err := store.RecordPayment(models.Payment{StudentID: "s3", Amount: dec("10")})
	require.NoError(t, err)
	stop(t, svc)
	assert.Zero(t, backend.payments.len())
	assert.Zero(t, backend.students.len())
}

func TestPersistenceServiceLoadsBackendAndMirrorsChanges(t *testing.T) {
	ds := seed.Load()
	students := ledger.DeriveOpeningBalances(ds.Students, ds.Sessions, ds.Payments)
	backend := newMemoryBackend(students, ds.Sessions, ds.Payments)
	backend.payments.failNext = 2
	store := newEmptyStore()
	svc := NewPersistenceService(store, backend.backend(), NewMetricsService(), nil, persistenceConfig())

	result := svc.Start(context.Background())
	assert.Equal(t, SourceBackend, result.Source)
	assert.True(t, result.Persist)
	assert.Equal(t, 2, result.Payments)

	payment, _, err := store.RecordPayment(models.Payment{StudentID: "s3", Amount: dec("100"), Method: "Cash"})
	require.NoError(t, err)
	_, err = store.DeleteSession("sess2")
	require.NoError(t, err)
	stop(t, svc)

	backend.payments.mu.Lock()
	stored, ok := backend.payments.rows[payment.ID]
	backend.payments.mu.Unlock()
	require.True(t, ok)
	assert.True(t, stored.Amount.Equal(dec("100")))

	backend.students.mu.Lock()
	s3 := backend.students.rows["s3"]
	backend.students.mu.Unlock()
	assert.True(t, s3.Balance.Equal(balanceOf(t, store, "s3")))

	backend.sessions.mu.Lock()
	version, deleted := backend.sessions.deleted["sess2"]
	backend.sessions.mu.Unlock()
	assert.True(t, deleted)
	assert.Equal(t, store.Snapshot().Revision, version)
}

func TestPersistenceServiceSeedsEmptyBackend(t *testing.T) {
	backend := newMemoryBackend(nil, nil, nil)
	store := newEmptyStore()
	cfg := persistenceConfig()
	cfg.SeedEmpty = true
	svc := NewPersistenceService(store, backend.backend(), nil, nil, cfg)

	result := svc.Start(context.Background())
	assert.Equal(t, SourceSeeded, result.Source)
	assert.True(t, result.Persist)
	stop(t, svc)

	assert.Equal(t, 3, backend.students.len())
	assert.Equal(t, 3, backend.sessions.len())
	assert.Equal(t, 2, backend.payments.len())
}

func TestPersistenceServiceEmptyBackendWithoutSeeding(t *testing.T) {
	backend := newMemoryBackend(nil, nil, nil)
	store := newEmptyStore()
	svc := NewPersistenceService(store, backend.backend(), nil, nil, persistenceConfig())

	result := svc.Start(context.Background())
	assert.Equal(t, SourceBackend, result.Source)
	assert.Empty(t, store.Snapshot().Students)
	stop(t, svc)
}

func TestPersistenceServiceDropsAfterRetries(t *testing.T) {
	backend := newMemoryBackend(nil, nil, nil)
	backend.students.failNext = 100
	metrics := NewMetricsService()
	store := newEmptyStore()
	cfg := persistenceConfig()
	cfg.MaxRetries = 1
	svc := NewPersistenceService(store, backend.backend(), metrics, nil, cfg)
	svc.Start(context.Background())

	_, _, err := store.RegisterStudent(ledger.StudentInput{Name: "Eve", ProgramTypes: []models.ProgramType{models.ProgramOneOnOne}})
	require.NoError(t, err)
	stop(t, svc)

	assert.Zero(t, backend.students.len())
	assert.Equal(t, uint64(1), metrics.Snapshot().PersistFailures)
	assert.Len(t, store.Snapshot().Students, 1)
}

// hangingPayments never returns from Upsert until released, whatever its context says.
type hangingPayments struct {
	release chan struct{}
}

func (h *hangingPayments) List(context.Context) ([]models.Payment, error) { return nil, nil }

func (h *hangingPayments) Upsert(context.Context, models.Payment) error {
	<-h.release
	return nil
}

func TestPersistenceServiceHungBackendDoesNotBlockLedger(t *testing.T) {
	ds := seed.Load()
	students := ledger.DeriveOpeningBalances(ds.Students, ds.Sessions, ds.Payments)
	backend := newMemoryBackend(students, ds.Sessions, nil)
	payments := &hangingPayments{release: make(chan struct{})}
	defer close(payments.release)
	store := newEmptyStore()
	svc := NewPersistenceService(store, &Backend{Name: "memory", Students: backend.students, Sessions: backend.sessions, Payments: payments}, NewMetricsService(), nil, persistenceConfig())
	svc.Start(context.Background())

	done := make(chan int, 1)
	go func() {
		n := 0
		for i := 0; i < 200; i++ {
			if _, _, err := store.RecordPayment(models.Payment{StudentID: "s1", Amount: dec("1"), Method: "Cash"}); err == nil {
				n++
			}
		}
		done <- n
	}()
	select {
	case n := <-done:
		assert.Equal(t, 200, n)
	case <-time.After(5 * time.Second):
		t.Fatal("ledger writes stalled behind the backend")
	}

	_, pending := svc.Status()
	assert.Positive(t, pending)
	assert.LessOrEqual(t, pending, 201)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	stopped := make(chan error, 1)
	go func() { stopped <- svc.Stop(ctx) }()
	select {
	case err := <-stopped:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(3 * time.Second):
		t.Fatal("stop ignored its deadline")
	}
}
