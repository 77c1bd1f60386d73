package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/tutortrack-api/internal/ledger"
	"github.com/noah-isme/tutortrack-api/internal/seed"
	appErrors "github.com/noah-isme/tutortrack-api/pkg/errors"
)

var fixedNow = time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)

func newSeededStore(t *testing.T) *ledger.Store {
	t.Helper()
	n := 0
	store := ledger.NewStore(
		ledger.WithClock(func() time.Time { return fixedNow }),
		ledger.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}),
	)
	ds := seed.Load()
	store.Load(ledger.DeriveOpeningBalances(ds.Students, ds.Sessions, ds.Payments), ds.Sessions, ds.Payments, decimal.Zero)
	return store
}

func balanceOf(t *testing.T, store *ledger.Store, id string) decimal.Decimal {
	t.Helper()
	st, ok := store.Snapshot().Student(id)
	if !ok {
		t.Fatalf("student %s not found", id)
	}
	return st.Balance
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// memoryCache stores JSON payloads in a map.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deleted []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
			m.deleted = append(m.deleted, key)
		}
	}
	return nil
}
