package seed

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutortrack-api/internal/ledger"
)

func TestLoadReturnsIndependentCopies(t *testing.T) {
	first := Load()
	first.Students[0].Name = "changed"

	second := Load()
	assert.Equal(t, "Alice Johnson", second.Students[0].Name)
}

func TestSeedReconcilesAfterLoading(t *testing.T) {
	data := Load()
	store := ledger.NewStore()

	changes := store.Seed(data.Students, data.Sessions, data.Payments, decimal.Zero)

	require.Len(t, changes, len(data.Students)+len(data.Sessions)+len(data.Payments))
	assert.True(t, ledger.Reconcile(store.Snapshot()).Balanced())

	for _, s := range data.Sessions {
		for _, id := range s.StudentIDs {
			_, ok := store.Snapshot().Student(id)
			assert.Truef(t, ok, "session %s references unknown student %s", s.ID, id)
		}
	}
}
