package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, DriverSQLite, cfg.Persistence.Driver)
	assert.True(t, cfg.Pricing.OneOnOne.Equal(decimal.NewFromInt(40)))
	assert.True(t, cfg.Pricing.Group.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, 5*time.Minute, cfg.Dashboard.CacheTTL)
	assert.False(t, cfg.REST.Configured())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PERSISTENCE_DRIVER", "REST")
	t.Setenv("SUPABASE_URL", "https://example.supabase.co/")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("FINANCIAL_OFFSET", "1250.50")
	t.Setenv("PRICE_GROUP", "not-a-number")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverREST, cfg.Persistence.Driver)
	assert.Equal(t, "https://example.supabase.co", cfg.REST.URL)
	assert.True(t, cfg.REST.Configured())
	assert.True(t, cfg.Dashboard.FinancialOffset.Equal(decimal.RequireFromString("1250.50")))
	assert.True(t, cfg.Pricing.Group.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}
