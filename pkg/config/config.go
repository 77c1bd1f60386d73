package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Persistence drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverREST     = "rest"
	DriverNone     = "none"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Persistence PersistenceConfig
	Database    DatabaseConfig
	SQLite      SQLiteConfig
	REST        RESTConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Auth        AuthConfig
	CORS        CORSConfig
	Log         LogConfig
	Dashboard   DashboardConfig
	Pricing     PricingConfig
	AI          AIConfig
	Mail        MailConfig
}

// PersistenceConfig selects the backing store and the write-behind worker pool.
type PersistenceConfig struct {
	Driver     string
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
	// SeedEmpty writes the bundled demo data into an empty backend on first start.
	SeedEmpty bool
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// SQLiteConfig points at the embedded database file.
type SQLiteConfig struct {
	Path string
}

// RESTConfig configures the hosted PostgREST backend.
type RESTConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Configured reports whether both the URL and key are present.
func (c RESTConfig) Configured() bool {
	return c.URL != "" && c.APIKey != ""
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

// AuthConfig guards the API with a single tutor password.
type AuthConfig struct {
	Enabled      bool
	PasswordHash string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// DashboardConfig governs dashboard cache tuning and the viewer's default time zone.
type DashboardConfig struct {
	CacheTTL        time.Duration
	DefaultTimezone string
	FinancialOffset decimal.Decimal
}

// PricingConfig holds per-participant session prices.
type PricingConfig struct {
	OneOnOne decimal.Decimal
	Group    decimal.Decimal
}

// AIConfig configures the OpenAI-compatible text generator.
type AIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// MailConfig configures outbound e-mail.
type MailConfig struct {
	SendGridAPIKey string
	FromName       string
	FromAddress    string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Persistence = PersistenceConfig{
		Driver:     strings.ToLower(v.GetString("PERSISTENCE_DRIVER")),
		Workers:    v.GetInt("PERSIST_WORKERS"),
		MaxRetries: v.GetInt("PERSIST_RETRIES"),
		RetryDelay: parseDuration(v.GetString("PERSIST_RETRY_DELAY"), 2*time.Second),
		Timeout:    parseDuration(v.GetString("PERSIST_TIMEOUT"), 10*time.Second),
		SeedEmpty:  v.GetBool("PERSIST_SEED_EMPTY"),
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.SQLite = SQLiteConfig{Path: v.GetString("SQLITE_PATH")}

	cfg.REST = RESTConfig{
		URL:     strings.TrimRight(v.GetString("SUPABASE_URL"), "/"),
		APIKey:  v.GetString("SUPABASE_ANON_KEY"),
		Timeout: parseDuration(v.GetString("SUPABASE_TIMEOUT"), 10*time.Second),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.Auth = AuthConfig{
		Enabled:      v.GetBool("AUTH_ENABLED"),
		PasswordHash: v.GetString("AUTH_PASSWORD_HASH"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Dashboard = DashboardConfig{
		CacheTTL:        parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
		DefaultTimezone: v.GetString("DEFAULT_TIMEZONE"),
		FinancialOffset: parseDecimal(v.GetString("FINANCIAL_OFFSET"), decimal.Zero),
	}

	cfg.Pricing = PricingConfig{
		OneOnOne: parseDecimal(v.GetString("PRICE_ONE_ON_ONE"), decimal.NewFromInt(40)),
		Group:    parseDecimal(v.GetString("PRICE_GROUP"), decimal.NewFromInt(30)),
	}

	cfg.AI = AIConfig{
		APIKey:  v.GetString("AI_API_KEY"),
		BaseURL: v.GetString("AI_BASE_URL"),
		Model:   v.GetString("AI_MODEL"),
		Timeout: parseDuration(v.GetString("AI_TIMEOUT"), 30*time.Second),
	}

	cfg.Mail = MailConfig{
		SendGridAPIKey: v.GetString("SENDGRID_API_KEY"),
		FromName:       v.GetString("MAIL_FROM_NAME"),
		FromAddress:    v.GetString("MAIL_FROM_ADDRESS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("PERSISTENCE_DRIVER", DriverSQLite)
	v.SetDefault("PERSIST_WORKERS", 1)
	v.SetDefault("PERSIST_RETRIES", 3)
	v.SetDefault("PERSIST_RETRY_DELAY", "2s")
	v.SetDefault("PERSIST_TIMEOUT", "10s")
	v.SetDefault("PERSIST_SEED_EMPTY", false)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "tutortrack")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("SQLITE_PATH", "tutortrack.db")
	v.SetDefault("SUPABASE_URL", "")
	v.SetDefault("SUPABASE_ANON_KEY", "")
	v.SetDefault("SUPABASE_TIMEOUT", "10s")

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("AUTH_ENABLED", false)
	v.SetDefault("AUTH_PASSWORD_HASH", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")
	v.SetDefault("DEFAULT_TIMEZONE", "UTC")
	v.SetDefault("FINANCIAL_OFFSET", "0")
	v.SetDefault("PRICE_ONE_ON_ONE", "40")
	v.SetDefault("PRICE_GROUP", "30")

	v.SetDefault("AI_API_KEY", "")
	v.SetDefault("AI_BASE_URL", "")
	v.SetDefault("AI_MODEL", "gpt-4o-mini")
	v.SetDefault("AI_TIMEOUT", "30s")

	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("MAIL_FROM_NAME", "TutorTrack")
	v.SetDefault("MAIL_FROM_ADDRESS", "")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

// isMissingFile catches the path error viper returns for an explicit config file that does not exist.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDecimal(raw string, fallback decimal.Decimal) decimal.Decimal {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}

	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
