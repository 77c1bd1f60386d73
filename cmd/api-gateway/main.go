package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	_ "github.com/noah-isme/tutortrack-api/api/swagger"
	"github.com/noah-isme/tutortrack-api/internal/ledger"
	"github.com/noah-isme/tutortrack-api/internal/repository"
	"github.com/noah-isme/tutortrack-api/internal/service"
	"github.com/noah-isme/tutortrack-api/pkg/ai"
	"github.com/noah-isme/tutortrack-api/pkg/cache"
	"github.com/noah-isme/tutortrack-api/pkg/config"
	"github.com/noah-isme/tutortrack-api/pkg/database"
	"github.com/noah-isme/tutortrack-api/pkg/export"
	"github.com/noah-isme/tutortrack-api/pkg/logger"
	"github.com/noah-isme/tutortrack-api/pkg/mailer"
)

// @title TutorTrack API
// @version 1.0.0
// @description Student ledger, sessions and payments for a private tutoring business
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()
	metrics := service.NewMetricsService()

	var cacheRepo *repository.CacheRepository
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
		}
		cacheRepo = repository.NewCacheRepository(client, "tutortrack", logr)
	} else {
		cacheRepo = repository.NewCacheRepository(nil, "tutortrack", logr)
	}
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cfg.Redis.Enabled)

	backend, db, err := openBackend(cfg, logr)
	if err != nil {
		logr.Warn("persistence backend unavailable", zap.String("driver", cfg.Persistence.Driver), zap.Error(err))
	}
	if db != nil {
		defer db.Close() //nolint:errcheck
	}

	store := ledger.NewStore()
	persistence := service.NewPersistenceService(store, backend, metrics, logr, service.PersistenceConfig{
		Workers:         cfg.Persistence.Workers,
		MaxRetries:      cfg.Persistence.MaxRetries,
		RetryDelay:      cfg.Persistence.RetryDelay,
		Timeout:         cfg.Persistence.Timeout,
		SeedEmpty:       cfg.Persistence.SeedEmpty,
		FinancialOffset: cfg.Dashboard.FinancialOffset,
	})
	boot := persistence.Start(ctx)
	logr.Info("ledger ready", zap.String("source", boot.Source), zap.Bool("persist", boot.Persist))

	var generator interface {
		Generate(ctx context.Context, system, prompt string) (string, error)
	}
	if client, err := ai.New(ai.Config{APIKey: cfg.AI.APIKey, BaseURL: cfg.AI.BaseURL, Model: cfg.AI.Model, Timeout: cfg.AI.Timeout}); err != nil {
		logr.Info("assistant running without text generator", zap.Error(err))
	} else {
		generator = client
	}
	var mail interface {
		Send(ctx context.Context, msg mailer.Message) error
	}
	if sg, err := mailer.NewSendGrid(cfg.Mail.SendGridAPIKey, cfg.Mail.FromName, cfg.Mail.FromAddress); err != nil {
		logr.Info("progress reports will not be e-mailed", zap.Error(err))
	} else {
		mail = sg
	}

	svc := services{
		auth: service.NewAuthService(validate, logr, service.AuthConfig{
			PasswordHash:      cfg.Auth.PasswordHash,
			AccessTokenSecret: cfg.JWT.Secret,
			AccessTokenExpiry: cfg.JWT.Expiration,
			Issuer:            "tutortrack",
		}),
		students: service.NewStudentService(store, validate, metrics, logr),
		sessions: service.NewSessionService(store, service.Pricing{OneOnOne: cfg.Pricing.OneOnOne, Group: cfg.Pricing.Group}, validate, metrics, logr),
		payments: service.NewPaymentService(store),
		dashboard: service.NewDashboardService(store, cacheSvc, logr, service.DashboardServiceConfig{
			CacheTTL:        cfg.Dashboard.CacheTTL,
			DefaultTimezone: cfg.Dashboard.DefaultTimezone,
		}),
		exports:     service.NewExportService(store, export.NewCSVExporter(), export.NewPDFExporter(), logr),
		assistant:   service.NewAssistantService(store, generator, mail, validate, metrics, logr),
		metrics:     metrics,
		persistence: persistence,
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(cfg, logr, svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown incomplete", zap.Error(err))
	}
	if err := persistence.Stop(shutdownCtx); err != nil {
		_, pending := persistence.Status()
		logr.Warn("pending writes not flushed", zap.Int("pending", pending), zap.Error(err))
	}
}

// openBackend builds the repositories for the configured driver. A nil backend with a nil
// error means persistence is switched off.
func openBackend(cfg *config.Config, logr *zap.Logger) (*service.Backend, *sqlx.DB, error) {
	switch cfg.Persistence.Driver {
	case config.DriverNone, "":
		return nil, nil, nil
	case config.DriverREST:
		if !cfg.REST.Configured() {
			return nil, nil, errors.New("SUPABASE_URL and SUPABASE_ANON_KEY are required")
		}
		client, err := repository.NewRESTClient(cfg.REST.URL, cfg.REST.APIKey, cfg.REST.Timeout)
		if err != nil {
			return nil, nil, err
		}
		return &service.Backend{
			Name:     config.DriverREST,
			Students: repository.NewRemoteStudentRepository(client),
			Sessions: repository.NewRemoteSessionRepository(client),
			Payments: repository.NewRemotePaymentRepository(client),
		}, nil, nil
	case config.DriverPostgres, config.DriverSQLite:
		var (
			db  *sqlx.DB
			err error
		)
		if cfg.Persistence.Driver == config.DriverPostgres {
			db, err = database.NewPostgres(cfg.Database)
		} else {
			db, err = database.NewSQLite(cfg.SQLite)
		}
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		logr.Info("database ready", zap.String("driver", cfg.Persistence.Driver))
		return &service.Backend{
			Name:     cfg.Persistence.Driver,
			Students: repository.NewStudentRepository(db),
			Sessions: repository.NewSessionRepository(db),
			Payments: repository.NewPaymentRepository(db),
		}, db, nil
	default:
		return nil, nil, fmt.Errorf("unknown persistence driver %q", cfg.Persistence.Driver)
	}
}
