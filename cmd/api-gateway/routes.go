package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/tutortrack-api/internal/handler"
	internalmiddleware "github.com/noah-isme/tutortrack-api/internal/middleware"
	"github.com/noah-isme/tutortrack-api/internal/service"
	"github.com/noah-isme/tutortrack-api/pkg/config"
	"github.com/noah-isme/tutortrack-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/tutortrack-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/tutortrack-api/pkg/middleware/requestid"
)

type services struct {
	auth        *service.AuthService
	students    *service.StudentService
	sessions    *service.SessionService
	payments    *service.PaymentService
	dashboard   *service.DashboardService
	exports     *service.ExportService
	assistant   *service.AssistantService
	metrics     *service.MetricsService
	persistence *service.PersistenceService
}

func newRouter(cfg *config.Config, logr *zap.Logger, svc services) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(svc.metrics))
	r.Use(internalmiddleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(svc.metrics, svc.persistence)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(svc.auth)
	studentHandler := handler.NewStudentHandler(svc.students, svc.exports, svc.assistant)
	sessionHandler := handler.NewSessionHandler(svc.sessions, svc.assistant)
	paymentHandler := handler.NewPaymentHandler(svc.payments)
	dashboardHandler := handler.NewDashboardHandler(svc.dashboard)

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	secured := api.Group("")
	if cfg.Auth.Enabled {
		secured.Use(internalmiddleware.JWT(svc.auth))
	}
	secured.GET("/auth/me", authHandler.Me)

	students := secured.Group("/students")
	students.GET("", studentHandler.List)
	students.POST("", studentHandler.Create)
	students.GET("/:id", studentHandler.Get)
	students.PUT("/:id", studentHandler.Update)
	students.PUT("/:id/status", studentHandler.SetStatus)
	students.DELETE("/:id", studentHandler.Delete)
	students.POST("/:id/progress", studentHandler.AddProgress)
	students.GET("/:id/overview", studentHandler.Overview)
	students.POST("/:id/payments", studentHandler.RecordPayment)
	students.POST("/:id/packages", studentHandler.PurchasePackage)
	students.POST("/:id/adjustments", studentHandler.Adjust)
	students.GET("/:id/statement", studentHandler.Statement)
	students.POST("/:id/report", studentHandler.Report)

	sessions := secured.Group("/sessions")
	sessions.GET("", sessionHandler.List)
	sessions.POST("", sessionHandler.Create)
	sessions.POST("/lesson-plan", sessionHandler.LessonPlan)
	sessions.GET("/:id", sessionHandler.Get)
	sessions.PUT("/:id", sessionHandler.Update)
	sessions.DELETE("/:id", sessionHandler.Delete)

	secured.GET("/payments", paymentHandler.List)

	secured.GET("/dashboard", dashboardHandler.Dashboard)
	secured.PUT("/dashboard/offset", dashboardHandler.SetOffset)
	secured.GET("/calendar", dashboardHandler.Calendar)
	secured.GET("/ledger/reconcile", dashboardHandler.Reconcile)

	return r
}
