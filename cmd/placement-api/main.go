package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/placement-engine/api/swagger"
	"github.com/noah-isme/placement-engine/internal/handler"
	internalmiddleware "github.com/noah-isme/placement-engine/internal/middleware"
	"github.com/noah-isme/placement-engine/internal/models"
	"github.com/noah-isme/placement-engine/internal/repository"
	"github.com/noah-isme/placement-engine/internal/service"
	"github.com/noah-isme/placement-engine/pkg/cache"
	"github.com/noah-isme/placement-engine/pkg/config"
	"github.com/noah-isme/placement-engine/pkg/database"
	"github.com/noah-isme/placement-engine/pkg/jobs"
	"github.com/noah-isme/placement-engine/pkg/logger"
	corsmiddleware "github.com/noah-isme/placement-engine/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/placement-engine/pkg/middleware/requestid"
	"github.com/noah-isme/placement-engine/pkg/notify"
	"github.com/noah-isme/placement-engine/pkg/storage"
)

// @title Placement Engine API
// @version 1.0.0
// @description Placement eligibility and application workflow engine
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx := context.Background()
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching and delivery ledger disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	app, err := buildApp(cfg, db, redisClient, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to wire application", "error", err)
	}
	defer app.queue.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	logr.Info("server stopped")
}

type application struct {
	router *gin.Engine
	queue  *jobs.Queue
}

func buildApp(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) (*application, error) {
	validate := validator.New()
	metrics := service.NewMetricsService()

	studentRepo := repository.NewStudentRepository(db)
	jobRepo := repository.NewJobRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	ledgerRepo := repository.NewDeliveryLedgerRepository(redisClient, cfg.Notifications.LedgerTTL)

	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)
	store, err := storage.NewLocalStorage(cfg.Storage.BaseDir, cfg.Storage.PublicBaseURL, signer)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Placement.ProjectionCacheTTL, logr, redisClient != nil)
	projectionSvc := service.NewProjectionService(studentRepo, jobRepo, cacheSvc, cfg.Placement.ProjectionCacheTTL, logr)
	evaluator := service.NewEligibilityEvaluator(cfg.Placement.LegacyThreshold)

	templates, err := service.NewTemplateSet(service.DefaultTemplates())
	if err != nil {
		return nil, fmt.Errorf("parse notification templates: %w", err)
	}
	offerSvc := service.NewOfferLetterService(nil, store, cfg.SMTP.FromName, logr)
	worker := service.NewNotificationWorker(
		studentRepo,
		ledgerRepo,
		notify.NewSMTPMailer(cfg.SMTP, logr),
		notify.NewWhatsAppClient(cfg.WhatsApp, logr),
		offerSvc,
		templates,
		service.NotificationChannels{Email: cfg.Notifications.EmailEnabled, WhatsApp: cfg.Notifications.WhatsAppEnabled},
		metrics,
		logr,
	)
	queue := jobs.NewQueue("notifications", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	})
	// Fan-out runs on its own context so request cancellation never reaches it.
	queue.Start(context.Background())

	var notifier *service.NotificationService
	if cfg.Notifications.Enabled {
		notifier = service.NewNotificationService(queue, metrics, logr)
	} else {
		logr.Info("notifications disabled")
	}

	jobSvc := service.NewJobService(jobRepo, studentRepo, evaluator, notifier, validate, logr)
	applicationSvc := service.NewApplicationService(studentRepo, jobRepo, applicationRepo, evaluator, projectionSvc, metrics, validate, logr)
	roundSvc := service.NewRoundService(jobRepo, studentRepo, notifier, projectionSvc, metrics, validate, logr)
	resumeSvc := service.NewResumeService(studentRepo, store, service.ResumeConfig{
		MaxFileSize:  cfg.Storage.MaxFileSizeBytes,
		AllowedMIMEs: cfg.Storage.AllowedMIMEs,
	}, logr)
	authSvc := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
	})

	jobHandler := handler.NewJobHandler(jobSvc, applicationSvc)
	applicationHandler := handler.NewApplicationHandler(applicationSvc)
	roundHandler := handler.NewRoundHandler(roundSvc)
	studentHandler := handler.NewStudentHandler(projectionSvc, applicationSvc, resumeSvc, cfg.Storage.MaxFileSizeBytes)
	fileHandler := handler.NewFileHandler(store)
	metricsHandler := handler.NewMetricsHandler(metrics, readinessChecks(db, redisClient))

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/files/:token", fileHandler.Download)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	admins := make([]models.UserType, 0, len(cfg.Placement.AdminUserTypes))
	for _, t := range cfg.Placement.AdminUserTypes {
		admins = append(admins, models.NormalizeUserType(t))
	}
	adminOnly := internalmiddleware.RequireUserTypes(admins...)
	adminOrSelf := internalmiddleware.AdminOrSelf(admins...)

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.Deadline(cfg.Placement.RequestTimeout))
	api.Use(internalmiddleware.WithResponseMeta())
	api.Use(internalmiddleware.JWT(authSvc))

	jobsGroup := api.Group("/jobs")
	jobsGroup.POST("", adminOnly, jobHandler.Create)
	jobsGroup.GET("/:jobId", adminOnly, jobHandler.Get)
	jobsGroup.GET("/:jobId/eligible-students", adminOnly, jobHandler.EligibleStudents)
	jobsGroup.GET("/:jobId/applicants", adminOnly, jobHandler.Applicants)
	jobsGroup.POST("/:jobId/shortlist", adminOnly, roundHandler.PublishShortlist)
	jobsGroup.POST("/:jobId/rounds/:label", adminOnly, roundHandler.RecordRound)
	jobsGroup.GET("/:jobId/students/:studentId/state", adminOnly, roundHandler.State)

	applyAllowed := append(append([]models.UserType{}, admins...), models.UserTypeStudent)
	api.POST("/applications", internalmiddleware.RequireUserTypes(applyAllowed...), applicationHandler.Apply)

	students := api.Group("/students/:id")
	students.Use(adminOrSelf)
	students.GET("/placement", studentHandler.Placement)
	students.GET("/jobs/:jobId", studentHandler.JobProjection)
	students.GET("/applied-jobs", studentHandler.AppliedJobs)
	students.PUT("/resume", studentHandler.UploadResume)

	return &application{router: r, queue: queue}, nil
}

func readinessChecks(db *sqlx.DB, redisClient *redis.Client) map[string]handler.Pinger {
	checks := map[string]handler.Pinger{
		"postgres": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
}
