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

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/aims-registration-api/api/swagger"
	"github.com/noah-isme/aims-registration-api/internal/handler"
	"github.com/noah-isme/aims-registration-api/internal/ledger"
	"github.com/noah-isme/aims-registration-api/internal/middleware"
	"github.com/noah-isme/aims-registration-api/internal/models"
	"github.com/noah-isme/aims-registration-api/internal/repository"
	"github.com/noah-isme/aims-registration-api/internal/seed"
	"github.com/noah-isme/aims-registration-api/internal/service"
	"github.com/noah-isme/aims-registration-api/pkg/cache"
	"github.com/noah-isme/aims-registration-api/pkg/config"
	"github.com/noah-isme/aims-registration-api/pkg/database"
	"github.com/noah-isme/aims-registration-api/pkg/jobs"
	"github.com/noah-isme/aims-registration-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/aims-registration-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/aims-registration-api/pkg/middleware/requestid"
	"github.com/noah-isme/aims-registration-api/pkg/storage"
)

// @title AIMS Course Registration API
// @version 1.0.0
// @description Course selection, credit limits and submission for the AIMS student portal
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

type seatCatalog interface {
	ledger.SeatCounter
	List(ctx context.Context) ([]models.CourseOffering, error)
}

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	catalog, err := seed.LoadCatalog()
	if err != nil {
		return err
	}
	roster, err := seed.LoadRoster()
	if err != nil {
		return err
	}
	deadline, err := ledger.ParseDeadline(cfg.Registration.Deadline)
	if err != nil {
		return fmt.Errorf("REGISTRATION_DEADLINE: %w", err)
	}
	rules, err := catalog.CreditRules(cfg.Registration.CreditMin, cfg.Registration.CreditMax)
	if err != nil {
		return fmt.Errorf("CREDIT_MIN/CREDIT_MAX: %w", err)
	}
	logr.Info("registration rules loaded", zap.Int("min_credits", rules.Min), zap.Int("max_credits", rules.Max), zap.Time("deadline", deadline))

	readiness := map[string]handler.ReadinessCheck{}

	var db *sqlx.DB
	if cfg.UsesPostgres() {
		db, err = database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		readiness["postgres"] = db.PingContext
	}

	var rdb *redis.Client
	if cfg.UsesRedis() {
		rdb, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		readiness["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	seats, err := buildSeatCatalog(ctx, cfg, catalog.Courses, db, rdb)
	if err != nil {
		return err
	}
	store := buildStore(cfg, db, rdb)

	users, err := repository.NewUserRepository(roster, 0)
	if err != nil {
		return err
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if rdb != nil {
		cacheRepo = repository.NewCacheRepository(rdb, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Catalog.CacheTTL, logr, cfg.Catalog.CacheEnabled)

	authSvc := service.NewAuthService(users, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "aims-registration-api",
	})
	catalogSvc := service.NewCatalogService(seats, cacheSvc, cfg.Catalog.CacheTTL, logr)

	var registrationSvc *service.RegistrationService
	retryQueue := jobs.NewQueue("registration-flush", func(ctx context.Context, job jobs.Job) error {
		return registrationSvc.HandlePersistRetry(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Persistence.RetryWorkers,
		BufferSize: cfg.Persistence.QueueSize,
		MaxRetries: cfg.Persistence.RetryAttempts,
		RetryDelay: cfg.Persistence.RetryDelay,
		Logger:     logr,
		OnExhausted: func(job jobs.Job, err error) {
			registrationSvc.PersistRetryExhausted(job, err)
		},
	})
	registrationSvc = service.NewRegistrationService(seats, store, users, catalogSvc, retryQueue, metricsSvc, validate, logr, service.RegistrationConfig{
		Rules:    rules,
		Deadline: deadline,
	})
	retryQueue.Start(ctx)
	defer retryQueue.Stop()

	slipStore, err := storage.NewLocalStorage(cfg.Slips.StorageDir)
	if err != nil {
		return err
	}
	slipSecret := cfg.Slips.SignedURLSecret
	if slipSecret == "" {
		slipSecret = cfg.JWT.Secret
	}
	slipSvc := service.NewSlipService(registrationSvc, slipStore, storage.NewSignedURLSigner(slipSecret, cfg.Slips.SignedURLTTL), service.SlipConfig{APIPrefix: cfg.APIPrefix}, logr)
	slipSvc.StartCleanup(ctx, cfg.Slips.CleanupInterval)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metricsSvc, registrationSvc, readiness)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.Routes{
		Auth:         handler.NewAuthHandler(authSvc),
		Catalog:      handler.NewCatalogHandler(catalogSvc, validate),
		Registration: handler.NewRegistrationHandler(registrationSvc),
		Slips:        handler.NewSlipHandler(slipSvc),
		Metrics:      metricsHandler,
	}.Register(r.Group(cfg.APIPrefix), middleware.JWT(authSvc), logr.Named("audit"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Env),
			zap.String("store_backend", cfg.Registration.StoreBackend),
			zap.String("seat_backend", cfg.Registration.SeatBackend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func buildSeatCatalog(ctx context.Context, cfg *config.Config, courses []models.CourseOffering, db *sqlx.DB, rdb *redis.Client) (seatCatalog, error) {
	switch cfg.Registration.SeatBackend {
	case config.BackendPostgres:
		repo := repository.NewCourseRepository(db)
		if err := repo.Seed(ctx, courses); err != nil {
			return nil, err
		}
		return repo, nil
	case config.BackendRedis:
		counter := repository.NewRedisCatalog(rdb, courses)
		if err := counter.Seed(ctx); err != nil {
			return nil, err
		}
		return counter, nil
	default:
		return repository.NewMemoryCatalog(courses), nil
	}
}

func buildStore(cfg *config.Config, db *sqlx.DB, rdb *redis.Client) ledger.Store {
	switch cfg.Registration.StoreBackend {
	case config.BackendPostgres:
		return repository.NewRegistrationStoreRepository(db)
	case config.BackendRedis:
		return repository.NewRedisStore(rdb)
	default:
		return repository.NewMemoryStore()
	}
}
