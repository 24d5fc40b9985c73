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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/study-planner-api/api/swagger"
	"github.com/noah-isme/study-planner-api/internal/handler"
	internalmiddleware "github.com/noah-isme/study-planner-api/internal/middleware"
	"github.com/noah-isme/study-planner-api/internal/planner"
	"github.com/noah-isme/study-planner-api/internal/proposal"
	"github.com/noah-isme/study-planner-api/internal/repository"
	"github.com/noah-isme/study-planner-api/internal/service"
	"github.com/noah-isme/study-planner-api/pkg/cache"
	"github.com/noah-isme/study-planner-api/pkg/config"
	"github.com/noah-isme/study-planner-api/pkg/database"
	"github.com/noah-isme/study-planner-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/study-planner-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/study-planner-api/pkg/middleware/requestid"
)

// @title Study Planner API
// @version 1.0.0
// @description Study schedule allocation for the study assistant
// @BasePath /api/v1
// @schemes http
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		logr.Fatal("failed to apply schema", zap.Error(err))
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	}

	metricsSvc := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Planner.CacheTTL, logr, redisClient != nil)

	var proposals proposal.Source = proposal.Disabled{}
	if cfg.Planner.AIEnabled && cfg.Gemini.APIKey != "" {
		gemini, gemErr := proposal.NewGemini(ctx, proposal.GeminiConfig{
			APIKey:  cfg.Gemini.APIKey,
			Model:   cfg.Gemini.Model,
			Timeout: cfg.Planner.AITimeout,
		}, logr)
		if gemErr != nil {
			logr.Warn("gemini unavailable, proposals disabled", zap.Error(gemErr))
		} else {
			defer gemini.Close() //nolint:errcheck
			proposals = gemini
		}
	} else if cfg.Planner.AIEnabled {
		logr.Warn("PLANNER_AI_ENABLED is set but GEMINI_API_KEY is empty, proposals disabled")
	}

	allocator := planner.NewAllocator(planner.ParseMergePolicy(cfg.Planner.MergePolicy))
	studySvc := service.NewStudyScheduleService(
		repository.NewStudyScheduleRepository(db),
		repository.NewStudySessionRepository(db),
		db,
		allocator,
		proposals,
		cacheSvc,
		metricsSvc,
		validator.New(),
		logr,
		service.StudyScheduleConfig{
			AIEnabled:    cfg.Planner.AIEnabled,
			MaxRangeDays: cfg.Planner.MaxRangeDays,
			MaxTopics:    cfg.Planner.MaxTopics,
			CacheTTL:     cfg.Planner.CacheTTL,
		},
	)
	tokens := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})

	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = cache.Probe{Client: redisClient}
	}
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)
	studyHandler := handler.NewStudyScheduleHandler(studySvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix, internalmiddleware.JWT(tokens))
	api.GET("/metrics/summary", metricsHandler.Snapshot)

	schedules := api.Group("/study-schedules")
	schedules.POST("", internalmiddleware.Audit(logr, "study_schedule.create"), studyHandler.Create)
	schedules.POST("/preview", studyHandler.Preview)
	schedules.GET("", studyHandler.List)
	schedules.GET("/:id", studyHandler.Get)
	schedules.GET("/:id/stats", studyHandler.Stats)
	schedules.GET("/:id/export", studyHandler.Export)
	schedules.PATCH("/:id/sessions/:sessionId", internalmiddleware.Audit(logr, "study_session.update"), studyHandler.UpdateSession)
	schedules.DELETE("/:id", internalmiddleware.Audit(logr, "study_schedule.delete"), studyHandler.Delete)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "merge_policy", allocator.Policy(), "ai", proposals.Enabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
