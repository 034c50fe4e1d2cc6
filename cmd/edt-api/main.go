package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/edt-planner/edt-api/api/swagger"
	"github.com/edt-planner/edt-api/internal/handler"
	"github.com/edt-planner/edt-api/internal/middleware"
	"github.com/edt-planner/edt-api/internal/planner"
	"github.com/edt-planner/edt-api/internal/repository"
	"github.com/edt-planner/edt-api/internal/service"
	"github.com/edt-planner/edt-api/pkg/cache"
	"github.com/edt-planner/edt-api/pkg/config"
	"github.com/edt-planner/edt-api/pkg/database"
	"github.com/edt-planner/edt-api/pkg/jobs"
	"github.com/edt-planner/edt-api/pkg/logger"
	corsmiddleware "github.com/edt-planner/edt-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edt-planner/edt-api/pkg/middleware/requestid"
)

// @title EDT Planner API
// @version 1.0.0
// @description Automatic timetable generation for university departments
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Redis only backs the listing cache; the API stays usable without it.
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	courseRepo := repository.NewCourseRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	classRepo := repository.NewClassGroupRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	calendarRepo := repository.NewCalendarRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	logRepo := repository.NewScheduleLogRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	metrics := service.NewMetricsService()
	trackers := planner.NewRegistry()

	var generationSvc *service.GenerationService
	queue := jobs.NewQueue("generation", func(ctx context.Context, job jobs.Job) error {
		return generationSvc.HandleJob(ctx, job)
	}, jobs.QueueConfig{Workers: 1, BufferSize: 16, Logger: logr})

	generationSvc = service.NewGenerationService(
		courseRepo, teacherRepo, classRepo, roomRepo, calendarRepo,
		sessionRepo, logRepo, db, queue, cacheRepo, trackers, metrics, logr,
		service.GenerationServiceConfig{
			APIPrefix:          cfg.APIPrefix,
			SoftTimeout:        cfg.Planner.SoftTimeout,
			DefaultWindowWeeks: cfg.Planner.DefaultWindowWeeks,
			RelocationEnabled:  cfg.Planner.RelocationEnabled,
		})

	sessionSvc := service.NewSessionService(sessionRepo, cacheRepo, metrics, logr,
		service.SessionServiceConfig{
			CacheTTL:       cfg.Sessions.CacheTTL,
			ExportsEnabled: cfg.Exports.Enabled,
		})

	generationHandler := handler.NewGenerationHandler(generationSvc)
	sessionHandler := handler.NewSessionHandler(sessionSvc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue.Start(ctx)
	defer queue.Stop()

	go purgeSnapshots(ctx, generationSvc, cfg.Jobs.SnapshotTTL)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/generate", generationHandler.Generate)
		api.GET("/generate/:id/status", generationHandler.Status)
		api.POST("/generate/:id/cancel", generationHandler.Cancel)
		api.GET("/generate/:id/result", generationHandler.Result)

		api.GET("/sessions", sessionHandler.List)
		api.GET("/sessions/export", sessionHandler.Export)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}

// purgeSnapshots periodically drops finished job trackers so status polling
// does not grow without bound.
func purgeSnapshots(ctx context.Context, svc *service.GenerationService, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.PurgeSnapshots(ttl)
		}
	}
}
