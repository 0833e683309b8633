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

	_ "github.com/noah-isme/campus-gradebook-api/api/swagger"
	"github.com/noah-isme/campus-gradebook-api/internal/classroom"
	"github.com/noah-isme/campus-gradebook-api/internal/gradebook"
	"github.com/noah-isme/campus-gradebook-api/internal/handler"
	"github.com/noah-isme/campus-gradebook-api/internal/middleware"
	"github.com/noah-isme/campus-gradebook-api/internal/models"
	"github.com/noah-isme/campus-gradebook-api/internal/repository"
	"github.com/noah-isme/campus-gradebook-api/internal/service"
	"github.com/noah-isme/campus-gradebook-api/pkg/cache"
	"github.com/noah-isme/campus-gradebook-api/pkg/config"
	"github.com/noah-isme/campus-gradebook-api/pkg/database"
	"github.com/noah-isme/campus-gradebook-api/pkg/jobs"
	"github.com/noah-isme/campus-gradebook-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-gradebook-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-gradebook-api/pkg/middleware/requestid"
)

// @title Campus Gradebook API
// @version 1.0.0
// @description Gradebook, curriculum archive and Google Classroom import API
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, gradebook cache and preferences disabled", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	app := buildApp(cfg, db, redisClient, logr)
	app.activity.Start(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	app.activity.Stop()
}

type app struct {
	router   *gin.Engine
	activity *service.ActivityService
}

func buildApp(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) *app {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	validate := validator.New()

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	var (
		cacheRepo service.CacheRepository
		prefKV    gradebook.PreferenceKV
	)
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient)
		prefKV = repository.NewPreferenceRepository(redisClient)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Gradebook.CacheTTL, logr, cfg.Gradebook.CacheEnabled)

	accounts := repository.NewAccountRepository(db)
	classes := repository.NewClassRepository(db)
	components := repository.NewGradeComponentRepository(db)
	entries := repository.NewGradeEntryRepository(db)
	students := repository.NewStudentRepository(db)
	archives := repository.NewArchiveRepository(db)

	activitySvc := service.NewActivityService(repository.NewActivityRepository(db), classes, jobs.QueueConfig{
		Workers:    cfg.Activity.Workers,
		BufferSize: cfg.Activity.BufferSize,
		MaxRetries: cfg.Activity.MaxRetries,
		RetryDelay: cfg.Activity.RetryDelay,
	}, logr.Named("activity"))

	classroomClient := classroom.NewClient(classroom.Config{
		Endpoint: cfg.Classroom.Endpoint,
		Timeout:  cfg.Classroom.RequestTimeout,
		Logger:   logr.Named("classroom"),
	})

	authSvc := service.NewAuthService(service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})
	entrySvc := service.NewGradeEntryService(entries, classes, components, students, cacheSvc, activitySvc, validate, logr)
	componentSvc := service.NewGradeComponentService(components, entries, cacheSvc, activitySvc, validate, logr)
	gradebookSvc := service.NewGradebookService(classes, components, entries, students, cacheSvc, gradebook.NewPreferenceStore(prefKV, logr), metricsSvc, validate, logr)
	syncSvc := service.NewSyncService(classroomClient, classes, components, students, entries, cacheSvc, activitySvc, metricsSvc,
		service.SyncServiceConfig{DefaultMaxPoints: cfg.Classroom.DefaultMaxPoints}, validate, logr)
	archiveSvc := service.NewArchiveService(archives, cacheSvc, activitySvc, validate, logr)
	profileSvc := service.NewProfileService(students, accounts, validate, logr)

	checks := map[string]handler.ReadinessCheck{"postgres": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins, middleware.ClassroomTokenHeader))
	r.Use(middleware.Metrics(metricsSvc))

	registerRoutes(r, cfg, routes{
		auth:       authSvc,
		metrics:    handler.NewMetricsHandler(metricsSvc, checks),
		archive:    handler.NewArchiveHandler(archiveSvc),
		entries:    handler.NewGradeEntryHandler(entrySvc),
		components: handler.NewGradeComponentHandler(componentSvc),
		gradebook:  handler.NewGradebookHandler(gradebookSvc, activitySvc),
		sync:       handler.NewSyncHandler(syncSvc),
		profile:    handler.NewProfileHandler(profileSvc),
	})

	return &app{router: r, activity: activitySvc}
}

type routes struct {
	auth       *service.AuthService
	metrics    *handler.MetricsHandler
	archive    *handler.ArchiveHandler
	entries    *handler.GradeEntryHandler
	components *handler.GradeComponentHandler
	gradebook  *handler.GradebookHandler
	sync       *handler.SyncHandler
	profile    *handler.ProfileHandler
}

func registerRoutes(r *gin.Engine, cfg *config.Config, h routes) {
	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", h.metrics.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix, middleware.JWT(h.auth))
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleProfessor)
	admin := middleware.RequireRoles(models.RoleAdmin)
	student := middleware.RequireRoles(models.RoleStudent)

	archive := api.Group("/archive", admin)
	archive.GET("", h.archive.List)
	archive.POST("", h.archive.Apply)
	archive.GET("/relationships", h.archive.Relationships)

	classes := api.Group("/classes/:id", staff)
	classes.GET("/grade-entries", h.entries.List)
	classes.GET("/gradebook", middleware.WithResponseMeta(), h.gradebook.Summary)
	classes.GET("/gradebook/export", h.gradebook.Export)
	classes.GET("/preferences", h.gradebook.Preferences)
	classes.PUT("/preferences", h.gradebook.SavePreferences)
	classes.GET("/activity", h.gradebook.Activity)

	entries := api.Group("/grade-entries", staff)
	entries.POST("", h.entries.Create)
	entries.PUT("", h.entries.UpdateHeader)
	entries.DELETE("", h.entries.DeleteGroup)
	entries.PUT("/batch", h.entries.SaveBatch)
	entries.PUT("/:id/score", h.entries.UpdateScore)
	entries.PUT("/:id/attendance", h.entries.UpdateAttendance)

	external := api.Group("", staff, middleware.ClassroomToken())
	external.GET("/sync-students", h.sync.Students)
	external.POST("/sync-scores", h.sync.Scores)
	external.GET("/classroom/courses", h.sync.Courses)
	external.GET("/classroom/courses/:courseId/coursework", h.sync.Coursework)

	api.GET("/departments/:id/grade-components", staff, h.components.List)
	api.PUT("/departments/:id/grade-components", admin, h.components.Replace)
	api.POST("/departments/:id/grade-components", admin, h.components.Create)
	api.PUT("/grade-components/:id", admin, h.components.Update)
	api.DELETE("/grade-components/:id", admin, h.components.Delete)

	api.GET("/student/grades", student, h.gradebook.StudentGrades)
	api.GET("/profile/privacy", student, h.profile.Privacy)
	api.PUT("/profile/privacy", student, h.profile.UpdatePrivacy)
	api.PUT("/profile/password", h.profile.ChangePassword)
}
