package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/noah-isme/enrollment-api/api/swagger"
	"github.com/noah-isme/enrollment-api/internal/handler"
	"github.com/noah-isme/enrollment-api/internal/repository"
	"github.com/noah-isme/enrollment-api/internal/server"
	"github.com/noah-isme/enrollment-api/internal/service"
	"github.com/noah-isme/enrollment-api/pkg/cache"
	"github.com/noah-isme/enrollment-api/pkg/clock"
	"github.com/noah-isme/enrollment-api/pkg/config"
	"github.com/noah-isme/enrollment-api/pkg/database"
	"github.com/noah-isme/enrollment-api/pkg/logger"
	"github.com/noah-isme/enrollment-api/pkg/ratelimit"
)

// @title Enrollment API
// @version 1.0.0
// @description Student registration and course enrollment
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk, err := clock.New(cfg.Timezone)
	if err != nil {
		logr.Fatal("invalid time zone", zap.Error(err))
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, cfg.Database.Driver); err != nil {
			logr.Fatal("failed to apply schema", zap.Error(err))
		}
		logr.Info("schema applied", zap.String("driver", cfg.Database.Driver))
	}

	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}

	var observer repository.CommitObserver
	if metrics != nil {
		observer = metrics
	}
	store := repository.NewProvider(db, logr, observer)

	issuer := service.NewJWTIssuer(service.TokenConfig{
		Secret:   cfg.JWT.Secret,
		Expiry:   cfg.JWT.Expiration,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	}, clk)
	authSvc := service.NewAuthService(store, issuer, service.NewBcryptHasher(0), clk, service.NewValidator(), logr)
	courseSvc := service.NewCourseService(store, logr)
	exportSvc := service.NewExportService(courseSvc, clk, logr, nil, nil)
	enrollmentSvc := service.NewEnrollmentService(store, clk, metrics, logr, service.EnrollmentConfig{MaxActive: cfg.Enrollment.MaxActive})

	router := server.NewRouter(server.Dependencies{
		Config:       cfg,
		Logger:       logr,
		Metrics:      metrics,
		Tokens:       authSvc,
		LoginLimiter: loginLimiter(ctx, cfg, logr),
		Auth:         handler.NewAuthHandler(authSvc),
		Courses:      handler.NewCourseHandler(courseSvc, exportSvc),
		Enrollments:  handler.NewEnrollmentHandler(enrollmentSvc),
		Probes:       handler.NewMetricsHandler(metrics, db, logr),
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := server.Run(ctx, addr, router, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

// loginLimiter prefers Redis so replicas share counters and falls back to
// process memory when Redis is unreachable.
func loginLimiter(ctx context.Context, cfg *config.Config, logr *zap.Logger) ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	client, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, login throttling is per instance", zap.Error(err))
		return ratelimit.NewMemoryLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Window)
	}
	return ratelimit.NewRedisLimiter(client, cfg.RateLimit.Limit, cfg.RateLimit.Window, "enrollment")
}
