package server

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-api/internal/handler"
	"github.com/noah-isme/enrollment-api/internal/middleware"
	"github.com/noah-isme/enrollment-api/internal/service"
	"github.com/noah-isme/enrollment-api/pkg/config"
	"github.com/noah-isme/enrollment-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/enrollment-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/enrollment-api/pkg/middleware/requestid"
	"github.com/noah-isme/enrollment-api/pkg/ratelimit"
)

// Dependencies carries everything the router mounts.
type Dependencies struct {
	Config       *config.Config
	Logger       *zap.Logger
	Metrics      *service.MetricsService
	Tokens       middleware.TokenValidator
	LoginLimiter ratelimit.Limiter

	Auth        *handler.AuthHandler
	Courses     *handler.CourseHandler
	Enrollments *handler.EnrollmentHandler
	Probes      *handler.MetricsHandler
}

// NewRouter builds the gin engine with middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(log))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if cfg.Metrics.Enabled && deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
		r.GET("/metrics", deps.Probes.Prometheus)
	}

	r.GET("/health", deps.Probes.Health)
	r.GET("/ready", deps.Probes.Ready)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", deps.Auth.Register)
	auth.POST("/login", middleware.LoginThrottle(deps.LoginLimiter, deps.Metrics, log), deps.Auth.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.Tokens))
	secured.GET("/courses", deps.Courses.List)
	secured.GET("/courses/mine", deps.Courses.Mine)
	secured.GET("/courses/mine/export", deps.Courses.Export)
	secured.POST("/enrollments", deps.Enrollments.Enroll)
	secured.DELETE("/enrollments/:courseId", deps.Enrollments.Cancel)

	return r
}
