// Package router assembles the gin engine, its middleware chain and routes.
package router

import (
	"net/http"

	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/erp/fulfillment/internal/interfaces/http/handler"
	"github.com/erp/fulfillment/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
	health     *handler.HealthHandler
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// WithHealth mounts /health and /health/live
func WithHealth(h *handler.HealthHandler) RouterOption {
	return func(r *Router) {
		r.health = h
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	if r.health != nil {
		r.engine.GET("/health", r.health.Ready)
		r.engine.GET("/health/live", r.health.Live)
	}

	api := r.engine.Group("/api/" + r.apiVersion)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(dto.ErrCodeRouteNotFound, "Route not found", middleware.GetRequestID(c)))
	})
}

// EngineConfig selects the middleware installed by NewEngine
type EngineConfig struct {
	ServiceName    string
	Mode           string
	TracingEnabled bool
	MaxBodyBytes   int64
	Metrics        *middleware.HTTPMetrics
}

// NewEngine builds a gin engine with the standard middleware chain:
// recovery, request id, tracing, access log, metrics, body limit.
func NewEngine(cfg EngineConfig, log *zap.Logger) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	engine.Use(middleware.Recovery(log), middleware.RequestID())
	engine.Use(middleware.Tracing(cfg.ServiceName, cfg.TracingEnabled)...)
	engine.Use(logger.GinMiddleware(log))
	if cfg.Metrics != nil {
		engine.Use(cfg.Metrics.Middleware())
	}
	engine.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	return engine
}
