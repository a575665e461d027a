package router

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jwalitptl/carebook/internal/handler/appointment"
	"github.com/jwalitptl/carebook/internal/handler/auth"
	"github.com/jwalitptl/carebook/internal/handler/health"
	"github.com/jwalitptl/carebook/internal/handler/notification"
	"github.com/jwalitptl/carebook/internal/handler/provider"
	"github.com/jwalitptl/carebook/internal/handler/view"
	"github.com/jwalitptl/carebook/internal/middleware"
	"github.com/jwalitptl/carebook/internal/model"
)

// Handlers groups everything the router dispatches to.
type Handlers struct {
	Auth         *auth.Handler
	Appointment  *appointment.Handler
	Notification *notification.Handler
	Provider     *provider.Handler
	Health       *health.Handler
}

type Router struct {
	engine   *gin.Engine
	sessions *middleware.AuthMiddleware
	handlers Handlers
	limiter  *middleware.RateLimiter
	metrics  *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	errorTotal      *prometheus.CounterVec
}

type RouterConfig struct {
	RateLimit      middleware.RateLimiterConfig
	Secure         bool
	RequestTimeout time.Duration
	MetricsPrefix  string
	Registerer     prometheus.Registerer
}

func NewRouter(sessions *middleware.AuthMiddleware, handlers Handlers, config RouterConfig) *Router {
	if config.Registerer == nil {
		config.Registerer = prometheus.DefaultRegisterer
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 30 * time.Second
	}

	engine := gin.New()

	r := &Router{
		engine:   engine,
		sessions: sessions,
		handlers: handlers,
		limiter:  middleware.NewRateLimiter(config.RateLimit),
		metrics:  initRouterMetrics(config.MetricsPrefix, config.Registerer),
	}

	// Add core middlewares
	engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		r.metricsMiddleware(),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig(config.Secure)),
		middleware.SizeLimit(middleware.DefaultSizeLimitConfig()),
		middleware.Timeout(config.RequestTimeout),
		sessions.LoadSession(),
	)

	return r
}

func (r *Router) Setup() {
	static := r.engine.Group("/static")
	static.Use(middleware.Cache(middleware.StaticCacheConfig()))
	static.StaticFS("/", view.Static())

	r.handlers.Health.RegisterRoutes(&r.engine.RouterGroup)

	api := r.engine.Group("/api")
	api.Use(middleware.ErrorHandler())
	r.handlers.Provider.RegisterRoutes(api)

	r.setupPublicRoutes(&r.engine.RouterGroup)

	protected := r.engine.Group("")
	protected.Use(middleware.RequireLogin(), middleware.NoStore())
	r.setupProtectedRoutes(protected)
}

func (r *Router) setupPublicRoutes(rg *gin.RouterGroup) {
	h := r.handlers.Auth
	throttled := r.limiter.RateLimit()

	rg.GET("/", h.Index)
	rg.GET("/register", h.RegisterForm)
	rg.POST("/register", throttled, h.Register)
	rg.GET("/login", h.LoginForm)
	rg.POST("/login", throttled, h.Login)
	rg.GET("/logout", h.Logout)
}

func (r *Router) setupProtectedRoutes(rg *gin.RouterGroup) {
	appt := r.handlers.Appointment
	notes := r.handlers.Notification

	book := rg.Group("/book")
	book.Use(middleware.RequireRole(model.RolePatient, "Only patients can book appointments"))
	{
		book.GET("", appt.BookForm)
		book.POST("", appt.Book)
	}

	patient := rg.Group("/patient")
	patient.Use(middleware.RequireRole(model.RolePatient, "Access denied"))
	{
		patient.GET("/dashboard", appt.PatientDashboard)
	}

	admin := rg.Group("/admin")
	admin.Use(middleware.RequireRole(model.RoleAdmin, "Permission denied"))
	{
		admin.GET("/dashboard", appt.AdminDashboard)
		admin.POST("/assign", appt.AssignTransport)
		admin.POST("/update_status", appt.UpdateStatus)
	}

	rg.POST("/appointment/message", notes.PostMessage)
	rg.POST("/notifications/mark_read", notes.MarkAllRead)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Metrics initialization and middleware
func initRouterMetrics(prefix string, reg prometheus.Registerer) *routerMetrics {
	if prefix == "" {
		prefix = "http"
	}
	f := promauto.With(reg)
	return &routerMetrics{
		requestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: prefix + "_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		errorTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_errors_total",
				Help: "Total number of HTTP errors",
			},
			[]string{"method", "path", "type"},
		),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := fmt.Sprintf("%d", c.Writer.Status())
		duration := time.Since(start).Seconds()

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()

		if c.Writer.Status() >= 400 {
			r.metrics.errorTotal.WithLabelValues(c.Request.Method, path, "http").Inc()
		}
	}
}
