package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/patient-portal/internal/handler"
	"github.com/jwalitptl/patient-portal/internal/middleware"
	"github.com/jwalitptl/patient-portal/internal/session"
	"github.com/jwalitptl/patient-portal/pkg/metrics"
)

// Logouter mounts the logout route, which bypasses the guard.
type Logouter interface {
	RegisterLogout(gin.IRoutes)
}

type Router struct {
	engine   *gin.Engine
	sessions *session.Manager
	metrics  *metrics.Metrics
	ops      []handler.RouteRegistrar
	portal   []handler.RouteRegistrar
	logout   Logouter
	config   RouterConfig
}

type RouterConfig struct {
	RateLimit      rate.Limit
	RateBurst      int
	AllowedOrigins []string
	// Timeout bounds portal requests; zero leaves them unbounded.
	Timeout     time.Duration
	MaxBodySize int64
	TLS         bool
	Release     bool
}

// NewRouter builds the engine. ops handlers (health, metrics) are mounted
// without the guard; portal handlers sit behind it.
func NewRouter(
	sessions *session.Manager,
	m *metrics.Metrics,
	logout Logouter,
	ops []handler.RouteRegistrar,
	portal []handler.RouteRegistrar,
	config RouterConfig,
) *Router {
	if config.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = middleware.DefaultMaxBodySize
	}
	if m == nil {
		m = metrics.NewNop()
	}

	engine := gin.New()

	r := &Router{
		engine:   engine,
		sessions: sessions,
		metrics:  m,
		ops:      ops,
		portal:   portal,
		logout:   logout,
		config:   config,
	}

	// Add core middlewares
	engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		middleware.ErrorHandler(),
		middleware.Metrics(m),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig(config.TLS)),
	)

	if len(config.AllowedOrigins) > 0 {
		engine.Use(middleware.CORS(config.AllowedOrigins))
	}

	return r
}

func (r *Router) Setup() {
	root := r.engine.Group("")
	for _, h := range r.ops {
		h.RegisterRoutes(root)
	}

	portal := r.engine.Group("")
	if r.config.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  r.config.RateLimit,
			Burst: r.config.RateBurst,
		})
		portal.Use(limiter.RateLimit())
	}
	portal.Use(
		middleware.BodyLimit(r.config.MaxBodySize),
		middleware.Timeout(r.config.Timeout, middleware.PathAdminEvents),
	)

	if r.logout != nil {
		r.logout.RegisterLogout(portal)
	}

	guarded := portal.Group("")
	guarded.Use(middleware.Guard(r.sessions))
	for _, h := range r.portal {
		h.RegisterRoutes(guarded)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
