package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jobjeeves/internal/analyses"
	"jobjeeves/internal/services/health"
	"jobjeeves/internal/shared/config"
	"jobjeeves/internal/shared/metrics"
	"jobjeeves/internal/shared/ratelimit"
	"jobjeeves/internal/shared/server/middleware"
	"jobjeeves/internal/shared/server/respond"
)

// Rate-limit groups.
const (
	GroupAnalyze = "ANALYZE"
	GroupLookup  = "LOOKUP"
	GroupOpen    = "OPEN"
)

// lookupMultiplier scales the analyze budget for cheap record lookups.
const lookupMultiplier = 5

// RouterDeps holds what the router needs to register routes.
type RouterDeps struct {
	Config          config.Config
	AnalysisHandler *analyses.Handler
	Health          *health.Service
	Limiter         ratelimit.Limiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.RateLimit(rateLimitConfig(deps)),
	)

	r.GET("/metrics", metrics.Handler())

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService(nil)
	}

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		respond.OK(c, healthSvc.Status())
	})
	api.GET("/ready", func(c *gin.Context) {
		payload, ready := healthSvc.Ready(c.Request.Context())
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, payload)
	})
	if deps.AnalysisHandler != nil {
		deps.AnalysisHandler.RegisterRoutes(api)
	}

	return r
}

func rateLimitConfig(deps RouterDeps) middleware.RateLimitConfig {
	analyze := ratelimit.Rule{Rate: deps.Config.RateLimitRPS, Burst: deps.Config.RateLimitBurst}
	lookup := ratelimit.Rule{Rate: analyze.Rate * lookupMultiplier, Burst: analyze.Burst * lookupMultiplier}
	return middleware.RateLimitConfig{
		Rules: map[string]ratelimit.Rule{
			GroupAnalyze: analyze,
			GroupLookup:  lookup,
		},
		DefaultGroup: GroupOpen,
		GroupFor:     groupFor,
		Limiter:      deps.Limiter,
	}
}

func groupFor(c *gin.Context) string {
	switch c.FullPath() {
	case "/api/analyze":
		return GroupAnalyze
	case "/api/analyses/:id":
		return GroupLookup
	default:
		return GroupOpen
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
