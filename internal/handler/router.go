package handler

import (
	"context"
	"net/http"
	"time"

	"propsearch/internal/metrics"
	"propsearch/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// BuildInfo identifies the running binary
type BuildInfo struct {
	Version   string
	BuildTime string
	GitCommit string
}

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// RouterConfig holds everything NewRouter wires together
type RouterConfig struct {
	SearchService  *service.SearchService
	HistoryLimit   int
	Metrics        *metrics.Metrics
	Logger         zerolog.Logger
	Build          BuildInfo
	HealthChecks   map[string]HealthCheck
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// NewRouter builds the HTTP router
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID(cfg.Logger))
	router.Use(AccessLog())
	router.Use(Metrics(cfg.Metrics))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = []string{"*"}
	}
	if len(cfg.AllowedMethods) > 0 {
		corsConfig.AllowMethods = cfg.AllowedMethods
	}
	if len(cfg.AllowedHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.AllowedHeaders
	}
	corsConfig.ExposeHeaders = []string{HeaderRequestID}
	router.Use(cors.New(corsConfig))

	router.GET("/health", health(cfg.HealthChecks, cfg.Build))
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    cfg.Build.Version,
			"build_time": cfg.Build.BuildTime,
			"git_commit": cfg.Build.GitCommit,
		})
	})
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	searchHandler := NewSearchHandler(cfg.SearchService)
	historyHandler := NewHistoryHandler(cfg.SearchService, cfg.HistoryLimit)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.GET("/search", searchHandler.Search)
		apiV1.POST("/search", searchHandler.Search)
		apiV1.GET("/listings/:variant/:id", searchHandler.GetListing)
		apiV1.GET("/history", historyHandler.List)
	}

	return router
}

func health(checks map[string]HealthCheck, build BuildInfo) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				deps[name] = err.Error()
				continue
			}
			deps[name] = "ok"
		}

		state := "healthy"
		if status != http.StatusOK {
			state = "degraded"
		}
		c.JSON(status, gin.H{
			"status":       state,
			"service":      "propsearch",
			"version":      build.Version,
			"dependencies": deps,
		})
	}
}
