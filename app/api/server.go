package api

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

type ServerOptions struct {
	SessionSecret  string
	RequireSession bool
	Debug          bool
}

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, opts ServerOptions) *gin.Engine {
	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health", "/metrics"},
	}))

	r.Use(gin.Recovery())
	r.Use(metricsMiddleware())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Usage-Token")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, opts)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, opts ServerOptions) {
	r.GET("/health", handler.GetHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/feeds/:product/rss", handler.GetFeedRSS)

	session := sessionMiddleware(opts.RequireSession)
	authLimiter := NewRateLimiter(rate.Every(12*time.Second), 5)

	api := r.Group("/api")
	api.Use(identityMiddleware(opts.SessionSecret))
	{
		api.GET("/updates", session, handler.visitMiddleware(), handler.GetUpdates)
		api.GET("/updates/search", session, handler.SearchUpdates)
		api.GET("/products", handler.GetProducts)

		api.POST("/usage/auth", authLimiter.Middleware(), handler.UsageAuth)
		api.GET("/usage", usageGateMiddleware(handler.gate), handler.GetUsage)
	}

	if opts.RequireSession {
		slog.Info("Update endpoints require a session")
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service":     "Eyes on Docs",
			"description": "AI summarised documentation updates per product and language",
			"endpoints": map[string]string{
				"updates":  "/api/updates?product=&language=&page=&updateType=single|weekly",
				"search":   "/api/updates/search?keyword=&product=&language=",
				"products": "/api/products",
				"usage":    "/api/usage (requires X-Usage-Token from POST /api/usage/auth)",
				"rss":      "/feeds/<product>/rss?language=&updateType=",
				"health":   "/health",
				"metrics":  "/metrics",
			},
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}
