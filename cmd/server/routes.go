package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/weilintsai/tutorbot-go/internal/buildinfo"
	"github.com/weilintsai/tutorbot-go/internal/config"
	"github.com/weilintsai/tutorbot-go/internal/conversation"
	"github.com/weilintsai/tutorbot-go/internal/storage"
	"github.com/weilintsai/tutorbot-go/internal/task"
	"github.com/weilintsai/tutorbot-go/internal/webhook"
)

// setupRoutes configures all HTTP routes
func setupRoutes(router *gin.Engine, webhookHandler *webhook.Handler, db *storage.DB, registry *prometheus.Registry, trigger *task.Trigger, conv *conversation.Manager, cfg *config.Config) {
	// Root endpoint - redirect to the project page
	rootHandler := func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "https://github.com/weilintsai/tutorbot-go")
	}
	router.GET("/", rootHandler)
	router.HEAD("/", rootHandler)

	// Liveness probe - checks if the process is alive. Never checks
	// dependencies.
	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": buildinfo.Version,
		})
	}
	router.GET("/healthz", healthHandler)
	router.HEAD("/healthz", healthHandler)

	// Readiness probe - checks the database and reports stored state.
	readyHandler := func(c *gin.Context) {
		if err := db.Ready(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"reason": err.Error(),
			})
			return
		}

		contextCount, _ := db.CountContexts(c.Request.Context())
		pendingReviews, shippedReviews, _ := db.CountReviews(c.Request.Context())

		c.JSON(http.StatusOK, gin.H{
			"status":   "ready",
			"database": "connected",
			"contexts": gin.H{
				"active": conv.ActiveUsers(),
				"stored": contextCount,
			},
			"reviews": gin.H{
				"pending": pendingReviews,
				"shipped": shippedReviews,
			},
		})
	}
	router.GET("/ready", readyHandler)
	router.HEAD("/ready", readyHandler)

	// LINE webhook callback endpoint
	router.POST("/callback", webhookHandler.Handle)

	// Task execution stats for operators.
	router.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, trigger.Stats().Summary())
	})

	// Prometheus metrics endpoint, behind basic auth when configured.
	metricsHandler := gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	if cfg.MetricsAuth.Enabled {
		authorized := router.Group("/", gin.BasicAuth(gin.Accounts{
			cfg.MetricsAuth.Username: cfg.MetricsAuth.Password,
		}))
		authorized.GET("/metrics", metricsHandler)
	} else {
		router.GET("/metrics", metricsHandler)
	}
}
