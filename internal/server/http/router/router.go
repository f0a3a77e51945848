package router

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/polkiloo/refundstatus/internal/server/http/handlers"
	"github.com/polkiloo/refundstatus/internal/server/http/middleware"
)

// HealthChecker reports whether backing storage is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Params lists router dependencies.
type Params struct {
	fx.In

	Facade  handlers.PortalFacade
	Health  HealthChecker
	Metrics http.Handler `name:"metrics"`
	Logger  *slog.Logger
}

// Setup configures gin router with handlers and middleware.
func Setup(p Params) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.RequestLogger(p.Logger))
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	authHandler := handlers.NewAuthHandler(p.Facade)
	refundHandler := handlers.NewRefundHandler(p.Facade, p.Logger)
	assistantHandler := handlers.NewAssistantHandler(p.Facade, p.Logger)

	engine.GET("/healthz", healthz(p.Health))
	engine.GET("/metrics", gin.WrapH(p.Metrics))

	api := engine.Group("/api")
	user := api.Group("/user")
	user.POST("/register", authHandler.Register)
	user.POST("/login", authHandler.Login)
	user.POST("/logout", authHandler.Logout)
	user.POST("/refresh", middleware.AuthRequired(p.Facade), authHandler.Renew)

	refund := api.Group("/refund")
	refund.GET("/lifecycle", refundHandler.Lifecycle)

	refundAuth := refund.Group("")
	refundAuth.Use(middleware.AuthRequired(p.Facade))
	refundAuth.GET("/latest", refundHandler.Latest)
	refundAuth.POST("/simulate", refundHandler.Simulate)
	refundAuth.GET("/audit", refundHandler.History)

	api.POST("/assistant/chat", middleware.AuthRequired(p.Facade), assistantHandler.Chat)

	return engine
}

func healthz(checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := checker.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
