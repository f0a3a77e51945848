package router

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

// Module builds the gin engine and logs the routes it serves.
var Module = fx.Options(
	fx.Provide(Setup),
	fx.Invoke(logRoutes),
)

func logRoutes(engine *gin.Engine, logger *slog.Logger) {
	for _, route := range engine.Routes() {
		logger.Debug("route registered", "method", route.Method, "path", route.Path)
	}
}
