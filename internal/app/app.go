package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/polkiloo/refundstatus/internal/config"
	"github.com/polkiloo/refundstatus/internal/server/http/handlers"
	"github.com/polkiloo/refundstatus/internal/worker"
)

// Module wires application services, runtime components, and lifecycle hooks.
var Module = fx.Options(
	fx.Provide(
		NewPortalFacade,
		func(f *PortalFacade) handlers.PortalFacade { return f },
		newHTTPServer,
		newETARefresher,
	),
	fx.Invoke(registerLifecycle),
)

const readHeaderTimeout = 5 * time.Second

type serverParams struct {
	fx.In

	Config *config.Config
	Router *gin.Engine
}

func newHTTPServer(p serverParams) *http.Server {
	return &http.Server{
		Addr:              p.Config.RunAddress,
		Handler:           p.Router,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

type workerParams struct {
	fx.In

	Facade *PortalFacade
	Config *config.Config
	Logger *slog.Logger
}

func newETARefresher(p workerParams) *worker.ETARefresher {
	return worker.NewETARefresher(
		p.Facade,
		p.Config.ETARefreshInterval,
		p.Config.ETABatchSize,
		p.Config.WorkerPoolSize,
		p.Logger,
	)
}
