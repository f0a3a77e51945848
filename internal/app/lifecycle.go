package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.uber.org/fx"

	"github.com/polkiloo/refundstatus/internal/config"
	"github.com/polkiloo/refundstatus/internal/worker"
)

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *slog.Logger
	Server     *http.Server
	Worker     *worker.ETARefresher
	Config     *config.Config
}

// registerLifecycle starts the estimate refresher before the HTTP server.
// fx stops hooks in reverse, so the server drains before the refresher halts.
func registerLifecycle(p lifecycleParams) {
	p.Lifecycle.Append(fx.StartStopHook(
		// fx cancels the start context once OnStart returns.
		func(ctx context.Context) { p.Worker.Start(context.WithoutCancel(ctx)) },
		p.Worker.Stop,
	))

	srv := &serverRunner{
		server:          p.Server,
		shutdowner:      p.Shutdowner,
		logger:          p.Logger,
		shutdownTimeout: p.Config.ShutdownTimeout,
		demo:            p.Config.DemoEnabled,
		taxYear:         p.Config.TaxYear,
	}
	p.Lifecycle.Append(fx.Hook{OnStart: srv.start, OnStop: srv.stop})
}

type serverRunner struct {
	server          *http.Server
	shutdowner      fx.Shutdowner
	logger          *slog.Logger
	shutdownTimeout time.Duration
	demo            bool
	taxYear         int
	listen          func(network, address string) (net.Listener, error)
}

// start binds the listen address synchronously so a bad address fails startup,
// then serves in the background. Serve failures request an application shutdown.
func (r *serverRunner) start(context.Context) error {
	listen := r.listen
	if listen == nil {
		listen = net.Listen
	}
	ln, err := listen("tcp", r.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %q: %w", r.server.Addr, err)
	}

	r.logger.Info("starting refundstatus",
		slog.String("addr", ln.Addr().String()),
		slog.Bool("demo", r.demo),
		slog.Int("tax_year", r.taxYear),
	)
	go func() {
		if err := r.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error("http server terminated", slog.String("error", err.Error()))
			_ = r.shutdowner.Shutdown()
		}
	}()
	return nil
}

func (r *serverRunner) stop(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok && r.shutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.shutdownTimeout)
		defer cancel()
	}

	if err := r.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	r.logger.Info("refundstatus stopped")
	return nil
}
