package metrics

import (
	"net/http"

	"go.uber.org/fx"
)

// Module provides the Prometheus recorder as concrete type, as Recorder and as the named "metrics" scrape handler.
var Module = fx.Options(
	fx.Provide(NewPrometheus),
	fx.Provide(func(p *Prometheus) Recorder { return p }),
	fx.Provide(fx.Annotate(
		func(p *Prometheus) http.Handler { return p.Handler() },
		fx.ResultTags(`name:"metrics"`),
	)),
)
