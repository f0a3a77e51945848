package irs

import (
	"go.uber.org/fx"

	"github.com/polkiloo/refundstatus/internal/config"
)

// Module exposes the demo agency provider to fx graph.
var Module = fx.Options(
	fx.Provide(newMockProvider),
	fx.Provide(
		func(p *MockProvider) Provider { return p },
		func(p *MockProvider) Simulator { return p },
	),
)

func newMockProvider(cfg *config.Config) *MockProvider {
	return NewMockProvider(cfg.TaxYear)
}
