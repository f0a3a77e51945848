package irs

import (
	"context"
	"sync"

	"github.com/polkiloo/refundstatus/internal/domain/model"
)

// Provider exposes refund data held by the tax agency.
type Provider interface {
	MostRecent(ctx context.Context, userID int64) (*model.IRSResult, error)
}

// Simulator lets demo flows overwrite the agency answer for a user.
type Simulator interface {
	Upsert(ctx context.Context, userID int64, result model.IRSResult) error
}

// MockProvider is an in-memory stand-in for the agency used in demo mode.
// Users without a stored answer get a freshly received refund for the default year.
type MockProvider struct {
	mu          sync.RWMutex
	defaultYear int
	results     map[int64]model.IRSResult
}

var (
	_ Provider  = (*MockProvider)(nil)
	_ Simulator = (*MockProvider)(nil)
)

// NewMockProvider creates provider answering with defaultYear for unknown users.
func NewMockProvider(defaultYear int) *MockProvider {
	return &MockProvider{
		defaultYear: defaultYear,
		results:     make(map[int64]model.IRSResult),
	}
}

func (p *MockProvider) MostRecent(ctx context.Context, userID int64) (*model.IRSResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	result, ok := p.results[userID]
	p.mu.RUnlock()

	if !ok {
		result = model.IRSResult{TaxYear: p.defaultYear, Status: model.RefundStatusReceived}
	}
	return &result, nil
}

func (p *MockProvider) Upsert(ctx context.Context, userID int64, result model.IRSResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	p.results[userID] = result
	p.mu.Unlock()
	return nil
}
