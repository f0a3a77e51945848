package test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/polkiloo/refundstatus/internal/domain/model"
)

// RefundFacadeStub provides controllable behaviour for refund endpoints.
type RefundFacadeStub struct {
	LatestFn    func(context.Context, int64, int, string) (*model.RefundView, error)
	SimulateFn  func(context.Context, int64, model.RefundSimulation, string) error
	LifecycleFn func() []model.RefundStatus
	HistoryFn   func(context.Context, int64, int) ([]model.AccessAudit, error)
}

// LatestRefund delegates to provided function or returns a received refund.
func (s RefundFacadeStub) LatestRefund(ctx context.Context, userID int64, taxYear int, requestID string) (*model.RefundView, error) {
	if s.LatestFn != nil {
		return s.LatestFn(ctx, userID, taxYear, requestID)
	}
	return &model.RefundView{
		TaxYear:       2025,
		Status:        model.RefundStatusReceived,
		LastUpdatedAt: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
	}, nil
}

// SimulateRefund executes configured simulation handler.
func (s RefundFacadeStub) SimulateRefund(ctx context.Context, userID int64, req model.RefundSimulation, requestID string) error {
	if s.SimulateFn != nil {
		return s.SimulateFn(ctx, userID, req, requestID)
	}
	return nil
}

// RefundLifecycle returns configured ordering or the default one.
func (s RefundFacadeStub) RefundLifecycle() []model.RefundStatus {
	if s.LifecycleFn != nil {
		return s.LifecycleFn()
	}
	return model.RefundLifecycle
}

// RefundHistory returns preconfigured audit trail.
func (s RefundFacadeStub) RefundHistory(ctx context.Context, userID int64, limit int) ([]model.AccessAudit, error) {
	if s.HistoryFn != nil {
		return s.HistoryFn(ctx, userID, limit)
	}
	return []model.AccessAudit{{
		UserID:     userID,
		Action:     model.AuditActionView,
		TaxYear:    2025,
		Status:     model.RefundStatusReceived,
		RequestID:  "req-1",
		OccurredAt: time.Unix(0, 0).UTC(),
	}}, nil
}

// AssistantFacadeStub answers assistant questions with a fixed reply unless AskFn is set.
type AssistantFacadeStub struct {
	AskFn func(context.Context, int64, string, string) (*model.AssistantAnswer, error)
}

// AskAssistant delegates to AskFn.
func (s AssistantFacadeStub) AskAssistant(ctx context.Context, userID int64, question, requestID string) (*model.AssistantAnswer, error) {
	if s.AskFn != nil {
		return s.AskFn(ctx, userID, question, requestID)
	}
	return &model.AssistantAnswer{
		Intent:         model.IntentRefundStatus,
		AnswerMarkdown: "**Latest refund status:** RECEIVED\n",
		Actions:        []model.AssistantAction{{Type: model.ActionRefresh, Label: "Refresh status"}},
		Confidence:     model.ConfidenceLow,
	}, nil
}

// PortalFacadeStub aggregates facade dependencies for HTTP layer tests.
type PortalFacadeStub struct {
	AuthFacadeStub
	RefundFacadeStub
	AssistantFacadeStub
}

// WorkerFacadeStub mimics estimate refresher interactions with the facade.
type WorkerFacadeStub struct {
	Batches    [][]model.RefundRecord
	ClaimFn    func(context.Context, int) ([]model.RefundRecord, error)
	RefreshFn  func(context.Context, model.RefundRecord) error
	Refreshed  []model.RefundRecord
	mu         sync.Mutex
	claimCount int32
}

// ClaimStaleEstimates returns batches from configured queue.
func (s *WorkerFacadeStub) ClaimStaleEstimates(ctx context.Context, limit int) ([]model.RefundRecord, error) {
	if s.ClaimFn != nil {
		return s.ClaimFn(ctx, limit)
	}
	call := atomic.AddInt32(&s.claimCount, 1)
	if int(call) <= len(s.Batches) {
		return s.Batches[call-1], nil
	}
	time.Sleep(10 * time.Millisecond)
	return nil, nil
}

// RefreshEstimate records refreshed records.
func (s *WorkerFacadeStub) RefreshEstimate(ctx context.Context, record model.RefundRecord) error {
	if s.RefreshFn != nil {
		return s.RefreshFn(ctx, record)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Refreshed = append(s.Refreshed, record)
	return nil
}

// RefreshedRecords returns a copy of refreshed records.
func (s *WorkerFacadeStub) RefreshedRecords() []model.RefundRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.RefundRecord, len(s.Refreshed))
	copy(out, s.Refreshed)
	return out
}
