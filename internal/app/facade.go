package app

import (
	"context"

	"github.com/polkiloo/refundstatus/internal/domain/model"
	"github.com/polkiloo/refundstatus/internal/usecase"
)

// PortalFacade exposes taxpayer-facing operations to the HTTP layer and estimate maintenance to workers.
type PortalFacade struct {
	auth      *usecase.AuthUseCase
	refunds   *usecase.RefundUseCase
	assistant *usecase.AssistantUseCase
}

func NewPortalFacade(auth *usecase.AuthUseCase, refunds *usecase.RefundUseCase, assistant *usecase.AssistantUseCase) *PortalFacade {
	return &PortalFacade{auth: auth, refunds: refunds, assistant: assistant}
}

func (f *PortalFacade) Register(ctx context.Context, login, password string) (string, error) {
	_, token, err := f.auth.Register(ctx, login, password)
	return token, err
}

func (f *PortalFacade) Authenticate(ctx context.Context, login, password string) (string, error) {
	_, token, err := f.auth.Authenticate(ctx, login, password)
	return token, err
}

func (f *PortalFacade) RenewSession(ctx context.Context, userID int64) (string, error) {
	return f.auth.Renew(ctx, userID)
}

func (f *PortalFacade) ParseToken(token string) (int64, error) {
	return f.auth.ParseToken(token)
}

func (f *PortalFacade) LatestRefund(ctx context.Context, userID int64, taxYear int, requestID string) (*model.RefundView, error) {
	return f.refunds.Latest(ctx, userID, taxYear, requestID)
}

func (f *PortalFacade) SimulateRefund(ctx context.Context, userID int64, req model.RefundSimulation, requestID string) error {
	return f.refunds.Simulate(ctx, userID, req, requestID)
}

func (f *PortalFacade) RefundLifecycle() []model.RefundStatus {
	return f.refunds.Lifecycle()
}

func (f *PortalFacade) RefundHistory(ctx context.Context, userID int64, limit int) ([]model.AccessAudit, error) {
	return f.refunds.History(ctx, userID, limit)
}

func (f *PortalFacade) AskAssistant(ctx context.Context, userID int64, question, requestID string) (*model.AssistantAnswer, error) {
	return f.assistant.Answer(ctx, userID, question, requestID)
}

func (f *PortalFacade) ClaimStaleEstimates(ctx context.Context, limit int) ([]model.RefundRecord, error) {
	return f.refunds.ClaimStaleEstimates(ctx, limit)
}

func (f *PortalFacade) RefreshEstimate(ctx context.Context, record model.RefundRecord) error {
	return f.refunds.RefreshEstimate(ctx, record)
}
