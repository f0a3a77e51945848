package handlers

import (
	"context"

	"github.com/polkiloo/refundstatus/internal/domain/model"
)

// AuthFacade describes authentication capabilities required by handlers.
type AuthFacade interface {
	Register(ctx context.Context, login, password string) (string, error)
	Authenticate(ctx context.Context, login, password string) (string, error)
	RenewSession(ctx context.Context, userID int64) (string, error)
	ParseToken(token string) (int64, error)
}

// RefundFacade encapsulates refund operations exposed via HTTP.
type RefundFacade interface {
	LatestRefund(ctx context.Context, userID int64, taxYear int, requestID string) (*model.RefundView, error)
	SimulateRefund(ctx context.Context, userID int64, req model.RefundSimulation, requestID string) error
	RefundLifecycle() []model.RefundStatus
	RefundHistory(ctx context.Context, userID int64, limit int) ([]model.AccessAudit, error)
}

// AssistantFacade answers refund questions.
type AssistantFacade interface {
	AskAssistant(ctx context.Context, userID int64, question, requestID string) (*model.AssistantAnswer, error)
}

// PortalFacade aggregates the full set of operations used across handlers.
type PortalFacade interface {
	AuthFacade
	RefundFacade
	AssistantFacade
}
