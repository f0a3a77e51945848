package repository

import (
	"context"

	"github.com/polkiloo/refundstatus/internal/domain/model"
)

// RefundCache keeps the most recently served refund view per user.
type RefundCache interface {
	Get(ctx context.Context, userID int64) (*model.RefundView, bool, error)
	Set(ctx context.Context, userID int64, view *model.RefundView) error
	Delete(ctx context.Context, userID int64) error
}
