package repository

import (
	"context"
	"time"

	"github.com/polkiloo/refundstatus/internal/domain/model"
)

// RefundRepository describes persistence operations with refund records.
type RefundRepository interface {
	GetByUserAndYear(ctx context.Context, userID int64, taxYear int) (*model.RefundRecord, error)
	Save(ctx context.Context, record *model.RefundRecord) error
	ClaimStaleEstimates(ctx context.Context, staleBefore time.Time, limit int) ([]model.RefundRecord, error)
	UpdateEstimate(ctx context.Context, recordID int64, availableAt *time.Time) error
}
