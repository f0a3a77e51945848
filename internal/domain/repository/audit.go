package repository

import (
	"context"

	"github.com/polkiloo/refundstatus/internal/domain/model"
)

// AuditRepository stores refund access audit trail.
type AuditRepository interface {
	Record(ctx context.Context, entry model.AccessAudit) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]model.AccessAudit, error)
}
