package dto

import (
	"time"

	"github.com/polkiloo/refundstatus/internal/domain/model"
)

// RefundStatusResponse is the refund state returned by GET /api/refund/latest.
type RefundStatusResponse struct {
	TaxYear              int        `json:"taxYear"`
	Status               string     `json:"status"`
	LastUpdatedAt        time.Time  `json:"lastUpdatedAt"`
	ExpectedAmount       *float64   `json:"expectedAmount"`
	TrackingID           *string    `json:"trackingId"`
	AvailableAtEstimated *time.Time `json:"availableAtEstimated"`
	AIExplanation        *string    `json:"aiExplanation"`
}

// NewRefundStatusResponse maps a refund view to its wire form.
func NewRefundStatusResponse(view *model.RefundView) RefundStatusResponse {
	return RefundStatusResponse{
		TaxYear:              view.TaxYear,
		Status:               string(view.Status),
		LastUpdatedAt:        view.LastUpdatedAt,
		ExpectedAmount:       view.ExpectedAmount,
		TrackingID:           view.TrackingID,
		AvailableAtEstimated: view.AvailableAtEstimated,
		AIExplanation:        view.AIExplanation,
	}
}

// SimulateRequest describes POST /api/refund/simulate payload.
type SimulateRequest struct {
	TaxYear        int      `json:"taxYear"`
	Status         string   `json:"status"`
	ExpectedAmount *float64 `json:"expectedAmount"`
	TrackingID     *string  `json:"trackingId"`
}

// LifecycleResponse lists statuses in advancement order.
type LifecycleResponse struct {
	Statuses []string `json:"statuses"`
}

// AuditEntryResponse describes one refund access of the user.
type AuditEntryResponse struct {
	Action     string    `json:"action"`
	TaxYear    int       `json:"taxYear"`
	Status     string    `json:"status"`
	RequestID  string    `json:"requestId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}
