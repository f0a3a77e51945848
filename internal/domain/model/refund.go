package model

import "time"

// RefundStatus describes refund processing lifecycle as reported by the tax agency.
type RefundStatus string

const (
	RefundStatusNotFound   RefundStatus = "NOT_FOUND"
	RefundStatusReceived   RefundStatus = "RECEIVED"
	RefundStatusProcessing RefundStatus = "PROCESSING"
	RefundStatusApproved   RefundStatus = "APPROVED"
	RefundStatusSent       RefundStatus = "SENT"
	RefundStatusAvailable  RefundStatus = "AVAILABLE"
	RefundStatusRejected   RefundStatus = "REJECTED"
)

// RefundLifecycle is the linear path a refund follows when advanced in demo mode.
var RefundLifecycle = []RefundStatus{
	RefundStatusReceived,
	RefundStatusProcessing,
	RefundStatusApproved,
	RefundStatusSent,
	RefundStatusAvailable,
}

// ParseRefundStatus converts raw value into a known status.
func ParseRefundStatus(raw string) (RefundStatus, bool) {
	switch s := RefundStatus(raw); s {
	case RefundStatusNotFound, RefundStatusReceived, RefundStatusProcessing, RefundStatusApproved,
		RefundStatusSent, RefundStatusAvailable, RefundStatusRejected:
		return s, true
	}
	return "", false
}

// Final reports whether no further updates are expected for the status.
func (s RefundStatus) Final() bool {
	return s == RefundStatusAvailable || s == RefundStatusRejected
}

// RefundRecord is the persisted refund state of a user for one tax year.
type RefundRecord struct {
	ID                   int64
	UserID               int64
	TaxYear              int
	Status               RefundStatus
	ExpectedAmount       *float64
	TrackingID           *string
	AvailableAtEstimated *time.Time
	LastUpdatedAt        time.Time
}

// UpdateFromIRS applies agency data to the record, bumping LastUpdatedAt on change.
func (r *RefundRecord) UpdateFromIRS(result IRSResult, now time.Time) {
	changed := r.Status != result.Status ||
		!equalFloat(r.ExpectedAmount, result.ExpectedAmount) ||
		!equalString(r.TrackingID, result.TrackingID)

	r.Status = result.Status
	r.ExpectedAmount = result.ExpectedAmount
	r.TrackingID = result.TrackingID
	if changed || r.LastUpdatedAt.IsZero() {
		r.LastUpdatedAt = now
	}
}

// RefundView is the refund state served to the taxpayer.
type RefundView struct {
	TaxYear              int
	Status               RefundStatus
	LastUpdatedAt        time.Time
	ExpectedAmount       *float64
	TrackingID           *string
	AvailableAtEstimated *time.Time
	AIExplanation        *string
}

// RefundSimulation is a demo request overwriting the agency answer for a user.
// Status stays raw so that validation happens in one place.
type RefundSimulation struct {
	TaxYear        int
	Status         string
	ExpectedAmount *float64
	TrackingID     *string
}

// IRSResult is the refund state returned by the tax agency.
type IRSResult struct {
	TaxYear        int
	Status         RefundStatus
	ExpectedAmount *float64
	TrackingID     *string
}

// AccessAudit records a refund lookup or change made on behalf of a user.
type AccessAudit struct {
	ID         int64
	UserID     int64
	Action     string
	TaxYear    int
	Status     RefundStatus
	RequestID  string
	OccurredAt time.Time
}

const (
	AuditActionView     = "REFUND_VIEW"
	AuditActionSimulate = "REFUND_SIMULATE"
)

func equalFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
