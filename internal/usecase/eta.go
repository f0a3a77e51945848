package usecase

import (
	"fmt"
	"time"

	"github.com/polkiloo/refundstatus/internal/domain/model"
)

// largeRefundThreshold marks refunds that usually get an extra manual review.
const largeRefundThreshold = 10000.0

const largeRefundReviewDays = 7

var remainingDays = map[model.RefundStatus]int{
	model.RefundStatusReceived:   21,
	model.RefundStatusProcessing: 14,
	model.RefundStatusApproved:   7,
	model.RefundStatusSent:       3,
}

var stageExplanation = map[model.RefundStatus]string{
	model.RefundStatusReceived:   "Your return was received and is waiting to be processed.",
	model.RefundStatusProcessing: "Your return is being processed.",
	model.RefundStatusApproved:   "Your refund was approved and is scheduled to be sent.",
	model.RefundStatusSent:       "Your refund was sent to your bank.",
}

// ETAEstimate is the predicted availability of a refund.
type ETAEstimate struct {
	Days        int
	AvailableAt time.Time
	Explanation string
}

// ETAEstimator predicts when a refund becomes available from its current stage.
type ETAEstimator struct {
	now func() time.Time
}

// NewETAEstimator constructs ETAEstimator using wall clock.
func NewETAEstimator() *ETAEstimator {
	return &ETAEstimator{now: time.Now}
}

// Estimate returns false when no prediction applies: final statuses and refunds the agency has no record of.
func (e *ETAEstimator) Estimate(status model.RefundStatus, expectedAmount *float64) (ETAEstimate, bool) {
	days, ok := remainingDays[status]
	if !ok {
		return ETAEstimate{}, false
	}

	explanation := fmt.Sprintf("%s Refunds at this stage typically arrive within %d days.", stageExplanation[status], days)
	if expectedAmount != nil && *expectedAmount >= largeRefundThreshold && status != model.RefundStatusSent {
		days += largeRefundReviewDays
		explanation = fmt.Sprintf("%s Refunds at this stage typically arrive within %d days, including extra review time for larger amounts.",
			stageExplanation[status], days)
	}

	return ETAEstimate{
		Days:        days,
		AvailableAt: e.now().Add(time.Duration(days) * 24 * time.Hour).UTC(),
		Explanation: explanation,
	}, true
}
