package refund

import "time"

// ActiveTaxYear asks the source of truth for its most recent tax year.
const ActiveTaxYear = 0

// Snapshot is the authoritative view of one refund for one tax year.
type Snapshot struct {
	TaxYear              int
	Status               Status
	LastUpdatedAt        time.Time
	ExpectedAmount       *float64
	TrackingID           *string
	AvailableAtEstimated *time.Time
	AIExplanation        *string
}

// TransitionRequest asks the source of truth to move a refund to Status.
type TransitionRequest struct {
	TaxYear        int
	Status         Status
	ExpectedAmount *float64
	TrackingID     *string
}

func (s *Snapshot) clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.ExpectedAmount = clonePtr(s.ExpectedAmount)
	c.TrackingID = clonePtr(s.TrackingID)
	c.AvailableAtEstimated = clonePtr(s.AvailableAtEstimated)
	c.AIExplanation = clonePtr(s.AIExplanation)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
