package refund

import "errors"

var (
	ErrLoadFailed     = errors.New("refund load failed")
	ErrSimulateFailed = errors.New("refund simulation failed")
	ErrEmptySnapshot  = errors.New("refund status is unavailable")
)

// LoadFailedError reports a rejected status fetch. Its message is the collaborator's message.
type LoadFailedError struct {
	Err error
}

func (e *LoadFailedError) Error() string { return e.Err.Error() }

func (e *LoadFailedError) Unwrap() error { return e.Err }

func (e *LoadFailedError) Is(target error) bool { return target == ErrLoadFailed }

// SimulateFailedError reports a rejected status transition. Its message is the collaborator's message.
type SimulateFailedError struct {
	Err error
}

func (e *SimulateFailedError) Error() string { return e.Err.Error() }

func (e *SimulateFailedError) Unwrap() error { return e.Err }

func (e *SimulateFailedError) Is(target error) bool { return target == ErrSimulateFailed }
