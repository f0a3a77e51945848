package errors

import "errors"

var (
	ErrAlreadyExists      = errors.New("already exists")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidTaxYear     = errors.New("invalid tax year")
	ErrInvalidStatus      = errors.New("invalid refund status")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrDemoDisabled       = errors.New("demo mode is disabled")
	ErrInvalidQuestion    = errors.New("invalid assistant question")
)
