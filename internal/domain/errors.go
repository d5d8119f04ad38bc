package domain

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrValidation           = errors.New("validation failed")
	ErrInvalidDescription   = errors.New("description must not be empty")
	ErrInvalidAmount        = errors.New("amount must be a positive finite number")
	ErrInvalidCurrency      = errors.New("invalid currency")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrConfirmationRequired = errors.New("spending alert threshold exceeded, confirmation required")
	ErrRateUnavailable      = errors.New("exchange rate unavailable")
	ErrInvalidRate          = errors.New("exchange rate must be greater than zero")
	ErrPersistence          = errors.New("ledger persistence failed")
	ErrInvalidSnapshot      = errors.New("invalid ledger snapshot")
	ErrUserExists           = errors.New("user already exists")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInvalidRequest       = errors.New("invalid request")
)
