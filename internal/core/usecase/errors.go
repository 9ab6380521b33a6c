package usecase

import "errors"

var (
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrInvalidAddress  = errors.New("recipient is not a valid address")
	ErrInvalidCategory = errors.New("unknown category")
	ErrPaymentFailed   = errors.New("payment failed")
)
