package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrAmountOverflow = errors.New("amount overflow")
	ErrZeroIdentity   = errors.New("zero identity")
	ErrTransferFailed = errors.New("transfer failed")
	ErrInvalidPage    = errors.New("invalid page")
)
