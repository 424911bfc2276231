package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrDuplicateID         = errors.New("duplicate position id")
	ErrInvalidNotification = errors.New("invalid notification")
	ErrOracleUnavailable   = errors.New("oracle unavailable")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrSettlementFailed    = errors.New("settlement failed")
)

func invalidNotification(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidNotification, reason)
}
