package checkout

import (
	"errors"
	"fmt"

	"vendibook/internal/domain/booking"
)

var (
	ErrStepLocked           = errors.New("checkout: step is locked until previous steps are complete")
	ErrStepIncomplete       = errors.New("checkout: current step is not complete")
	ErrUnknownStep          = errors.New("checkout: step is not part of this checkout")
	ErrAvailabilityConflict = errors.New("checkout: selection is no longer available")
	ErrSessionNotFound      = errors.New("checkout: session not found")
	ErrNotSessionOwner      = errors.New("checkout: session belongs to another renter")
)

// ValidationError is inline feedback for one input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "checkout: " + e.Message
	}
	return fmt.Sprintf("checkout: %s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// RetryableError reports a persistence or payment handoff failure. When
// ReservationID is set the reservation exists and was left pending.
type RetryableError struct {
	Op            string
	ReservationID booking.ReservationID
	Err           error
}

func (e *RetryableError) Error() string {
	if e.ReservationID != "" {
		return fmt.Sprintf("checkout: %s failed for reservation %s: %v", e.Op, e.ReservationID, e.Err)
	}
	return fmt.Sprintf("checkout: %s failed: %v", e.Op, e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}
