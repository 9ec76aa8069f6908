package availability

import "errors"

var (
	ErrInvalidWindow = errors.New("availability: from must not be after to")
	ErrWindowTooLong = errors.New("availability: window exceeds the maximum length")
)

const (
	// DefaultWindowDays is used when a calendar query omits its end date.
	DefaultWindowDays = 42
	MaxWindowDays     = 370
)
