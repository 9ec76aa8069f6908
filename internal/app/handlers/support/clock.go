package support

import (
	"time"

	"vendibook/internal/domain/shared/daterange"
)

// Clock supplies the current instant. A nil Clock reads the wall clock in UTC.
type Clock func() time.Time

func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

// Today is the current calendar date in UTC.
func (c Clock) Today() daterange.Date {
	return daterange.DateOf(c.Now())
}

// Fixed returns a clock frozen at t.
func Fixed(t time.Time) Clock {
	return func() time.Time { return t }
}
