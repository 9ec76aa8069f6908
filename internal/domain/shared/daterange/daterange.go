package daterange

import (
	"errors"
	"time"
)

var (
	ErrInvalidRange = errors.New("daterange: end must be after start")
	ErrInvalidSpan  = errors.New("daterange: span end must not precede start")
	ErrInvalidDate  = errors.New("daterange: invalid date")
)

const dateLayout = "2006-01-02"

// Date is a civil calendar date without a time-of-day or location.
// The zero value means "unset".
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate normalizes the provided components (e.g. Oct 32 becomes Nov 1).
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(raw string) (Date, error) {
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return DateOf(t), nil
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// At returns the UTC instant of the given hour on this date. Hour 24 is the next midnight.
func (d Date) At(hour int) time.Time {
	return d.Time().Add(time.Duration(hour) * time.Hour)
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

func (d Date) AddYears(n int) Date {
	return DateOf(d.Time().AddDate(n, 0, 0))
}

func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return cmpInt(d.Year, other.Year)
	case d.Month != other.Month:
		return cmpInt(int(d.Month), int(other.Month))
	default:
		return cmpInt(d.Day, other.Day)
	}
}

func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }
func (d Date) After(other Date) bool  { return d.Compare(other) > 0 }
func (d Date) Equal(other Date) bool  { return d.Compare(other) == 0 }

// DaysUntil returns the number of days from d to other (negative when other is earlier).
func (d Date) DaysUntil(other Date) int {
	return int(other.Time().Sub(d.Time()).Hours() / 24)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format(dateLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(data))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Span is an inclusive interval of calendar dates [Start, End].
type Span struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

func NewSpan(start, end Date) (Span, error) {
	s := Span{Start: start, End: end}
	if err := s.Validate(); err != nil {
		return Span{}, err
	}
	return s, nil
}

// SingleDay returns the span covering only d.
func SingleDay(d Date) Span {
	return Span{Start: d, End: d}
}

func (s Span) IsZero() bool {
	return s.Start.IsZero() && s.End.IsZero()
}

func (s Span) Validate() error {
	if s.Start.IsZero() || s.End.IsZero() {
		return ErrInvalidSpan
	}
	if s.End.Before(s.Start) {
		return ErrInvalidSpan
	}
	return nil
}

// Days counts the calendar dates in the span, both ends included.
func (s Span) Days() int {
	return s.Start.DaysUntil(s.End) + 1
}

// Nights counts the overnight stays between Start and End.
func (s Span) Nights() int {
	return s.Start.DaysUntil(s.End)
}

func (s Span) Contains(d Date) bool {
	return !d.Before(s.Start) && !d.After(s.End)
}

// Overlaps uses inclusive bounds: spans sharing a single date overlap.
func (s Span) Overlaps(other Span) bool {
	return !s.Start.After(other.End) && !s.End.Before(other.Start)
}

// Dates lists every date of the span in order.
func (s Span) Dates() []Date {
	if s.Validate() != nil {
		return nil
	}
	out := make([]Date, 0, s.Days())
	for d := s.Start; !d.After(s.End); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

// TimeRange converts the span to the half-open instant range [Start 00:00, End+1 00:00).
func (s Span) TimeRange() TimeRange {
	return TimeRange{Start: s.Start.Time(), End: s.End.AddDays(1).Time()}
}

// TimeRange represents a half-open interval of instants [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

func NewTimeRange(start, end time.Time) (TimeRange, error) {
	tr := TimeRange{Start: start.UTC(), End: end.UTC()}
	if err := tr.Validate(); err != nil {
		return TimeRange{}, err
	}
	return tr, nil
}

func (tr TimeRange) Validate() error {
	if tr.End.IsZero() || tr.Start.IsZero() {
		return ErrInvalidRange
	}
	if !tr.End.After(tr.Start) {
		return ErrInvalidRange
	}
	return nil
}

func (tr TimeRange) Duration() time.Duration {
	return tr.End.Sub(tr.Start)
}

func (tr TimeRange) Overlaps(other TimeRange) bool {
	return tr.Start.Before(other.End) && other.Start.Before(tr.End)
}

func (tr TimeRange) Contains(other TimeRange) bool {
	return !other.Start.Before(tr.Start) && !other.End.After(tr.End)
}

func (tr TimeRange) ContainsInstant(t time.Time) bool {
	t = t.UTC()
	return !t.Before(tr.Start) && t.Before(tr.End)
}

func (tr TimeRange) Adjacent(other TimeRange) bool {
	return tr.End.Equal(other.Start) || tr.Start.Equal(other.End)
}

func (tr TimeRange) Merge(other TimeRange) (TimeRange, bool) {
	if !(tr.Overlaps(other) || tr.Adjacent(other)) {
		return TimeRange{}, false
	}
	start := tr.Start
	if other.Start.Before(start) {
		start = other.Start
	}
	end := tr.End
	if other.End.After(end) {
		end = other.End
	}
	return TimeRange{Start: start, End: end}, true
}
