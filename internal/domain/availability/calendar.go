package availability

import (
	"context"
	"errors"
	"strings"
	"time"

	"vendibook/internal/domain/listings"
	"vendibook/internal/domain/shared/daterange"
	"vendibook/internal/domain/shared/events"
)

var (
	ErrOverlappingRange = errors.New("availability: range overlaps with an existing block")
	ErrRangeNotFound    = errors.New("availability: range not found")
	ErrReferenceTaken   = errors.New("availability: block reference already used")
	ErrCalendarNotFound = errors.New("availability: calendar not found")
	ErrConcurrentUpdate = errors.New("availability: concurrent update")
)

type BlockReason string

const (
	ReasonHostBlock   BlockReason = "HOST_BLOCK"
	ReasonMaintenance BlockReason = "MAINTENANCE"
	ReasonPrivate     BlockReason = "PRIVATE_EVENT"
)

// BlockedInterval is a host exclusion over an inclusive date span.
type BlockedInterval struct {
	Span      daterange.Span `json:"span"`
	Reason    BlockReason    `json:"reason"`
	Reference string         `json:"reference"`
	CreatedAt time.Time      `json:"created_at"`
}

// Calendar holds the host-managed blocks of one listing.
type Calendar struct {
	ListingID listings.ListingID
	Blocks    []BlockedInterval
	Version   int64
	events.EventRecorder
}

type Repository interface {
	Calendar(ctx context.Context, id listings.ListingID) (*Calendar, error)
	Save(ctx context.Context, calendar *Calendar) error
}

func NewCalendar(id listings.ListingID) *Calendar {
	return &Calendar{ListingID: id}
}

// Free reports whether no block overlaps the span.
func (c *Calendar) Free(span daterange.Span) bool {
	for _, block := range c.Blocks {
		if block.Span.Overlaps(span) {
			return false
		}
	}
	return true
}

// BlocksWithin returns the blocks overlapping window.
func (c *Calendar) BlocksWithin(window daterange.Span) []BlockedInterval {
	out := make([]BlockedInterval, 0, len(c.Blocks))
	for _, block := range c.Blocks {
		if block.Span.Overlaps(window) {
			out = append(out, block)
		}
	}
	return out
}

func (c *Calendar) Block(span daterange.Span, reason BlockReason, reference string, now time.Time) error {
	if err := span.Validate(); err != nil {
		return err
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return errors.New("availability: block reference required")
	}
	if reason == "" {
		reason = ReasonHostBlock
	}
	for _, block := range c.Blocks {
		if block.Reference == reference {
			return ErrReferenceTaken
		}
	}
	if !c.Free(span) {
		return ErrOverlappingRange
	}
	c.Blocks = append(c.Blocks, BlockedInterval{Span: span, Reason: reason, Reference: reference, CreatedAt: now.UTC()})
	c.Record(CalendarBlocked{ListingID: string(c.ListingID), Span: span, Reason: reason, Reference: reference, At: now.UTC()})
	return nil
}

func (c *Calendar) Release(reference string, now time.Time) error {
	idx := -1
	for i, block := range c.Blocks {
		if block.Reference == reference {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrRangeNotFound
	}
	removed := c.Blocks[idx]
	c.Blocks = append(c.Blocks[:idx], c.Blocks[idx+1:]...)
	c.Record(CalendarReleased{ListingID: string(c.ListingID), Span: removed.Span, Reason: removed.Reason, Reference: reference, At: now.UTC()})
	return nil
}

// Clone returns a deep copy without pending events.
func (c *Calendar) Clone() *Calendar {
	return &Calendar{
		ListingID: c.ListingID,
		Blocks:    append([]BlockedInterval(nil), c.Blocks...),
		Version:   c.Version,
	}
}
