package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"vendibook/internal/domain/hourly"
	"vendibook/internal/domain/listings"
	"vendibook/internal/domain/pricing"
	"vendibook/internal/domain/shared/daterange"
	"vendibook/internal/domain/shared/events"
)

var (
	ErrInvalidState        = errors.New("booking: invalid state transition")
	ErrReservationNotFound = errors.New("booking: not found")
	ErrSlotTaken           = errors.New("booking: slot already reserved for an overlapping period")
	ErrConcurrentUpdate    = errors.New("booking: concurrent update")
	ErrRenterRequired      = errors.New("booking: renter id required")
	ErrInvalidSlot         = errors.New("booking: slot number out of range")
	ErrHourlySpan          = errors.New("booking: hourly reservation must cover a single date")
	ErrZeroQuote           = errors.New("booking: price snapshot must be positive")
	ErrPaymentRefRequired  = errors.New("booking: payment reference required")
)

type ReservationID string

type PaymentState string

const (
	PaymentNone       PaymentState = "none"
	PaymentAuthorized PaymentState = "authorized"
	PaymentCaptured   PaymentState = "captured"
	PaymentFailed     PaymentState = "failed"
)

// Document is an uploaded file staged against the reservation.
type Document struct {
	Type       string    `json:"type"`
	ObjectKey  string    `json:"object_key"`
	FileName   string    `json:"file_name"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// BusinessDetails is the renter's business profile captured at checkout.
type BusinessDetails struct {
	LicenseType   string `json:"license_type"`
	LicenseOther  string `json:"license_other,omitempty"`
	EmployeeCount string `json:"employee_count"`
	IntendedUse   string `json:"intended_use"`
	CuisineType   string `json:"cuisine_type"`
}

type Reservation struct {
	ID              ReservationID
	ListingID       listings.ListingID
	HostID          listings.HostID
	RenterID        string
	SlotNumber      int
	Span            daterange.Span
	Hours           *hourly.Window
	Status          Status
	InstantBook     bool
	Fulfillment     listings.FulfillmentMethod
	DeliveryAddress string
	Business        *BusinessDetails
	Quote           pricing.Quote
	PaymentRef      string
	PaymentState    PaymentState
	Documents       []Document
	DeclineReason   string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Version         int64
	events.EventRecorder
}

// Repository persists reservations. Create must reject a reservation that
// conflicts with an active one on the same listing and slot with ErrSlotTaken.
type Repository interface {
	ByID(ctx context.Context, id ReservationID) (*Reservation, error)
	Create(ctx context.Context, r *Reservation) error
	Save(ctx context.Context, r *Reservation) error
	ActiveForListing(ctx context.Context, listingID listings.ListingID, window daterange.Span) ([]Existing, error)
	ListByRenter(ctx context.Context, renterID string) ([]*Reservation, error)
}

type CreateParams struct {
	ID              ReservationID
	Profile         listings.AvailabilityProfile
	RenterID        string
	SlotNumber      int
	Span            daterange.Span
	Hours           *hourly.Window
	Fulfillment     listings.FulfillmentMethod
	DeliveryAddress string
	Business        *BusinessDetails
	Quote           pricing.Quote
	CreatedAt       time.Time
}

// NewReservation opens a pending reservation with its price snapshot.
func NewReservation(params CreateParams) (*Reservation, error) {
	if strings.TrimSpace(params.RenterID) == "" {
		return nil, ErrRenterRequired
	}
	if err := params.Span.Validate(); err != nil {
		return nil, err
	}
	slot := params.SlotNumber
	if params.Profile.MultiSlot() {
		if slot < 1 || slot > params.Profile.TotalSlots {
			return nil, ErrInvalidSlot
		}
	} else {
		if slot != 0 && slot != 1 {
			return nil, ErrInvalidSlot
		}
		// single-slot reservations are stored untagged
		slot = 0
	}
	var hours *hourly.Window
	if params.Hours != nil {
		if params.Span.Days() != 1 {
			return nil, ErrHourlySpan
		}
		if !params.Hours.Valid() {
			return nil, hourly.ErrInvalidWindow
		}
		w := *params.Hours
		hours = &w
	}
	if params.Quote.IsZero() {
		return nil, ErrZeroQuote
	}
	now := params.CreatedAt.UTC()
	r := &Reservation{
		ID:              params.ID,
		ListingID:       params.Profile.ListingID,
		HostID:          params.Profile.HostID,
		RenterID:        params.RenterID,
		SlotNumber:      slot,
		Span:            params.Span,
		Hours:           hours,
		Status:          StatusPending,
		InstantBook:     params.Profile.InstantBook,
		Fulfillment:     params.Fulfillment,
		DeliveryAddress: strings.TrimSpace(params.DeliveryAddress),
		Business:        params.Business,
		Quote:           params.Quote,
		PaymentState:    PaymentNone,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	r.Record(ReservationRequested{
		ReservationID: r.ID,
		ListingID:     r.ListingID,
		RenterID:      r.RenterID,
		SlotNumber:    r.SlotNumber,
		Span:          r.Span,
		Hours:         hours,
		Total:         r.Quote.TotalWithFees,
		InstantBook:   r.InstantBook,
		At:            now,
	})
	return r, nil
}

// Existing projects the reservation for conflict checks.
func (r *Reservation) Existing() Existing {
	return Existing{ID: r.ID, SlotNumber: r.SlotNumber, Span: r.Span, Status: r.Status, Hours: r.Hours}
}

func (r *Reservation) Approve(now time.Time) error {
	if r.Status != StatusPending {
		return ErrInvalidState
	}
	r.Status = StatusApproved
	r.UpdatedAt = now.UTC()
	r.Record(ReservationApproved{ReservationID: r.ID, ListingID: r.ListingID, At: r.UpdatedAt})
	return nil
}

func (r *Reservation) Decline(reason string, now time.Time) error {
	if r.Status != StatusPending {
		return ErrInvalidState
	}
	r.Status = StatusDeclined
	r.DeclineReason = strings.TrimSpace(reason)
	r.UpdatedAt = now.UTC()
	r.Record(ReservationDeclined{ReservationID: r.ID, ListingID: r.ListingID, Reason: r.DeclineReason, At: r.UpdatedAt})
	return nil
}

// Cancel releases the inventory of a pending or approved reservation.
func (r *Reservation) Cancel(reason string, now time.Time) error {
	if !r.Status.HoldsInventory() {
		return ErrInvalidState
	}
	r.Status = StatusCancelled
	r.UpdatedAt = now.UTC()
	r.Record(ReservationCancelled{ReservationID: r.ID, ListingID: r.ListingID, Reason: strings.TrimSpace(reason), At: r.UpdatedAt})
	return nil
}

// AttachPayment records a successful payment handoff.
func (r *Reservation) AttachPayment(ref string, state PaymentState, now time.Time) error {
	if strings.TrimSpace(ref) == "" {
		return ErrPaymentRefRequired
	}
	if state != PaymentAuthorized && state != PaymentCaptured {
		return ErrInvalidState
	}
	if r.Status != StatusPending && r.Status != StatusApproved {
		return ErrInvalidState
	}
	r.PaymentRef = ref
	r.PaymentState = state
	r.UpdatedAt = now.UTC()
	r.Record(PaymentHandedOff{ReservationID: r.ID, PaymentRef: ref, State: state, Amount: r.Quote.TotalWithFees, At: r.UpdatedAt})
	return nil
}

// MarkPaymentFailed keeps the reservation pending so it can be retried or cancelled.
func (r *Reservation) MarkPaymentFailed(reason string, now time.Time) {
	r.PaymentState = PaymentFailed
	r.UpdatedAt = now.UTC()
	r.Record(PaymentFailedEvent{ReservationID: r.ID, Reason: reason, At: r.UpdatedAt})
}

func (r *Reservation) AttachDocuments(docs []Document, now time.Time) {
	if len(docs) == 0 {
		return
	}
	r.Documents = append(r.Documents, docs...)
	r.UpdatedAt = now.UTC()
	r.Record(DocumentsStaged{ReservationID: r.ID, Count: len(docs), At: r.UpdatedAt})
}

// NeedsPaymentRetry reports whether the payment handoff must be attempted again.
func (r *Reservation) NeedsPaymentRetry() bool {
	return r.Status == StatusPending && (r.PaymentState == PaymentFailed || r.PaymentState == PaymentNone)
}

// Clone returns a deep copy without pending events.
func (r *Reservation) Clone() *Reservation {
	out := *r
	out.EventRecorder = events.EventRecorder{}
	if r.Hours != nil {
		h := *r.Hours
		out.Hours = &h
	}
	if r.Business != nil {
		b := *r.Business
		out.Business = &b
	}
	out.Quote.Lines = append([]pricing.Line(nil), r.Quote.Lines...)
	out.Documents = append([]Document(nil), r.Documents...)
	return &out
}
