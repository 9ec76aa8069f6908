package booking

import (
	"time"

	"vendibook/internal/domain/hourly"
	"vendibook/internal/domain/listings"
	"vendibook/internal/domain/shared/daterange"
	"vendibook/internal/domain/shared/money"
)

type ReservationRequested struct {
	ReservationID ReservationID      `json:"reservation_id"`
	ListingID     listings.ListingID `json:"listing_id"`
	RenterID      string             `json:"renter_id"`
	SlotNumber    int                `json:"slot_number"`
	Span          daterange.Span     `json:"span"`
	Hours         *hourly.Window     `json:"hours,omitempty"`
	Total         money.Money        `json:"total"`
	InstantBook   bool               `json:"instant_book"`
	At            time.Time          `json:"at"`
}

func (e ReservationRequested) EventName() string     { return "reservation.requested" }
func (e ReservationRequested) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationRequested) OccurredAt() time.Time { return e.At }

type ReservationApproved struct {
	ReservationID ReservationID      `json:"reservation_id"`
	ListingID     listings.ListingID `json:"listing_id"`
	At            time.Time          `json:"at"`
}

func (e ReservationApproved) EventName() string     { return "reservation.approved" }
func (e ReservationApproved) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationApproved) OccurredAt() time.Time { return e.At }

type ReservationDeclined struct {
	ReservationID ReservationID      `json:"reservation_id"`
	ListingID     listings.ListingID `json:"listing_id"`
	Reason        string             `json:"reason"`
	At            time.Time          `json:"at"`
}

func (e ReservationDeclined) EventName() string     { return "reservation.declined" }
func (e ReservationDeclined) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationDeclined) OccurredAt() time.Time { return e.At }

type ReservationCancelled struct {
	ReservationID ReservationID      `json:"reservation_id"`
	ListingID     listings.ListingID `json:"listing_id"`
	Reason        string             `json:"reason"`
	At            time.Time          `json:"at"`
}

func (e ReservationCancelled) EventName() string     { return "reservation.cancelled" }
func (e ReservationCancelled) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationCancelled) OccurredAt() time.Time { return e.At }

type PaymentHandedOff struct {
	ReservationID ReservationID `json:"reservation_id"`
	PaymentRef    string        `json:"payment_ref"`
	State         PaymentState  `json:"state"`
	Amount        money.Money   `json:"amount"`
	At            time.Time     `json:"at"`
}

func (e PaymentHandedOff) EventName() string     { return "reservation.payment_handed_off" }
func (e PaymentHandedOff) AggregateID() string   { return string(e.ReservationID) }
func (e PaymentHandedOff) OccurredAt() time.Time { return e.At }

type PaymentFailedEvent struct {
	ReservationID ReservationID `json:"reservation_id"`
	Reason        string        `json:"reason"`
	At            time.Time     `json:"at"`
}

func (e PaymentFailedEvent) EventName() string     { return "reservation.payment_failed" }
func (e PaymentFailedEvent) AggregateID() string   { return string(e.ReservationID) }
func (e PaymentFailedEvent) OccurredAt() time.Time { return e.At }

type DocumentsStaged struct {
	ReservationID ReservationID `json:"reservation_id"`
	Count         int           `json:"count"`
	At            time.Time     `json:"at"`
}

func (e DocumentsStaged) EventName() string     { return "reservation.documents_staged" }
func (e DocumentsStaged) AggregateID() string   { return string(e.ReservationID) }
func (e DocumentsStaged) OccurredAt() time.Time { return e.At }
