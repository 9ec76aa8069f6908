package dto

import (
	"time"

	domainbooking "vendibook/internal/domain/booking"
	"vendibook/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{
		Amount:   value.Amount,
		Currency: value.Currency,
	}
}

type ReservationDocument struct {
	Type      string `json:"type"`
	ObjectKey string `json:"object_key"`
	FileName  string `json:"file_name"`
}

type Reservation struct {
	ID              string                `json:"id"`
	ListingID       string                `json:"listing_id"`
	RenterID        string                `json:"renter_id"`
	SlotNumber      int                   `json:"slot_number,omitempty"`
	Start           string                `json:"start_date"`
	End             string                `json:"end_date"`
	StartHour       *int                  `json:"start_hour,omitempty"`
	EndHour         *int                  `json:"end_hour,omitempty"`
	Status          string                `json:"status"`
	InstantBook     bool                  `json:"instant_book"`
	Fulfillment     string                `json:"fulfillment"`
	DeliveryAddress string                `json:"delivery_address,omitempty"`
	PaymentState    string                `json:"payment_state"`
	Quote           Quote                 `json:"quote"`
	Documents       []ReservationDocument `json:"documents,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
}

func MapReservation(r *domainbooking.Reservation) Reservation {
	if r == nil {
		return Reservation{}
	}
	out := Reservation{
		ID:              string(r.ID),
		ListingID:       string(r.ListingID),
		RenterID:        r.RenterID,
		SlotNumber:      r.SlotNumber,
		Start:           r.Span.Start.String(),
		End:             r.Span.End.String(),
		Status:          string(r.Status),
		InstantBook:     r.InstantBook,
		Fulfillment:     string(r.Fulfillment),
		DeliveryAddress: r.DeliveryAddress,
		PaymentState:    string(r.PaymentState),
		Quote:           MapQuote(r.Quote),
		CreatedAt:       r.CreatedAt,
	}
	if r.Hours != nil {
		start, end := r.Hours.StartHour, r.Hours.EndHour
		out.StartHour, out.EndHour = &start, &end
	}
	for _, d := range r.Documents {
		out.Documents = append(out.Documents, ReservationDocument{Type: d.Type, ObjectKey: d.ObjectKey, FileName: d.FileName})
	}
	return out
}

type ReservationCollection struct {
	Items []Reservation `json:"items"`
}
