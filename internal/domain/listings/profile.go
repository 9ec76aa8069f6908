package listings

import (
	"errors"
	"fmt"

	"vendibook/internal/domain/hourly"
	"vendibook/internal/domain/pricing"
	"vendibook/internal/domain/shared/daterange"
	"vendibook/internal/domain/shared/money"
)

var ErrMalformedProfile = errors.New("listings: malformed availability profile")

// AvailabilityProfile is the read-only snapshot of a listing a checkout session works against.
type AvailabilityProfile struct {
	ListingID            ListingID           `json:"listing_id"`
	HostID               HostID              `json:"host_id"`
	Title                string              `json:"title"`
	Category             Category            `json:"category"`
	InstantBook          bool                `json:"instant_book"`
	AvailableFrom        daterange.Date      `json:"available_from"`
	AvailableTo          daterange.Date      `json:"available_to"`
	TotalSlots           int                 `json:"total_slots"`
	SlotNames            []string            `json:"slot_names,omitempty"`
	DailyEnabled         bool                `json:"daily_enabled"`
	HourlyEnabled        bool                `json:"hourly_enabled"`
	Rates                pricing.RateCard    `json:"rates"`
	Hourly               hourly.Settings     `json:"hourly"`
	Fulfillment          []FulfillmentMethod `json:"fulfillment"`
	DeliveryFee          money.Money         `json:"delivery_fee"`
	RequiredDocuments    []RequiredDocument  `json:"required_documents,omitempty"`
	BusinessInfoRequired bool                `json:"business_info_required"`
}

// AvailabilityProfile copies the booking-relevant facts of the listing.
func (l *Listing) AvailabilityProfile() AvailabilityProfile {
	return AvailabilityProfile{
		ListingID:            l.ID,
		HostID:               l.Host,
		Title:                l.Title,
		Category:             l.Category,
		InstantBook:          l.InstantBook,
		AvailableFrom:        l.AvailableFrom,
		AvailableTo:          l.AvailableTo,
		TotalSlots:           l.TotalSlots,
		SlotNames:            append([]string(nil), l.SlotNames...),
		DailyEnabled:         l.DailyEnabled,
		HourlyEnabled:        l.HourlyEnabled,
		Rates:                l.Rates,
		Hourly:               l.Hourly.Clone(),
		Fulfillment:          append([]FulfillmentMethod(nil), l.Fulfillment...),
		DeliveryFee:          l.DeliveryFee,
		RequiredDocuments:    append([]RequiredDocument(nil), l.RequiredDocuments...),
		BusinessInfoRequired: l.BusinessInfoRequired,
	}
}

func (p AvailabilityProfile) Validate() error {
	if p.TotalSlots < 1 {
		return fmt.Errorf("%w: total slots %d", ErrMalformedProfile, p.TotalSlots)
	}
	if len(p.SlotNames) > p.TotalSlots {
		return fmt.Errorf("%w: %d slot names for %d slots", ErrMalformedProfile, len(p.SlotNames), p.TotalSlots)
	}
	return nil
}

func (p AvailabilityProfile) MultiSlot() bool {
	return p.TotalSlots > 1
}

// SlotName returns the configured name of slot n (1-based), or "Space n".
func (p AvailabilityProfile) SlotName(n int) string {
	if n >= 1 && n <= len(p.SlotNames) && p.SlotNames[n-1] != "" {
		return p.SlotNames[n-1]
	}
	return fmt.Sprintf("Space %d", n)
}

// InWindow reports whether d lies within the optional host availability bounds.
func (p AvailabilityProfile) InWindow(d daterange.Date) bool {
	if !p.AvailableFrom.IsZero() && d.Before(p.AvailableFrom) {
		return false
	}
	if !p.AvailableTo.IsZero() && d.After(p.AvailableTo) {
		return false
	}
	return true
}

func (p AvailabilityProfile) Supports(method FulfillmentMethod) bool {
	for _, m := range p.Fulfillment {
		if m == method {
			return true
		}
	}
	return false
}

func (p AvailabilityProfile) DocumentRequired(docType string) bool {
	for _, d := range p.RequiredDocuments {
		if d.Type == docType {
			return true
		}
	}
	return false
}
