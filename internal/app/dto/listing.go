package dto

import (
	"time"

	domainlistings "vendibook/internal/domain/listings"
)

type RateCard struct {
	Daily   MoneyDTO `json:"daily"`
	Weekly  MoneyDTO `json:"weekly"`
	Monthly MoneyDTO `json:"monthly"`
	Hourly  MoneyDTO `json:"hourly"`
}

type ListingDocument struct {
	Type  string `json:"type"`
	Label string `json:"label"`
}

type Listing struct {
	ID                   string            `json:"id"`
	HostID               string            `json:"host_id"`
	Title                string            `json:"title"`
	Description          string            `json:"description,omitempty"`
	Category             string            `json:"category"`
	State                string            `json:"state"`
	City                 string            `json:"city"`
	Region               string            `json:"region,omitempty"`
	Country              string            `json:"country"`
	InstantBook          bool              `json:"instant_book"`
	AvailableFrom        string            `json:"available_from,omitempty"`
	AvailableTo          string            `json:"available_to,omitempty"`
	TotalSlots           int               `json:"total_slots"`
	SlotNames            []string          `json:"slot_names"`
	DailyEnabled         bool              `json:"daily_enabled"`
	HourlyEnabled        bool              `json:"hourly_enabled"`
	MinHours             int               `json:"min_hours,omitempty"`
	MaxHours             int               `json:"max_hours,omitempty"`
	Rates                RateCard          `json:"rates"`
	Fulfillment          []string          `json:"fulfillment"`
	DeliveryFee          MoneyDTO          `json:"delivery_fee"`
	RequiredDocuments    []ListingDocument `json:"required_documents"`
	BusinessInfoRequired bool              `json:"business_info_required"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

func MapListing(l *domainlistings.Listing) Listing {
	if l == nil {
		return Listing{}
	}
	profile := l.AvailabilityProfile()
	out := Listing{
		ID:            string(l.ID),
		HostID:        string(l.Host),
		Title:         l.Title,
		Description:   l.Description,
		Category:      string(l.Category),
		State:         string(l.State),
		City:          l.Address.City,
		Region:        l.Address.Region,
		Country:       l.Address.Country,
		InstantBook:   l.InstantBook,
		AvailableFrom: l.AvailableFrom.String(),
		AvailableTo:   l.AvailableTo.String(),
		TotalSlots:    l.TotalSlots,
		SlotNames:     make([]string, 0, l.TotalSlots),
		DailyEnabled:  l.DailyEnabled,
		HourlyEnabled: l.HourlyEnabled,
		Rates: RateCard{
			Daily:   MapMoney(l.Rates.Daily),
			Weekly:  MapMoney(l.Rates.Weekly),
			Monthly: MapMoney(l.Rates.Monthly),
			Hourly:  MapMoney(l.Rates.Hourly),
		},
		Fulfillment:          make([]string, 0, len(l.Fulfillment)),
		DeliveryFee:          MapMoney(l.DeliveryFee),
		RequiredDocuments:    make([]ListingDocument, 0, len(l.RequiredDocuments)),
		BusinessInfoRequired: l.BusinessInfoRequired,
		UpdatedAt:            l.UpdatedAt,
	}
	for n := 1; n <= l.TotalSlots; n++ {
		out.SlotNames = append(out.SlotNames, profile.SlotName(n))
	}
	if l.HourlyEnabled {
		out.MinHours, out.MaxHours = l.Hourly.Bounds()
	}
	for _, m := range l.Fulfillment {
		out.Fulfillment = append(out.Fulfillment, string(m))
	}
	for _, d := range l.RequiredDocuments {
		out.RequiredDocuments = append(out.RequiredDocuments, ListingDocument{Type: d.Type, Label: d.Label})
	}
	return out
}
