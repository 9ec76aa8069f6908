package listings

import "time"

// listingEvent carries the fields every listing event shares.
type listingEvent struct {
	ListingID ListingID `json:"listing_id"`
	At        time.Time `json:"at"`
}

func (e listingEvent) AggregateID() string   { return string(e.ListingID) }
func (e listingEvent) OccurredAt() time.Time { return e.At }

type ListingCreatedEvent struct {
	listingEvent
	HostID   HostID   `json:"host_id"`
	Category Category `json:"category"`
	Mode     Mode     `json:"mode"`
}

func (ListingCreatedEvent) EventName() string { return "listing.created" }

type ListingActivatedEvent struct {
	listingEvent
	HostID HostID `json:"host_id"`
}

func (ListingActivatedEvent) EventName() string { return "listing.activated" }

type ListingSuspendedEvent struct {
	listingEvent
	Reason string `json:"reason"`
}

func (ListingSuspendedEvent) EventName() string { return "listing.suspended" }

// InventoryUpdatedEvent tells consumers the bookable shape of a listing
// changed; calendars they cache for it are stale.
type InventoryUpdatedEvent struct {
	listingEvent
	TotalSlots    int  `json:"total_slots"`
	DailyEnabled  bool `json:"daily_enabled"`
	HourlyEnabled bool `json:"hourly_enabled"`
}

func (InventoryUpdatedEvent) EventName() string { return "listing.inventory_updated" }
