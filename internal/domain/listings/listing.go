package listings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vendibook/internal/domain/hourly"
	"vendibook/internal/domain/pricing"
	"vendibook/internal/domain/shared/daterange"
	"vendibook/internal/domain/shared/events"
	"vendibook/internal/domain/shared/money"
)

var (
	ErrListingNotFound   = errors.New("listings: not found")
	ErrInvalidState      = errors.New("listings: invalid state transition")
	ErrAddressRequired   = errors.New("listings: address must be provided when activating")
	ErrTitleRequired     = errors.New("listings: title is required")
	ErrInvalidCategory   = errors.New("listings: unknown category")
	ErrInvalidSlots      = errors.New("listings: total slots must be at least 1")
	ErrTooManySlotNames  = errors.New("listings: more slot names than slots")
	ErrWindowOrder       = errors.New("listings: available to must not precede available from")
	ErrNoBookingMode     = errors.New("listings: daily or hourly booking must be enabled")
	ErrMissingRate       = errors.New("listings: enabled booking mode needs its rate")
	ErrNoFulfillment     = errors.New("listings: at least one fulfillment method required")
	ErrInvalidDelivery   = errors.New("listings: delivery fee must be non-negative")
	ErrDuplicateDocument = errors.New("listings: duplicate required document type")
	ErrConcurrentUpdate  = errors.New("listings: concurrent update")
)

type ListingID string
type HostID string

type ListingState string

const (
	ListingDraft     ListingState = "DRAFT"
	ListingActive    ListingState = "ACTIVE"
	ListingSuspended ListingState = "SUSPENDED"
)

type Category string

const (
	CategoryFoodTruck    Category = "food_truck"
	CategoryFoodTrailer  Category = "food_trailer"
	CategoryGhostKitchen Category = "ghost_kitchen"
	CategoryVendorLot    Category = "vendor_lot"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryFoodTruck, CategoryFoodTrailer, CategoryGhostKitchen, CategoryVendorLot:
		return true
	}
	return false
}

// RequiresBusinessInfo is the per-category default for the business-info checkout step.
func (c Category) RequiresBusinessInfo() bool {
	return c == CategoryGhostKitchen || c == CategoryVendorLot
}

type Mode string

const (
	ModeRent Mode = "rent"
	ModeSale Mode = "sale"
)

type FulfillmentMethod string

const (
	FulfillmentPickup   FulfillmentMethod = "pickup"
	FulfillmentDelivery FulfillmentMethod = "delivery"
	FulfillmentOnSite   FulfillmentMethod = "on_site"
)

func (m FulfillmentMethod) Valid() bool {
	switch m {
	case FulfillmentPickup, FulfillmentDelivery, FulfillmentOnSite:
		return true
	}
	return false
}

// RequiredDocument is a document type a renter must upload before booking.
type RequiredDocument struct {
	Type  string `json:"type"`
	Label string `json:"label"`
}

type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

func (a Address) Valid() bool {
	return strings.TrimSpace(a.Line1) != "" && strings.TrimSpace(a.City) != "" && strings.TrimSpace(a.Country) != ""
}

type Listing struct {
	ID                   ListingID
	Host                 HostID
	Title                string
	Description          string
	Category             Category
	Mode                 Mode
	Address              Address
	State                ListingState
	InstantBook          bool
	AvailableFrom        daterange.Date
	AvailableTo          daterange.Date
	TotalSlots           int
	SlotNames            []string
	DailyEnabled         bool
	HourlyEnabled        bool
	Rates                pricing.RateCard
	Hourly               hourly.Settings
	Fulfillment          []FulfillmentMethod
	DeliveryFee          money.Money
	RequiredDocuments    []RequiredDocument
	BusinessInfoRequired bool
	Photos               []string
	Version              int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
	events.EventRecorder
}

type ListingRepository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
}

// CreateListingParams describes a new listing. A nil BusinessInfoRequired
// falls back to the category default.
type CreateListingParams struct {
	ID                   ListingID
	Host                 HostID
	Title                string
	Description          string
	Category             Category
	Mode                 Mode
	Address              Address
	InstantBook          bool
	Photos               []string
	Inventory            InventoryParams
	BusinessInfoRequired *bool
	Now                  time.Time
}

// InventoryParams is everything that shapes what a renter can book and for how much.
type InventoryParams struct {
	AvailableFrom     daterange.Date      `json:"available_from"`
	AvailableTo       daterange.Date      `json:"available_to"`
	TotalSlots        int                 `json:"total_slots"`
	SlotNames         []string            `json:"slot_names,omitempty"`
	DailyEnabled      bool                `json:"daily_enabled"`
	HourlyEnabled     bool                `json:"hourly_enabled"`
	Rates             pricing.RateCard    `json:"rates"`
	Hourly            hourly.Settings     `json:"hourly"`
	Fulfillment       []FulfillmentMethod `json:"fulfillment"`
	DeliveryFee       money.Money         `json:"delivery_fee"`
	RequiredDocuments []RequiredDocument  `json:"required_documents,omitempty"`
}

func (p InventoryParams) normalized() InventoryParams {
	out := p
	if out.TotalSlots == 0 {
		out.TotalSlots = 1
	}
	out.SlotNames = trimNames(p.SlotNames)
	out.Fulfillment = append([]FulfillmentMethod(nil), p.Fulfillment...)
	if len(out.Fulfillment) == 0 {
		out.Fulfillment = []FulfillmentMethod{FulfillmentPickup}
	}
	out.RequiredDocuments = append([]RequiredDocument(nil), p.RequiredDocuments...)
	out.Hourly = p.Hourly.Clone()
	return out
}

func (p InventoryParams) Validate() error {
	if p.TotalSlots < 1 {
		return ErrInvalidSlots
	}
	if len(p.SlotNames) > p.TotalSlots {
		return ErrTooManySlotNames
	}
	if !p.AvailableFrom.IsZero() && !p.AvailableTo.IsZero() && p.AvailableTo.Before(p.AvailableFrom) {
		return ErrWindowOrder
	}
	if !p.DailyEnabled && !p.HourlyEnabled {
		return ErrNoBookingMode
	}
	if (p.DailyEnabled && !p.Rates.HasDaily()) || (p.HourlyEnabled && !p.Rates.HasHourly()) {
		return ErrMissingRate
	}
	if err := p.Rates.Validate(); err != nil {
		return err
	}
	if p.HourlyEnabled {
		if err := p.Hourly.Validate(); err != nil {
			return err
		}
	}
	if len(p.Fulfillment) == 0 {
		return ErrNoFulfillment
	}
	for _, m := range p.Fulfillment {
		if !m.Valid() {
			return fmt.Errorf("listings: unknown fulfillment method %q", m)
		}
	}
	if p.DeliveryFee.IsNegative() {
		return ErrInvalidDelivery
	}
	seen := make(map[string]struct{}, len(p.RequiredDocuments))
	for _, doc := range p.RequiredDocuments {
		key := strings.TrimSpace(doc.Type)
		if key == "" {
			return errors.New("listings: required document type is empty")
		}
		if _, ok := seen[key]; ok {
			return ErrDuplicateDocument
		}
		seen[key] = struct{}{}
	}
	return nil
}

func NewListing(params CreateListingParams) (*Listing, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("listings: id is required")
	}
	if strings.TrimSpace(string(params.Host)) == "" {
		return nil, errors.New("listings: host is required")
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrTitleRequired
	}
	if !params.Category.Valid() {
		return nil, ErrInvalidCategory
	}
	inventory := params.Inventory.normalized()
	if err := inventory.Validate(); err != nil {
		return nil, err
	}
	mode := params.Mode
	if mode == "" {
		mode = ModeRent
	}
	businessInfo := params.Category.RequiresBusinessInfo()
	if params.BusinessInfoRequired != nil {
		businessInfo = *params.BusinessInfoRequired
	}

	listing := &Listing{
		ID:                   params.ID,
		Host:                 params.Host,
		Title:                strings.TrimSpace(params.Title),
		Description:          strings.TrimSpace(params.Description),
		Category:             params.Category,
		Mode:                 mode,
		Address:              params.Address,
		State:                ListingDraft,
		InstantBook:          params.InstantBook,
		BusinessInfoRequired: businessInfo,
		Photos:               append([]string(nil), params.Photos...),
		CreatedAt:            params.Now.UTC(),
		UpdatedAt:            params.Now.UTC(),
	}
	listing.applyInventory(inventory)

	listing.Record(ListingCreatedEvent{
		listingEvent: listingEvent{ListingID: listing.ID, At: listing.CreatedAt},
		HostID:       listing.Host,
		Category:     listing.Category,
		Mode:         listing.Mode,
	})
	return listing, nil
}

func (l *Listing) Activate(now time.Time) error {
	if l.State == ListingActive {
		return nil
	}
	if !l.Address.Valid() {
		return ErrAddressRequired
	}
	if err := l.inventory().Validate(); err != nil {
		return err
	}
	l.State = ListingActive
	l.UpdatedAt = now.UTC()
	l.Record(ListingActivatedEvent{listingEvent: listingEvent{ListingID: l.ID, At: l.UpdatedAt}, HostID: l.Host})
	return nil
}

func (l *Listing) Suspend(now time.Time, reason string) error {
	if l.State != ListingActive {
		return ErrInvalidState
	}
	l.State = ListingSuspended
	l.UpdatedAt = now.UTC()
	l.Record(ListingSuspendedEvent{listingEvent: listingEvent{ListingID: l.ID, At: l.UpdatedAt}, Reason: reason})
	return nil
}

// UpdateInventory replaces window, slots, rates and checkout requirements.
// Sessions already started keep the profile they were opened with.
func (l *Listing) UpdateInventory(params InventoryParams, now time.Time) error {
	inventory := params.normalized()
	if err := inventory.Validate(); err != nil {
		return err
	}
	l.applyInventory(inventory)
	l.UpdatedAt = now.UTC()
	l.Record(InventoryUpdatedEvent{
		listingEvent:  listingEvent{ListingID: l.ID, At: l.UpdatedAt},
		TotalSlots:    l.TotalSlots,
		DailyEnabled:  l.DailyEnabled,
		HourlyEnabled: l.HourlyEnabled,
	})
	return nil
}

// Bookable reports whether renters may start a checkout for the listing.
func (l *Listing) Bookable() bool {
	return l.State == ListingActive && l.Mode == ModeRent
}

func (l *Listing) applyInventory(p InventoryParams) {
	l.AvailableFrom = p.AvailableFrom
	l.AvailableTo = p.AvailableTo
	l.TotalSlots = p.TotalSlots
	l.SlotNames = p.SlotNames
	l.DailyEnabled = p.DailyEnabled
	l.HourlyEnabled = p.HourlyEnabled
	l.Rates = p.Rates
	l.Hourly = p.Hourly
	l.Fulfillment = p.Fulfillment
	l.DeliveryFee = p.DeliveryFee
	l.RequiredDocuments = p.RequiredDocuments
}

func (l *Listing) inventory() InventoryParams {
	return InventoryParams{
		AvailableFrom:     l.AvailableFrom,
		AvailableTo:       l.AvailableTo,
		TotalSlots:        l.TotalSlots,
		SlotNames:         l.SlotNames,
		DailyEnabled:      l.DailyEnabled,
		HourlyEnabled:     l.HourlyEnabled,
		Rates:             l.Rates,
		Hourly:            l.Hourly,
		Fulfillment:       l.Fulfillment,
		DeliveryFee:       l.DeliveryFee,
		RequiredDocuments: l.RequiredDocuments,
	}
}

func trimNames(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = strings.TrimSpace(n)
	}
	return out
}

// Clone returns a deep copy without pending events.
func (l *Listing) Clone() *Listing {
	out := *l
	out.EventRecorder = events.EventRecorder{}
	out.SlotNames = append([]string(nil), l.SlotNames...)
	out.Hourly = l.Hourly.Clone()
	out.Fulfillment = append([]FulfillmentMethod(nil), l.Fulfillment...)
	out.RequiredDocuments = append([]RequiredDocument(nil), l.RequiredDocuments...)
	out.Photos = append([]string(nil), l.Photos...)
	return &out
}
