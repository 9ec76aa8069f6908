package mongo

import (
	"sort"
	"time"

	domainavailability "vendibook/internal/domain/availability"
	domainbooking "vendibook/internal/domain/booking"
	"vendibook/internal/domain/hourly"
	domainlistings "vendibook/internal/domain/listings"
	"vendibook/internal/domain/pricing"
	"vendibook/internal/domain/shared/daterange"
	"vendibook/internal/domain/shared/money"
)

// Dates are stored as YYYY-MM-DD strings so range filters compare lexically.

type moneyDocument struct {
	Amount   int64  `bson:"amount"`
	Currency string `bson:"currency"`
}

func toMoneyDoc(m money.Money) moneyDocument {
	return moneyDocument{Amount: m.Amount, Currency: m.Currency}
}

func (d moneyDocument) money() money.Money {
	return money.Money{Amount: d.Amount, Currency: d.Currency}
}

type rateCardDocument struct {
	Daily   moneyDocument `bson:"daily"`
	Weekly  moneyDocument `bson:"weekly"`
	Monthly moneyDocument `bson:"monthly"`
	Hourly  moneyDocument `bson:"hourly"`
}

type windowDocument struct {
	Weekday *int   `bson:"weekday,omitempty"`
	Date    string `bson:"date,omitempty"`
	Start   int    `bson:"start"`
	End     int    `bson:"end"`
}

type hourlyDocument struct {
	MinHours  int              `bson:"min_hours"`
	MaxHours  int              `bson:"max_hours"`
	Weekly    []windowDocument `bson:"weekly"`
	Overrides []windowDocument `bson:"overrides"`
}

func toHourlyDoc(s hourly.Settings) hourlyDocument {
	doc := hourlyDocument{MinHours: s.MinHours, MaxHours: s.MaxHours}
	for day, windows := range s.Weekly {
		for _, w := range windows {
			wd := int(day)
			doc.Weekly = append(doc.Weekly, windowDocument{Weekday: &wd, Start: w.StartHour, End: w.EndHour})
		}
	}
	for date, windows := range s.Overrides {
		for _, w := range windows {
			doc.Overrides = append(doc.Overrides, windowDocument{Date: date.String(), Start: w.StartHour, End: w.EndHour})
		}
	}
	sort.Slice(doc.Weekly, func(i, j int) bool {
		if *doc.Weekly[i].Weekday != *doc.Weekly[j].Weekday {
			return *doc.Weekly[i].Weekday < *doc.Weekly[j].Weekday
		}
		return doc.Weekly[i].Start < doc.Weekly[j].Start
	})
	sort.Slice(doc.Overrides, func(i, j int) bool {
		if doc.Overrides[i].Date != doc.Overrides[j].Date {
			return doc.Overrides[i].Date < doc.Overrides[j].Date
		}
		return doc.Overrides[i].Start < doc.Overrides[j].Start
	})
	return doc
}

func (d hourlyDocument) settings() (hourly.Settings, error) {
	s := hourly.Settings{MinHours: d.MinHours, MaxHours: d.MaxHours}
	for _, w := range d.Weekly {
		if w.Weekday == nil {
			continue
		}
		if s.Weekly == nil {
			s.Weekly = make(map[time.Weekday][]hourly.Window)
		}
		day := time.Weekday(*w.Weekday)
		s.Weekly[day] = append(s.Weekly[day], hourly.Window{StartHour: w.Start, EndHour: w.End})
	}
	for _, w := range d.Overrides {
		date, err := daterange.ParseDate(w.Date)
		if err != nil {
			return hourly.Settings{}, err
		}
		if s.Overrides == nil {
			s.Overrides = make(map[daterange.Date][]hourly.Window)
		}
		s.Overrides[date] = append(s.Overrides[date], hourly.Window{StartHour: w.Start, EndHour: w.End})
	}
	return s, nil
}

type listingDocument struct {
	ID                   string                             `bson:"_id"`
	Host                 string                             `bson:"host_id"`
	Title                string                             `bson:"title"`
	Description          string                             `bson:"description"`
	Category             string                             `bson:"category"`
	Mode                 string                             `bson:"mode"`
	Address              domainlistings.Address             `bson:"address"`
	State                string                             `bson:"state"`
	InstantBook          bool                               `bson:"instant_book"`
	AvailableFrom        string                             `bson:"available_from"`
	AvailableTo          string                             `bson:"available_to"`
	TotalSlots           int                                `bson:"total_slots"`
	SlotNames            []string                           `bson:"slot_names"`
	DailyEnabled         bool                               `bson:"daily_enabled"`
	HourlyEnabled        bool                               `bson:"hourly_enabled"`
	Rates                rateCardDocument                   `bson:"rates"`
	Hourly               hourlyDocument                     `bson:"hourly"`
	Fulfillment          []domainlistings.FulfillmentMethod `bson:"fulfillment"`
	DeliveryFee          moneyDocument                      `bson:"delivery_fee"`
	RequiredDocuments    []requiredDocument                 `bson:"required_documents"`
	BusinessInfoRequired bool                               `bson:"business_info_required"`
	Photos               []string                           `bson:"photos"`
	Version              int64                              `bson:"version"`
	CreatedAt            time.Time                          `bson:"created_at"`
	UpdatedAt            time.Time                          `bson:"updated_at"`
}

type requiredDocument struct {
	Type  string `bson:"type"`
	Label string `bson:"label"`
}

func newListingDocument(l *domainlistings.Listing) listingDocument {
	docs := make([]requiredDocument, 0, len(l.RequiredDocuments))
	for _, d := range l.RequiredDocuments {
		docs = append(docs, requiredDocument{Type: d.Type, Label: d.Label})
	}
	return listingDocument{
		ID:            string(l.ID),
		Host:          string(l.Host),
		Title:         l.Title,
		Description:   l.Description,
		Category:      string(l.Category),
		Mode:          string(l.Mode),
		Address:       l.Address,
		State:         string(l.State),
		InstantBook:   l.InstantBook,
		AvailableFrom: l.AvailableFrom.String(),
		AvailableTo:   l.AvailableTo.String(),
		TotalSlots:    l.TotalSlots,
		SlotNames:     l.SlotNames,
		DailyEnabled:  l.DailyEnabled,
		HourlyEnabled: l.HourlyEnabled,
		Rates: rateCardDocument{
			Daily:   toMoneyDoc(l.Rates.Daily),
			Weekly:  toMoneyDoc(l.Rates.Weekly),
			Monthly: toMoneyDoc(l.Rates.Monthly),
			Hourly:  toMoneyDoc(l.Rates.Hourly),
		},
		Hourly:               toHourlyDoc(l.Hourly),
		Fulfillment:          l.Fulfillment,
		DeliveryFee:          toMoneyDoc(l.DeliveryFee),
		RequiredDocuments:    docs,
		BusinessInfoRequired: l.BusinessInfoRequired,
		Photos:               l.Photos,
		Version:              l.Version,
		CreatedAt:            l.CreatedAt,
		UpdatedAt:            l.UpdatedAt,
	}
}

func (d listingDocument) toAggregate() (*domainlistings.Listing, error) {
	from, err := parseOptionalDate(d.AvailableFrom)
	if err != nil {
		return nil, err
	}
	to, err := parseOptionalDate(d.AvailableTo)
	if err != nil {
		return nil, err
	}
	settings, err := d.Hourly.settings()
	if err != nil {
		return nil, err
	}
	docs := make([]domainlistings.RequiredDocument, 0, len(d.RequiredDocuments))
	for _, rd := range d.RequiredDocuments {
		docs = append(docs, domainlistings.RequiredDocument{Type: rd.Type, Label: rd.Label})
	}
	return &domainlistings.Listing{
		ID:            domainlistings.ListingID(d.ID),
		Host:          domainlistings.HostID(d.Host),
		Title:         d.Title,
		Description:   d.Description,
		Category:      domainlistings.Category(d.Category),
		Mode:          domainlistings.Mode(d.Mode),
		Address:       d.Address,
		State:         domainlistings.ListingState(d.State),
		InstantBook:   d.InstantBook,
		AvailableFrom: from,
		AvailableTo:   to,
		TotalSlots:    d.TotalSlots,
		SlotNames:     d.SlotNames,
		DailyEnabled:  d.DailyEnabled,
		HourlyEnabled: d.HourlyEnabled,
		Rates: pricing.RateCard{
			Daily:   d.Rates.Daily.money(),
			Weekly:  d.Rates.Weekly.money(),
			Monthly: d.Rates.Monthly.money(),
			Hourly:  d.Rates.Hourly.money(),
		},
		Hourly:               settings,
		Fulfillment:          d.Fulfillment,
		DeliveryFee:          d.DeliveryFee.money(),
		RequiredDocuments:    docs,
		BusinessInfoRequired: d.BusinessInfoRequired,
		Photos:               d.Photos,
		Version:              d.Version,
		CreatedAt:            d.CreatedAt.UTC(),
		UpdatedAt:            d.UpdatedAt.UTC(),
	}, nil
}

type blockDocument struct {
	Start     string    `bson:"start"`
	End       string    `bson:"end"`
	Reason    string    `bson:"reason"`
	Reference string    `bson:"reference"`
	CreatedAt time.Time `bson:"created_at"`
}

type calendarDocument struct {
	ListingID string          `bson:"_id"`
	Blocks    []blockDocument `bson:"blocks"`
	Version   int64           `bson:"version"`
}

func newCalendarDocument(c *domainavailability.Calendar) calendarDocument {
	blocks := make([]blockDocument, 0, len(c.Blocks))
	for _, b := range c.Blocks {
		blocks = append(blocks, blockDocument{
			Start:     b.Span.Start.String(),
			End:       b.Span.End.String(),
			Reason:    string(b.Reason),
			Reference: b.Reference,
			CreatedAt: b.CreatedAt,
		})
	}
	return calendarDocument{ListingID: string(c.ListingID), Blocks: blocks, Version: c.Version}
}

func (d calendarDocument) toAggregate() (*domainavailability.Calendar, error) {
	cal := domainavailability.NewCalendar(domainlistings.ListingID(d.ListingID))
	cal.Version = d.Version
	for _, b := range d.Blocks {
		span, err := parseSpan(b.Start, b.End)
		if err != nil {
			return nil, err
		}
		cal.Blocks = append(cal.Blocks, domainavailability.BlockedInterval{
			Span:      span,
			Reason:    domainavailability.BlockReason(b.Reason),
			Reference: b.Reference,
			CreatedAt: b.CreatedAt.UTC(),
		})
	}
	return cal, nil
}

type hoursDocument struct {
	Start int `bson:"start"`
	End   int `bson:"end"`
}

type reservationDocument struct {
	ID              string                         `bson:"_id"`
	ListingID       string                         `bson:"listing_id"`
	HostID          string                         `bson:"host_id"`
	RenterID        string                         `bson:"renter_id"`
	SlotNumber      int                            `bson:"slot_number"`
	Start           time.Time                      `bson:"start"`
	End             time.Time                      `bson:"end"`
	Hours           *hoursDocument                 `bson:"hours,omitempty"`
	Status          string                         `bson:"status"`
	InstantBook     bool                           `bson:"instant_book"`
	Fulfillment     string                         `bson:"fulfillment"`
	DeliveryAddress string                         `bson:"delivery_address"`
	Business        *domainbooking.BusinessDetails `bson:"business,omitempty"`
	Quote           pricing.Quote                  `bson:"quote"`
	PaymentRef      string                         `bson:"payment_ref"`
	PaymentState    string                         `bson:"payment_state"`
	Documents       []domainbooking.Document       `bson:"documents"`
	DeclineReason   string                         `bson:"decline_reason"`
	CreatedAt       time.Time                      `bson:"created_at"`
	UpdatedAt       time.Time                      `bson:"updated_at"`
	Version         int64                          `bson:"version"`
}

func newReservationDocument(r *domainbooking.Reservation) reservationDocument {
	doc := reservationDocument{
		ID:              string(r.ID),
		ListingID:       string(r.ListingID),
		HostID:          string(r.HostID),
		RenterID:        r.RenterID,
		SlotNumber:      r.SlotNumber,
		Start:           r.Span.Start.Time(),
		End:             r.Span.End.Time(),
		Status:          string(r.Status),
		InstantBook:     r.InstantBook,
		Fulfillment:     string(r.Fulfillment),
		DeliveryAddress: r.DeliveryAddress,
		Business:        r.Business,
		Quote:           r.Quote,
		PaymentRef:      r.PaymentRef,
		PaymentState:    string(r.PaymentState),
		Documents:       r.Documents,
		DeclineReason:   r.DeclineReason,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		Version:         r.Version,
	}
	if r.Hours != nil {
		doc.Hours = &hoursDocument{Start: r.Hours.StartHour, End: r.Hours.EndHour}
	}
	return doc
}

// start and end are stored as BSON dates at midnight UTC.
func (d reservationDocument) span() (daterange.Span, error) {
	return daterange.NewSpan(daterange.DateOf(d.Start.UTC()), daterange.DateOf(d.End.UTC()))
}

func (d reservationDocument) hours() *hourly.Window {
	if d.Hours == nil {
		return nil
	}
	return &hourly.Window{StartHour: d.Hours.Start, EndHour: d.Hours.End}
}

func (d reservationDocument) toAggregate() (*domainbooking.Reservation, error) {
	span, err := d.span()
	if err != nil {
		return nil, err
	}
	return &domainbooking.Reservation{
		ID:              domainbooking.ReservationID(d.ID),
		ListingID:       domainlistings.ListingID(d.ListingID),
		HostID:          domainlistings.HostID(d.HostID),
		RenterID:        d.RenterID,
		SlotNumber:      d.SlotNumber,
		Span:            span,
		Hours:           d.hours(),
		Status:          domainbooking.Status(d.Status),
		InstantBook:     d.InstantBook,
		Fulfillment:     domainlistings.FulfillmentMethod(d.Fulfillment),
		DeliveryAddress: d.DeliveryAddress,
		Business:        d.Business,
		Quote:           d.Quote,
		PaymentRef:      d.PaymentRef,
		PaymentState:    domainbooking.PaymentState(d.PaymentState),
		Documents:       d.Documents,
		DeclineReason:   d.DeclineReason,
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
		Version:         d.Version,
	}, nil
}

func (d reservationDocument) existing() (domainbooking.Existing, error) {
	span, err := d.span()
	if err != nil {
		return domainbooking.Existing{}, err
	}
	return domainbooking.Existing{
		ID:         domainbooking.ReservationID(d.ID),
		SlotNumber: d.SlotNumber,
		Span:       span,
		Status:     domainbooking.Status(d.Status),
		Hours:      d.hours(),
	}, nil
}

func parseOptionalDate(raw string) (daterange.Date, error) {
	if raw == "" {
		return daterange.Date{}, nil
	}
	return daterange.ParseDate(raw)
}

func parseSpan(start, end string) (daterange.Span, error) {
	s, err := daterange.ParseDate(start)
	if err != nil {
		return daterange.Span{}, err
	}
	e, err := daterange.ParseDate(end)
	if err != nil {
		return daterange.Span{}, err
	}
	return daterange.NewSpan(s, e)
}
