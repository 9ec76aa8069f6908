package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	domainavailability "vendibook/internal/domain/availability"
	domainbooking "vendibook/internal/domain/booking"
	"vendibook/internal/domain/hourly"
	domainlistings "vendibook/internal/domain/listings"
	"vendibook/internal/domain/pricing"
	"vendibook/internal/domain/shared/daterange"
	"vendibook/internal/domain/shared/events"
	"vendibook/internal/domain/shared/money"
)

const (
	codeExclusionViolation = "23P01"
	codeUniqueViolation    = "23505"
)

// listingRecord mirrors domainlistings.Listing field for field so the two
// convert directly; it only adds the JSON names of the body column.
type listingRecord struct {
	ID                   domainlistings.ListingID           `json:"id"`
	Host                 domainlistings.HostID              `json:"host_id"`
	Title                string                             `json:"title"`
	Description          string                             `json:"description"`
	Category             domainlistings.Category            `json:"category"`
	Mode                 domainlistings.Mode                `json:"mode"`
	Address              domainlistings.Address             `json:"address"`
	State                domainlistings.ListingState        `json:"state"`
	InstantBook          bool                               `json:"instant_book"`
	AvailableFrom        daterange.Date                     `json:"available_from"`
	AvailableTo          daterange.Date                     `json:"available_to"`
	TotalSlots           int                                `json:"total_slots"`
	SlotNames            []string                           `json:"slot_names"`
	DailyEnabled         bool                               `json:"daily_enabled"`
	HourlyEnabled        bool                               `json:"hourly_enabled"`
	Rates                pricing.RateCard                   `json:"rates"`
	Hourly               hourly.Settings                    `json:"hourly"`
	Fulfillment          []domainlistings.FulfillmentMethod `json:"fulfillment"`
	DeliveryFee          money.Money                        `json:"delivery_fee"`
	RequiredDocuments    []domainlistings.RequiredDocument  `json:"required_documents"`
	BusinessInfoRequired bool                               `json:"business_info_required"`
	Photos               []string                           `json:"photos"`
	Version              int64                              `json:"version"`
	CreatedAt            time.Time                          `json:"created_at"`
	UpdatedAt            time.Time                          `json:"updated_at"`
	events.EventRecorder `json:"-"`
}

type ListingRepository struct {
	q querier
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var body []byte
	err := r.q.QueryRowxContext(ctx, `SELECT body FROM listings WHERE id = $1`, string(id)).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainlistings.ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec listingRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("postgres: decode listing: %w", err)
	}
	l := domainlistings.Listing(rec)
	l.EventRecorder = events.EventRecorder{}
	return &l, nil
}

func (r *ListingRepository) Save(ctx context.Context, l *domainlistings.Listing) error {
	rec := listingRecord(*l)
	rec.Version = l.Version + 1
	body, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	var res sql.Result
	if l.Version == 0 {
		res, err = r.q.ExecContext(ctx, `
			INSERT INTO listings (id, host_id, state, body, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO NOTHING`,
			string(l.ID), string(l.Host), string(l.State), body, rec.Version, l.CreatedAt, l.UpdatedAt)
	} else {
		res, err = r.q.ExecContext(ctx, `
			UPDATE listings SET host_id = $2, state = $3, body = $4, version = $5, updated_at = $6
			WHERE id = $1 AND version = $7`,
			string(l.ID), string(l.Host), string(l.State), body, rec.Version, l.UpdatedAt, l.Version)
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domainlistings.ErrConcurrentUpdate
	}
	l.Version = rec.Version
	return nil
}

type CalendarRepository struct {
	q querier
}

func (r *CalendarRepository) Calendar(ctx context.Context, id domainlistings.ListingID) (*domainavailability.Calendar, error) {
	var row struct {
		Blocks  []byte `db:"blocks"`
		Version int64  `db:"version"`
	}
	err := r.q.GetContext(ctx, &row, `SELECT blocks, version FROM calendars WHERE listing_id = $1`, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainavailability.ErrCalendarNotFound
	}
	if err != nil {
		return nil, err
	}
	cal := domainavailability.NewCalendar(id)
	cal.Version = row.Version
	if err := json.Unmarshal(row.Blocks, &cal.Blocks); err != nil {
		return nil, fmt.Errorf("postgres: decode calendar: %w", err)
	}
	return cal, nil
}

func (r *CalendarRepository) Save(ctx context.Context, c *domainavailability.Calendar) error {
	blocks := c.Blocks
	if blocks == nil {
		blocks = []domainavailability.BlockedInterval{}
	}
	body, err := json.Marshal(blocks)
	if err != nil {
		return err
	}
	next := c.Version + 1
	var res sql.Result
	if c.Version == 0 {
		res, err = r.q.ExecContext(ctx, `
			INSERT INTO calendars (listing_id, blocks, version) VALUES ($1, $2, $3)
			ON CONFLICT (listing_id) DO NOTHING`,
			string(c.ListingID), body, next)
	} else {
		res, err = r.q.ExecContext(ctx, `
			UPDATE calendars SET blocks = $2, version = $3 WHERE listing_id = $1 AND version = $4`,
			string(c.ListingID), body, next, c.Version)
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domainavailability.ErrConcurrentUpdate
	}
	c.Version = next
	return nil
}

// reservationDetails holds the columns nothing filters on.
type reservationDetails struct {
	InstantBook     bool                             `json:"instant_book"`
	Fulfillment     domainlistings.FulfillmentMethod `json:"fulfillment"`
	DeliveryAddress string                           `json:"delivery_address,omitempty"`
	Business        *domainbooking.BusinessDetails   `json:"business,omitempty"`
	Quote           pricing.Quote                    `json:"quote"`
	PaymentRef      string                           `json:"payment_ref,omitempty"`
	Documents       []domainbooking.Document         `json:"documents,omitempty"`
	DeclineReason   string                           `json:"decline_reason,omitempty"`
}

type reservationRow struct {
	ID           string        `db:"id"`
	ListingID    string        `db:"listing_id"`
	HostID       string        `db:"host_id"`
	RenterID     string        `db:"renter_id"`
	SlotNumber   int           `db:"slot_number"`
	StartDate    time.Time     `db:"start_date"`
	EndDate      time.Time     `db:"end_date"`
	StartHour    sql.NullInt64 `db:"start_hour"`
	EndHour      sql.NullInt64 `db:"end_hour"`
	Status       string        `db:"status"`
	PaymentState string        `db:"payment_state"`
	Details      []byte        `db:"details"`
	CreatedAt    time.Time     `db:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at"`
	Version      int64         `db:"version"`
}

const reservationColumns = `id, listing_id, host_id, renter_id, slot_number, start_date, end_date,
	start_hour, end_hour, status, payment_state, details, created_at, updated_at, version`

func (row reservationRow) span() daterange.Span {
	return daterange.Span{Start: daterange.DateOf(row.StartDate.UTC()), End: daterange.DateOf(row.EndDate.UTC())}
}

func (row reservationRow) hours() *hourly.Window {
	if !row.StartHour.Valid || !row.EndHour.Valid {
		return nil
	}
	return &hourly.Window{StartHour: int(row.StartHour.Int64), EndHour: int(row.EndHour.Int64)}
}

func (row reservationRow) existing() domainbooking.Existing {
	return domainbooking.Existing{
		ID:         domainbooking.ReservationID(row.ID),
		SlotNumber: row.SlotNumber,
		Span:       row.span(),
		Status:     domainbooking.Status(row.Status),
		Hours:      row.hours(),
	}
}

func (row reservationRow) toAggregate() (*domainbooking.Reservation, error) {
	var details reservationDetails
	if err := json.Unmarshal(row.Details, &details); err != nil {
		return nil, fmt.Errorf("postgres: decode reservation: %w", err)
	}
	return &domainbooking.Reservation{
		ID:              domainbooking.ReservationID(row.ID),
		ListingID:       domainlistings.ListingID(row.ListingID),
		HostID:          domainlistings.HostID(row.HostID),
		RenterID:        row.RenterID,
		SlotNumber:      row.SlotNumber,
		Span:            row.span(),
		Hours:           row.hours(),
		Status:          domainbooking.Status(row.Status),
		InstantBook:     details.InstantBook,
		Fulfillment:     details.Fulfillment,
		DeliveryAddress: details.DeliveryAddress,
		Business:        details.Business,
		Quote:           details.Quote,
		PaymentRef:      details.PaymentRef,
		PaymentState:    domainbooking.PaymentState(row.PaymentState),
		Documents:       details.Documents,
		DeclineReason:   details.DeclineReason,
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
		Version:         row.Version,
	}, nil
}

func detailsOf(r *domainbooking.Reservation) ([]byte, error) {
	return json.Marshal(reservationDetails{
		InstantBook:     r.InstantBook,
		Fulfillment:     r.Fulfillment,
		DeliveryAddress: r.DeliveryAddress,
		Business:        r.Business,
		Quote:           r.Quote,
		PaymentRef:      r.PaymentRef,
		Documents:       r.Documents,
		DeclineReason:   r.DeclineReason,
	})
}

// Period renders the half-open instant range a reservation occupies as a
// tsrange literal: whole days for daily reservations, the hour window otherwise.
func Period(span daterange.Span, hours *hourly.Window) string {
	tr := span.TimeRange()
	if hours != nil {
		tr = daterange.TimeRange{Start: span.Start.At(hours.StartHour), End: span.Start.At(hours.EndHour)}
	}
	const layout = "2006-01-02 15:04:05"
	return fmt.Sprintf("[%s,%s)", tr.Start.Format(layout), tr.End.Format(layout))
}

// ReservationRepository relies on the reservations_no_overlap exclusion
// constraint for slot exclusivity.
type ReservationRepository struct {
	q querier
}

func (r *ReservationRepository) ByID(ctx context.Context, id domainbooking.ReservationID) (*domainbooking.Reservation, error) {
	var row reservationRow
	err := r.q.GetContext(ctx, &row, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainbooking.ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toAggregate()
}

func (r *ReservationRepository) Create(ctx context.Context, res *domainbooking.Reservation) error {
	details, err := detailsOf(res)
	if err != nil {
		return err
	}
	startHour, endHour := nullHours(res.Hours)
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO reservations (`+reservationColumns+`, period)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16::tsrange)`,
		string(res.ID), string(res.ListingID), string(res.HostID), res.RenterID, res.SlotNumber,
		res.Span.Start.Time(), res.Span.End.Time(), startHour, endHour,
		string(res.Status), string(res.PaymentState), details, res.CreatedAt, res.UpdatedAt, int64(1),
		Period(res.Span, res.Hours),
	)
	if err != nil {
		return translate(err)
	}
	res.Version = 1
	return nil
}

// Save updates mutable state. Moving out of pending/approved takes the row out
// of the exclusion constraint's WHERE clause and frees the slot.
func (r *ReservationRepository) Save(ctx context.Context, res *domainbooking.Reservation) error {
	details, err := detailsOf(res)
	if err != nil {
		return err
	}
	next := res.Version + 1
	result, err := r.q.ExecContext(ctx, `
		UPDATE reservations
		SET status = $2, payment_state = $3, details = $4, updated_at = $5, version = $6
		WHERE id = $1 AND version = $7`,
		string(res.ID), string(res.Status), string(res.PaymentState), details, res.UpdatedAt, next, res.Version)
	if err != nil {
		return translate(err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domainbooking.ErrConcurrentUpdate
	}
	res.Version = next
	return nil
}

func (r *ReservationRepository) ActiveForListing(ctx context.Context, listingID domainlistings.ListingID, window daterange.Span) ([]domainbooking.Existing, error) {
	var rows []reservationRow
	err := r.q.SelectContext(ctx, &rows, `
		SELECT `+reservationColumns+` FROM reservations
		WHERE listing_id = $1 AND status = ANY($2) AND start_date <= $3 AND end_date >= $4
		ORDER BY start_date, id`,
		string(listingID), pq.Array(activeStatuses()), window.End.Time(), window.Start.Time())
	if err != nil {
		return nil, err
	}
	out := make([]domainbooking.Existing, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.existing())
	}
	return out, nil
}

func (r *ReservationRepository) ListByRenter(ctx context.Context, renterID string) ([]*domainbooking.Reservation, error) {
	var rows []reservationRow
	err := r.q.SelectContext(ctx, &rows, `
		SELECT `+reservationColumns+` FROM reservations WHERE renter_id = $1 ORDER BY created_at DESC`, renterID)
	if err != nil {
		return nil, err
	}
	out := make([]*domainbooking.Reservation, 0, len(rows))
	for _, row := range rows {
		res, err := row.toAggregate()
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func nullHours(w *hourly.Window) (sql.NullInt64, sql.NullInt64) {
	if w == nil {
		return sql.NullInt64{}, sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(w.StartHour), Valid: true}, sql.NullInt64{Int64: int64(w.EndHour), Valid: true}
}

func translate(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeExclusionViolation:
			return domainbooking.ErrSlotTaken
		case codeUniqueViolation:
			return domainbooking.ErrConcurrentUpdate
		}
	}
	return err
}

func activeStatuses() []string {
	statuses := domainbooking.ActiveStatuses()
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

var (
	_ domainlistings.ListingRepository = (*ListingRepository)(nil)
	_ domainavailability.Repository    = (*CalendarRepository)(nil)
	_ domainbooking.Repository         = (*ReservationRepository)(nil)
)
