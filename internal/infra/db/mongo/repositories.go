package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainavailability "vendibook/internal/domain/availability"
	domainbooking "vendibook/internal/domain/booking"
	domainlistings "vendibook/internal/domain/listings"
	"vendibook/internal/domain/shared/daterange"
)

type ListingRepository struct {
	col *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	return &ListingRepository{col: db.Collection(colListings)}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var doc listingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainlistings.ErrListingNotFound
		}
		return nil, err
	}
	return doc.toAggregate()
}

func (r *ListingRepository) Save(ctx context.Context, l *domainlistings.Listing) error {
	doc := newListingDocument(l)
	next, err := saveVersioned(ctx, r.col, doc.ID, l.Version, &doc.Version, doc)
	if errors.Is(err, errStaleVersion) {
		return domainlistings.ErrConcurrentUpdate
	}
	if err != nil {
		return err
	}
	l.Version = next
	return nil
}

type CalendarRepository struct {
	col *mongo.Collection
}

func NewCalendarRepository(db *mongo.Database) *CalendarRepository {
	return &CalendarRepository{col: db.Collection(colCalendars)}
}

func (r *CalendarRepository) Calendar(ctx context.Context, id domainlistings.ListingID) (*domainavailability.Calendar, error) {
	var doc calendarDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainavailability.ErrCalendarNotFound
		}
		return nil, err
	}
	return doc.toAggregate()
}

func (r *CalendarRepository) Save(ctx context.Context, c *domainavailability.Calendar) error {
	doc := newCalendarDocument(c)
	next, err := saveVersioned(ctx, r.col, doc.ListingID, c.Version, &doc.Version, doc)
	if errors.Is(err, errStaleVersion) {
		return domainavailability.ErrConcurrentUpdate
	}
	if err != nil {
		return err
	}
	c.Version = next
	return nil
}

var errStaleVersion = errors.New("mongo: stale version")

// saveVersioned upserts doc when the stored version still equals current. A
// newer stored version makes the upsert collide on _id.
func saveVersioned(ctx context.Context, col *mongo.Collection, id string, current int64, version *int64, doc any) (int64, error) {
	*version = current + 1
	filter := bson.M{"_id": id, "version": current}
	res, err := col.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return 0, errStaleVersion
		}
		return 0, err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return 0, errStaleVersion
	}
	return current + 1, nil
}

// ReservationRepository stores reservations next to one claim document per
// (listing, slot, date, hour) they hold. The claim _id is unique, so two
// overlapping reservations cannot both commit.
type ReservationRepository struct {
	col    *mongo.Collection
	claims *mongo.Collection
}

func NewReservationRepository(db *mongo.Database) *ReservationRepository {
	return &ReservationRepository{col: db.Collection(colReservations), claims: db.Collection(colClaims)}
}

func (r *ReservationRepository) ByID(ctx context.Context, id domainbooking.ReservationID) (*domainbooking.Reservation, error) {
	var doc reservationDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrReservationNotFound
		}
		return nil, err
	}
	return doc.toAggregate()
}

func (r *ReservationRepository) Create(ctx context.Context, res *domainbooking.Reservation) error {
	res.Version = 1
	doc := newReservationDocument(res)
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainbooking.ErrConcurrentUpdate
		}
		return err
	}
	if !res.Status.HoldsInventory() {
		return nil
	}
	if err := r.ensureNoCrossSlotClaims(ctx, res); err != nil {
		return err
	}
	claims := claimDocuments(res)
	if _, err := r.claims.InsertMany(ctx, claims); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainbooking.ErrSlotTaken
		}
		return fmt.Errorf("mongo: insert claims: %w", err)
	}
	return nil
}

// Save writes the reservation and drops its claims once it stops holding inventory.
func (r *ReservationRepository) Save(ctx context.Context, res *domainbooking.Reservation) error {
	doc := newReservationDocument(res)
	doc.Version = res.Version + 1
	result, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID, "version": res.Version}, doc)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return domainbooking.ErrConcurrentUpdate
	}
	res.Version = doc.Version
	if !res.Status.HoldsInventory() {
		if _, err := r.claims.DeleteMany(ctx, bson.M{"reservation_id": doc.ID}); err != nil {
			return fmt.Errorf("mongo: release claims: %w", err)
		}
	}
	return nil
}

func (r *ReservationRepository) ActiveForListing(ctx context.Context, listingID domainlistings.ListingID, window daterange.Span) ([]domainbooking.Existing, error) {
	filter := bson.M{
		"listing_id": string(listingID),
		"status":     bson.M{"$in": activeStatuses()},
		"start":      bson.M{"$lte": window.End.Time()},
		"end":        bson.M{"$gte": window.Start.Time()},
	}
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "start", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]domainbooking.Existing, 0)
	for cur.Next(ctx) {
		var doc reservationDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		ex, err := doc.existing()
		if err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	return out, cur.Err()
}

func (r *ReservationRepository) ListByRenter(ctx context.Context, renterID string) ([]*domainbooking.Reservation, error) {
	cur, err := r.col.Find(ctx, bson.M{"renter_id": renterID}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]*domainbooking.Reservation, 0)
	for cur.Next(ctx) {
		var doc reservationDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		res, err := doc.toAggregate()
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, cur.Err()
}

type claimDocument struct {
	ID            string    `bson:"_id"`
	ReservationID string    `bson:"reservation_id"`
	ListingID     string    `bson:"listing_id"`
	Slot          int       `bson:"slot"`
	Date          time.Time `bson:"date"`
	Hour          int       `bson:"hour"`
}

// ensureNoCrossSlotClaims rejects hours already claimed under a different
// slot key when either side is untagged. Slot 0 holds every slot, so the
// unique _id alone only catches same-slot collisions.
func (r *ReservationRepository) ensureNoCrossSlotClaims(ctx context.Context, res *domainbooking.Reservation) error {
	filter := crossSlotFilter(res)
	n, err := r.claims.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("mongo: check claims: %w", err)
	}
	if n > 0 {
		return domainbooking.ErrSlotTaken
	}
	return nil
}

// crossSlotFilter matches claims on the reservation's dates and hours held by
// another slot key that overlaps it: the untagged key for a tagged reservation,
// any tagged key for an untagged one.
func crossSlotFilter(res *domainbooking.Reservation) bson.M {
	first, last := claimHours(res)
	slot := bson.M{"$eq": 0}
	if res.SlotNumber == 0 {
		slot = bson.M{"$ne": 0}
	}
	return bson.M{
		"listing_id": string(res.ListingID),
		"slot":       slot,
		"date":       bson.M{"$gte": res.Span.Start.Time(), "$lte": res.Span.End.Time()},
		"hour":       bson.M{"$gte": first, "$lt": last},
	}
}

func claimHours(res *domainbooking.Reservation) (int, int) {
	if res.Hours != nil {
		return res.Hours.StartHour, res.Hours.EndHour
	}
	return 0, 24
}

// claimDocuments expands a reservation into its hour claims. A full-day
// reservation claims every hour of every date so it collides with any hourly
// reservation on those dates.
func claimDocuments(res *domainbooking.Reservation) []any {
	first, last := claimHours(res)
	dates := res.Span.Dates()
	out := make([]any, 0, len(dates)*(last-first))
	for _, d := range dates {
		for h := first; h < last; h++ {
			out = append(out, claimDocument{
				ID:            ClaimKey(res.ListingID, res.SlotNumber, d, h),
				ReservationID: string(res.ID),
				ListingID:     string(res.ListingID),
				Slot:          res.SlotNumber,
				Date:          d.Time(),
				Hour:          h,
			})
		}
	}
	return out
}

// ClaimKey identifies one bookable hour of one slot.
func ClaimKey(listing domainlistings.ListingID, slot int, date daterange.Date, hour int) string {
	return fmt.Sprintf("%s|%d|%s|%02d", listing, slot, date, hour)
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
