package memory

import (
	"context"
	"sort"
	"sync"

	domainavailability "vendibook/internal/domain/availability"
	domainbooking "vendibook/internal/domain/booking"
	domainlistings "vendibook/internal/domain/listings"
	"vendibook/internal/domain/shared/daterange"
)

// ListingRepository keeps listings in memory. Values are copied on the way in
// and out so callers never share state.
type ListingRepository struct {
	mu    sync.RWMutex
	items map[domainlistings.ListingID]*domainlistings.Listing
}

func NewListingRepository() *ListingRepository {
	return &ListingRepository{items: make(map[domainlistings.ListingID]*domainlistings.Listing)}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	listing, ok := r.items[id]
	if !ok {
		return nil, domainlistings.ErrListingNotFound
	}
	return listing.Clone(), nil
}

func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	_, err := r.save(listing)
	return err
}

// save stores listing and returns the previous value (nil when new).
func (r *ListingRepository) save(listing *domainlistings.Listing) (*domainlistings.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.items[listing.ID]
	if prev != nil && prev.Version != listing.Version {
		return nil, domainlistings.ErrConcurrentUpdate
	}
	listing.Version++
	r.items[listing.ID] = listing.Clone()
	return prev, nil
}

func (r *ListingRepository) restore(id domainlistings.ListingID, prev *domainlistings.Listing) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev == nil {
		delete(r.items, id)
		return
	}
	r.items[id] = prev
}

// List returns every listing ordered by id.
func (r *ListingRepository) List(ctx context.Context) ([]*domainlistings.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainlistings.Listing, 0, len(r.items))
	for _, l := range r.items {
		out = append(out, l.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type CalendarRepository struct {
	mu    sync.RWMutex
	items map[domainlistings.ListingID]*domainavailability.Calendar
}

func NewCalendarRepository() *CalendarRepository {
	return &CalendarRepository{items: make(map[domainlistings.ListingID]*domainavailability.Calendar)}
}

func (r *CalendarRepository) Calendar(ctx context.Context, id domainlistings.ListingID) (*domainavailability.Calendar, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cal, ok := r.items[id]
	if !ok {
		return nil, domainavailability.ErrCalendarNotFound
	}
	return cal.Clone(), nil
}

func (r *CalendarRepository) Save(ctx context.Context, calendar *domainavailability.Calendar) error {
	_, err := r.save(calendar)
	return err
}

func (r *CalendarRepository) save(calendar *domainavailability.Calendar) (*domainavailability.Calendar, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.items[calendar.ListingID]
	current := int64(0)
	if prev != nil {
		current = prev.Version
	}
	if current != calendar.Version {
		return nil, domainavailability.ErrConcurrentUpdate
	}
	calendar.Version++
	r.items[calendar.ListingID] = calendar.Clone()
	return prev, nil
}

func (r *CalendarRepository) restore(id domainlistings.ListingID, prev *domainavailability.Calendar) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev == nil {
		delete(r.items, id)
		return
	}
	r.items[id] = prev
}

// ReservationRepository enforces slot exclusivity with a single mutex around
// the conflict check and the insert.
type ReservationRepository struct {
	mu    sync.RWMutex
	items map[domainbooking.ReservationID]*domainbooking.Reservation
}

func NewReservationRepository() *ReservationRepository {
	return &ReservationRepository{items: make(map[domainbooking.ReservationID]*domainbooking.Reservation)}
}

func (r *ReservationRepository) ByID(ctx context.Context, id domainbooking.ReservationID) (*domainbooking.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.items[id]
	if !ok {
		return nil, domainbooking.ErrReservationNotFound
	}
	return res.Clone(), nil
}

func (r *ReservationRepository) Create(ctx context.Context, res *domainbooking.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[res.ID]; ok {
		return domainbooking.ErrConcurrentUpdate
	}
	candidate := res.Existing()
	for _, other := range r.items {
		if other.ListingID != res.ListingID {
			continue
		}
		if domainbooking.Conflicts(candidate, other.Existing()) {
			return domainbooking.ErrSlotTaken
		}
	}
	res.Version = 1
	r.items[res.ID] = res.Clone()
	return nil
}

func (r *ReservationRepository) Save(ctx context.Context, res *domainbooking.Reservation) error {
	_, err := r.save(res)
	return err
}

func (r *ReservationRepository) save(res *domainbooking.Reservation) (*domainbooking.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.items[res.ID]
	if !ok {
		return nil, domainbooking.ErrReservationNotFound
	}
	if prev.Version != res.Version {
		return nil, domainbooking.ErrConcurrentUpdate
	}
	res.Version++
	r.items[res.ID] = res.Clone()
	return prev, nil
}

func (r *ReservationRepository) restore(id domainbooking.ReservationID, prev *domainbooking.Reservation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev == nil {
		delete(r.items, id)
		return
	}
	r.items[id] = prev
}

func (r *ReservationRepository) ActiveForListing(ctx context.Context, listingID domainlistings.ListingID, window daterange.Span) ([]domainbooking.Existing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domainbooking.Existing, 0)
	for _, res := range r.items {
		if res.ListingID != listingID || !res.Status.HoldsInventory() {
			continue
		}
		if !res.Span.Overlaps(window) {
			continue
		}
		out = append(out, res.Existing())
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Span.Start.Compare(out[j].Span.Start); c != 0 {
			return c < 0
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *ReservationRepository) ListByRenter(ctx context.Context, renterID string) ([]*domainbooking.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainbooking.Reservation, 0)
	for _, res := range r.items {
		if res.RenterID == renterID {
			out = append(out, res.Clone())
		}
	}
	return out, nil
}

var (
	_ domainlistings.ListingRepository = (*ListingRepository)(nil)
	_ domainavailability.Repository    = (*CalendarRepository)(nil)
	_ domainbooking.Repository         = (*ReservationRepository)(nil)
)
