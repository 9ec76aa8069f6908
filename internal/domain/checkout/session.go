package checkout

import (
	"context"
	"strings"
	"time"

	"vendibook/internal/domain/hourly"
	"vendibook/internal/domain/listings"
	"vendibook/internal/domain/shared/daterange"
)

type Step string

const (
	StepIdentity     Step = "identity"
	StepBusinessInfo Step = "business_info"
	StepDocuments    Step = "documents"
	StepFulfillment  Step = "fulfillment"
	StepReview       Step = "review"
)

type SessionID string

// StepsFor lists the steps a checkout on this listing goes through.
func StepsFor(profile listings.AvailabilityProfile) []Step {
	steps := []Step{StepIdentity}
	if profile.BusinessInfoRequired {
		steps = append(steps, StepBusinessInfo)
	}
	if len(profile.RequiredDocuments) > 0 {
		steps = append(steps, StepDocuments)
	}
	return append(steps, StepFulfillment, StepReview)
}

// Selection is the renter's chosen period and slot. SlotNumber 0 means none chosen.
type Selection struct {
	Span       daterange.Span `json:"span"`
	Hours      *hourly.Window `json:"hours,omitempty"`
	SlotNumber int            `json:"slot_number"`
}

func (s Selection) IsZero() bool {
	return s.Span.IsZero()
}

func (s Selection) IsHourly() bool {
	return s.Hours != nil
}

// StagedDocument is an upload held in staging until a reservation exists.
type StagedDocument struct {
	Type        string    `json:"type"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	StagingKey  string    `json:"staging_key"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

type Fulfillment struct {
	Method          listings.FulfillmentMethod `json:"method"`
	DeliveryAddress string                     `json:"delivery_address,omitempty"`
	TermsAccepted   bool                       `json:"terms_accepted"`
}

// SlotChecker answers whether the selection is still free right now. It must
// consult fresh reservation data, never a cached browse result.
type SlotChecker func(sel Selection) bool

// Session is the state of one checkout. It is serialized as JSON by session stores.
type Session struct {
	ID          SessionID                    `json:"id"`
	RenterID    string                       `json:"renter_id"`
	Profile     listings.AvailabilityProfile `json:"profile"`
	Steps       []Step                       `json:"steps"`
	Current     Step                         `json:"current"`
	Business    *BusinessInfo                `json:"business,omitempty"`
	Documents   map[string]StagedDocument    `json:"documents,omitempty"`
	Selection   Selection                    `json:"selection"`
	Fulfillment Fulfillment                  `json:"fulfillment"`
	CreatedAt   time.Time                    `json:"created_at"`
	UpdatedAt   time.Time                    `json:"updated_at"`
}

type SessionStore interface {
	Get(ctx context.Context, id SessionID) (*Session, error)
	Put(ctx context.Context, session *Session) error
	Delete(ctx context.Context, id SessionID) error
}

func NewSession(id SessionID, profile listings.AvailabilityProfile, renterID string, now time.Time) *Session {
	s := &Session{
		ID:        id,
		RenterID:  strings.TrimSpace(renterID),
		Profile:   profile,
		Steps:     StepsFor(profile),
		Current:   StepIdentity,
		Documents: make(map[string]StagedDocument),
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	if s.IdentityComplete() {
		s.Current = s.Steps[1]
	}
	return s
}

func (s *Session) ListingID() listings.ListingID {
	return s.Profile.ListingID
}

func (s *Session) IdentityComplete() bool {
	return s.RenterID != ""
}

func (s *Session) BusinessInfoComplete() bool {
	if !s.Profile.BusinessInfoRequired {
		return true
	}
	return s.Business != nil && s.Business.Validate() == nil
}

func (s *Session) DocumentsComplete() bool {
	for _, doc := range s.Profile.RequiredDocuments {
		staged, ok := s.Documents[doc.Type]
		if !ok || staged.StagingKey == "" {
			return false
		}
	}
	return true
}

// MissingDocuments lists required document types without a staged file.
func (s *Session) MissingDocuments() []listings.RequiredDocument {
	out := make([]listings.RequiredDocument, 0)
	for _, doc := range s.Profile.RequiredDocuments {
		if staged, ok := s.Documents[doc.Type]; !ok || staged.StagingKey == "" {
			out = append(out, doc)
		}
	}
	return out
}

// FulfillmentComplete checks terms, delivery address, and a selection that is
// still free. Multi-slot listings additionally need a chosen slot.
func (s *Session) FulfillmentComplete(check SlotChecker) bool {
	f := s.Fulfillment
	if !f.TermsAccepted || f.Method == "" || !s.Profile.Supports(f.Method) {
		return false
	}
	if f.Method == listings.FulfillmentDelivery && strings.TrimSpace(f.DeliveryAddress) == "" {
		return false
	}
	if s.Selection.IsZero() {
		return false
	}
	if s.Profile.MultiSlot() {
		if s.Selection.SlotNumber < 1 {
			return false
		}
		if check == nil || !check(s.Selection) {
			return false
		}
	}
	return true
}

// Complete evaluates the completion predicate of step. Review is never complete.
func (s *Session) Complete(step Step, check SlotChecker) bool {
	switch step {
	case StepIdentity:
		return s.IdentityComplete()
	case StepBusinessInfo:
		return s.BusinessInfoComplete()
	case StepDocuments:
		return s.DocumentsComplete()
	case StepFulfillment:
		return s.FulfillmentComplete(check)
	default:
		return false
	}
}

func (s *Session) indexOf(step Step) int {
	for i, st := range s.Steps {
		if st == step {
			return i
		}
	}
	return -1
}

// CanAccessStep is true when step belongs to the checkout and every earlier step is complete.
func (s *Session) CanAccessStep(step Step, check SlotChecker) bool {
	idx := s.indexOf(step)
	if idx < 0 {
		return false
	}
	for _, prev := range s.Steps[:idx] {
		if !s.Complete(prev, check) {
			return false
		}
	}
	return true
}

// GoTo moves the pointer to step when it is reachable.
func (s *Session) GoTo(step Step, check SlotChecker, now time.Time) error {
	if s.indexOf(step) < 0 {
		return ErrUnknownStep
	}
	if !s.CanAccessStep(step, check) {
		return ErrStepLocked
	}
	s.Current = step
	s.UpdatedAt = now.UTC()
	return nil
}

// Advance completes the current step and moves to the next one.
func (s *Session) Advance(check SlotChecker, now time.Time) (Step, error) {
	idx := s.indexOf(s.Current)
	if idx < 0 {
		return s.Current, ErrUnknownStep
	}
	if idx == len(s.Steps)-1 {
		return s.Current, nil
	}
	if !s.Complete(s.Current, check) {
		return s.Current, ErrStepIncomplete
	}
	s.Current = s.Steps[idx+1]
	s.UpdatedAt = now.UTC()
	return s.Current, nil
}

// ReadyToSubmit reports whether review is reachable.
func (s *Session) ReadyToSubmit(check SlotChecker) bool {
	return s.CanAccessStep(StepReview, check)
}

// ReturnToSelection drops the chosen period and slot after a lost race.
func (s *Session) ReturnToSelection(now time.Time) {
	s.Selection = Selection{}
	s.Current = StepFulfillment
	s.UpdatedAt = now.UTC()
}

// FinalSelection returns the selection to commit.
func (s *Session) FinalSelection() (Selection, error) {
	if s.Selection.IsZero() {
		return Selection{}, invalid("selection", "dates are required")
	}
	if s.Profile.MultiSlot() && s.Selection.SlotNumber < 1 {
		return Selection{}, invalid("selection.slot_number", "choose a space")
	}
	return s.Selection, nil
}

func (s *Session) SetBusinessInfo(info BusinessInfo, now time.Time) error {
	if !s.Profile.BusinessInfoRequired {
		return ErrUnknownStep
	}
	if err := info.Validate(); err != nil {
		return err
	}
	normalized := info.Normalize()
	s.Business = &normalized
	s.UpdatedAt = now.UTC()
	return nil
}

func (s *Session) StageDocument(doc StagedDocument, now time.Time) error {
	doc.Type = strings.TrimSpace(doc.Type)
	if !s.Profile.DocumentRequired(doc.Type) {
		return invalid("documents.type", "document type is not requested by this listing")
	}
	if doc.StagingKey == "" {
		return invalid("documents.file", "file is required")
	}
	if s.Documents == nil {
		s.Documents = make(map[string]StagedDocument)
	}
	doc.UploadedAt = now.UTC()
	s.Documents[doc.Type] = doc
	s.UpdatedAt = now.UTC()
	return nil
}

// SetSelection checks the shape of the selection against the listing. Freshness
// against other reservations is the caller's job.
func (s *Session) SetSelection(sel Selection, now time.Time) error {
	if err := sel.Span.Validate(); err != nil {
		return invalid("selection.span", "start and end dates are required and must be ordered")
	}
	if sel.IsHourly() {
		if !s.Profile.HourlyEnabled {
			return invalid("selection.hours", "hourly booking is not offered")
		}
		if sel.Span.Days() != 1 {
			return invalid("selection.hours", "hourly booking covers a single date")
		}
		if !sel.Hours.Valid() {
			return invalid("selection.hours", "hours must fall within the day")
		}
		w := *sel.Hours
		sel.Hours = &w
	} else if !s.Profile.DailyEnabled {
		return invalid("selection.hours", "choose a start time and duration")
	}
	if s.Profile.MultiSlot() {
		if sel.SlotNumber < 0 || sel.SlotNumber > s.Profile.TotalSlots {
			return invalid("selection.slot_number", "space does not exist")
		}
	} else {
		sel.SlotNumber = 0
	}
	s.Selection = sel
	s.UpdatedAt = now.UTC()
	return nil
}

func (s *Session) SetFulfillment(f Fulfillment, now time.Time) error {
	if !s.Profile.Supports(f.Method) {
		return invalid("fulfillment.method", "method is not offered for this listing")
	}
	f.DeliveryAddress = strings.TrimSpace(f.DeliveryAddress)
	if f.Method == listings.FulfillmentDelivery && f.DeliveryAddress == "" {
		return invalid("fulfillment.delivery_address", "delivery address is required")
	}
	if f.Method != listings.FulfillmentDelivery {
		f.DeliveryAddress = ""
	}
	s.Fulfillment = f
	s.UpdatedAt = now.UTC()
	return nil
}
