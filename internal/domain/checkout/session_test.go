package checkout_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendibook/internal/domain/checkout"
	"vendibook/internal/domain/hourly"
	"vendibook/internal/domain/listings"
	"vendibook/internal/domain/pricing"
	"vendibook/internal/domain/shared/daterange"
	"vendibook/internal/domain/shared/money"
)

var now = time.Date(2026, time.October, 18, 10, 0, 0, 0, time.UTC)

func oct(d int) daterange.Date { return daterange.NewDate(2026, time.October, d) }

func lotProfile() listings.AvailabilityProfile {
	return listings.AvailabilityProfile{
		ListingID:    "lot-1",
		Category:     listings.CategoryVendorLot,
		TotalSlots:   2,
		DailyEnabled: true,
		Rates:        pricing.RateCard{Daily: money.Dollars(50)},
		Fulfillment:  []listings.FulfillmentMethod{listings.FulfillmentOnSite, listings.FulfillmentDelivery},
		RequiredDocuments: []listings.RequiredDocument{
			{Type: "insurance", Label: "Certificate of insurance"},
			{Type: "health_permit", Label: "Health permit"},
		},
		BusinessInfoRequired: true,
	}
}

func validBusiness() checkout.BusinessInfo {
	return checkout.BusinessInfo{
		LicenseType:   "food_handler",
		EmployeeCount: "2-5",
		IntendedUse:   "Weekend taco stand",
		CuisineType:   "Mexican",
	}
}

func alwaysFree(checkout.Selection) bool { return true }
func neverFree(checkout.Selection) bool  { return false }

func TestStepsFor(t *testing.T) {
	assert.Equal(t, []checkout.Step{
		checkout.StepIdentity, checkout.StepBusinessInfo, checkout.StepDocuments, checkout.StepFulfillment, checkout.StepReview,
	}, checkout.StepsFor(lotProfile()))

	plain := lotProfile()
	plain.BusinessInfoRequired = false
	plain.RequiredDocuments = nil
	assert.Equal(t, []checkout.Step{checkout.StepIdentity, checkout.StepFulfillment, checkout.StepReview}, checkout.StepsFor(plain))
}

func TestSession_ReviewLockedUntilDocumentsStaged(t *testing.T) {
	s := checkout.NewSession("s1", lotProfile(), "renter-1", now)
	assert.Equal(t, checkout.StepBusinessInfo, s.Current)

	require.NoError(t, s.SetBusinessInfo(validBusiness(), now))
	require.NoError(t, s.SetSelection(checkout.Selection{Span: daterange.Span{Start: oct(20), End: oct(22)}, SlotNumber: 1}, now))
	require.NoError(t, s.SetFulfillment(checkout.Fulfillment{Method: listings.FulfillmentOnSite, TermsAccepted: true}, now))

	require.NoError(t, s.StageDocument(checkout.StagedDocument{Type: "insurance", StagingKey: "staging/s1/insurance.pdf"}, now))
	assert.False(t, s.CanAccessStep(checkout.StepReview, alwaysFree))
	assert.False(t, s.CanAccessStep(checkout.StepFulfillment, alwaysFree))
	assert.ErrorIs(t, s.GoTo(checkout.StepReview, alwaysFree, now), checkout.ErrStepLocked)
	assert.Len(t, s.MissingDocuments(), 1)

	require.NoError(t, s.StageDocument(checkout.StagedDocument{Type: "health_permit", StagingKey: "staging/s1/permit.pdf"}, now))
	assert.True(t, s.CanAccessStep(checkout.StepReview, alwaysFree))
	require.NoError(t, s.GoTo(checkout.StepReview, alwaysFree, now))
	assert.Equal(t, checkout.StepReview, s.Current)
}

func TestSession_FulfillmentNeedsFreshSlot(t *testing.T) {
	profile := lotProfile()
	profile.BusinessInfoRequired = false
	profile.RequiredDocuments = nil
	s := checkout.NewSession("s1", profile, "renter-1", now)

	require.NoError(t, s.SetFulfillment(checkout.Fulfillment{Method: listings.FulfillmentOnSite, TermsAccepted: true}, now))
	require.NoError(t, s.SetSelection(checkout.Selection{Span: daterange.SingleDay(oct(20))}, now))
	assert.False(t, s.FulfillmentComplete(alwaysFree), "slot not chosen")

	require.NoError(t, s.SetSelection(checkout.Selection{Span: daterange.SingleDay(oct(20)), SlotNumber: 2}, now))
	assert.True(t, s.FulfillmentComplete(alwaysFree))
	assert.False(t, s.FulfillmentComplete(neverFree))
	assert.False(t, s.FulfillmentComplete(nil))
	assert.False(t, s.ReadyToSubmit(neverFree))
}

func TestSession_FulfillmentPredicates(t *testing.T) {
	profile := lotProfile()
	profile.TotalSlots = 1
	profile.BusinessInfoRequired = false
	profile.RequiredDocuments = nil

	tests := []struct {
		name      string
		f         checkout.Fulfillment
		selection bool
		want      bool
	}{
		{"complete", checkout.Fulfillment{Method: listings.FulfillmentOnSite, TermsAccepted: true}, true, true},
		{"terms missing", checkout.Fulfillment{Method: listings.FulfillmentOnSite}, true, false},
		{"no dates", checkout.Fulfillment{Method: listings.FulfillmentOnSite, TermsAccepted: true}, false, false},
		{"delivery with address", checkout.Fulfillment{Method: listings.FulfillmentDelivery, DeliveryAddress: "12 Elm", TermsAccepted: true}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := checkout.NewSession("s1", profile, "renter-1", now)
			require.NoError(t, s.SetFulfillment(tt.f, now))
			if tt.selection {
				require.NoError(t, s.SetSelection(checkout.Selection{Span: daterange.SingleDay(oct(20))}, now))
			}
			assert.Equal(t, tt.want, s.FulfillmentComplete(neverFree), "single-slot ignores the slot checker")
		})
	}
}

func TestSession_SetFulfillmentValidation(t *testing.T) {
	s := checkout.NewSession("s1", lotProfile(), "renter-1", now)

	err := s.SetFulfillment(checkout.Fulfillment{Method: listings.FulfillmentDelivery, DeliveryAddress: "  "}, now)
	var vErr *checkout.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "fulfillment.delivery_address", vErr.Field)

	err = s.SetFulfillment(checkout.Fulfillment{Method: listings.FulfillmentPickup}, now)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "fulfillment.method", vErr.Field)
}

func TestSession_SetSelectionValidation(t *testing.T) {
	profile := lotProfile()
	profile.HourlyEnabled = true
	profile.Hourly = hourly.Settings{MinHours: 1}

	tests := []struct {
		name  string
		sel   checkout.Selection
		field string
	}{
		{"missing dates", checkout.Selection{}, "selection.span"},
		{"reversed", checkout.Selection{Span: daterange.Span{Start: oct(22), End: oct(20)}}, "selection.span"},
		{"hourly multi day", checkout.Selection{Span: daterange.Span{Start: oct(20), End: oct(21)}, Hours: &hourly.Window{StartHour: 9, EndHour: 11}}, "selection.hours"},
		{"hours past midnight", checkout.Selection{Span: daterange.SingleDay(oct(20)), Hours: &hourly.Window{StartHour: 22, EndHour: 26}}, "selection.hours"},
		{"slot out of range", checkout.Selection{Span: daterange.SingleDay(oct(20)), SlotNumber: 3}, "selection.slot_number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := checkout.NewSession("s1", profile, "renter-1", now)
			err := s.SetSelection(tt.sel, now)
			var vErr *checkout.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestSession_AdvanceAndReturn(t *testing.T) {
	profile := lotProfile()
	profile.TotalSlots = 1
	profile.RequiredDocuments = nil
	s := checkout.NewSession("s1", profile, "renter-1", now)

	_, err := s.Advance(alwaysFree, now)
	assert.ErrorIs(t, err, checkout.ErrStepIncomplete)

	require.NoError(t, s.SetBusinessInfo(validBusiness(), now))
	step, err := s.Advance(alwaysFree, now)
	require.NoError(t, err)
	assert.Equal(t, checkout.StepFulfillment, step)

	require.NoError(t, s.SetSelection(checkout.Selection{Span: daterange.SingleDay(oct(20))}, now))
	require.NoError(t, s.SetFulfillment(checkout.Fulfillment{Method: listings.FulfillmentOnSite, TermsAccepted: true}, now))
	step, err = s.Advance(alwaysFree, now)
	require.NoError(t, err)
	assert.Equal(t, checkout.StepReview, step)

	s.ReturnToSelection(now)
	assert.Equal(t, checkout.StepFulfillment, s.Current)
	assert.True(t, s.Selection.IsZero())
	assert.False(t, s.ReadyToSubmit(alwaysFree))

	assert.ErrorIs(t, s.GoTo(checkout.StepDocuments, alwaysFree, now), checkout.ErrUnknownStep)
}

func TestSession_AnonymousStartsAtIdentity(t *testing.T) {
	s := checkout.NewSession("s1", lotProfile(), "", now)
	assert.Equal(t, checkout.StepIdentity, s.Current)
	assert.False(t, s.CanAccessStep(checkout.StepBusinessInfo, alwaysFree))
	assert.True(t, s.CanAccessStep(checkout.StepIdentity, alwaysFree))
}

func TestSession_StageDocumentRejectsUnknownType(t *testing.T) {
	s := checkout.NewSession("s1", lotProfile(), "renter-1", now)
	err := s.StageDocument(checkout.StagedDocument{Type: "passport", StagingKey: "k"}, now)
	var vErr *checkout.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "documents.type", vErr.Field)
}

func TestSession_JSONRoundTrip(t *testing.T) {
	s := checkout.NewSession("s1", lotProfile(), "renter-1", now)
	require.NoError(t, s.SetSelection(checkout.Selection{Span: daterange.Span{Start: oct(20), End: oct(22)}, SlotNumber: 2}, now))

	raw, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded checkout.Session
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, s.Selection, decoded.Selection)
	assert.Equal(t, s.Steps, decoded.Steps)
	assert.Equal(t, s.Profile.RequiredDocuments, decoded.Profile.RequiredDocuments)
}

func TestFinalSelection(t *testing.T) {
	s := checkout.NewSession("s1", lotProfile(), "renter-1", now)
	_, err := s.FinalSelection()
	var vErr *checkout.ValidationError
	require.ErrorAs(t, err, &vErr)

	require.NoError(t, s.SetSelection(checkout.Selection{Span: daterange.SingleDay(oct(20))}, now))
	_, err = s.FinalSelection()
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "selection.slot_number", vErr.Field)
}
