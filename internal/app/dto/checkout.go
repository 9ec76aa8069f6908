package dto

import (
	"vendibook/internal/domain/checkout"
)

type StepState struct {
	Step       string `json:"step"`
	Complete   bool   `json:"complete"`
	Accessible bool   `json:"accessible"`
}

type RequiredDocument struct {
	Type   string `json:"type"`
	Label  string `json:"label"`
	Staged bool   `json:"staged"`
}

type Selection struct {
	Start      string `json:"start_date,omitempty"`
	End        string `json:"end_date,omitempty"`
	StartHour  *int   `json:"start_hour,omitempty"`
	Hours      int    `json:"hours,omitempty"`
	SlotNumber int    `json:"slot_number,omitempty"`
	SlotName   string `json:"slot_name,omitempty"`
}

type CheckoutSession struct {
	ID              string                 `json:"id"`
	ListingID       string                 `json:"listing_id"`
	ListingTitle    string                 `json:"listing_title"`
	Current         string                 `json:"current_step"`
	Steps           []StepState            `json:"steps"`
	ReadyToSubmit   bool                   `json:"ready_to_submit"`
	Business        *checkout.BusinessInfo `json:"business,omitempty"`
	Documents       []RequiredDocument     `json:"documents,omitempty"`
	Selection       Selection              `json:"selection"`
	Fulfillment     string                 `json:"fulfillment,omitempty"`
	DeliveryAddress string                 `json:"delivery_address,omitempty"`
	TermsAccepted   bool                   `json:"terms_accepted"`
	Quote           *Quote                 `json:"quote,omitempty"`
}

// MapCheckoutSession renders the session with step states evaluated through check.
func MapCheckoutSession(s *checkout.Session, check checkout.SlotChecker, quote *Quote) CheckoutSession {
	out := CheckoutSession{
		ID:              string(s.ID),
		ListingID:       string(s.Profile.ListingID),
		ListingTitle:    s.Profile.Title,
		Current:         string(s.Current),
		Steps:           make([]StepState, 0, len(s.Steps)),
		ReadyToSubmit:   s.ReadyToSubmit(check),
		Business:        s.Business,
		Fulfillment:     string(s.Fulfillment.Method),
		DeliveryAddress: s.Fulfillment.DeliveryAddress,
		TermsAccepted:   s.Fulfillment.TermsAccepted,
		Quote:           quote,
	}
	for _, step := range s.Steps {
		out.Steps = append(out.Steps, StepState{
			Step:       string(step),
			Complete:   s.Complete(step, check),
			Accessible: s.CanAccessStep(step, check),
		})
	}
	for _, doc := range s.Profile.RequiredDocuments {
		staged, ok := s.Documents[doc.Type]
		out.Documents = append(out.Documents, RequiredDocument{
			Type:   doc.Type,
			Label:  doc.Label,
			Staged: ok && staged.StagingKey != "",
		})
	}
	sel := s.Selection
	if !sel.IsZero() {
		out.Selection = Selection{
			Start:      sel.Span.Start.String(),
			End:        sel.Span.End.String(),
			SlotNumber: sel.SlotNumber,
		}
		if sel.SlotNumber > 0 {
			out.Selection.SlotName = s.Profile.SlotName(sel.SlotNumber)
		}
		if sel.Hours != nil {
			start := sel.Hours.StartHour
			out.Selection.StartHour = &start
			out.Selection.Hours = sel.Hours.Hours()
		}
	}
	return out
}

type SubmitResult struct {
	ReservationID string      `json:"reservation_id"`
	Reservation   Reservation `json:"reservation"`
}
