package checkout

import (
	domainavailability "vendibook/internal/domain/availability"
	domaincheckout "vendibook/internal/domain/checkout"
)

// checkSelection re-validates a selection against a resolver built from fresh
// data. Dates or hours that stopped being selectable are field errors; a space
// taken by someone else is a conflict.
func checkSelection(resolver *domainavailability.Resolver, sel domaincheckout.Selection) error {
	if !resolver.SpanSelectable(sel.Span) {
		return &domaincheckout.ValidationError{Field: "selection.span", Message: "those dates are not available"}
	}
	if sel.Hours != nil {
		plan := resolver.HourlyPlan(sel.Span.Start, sel.SlotNumber)
		if !plan.Fits(sel.Hours.StartHour, sel.Hours.Hours()) {
			return &domaincheckout.ValidationError{Field: "selection.hours", Message: "that time is not available"}
		}
	}
	if !resolver.SlotFree(sel.SlotNumber, candidateOf(sel)) {
		return domaincheckout.ErrAvailabilityConflict
	}
	return nil
}
