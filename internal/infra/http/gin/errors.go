package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	availabilityapp "vendibook/internal/app/handlers/availability"
	bookingapp "vendibook/internal/app/handlers/booking"
	checkoutapp "vendibook/internal/app/handlers/checkout"
	listingapp "vendibook/internal/app/handlers/listings"
	meapp "vendibook/internal/app/handlers/me"
	pricingapp "vendibook/internal/app/handlers/pricing"
	"vendibook/internal/app/identity"
	"vendibook/internal/app/middleware"
	"vendibook/internal/app/policies"
	domainavailability "vendibook/internal/domain/availability"
	domainbooking "vendibook/internal/domain/booking"
	domaincheckout "vendibook/internal/domain/checkout"
	"vendibook/internal/domain/hourly"
	domainlistings "vendibook/internal/domain/listings"
	domainpricing "vendibook/internal/domain/pricing"
	"vendibook/internal/domain/shared/daterange"
	"vendibook/internal/domain/shared/money"
	"vendibook/internal/domain/slots"
)

var notFoundErrors = []error{
	domainlistings.ErrListingNotFound,
	domainbooking.ErrReservationNotFound,
	domaincheckout.ErrSessionNotFound,
	domaincheckout.ErrNotSessionOwner,
	domainavailability.ErrCalendarNotFound,
	domainavailability.ErrRangeNotFound,
	listingapp.ErrListingNotOwned,
	availabilityapp.ErrCalendarNotOwned,
	bookingapp.ErrReservationNotOwned,
	meapp.ErrReservationNotOwned,
}

var conflictErrors = []error{
	domaincheckout.ErrAvailabilityConflict,
	domaincheckout.ErrStepLocked,
	domaincheckout.ErrStepIncomplete,
	domainbooking.ErrSlotTaken,
	domainbooking.ErrConcurrentUpdate,
	domainbooking.ErrInvalidState,
	domainlistings.ErrConcurrentUpdate,
	domainlistings.ErrInvalidState,
	domainavailability.ErrConcurrentUpdate,
	domainavailability.ErrOverlappingRange,
	domainavailability.ErrReferenceTaken,
	checkoutapp.ErrListingUnavailable,
	listingapp.ErrSlotsInUse,
	meapp.ErrNothingToRetry,
	middleware.ErrKeyReused,
}

var badRequestErrors = []error{
	daterange.ErrInvalidDate,
	daterange.ErrInvalidSpan,
	daterange.ErrInvalidRange,
	domaincheckout.ErrUnknownStep,
	availabilityapp.ErrInvalidWindow,
	availabilityapp.ErrWindowTooLong,
	pricingapp.ErrInvalidSelection,
	domainpricing.ErrNothingToPrice,
	domainpricing.ErrNegativeRate,
	domainpricing.ErrNoBookableRate,
	domainpricing.ErrMixedCurrencies,
	domainpricing.ErrCurrencyUnset,
	hourly.ErrInvalidWindow,
	hourly.ErrInvalidDuration,
	slots.ErrInvalidSlotCount,
	slots.ErrTooManyNames,
	money.ErrInvalidCurrency,
	money.ErrCurrencyMismatch,
	money.ErrNegativeAmount,
	domainbooking.ErrInvalidSlot,
	domainbooking.ErrHourlySpan,
	domainlistings.ErrAddressRequired,
	domainlistings.ErrTitleRequired,
	domainlistings.ErrInvalidCategory,
	domainlistings.ErrInvalidSlots,
	domainlistings.ErrTooManySlotNames,
	domainlistings.ErrWindowOrder,
	domainlistings.ErrNoBookingMode,
	domainlistings.ErrMissingRate,
	domainlistings.ErrNoFulfillment,
	domainlistings.ErrInvalidDelivery,
	domainlistings.ErrDuplicateDocument,
	domainlistings.ErrMalformedProfile,
}

// statusFor maps an application error to its HTTP status.
func statusFor(err error) int {
	var (
		verr  *domaincheckout.ValidationError
		ferr  *middleware.FieldError
		retry *domaincheckout.RetryableError
	)
	switch {
	case errors.As(err, &retry):
		return http.StatusServiceUnavailable
	case errors.As(err, &verr), errors.As(err, &ferr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, identity.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, identity.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, policies.ErrPaymentDeclined):
		return http.StatusPaymentRequired
	case matchesAny(err, notFoundErrors):
		return http.StatusNotFound
	case matchesAny(err, conflictErrors):
		return http.StatusConflict
	case matchesAny(err, badRequestErrors):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// writeError renders err as a JSON error body. Server errors are logged and
// their message withheld from the client.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	_ = c.Error(err)
	body := gin.H{"error": err.Error()}

	var (
		verr  *domaincheckout.ValidationError
		ferr  *middleware.FieldError
		retry *domaincheckout.RetryableError
	)
	switch {
	case errors.As(err, &retry):
		body["retryable"] = true
		if retry.ReservationID != "" {
			body["reservation_id"] = string(retry.ReservationID)
		}
	case errors.As(err, &verr):
		body["field"] = verr.Field
		body["error"] = verr.Message
	case errors.As(err, &ferr):
		body["field"] = ferr.Field
		body["rule"] = ferr.Rule
	}

	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		}
		body = gin.H{"error": "internal error"}
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
