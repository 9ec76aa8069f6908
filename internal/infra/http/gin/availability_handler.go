package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"vendibook/internal/app/dto"
	availabilityapp "vendibook/internal/app/handlers/availability"
	"vendibook/internal/app/queries"
)

type AvailabilityHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h AvailabilityHandler) Calendar(c *gin.Context) {
	from, err := dateQuery(c, "from")
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	to, err := dateQuery(c, "to")
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	query := availabilityapp.GetCalendarQuery{ListingID: pathParam(c, "id"), From: from, To: to}
	result, err := queries.Ask[availabilityapp.GetCalendarQuery, dto.Calendar](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Slots lists slot availability for a date range, or for an hour window when
// hours is given (date defaults to start).
func (h AvailabilityHandler) Slots(c *gin.Context) {
	start, err := dateQuery(c, "start")
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	end, err := dateQuery(c, "end")
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	date, err := dateQuery(c, "date")
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	startHour, err := intQuery(c, "start_hour")
	if err != nil {
		badRequest(c, err)
		return
	}
	hours, err := intQuery(c, "hours")
	if err != nil {
		badRequest(c, err)
		return
	}
	if !date.IsZero() {
		start, end = date, date
	}
	query := availabilityapp.GetSlotsQuery{
		ListingID: pathParam(c, "id"),
		Start:     start,
		End:       end,
		StartHour: startHour,
		Hours:     hours,
	}
	result, err := queries.Ask[availabilityapp.GetSlotsQuery, dto.SlotCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Hours(c *gin.Context) {
	date, err := dateQuery(c, "date")
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	slot, err := intQuery(c, "slot")
	if err != nil {
		badRequest(c, err)
		return
	}
	query := availabilityapp.GetHoursQuery{ListingID: pathParam(c, "id"), Date: date, Slot: slot}
	result, err := queries.Ask[availabilityapp.GetHoursQuery, dto.HourlyPlan](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ AvailabilityHTTP = AvailabilityHandler{}
