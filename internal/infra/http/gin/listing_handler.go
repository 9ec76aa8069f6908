package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"vendibook/internal/app/dto"
	listingapp "vendibook/internal/app/handlers/listings"
	pricingapp "vendibook/internal/app/handlers/pricing"
	"vendibook/internal/app/queries"
	domainlistings "vendibook/internal/domain/listings"
)

type ListingHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h ListingHandler) Get(c *gin.Context) {
	query := listingapp.GetListingQuery{ListingID: pathParam(c, "id")}
	result, err := queries.Ask[listingapp.GetListingQuery, dto.Listing](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Quote prices either start..end days or a number of hours on date.
func (h ListingHandler) Quote(c *gin.Context) {
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
	hours, err := intQuery(c, "hours")
	if err != nil {
		badRequest(c, err)
		return
	}
	if !date.IsZero() {
		start, end = date, date
	}
	query := pricingapp.GetQuoteQuery{
		ListingID:   pathParam(c, "id"),
		Start:       start,
		End:         end,
		Hours:       hours,
		Fulfillment: domainlistings.FulfillmentMethod(strings.TrimSpace(c.Query("fulfillment"))),
	}
	result, err := queries.Ask[pricingapp.GetQuoteQuery, dto.Quote](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ ListingHTTP = ListingHandler{}
