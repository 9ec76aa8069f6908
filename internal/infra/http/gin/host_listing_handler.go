package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"vendibook/internal/app/commands"
	"vendibook/internal/app/dto"
	availabilityapp "vendibook/internal/app/handlers/availability"
	listingapp "vendibook/internal/app/handlers/listings"
	"vendibook/internal/app/identity"
	domainavailability "vendibook/internal/domain/availability"
	domainlistings "vendibook/internal/domain/listings"
	"vendibook/internal/domain/shared/daterange"
)

type HostListingHandler struct {
	Commands commands.Bus
	Logger   *slog.Logger
}

type blockDatesRequest struct {
	Start     daterange.Date `json:"start_date"`
	End       daterange.Date `json:"end_date"`
	Reason    string         `json:"reason"`
	Reference string         `json:"reference"`
}

type suspendListingRequest struct {
	Reason string `json:"reason"`
}

func (h HostListingHandler) Create(c *gin.Context) {
	host, ok := requireRole(c, identity.RoleHost)
	if !ok {
		return
	}
	var req listingapp.ListingPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := listingapp.CreateListingCommand{HostID: host.UserID, Payload: req}
	result, err := commands.Dispatch[listingapp.CreateListingCommand, dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h HostListingHandler) UpdateInventory(c *gin.Context) {
	host, ok := requireRole(c, identity.RoleHost)
	if !ok {
		return
	}
	var req domainlistings.InventoryParams
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := listingapp.UpdateInventoryCommand{HostID: host.UserID, ListingID: pathParam(c, "id"), Inventory: req}
	result, err := commands.Dispatch[listingapp.UpdateInventoryCommand, dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HostListingHandler) Activate(c *gin.Context) {
	host, ok := requireRole(c, identity.RoleHost)
	if !ok {
		return
	}
	cmd := listingapp.ActivateListingCommand{HostID: host.UserID, ListingID: pathParam(c, "id")}
	result, err := commands.Dispatch[listingapp.ActivateListingCommand, dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HostListingHandler) Suspend(c *gin.Context) {
	host, ok := requireRole(c, identity.RoleHost)
	if !ok {
		return
	}
	var req suspendListingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	cmd := listingapp.SuspendListingCommand{
		HostID:    host.UserID,
		ListingID: pathParam(c, "id"),
		Reason:    strings.TrimSpace(req.Reason),
	}
	result, err := commands.Dispatch[listingapp.SuspendListingCommand, dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Block closes a date range on the listing calendar. A missing end date
// blocks the start date alone.
func (h HostListingHandler) Block(c *gin.Context) {
	host, ok := requireRole(c, identity.RoleHost)
	if !ok {
		return
	}
	var req blockDatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	end := req.End
	if end.IsZero() {
		end = req.Start
	}
	span, err := daterange.NewSpan(req.Start, end)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	reason := domainavailability.BlockReason(strings.ToUpper(strings.TrimSpace(req.Reason)))
	if reason == "" {
		reason = domainavailability.ReasonHostBlock
	}
	cmd := availabilityapp.BlockDatesCommand{
		HostID:    host.UserID,
		ListingID: pathParam(c, "id"),
		Span:      span,
		Reason:    reason,
		Reference: strings.TrimSpace(req.Reference),
	}
	result, err := commands.Dispatch[availabilityapp.BlockDatesCommand, dto.CalendarBlock](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h HostListingHandler) Release(c *gin.Context) {
	host, ok := requireRole(c, identity.RoleHost)
	if !ok {
		return
	}
	cmd := availabilityapp.ReleaseBlockCommand{
		HostID:    host.UserID,
		ListingID: pathParam(c, "id"),
		Reference: pathParam(c, "ref"),
	}
	if _, err := commands.Dispatch[availabilityapp.ReleaseBlockCommand, struct{}](c.Request.Context(), h.Commands, cmd); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

var _ HostListingHTTP = HostListingHandler{}
