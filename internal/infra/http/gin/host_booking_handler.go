package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"vendibook/internal/app/commands"
	"vendibook/internal/app/dto"
	bookingapp "vendibook/internal/app/handlers/booking"
	"vendibook/internal/app/identity"
)

type HostBookingHandler struct {
	Commands commands.Bus
	Logger   *slog.Logger
}

type declineReservationRequest struct {
	Reason string `json:"reason"`
}

func (h HostBookingHandler) Approve(c *gin.Context) {
	host, ok := requireRole(c, identity.RoleHost)
	if !ok {
		return
	}
	cmd := bookingapp.ApproveReservationCommand{
		HostID:        host.UserID,
		ReservationID: pathParam(c, "id"),
	}
	result, err := commands.Dispatch[bookingapp.ApproveReservationCommand, dto.Reservation](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HostBookingHandler) Decline(c *gin.Context) {
	host, ok := requireRole(c, identity.RoleHost)
	if !ok {
		return
	}
	var req declineReservationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	cmd := bookingapp.DeclineReservationCommand{
		HostID:        host.UserID,
		ReservationID: pathParam(c, "id"),
		Reason:        strings.TrimSpace(req.Reason),
	}
	result, err := commands.Dispatch[bookingapp.DeclineReservationCommand, dto.Reservation](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ HostBookingHTTP = HostBookingHandler{}
