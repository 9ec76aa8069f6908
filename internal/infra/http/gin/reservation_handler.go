package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"vendibook/internal/app/commands"
	"vendibook/internal/app/dto"
	meapp "vendibook/internal/app/handlers/me"
	"vendibook/internal/app/queries"
)

// ReservationHandler serves the renter's own reservations.
type ReservationHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type cancelReservationRequest struct {
	Reason string `json:"reason"`
}

func (h ReservationHandler) List(c *gin.Context) {
	renter, ok := requireRole(c, "")
	if !ok {
		return
	}
	query := meapp.ListReservationsQuery{RenterID: renter.UserID}
	result, err := queries.Ask[meapp.ListReservationsQuery, dto.ReservationCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ReservationHandler) Cancel(c *gin.Context) {
	renter, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req cancelReservationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	cmd := meapp.CancelReservationCommand{
		RenterID:      renter.UserID,
		ReservationID: pathParam(c, "id"),
		Reason:        strings.TrimSpace(req.Reason),
	}
	result, err := commands.Dispatch[meapp.CancelReservationCommand, dto.Reservation](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ReservationHandler) RetryPayment(c *gin.Context) {
	renter, ok := requireRole(c, "")
	if !ok {
		return
	}
	cmd := meapp.RetryPaymentCommand{RenterID: renter.UserID, ReservationID: pathParam(c, "id")}
	result, err := commands.Dispatch[meapp.RetryPaymentCommand, dto.Reservation](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ ReservationHTTP = ReservationHandler{}
