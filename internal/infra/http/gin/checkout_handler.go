package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"vendibook/internal/app/commands"
	"vendibook/internal/app/dto"
	checkoutapp "vendibook/internal/app/handlers/checkout"
	"vendibook/internal/app/queries"
	domaincheckout "vendibook/internal/domain/checkout"
	domainlistings "vendibook/internal/domain/listings"
	"vendibook/internal/domain/shared/daterange"
)

const IdempotencyKeyHeader = "Idempotency-Key"

// CheckoutHandler drives the booking wizard. Every route acts on a session
// owned by the authenticated renter.
type CheckoutHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type startCheckoutRequest struct {
	ListingID string `json:"listing_id"`
}

type selectionRequest struct {
	Start      daterange.Date `json:"start_date"`
	End        daterange.Date `json:"end_date"`
	StartHour  *int           `json:"start_hour"`
	Hours      int            `json:"hours"`
	SlotNumber int            `json:"slot_number"`
}

type fulfillmentRequest struct {
	Method          string `json:"method"`
	DeliveryAddress string `json:"delivery_address"`
	TermsAccepted   bool   `json:"terms_accepted"`
}

func (h CheckoutHandler) Start(c *gin.Context) {
	renter, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req startCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := checkoutapp.StartCheckoutCommand{ListingID: strings.TrimSpace(req.ListingID), RenterID: renter.UserID}
	h.respond(c, http.StatusCreated, cmd)
}

func (h CheckoutHandler) Get(c *gin.Context) {
	renter, ok := requireRole(c, "")
	if !ok {
		return
	}
	query := checkoutapp.GetCheckoutQuery{SessionID: pathParam(c, "id"), RenterID: renter.UserID}
	result, err := queries.Ask[checkoutapp.GetCheckoutQuery, dto.CheckoutSession](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h CheckoutHandler) Business(c *gin.Context) {
	renter, ok := requireRole(c, "")
	if !ok {
		return
	}
	var info domaincheckout.BusinessInfo
	if err := c.ShouldBindJSON(&info); err != nil {
		badRequest(c, err)
		return
	}
	cmd := checkoutapp.UpdateBusinessCommand{SessionID: pathParam(c, "id"), RenterID: renter.UserID, Info: info}
	h.respond(c, http.StatusOK, cmd)
}

// Document stages one multipart upload: form field "type" names the
// document, "file" carries it.
func (h CheckoutHandler) Document(c *gin.Context) {
	renter, ok := requireRole(c, "")
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, checkoutapp.MaxDocumentBytes+1<<20)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, h.Logger, &domaincheckout.ValidationError{Field: "documents.file", Message: "file is larger than 10 MB"})
			return
		}
		writeError(c, h.Logger, &domaincheckout.ValidationError{Field: "documents.file", Message: "a file is required"})
		return
	}
	file, err := header.Open()
	if err != nil {
		badRequest(c, err)
		return
	}
	defer file.Close()

	cmd := checkoutapp.StageDocumentCommand{
		SessionID:   pathParam(c, "id"),
		RenterID:    renter.UserID,
		DocType:     strings.TrimSpace(c.PostForm("type")),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}
	h.respond(c, http.StatusOK, cmd)
}

func (h CheckoutHandler) Selection(c *gin.Context) {
	renter, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := checkoutapp.UpdateSelectionCommand{
		SessionID:  pathParam(c, "id"),
		RenterID:   renter.UserID,
		Start:      req.Start,
		End:        req.End,
		StartHour:  req.StartHour,
		Hours:      req.Hours,
		SlotNumber: req.SlotNumber,
	}
	h.respond(c, http.StatusOK, cmd)
}

func (h CheckoutHandler) Fulfillment(c *gin.Context) {
	renter, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req fulfillmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := checkoutapp.UpdateFulfillmentCommand{
		SessionID:       pathParam(c, "id"),
		RenterID:        renter.UserID,
		Method:          domainlistings.FulfillmentMethod(strings.ToLower(strings.TrimSpace(req.Method))),
		DeliveryAddress: req.DeliveryAddress,
		TermsAccepted:   req.TermsAccepted,
	}
	h.respond(c, http.StatusOK, cmd)
}

func (h CheckoutHandler) Step(c *gin.Context) {
	renter, ok := requireRole(c, "")
	if !ok {
		return
	}
	cmd := checkoutapp.GoToStepCommand{SessionID: pathParam(c, "id"), RenterID: renter.UserID, Step: pathParam(c, "step")}
	h.respond(c, http.StatusOK, cmd)
}

// Submit creates the reservation. A repeated Idempotency-Key replays the
// first outcome instead of booking twice.
func (h CheckoutHandler) Submit(c *gin.Context) {
	renter, ok := requireRole(c, "")
	if !ok {
		return
	}
	cmd := checkoutapp.SubmitCheckoutCommand{
		SessionID:       pathParam(c, "id"),
		RenterID:        renter.UserID,
		IdempotencyKeyV: strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader)),
	}
	result, err := commands.Dispatch[checkoutapp.SubmitCheckoutCommand, *dto.SubmitResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// respond dispatches a wizard command and renders the resulting session.
func (h CheckoutHandler) respond(c *gin.Context, status int, cmd commands.Command) {
	result, err := commands.Dispatch[commands.Command, dto.CheckoutSession](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(status, result)
}

var _ CheckoutHTTP = CheckoutHandler{}
