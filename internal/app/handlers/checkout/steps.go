package checkout

import (
	"context"
	"io"
	"strings"

	"vendibook/internal/app/commands"
	"vendibook/internal/app/dto"
	"vendibook/internal/app/policies"
	"vendibook/internal/app/uow"
	domaincheckout "vendibook/internal/domain/checkout"
	"vendibook/internal/domain/hourly"
	domainlistings "vendibook/internal/domain/listings"
	"vendibook/internal/domain/shared/daterange"
)

const (
	updateBusinessKey    = "checkout.business"
	stageDocumentKey     = "checkout.documents"
	updateSelectionKey   = "checkout.selection"
	updateFulfillmentKey = "checkout.fulfillment"
	goToStepKey          = "checkout.step"

	// MaxDocumentBytes caps a single staged upload.
	MaxDocumentBytes = 10 << 20
)

var allowedDocumentTypes = map[string]struct{}{
	"application/pdf": {},
	"image/jpeg":      {},
	"image/png":       {},
}

type UpdateBusinessCommand struct {
	SessionID string `json:"session_id" validate:"required"`
	RenterID  string `json:"renter_id" validate:"required"`
	Info      domaincheckout.BusinessInfo
}

func (c UpdateBusinessCommand) Key() string   { return updateBusinessKey }
func (c UpdateBusinessCommand) Actor() string { return c.RenterID }

type UpdateBusinessHandler struct {
	Deps
}

func (h *UpdateBusinessHandler) Handle(ctx context.Context, cmd UpdateBusinessCommand) (dto.CheckoutSession, error) {
	s, err := h.ownedSession(ctx, cmd.SessionID, cmd.RenterID)
	if err != nil {
		return dto.CheckoutSession{}, err
	}
	if err := s.SetBusinessInfo(cmd.Info, h.Clock.Now()); err != nil {
		return dto.CheckoutSession{}, err
	}
	return h.persist(ctx, s, domaincheckout.StepBusinessInfo)
}

type StageDocumentCommand struct {
	SessionID   string `json:"session_id" validate:"required"`
	RenterID    string `json:"renter_id" validate:"required"`
	DocType     string `json:"doc_type" validate:"required"`
	FileName    string `json:"file_name" validate:"required"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size" validate:"min=1"`
	Body        io.Reader
}

func (c StageDocumentCommand) Key() string   { return stageDocumentKey }
func (c StageDocumentCommand) Actor() string { return c.RenterID }

type StageDocumentHandler struct {
	Deps
	Stager policies.DocumentStager
}

func (h *StageDocumentHandler) Handle(ctx context.Context, cmd StageDocumentCommand) (dto.CheckoutSession, error) {
	s, err := h.ownedSession(ctx, cmd.SessionID, cmd.RenterID)
	if err != nil {
		return dto.CheckoutSession{}, err
	}
	if !s.Profile.DocumentRequired(cmd.DocType) {
		return dto.CheckoutSession{}, &domaincheckout.ValidationError{Field: "documents.type", Message: "document type is not requested by this listing"}
	}
	contentType := strings.ToLower(strings.TrimSpace(cmd.ContentType))
	if _, ok := allowedDocumentTypes[contentType]; !ok {
		return dto.CheckoutSession{}, &domaincheckout.ValidationError{Field: "documents.file", Message: "upload a PDF, JPEG or PNG file"}
	}
	if cmd.Size > MaxDocumentBytes {
		return dto.CheckoutSession{}, &domaincheckout.ValidationError{Field: "documents.file", Message: "file is larger than 10 MB"}
	}
	key, err := h.Stager.Stage(ctx, policies.StageRequest{
		SessionID:   cmd.SessionID,
		DocType:     cmd.DocType,
		FileName:    cmd.FileName,
		ContentType: contentType,
		Size:        cmd.Size,
		Body:        cmd.Body,
	})
	if err != nil {
		return dto.CheckoutSession{}, err
	}
	doc := domaincheckout.StagedDocument{
		Type:        cmd.DocType,
		FileName:    cmd.FileName,
		ContentType: contentType,
		Size:        cmd.Size,
		StagingKey:  key,
	}
	if err := s.StageDocument(doc, h.Clock.Now()); err != nil {
		return dto.CheckoutSession{}, err
	}
	return h.persist(ctx, s, domaincheckout.StepDocuments)
}

// UpdateSelectionCommand picks dates, or a start hour and duration on one
// date, plus the space on multi-slot listings.
type UpdateSelectionCommand struct {
	SessionID  string `json:"session_id" validate:"required"`
	RenterID   string `json:"renter_id" validate:"required"`
	Start      daterange.Date
	End        daterange.Date
	StartHour  *int
	Hours      int `json:"hours" validate:"min=0,max=24"`
	SlotNumber int `json:"slot_number" validate:"min=0"`
}

func (c UpdateSelectionCommand) Key() string   { return updateSelectionKey }
func (c UpdateSelectionCommand) Actor() string { return c.RenterID }

func (c UpdateSelectionCommand) selection() (domaincheckout.Selection, error) {
	end := c.End
	if end.IsZero() {
		end = c.Start
	}
	sel := domaincheckout.Selection{Span: daterange.Span{Start: c.Start, End: end}, SlotNumber: c.SlotNumber}
	if c.Hours > 0 {
		if c.StartHour == nil {
			return domaincheckout.Selection{}, &domaincheckout.ValidationError{Field: "selection.start_hour", Message: "choose a start time"}
		}
		w := hourly.Window{StartHour: *c.StartHour, EndHour: hourly.EndHour(*c.StartHour, c.Hours)}
		sel.Hours = &w
	}
	return sel, nil
}

type UpdateSelectionHandler struct {
	Deps
}

// Handle checks the selection against freshly read availability before
// storing it. A taken space is reported as a conflict.
func (h *UpdateSelectionHandler) Handle(ctx context.Context, cmd UpdateSelectionCommand) (dto.CheckoutSession, error) {
	s, err := h.ownedSession(ctx, cmd.SessionID, cmd.RenterID)
	if err != nil {
		return dto.CheckoutSession{}, err
	}
	sel, err := cmd.selection()
	if err != nil {
		return dto.CheckoutSession{}, err
	}
	if err := s.SetSelection(sel, h.Clock.Now()); err != nil {
		return dto.CheckoutSession{}, err
	}

	unit, ctx, release, err := uow.Reuse(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.CheckoutSession{}, err
	}
	defer release()
	resolver, _, err := h.Feeds.Resolver(ctx, unit, s.ListingID(), s.Selection.Span, h.Clock.Today())
	if err != nil {
		return dto.CheckoutSession{}, err
	}
	if err := checkSelection(resolver, s.Selection); err != nil {
		return dto.CheckoutSession{}, err
	}
	if err := h.Sessions.Put(ctx, s); err != nil {
		return dto.CheckoutSession{}, err
	}
	return h.view(ctx, s)
}

type UpdateFulfillmentCommand struct {
	SessionID       string                           `json:"session_id" validate:"required"`
	RenterID        string                           `json:"renter_id" validate:"required"`
	Method          domainlistings.FulfillmentMethod `json:"method" validate:"required"`
	DeliveryAddress string                           `json:"delivery_address"`
	TermsAccepted   bool                             `json:"terms_accepted"`
}

func (c UpdateFulfillmentCommand) Key() string   { return updateFulfillmentKey }
func (c UpdateFulfillmentCommand) Actor() string { return c.RenterID }

type UpdateFulfillmentHandler struct {
	Deps
}

func (h *UpdateFulfillmentHandler) Handle(ctx context.Context, cmd UpdateFulfillmentCommand) (dto.CheckoutSession, error) {
	s, err := h.ownedSession(ctx, cmd.SessionID, cmd.RenterID)
	if err != nil {
		return dto.CheckoutSession{}, err
	}
	f := domaincheckout.Fulfillment{Method: cmd.Method, DeliveryAddress: cmd.DeliveryAddress, TermsAccepted: cmd.TermsAccepted}
	if err := s.SetFulfillment(f, h.Clock.Now()); err != nil {
		return dto.CheckoutSession{}, err
	}
	return h.persist(ctx, s, domaincheckout.StepFulfillment)
}

type GoToStepCommand struct {
	SessionID string `json:"session_id" validate:"required"`
	RenterID  string `json:"renter_id" validate:"required"`
	Step      string `json:"step" validate:"required"`
}

func (c GoToStepCommand) Key() string   { return goToStepKey }
func (c GoToStepCommand) Actor() string { return c.RenterID }

type GoToStepHandler struct {
	Deps
}

func (h *GoToStepHandler) Handle(ctx context.Context, cmd GoToStepCommand) (dto.CheckoutSession, error) {
	s, err := h.ownedSession(ctx, cmd.SessionID, cmd.RenterID)
	if err != nil {
		return dto.CheckoutSession{}, err
	}
	unit, ctx, release, err := uow.Reuse(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.CheckoutSession{}, err
	}
	defer release()
	check, err := h.slotChecker(ctx, unit, s)
	if err != nil {
		return dto.CheckoutSession{}, err
	}
	if err := s.GoTo(domaincheckout.Step(cmd.Step), check, h.Clock.Now()); err != nil {
		return dto.CheckoutSession{}, err
	}
	if err := h.Sessions.Put(ctx, s); err != nil {
		return dto.CheckoutSession{}, err
	}
	return dto.MapCheckoutSession(s, check, h.quote(s)), nil
}

func (d Deps) persist(ctx context.Context, s *domaincheckout.Session, step domaincheckout.Step) (dto.CheckoutSession, error) {
	if err := d.advanceFrom(ctx, s, step); err != nil {
		return dto.CheckoutSession{}, err
	}
	if err := d.Sessions.Put(ctx, s); err != nil {
		return dto.CheckoutSession{}, err
	}
	return d.view(ctx, s)
}

var _ commands.Handler[UpdateBusinessCommand, dto.CheckoutSession] = (*UpdateBusinessHandler)(nil)
var _ commands.Handler[StageDocumentCommand, dto.CheckoutSession] = (*StageDocumentHandler)(nil)
var _ commands.Handler[UpdateSelectionCommand, dto.CheckoutSession] = (*UpdateSelectionHandler)(nil)
var _ commands.Handler[UpdateFulfillmentCommand, dto.CheckoutSession] = (*UpdateFulfillmentHandler)(nil)
var _ commands.Handler[GoToStepCommand, dto.CheckoutSession] = (*GoToStepHandler)(nil)
