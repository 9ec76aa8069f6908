package me

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"vendibook/internal/app/commands"
	"vendibook/internal/app/dto"
	"vendibook/internal/app/handlers/booking"
	"vendibook/internal/app/policies"
	"vendibook/internal/app/queries"
	"vendibook/internal/app/uow"
	domainbooking "vendibook/internal/domain/booking"
)

const (
	listReservationsKey  = "me.reservations.list"
	cancelReservationKey = "me.reservations.cancel"
	retryPaymentKey      = "me.reservations.retry_payment"
)

var (
	ErrReservationNotOwned = errors.New("me: reservation belongs to another renter")
	ErrNothingToRetry      = errors.New("me: reservation payment does not need a retry")
)

type ListReservationsQuery struct {
	RenterID string `json:"renter_id" validate:"required"`
}

func (q ListReservationsQuery) Key() string { return listReservationsKey }

type ListReservationsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListReservationsHandler) Handle(ctx context.Context, q ListReservationsQuery) (dto.ReservationCollection, error) {
	unit, ctx, release, err := uow.Reuse(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.ReservationCollection{}, err
	}
	defer release()
	items, err := unit.Reservations().ListByRenter(ctx, q.RenterID)
	if err != nil {
		return dto.ReservationCollection{}, err
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	out := dto.ReservationCollection{Items: make([]dto.Reservation, 0, len(items))}
	for _, r := range items {
		out.Items = append(out.Items, dto.MapReservation(r))
	}
	return out, nil
}

type CancelReservationCommand struct {
	RenterID      string `json:"renter_id" validate:"required"`
	ReservationID string `json:"reservation_id" validate:"required"`
	Reason        string `json:"reason"`
}

func (c CancelReservationCommand) Key() string   { return cancelReservationKey }
func (c CancelReservationCommand) Actor() string { return c.RenterID }

type CancelReservationHandler struct {
	booking.Lifecycle
}

// Handle cancels a pending or approved reservation and frees its inventory.
func (h *CancelReservationHandler) Handle(ctx context.Context, cmd CancelReservationCommand) (dto.Reservation, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return dto.Reservation{}, uow.ErrUnitOfWorkMissing
	}
	r, err := owned(ctx, unit, cmd.RenterID, cmd.ReservationID)
	if err != nil {
		return dto.Reservation{}, err
	}
	if err := r.Cancel(cmd.Reason, h.Clock.Now()); err != nil {
		return dto.Reservation{}, err
	}
	out, err := h.Save(ctx, unit, r)
	if err != nil {
		return dto.Reservation{}, err
	}
	h.ReleaseHold(context.WithoutCancel(ctx), r)
	return out, nil
}

type RetryPaymentCommand struct {
	RenterID      string `json:"renter_id" validate:"required"`
	ReservationID string `json:"reservation_id" validate:"required"`
}

func (c RetryPaymentCommand) Key() string   { return retryPaymentKey }
func (c RetryPaymentCommand) Actor() string { return c.RenterID }

type RetryPaymentHandler struct {
	booking.Lifecycle
}

// Handle repeats the payment handoff of a reservation whose first attempt failed.
func (h *RetryPaymentHandler) Handle(ctx context.Context, cmd RetryPaymentCommand) (dto.Reservation, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return dto.Reservation{}, uow.ErrUnitOfWorkMissing
	}
	r, err := owned(ctx, unit, cmd.RenterID, cmd.ReservationID)
	if err != nil {
		return dto.Reservation{}, err
	}
	if !r.NeedsPaymentRetry() {
		return dto.Reservation{}, ErrNothingToRetry
	}
	if h.Payments == nil {
		return dto.Reservation{}, fmt.Errorf("me: retry payment: %w", errors.New("payments are not configured"))
	}
	mode := policies.CaptureHold
	if r.InstantBook {
		mode = policies.CaptureNow
	}
	now := h.Clock.Now()
	res, err := h.Payments.Handoff(ctx, policies.PaymentRequest{
		ReservationID:  string(r.ID),
		RenterID:       r.RenterID,
		Amount:         r.Quote.TotalWithFees,
		Mode:           mode,
		IdempotencyKey: fmt.Sprintf("reservation-%s-retry-%d", r.ID, r.Version),
	})
	if err != nil {
		return dto.Reservation{}, err
	}
	state := domainbooking.PaymentAuthorized
	if res.Captured {
		state = domainbooking.PaymentCaptured
	}
	if err := r.AttachPayment(res.Reference, state, now); err != nil {
		return dto.Reservation{}, err
	}
	if r.InstantBook {
		if err := r.Approve(now); err != nil {
			return dto.Reservation{}, err
		}
	}
	return h.Save(ctx, unit, r)
}

func owned(ctx context.Context, unit uow.UnitOfWork, renterID, id string) (*domainbooking.Reservation, error) {
	r, err := unit.Reservations().ByID(ctx, domainbooking.ReservationID(id))
	if err != nil {
		return nil, err
	}
	if r.RenterID != renterID {
		return nil, ErrReservationNotOwned
	}
	return r, nil
}

var _ queries.Handler[ListReservationsQuery, dto.ReservationCollection] = (*ListReservationsHandler)(nil)
var _ commands.Handler[CancelReservationCommand, dto.Reservation] = (*CancelReservationHandler)(nil)
var _ commands.Handler[RetryPaymentCommand, dto.Reservation] = (*RetryPaymentHandler)(nil)
