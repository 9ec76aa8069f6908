package booking

import (
	"context"
	"errors"
	"log/slog"

	"vendibook/internal/app/commands"
	"vendibook/internal/app/dto"
	"vendibook/internal/app/handlers/support"
	"vendibook/internal/app/outbox"
	"vendibook/internal/app/policies"
	"vendibook/internal/app/uow"
	domainbooking "vendibook/internal/domain/booking"
)

const (
	approveReservationKey = "host.reservations.approve"
	declineReservationKey = "host.reservations.decline"
)

var ErrReservationNotOwned = errors.New("booking: reservation not owned by host")

// Lifecycle carries what reservation transitions need.
type Lifecycle struct {
	Payments policies.PaymentsPort
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	Clock    support.Clock
	Logger   *slog.Logger
}

func (l Lifecycle) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func (l Lifecycle) load(ctx context.Context, id string) (uow.UnitOfWork, *domainbooking.Reservation, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, nil, uow.ErrUnitOfWorkMissing
	}
	r, err := unit.Reservations().ByID(ctx, domainbooking.ReservationID(id))
	if err != nil {
		return nil, nil, err
	}
	return unit, r, nil
}

// Save persists r and stages its events.
func (l Lifecycle) Save(ctx context.Context, unit uow.UnitOfWork, r *domainbooking.Reservation) (dto.Reservation, error) {
	if err := unit.Reservations().Save(ctx, r); err != nil {
		return dto.Reservation{}, err
	}
	if err := outbox.Drain(ctx, l.Outbox, l.Encoder, r); err != nil {
		return dto.Reservation{}, err
	}
	return dto.MapReservation(r), nil
}

// ReleaseHold voids an authorization hold that will never be captured.
func (l Lifecycle) ReleaseHold(ctx context.Context, r *domainbooking.Reservation) {
	if l.Payments == nil || r.PaymentState != domainbooking.PaymentAuthorized {
		return
	}
	if err := l.Payments.Release(ctx, r.PaymentRef); err != nil {
		l.logger().WarnContext(ctx, "payment hold not released", "reservation_id", r.ID, "payment_ref", r.PaymentRef, "error", err)
	}
}

type ApproveReservationCommand struct {
	HostID        string `json:"host_id" validate:"required"`
	ReservationID string `json:"reservation_id" validate:"required"`
}

func (c ApproveReservationCommand) Key() string   { return approveReservationKey }
func (c ApproveReservationCommand) Actor() string { return c.HostID }

type ApproveReservationHandler struct {
	Lifecycle
}

// Handle approves a pending request and captures its authorization hold.
func (h *ApproveReservationHandler) Handle(ctx context.Context, cmd ApproveReservationCommand) (dto.Reservation, error) {
	unit, r, err := h.load(ctx, cmd.ReservationID)
	if err != nil {
		return dto.Reservation{}, err
	}
	if string(r.HostID) != cmd.HostID {
		return dto.Reservation{}, ErrReservationNotOwned
	}
	now := h.Clock.Now()
	if err := r.Approve(now); err != nil {
		return dto.Reservation{}, err
	}
	if r.PaymentState == domainbooking.PaymentAuthorized && h.Payments != nil {
		if err := h.Payments.Capture(ctx, r.PaymentRef); err != nil {
			return dto.Reservation{}, err
		}
		if err := r.AttachPayment(r.PaymentRef, domainbooking.PaymentCaptured, now); err != nil {
			return dto.Reservation{}, err
		}
	}
	return h.Save(ctx, unit, r)
}

type DeclineReservationCommand struct {
	HostID        string `json:"host_id" validate:"required"`
	ReservationID string `json:"reservation_id" validate:"required"`
	Reason        string `json:"reason"`
}

func (c DeclineReservationCommand) Key() string   { return declineReservationKey }
func (c DeclineReservationCommand) Actor() string { return c.HostID }

type DeclineReservationHandler struct {
	Lifecycle
}

func (h *DeclineReservationHandler) Handle(ctx context.Context, cmd DeclineReservationCommand) (dto.Reservation, error) {
	unit, r, err := h.load(ctx, cmd.ReservationID)
	if err != nil {
		return dto.Reservation{}, err
	}
	if string(r.HostID) != cmd.HostID {
		return dto.Reservation{}, ErrReservationNotOwned
	}
	if err := r.Decline(cmd.Reason, h.Clock.Now()); err != nil {
		return dto.Reservation{}, err
	}
	out, err := h.Save(ctx, unit, r)
	if err != nil {
		return dto.Reservation{}, err
	}
	h.ReleaseHold(context.WithoutCancel(ctx), r)
	return out, nil
}

var _ commands.Handler[ApproveReservationCommand, dto.Reservation] = (*ApproveReservationHandler)(nil)
var _ commands.Handler[DeclineReservationCommand, dto.Reservation] = (*DeclineReservationHandler)(nil)
