package commands

import (
	"context"
	"errors"

	"vendibook/internal/app/bus"
)

// Command is a write intent. Its key selects the handler.
type Command interface {
	Key() string
}

type Handler[C Command, R any] interface {
	Handle(ctx context.Context, cmd C) (R, error)
}

type Bus interface {
	Dispatch(ctx context.Context, cmd Command) (any, error)
}

// BusFunc lets a plain function stand in for a Bus.
type BusFunc func(ctx context.Context, cmd Command) (any, error)

func (f BusFunc) Dispatch(ctx context.Context, cmd Command) (any, error) {
	return f(ctx, cmd)
}

// ActorCommand is issued on behalf of a signed-in user.
type ActorCommand interface {
	Command
	Actor() string
}

// SelfManagedTransaction marks commands whose handler commits its own unit of
// work so it can keep going after the commit (payment handoff, staging).
type SelfManagedTransaction interface {
	Command
	ManagesTransaction() bool
}

var (
	ErrHandlerNotFound = bus.ErrNoRoute
	ErrNilBus          = errors.New("commands: nil bus")
)

// Dispatch sends cmd and narrows the result to R.
func Dispatch[C Command, R any](ctx context.Context, b Bus, cmd C) (R, error) {
	if b == nil {
		var zero R
		return zero, ErrNilBus
	}
	return bus.Result[R](b.Dispatch(ctx, cmd))
}
