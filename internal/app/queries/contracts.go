package queries

import (
	"context"
	"errors"

	"vendibook/internal/app/bus"
)

// Query reads state and never mutates it.
type Query interface {
	Key() string
}

type Handler[Q Query, R any] interface {
	Handle(ctx context.Context, query Q) (R, error)
}

type Bus interface {
	Ask(ctx context.Context, query Query) (any, error)
}

type BusFunc func(ctx context.Context, query Query) (any, error)

func (f BusFunc) Ask(ctx context.Context, query Query) (any, error) {
	return f(ctx, query)
}

var (
	ErrHandlerNotFound = bus.ErrNoRoute
	ErrNilBus          = errors.New("queries: nil bus")
)

// Ask sends query and narrows the result to R.
func Ask[Q Query, R any](ctx context.Context, b Bus, query Q) (R, error) {
	if b == nil {
		var zero R
		return zero, ErrNilBus
	}
	return bus.Result[R](b.Ask(ctx, query))
}
