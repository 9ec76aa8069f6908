package commands

import (
	"context"

	"vendibook/internal/app/bus"
)

// InMemoryBus dispatches to handlers in the same process.
type InMemoryBus struct {
	router *bus.Router[Command]
}

func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{router: bus.NewRouter[Command]("command")}
}

func (b *InMemoryBus) Dispatch(ctx context.Context, cmd Command) (any, error) {
	return b.router.Route(ctx, cmd)
}

// Keys lists the registered command keys, sorted.
func (b *InMemoryBus) Keys() []string {
	return b.router.Keys()
}

func RegisterHandler[C Command, R any](b *InMemoryBus, key string, handler Handler[C, R]) {
	b.router.Add(key, bus.Typed[Command](key, handler.Handle))
}
