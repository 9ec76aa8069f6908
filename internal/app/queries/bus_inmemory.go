package queries

import (
	"context"

	"vendibook/internal/app/bus"
)

type InMemoryBus struct {
	router *bus.Router[Query]
}

func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{router: bus.NewRouter[Query]("query")}
}

func (b *InMemoryBus) Ask(ctx context.Context, query Query) (any, error) {
	return b.router.Route(ctx, query)
}

func RegisterHandler[Q Query, R any](b *InMemoryBus, key string, handler Handler[Q, R]) {
	b.router.Add(key, bus.Typed[Query](key, handler.Handle))
}
