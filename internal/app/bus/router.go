// Package bus holds the routing table shared by the command and query buses.
package bus

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrNoRoute    = errors.New("bus: no handler registered")
	ErrWrongType  = errors.New("bus: message does not match handler")
	ErrResultType = errors.New("bus: result type mismatch")
)

// Message is anything routed by key.
type Message interface {
	Key() string
}

// Route handles one message kind with an untyped result.
type Route[M Message] func(ctx context.Context, msg M) (any, error)

// Router maps message keys to routes. Routes are registered at startup;
// registering a blank or duplicate key panics.
type Router[M Message] struct {
	kind   string
	mu     sync.RWMutex
	routes map[string]Route[M]
}

func NewRouter[M Message](kind string) *Router[M] {
	return &Router[M]{kind: kind, routes: make(map[string]Route[M])}
}

func (r *Router[M]) Add(key string, route Route[M]) {
	if key == "" || route == nil {
		panic(fmt.Sprintf("%s: incomplete registration", r.kind))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.routes[key]; dup {
		panic(fmt.Sprintf("%s: %q registered twice", r.kind, key))
	}
	r.routes[key] = route
}

func (r *Router[M]) Route(ctx context.Context, msg M) (any, error) {
	r.mu.RLock()
	route := r.routes[msg.Key()]
	r.mu.RUnlock()
	if route == nil {
		return nil, fmt.Errorf("%s %q: %w", r.kind, msg.Key(), ErrNoRoute)
	}
	return route(ctx, msg)
}

// Keys lists the registered keys in order.
func (r *Router[M]) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.routes))
	for k := range r.routes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Typed adapts a handler taking a concrete message type T to a Route.
func Typed[M Message, T Message, R any](key string, handle func(context.Context, T) (R, error)) Route[M] {
	return func(ctx context.Context, msg M) (any, error) {
		typed, ok := any(msg).(T)
		if !ok {
			return nil, fmt.Errorf("%q got %T: %w", key, msg, ErrWrongType)
		}
		return handle(ctx, typed)
	}
}

// Result narrows an untyped bus result. A nil result yields the zero value.
func Result[R any](res any, err error) (R, error) {
	var zero R
	if err != nil || res == nil {
		return zero, err
	}
	value, ok := res.(R)
	if !ok {
		return zero, fmt.Errorf("%w: want %T, got %T", ErrResultType, zero, res)
	}
	return value, nil
}
