package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"vendibook/internal/app/commands"
)

// IdempotentCommand carries a client-chosen key. ResultPrototype returns a
// pointer the stored result is decoded into; it must be the handler's result type.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	ResultPrototype() any
}

type IdempotencyRecord struct {
	Key        string
	Command    string
	Payload    []byte
	OccurredAt time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

// ResultCodec serialises handler results for replay.
type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONResultCodec) Decode(data []byte, out any) error {
	return json.Unmarshal(data, out)
}

var (
	errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")
	ErrKeyReused        = errors.New("middleware: idempotency key reused for a different command")
)

// Idempotency answers a repeated command with the result stored for its key.
// Only successes are stored, so a failed submit can be retried with the same key.
func Idempotency(store IdempotencyStore, codec ResultCodec) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	g := idempotencyGate{store: store, codec: codec, now: time.Now}
	return around(func(ctx context.Context, cmd commands.Command, next commands.BusFunc) (any, error) {
		keyed, ok := cmd.(IdempotentCommand)
		if !ok || keyed.IdempotencyKey() == "" {
			return next(ctx, cmd)
		}
		if res, hit, err := g.replay(ctx, keyed); hit || err != nil {
			return res, err
		}
		res, err := next(ctx, cmd)
		if err != nil {
			return nil, err
		}
		if err := g.remember(ctx, keyed, res); err != nil {
			return nil, err
		}
		return res, nil
	})
}

type idempotencyGate struct {
	store IdempotencyStore
	codec ResultCodec
	now   func() time.Time
}

func (g idempotencyGate) replay(ctx context.Context, cmd IdempotentCommand) (any, bool, error) {
	rec, found, err := g.store.Get(ctx, cmd.IdempotencyKey())
	if err != nil || !found {
		return nil, false, err
	}
	if rec.Command != "" && rec.Command != cmd.Key() {
		return nil, true, ErrKeyReused
	}
	out := cmd.ResultPrototype()
	if out == nil {
		return nil, true, errMissingPrototype
	}
	if len(rec.Payload) > 0 {
		if err := g.codec.Decode(rec.Payload, out); err != nil {
			return nil, true, err
		}
	}
	return out, true, nil
}

func (g idempotencyGate) remember(ctx context.Context, cmd IdempotentCommand, result any) error {
	rec := IdempotencyRecord{
		Key:        cmd.IdempotencyKey(),
		Command:    cmd.Key(),
		OccurredAt: g.now().UTC(),
	}
	if result != nil {
		payload, err := g.codec.Encode(result)
		if err != nil {
			return err
		}
		rec.Payload = payload
	}
	return g.store.Save(ctx, rec)
}
