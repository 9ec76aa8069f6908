package middleware_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendibook/internal/app/commands"
	"vendibook/internal/app/identity"
	"vendibook/internal/app/middleware"
	"vendibook/internal/app/uow"
	"vendibook/internal/infra/storage/memory"
)

type result struct {
	ID string `json:"id"`
}

type submitCmd struct {
	Renter  string `json:"renter_id" validate:"required"`
	IdemKey string `json:"-"`
}

func (submitCmd) Key() string              { return "test.submit" }
func (c submitCmd) Actor() string          { return c.Renter }
func (c submitCmd) IdempotencyKey() string { return c.IdemKey }
func (submitCmd) ResultPrototype() any     { return &result{} }

type otherCmd struct {
	IdemKey string
}

func (otherCmd) Key() string              { return "test.other" }
func (c otherCmd) IdempotencyKey() string { return c.IdemKey }
func (otherCmd) ResultPrototype() any     { return &result{} }

type countingBus struct {
	calls int
	err   error
	ctxs  []context.Context
}

func (b *countingBus) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	b.calls++
	b.ctxs = append(b.ctxs, ctx)
	if b.err != nil {
		return nil, b.err
	}
	return &result{ID: "r-1"}, nil
}

func TestChainCommands_OrderOutermostFirst(t *testing.T) {
	var trace []string
	mark := func(name string) middleware.CommandMiddleware {
		return func(next commands.Bus) commands.Bus {
			return commands.BusFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
				trace = append(trace, name)
				return next.Dispatch(ctx, cmd)
			})
		}
	}
	bus := middleware.ChainCommands(&countingBus{}, mark("outer"), mark("inner"))
	_, err := bus.Dispatch(context.Background(), otherCmd{})
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, trace)
}

func TestAuthorization(t *testing.T) {
	tests := []struct {
		name    string
		ctx     context.Context
		cmd     commands.Command
		wantErr error
	}{
		{
			name:    "anonymous actor command",
			ctx:     context.Background(),
			cmd:     submitCmd{Renter: "renter-1"},
			wantErr: identity.ErrUnauthenticated,
		},
		{
			name:    "acting for someone else",
			ctx:     identity.WithPrincipal(context.Background(), identity.Principal{UserID: "renter-2"}),
			cmd:     submitCmd{Renter: "renter-1"},
			wantErr: identity.ErrForbidden,
		},
		{
			name: "acting for self",
			ctx:  identity.WithPrincipal(context.Background(), identity.Principal{UserID: "renter-1"}),
			cmd:  submitCmd{Renter: "renter-1"},
		},
		{
			name: "command without actor",
			ctx:  context.Background(),
			cmd:  otherCmd{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := &countingBus{}
			bus := middleware.ChainCommands(next, middleware.Authorization(middleware.ActorAuthorizer))
			_, err := bus.Dispatch(tt.ctx, tt.cmd)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, next.calls)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 1, next.calls)
		})
	}
}

func TestValidation_ReportsJSONFieldName(t *testing.T) {
	next := &countingBus{}
	bus := middleware.ChainCommands(next, middleware.Validation(middleware.NewStructValidator()))

	_, err := bus.Dispatch(context.Background(), submitCmd{})
	var ferr *middleware.FieldError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "renter_id", ferr.Field)
	assert.Equal(t, "required", ferr.Rule)
	assert.Zero(t, next.calls)
}

func TestIdempotency(t *testing.T) {
	store := memory.NewIdempotencyStore(0)
	next := &countingBus{}
	bus := middleware.ChainCommands(next, middleware.Idempotency(store, nil))
	ctx := context.Background()

	first, err := bus.Dispatch(ctx, submitCmd{Renter: "renter-1", IdemKey: "k-1"})
	require.NoError(t, err)
	second, err := bus.Dispatch(ctx, submitCmd{Renter: "renter-1", IdemKey: "k-1"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, next.calls, "replay does not reach the handler")

	_, err = bus.Dispatch(ctx, otherCmd{IdemKey: "k-1"})
	assert.ErrorIs(t, err, middleware.ErrKeyReused)

	_, err = bus.Dispatch(ctx, submitCmd{Renter: "renter-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls, "commands without a key are never replayed")
}

func TestIdempotency_FailuresAreNotRecorded(t *testing.T) {
	store := memory.NewIdempotencyStore(0)
	next := &countingBus{err: errors.New("boom")}
	bus := middleware.ChainCommands(next, middleware.Idempotency(store, nil))
	ctx := context.Background()

	_, err := bus.Dispatch(ctx, submitCmd{Renter: "renter-1", IdemKey: "k-1"})
	require.Error(t, err)
	next.err = nil
	_, err = bus.Dispatch(ctx, submitCmd{Renter: "renter-1", IdemKey: "k-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestTransaction_InjectsUnitAndHonoursOptions(t *testing.T) {
	factory := memory.NewFactory()
	next := &countingBus{}
	bus := middleware.ChainCommands(next, middleware.Transaction(factory, func(cmd commands.Command) uow.TxOptions {
		return uow.TxOptions{ReadOnly: cmd.Key() == "test.other"}
	}))

	_, err := bus.Dispatch(context.Background(), otherCmd{})
	require.NoError(t, err)
	require.Len(t, next.ctxs, 1)
	unit, ok := uow.FromContext(next.ctxs[0])
	require.True(t, ok)
	assert.ErrorIs(t, unit.Commit(context.Background()), memory.ErrUnitClosed, "unit is committed once the handler returns")
}

func TestTransaction_SkipsSelfManagedCommands(t *testing.T) {
	next := &countingBus{}
	bus := middleware.ChainCommands(next, middleware.Transaction(memory.NewFactory(), nil))

	_, err := bus.Dispatch(context.Background(), selfManaged{})
	require.NoError(t, err)
	_, ok := uow.FromContext(next.ctxs[0])
	assert.False(t, ok)
}

type selfManaged struct{}

func (selfManaged) Key() string              { return "test.self" }
func (selfManaged) ManagesTransaction() bool { return true }
