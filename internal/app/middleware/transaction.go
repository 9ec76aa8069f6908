package middleware

import (
	"context"

	"vendibook/internal/app/commands"
	"vendibook/internal/app/uow"
)

// TxOptionsProvider picks the unit-of-work options for a command.
type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// Transaction gives every command its own unit of work, committed only when
// the handler succeeds. Self-managed commands open their own.
func Transaction(factory uow.UoWFactory, optsFor TxOptionsProvider) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	if optsFor == nil {
		optsFor = func(commands.Command) uow.TxOptions { return uow.TxOptions{} }
	}
	return around(func(ctx context.Context, cmd commands.Command, next commands.BusFunc) (any, error) {
		if self, ok := cmd.(commands.SelfManagedTransaction); ok && self.ManagesTransaction() {
			return next(ctx, cmd)
		}
		unit, txCtx, err := uow.Begin(ctx, factory, optsFor(cmd))
		if err != nil {
			return nil, err
		}
		res, err := next(txCtx, cmd)
		if err == nil {
			err = unit.Commit(txCtx)
		}
		if err != nil {
			_ = unit.Rollback(txCtx)
			return nil, err
		}
		return res, nil
	})
}
