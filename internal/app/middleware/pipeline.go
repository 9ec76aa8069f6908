package middleware

import (
	"context"

	"vendibook/internal/app/commands"
	"vendibook/internal/app/queries"
)

type CommandMiddleware func(next commands.Bus) commands.Bus

type QueryMiddleware func(next queries.Bus) queries.Bus

// ChainCommands wraps base so that mws[0] sees each command first.
func ChainCommands(base commands.Bus, mws ...CommandMiddleware) commands.Bus {
	return chain(base, mws)
}

func ChainQueries(base queries.Bus, mws ...QueryMiddleware) queries.Bus {
	return chain(base, mws)
}

func chain[B any, MW ~func(B) B](base B, mws []MW) B {
	for i := len(mws) - 1; i >= 0; i-- {
		base = mws[i](base)
	}
	return base
}

// around turns a step that receives the rest of the pipeline into a middleware.
func around(step func(ctx context.Context, cmd commands.Command, next commands.BusFunc) (any, error)) CommandMiddleware {
	return func(next commands.Bus) commands.Bus {
		return commands.BusFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			return step(ctx, cmd, next.Dispatch)
		})
	}
}

func aroundQuery(step func(ctx context.Context, q queries.Query, next queries.BusFunc) (any, error)) QueryMiddleware {
	return func(next queries.Bus) queries.Bus {
		return queries.BusFunc(func(ctx context.Context, q queries.Query) (any, error) {
			return step(ctx, q, next.Ask)
		})
	}
}

// guard runs check before the command and stops the pipeline when it fails.
func guard(check func(ctx context.Context, cmd commands.Command) error) CommandMiddleware {
	return around(func(ctx context.Context, cmd commands.Command, next commands.BusFunc) (any, error) {
		if err := check(ctx, cmd); err != nil {
			return nil, err
		}
		return next(ctx, cmd)
	})
}
