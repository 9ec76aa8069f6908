package middleware

import (
	"context"
	"log/slog"
	"time"

	"vendibook/internal/app/commands"
	"vendibook/internal/app/queries"
)

// Logging reports failed commands at warn level and the rest at debug.
func Logging(logger *slog.Logger) CommandMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return around(func(ctx context.Context, cmd commands.Command, next commands.BusFunc) (any, error) {
		started := time.Now()
		res, err := next(ctx, cmd)
		attrs := []any{"command", cmd.Key(), "took", time.Since(started)}
		if err != nil {
			logger.WarnContext(ctx, "command rejected", append(attrs, "error", err)...)
		} else {
			logger.DebugContext(ctx, "command done", attrs...)
		}
		return res, err
	})
}

func QueryLogging(logger *slog.Logger) QueryMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return aroundQuery(func(ctx context.Context, q queries.Query, next queries.BusFunc) (any, error) {
		started := time.Now()
		res, err := next(ctx, q)
		if err != nil {
			logger.DebugContext(ctx, "query rejected", "query", q.Key(), "took", time.Since(started), "error", err)
		}
		return res, err
	})
}
