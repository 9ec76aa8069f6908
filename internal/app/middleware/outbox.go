package middleware

import (
	"context"

	"vendibook/internal/app/commands"
	"vendibook/internal/app/outbox"
)

// OutboxFlush hands staged events to the outbox once the command succeeded.
// A flush failure fails the command.
func OutboxFlush(box outbox.Outbox) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	return around(func(ctx context.Context, cmd commands.Command, next commands.BusFunc) (any, error) {
		res, err := next(ctx, cmd)
		if err != nil {
			return res, err
		}
		if err := box.Flush(ctx); err != nil {
			return nil, err
		}
		return res, nil
	})
}
