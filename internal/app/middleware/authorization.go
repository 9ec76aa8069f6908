package middleware

import (
	"context"

	"vendibook/internal/app/commands"
	"vendibook/internal/app/identity"
)

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

type AuthorizerFunc func(ctx context.Context, message any) error

func (f AuthorizerFunc) Authorize(ctx context.Context, message any) error {
	return f(ctx, message)
}

// ActorAuthorizer requires commands issued on behalf of a user to carry the
// authenticated principal as their actor. Other commands pass through.
var ActorAuthorizer = AuthorizerFunc(func(ctx context.Context, message any) error {
	cmd, ok := message.(commands.ActorCommand)
	if !ok {
		return nil
	}
	principal, ok := identity.FromContext(ctx)
	if !ok {
		return identity.ErrUnauthenticated
	}
	if cmd.Actor() != principal.UserID {
		return identity.ErrForbidden
	}
	return nil
})

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return guard(func(ctx context.Context, cmd commands.Command) error {
		return a.Authorize(ctx, cmd)
	})
}
