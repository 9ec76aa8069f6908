package identity

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrUnauthenticated = errors.New("identity: authentication required")
	ErrForbidden       = errors.New("identity: actor is not allowed to perform this action")
)

const RoleHost = "host"

// Principal is the authenticated caller attached to a request.
type Principal struct {
	UserID string
	Roles  []string
}

func (p Principal) Authenticated() bool {
	return strings.TrimSpace(p.UserID) != ""
}

func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	if !ok || !p.Authenticated() {
		return Principal{}, false
	}
	return p, true
}
