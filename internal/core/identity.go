package core

import "context"

// Principal is the authenticated caller and the organization billed for its requests.
type Principal struct {
	UserID         string
	OrganizationID string
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	if !ok || p.UserID == "" || p.OrganizationID == "" {
		return Principal{}, false
	}
	return p, true
}
