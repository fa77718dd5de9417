package auth

import (
	"context"

	"github.com/advocacia-ai/painel/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// principalContextKey is the context key for storing the Principal.
	principalContextKey contextKey = "principal"
)

// ContextWithPrincipal adds the resolved Principal to the context.
func ContextWithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext retrieves the Principal from the context.
// The boolean is false when the request was not authenticated.
func PrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(model.Principal)
	return p, ok
}

// MustPrincipal retrieves the Principal from the context.
// Panics if not present (use only behind the authentication middleware).
func MustPrincipal(ctx context.Context) model.Principal {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		panic("principal not found - ensure authentication middleware is applied")
	}
	return p
}

// UserIDFromContext is a convenience function to get the user ID from context.
// Returns empty string if not authenticated.
func UserIDFromContext(ctx context.Context) string {
	p, _ := PrincipalFromContext(ctx)
	return p.ID
}
