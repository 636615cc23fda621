package auth

import (
	"context"

	"github.com/joao-fontenele/storefront-api/internal/domain"
)

type contextKey struct{}

func WithCaller(ctx context.Context, caller domain.Caller) context.Context {
	return context.WithValue(ctx, contextKey{}, caller)
}

// CallerFrom returns the zero Caller when the request was not authenticated.
func CallerFrom(ctx context.Context) domain.Caller {
	caller, _ := ctx.Value(contextKey{}).(domain.Caller)
	return caller
}
