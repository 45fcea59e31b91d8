package cancel

import (
	"context"

	"github.com/goliatone/go-router"
)

var invokerCtxKey = &contextKey{"invoker"}

type contextKey struct {
	name string
}

// WithInvoker sets the Invoker in the given context
func WithInvoker(ctx context.Context, invoker Invoker) context.Context {
	return context.WithValue(ctx, invokerCtxKey, invoker)
}

// InvokerFromContext finds the invoker from the context.
func InvokerFromContext(ctx context.Context) (Invoker, bool) {
	if ctx == nil {
		return Invoker{}, false
	}
	raw, ok := ctx.Value(invokerCtxKey).(Invoker)
	return raw, ok
}

// InvokerMiddleware resolves the invoker once per request and stores it in
// the request context. Unresolvable requests are passed through, the
// handlers decide whether an invoker is required.
func InvokerMiddleware(resolver InvokerResolver) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if resolver != nil {
				if invoker, err := resolver(ctx); err == nil {
					ctx.SetContext(WithInvoker(ctx.Context(), invoker))
				}
			}
			return next(ctx)
		}
	}
}

// CanFromContext checks a capability for the invoker stored in ctx.
func CanFromContext(ctx context.Context, authorizer Authorizer, capability Capability) bool {
	invoker, ok := InvokerFromContext(ctx)
	if !ok || authorizer == nil {
		return false
	}
	return authorizer.HasCapability(ctx, invoker, capability)
}
