package opcall

import "context"

// HandlerFunc represents the next stage in an interceptor chain: either the
// next interceptor or the final method invocation.
type HandlerFunc func(ctx context.Context) (any, error)

// Interceptor wraps the invocation of an operation. Interceptors can
// inspect the operation name, attach values to the context, short-circuit
// by returning without calling next, or observe the outcome. Errors
// returned by an interceptor are classified exactly like errors from the
// operation itself.
type Interceptor func(ctx context.Context, operation string, next HandlerFunc) (any, error)

// chainInterceptors combines interceptors into one; the first registered
// runs outermost. Returns nil for an empty chain.
func chainInterceptors(interceptors []Interceptor) Interceptor {
	switch len(interceptors) {
	case 0:
		return nil
	case 1:
		return interceptors[0]
	}
	return func(ctx context.Context, operation string, next HandlerFunc) (any, error) {
		chain := next
		for i := len(interceptors) - 1; i >= 0; i-- {
			current := interceptors[i]
			inner := chain
			chain = func(ctx context.Context) (any, error) {
				return current(ctx, operation, inner)
			}
		}
		return chain(ctx)
	}
}
