package opcall

import "context"

type contextKey struct {
	name string
}

var operationKey = &contextKey{"operation"}

// OperationFromContext returns the external name of the operation being
// invoked. It is set on the context passed to interceptors and to service
// methods that accept a context.
func OperationFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(operationKey).(string)
	return name, ok
}

func withOperation(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, operationKey, name)
}
