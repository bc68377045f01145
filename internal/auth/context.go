package auth

import "context"

type accountIDKey struct{}

// WithAccountID attaches a verified account id to ctx.
func WithAccountID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, accountIDKey{}, id)
}

// AccountIDFromContext returns the account id set by the middleware, if any.
func AccountIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(accountIDKey{}).(int64)
	return id, ok
}
