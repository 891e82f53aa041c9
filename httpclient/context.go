package httpclient

import "context"

type ctxKey int

const (
	retriedKey ctxKey = iota
	skipAuthKey
)

// withRetried marks the request as already re-issued after a refresh.
func withRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedKey, true)
}

func isRetried(ctx context.Context) bool {
	v, _ := ctx.Value(retriedKey).(bool)
	return v
}

// WithoutAuth marks a request as unauthenticated: no bearer header and no refresh on 401.
func WithoutAuth(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipAuthKey, true)
}

func skipAuth(ctx context.Context) bool {
	v, _ := ctx.Value(skipAuthKey).(bool)
	return v
}
