// Package ctxkeys holds the shared context keys for the API layer.
// Extracted to a leaf package to avoid import cycles between api and
// api/handlers.
package ctxkeys

import "context"

// Key is the unexported named type for all API context keys.
// context.Value compares both type and value, so a named type cannot collide
// with string keys from other packages.
type Key string

// ServiceID is the context key for the authenticated service.
// Injected by the auth middleware from JWT claims, read by handlers that
// need caller identity.
const ServiceID Key = "service_id"

// WithValue adds a ctxkeys.Key value to the context.
func WithValue(ctx context.Context, key Key, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

// Value reads a ctxkeys.Key value from the context, returning "" if unset.
func Value(ctx context.Context, key Key) string {
	v, _ := ctx.Value(key).(string)
	return v
}
