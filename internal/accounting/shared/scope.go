package shared

import (
	"context"

	"github.com/google/uuid"
)

// Scope identifies the tenant whose books are touched and the actor doing it.
type Scope struct {
	TenantID uuid.UUID
	ActorID  int64
}

// Validate ensures the scope names a tenant.
func (s Scope) Validate() error {
	if s.TenantID == uuid.Nil {
		return Invalid("scope", nil, ErrInvalidInput, "tenant id required")
	}
	return nil
}

type scopeContextKey struct{}

// ContextWithScope stores the scope in context for transport layers.
func ContextWithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, scope)
}

// ScopeFromContext extracts the scope placed by ContextWithScope.
func ScopeFromContext(ctx context.Context) (Scope, bool) {
	scope, ok := ctx.Value(scopeContextKey{}).(Scope)
	return scope, ok
}
