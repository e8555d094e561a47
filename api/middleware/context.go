package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	ctxUserID   contextKey = "user_id"
	ctxTenantID contextKey = "tenant_id"
	ctxRole     contextKey = "actor_role"
	ctxDriverID contextKey = "driver_id"
)

func UserIDFromContext(ctx context.Context) uuid.UUID {
	return uuidFromContext(ctx, ctxUserID)
}

func TenantIDFromContext(ctx context.Context) uuid.UUID {
	return uuidFromContext(ctx, ctxTenantID)
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// DriverIDFromContext returns the caller's driver profile id, or nil for ops
// users.
func DriverIDFromContext(ctx context.Context) *uuid.UUID {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxDriverID).(uuid.UUID); ok {
		return &v
	}
	return nil
}

func uuidFromContext(ctx context.Context, key contextKey) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(key).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

// WithIdentity seeds the context the way Auth does. Intended for tests and
// internal callers.
func WithIdentity(ctx context.Context, userID, tenantID uuid.UUID, role string, driverID *uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxTenantID, tenantID)
	ctx = context.WithValue(ctx, ctxRole, role)
	if driverID != nil {
		ctx = context.WithValue(ctx, ctxDriverID, *driverID)
	}
	return ctx
}
