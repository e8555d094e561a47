package middleware

import (
	"net/http"

	"github.com/cargoflow/backend/api/responses"
	"github.com/cargoflow/backend/pkg/enums"
	pkgerrors "github.com/cargoflow/backend/pkg/errors"
	"github.com/cargoflow/backend/pkg/logger"
)

// RequireOps admits dispatchers and admins only.
func RequireOps(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := enums.UserRole(RoleFromContext(r.Context()))
			if !role.IsOps() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "ops role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireDriver admits driver logins only.
func RequireDriver(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if enums.UserRole(RoleFromContext(r.Context())) != enums.RoleDriver {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "driver role required"))
				return
			}
			if DriverIDFromContext(r.Context()) == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "no driver profile linked"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin admits tenant administrators only.
func RequireAdmin(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if enums.UserRole(RoleFromContext(r.Context())) != enums.RoleOpsAdmin {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
