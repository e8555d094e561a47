package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cargoflow/backend/api/middleware"
	"github.com/cargoflow/backend/api/responses"
	"github.com/cargoflow/backend/api/validators"
	"github.com/cargoflow/backend/internal/exceptions"
	"github.com/cargoflow/backend/pkg/enums"
	pkgerrors "github.com/cargoflow/backend/pkg/errors"
	"github.com/cargoflow/backend/pkg/logger"
)

type exceptionListResponse struct {
	Exceptions []*exceptions.ExceptionDTO `json:"exceptions"`
	NextCursor string                     `json:"next_cursor,omitempty"`
}

// CreateException raises an operational alert against an order.
func CreateException(svc exceptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input exceptions.CreateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID := middleware.UserIDFromContext(r.Context())
		input.CreatedByID = &userID

		exc, err := svc.Create(r.Context(), middleware.TenantIDFromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, exceptions.FromModel(exc))
	}
}

// GetException returns one exception.
func GetException(svc exceptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		excID, ok := pathUUID(chi.URLParam(r, "exceptionID"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid exception id"))
			return
		}

		exc, err := svc.GetByID(r.Context(), middleware.TenantIDFromContext(r.Context()), excID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, exceptions.FromModel(exc))
	}
}

// ListExceptions returns a cursor page of exceptions with optional filters.
func ListExceptions(svc exceptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filter exceptions.ListFilter
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status := enums.ExceptionStatus(strings.ToUpper(raw))
			if !status.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter"))
				return
			}
			filter.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
			excType, err := enums.ParseExceptionType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type filter"))
				return
			}
			filter.Type = &excType
		}
		orderID, err := validators.ParseQueryUUID(r, "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.OrderID = orderID

		rows, nextCursor, err := svc.List(r.Context(), middleware.TenantIDFromContext(r.Context()), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := exceptionListResponse{Exceptions: make([]*exceptions.ExceptionDTO, 0, len(rows)), NextCursor: nextCursor}
		for i := range rows {
			resp.Exceptions = append(resp.Exceptions, exceptions.FromModel(&rows[i]))
		}
		responses.WriteSuccess(w, resp)
	}
}

type acknowledgeExceptionRequest struct {
	Note string `json:"note" validate:"required"`
}

// AcknowledgeException marks an OPEN exception as being worked.
func AcknowledgeException(svc exceptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		excID, ok := pathUUID(chi.URLParam(r, "exceptionID"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid exception id"))
			return
		}

		var req acknowledgeExceptionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		exc, err := svc.Acknowledge(r.Context(), middleware.TenantIDFromContext(r.Context()), excID, req.Note)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, exceptions.FromModel(exc))
	}
}

type resolveExceptionRequest struct {
	Resolution string `json:"resolution" validate:"required"`
}

// ResolveException closes an exception.
func ResolveException(svc exceptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		excID, ok := pathUUID(chi.URLParam(r, "exceptionID"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid exception id"))
			return
		}

		var req resolveExceptionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		exc, err := svc.Resolve(r.Context(), middleware.TenantIDFromContext(r.Context()), excID, req.Resolution)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, exceptions.FromModel(exc))
	}
}
