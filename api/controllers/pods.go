package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cargoflow/backend/api/middleware"
	"github.com/cargoflow/backend/api/responses"
	"github.com/cargoflow/backend/api/validators"
	"github.com/cargoflow/backend/internal/pods"
	pkgerrors "github.com/cargoflow/backend/pkg/errors"
	"github.com/cargoflow/backend/pkg/logger"
)

// CreatePOD uploads a proof of delivery and completes the order.
func CreatePOD(svc pods.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input pods.CreateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pod, err := svc.Create(r.Context(), middleware.TenantIDFromContext(r.Context()), driverActorFromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, pods.FromModel(pod))
	}
}

// GetPODByOrder returns the proof of delivery attached to an order.
func GetPODByOrder(svc pods.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, ok := pathUUID(chi.URLParam(r, "orderID"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}

		pod, err := svc.GetByOrderID(r.Context(), middleware.TenantIDFromContext(r.Context()), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pods.FromModel(pod))
	}
}
