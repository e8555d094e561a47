package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cargoflow/backend/api/middleware"
	"github.com/cargoflow/backend/api/responses"
	"github.com/cargoflow/backend/api/validators"
	"github.com/cargoflow/backend/internal/vehicles"
	pkgerrors "github.com/cargoflow/backend/pkg/errors"
	"github.com/cargoflow/backend/pkg/logger"
)

type vehicleListResponse struct {
	Vehicles   []*vehicles.VehicleDTO `json:"vehicles"`
	NextCursor string                 `json:"next_cursor,omitempty"`
}

// CreateVehicle registers a fleet vehicle.
func CreateVehicle(svc vehicles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input vehicles.CreateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vehicle, err := svc.Create(r.Context(), middleware.TenantIDFromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, vehicles.FromModel(vehicle))
	}
}

// GetVehicle returns one vehicle.
func GetVehicle(svc vehicles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vehicleID, ok := pathUUID(chi.URLParam(r, "vehicleID"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid vehicle id"))
			return
		}

		vehicle, err := svc.GetByID(r.Context(), middleware.TenantIDFromContext(r.Context()), vehicleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vehicles.FromModel(vehicle))
	}
}

// ListVehicles returns a cursor page of the tenant fleet.
func ListVehicles(svc vehicles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		activeOnly, err := validators.ParseQueryBool(r, "active_only")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, nextCursor, err := svc.List(r.Context(), middleware.TenantIDFromContext(r.Context()), activeOnly, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := vehicleListResponse{Vehicles: make([]*vehicles.VehicleDTO, 0, len(rows)), NextCursor: nextCursor}
		for i := range rows {
			resp.Vehicles = append(resp.Vehicles, vehicles.FromModel(&rows[i]))
		}
		responses.WriteSuccess(w, resp)
	}
}

// UpdateVehicle mutates vehicle master data.
func UpdateVehicle(svc vehicles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vehicleID, ok := pathUUID(chi.URLParam(r, "vehicleID"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid vehicle id"))
			return
		}

		var input vehicles.UpdateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vehicle, err := svc.Update(r.Context(), middleware.TenantIDFromContext(r.Context()), vehicleID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vehicles.FromModel(vehicle))
	}
}
