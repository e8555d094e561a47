package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cargoflow/backend/api/middleware"
	"github.com/cargoflow/backend/api/responses"
	"github.com/cargoflow/backend/api/validators"
	"github.com/cargoflow/backend/internal/drivers"
	"github.com/cargoflow/backend/internal/users"
	"github.com/cargoflow/backend/pkg/enums"
	pkgerrors "github.com/cargoflow/backend/pkg/errors"
	"github.com/cargoflow/backend/pkg/logger"
)

type createDriverRequest struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone" validate:"required"`

	// Optional login credentials. When present a DRIVER user is created and
	// linked to the profile.
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"omitempty,min=8"`
}

type driverListResponse struct {
	Drivers    []*drivers.DriverDTO `json:"drivers"`
	NextCursor string               `json:"next_cursor,omitempty"`
}

// CreateDriver registers a driver profile, optionally with an app login.
func CreateDriver(svc drivers.Service, userSvc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createDriverRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if (req.Email == "") != (req.Password == "") {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "email and password must be provided together"))
			return
		}

		tenantID := middleware.TenantIDFromContext(r.Context())
		input := drivers.CreateInput{Name: req.Name, Phone: req.Phone}

		if req.Email != "" {
			user, err := userSvc.Create(r.Context(), users.CreateInput{
				TenantID: tenantID,
				Email:    req.Email,
				Password: req.Password,
				FullName: req.Name,
				Role:     enums.RoleDriver,
			})
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.UserID = &user.ID
		}

		driver, err := svc.Create(r.Context(), tenantID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, drivers.FromModel(driver))
	}
}

// GetDriver returns one driver profile.
func GetDriver(svc drivers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverID, ok := pathUUID(chi.URLParam(r, "driverID"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid driver id"))
			return
		}

		driver, err := svc.GetByID(r.Context(), middleware.TenantIDFromContext(r.Context()), driverID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, drivers.FromModel(driver))
	}
}

// ListDrivers returns a cursor page of driver profiles.
func ListDrivers(svc drivers.Service, logg *logger.Logger) http.HandlerFunc {
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

		resp := driverListResponse{Drivers: make([]*drivers.DriverDTO, 0, len(rows)), NextCursor: nextCursor}
		for i := range rows {
			resp.Drivers = append(resp.Drivers, drivers.FromModel(&rows[i]))
		}
		responses.WriteSuccess(w, resp)
	}
}

// UpdateDriver mutates driver master data.
func UpdateDriver(svc drivers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverID, ok := pathUUID(chi.URLParam(r, "driverID"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid driver id"))
			return
		}

		var input drivers.UpdateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		driver, err := svc.Update(r.Context(), middleware.TenantIDFromContext(r.Context()), driverID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, drivers.FromModel(driver))
	}
}

// UpdateDriverLocation accepts a GPS ping from the authenticated driver.
func UpdateDriverLocation(svc drivers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverID := middleware.DriverIDFromContext(r.Context())
		if driverID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "no driver profile linked"))
			return
		}

		var input drivers.LocationInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		driver, err := svc.UpdateLocation(r.Context(), middleware.TenantIDFromContext(r.Context()), *driverID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, drivers.FromModel(driver))
	}
}
