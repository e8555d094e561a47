package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/cargoflow/backend/api/middleware"
	"github.com/cargoflow/backend/api/responses"
	"github.com/cargoflow/backend/api/validators"
	"github.com/cargoflow/backend/internal/users"
	pkgerrors "github.com/cargoflow/backend/pkg/errors"
	"github.com/cargoflow/backend/pkg/logger"
)

type loginResponse struct {
	AccessToken string         `json:"access_token"`
	User        *users.UserDTO `json:"user"`
	DriverID    *uuid.UUID     `json:"driver_id,omitempty"`
}

// AuthLogin exchanges credentials for an access token.
func AuthLogin(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input users.LoginInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, loginResponse{
			AccessToken: result.AccessToken,
			User:        users.FromModel(result.User),
			DriverID:    result.DriverID,
		})
	}
}

// AuthMe returns the authenticated user's profile.
func AuthMe(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}

		user, err := svc.GetByID(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, users.FromModel(user))
	}
}
