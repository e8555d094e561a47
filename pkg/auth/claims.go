package auth

import (
	"github.com/cargoflow/backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	Role     enums.UserRole
	DriverID *uuid.UUID
	JTI      string
}

// AccessTokenClaims represents the typed JWT issued to clients. Every token is
// scoped to a single tenant; driver tokens also carry their driver profile id.
type AccessTokenClaims struct {
	UserID   uuid.UUID      `json:"user_id"`
	TenantID uuid.UUID      `json:"tenant_id"`
	Role     enums.UserRole `json:"role"`
	DriverID *uuid.UUID     `json:"driver_id,omitempty"`
	jwt.RegisteredClaims
}
