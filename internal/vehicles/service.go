package vehicles

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/cargoflow/backend/pkg/db"
	"github.com/cargoflow/backend/pkg/db/models"
	"github.com/cargoflow/backend/pkg/enums"
	pkgerrors "github.com/cargoflow/backend/pkg/errors"
	"github.com/cargoflow/backend/pkg/pagination"
)

// CreateInput registers a new fleet vehicle.
type CreateInput struct {
	PlateNumber string `json:"plate_number" validate:"required"`
	Type        string `json:"type" validate:"required"`
	CapacityKG  int    `json:"capacity_kg" validate:"gte=0"`
}

// UpdateInput mutates vehicle master data.
type UpdateInput struct {
	CapacityKG *int  `json:"capacity_kg"`
	IsActive   *bool `json:"is_active"`
}

// Service manages the tenant fleet.
type Service interface {
	Create(ctx context.Context, tenantID uuid.UUID, input CreateInput) (*models.Vehicle, error)
	GetByID(ctx context.Context, tenantID, vehicleID uuid.UUID) (*models.Vehicle, error)
	List(ctx context.Context, tenantID uuid.UUID, activeOnly bool, params pagination.Params) ([]models.Vehicle, string, error)
	Update(ctx context.Context, tenantID, vehicleID uuid.UUID, input UpdateInput) (*models.Vehicle, error)
}

type service struct {
	repo Repository
}

// NewService builds the vehicle service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("vehicle repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, tenantID uuid.UUID, input CreateInput) (*models.Vehicle, error) {
	vehicleType, err := enums.ParseVehicleType(input.Type)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	if input.PlateNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plate number is required")
	}

	vehicle := &models.Vehicle{
		ID:          uuid.New(),
		TenantID:    tenantID,
		PlateNumber: input.PlateNumber,
		Type:        vehicleType,
		CapacityKG:  input.CapacityKG,
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, vehicle); err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("vehicle with plate %q already exists", input.PlateNumber))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create vehicle")
	}
	return vehicle, nil
}

func (s *service) GetByID(ctx context.Context, tenantID, vehicleID uuid.UUID) (*models.Vehicle, error) {
	vehicle, err := s.repo.FindByID(ctx, tenantID, vehicleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vehicle not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vehicle")
	}
	return vehicle, nil
}

func (s *service) List(ctx context.Context, tenantID uuid.UUID, activeOnly bool, params pagination.Params) ([]models.Vehicle, string, error) {
	rows, err := s.repo.List(ctx, tenantID, activeOnly, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vehicles")
	}
	limit := pagination.NormalizeLimit(params.Limit)
	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, next, nil
}

func (s *service) Update(ctx context.Context, tenantID, vehicleID uuid.UUID, input UpdateInput) (*models.Vehicle, error) {
	vehicle, err := s.GetByID(ctx, tenantID, vehicleID)
	if err != nil {
		return nil, err
	}
	if input.CapacityKG != nil {
		vehicle.CapacityKG = *input.CapacityKG
	}
	if input.IsActive != nil {
		vehicle.IsActive = *input.IsActive
	}
	if err := s.repo.Update(ctx, vehicle); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update vehicle")
	}
	return vehicle, nil
}
