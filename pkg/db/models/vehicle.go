package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/cargoflow/backend/pkg/enums"
)

// Vehicle is a tenant-scoped fleet vehicle. The plate number is unique per tenant.
type Vehicle struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID    uuid.UUID         `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:ux_vehicles_tenant_plate"`
	PlateNumber string            `gorm:"column:plate_number;not null;uniqueIndex:ux_vehicles_tenant_plate"`
	Type        enums.VehicleType `gorm:"column:type;type:text;not null;default:'VAN'"`
	CapacityKG  int               `gorm:"column:capacity_kg;not null;default:0"`
	IsActive    bool              `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (Vehicle) TableName() string { return "vehicles" }
