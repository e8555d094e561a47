package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/cargoflow/backend/pkg/enums"
)

// Route is a driver+vehicle plan for one day. Orders reference their route;
// the route does not own them (route deletion nulls the link). Driver and
// vehicle rows cannot be deleted while referenced by a route.
type Route struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID  uuid.UUID         `gorm:"column:tenant_id;type:uuid;not null;index"`
	RouteDate time.Time         `gorm:"column:route_date;type:date;not null"`
	DriverID  uuid.UUID         `gorm:"column:driver_id;type:uuid;not null;index"`
	VehicleID uuid.UUID         `gorm:"column:vehicle_id;type:uuid;not null"`
	Status    enums.RouteStatus `gorm:"column:status;type:text;not null;default:'PLANNED'"`
	StartTime *time.Time        `gorm:"column:start_time"`
	EndTime   *time.Time        `gorm:"column:end_time"`
	Notes     string            `gorm:"column:notes"`
	Driver    *Driver           `gorm:"foreignKey:DriverID;constraint:OnDelete:RESTRICT"`
	Vehicle   *Vehicle          `gorm:"foreignKey:VehicleID;constraint:OnDelete:RESTRICT"`
	Orders    []Order           `gorm:"foreignKey:AssignedRouteID;constraint:OnDelete:SET NULL"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Route) TableName() string { return "routes" }
