package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/cargoflow/backend/pkg/enums"
)

// Order is the core shipment entity. Its reference code is unique per tenant
// and its tracking token is globally unique, used for unauthenticated lookup.
type Order struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID          uuid.UUID         `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:ux_orders_tenant_reference"`
	ReferenceCode     string            `gorm:"column:reference_code;not null;uniqueIndex:ux_orders_tenant_reference"`
	CustomerName      string            `gorm:"column:customer_name;not null"`
	CustomerPhone     string            `gorm:"column:customer_phone;not null"`
	CustomerEmail     string            `gorm:"column:customer_email"`
	Status            enums.OrderStatus `gorm:"column:status;type:text;not null;default:'CREATED'"`
	TrackingToken     string            `gorm:"column:tracking_token;not null;uniqueIndex"`
	AssignedRouteID   *uuid.UUID        `gorm:"column:assigned_route_id;type:uuid;index"`
	PickupWindowStart *time.Time        `gorm:"column:pickup_window_start"`
	PickupWindowEnd   *time.Time        `gorm:"column:pickup_window_end"`
	DropWindowStart   *time.Time        `gorm:"column:drop_window_start"`
	DropWindowEnd     *time.Time        `gorm:"column:drop_window_end"`
	Notes             string            `gorm:"column:notes"`
	Stops             []Stop            `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }
