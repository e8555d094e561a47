package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/cargoflow/backend/pkg/enums"
)

// Exception is an operational alert tied to an order.
type Exception struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID       uuid.UUID             `gorm:"column:tenant_id;type:uuid;not null;index"`
	OrderID        uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	Type           enums.ExceptionType   `gorm:"column:type;type:text;not null"`
	Status         enums.ExceptionStatus `gorm:"column:status;type:text;not null;default:'OPEN'"`
	Notes          string                `gorm:"column:notes"`
	Resolution     string                `gorm:"column:resolution"`
	CreatedByID    *uuid.UUID            `gorm:"column:created_by_id;type:uuid"`
	AcknowledgedAt *time.Time            `gorm:"column:acknowledged_at"`
	ResolvedAt     *time.Time            `gorm:"column:resolved_at"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (Exception) TableName() string { return "exceptions" }
