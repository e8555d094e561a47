package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/cargoflow/backend/pkg/enums"
)

// StatusHistory is the append-only audit trail of every order status change.
// Rows are never updated or deleted after creation.
type StatusHistory struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID    uuid.UUID         `gorm:"column:tenant_id;type:uuid;not null;index"`
	OrderID     uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	StopID      *uuid.UUID        `gorm:"column:stop_id;type:uuid"`
	ActorUserID *uuid.UUID        `gorm:"column:actor_user_id;type:uuid"`
	ActorType   enums.ActorType   `gorm:"column:actor_type;type:text;not null"`
	FromStatus  enums.OrderStatus `gorm:"column:from_status;type:text"`
	ToStatus    enums.OrderStatus `gorm:"column:to_status;type:text;not null"`
	Metadata    map[string]any    `gorm:"column:metadata;type:jsonb;serializer:json"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (StatusHistory) TableName() string { return "status_histories" }
