package models

import (
	"time"

	"github.com/google/uuid"
)

// Driver is a tenant-scoped courier, optionally linked 1:1 to a login user.
// Last-known location is mutated only by location-update events.
type Driver struct {
	ID                uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID          uuid.UUID  `gorm:"column:tenant_id;type:uuid;not null;index"`
	UserID            *uuid.UUID `gorm:"column:user_id;type:uuid;uniqueIndex"`
	Name              string     `gorm:"column:name;not null"`
	Phone             string     `gorm:"column:phone;not null"`
	IsActive          bool       `gorm:"column:is_active;not null;default:true"`
	CurrentLat        *float64   `gorm:"column:current_lat"`
	CurrentLng        *float64   `gorm:"column:current_lng"`
	LocationUpdatedAt *time.Time `gorm:"column:location_updated_at"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (Driver) TableName() string { return "drivers" }
