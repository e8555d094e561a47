package models

import (
	"time"

	"github.com/google/uuid"
)

// POD is the proof of delivery, at most one per order. Photo and signature
// hold storage references only; file handling lives outside this service.
type POD struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	ReceiverName string    `gorm:"column:receiver_name;not null"`
	PhotoRef     string    `gorm:"column:photo_ref"`
	SignatureRef string    `gorm:"column:signature_ref"`
	Notes        string    `gorm:"column:notes"`
	DeliveredAt  time.Time `gorm:"column:delivered_at;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (POD) TableName() string { return "pods" }
