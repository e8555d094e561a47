package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is the root isolation boundary; every domain entity belongs to one.
type Tenant struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string    `gorm:"column:name;not null"`
	Slug           string    `gorm:"column:slug;not null;uniqueIndex"`
	IsActive       bool      `gorm:"column:is_active;not null;default:true"`
	WebhookURL     string    `gorm:"column:webhook_url"`
	WebhookSecret  string    `gorm:"column:webhook_secret"`
	WebhookEnabled bool      `gorm:"column:webhook_enabled;not null;default:false"`
	WebhookEvents  []string  `gorm:"column:webhook_events;type:jsonb;serializer:json"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Tenant) TableName() string { return "tenants" }

// SubscribesTo reports whether the tenant wants deliveries of the given event
// type. An empty allowlist means every type is delivered.
func (t Tenant) SubscribesTo(eventType string) bool {
	if len(t.WebhookEvents) == 0 {
		return true
	}
	for _, candidate := range t.WebhookEvents {
		if candidate == eventType {
			return true
		}
	}
	return false
}
