package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/cargoflow/backend/pkg/enums"
)

// Event is an immutable domain fact. Both durable webhook delivery and the
// best-effort realtime fan-out are derived from this append-only log.
type Event struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID  uuid.UUID       `gorm:"column:tenant_id;type:uuid;not null;index"`
	EventType enums.EventType `gorm:"column:event_type;type:text;not null;index"`
	Payload   json.RawMessage `gorm:"column:payload;type:jsonb;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (Event) TableName() string { return "events" }
