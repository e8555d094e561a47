package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/cargoflow/backend/pkg/enums"
)

// OutboxMessage is the durability and retry bookkeeping for exactly one Event.
// It survives restarts; the dispatcher owns its status transitions.
type OutboxMessage struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID       uuid.UUID          `gorm:"column:event_id;type:uuid;not null;uniqueIndex"`
	Status        enums.OutboxStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`
	Retries       int                `gorm:"column:retries;not null;default:0"`
	NextAttemptAt *time.Time         `gorm:"column:next_attempt_at;index"`
	LastError     string             `gorm:"column:last_error"`
	ProcessedAt   *time.Time         `gorm:"column:processed_at"`
	Event         *Event             `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
}

func (OutboxMessage) TableName() string { return "outbox_messages" }
