package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cargoflow/backend/pkg/db/models"
	"github.com/cargoflow/backend/pkg/enums"
	"github.com/cargoflow/backend/pkg/logger"
)

// DomainEvent is what callers hand to Emit. Data is serialized to the event
// payload as-is.
type DomainEvent struct {
	TenantID  uuid.UUID
	EventType enums.EventType
	Data      interface{}
}

type Service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg}
}

// Emit records the event and its outbox message inside the caller's
// transaction. Either both rows commit with the business change or neither
// does.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) (*models.Event, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.TenantID == uuid.Nil {
		return nil, errors.New("tenant id required")
	}
	if !event.EventType.IsValid() {
		return nil, errors.New("unknown event type")
	}

	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}

	row := models.Event{
		ID:        uuid.New(),
		TenantID:  event.TenantID,
		EventType: event.EventType,
		Payload:   json.RawMessage(payload),
	}
	now := time.Now()
	message := models.OutboxMessage{
		ID:            uuid.New(),
		EventID:       row.ID,
		Status:        enums.OutboxPending,
		NextAttemptAt: &now,
	}
	if err := s.repo.Insert(tx, &row, &message); err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"event_id":   row.ID.String(),
			"event_type": event.EventType.String(),
			"tenant_id":  event.TenantID.String(),
		})
		s.logg.Info(logCtx, "outbox event queued")
	}
	return &row, nil
}
