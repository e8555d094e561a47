package outbox

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cargoflow/backend/pkg/db/models"
	"github.com/cargoflow/backend/pkg/enums"
)

const maxBackoff = 300 * time.Second

const baseBackoff = 30 * time.Second

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes the event and its outbox message in the caller's transaction.
func (r *Repository) Insert(tx *gorm.DB, event *models.Event, message *models.OutboxMessage) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if err := tx.Create(event).Error; err != nil {
		return err
	}
	return tx.Create(message).Error
}

// FetchDue returns messages ready for a delivery attempt: PENDING or FAILED,
// due now, and below the retry ceiling. Oldest first.
func (r *Repository) FetchDue(now time.Time, limit, maxRetries int) ([]models.OutboxMessage, error) {
	var rows []models.OutboxMessage
	err := r.db.
		Preload("Event").
		Where("status IN ?", []enums.OutboxStatus{enums.OutboxPending, enums.OutboxFailed}).
		Where("next_attempt_at IS NOT NULL AND next_attempt_at <= ?", now).
		Where("retries < ?", maxRetries).
		Order("next_attempt_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// GetByID loads a single message with its event.
func (r *Repository) GetByID(id uuid.UUID) (*models.OutboxMessage, error) {
	var row models.OutboxMessage
	if err := r.db.Preload("Event").First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// MarkProcessing flips a message to PROCESSING for the duration of an attempt.
// PROCESSED is terminal, so a racing worker that already finalized the message
// must not be overwritten.
func (r *Repository) MarkProcessing(id uuid.UUID) error {
	return r.db.Model(&models.OutboxMessage{}).
		Where("id = ? AND status <> ?", id, enums.OutboxProcessed).
		Updates(map[string]any{
			"status": enums.OutboxProcessing,
		}).Error
}

// MarkProcessed finalizes a message. Processed messages are never retried.
func (r *Repository) MarkProcessed(id uuid.UUID, now time.Time) error {
	return r.db.Model(&models.OutboxMessage{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       enums.OutboxProcessed,
			"processed_at": now,
			"last_error":   "",
		}).Error
}

// MarkFailed records the attempt error, bumps the retry counter and schedules
// the next attempt with exponential backoff. The delay follows the cumulative
// failure count, so the first failure already waits a full minute.
func (r *Repository) MarkFailed(id uuid.UUID, retries int, attemptErr error, now time.Time) error {
	next := now.Add(BackoffDelay(retries + 1))
	msg := ""
	if attemptErr != nil {
		msg = attemptErr.Error()
	}
	return r.db.Model(&models.OutboxMessage{}).
		Where("id = ? AND status <> ?", id, enums.OutboxProcessed).
		Updates(map[string]any{
			"status":          enums.OutboxFailed,
			"retries":         retries + 1,
			"last_error":      msg,
			"next_attempt_at": next,
		}).Error
}

// ListExhausted returns FAILED messages that hit the retry ceiling; these need
// manual replay.
func (r *Repository) ListExhausted(maxRetries, limit int) ([]models.OutboxMessage, error) {
	var rows []models.OutboxMessage
	err := r.db.
		Preload("Event").
		Where("status = ?", enums.OutboxFailed).
		Where("retries >= ?", maxRetries).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// Requeue resets a message for another delivery cycle, clearing its retry
// budget. Used by the manual replay endpoint.
func (r *Repository) Requeue(id uuid.UUID, now time.Time) error {
	result := r.db.Model(&models.OutboxMessage{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          enums.OutboxPending,
			"retries":         0,
			"last_error":      "",
			"next_attempt_at": now,
			"processed_at":    nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("outbox message %s not found", id)
	}
	return nil
}

// BackoffDelay returns the wait scheduled after the given cumulative failure
// count: min(5m, 30s * 2^failures).
func BackoffDelay(failures int) time.Duration {
	delay := baseBackoff
	for i := 0; i < failures; i++ {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}
	if delay > maxBackoff {
		return maxBackoff
	}
	return delay
}
