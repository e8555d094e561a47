package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cargoflow/backend/pkg/enums"
)

func setupOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	events := `
CREATE TABLE IF NOT EXISTS events (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME
);`
	messages := `
CREATE TABLE IF NOT EXISTS outbox_messages (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'PENDING',
  retries INTEGER NOT NULL DEFAULT 0,
  next_attempt_at DATETIME,
  last_error TEXT,
  processed_at DATETIME,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(`DROP TABLE IF EXISTS outbox_messages`).Error)
	require.NoError(t, db.Exec(`DROP TABLE IF EXISTS events`).Error)
	require.NoError(t, db.Exec(events).Error)
	require.NoError(t, db.Exec(messages).Error)
	return db
}

func emitTestEvent(t *testing.T, db *gorm.DB, svc *Service, tenantID uuid.UUID) uuid.UUID {
	t.Helper()

	var eventID uuid.UUID
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		event, err := svc.Emit(context.Background(), tx, DomainEvent{
			TenantID:  tenantID,
			EventType: enums.EventOrderCreated,
			Data:      map[string]any{"order_id": uuid.NewString(), "status": "CREATED"},
		})
		if err != nil {
			return err
		}
		eventID = event.ID
		return nil
	}))
	return eventID
}

func TestEmitCreatesEventAndMessage(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)

	eventID := emitTestEvent(t, db, svc, uuid.New())

	var eventCount, messageCount int64
	require.NoError(t, db.Table("events").Count(&eventCount).Error)
	require.NoError(t, db.Table("outbox_messages").Count(&messageCount).Error)
	assert.EqualValues(t, 1, eventCount)
	assert.EqualValues(t, 1, messageCount)

	due, err := repo.FetchDue(time.Now().Add(time.Second), 10, 5)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, eventID, due[0].EventID)
	assert.Equal(t, enums.OutboxPending, due[0].Status)
	require.NotNil(t, due[0].Event)
	assert.Equal(t, enums.EventOrderCreated, due[0].Event.EventType)
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	db := setupOutboxTestDB(t)
	svc := NewService(NewRepository(db), nil)

	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := svc.Emit(context.Background(), tx, DomainEvent{
			TenantID:  uuid.New(),
			EventType: enums.EventOrderCreated,
			Data:      map[string]any{"order_id": uuid.NewString()},
		}); err != nil {
			return err
		}
		return errors.New("business failure")
	})
	require.Error(t, err)

	var eventCount, messageCount int64
	require.NoError(t, db.Table("events").Count(&eventCount).Error)
	require.NoError(t, db.Table("outbox_messages").Count(&messageCount).Error)
	assert.Zero(t, eventCount)
	assert.Zero(t, messageCount)
}

func TestEmitRejectsUnknownEventType(t *testing.T) {
	db := setupOutboxTestDB(t)
	svc := NewService(NewRepository(db), nil)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Emit(context.Background(), tx, DomainEvent{
			TenantID:  uuid.New(),
			EventType: enums.EventType("order.exploded"),
		})
		return err
	})
	assert.Error(t, err)
}

func TestFetchDueSkipsExhaustedAndFuture(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)
	tenantID := uuid.New()

	dueID := emitTestEvent(t, db, svc, tenantID)
	exhaustedID := emitTestEvent(t, db, svc, tenantID)
	futureID := emitTestEvent(t, db, svc, tenantID)

	require.NoError(t, db.Table("outbox_messages").
		Where("event_id = ?", exhaustedID).
		Updates(map[string]any{"status": "FAILED", "retries": 5}).Error)
	require.NoError(t, db.Table("outbox_messages").
		Where("event_id = ?", futureID).
		Update("next_attempt_at", time.Now().Add(time.Hour)).Error)

	due, err := repo.FetchDue(time.Now().Add(time.Second), 10, 5)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, dueID, due[0].EventID)
}

func TestMarkFailedSchedulesBackoff(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)

	emitTestEvent(t, db, svc, uuid.New())
	due, err := repo.FetchDue(time.Now().Add(time.Second), 1, 5)
	require.NoError(t, err)
	require.Len(t, due, 1)

	now := time.Now()
	require.NoError(t, repo.MarkFailed(due[0].ID, due[0].Retries, errors.New("connection refused"), now))

	updated, err := repo.GetByID(due[0].ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OutboxFailed, updated.Status)
	assert.Equal(t, 1, updated.Retries)
	assert.Equal(t, "connection refused", updated.LastError)
	require.NotNil(t, updated.NextAttemptAt)
	assert.WithinDuration(t, now.Add(60*time.Second), *updated.NextAttemptAt, 2*time.Second)
}

func TestMarkProcessedIsFinal(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)

	emitTestEvent(t, db, svc, uuid.New())
	due, err := repo.FetchDue(time.Now().Add(time.Second), 1, 5)
	require.NoError(t, err)
	require.Len(t, due, 1)

	require.NoError(t, repo.MarkProcessed(due[0].ID, time.Now()))

	again, err := repo.FetchDue(time.Now().Add(time.Minute), 10, 5)
	require.NoError(t, err)
	assert.Empty(t, again)

	updated, err := repo.GetByID(due[0].ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OutboxProcessed, updated.Status)
	assert.NotNil(t, updated.ProcessedAt)
}

func TestRequeueResetsRetryBudget(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)

	eventID := emitTestEvent(t, db, svc, uuid.New())
	require.NoError(t, db.Table("outbox_messages").
		Where("event_id = ?", eventID).
		Updates(map[string]any{"status": "FAILED", "retries": 5, "last_error": "boom"}).Error)

	exhausted, err := repo.ListExhausted(5, 10)
	require.NoError(t, err)
	require.Len(t, exhausted, 1)

	require.NoError(t, repo.Requeue(exhausted[0].ID, time.Now()))

	updated, err := repo.GetByID(exhausted[0].ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OutboxPending, updated.Status)
	assert.Zero(t, updated.Retries)
	assert.Empty(t, updated.LastError)
}

func TestBackoffDelaySchedule(t *testing.T) {
	cases := []struct {
		failures int
		want     time.Duration
	}{
		{1, 60 * time.Second},
		{2, 120 * time.Second},
		{3, 240 * time.Second},
		{4, 300 * time.Second},
		{5, 300 * time.Second},
		{10, 300 * time.Second},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, BackoffDelay(tc.failures), "failures=%d", tc.failures)
	}
}

func TestMarkFailedBackoffFollowsFailureCount(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)

	emitTestEvent(t, db, svc, uuid.New())
	due, err := repo.FetchDue(time.Now().Add(time.Second), 1, 5)
	require.NoError(t, err)
	require.Len(t, due, 1)
	id := due[0].ID

	// Each failure doubles the wait: 60s, 120s, 240s, then the 5m cap.
	schedule := []time.Duration{60 * time.Second, 120 * time.Second, 240 * time.Second, 300 * time.Second, 300 * time.Second}
	for attempt, want := range schedule {
		now := time.Now()
		require.NoError(t, repo.MarkFailed(id, attempt, errors.New("timeout"), now))

		updated, err := repo.GetByID(id)
		require.NoError(t, err)
		assert.Equal(t, attempt+1, updated.Retries)
		require.NotNil(t, updated.NextAttemptAt)
		assert.WithinDuration(t, now.Add(want), *updated.NextAttemptAt, 2*time.Second, "attempt=%d", attempt+1)
	}
}

func TestProcessedStateIsNeverRegressed(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)

	emitTestEvent(t, db, svc, uuid.New())
	due, err := repo.FetchDue(time.Now().Add(time.Second), 1, 5)
	require.NoError(t, err)
	require.Len(t, due, 1)
	id := due[0].ID

	require.NoError(t, repo.MarkProcessed(id, time.Now()))

	require.NoError(t, repo.MarkProcessing(id))
	updated, err := repo.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, enums.OutboxProcessed, updated.Status)

	require.NoError(t, repo.MarkFailed(id, 0, errors.New("late failure"), time.Now()))
	updated, err = repo.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, enums.OutboxProcessed, updated.Status)
	assert.Zero(t, updated.Retries)
	assert.Empty(t, updated.LastError)
}
