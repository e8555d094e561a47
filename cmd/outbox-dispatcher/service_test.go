package main

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cargoflow/backend/pkg/config"
	"github.com/cargoflow/backend/pkg/db/models"
	"github.com/cargoflow/backend/pkg/enums"
	"github.com/cargoflow/backend/pkg/logger"
	"github.com/cargoflow/backend/pkg/webhook"
)

type fakeOutboxRepo struct {
	mu         sync.Mutex
	due        []models.OutboxMessage
	stored     map[uuid.UUID]models.OutboxMessage
	fetchErr   error
	processing []uuid.UUID
	processed  []uuid.UUID
	failed     []uuid.UUID
	failErrs   []error
}

func (f *fakeOutboxRepo) FetchDue(now time.Time, limit, maxRetries int) ([]models.OutboxMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	due := f.due
	f.due = nil
	if f.stored == nil {
		f.stored = make(map[uuid.UUID]models.OutboxMessage)
	}
	for _, msg := range due {
		if _, ok := f.stored[msg.ID]; !ok {
			f.stored[msg.ID] = msg
		}
	}
	return due, nil
}

func (f *fakeOutboxRepo) GetByID(id uuid.UUID) (*models.OutboxMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.stored[id]
	if !ok {
		return nil, errors.New("outbox message not found")
	}
	row := msg
	return &row, nil
}

func (f *fakeOutboxRepo) MarkProcessing(id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processing = append(f.processing, id)
	return nil
}

func (f *fakeOutboxRepo) MarkProcessed(id uuid.UUID, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed = append(f.processed, id)
	return nil
}

func (f *fakeOutboxRepo) MarkFailed(id uuid.UUID, retries int, attemptErr error, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, id)
	f.failErrs = append(f.failErrs, attemptErr)
	return nil
}

type fakeTenantLoader struct {
	mu      sync.Mutex
	tenants map[uuid.UUID]*models.Tenant
	err     error
}

func (f *fakeTenantLoader) FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	tenant, ok := f.tenants[id]
	if !ok {
		return nil, errors.New("tenant not found")
	}
	return tenant, nil
}

type sentWebhook struct {
	url       string
	secret    string
	eventType string
	body      []byte
}

type fakeSender struct {
	mu    sync.Mutex
	calls []sentWebhook
	err   error
}

func (f *fakeSender) Send(ctx context.Context, url, secret, eventType string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sentWebhook{url: url, secret: secret, eventType: eventType, body: body})
	return f.err
}

func activeTenant() *models.Tenant {
	return &models.Tenant{
		ID:             uuid.New(),
		Name:           "Acme Freight",
		Slug:           "acme-freight",
		IsActive:       true,
		WebhookURL:     "https://hooks.acme.test/cargoflow",
		WebhookSecret:  "topsecret",
		WebhookEnabled: true,
	}
}

func dueMessage(tenantID uuid.UUID, eventType enums.EventType, retries int) models.OutboxMessage {
	eventID := uuid.New()
	return models.OutboxMessage{
		ID:      uuid.New(),
		EventID: eventID,
		Status:  enums.OutboxPending,
		Retries: retries,
		Event: &models.Event{
			ID:        eventID,
			TenantID:  tenantID,
			EventType: eventType,
			Payload:   json.RawMessage(`{"order_id":"abc"}`),
			CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
	}
}

func newTestService(t *testing.T, repo *fakeOutboxRepo, tenants *fakeTenantLoader, sender *fakeSender) *Service {
	t.Helper()
	cfg := &config.Config{}
	cfg.Outbox.BatchSize = 10
	cfg.Outbox.MaxRetries = 5
	cfg.Outbox.Workers = 2
	cfg.Outbox.PollInterval = time.Millisecond

	service, err := NewService(ServiceParams{
		Config:  cfg,
		Logger:  logger.New(logger.Options{ServiceName: "outbox-dispatcher-test"}),
		Repo:    repo,
		Tenants: tenants,
		Sender:  sender,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

func TestProcessBatchDeliversSignedWebhook(t *testing.T) {
	tenant := activeTenant()
	msg := dueMessage(tenant.ID, enums.EventOrderCreated, 0)
	repo := &fakeOutboxRepo{due: []models.OutboxMessage{msg}}
	tenants := &fakeTenantLoader{tenants: map[uuid.UUID]*models.Tenant{tenant.ID: tenant}}
	sender := &fakeSender{}
	service := newTestService(t, repo, tenants, sender)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if len(sender.calls) != 1 {
		t.Fatalf("expected one delivery, got %d", len(sender.calls))
	}
	call := sender.calls[0]
	if call.url != tenant.WebhookURL {
		t.Fatalf("delivered to wrong url: %s", call.url)
	}
	if call.secret != tenant.WebhookSecret {
		t.Fatalf("signed with wrong secret")
	}
	if call.eventType != enums.EventOrderCreated.String() {
		t.Fatalf("wrong event type header value: %s", call.eventType)
	}

	var env webhook.Envelope
	if err := json.Unmarshal(call.body, &env); err != nil {
		t.Fatalf("body is not an envelope: %v", err)
	}
	if env.EventID != msg.Event.ID.String() {
		t.Fatalf("envelope event id mismatch")
	}
	if env.Tenant != tenant.Slug {
		t.Fatalf("envelope tenant mismatch: %s", env.Tenant)
	}
	if env.Timestamp != "2025-06-01T12:00:00Z" {
		t.Fatalf("envelope timestamp mismatch: %s", env.Timestamp)
	}

	if len(repo.processing) != 1 || repo.processing[0] != msg.ID {
		t.Fatalf("message was not marked processing")
	}
	if len(repo.processed) != 1 || repo.processed[0] != msg.ID {
		t.Fatalf("message was not marked processed")
	}
	if len(repo.failed) != 0 {
		t.Fatalf("unexpected failure recorded")
	}
}

func TestProcessBatchLeavesAlreadyProcessedMessageAlone(t *testing.T) {
	tenant := activeTenant()
	msg := dueMessage(tenant.ID, enums.EventOrderCreated, 0)
	finalized := msg
	finalized.Status = enums.OutboxProcessed
	repo := &fakeOutboxRepo{
		due:    []models.OutboxMessage{msg},
		stored: map[uuid.UUID]models.OutboxMessage{msg.ID: finalized},
	}
	tenants := &fakeTenantLoader{tenants: map[uuid.UUID]*models.Tenant{tenant.ID: tenant}}
	sender := &fakeSender{}
	service := newTestService(t, repo, tenants, sender)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if len(sender.calls) != 0 {
		t.Fatalf("already-processed message was delivered again: %d call(s)", len(sender.calls))
	}
	if len(repo.processing) != 0 {
		t.Fatalf("already-processed message was marked processing again")
	}
	if len(repo.processed) != 0 || len(repo.failed) != 0 {
		t.Fatalf("already-processed message had its state rewritten")
	}
}

func TestProcessBatchSkipsDisabledWebhooks(t *testing.T) {
	tenant := activeTenant()
	tenant.WebhookEnabled = false
	msg := dueMessage(tenant.ID, enums.EventOrderCreated, 0)
	repo := &fakeOutboxRepo{due: []models.OutboxMessage{msg}}
	tenants := &fakeTenantLoader{tenants: map[uuid.UUID]*models.Tenant{tenant.ID: tenant}}
	sender := &fakeSender{}
	service := newTestService(t, repo, tenants, sender)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(sender.calls) != 0 {
		t.Fatalf("expected no network call for disabled webhooks")
	}
	if len(repo.processed) != 1 || repo.processed[0] != msg.ID {
		t.Fatalf("skipped message must still end processed")
	}
}

func TestProcessBatchSkipsUnsubscribedEventTypes(t *testing.T) {
	tenant := activeTenant()
	tenant.WebhookEvents = []string{enums.EventOrderCancelled.String()}
	msg := dueMessage(tenant.ID, enums.EventOrderCreated, 0)
	repo := &fakeOutboxRepo{due: []models.OutboxMessage{msg}}
	tenants := &fakeTenantLoader{tenants: map[uuid.UUID]*models.Tenant{tenant.ID: tenant}}
	sender := &fakeSender{}
	service := newTestService(t, repo, tenants, sender)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(sender.calls) != 0 {
		t.Fatalf("expected no delivery outside the allowlist")
	}
	if len(repo.processed) != 1 {
		t.Fatalf("unsubscribed message must end processed")
	}
}

func TestProcessBatchRecordsDeliveryFailure(t *testing.T) {
	tenant := activeTenant()
	msg := dueMessage(tenant.ID, enums.EventOrderStatusChanged, 2)
	repo := &fakeOutboxRepo{due: []models.OutboxMessage{msg}}
	tenants := &fakeTenantLoader{tenants: map[uuid.UUID]*models.Tenant{tenant.ID: tenant}}
	sender := &fakeSender{err: errors.New("endpoint returned status 502")}
	service := newTestService(t, repo, tenants, sender)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(repo.failed) != 1 || repo.failed[0] != msg.ID {
		t.Fatalf("failed delivery was not recorded")
	}
	if len(repo.processed) != 0 {
		t.Fatalf("failed message must not end processed")
	}
	if repo.failErrs[0] == nil {
		t.Fatalf("attempt error must be recorded for backoff bookkeeping")
	}
}

func TestProcessBatchContinuesAfterPerMessageFailure(t *testing.T) {
	tenant := activeTenant()
	orphan := dueMessage(uuid.New(), enums.EventOrderCreated, 0)
	healthy := dueMessage(tenant.ID, enums.EventOrderCreated, 0)
	repo := &fakeOutboxRepo{due: []models.OutboxMessage{orphan, healthy}}
	tenants := &fakeTenantLoader{tenants: map[uuid.UUID]*models.Tenant{tenant.ID: tenant}}
	sender := &fakeSender{}
	service := newTestService(t, repo, tenants, sender)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(sender.calls) != 1 {
		t.Fatalf("healthy message should still be delivered")
	}
	if len(repo.failed) != 1 || repo.failed[0] != orphan.ID {
		t.Fatalf("orphan message should be marked failed")
	}
}

func TestProcessBatchReportsIdleWhenNothingDue(t *testing.T) {
	repo := &fakeOutboxRepo{}
	tenants := &fakeTenantLoader{}
	sender := &fakeSender{}
	service := newTestService(t, repo, tenants, sender)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if processed {
		t.Fatalf("empty batch must report idle so the loop sleeps")
	}
}
