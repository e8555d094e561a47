package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cargoflow/backend/pkg/config"
	"github.com/cargoflow/backend/pkg/db/models"
	"github.com/cargoflow/backend/pkg/enums"
	"github.com/cargoflow/backend/pkg/logger"
	"github.com/cargoflow/backend/pkg/metrics"
	"github.com/cargoflow/backend/pkg/webhook"
)

const (
	defaultBatchSize    = 100
	defaultPollInterval = 5 * time.Second
	defaultMaxRetries   = 5
	defaultWorkers      = 8
	maxErrorBackoff     = 60 * time.Second
	jitterWindow        = 500 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type outboxRepository interface {
	FetchDue(now time.Time, limit, maxRetries int) ([]models.OutboxMessage, error)
	GetByID(id uuid.UUID) (*models.OutboxMessage, error)
	MarkProcessing(id uuid.UUID) error
	MarkProcessed(id uuid.UUID, now time.Time) error
	MarkFailed(id uuid.UUID, retries int, attemptErr error, now time.Time) error
}

type tenantLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
}

type ServiceParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	Repo     outboxRepository
	Tenants  tenantLoader
	Sender   webhook.Sender
	Metrics  *metrics.OutboxMetrics
	Interval time.Duration
}

// Service drains the outbox and delivers signed webhooks to tenant endpoints.
// A message leaves the queue either PROCESSED or FAILED with its next attempt
// scheduled; once the retry ceiling is hit FetchDue stops returning it.
type Service struct {
	logg         *logger.Logger
	repo         outboxRepository
	tenants      tenantLoader
	sender       webhook.Sender
	metrics      *metrics.OutboxMetrics
	batchSize    int
	maxRetries   int
	workers      int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Repo == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.Tenants == nil {
		return nil, errors.New("tenant loader is required")
	}
	if params.Sender == nil {
		return nil, errors.New("webhook sender is required")
	}

	batch := params.Config.Outbox.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	maxRetries := params.Config.Outbox.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	workers := params.Config.Outbox.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	interval := params.Interval
	if interval <= 0 {
		interval = params.Config.Outbox.PollInterval
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}

	return &Service{
		logg:         params.Logger,
		repo:         params.Repo,
		tenants:      params.Tenants,
		sender:       params.Sender,
		metrics:      params.Metrics,
		batchSize:    batch,
		maxRetries:   maxRetries,
		workers:      workers,
		pollInterval: interval,
	}, nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	backoff := s.pollInterval
	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "outbox dispatcher context canceled")
			return ctx.Err()
		default:
		}

		processed, err := s.processBatch(ctx)
		if err != nil {
			s.logg.Error(ctx, "outbox dispatcher batch error", err)
			backoff = nextBackoff(backoff, s.pollInterval, maxErrorBackoff)
			if err := s.sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = s.pollInterval

		if processed {
			continue
		}

		if err := s.sleep(ctx, withJitter(s.pollInterval)); err != nil {
			return err
		}
	}
}

// processBatch fetches due messages and fans them out across the worker pool.
// Per-message failures are recorded on the message itself, not returned; only
// the fetch can fail the batch.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	now := time.Now().UTC()
	msgs, err := s.repo.FetchDue(now, s.batchSize, s.maxRetries)
	if err != nil {
		return false, fmt.Errorf("fetch due outbox messages: %w", err)
	}
	if len(msgs) == 0 {
		return false, nil
	}

	queue := make(chan models.OutboxMessage)
	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for msg := range queue {
				s.processMessage(ctx, msg)
			}
		}()
	}
	for _, msg := range msgs {
		queue <- msg
	}
	close(queue)
	wg.Wait()
	return true, nil
}

func (s *Service) processMessage(ctx context.Context, msg models.OutboxMessage) {
	fields := map[string]any{
		"outbox_id": msg.ID.String(),
		"retries":   msg.Retries,
	}
	if msg.Event != nil {
		fields["event_id"] = msg.Event.ID.String()
		fields["event_type"] = msg.Event.EventType.String()
		fields["tenant_id"] = msg.Event.TenantID.String()
	}
	logCtx := s.logg.WithFields(ctx, fields)

	// Scans do not lock messages out, so another worker may have finished
	// this one between the fetch and now. Re-read before doing any work.
	current, err := s.repo.GetByID(msg.ID)
	if err != nil {
		s.logg.Error(logCtx, "failed to reload outbox message", err)
		return
	}
	if current.Status == enums.OutboxProcessed {
		s.metrics.IncSkipped("already_processed")
		s.logg.Info(logCtx, "outbox message already processed")
		return
	}
	msg = *current

	if msg.Event == nil {
		s.skip(logCtx, msg.ID, "missing_event")
		return
	}

	tenant, err := s.tenants.FindByID(ctx, msg.Event.TenantID)
	if err != nil {
		s.fail(logCtx, msg, fmt.Errorf("load tenant: %w", err))
		return
	}
	if !tenant.WebhookEnabled || tenant.WebhookURL == "" {
		s.skip(logCtx, msg.ID, "webhooks_disabled")
		return
	}
	if !tenant.SubscribesTo(msg.Event.EventType.String()) {
		s.skip(logCtx, msg.ID, "not_subscribed")
		return
	}

	if err := s.repo.MarkProcessing(msg.ID); err != nil {
		s.logg.Error(logCtx, "failed to mark outbox message processing", err)
		return
	}

	body, err := webhook.BuildEnvelope(msg.Event, tenant.Slug)
	if err != nil {
		s.fail(logCtx, msg, err)
		return
	}

	start := time.Now()
	err = s.sender.Send(ctx, tenant.WebhookURL, tenant.WebhookSecret, msg.Event.EventType.String(), body)
	s.metrics.ObserveDelivery(time.Since(start))
	if err != nil {
		s.fail(logCtx, msg, err)
		return
	}

	if err := s.repo.MarkProcessed(msg.ID, time.Now().UTC()); err != nil {
		s.logg.Error(logCtx, "failed to mark outbox message processed", err)
		return
	}
	s.metrics.IncDelivered(msg.Event.EventType.String())
	s.logg.Info(logCtx, "webhook delivered")
}

// skip finalizes a message without a network call. The event stays in the
// events table; only the delivery is waived.
func (s *Service) skip(ctx context.Context, id uuid.UUID, reason string) {
	if err := s.repo.MarkProcessed(id, time.Now().UTC()); err != nil {
		s.logg.Error(ctx, "failed to mark skipped outbox message processed", err)
		return
	}
	s.metrics.IncSkipped(reason)
	s.logg.Info(s.logg.WithField(ctx, "skip_reason", reason), "webhook delivery skipped")
}

func (s *Service) fail(ctx context.Context, msg models.OutboxMessage, attemptErr error) {
	if err := s.repo.MarkFailed(msg.ID, msg.Retries, attemptErr, time.Now().UTC()); err != nil {
		s.logg.Error(ctx, "failed to record outbox delivery failure", err)
		return
	}
	if msg.Event != nil {
		s.metrics.IncFailed(msg.Event.EventType.String())
	}
	ctx = s.logg.WithField(ctx, "error", attemptErr.Error())
	if msg.Retries+1 >= s.maxRetries {
		s.metrics.IncExhausted()
		s.logg.Warn(ctx, "webhook delivery retries exhausted")
		return
	}
	s.logg.Warn(ctx, "webhook delivery failed")
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(jitterSource.Int63n(int64(jitterWindow)))
}
