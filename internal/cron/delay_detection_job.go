package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/cargoflow/backend/internal/exceptions"
	"github.com/cargoflow/backend/pkg/db/models"
	"github.com/cargoflow/backend/pkg/enums"
	"github.com/cargoflow/backend/pkg/logger"
)

// DelayDetectionJobParams configure the overdue-order sweep.
type DelayDetectionJobParams struct {
	Logger     *logger.Logger
	Orders     overdueOrderReader
	Exceptions delayExceptionChecker
	Raiser     exceptionRaiser
}

type overdueOrderReader interface {
	ListOverdueInTransit(ctx context.Context, now time.Time) ([]models.Order, error)
}

type delayExceptionChecker interface {
	ExistsActiveForOrder(ctx context.Context, orderID uuid.UUID, excType enums.ExceptionType) (bool, error)
}

type exceptionRaiser interface {
	Create(ctx context.Context, tenantID uuid.UUID, input exceptions.CreateInput) (*models.Exception, error)
}

// NewDelayDetectionJob builds the cron job that raises DELAY exceptions for
// in-transit orders whose drop window has already closed.
func NewDelayDetectionJob(params DelayDetectionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders reader required")
	}
	if params.Exceptions == nil {
		return nil, fmt.Errorf("exceptions repository required")
	}
	if params.Raiser == nil {
		return nil, fmt.Errorf("exceptions service required")
	}
	return &delayDetectionJob{
		logg:       params.Logger,
		orders:     params.Orders,
		exceptions: params.Exceptions,
		raiser:     params.Raiser,
		now:        time.Now,
	}, nil
}

type delayDetectionJob struct {
	logg       *logger.Logger
	orders     overdueOrderReader
	exceptions delayExceptionChecker
	raiser     exceptionRaiser
	now        func() time.Time
}

func (j *delayDetectionJob) Name() string { return "delay-detection" }

func (j *delayDetectionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	overdue, err := j.orders.ListOverdueInTransit(ctx, now)
	if err != nil {
		return fmt.Errorf("query overdue orders: %w", err)
	}

	var errs []error
	raised := 0
	for _, order := range overdue {
		ok, err := j.raiseDelay(ctx, order)
		if err != nil {
			errs = append(errs, fmt.Errorf("order %s: %w", order.ReferenceCode, err))
			continue
		}
		if ok {
			raised++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"scanned": len(overdue),
		"raised":  raised,
	})
	j.logg.Info(logCtx, "delay detection loop complete")
	return multierr.Combine(errs...)
}

// raiseDelay reports whether a new exception was raised. An order with a
// DELAY exception still OPEN or ACKNOWLEDGED is skipped; raising another
// would just duplicate the alert the dispatcher is already working.
func (j *delayDetectionJob) raiseDelay(ctx context.Context, order models.Order) (bool, error) {
	exists, err := j.exceptions.ExistsActiveForOrder(ctx, order.ID, enums.ExceptionDelay)
	if err != nil {
		return false, fmt.Errorf("check active delay exception: %w", err)
	}
	if exists {
		return false, nil
	}
	notes := fmt.Sprintf("Auto-detected: order %s overdue since %s",
		order.ReferenceCode, order.DropWindowEnd.UTC().Format(time.RFC3339))
	if _, err := j.raiser.Create(ctx, order.TenantID, exceptions.CreateInput{
		OrderID: order.ID,
		Type:    enums.ExceptionDelay,
		Notes:   notes,
	}); err != nil {
		return false, fmt.Errorf("raise delay exception: %w", err)
	}
	return true, nil
}
