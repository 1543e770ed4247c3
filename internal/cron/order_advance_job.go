package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/lumashop/storefront-backend/pkg/db/models"
	"github.com/lumashop/storefront-backend/pkg/logger"
)

type sweeper interface {
	Sweep(ctx context.Context, now time.Time) ([]models.Order, error)
}

// OrderAdvanceJobParams configure the time-based advancement job.
type OrderAdvanceJobParams struct {
	Logger *logger.Logger
	Orders sweeper
}

// NewOrderAdvanceJob builds the job that walks paid orders one stage forward
// once their dwell threshold elapses.
func NewOrderAdvanceJob(params OrderAdvanceJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	return &orderAdvanceJob{
		logg:   params.Logger,
		orders: params.Orders,
		now:    time.Now,
	}, nil
}

type orderAdvanceJob struct {
	logg   *logger.Logger
	orders sweeper
	now    func() time.Time
}

func (j *orderAdvanceJob) Name() string { return "order-advance" }

func (j *orderAdvanceJob) Run(ctx context.Context) error {
	advanced, err := j.orders.Sweep(ctx, j.now().UTC())
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": len(advanced)})
	j.logg.Info(logCtx, "order advance sweep complete")
	return err
}
