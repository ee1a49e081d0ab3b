package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"afasrapport/internal/amqp"
	"afasrapport/internal/log"
	"afasrapport/internal/services"
)

// Refresher runs a synchronous AFAS refresh.
type Refresher interface {
	Refresh(ctx context.Context, startYear, endYear int) ([]services.YearRefresh, error)
	HandleRefreshMessage(ctx context.Context, msg *amqp.RefreshRequestMessage) error
}

// Consumer delivers refresh requests from the broker.
type Consumer interface {
	ConsumeRefreshRequests(ctx context.Context, handler amqp.Handler) error
}

// RefreshWorker executes queued and scheduled refreshes.
type RefreshWorker struct {
	refresher Refresher
	consumer  Consumer
	logger    *log.Logger
	now       func() time.Time
}

func NewRefreshWorker(refresher Refresher, consumer Consumer, logger *log.Logger) *RefreshWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &RefreshWorker{
		refresher: refresher,
		consumer:  consumer,
		logger:    logger.WithComponent(log.ComponentWorker),
		now:       time.Now,
	}
}

// Consume blocks handling broker messages until ctx is cancelled.
// Without a consumer it just waits for ctx.
func (w *RefreshWorker) Consume(ctx context.Context) error {
	if w.consumer == nil {
		w.logger.Info("Skipping AMQP message consumption - no broker configured")
		<-ctx.Done()
		return nil
	}
	err := w.consumer.ConsumeRefreshRequests(ctx, w.refresher.HandleRefreshMessage)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consume refresh requests: %w", err)
	}
	return nil
}

// RefreshRecent refreshes the previous and the current year.
func (w *RefreshWorker) RefreshRecent(ctx context.Context) error {
	year := w.now().Year()
	years, err := w.refresher.Refresh(ctx, year-1, year)
	if err != nil {
		return err
	}
	total := 0
	for _, y := range years {
		total += y.Records
	}
	w.logger.InfoContext(ctx, "Scheduled refresh completed",
		log.FieldStartYear, year-1,
		log.FieldEndYear, year,
		log.FieldRecords, total)
	return nil
}

// Schedule registers RefreshRecent on a cron spec in loc. The returned
// scheduler is not started.
func (w *RefreshWorker) Schedule(ctx context.Context, spec string, loc *time.Location) (*cron.Cron, error) {
	if loc == nil {
		loc = time.Local
	}
	w.now = func() time.Time { return time.Now().In(loc) }

	c := cron.New(cron.WithLocation(loc))
	_, err := c.AddFunc(spec, func() {
		w.logger.InfoContext(ctx, "Running scheduled refresh", "schedule", spec)
		if err := w.RefreshRecent(ctx); err != nil {
			w.logger.ErrorContext(ctx, "Scheduled refresh failed", log.FieldError, err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule refresh %q: %w", spec, err)
	}
	return c, nil
}
