package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"pipeline_server/core/service/queue"
)

// DefaultPollInterval is how often the dispatcher claims due work.
const DefaultPollInterval = 2 * time.Second

// Dispatcher polls the queue for due items and feeds them to the pool.
// Claiming is atomic across instances, so multiple dispatchers can run
// against the same database.
type Dispatcher struct {
	queueService *queue.Service
	pool         *Pool
	interval     time.Duration
	log          zerolog.Logger
}

// NewDispatcher creates a queue dispatcher.
func NewDispatcher(queueService *queue.Service, p *Pool, interval time.Duration, log zerolog.Logger) *Dispatcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Dispatcher{
		queueService: queueService,
		pool:         p,
		interval:     interval,
		log:          log.With().Str("component", "dispatcher").Logger(),
	}
}

// Run polls until the context is cancelled. Blocks.
func (d *Dispatcher) Run(ctx context.Context) {
	d.log.Info().Dur("interval", d.interval).Msg("dispatcher started")

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info().Msg("dispatcher stopped")
			return
		case <-ticker.C:
			d.dispatchDue(ctx)
		}
	}
}

func (d *Dispatcher) dispatchDue(ctx context.Context) {
	// uuid.Nil claims across all tenants
	items, err := d.queueService.ClaimBatch(ctx, uuid.Nil)
	if err != nil {
		d.log.Error().Err(err).Msg("failed to claim queue batch")
		return
	}
	if len(items) == 0 {
		return
	}

	jobs := make([]*Job, 0, len(items))
	for _, item := range items {
		jobs = append(jobs, NewJob(item))
	}

	submitted := d.pool.SubmitBatch(jobs)
	d.log.Debug().
		Int("claimed", len(items)).
		Int("submitted", submitted).
		Msg("dispatched queue batch")
}
