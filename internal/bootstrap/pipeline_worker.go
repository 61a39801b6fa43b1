package bootstrap

import (
	"context"
	"sync"
	"time"

	"pipeline_server/adapter/in/worker"
	"pipeline_server/adapter/out/messaging"
	"pipeline_server/config"

	"github.com/rs/zerolog"
)

// Worker runs the queue dispatcher, the processing pool, and the
// inbound stream consumer.
type Worker struct {
	pool       *worker.Pool
	dispatcher *worker.Dispatcher
	consumer   *messaging.Consumer
	deps       *Dependencies

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    zerolog.Logger
}

// NewWorker builds the worker runtime.
func NewWorker(cfg *config.Config) (*Worker, func(), error) {
	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		return nil, nil, err
	}
	log := deps.Log.With().Str("component", "worker").Logger()

	processor := worker.NewProcessor(deps.Orchestrator, deps.QueueService, deps.Log)

	poolConfig := &worker.PoolConfig{
		MaxWorkers:     cfg.WorkerCount,
		BatchSize:      cfg.WorkerBatchSize,
		WorkerChanSize: cfg.WorkerChanSize,
		JobTimeout:     cfg.JobTimeout(),
		MaxRetries:     cfg.WorkerRetries,
	}
	defaults := worker.DefaultPoolConfig()
	if poolConfig.MaxWorkers <= 0 {
		poolConfig.MaxWorkers = defaults.MaxWorkers
	}
	if poolConfig.BatchSize <= 0 {
		poolConfig.BatchSize = defaults.BatchSize
	}
	if poolConfig.WorkerChanSize <= 0 {
		poolConfig.WorkerChanSize = defaults.WorkerChanSize
	}
	if poolConfig.JobTimeout <= 0 {
		poolConfig.JobTimeout = defaults.JobTimeout
	}

	pool := worker.NewPool(processor, poolConfig, deps.Log)
	dispatcher := worker.NewDispatcher(deps.QueueService, pool, cfg.PollInterval(), deps.Log)

	ctx, cancel := context.WithCancel(context.Background())

	w := &Worker{
		pool:       pool,
		dispatcher: dispatcher,
		deps:       deps,
		ctx:        ctx,
		cancel:     cancel,
		log:        log,
	}

	// Inbound stream consumer only when Redis is available
	if deps.Redis != nil {
		ingestor := worker.NewIngestor(deps.QueueService, deps.Log)
		w.consumer = messaging.NewConsumer(deps.Redis, &messaging.ConsumerConfig{
			Group:      cfg.ConsumerGroup,
			Consumer:   cfg.ConsumerName,
			Handler:    ingestor,
			Logger:     deps.Log,
			MaxRetries: cfg.ConsumerMaxRetries,
		})
		log.Info().Str("group", cfg.ConsumerGroup).Msg("inbound stream consumer configured")
	} else {
		log.Warn().Msg("Redis not available, worker will only process queued items")
	}

	return w, cleanup, nil
}

// Start runs the pool, dispatcher, and consumer until Stop is called.
// Blocks.
func (w *Worker) Start() {
	w.pool.Start()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.dispatcher.Run(w.ctx)
	}()

	if w.consumer != nil {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			if err := w.consumer.Run(w.ctx); err != nil && err != context.Canceled {
				w.log.Error().Err(err).Msg("stream consumer error")
			}
		}()
	}

	w.log.Info().Msg("worker started")
	<-w.ctx.Done()
}

// Stop shuts the worker down, draining in-flight jobs.
func (w *Worker) Stop() {
	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		w.log.Warn().Msg("worker goroutines did not stop in time")
	}

	w.pool.Stop()
}

// GetMetrics exposes pool counters.
func (w *Worker) GetMetrics() worker.PoolMetrics {
	return w.pool.GetMetrics()
}
