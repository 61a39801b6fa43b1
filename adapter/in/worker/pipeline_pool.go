package worker

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-pkgz/pool"
	"github.com/rs/zerolog"
)

// PoolConfig holds worker pool configuration.
type PoolConfig struct {
	MaxWorkers     int
	BatchSize      int
	WorkerChanSize int
	JobTimeout     time.Duration
	MaxRetries     int
}

// DefaultPoolConfig returns default pool configuration.
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxWorkers:     8,
		BatchSize:      10,
		WorkerChanSize: 100,
		// classification and generation calls dominate; their own
		// timeouts are shorter than this ceiling
		JobTimeout: 60 * time.Second,
		MaxRetries: 3,
	}
}

// PoolMetrics holds pool counters.
type PoolMetrics struct {
	JobsProcessed  int64
	JobsFailed     int64
	JobsRetried    int64
	AvgProcessTime int64 // milliseconds
	QueueSize      int32
}

// Pool runs jobs on a bounded go-pkgz worker group with retry,
// exponential backoff and a dead-letter log.
type Pool struct {
	processor *Processor
	config    *PoolConfig

	pool *pool.WorkerGroup[*Job]

	ctx    context.Context
	cancel context.CancelFunc

	metrics *PoolMetrics
	log     zerolog.Logger

	dlq   chan *Job
	dlqWg sync.WaitGroup

	started bool
	mu      sync.Mutex
}

// jobWorker implements pool.Worker for Job processing.
type jobWorker struct {
	pool *Pool
}

// Do implements pool.Worker.
func (w *jobWorker) Do(ctx context.Context, job *Job) error {
	return w.pool.processJob(ctx, job)
}

// NewPool creates a worker pool.
func NewPool(processor *Processor, config *PoolConfig, log zerolog.Logger) *Pool {
	if config == nil {
		config = DefaultPoolConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		processor: processor,
		config:    config,
		ctx:       ctx,
		cancel:    cancel,
		metrics:   &PoolMetrics{},
		log:       log.With().Str("component", "worker_pool").Logger(),
		dlq:       make(chan *Job, 100),
	}
}

// Start starts the worker pool.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}

	p.pool = pool.New[*Job](p.config.MaxWorkers, &jobWorker{pool: p}).
		WithBatchSize(p.config.BatchSize).
		WithWorkerChanSize(p.config.WorkerChanSize).
		WithContinueOnError()

	if err := p.pool.Go(p.ctx); err != nil {
		p.log.Error().Err(err).Msg("failed to start pool")
		return
	}

	p.started = true

	p.dlqWg.Add(1)
	go p.dlqProcessor()
	go p.metricsReporter()

	p.log.Info().
		Int("max_workers", p.config.MaxWorkers).
		Int("batch_size", p.config.BatchSize).
		Msg("worker pool started")
}

// Stop gracefully stops the worker pool.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer closeCancel()

	if p.pool != nil {
		if err := p.pool.Close(closeCtx); err != nil {
			p.log.Warn().Err(err).Msg("error closing pool")
		}
	}

	p.cancel()
	close(p.dlq)
	p.dlqWg.Wait()

	p.log.Info().
		Int64("processed", atomic.LoadInt64(&p.metrics.JobsProcessed)).
		Int64("failed", atomic.LoadInt64(&p.metrics.JobsFailed)).
		Msg("worker pool stopped")
}

// Submit submits one job.
func (p *Pool) Submit(job *Job) bool {
	p.mu.Lock()
	if !p.started || p.pool == nil {
		p.mu.Unlock()
		return false
	}
	p.mu.Unlock()

	p.pool.Submit(job)
	atomic.AddInt32(&p.metrics.QueueSize, 1)
	return true
}

// SubmitBatch submits a claimed batch.
func (p *Pool) SubmitBatch(jobs []*Job) int {
	submitted := 0
	for _, job := range jobs {
		if p.Submit(job) {
			submitted++
		}
	}
	return submitted
}

// processJob runs one job with a timeout, retrying transient failures
// with exponential backoff and jitter before parking the job on the
// dead-letter log.
func (p *Pool) processJob(ctx context.Context, job *Job) error {
	start := time.Now()
	defer atomic.AddInt32(&p.metrics.QueueSize, -1)

	jobCtx, cancel := context.WithTimeout(ctx, p.config.JobTimeout)
	defer cancel()

	err := p.processor.Process(jobCtx, job)

	elapsed := time.Since(start).Milliseconds()
	p.updateAvgProcessTime(elapsed)

	if err != nil {
		p.log.Error().
			Err(err).
			Str("job_id", job.ID).
			Int64("item_id", job.Item.ID).
			Int("retries", job.Retries).
			Msg("job processing failed")

		if job.Retries < p.config.MaxRetries {
			job.Retries++
			atomic.AddInt64(&p.metrics.JobsRetried, 1)

			// base * 2^retries plus jitter to avoid thundering herds
			backoff := time.Duration(1<<job.Retries)*time.Second +
				time.Duration(rand.Intn(500))*time.Millisecond
			time.AfterFunc(backoff, func() {
				if !p.Submit(job) {
					// pool stopped while the retry was pending
					atomic.AddInt64(&p.metrics.JobsFailed, 1)
					p.processor.MarkAbandoned(context.Background(), job, "worker pool stopped before retry")
				}
			})
		} else {
			atomic.AddInt64(&p.metrics.JobsFailed, 1)
			select {
			case p.dlq <- job:
			default:
				p.log.Error().Str("job_id", job.ID).Msg("dead-letter buffer full, job lost")
			}
		}
		return err
	}

	atomic.AddInt64(&p.metrics.JobsProcessed, 1)
	return nil
}

func (p *Pool) updateAvgProcessTime(elapsed int64) {
	current := atomic.LoadInt64(&p.metrics.AvgProcessTime)
	if current == 0 {
		atomic.StoreInt64(&p.metrics.AvgProcessTime, elapsed)
	} else {
		atomic.StoreInt64(&p.metrics.AvgProcessTime, (current*9+elapsed)/10)
	}
}

// dlqProcessor marks permanently failed jobs in the queue so they stay
// visible for manual resubmission.
func (p *Pool) dlqProcessor() {
	defer p.dlqWg.Done()

	for job := range p.dlq {
		p.log.Error().
			Str("job_id", job.ID).
			Int64("item_id", job.Item.ID).
			Int("retries", job.Retries).
			Msg("job permanently failed")
		p.processor.MarkAbandoned(context.Background(), job, "retries exhausted")
	}
}

// metricsReporter periodically logs counters.
func (p *Pool) metricsReporter() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.log.Info().
				Int64("processed", atomic.LoadInt64(&p.metrics.JobsProcessed)).
				Int64("failed", atomic.LoadInt64(&p.metrics.JobsFailed)).
				Int64("retried", atomic.LoadInt64(&p.metrics.JobsRetried)).
				Int64("avg_process_ms", atomic.LoadInt64(&p.metrics.AvgProcessTime)).
				Int32("queue_size", atomic.LoadInt32(&p.metrics.QueueSize)).
				Msg("worker pool metrics")
		}
	}
}

// GetMetrics returns current counters.
func (p *Pool) GetMetrics() PoolMetrics {
	return PoolMetrics{
		JobsProcessed:  atomic.LoadInt64(&p.metrics.JobsProcessed),
		JobsFailed:     atomic.LoadInt64(&p.metrics.JobsFailed),
		JobsRetried:    atomic.LoadInt64(&p.metrics.JobsRetried),
		AvgProcessTime: atomic.LoadInt64(&p.metrics.AvgProcessTime),
		QueueSize:      atomic.LoadInt32(&p.metrics.QueueSize),
	}
}
