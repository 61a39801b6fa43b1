package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"pipeline_server/adapter/out/messaging"
	"pipeline_server/core/domain"
	"pipeline_server/core/service/queue"
)

// Ingestor enqueues emails arriving on the inbound stream.
type Ingestor struct {
	queueService *queue.Service
	log          zerolog.Logger
}

// NewIngestor creates a stream-to-queue ingestor.
func NewIngestor(queueService *queue.Service, log zerolog.Logger) *Ingestor {
	return &Ingestor{
		queueService: queueService,
		log:          log.With().Str("component", "ingestor").Logger(),
	}
}

// HandleInbound implements messaging.InboundHandler. A failed enqueue
// returns the error so the consumer retries the stream entry.
func (i *Ingestor) HandleInbound(ctx context.Context, msg *messaging.InboundMessage) error {
	id, err := i.queueService.Add(ctx, msg.TenantID, msg.Email, domain.DefaultQueuePriority, time.Time{})
	if err != nil {
		return err
	}

	i.log.Debug().
		Int64("item_id", id).
		Str("tenant_id", msg.TenantID.String()).
		Str("email_id", msg.Email.ID).
		Msg("inbound email enqueued")
	return nil
}

// Compile-time interface check
var _ messaging.InboundHandler = (*Ingestor)(nil)
