// Package messaging provides the Redis Streams ingestion bus.
package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"pipeline_server/core/domain"
	"pipeline_server/core/port/out"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Stream names
const (
	StreamInbound     = "email:inbound"
	StreamInboundDead = "email:inbound:dead"
)

// InboundMessage is the wire format on the ingestion stream.
type InboundMessage struct {
	TenantID uuid.UUID     `json:"tenant_id"`
	Email    *domain.Email `json:"email"`
	SentAt   time.Time     `json:"sent_at"`
}

// RedisProducer implements out.InboundProducer using Redis Streams.
type RedisProducer struct {
	client *redis.Client
}

// NewRedisProducer creates a new RedisProducer.
func NewRedisProducer(client *redis.Client) *RedisProducer {
	return &RedisProducer{client: client}
}

// PublishInbound publishes one inbound email event.
func (p *RedisProducer) PublishInbound(ctx context.Context, tenantID uuid.UUID, email *domain.Email) error {
	data, err := json.Marshal(InboundMessage{
		TenantID: tenantID,
		Email:    email,
		SentAt:   time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal inbound message: %w", err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamInbound,
		MaxLen: 100000,
		Approx: true,
		Values: map[string]any{"data": string(data)},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish inbound message: %w", err)
	}
	return nil
}

// Compile-time interface check
var _ out.InboundProducer = (*RedisProducer)(nil)
