package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// InboundHandler processes one inbound email event.
type InboundHandler interface {
	HandleInbound(ctx context.Context, msg *InboundMessage) error
}

// Consumer reads the ingestion stream through a consumer group,
// reclaims stuck pending entries, and parks poisoned messages on a
// dead-letter stream after maxRetries deliveries.
type Consumer struct {
	client   *redis.Client
	group    string
	consumer string
	handler  InboundHandler
	log      zerolog.Logger

	pendingCheckInterval time.Duration
	pendingIdleTime      time.Duration
	maxRetries           int
}

// ConsumerConfig holds consumer configuration.
type ConsumerConfig struct {
	Group    string
	Consumer string
	Handler  InboundHandler
	Logger   zerolog.Logger

	PendingCheckInterval time.Duration
	PendingIdleTime      time.Duration
	MaxRetries           int
}

// NewConsumer creates a new Consumer.
func NewConsumer(client *redis.Client, cfg *ConsumerConfig) *Consumer {
	pendingCheckInterval := cfg.PendingCheckInterval
	if pendingCheckInterval == 0 {
		pendingCheckInterval = 30 * time.Second
	}
	pendingIdleTime := cfg.PendingIdleTime
	if pendingIdleTime == 0 {
		pendingIdleTime = 2 * time.Minute
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}

	return &Consumer{
		client:               client,
		group:                cfg.Group,
		consumer:             cfg.Consumer,
		handler:              cfg.Handler,
		log:                  cfg.Logger.With().Str("component", "inbound_consumer").Logger(),
		pendingCheckInterval: pendingCheckInterval,
		pendingIdleTime:      pendingIdleTime,
		maxRetries:           maxRetries,
	}
}

// Run consumes the inbound stream until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Info().
		Str("group", c.group).
		Str("consumer", c.consumer).
		Str("stream", StreamInbound).
		Msg("starting inbound consumer")

	c.createConsumerGroup(ctx)

	go c.processPending(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		result, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.consumer,
			Streams:  []string{StreamInbound, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error().Err(err).Msg("error reading inbound stream")
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range result {
			for _, msg := range stream.Messages {
				if err := c.processMessage(ctx, msg); err != nil {
					c.log.Error().
						Err(err).
						Str("id", msg.ID).
						Msg("error processing inbound message")
					continue
				}
				if err := c.client.XAck(ctx, StreamInbound, c.group, msg.ID).Err(); err != nil {
					c.log.Error().Err(err).Str("id", msg.ID).Msg("error acknowledging message")
				}
			}
		}
	}
}

// processPending periodically reclaims stuck pending entries.
func (c *Consumer) processPending(ctx context.Context) {
	ticker := time.NewTicker(c.pendingCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.claimStuck(ctx)
		}
	}
}

func (c *Consumer) claimStuck(ctx context.Context) {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: StreamInbound,
		Group:  c.group,
		Start:  "-",
		End:    "+",
		Count:  100,
	}).Result()
	if err != nil {
		if err != redis.Nil {
			c.log.Error().Err(err).Msg("error listing pending messages")
		}
		return
	}

	for _, p := range pending {
		if p.Idle < c.pendingIdleTime {
			continue
		}

		if int(p.RetryCount) >= c.maxRetries {
			c.log.Warn().
				Str("id", p.ID).
				Int64("retries", p.RetryCount).
				Msg("message exceeded max retries, moving to dead-letter stream")
			if err := c.moveToDeadLetter(ctx, p.ID); err != nil {
				c.log.Error().Err(err).Str("id", p.ID).Msg("error moving message to dead-letter stream")
			}
			c.client.XAck(ctx, StreamInbound, c.group, p.ID)
			continue
		}

		claimed, err := c.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   StreamInbound,
			Group:    c.group,
			Consumer: c.consumer,
			MinIdle:  c.pendingIdleTime,
			Messages: []string{p.ID},
		}).Result()
		if err != nil {
			c.log.Error().Err(err).Str("id", p.ID).Msg("error claiming message")
			continue
		}

		for _, msg := range claimed {
			if err := c.processMessage(ctx, msg); err != nil {
				c.log.Error().Err(err).Str("id", msg.ID).Msg("error reprocessing pending message")
				continue
			}
			c.client.XAck(ctx, StreamInbound, c.group, msg.ID)
		}
	}
}

func (c *Consumer) createConsumerGroup(ctx context.Context) {
	err := c.client.XGroupCreateMkStream(ctx, StreamInbound, c.group, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		c.log.Warn().Err(err).Msg("error creating consumer group")
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg redis.XMessage) error {
	data, ok := msg.Values["data"]
	if !ok {
		return fmt.Errorf("invalid message format: missing data field")
	}
	dataStr, ok := data.(string)
	if !ok {
		return fmt.Errorf("invalid message format: data is not a string")
	}

	var inbound InboundMessage
	if err := json.Unmarshal([]byte(dataStr), &inbound); err != nil {
		return fmt.Errorf("invalid inbound message: %w", err)
	}
	return c.handler.HandleInbound(ctx, &inbound)
}

// moveToDeadLetter copies the raw entry onto the dead-letter stream.
func (c *Consumer) moveToDeadLetter(ctx context.Context, id string) error {
	msgs, err := c.client.XRange(ctx, StreamInbound, id, id).Result()
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	values := msgs[0].Values
	values["original_id"] = id
	values["dead_at"] = time.Now().Format(time.RFC3339)

	return c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamInboundDead,
		Values: values,
	}).Err()
}
