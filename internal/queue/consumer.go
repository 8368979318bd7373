package queue

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mataager/SwiftStore/internal/config"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg redis.XMessage) error
}

// Abandoner is implemented by handlers that want to record a final outcome
// for a message the consumer stops retrying.
type Abandoner interface {
	Abandon(ctx context.Context, msg redis.XMessage, deliveries int64) error
}

// Consumer reads the ingest stream as one member of a consumer group and
// periodically claims messages another member left unacknowledged.
type Consumer struct {
	client        redis.Cmdable
	stream        string
	group         string
	consumer      string
	claimInterval time.Duration
	maxDeliveries int64
	log           zerolog.Logger
	handler       MessageHandler
}

func NewConsumer(client redis.Cmdable, cfg config.RedisConfig, queues config.QueueConfig, log zerolog.Logger, handler MessageHandler) *Consumer {
	return &Consumer{
		client:        client,
		stream:        cfg.Stream,
		group:         cfg.Group,
		consumer:      cfg.Consumer,
		claimInterval: queues.ClaimInterval,
		maxDeliveries: int64(queues.MaxDeliveries),
		log:           log.With().Str("component", "consumer").Str("stream", cfg.Stream).Logger(),
		handler:       handler,
	}
}

// EnsureGroup creates the stream and group if they do not exist yet.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (c *Consumer) Start(ctx context.Context) error {
	ticker := time.NewTicker(c.claimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := c.read(ctx); err != nil && !errors.Is(err, context.Canceled) {
				c.log.Error().Err(err).Msg("stream read error")
				time.Sleep(2 * time.Second)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.claimStalled(ctx); err != nil {
				c.log.Error().Err(err).Msg("claim stalled messages failed")
			}
		default:
		}
	}
}

func (c *Consumer) read(ctx context.Context) error {
	result, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, ">"},
		Count:    10,
		Block:    5 * time.Second,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	for _, stream := range result {
		for _, msg := range stream.Messages {
			c.process(ctx, msg)
		}
	}
	return nil
}

// process acks a message only after the handler succeeds; failures stay
// pending and are retried by claimStalled.
func (c *Consumer) process(ctx context.Context, msg redis.XMessage) {
	if err := c.handler.Handle(ctx, msg); err != nil {
		c.log.Error().Err(err).Str("message_id", msg.ID).Msg("handle message failed")
		return
	}
	c.ack(ctx, msg.ID)
}

// abandon records the final failure through the handler, when it supports
// that, and acks the message so it leaves the pending list. A failed
// Abandon keeps the message pending for the next claim round.
func (c *Consumer) abandon(ctx context.Context, msg redis.XMessage, deliveries int64) {
	c.log.Warn().Str("message_id", msg.ID).Int64("deliveries", deliveries).Msg("giving up on message")
	if a, ok := c.handler.(Abandoner); ok {
		if err := a.Abandon(ctx, msg, deliveries); err != nil {
			c.log.Error().Err(err).Str("message_id", msg.ID).Msg("abandon message failed")
			return
		}
	}
	c.ack(ctx, msg.ID)
}

func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, c.stream, c.group, id).Err(); err != nil {
		c.log.Error().Err(err).Str("message_id", id).Msg("ack failed")
	}
}

// exhausted reports whether a message delivered this many times has used
// up its retries. A non-positive limit retries forever.
func (c *Consumer) exhausted(deliveries int64) bool {
	return c.maxDeliveries > 0 && deliveries >= c.maxDeliveries
}

func (c *Consumer) claimStalled(ctx context.Context) error {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.stream,
		Group:  c.group,
		Start:  "-",
		End:    "+",
		Count:  10,
	}).Result()
	if err != nil {
		return err
	}

	for _, entry := range pending {
		if entry.Idle < c.claimInterval {
			continue
		}
		msgs, err := c.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   c.stream,
			Group:    c.group,
			Consumer: c.consumer,
			MinIdle:  c.claimInterval,
			Messages: []string{entry.ID},
		}).Result()
		if err != nil {
			c.log.Error().Err(err).Str("message_id", entry.ID).Msg("claim error")
			continue
		}
		for _, msg := range msgs {
			if c.exhausted(entry.RetryCount) {
				c.abandon(ctx, msg, entry.RetryCount)
				continue
			}
			c.log.Info().Str("message_id", msg.ID).Int64("retry_count", entry.RetryCount).Msg("retrying claimed message")
			c.process(ctx, msg)
		}
	}
	return nil
}
