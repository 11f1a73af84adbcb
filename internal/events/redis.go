// Package events publishes discussion events to Redis pub/sub channels for
// downstream delivery workers.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/steemit/discussion/internal/discussion"
	"github.com/steemit/discussion/pkg/logging"
)

// Channels
const (
	ChannelCommentPosted = "discussion:events:comment_posted"
	ChannelFlagEscalated = "discussion:events:flag_escalated"
)

// Envelope is the message published on every channel
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// RedisPublisher implements discussion.Notifier on Redis pub/sub
type RedisPublisher struct {
	client *redis.Client
	logger *zap.Logger
}

var _ discussion.Notifier = (*RedisPublisher)(nil)

// NewRedisPublisher creates a publisher on client
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{
		client: client,
		logger: logging.WithComponent("events"),
	}
}

// CommentPosted implements discussion.Notifier
func (p *RedisPublisher) CommentPosted(ctx context.Context, event discussion.CommentPostedEvent) error {
	return p.publish(ctx, ChannelCommentPosted, "comment_posted", event)
}

// FlagEscalated implements discussion.Notifier
func (p *RedisPublisher) FlagEscalated(ctx context.Context, event discussion.FlagEscalatedEvent) error {
	return p.publish(ctx, ChannelFlagEscalated, "flag_escalated", event)
}

func (p *RedisPublisher) publish(ctx context.Context, channel, kind string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", kind, err)
	}
	msg, err := json.Marshal(Envelope{Type: kind, Payload: raw})
	if err != nil {
		return fmt.Errorf("failed to encode %s envelope: %w", kind, err)
	}

	receivers, err := p.client.Publish(ctx, channel, msg).Result()
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", kind, err)
	}
	logging.For(ctx, p.logger).Debug("Event published",
		zap.String("channel", channel),
		zap.Int64("receivers", receivers))
	return nil
}
