package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RealtimeChannelPrefix is prepended to the recipient id to form the Redis
// pub/sub channel a user's live clients subscribe to
const RealtimeChannelPrefix = "citizenone:notifications:"

// RedisPublisher pushes notifications to per-user Redis pub/sub channels so
// connected clients see them without polling the inbox
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher creates a realtime sender on an existing client
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Channel returns the realtime channel type
func (p *RedisPublisher) Channel() Channel {
	return ChannelRealtime
}

// Validate validates a realtime notification
func (p *RedisPublisher) Validate(msg *Message) error {
	if msg.RecipientID <= 0 {
		return ErrInvalidRecipient
	}
	return nil
}

// Send publishes the message as JSON. Having no subscribers is not an error.
func (p *RedisPublisher) Send(ctx context.Context, msg *Message) error {
	if err := p.Validate(msg); err != nil {
		return err
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return &NotificationError{Message: "failed to encode realtime message", Err: err}
	}
	if err := p.client.Publish(ctx, UserChannel(msg.RecipientID), payload).Err(); err != nil {
		return &NotificationError{Message: "redis publish failed", Err: err}
	}
	return nil
}

// UserChannel returns the pub/sub channel for one user
func UserChannel(userID int64) string {
	return fmt.Sprintf("%s%d", RealtimeChannelPrefix, userID)
}
