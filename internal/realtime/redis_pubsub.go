package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/evently-demo/backend/internal/auth"
)

const (
	authChannel    = "auth:events"
	publishTimeout = 5 * time.Second
)

// redisPayload is the message published to Redis for cross-process delivery.
type redisPayload struct {
	Change auth.StateChange `json:"change"`
	At     int64            `json:"at"`
}

// RedisPubSub carries auth transitions between processes sharing one Redis,
// so a sign-in in one process reaches listeners registered in another.
type RedisPubSub struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewRedisPubSub creates a bridge on the auth channel of namespace prefix.
func NewRedisPubSub(client *redis.Client, prefix string, logger *zap.Logger) *RedisPubSub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPubSub{client: client, channel: prefix + authChannel, logger: logger}
}

// Channel returns the Redis channel the bridge uses.
func (r *RedisPubSub) Channel() string { return r.channel }

// PublishAuthEvent implements auth.Publisher.
func (r *RedisPubSub) PublishAuthEvent(ctx context.Context, change auth.StateChange) error {
	body, err := json.Marshal(redisPayload{Change: change, At: time.Now().Unix()})
	if err != nil {
		return fmt.Errorf("marshal auth event: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := r.client.Publish(ctx, r.channel, body).Err(); err != nil {
		return fmt.Errorf("publish auth event: %w", err)
	}
	return nil
}

// Subscribe calls handler for every transition published on the channel.
// Returns a cancel function to stop the subscription.
func (r *RedisPubSub) Subscribe(ctx context.Context, handler func(auth.StateChange)) (cancel func(), err error) {
	ctx, cancelCtx := context.WithCancel(ctx)
	pubsub := r.client.Subscribe(ctx, r.channel)
	if _, err = pubsub.Receive(ctx); err != nil {
		cancelCtx()
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var p redisPayload
				if err := json.Unmarshal([]byte(msg.Payload), &p); err != nil {
					r.logger.Warn("malformed auth event on channel", zap.String("channel", r.channel), zap.Error(err))
					continue
				}
				handler(p.Change)
			}
		}
	}()
	return cancelCtx, nil
}

// Bridge publishes sim's transitions and relays other processes' transitions
// into sim. The returned function stops relaying.
func (r *RedisPubSub) Bridge(ctx context.Context, sim *auth.Simulator) (func(), error) {
	cancel, err := r.Subscribe(ctx, sim.Relay)
	if err != nil {
		return nil, err
	}
	sim.SetPublisher(r)
	return cancel, nil
}
