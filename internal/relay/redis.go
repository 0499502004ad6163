package relay

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisSource feeds the hub from a Redis pub/sub channel. Upstream
// workflows publish the new-message payload directly to the channel.
type RedisSource struct {
	client  *redis.Client
	channel string
	hub     *Hub
	logger  *slog.Logger
}

func NewRedisSource(url, channel string, hub *Hub, logger *slog.Logger) (*RedisSource, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisSource{
		client:  redis.NewClient(opts),
		channel: channel,
		hub:     hub,
		logger:  logger,
	}, nil
}

// Run subscribes and forwards messages until the context ends.
func (s *RedisSource) Run(ctx context.Context) error {
	sub := s.client.Subscribe(ctx, s.channel)
	defer sub.Close()

	// Force the subscription before reporting readiness in logs.
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	s.logger.Info("redis source listening", "channel", s.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s.hub.Broadcast(EventNewMessage, json.RawMessage(msg.Payload))
		}
	}
}

func (s *RedisSource) Close() error {
	return s.client.Close()
}
