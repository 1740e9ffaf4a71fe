package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix = "bustrack:events:"
	globalChannel = channelPrefix + "global"
)

// RoomChannel is the redis channel carrying a room's events.
func RoomChannel(room string) string {
	return channelPrefix + "room:" + room
}

// RedisBridge mirrors every broadcast onto redis channels so sibling
// processes can fan out to their own websocket clients. Publish failures
// are logged and dropped; this is telemetry, not guaranteed delivery.
type RedisBridge struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisBridge(addr, password string, db int, logger *slog.Logger) (*RedisBridge, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisBridge{
		client: client,
		logger: logger.With("component", "redis_bridge"),
	}, nil
}

func (b *RedisBridge) Close() error {
	return b.client.Close()
}

type wireEvent struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

func (b *RedisBridge) Emit(event string, payload any) {
	b.publish(globalChannel, event, payload)
}

func (b *RedisBridge) EmitTo(room, event string, payload any) {
	b.publish(RoomChannel(room), event, payload)
}

func (b *RedisBridge) publish(channel, event string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		b.logger.Error("marshal payload failed", "event", event, "error", err)
		return
	}
	data, err := json.Marshal(wireEvent{Event: event, Payload: raw})
	if err != nil {
		b.logger.Error("marshal event failed", "event", event, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Warn("redis publish failed", "channel", channel, "event", event, "error", err)
	}
}
