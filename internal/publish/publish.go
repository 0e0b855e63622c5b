// Package publish pushes run events to a Redis Stream for downstream
// consumers. Without a Redis URL every call is a no-op.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/contactkeval/fintech-modeler/internal/logger"
)

// Event is the envelope for every message (type + ts + payload).
type Event struct {
	Type    string `json:"type"`
	TS      string `json:"ts"`
	Payload any    `json:"payload"`
}

// Publisher allows callers to use either the Redis or the no-op publisher.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// RedisPublisher appends events to a Redis Stream with XADD.
type RedisPublisher struct {
	client *redis.Client
	stream string
}

// NewRedisPublisher connects to addr, a redis:// URL or a plain host:port,
// and checks the connection with PING.
func NewRedisPublisher(ctx context.Context, addr, stream string) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{Addr: addr}
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisPublisher{client: client, stream: stream}, nil
}

// New returns a RedisPublisher when url is set and a NoopPublisher otherwise.
func New(ctx context.Context, url, stream string) (Publisher, error) {
	if url == "" {
		return NoopPublisher{}, nil
	}
	p, err := NewRedisPublisher(ctx, url, stream)
	if err != nil {
		return nil, err
	}
	logger.Infof("publishing run events to redis stream %s", stream)
	return p, nil
}

// Publish sends an event to the stream. Payload is JSON-serialized.
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	if event.TS == "" {
		event.TS = time.Now().UTC().Format(time.RFC3339Nano)
	}
	payloadBytes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", event.Type, err)
	}
	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"type":    event.Type,
			"ts":      event.TS,
			"payload": string(payloadBytes),
		},
	}).Err()
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// NoopPublisher is used when Redis is not configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event Event) error { return nil }
func (NoopPublisher) Close() error                                   { return nil }

var (
	_ Publisher = (*RedisPublisher)(nil)
	_ Publisher = NoopPublisher{}
)

// LogErr logs a publish error without failing the run.
func LogErr(err error, eventType string) {
	if err != nil {
		logger.Warnf("redis %s publish error: %v", eventType, err)
	}
}
