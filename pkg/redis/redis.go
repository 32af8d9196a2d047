package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/backsoul/trivia/pkg/notify"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ChannelPrefix is prepended to the target name to form the pub/sub channel.
const ChannelPrefix = "quiz:sync:"

// RedisClient estructura para manejar conexiones con Redis
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient crea el cliente y verifica la conexión
func NewRedisClient(ctx context.Context, addr, password string, db int) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}

	log.Info().Str("addr", addr).Int("db", db).Msg("✅ connected to Redis")
	return &RedisClient{client: rdb}, nil
}

// Publisher returns a sync publisher backed by this client.
func (r *RedisClient) Publisher() *SyncPublisher {
	return NewSyncPublisher(r.client)
}

// Close cierra la conexión con Redis
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// HealthCheck verifica que Redis esté funcionando
func (r *RedisClient) HealthCheck(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// SyncEvent is the payload published for every sync nudge.
type SyncEvent struct {
	Type   string    `json:"type"`
	Target string    `json:"target"`
	SentAt time.Time `json:"sentAt"`
}

// SyncPublisher mirrors sync nudges onto Redis pub/sub for displays outside this process.
type SyncPublisher struct {
	pub publisher
	now func() time.Time
}

func NewSyncPublisher(pub publisher) *SyncPublisher {
	return &SyncPublisher{pub: pub, now: time.Now}
}

// Channel returns the pub/sub channel for target.
func Channel(target notify.Target) string {
	return ChannelPrefix + target.String()
}

func (p *SyncPublisher) Notify(ctx context.Context, target notify.Target) error {
	event := SyncEvent{Type: "syncFromAdmin", Target: target.String(), SentAt: p.now().UTC()}
	if target == notify.Admin {
		event.Type = "syncFromPlayer"
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("serialize sync event: %w", err)
	}

	if err := p.pub.Publish(ctx, Channel(target), payload).Err(); err != nil {
		return fmt.Errorf("publish %s sync: %w", target, err)
	}
	return nil
}
