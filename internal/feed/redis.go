package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/maxviazov/youth-hoops-tracker/internal/config"
)

const channelPrefix = "hoops:game:"

func channel(gameID int64) string { return channelPrefix + strconv.FormatInt(gameID, 10) }

// Redis fans messages out through Redis pub/sub so every server replica sees every write.
type Redis struct {
	client *redis.Client
	log    zerolog.Logger
}

// NewRedisClient builds a client from config and checks that the server answers.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

func NewRedis(client *redis.Client, logger zerolog.Logger) *Redis {
	return &Redis{
		client: client,
		log:    logger.With().Str("module", "feed").Str("component", "redis").Logger(),
	}
}

func (b *Redis) Publish(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode feed message: %w", err)
	}
	return b.client.Publish(ctx, channel(msg.GameID), payload).Err()
}

func (b *Redis) Subscribe(ctx context.Context, gameID int64) (<-chan Message, error) {
	ps := b.client.Subscribe(ctx, channel(gameID))
	// Receive blocks until the subscription is confirmed, so nothing published after return is missed
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan Message, subscriberBuffer)
	go func() {
		defer close(out)
		defer ps.Close()
		in := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-in:
				if !ok {
					return
				}
				var msg Message
				if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
					b.log.Warn().Err(err).Str("channel", raw.Channel).Msg("undecodable feed message")
					continue
				}
				select {
				case out <- msg:
				default:
					b.log.Warn().Int64("game_id", gameID).Msg("subscriber lagging; message dropped")
				}
			}
		}
	}()
	return out, nil
}

// Ping lets the readiness probe cover Redis.
func (b *Redis) Ping(ctx context.Context) error { return b.client.Ping(ctx).Err() }

func (b *Redis) Close() error { return b.client.Close() }

var _ Broker = (*Redis)(nil)
