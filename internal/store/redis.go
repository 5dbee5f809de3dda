package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/zhouzirui/ai-experts-chat/backend/internal/model/chat"
)

const redisKeyPrefix = "chat:session:"

// RedisStore keeps each conversation in a Redis list of JSON encoded messages.
type RedisStore struct {
	client  *redis.Client
	ttl     time.Duration
	timeout time.Duration
}

// NewRedisStore connects to the Redis instance at rawURL and pings it.
// A positive ttl refreshes the key expiry on every append.
func NewRedisStore(ctx context.Context, rawURL string, ttl, timeout time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if timeout > 0 {
		opts.DialTimeout = timeout
		opts.ReadTimeout = timeout
		opts.WriteTimeout = timeout
	}

	return newRedisStore(ctx, redis.NewClient(opts), ttl, timeout)
}

func newRedisStore(ctx context.Context, client *redis.Client, ttl, timeout time.Duration) (*RedisStore, error) {
	s := &RedisStore{client: client, ttl: ttl, timeout: timeout}

	pingCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, unavailable("connect to redis", err)
	}
	return s, nil
}

// Load reads the whole list for sessionID.
func (s *RedisStore) Load(ctx context.Context, sessionID string) ([]chat.Message, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	raw, err := s.client.LRange(ctx, redisKey(sessionID), 0, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, unavailable("load history", err)
	}

	messages := make([]chat.Message, 0, len(raw))
	for i, item := range raw {
		var msg chat.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("decode message %d of session %s: %w", i, sessionID, err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// Append pushes all messages with a single RPUSH inside MULTI/EXEC, so the
// batch lands contiguously.
func (s *RedisStore) Append(ctx context.Context, sessionID string, messages ...chat.Message) error {
	if sessionID == "" {
		return ErrSessionRequired
	}
	if len(messages) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(messages))
	for _, msg := range messages {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("encode message: %w", err)
		}
		values = append(values, data)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	key := redisKey(sessionID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return unavailable("append history", err)
	}
	return nil
}

// Close releases the client connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func redisKey(sessionID string) string {
	return redisKeyPrefix + sessionID
}
