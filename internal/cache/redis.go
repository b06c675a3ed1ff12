package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/diana-archive/gazetteer/internal/errors"
	"github.com/diana-archive/gazetteer/internal/logger"
)

// KeyPrefix namespaces every key written to redis.
const KeyPrefix = "gazetteer:"

// flushBatch is the SCAN count and DEL batch size used by Flush.
const flushBatch = 500

// RedisConfig holds redis connection parameters.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Redis is a cache shared by all API instances pointing at the same server.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to redis and verifies the connection with PING.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	if cfg.Addr == "" {
		return nil, errors.Newf("redis cache address is empty").
			Component("cache").
			Category(errors.CategoryConfiguration).
			Build()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.New(fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)).
			Component("cache").
			Category(errors.CategoryNetwork).
			Context("addr", cfg.Addr).
			Build()
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	GetLogger().Info("connected to redis",
		logger.String("addr", cfg.Addr),
		logger.Int("db", cfg.DB))

	return &Redis{client: client, ttl: ttl}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, KeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.ttl
	}
	return r.client.Set(ctx, KeyPrefix+key, value, ttl).Err()
}

// Flush deletes the keys under KeyPrefix only, leaving other data in the
// same database alone.
func (r *Redis) Flush(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, KeyPrefix+"*", flushBatch).Iterator()
	batch := make([]string, 0, flushBatch)
	deleted := 0

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == flushBatch {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			deleted += len(batch)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		if err := r.client.Del(ctx, batch...).Err(); err != nil {
			return err
		}
		deleted += len(batch)
	}

	GetLogger().Debug("flushed redis cache", logger.Int("keys", deleted))
	return nil
}

func (r *Redis) Name() string { return BackendRedis }

func (r *Redis) Close() error {
	return r.client.Close()
}
