package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/gravadigital/bienestar-api/internal/geo"
	"github.com/gravadigital/bienestar-api/internal/logger"
)

const (
	keyPrefix     = "bienestar:nearby:"
	generationKey = keyPrefix + "generation"
)

// getter is satisfied by both *redis.Client and *redis.Tx
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

var errStaleGeneration = errors.New("nearby cache generation moved")

// Redis keeps results in Redis. Keys embed a generation counter, so
// Invalidate is a single INCR and stale entries simply expire.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
	log *log.Logger
}

// NewRedis connects to url and verifies the connection
func NewRedis(ctx context.Context, url string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Redis{rdb: rdb, ttl: ttl, log: logger.Infra("redis")}, nil
}

func (c *Redis) Get(ctx context.Context, lat, lon, radiusKm float64) ([]geo.Nearby, Generation, bool) {
	gen, err := c.generation(ctx, c.rdb)
	if err != nil {
		c.log.Warn("Nearby cache unavailable", "error", err)
		return nil, -1, false
	}

	key := c.key(gen, lat, lon, radiusKm)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("Nearby cache read failed", "key", key, "error", err)
		}
		return nil, gen, false
	}

	var results []geo.Nearby
	if err := json.Unmarshal(raw, &results); err != nil {
		c.log.Warn("Discarding undecodable cache entry", "key", key, "error", err)
		return nil, gen, false
	}
	return results, gen, true
}

// Set writes under gen while WATCHing the generation key, so an Invalidate
// that lands after the lookup discards the write.
func (c *Redis) Set(ctx context.Context, gen Generation, lat, lon, radiusKm float64, results []geo.Nearby) {
	if gen < 0 {
		return
	}

	raw, err := json.Marshal(results)
	if err != nil {
		c.log.Warn("Failed to encode nearby results", "error", err)
		return
	}

	key := c.key(gen, lat, lon, radiusKm)
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := c.generation(ctx, tx)
		if err != nil {
			return err
		}
		if current != gen {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, c.ttl)
			return nil
		})
		return err
	}, generationKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
		c.log.Debug("Skipping stale nearby results", "key", key)
	default:
		c.log.Warn("Nearby cache write failed", "key", key, "error", err)
	}
}

func (c *Redis) Invalidate(ctx context.Context) {
	if err := c.rdb.Incr(ctx, generationKey).Err(); err != nil {
		c.log.Warn("Nearby cache invalidation failed", "error", err)
	}
}

// Close closes the Redis connection
func (c *Redis) Close() error {
	return c.rdb.Close()
}

func (c *Redis) generation(ctx context.Context, r getter) (Generation, error) {
	gen, err := r.Get(ctx, generationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, err
	}
	return Generation(gen), nil
}

func (c *Redis) key(gen Generation, lat, lon, radiusKm float64) string {
	return fmt.Sprintf("%sg%d:%s", keyPrefix, gen, QueryKey(lat, lon, radiusKm))
}
