package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/sweeney/okay-to-wake/internal/schedule"
)

// DefaultRedisKey holds the region when no key is configured.
const DefaultRedisKey = "okay-to-wake:eeprom"

// redisClient is the subset of *redis.Client used by RedisStore.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisStore keeps the region under a single Redis key, for devices that
// share a broker host instead of local flash.
type RedisStore struct {
	client  redisClient
	key     string
	timeout time.Duration
}

// NewRedisStore connects a RedisStore to addr.
func NewRedisStore(addr, key string) *RedisStore {
	return newRedisStore(redis.NewClient(&redis.Options{Addr: addr}), key)
}

func newRedisStore(client redisClient, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key, timeout: 2 * time.Second}
}

// ReadRecord reads the record. A missing key reads as erased.
func (s *RedisStore) ReadRecord() ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	region := erased()
	b, err := s.client.Get(ctx, s.key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return nil, fmt.Errorf("%w: redis get %s: %w", ErrRead, s.key, err)
	default:
		copy(region, b)
	}
	return region[:schedule.RecordSize], nil
}

// WriteRecord stores the record, padded to the region size.
func (s *RedisStore) WriteRecord(record []byte) error {
	if len(record) != schedule.RecordSize {
		return fmt.Errorf("%w: record is %d bytes, want %d", ErrWrite, len(record), schedule.RecordSize)
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	region := erased()
	copy(region, record)
	if err := s.client.Set(ctx, s.key, region, 0).Err(); err != nil {
		return fmt.Errorf("%w: redis set %s: %w", ErrWrite, s.key, err)
	}
	return nil
}
