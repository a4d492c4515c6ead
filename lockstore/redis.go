package lockstore

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/cachekit/internal/util"
)

const scanBatch = 100

// DefaultRedisTTL bounds how long a marker survives a crashed writer.
const DefaultRedisTTL = 30 * time.Second

// RedisStore shares markers across processes using the same Redis.
// Markers carry a TTL so a writer that dies mid-write cannot wedge a key
// forever; cachekit's forced unlock usually clears them much sooner.
type RedisStore struct {
	rdb   redis.UniversalClient
	ns    string
	ttl   time.Duration
	owner string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed marker store with DefaultRedisTTL.
func NewRedisStore(client redis.UniversalClient, namespace string) *RedisStore {
	return NewRedisStoreWithTTL(client, namespace, DefaultRedisTTL)
}

// NewRedisStoreWithTTL creates a Redis-backed marker store.
// If ttl <= 0, markers do not expire.
func NewRedisStoreWithTTL(client redis.UniversalClient, namespace string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		rdb:   client,
		ns:    namespace,
		ttl:   ttl,
		owner: strconv.Itoa(os.Getpid()),
	}
}

func (s *RedisStore) key(k string) string { return "lock:" + s.ns + ":" + k }

// Lock sets the marker, refreshing its TTL when it already exists.
// The value records the locking process for debugging only.
func (s *RedisStore) Lock(ctx context.Context, key string) error {
	ttl := s.ttl
	if ttl < 0 {
		ttl = 0
	}
	return s.rdb.Set(ctx, s.key(key), s.owner, ttl).Err()
}

func (s *RedisStore) Unlock(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.key(key)).Err()
}

func (s *RedisStore) IsLocked(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// LockedUnder scans the marker keyspace for prefix and everything below it.
func (s *RedisStore) LockedUnder(ctx context.Context, prefix string) ([]string, error) {
	base := s.key("")
	pattern := util.EscapeGlob(base+prefix) + "*"

	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := s.rdb.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range batch {
			if k = strings.TrimPrefix(k, base); util.UnderPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

// Cleanup is not applicable (Redis expires markers itself).
func (s *RedisStore) Cleanup(time.Duration) {}

// Close is a no-op; the client belongs to the caller.
func (s *RedisStore) Close(context.Context) error { return nil }
