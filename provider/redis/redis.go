// Package redis stores cache entries in Redis. Lock markers go through
// lockstore.RedisStore, so writers in different processes see each other.
package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/cachekit/internal/util"
	"github.com/unkn0wn-root/cachekit/lockstore"
	pr "github.com/unkn0wn-root/cachekit/provider"
)

var ErrNilClient = errors.New("redis provider: nil client")

const scanBatch = 100

type Redis struct {
	rdb         goredis.UniversalClient
	locks       *lockstore.RedisStore
	closeClient bool
}

var _ pr.Provider = (*Redis)(nil)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this provider exclusively owns the client

	LockNamespace string        // marker keyspace: lock:<ns>:<key>; "" => "cachekit"
	LockTTL       time.Duration // 0 => lockstore.DefaultRedisTTL
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	ns := cfg.LockNamespace
	if ns == "" {
		ns = "cachekit"
	}
	ttl := cfg.LockTTL
	if ttl == 0 {
		ttl = lockstore.DefaultRedisTTL
	}
	return &Redis{
		rdb:         cfg.Client,
		locks:       lockstore.NewRedisStoreWithTTL(cfg.Client, ns, ttl),
		closeClient: cfg.CloseClient,
	}, nil
}

func (p *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := p.rdb.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

func (p *Redis) Set(ctx context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = 0 // treat non-positive TTLs as "no expiry" per provider contract
	}

	err := p.rdb.Set(ctx, key, value, ttl).Err()
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *Redis) Del(ctx context.Context, key string) error {
	return p.rdb.Del(ctx, key).Err()
}

// Clear deletes prefix itself and everything under "prefix/" using SCAN,
// which does not block the server the way KEYS would. Markers live in their
// own keyspace and are not touched.
func (p *Redis) Clear(ctx context.Context, prefix string) error {
	if err := p.rdb.Del(ctx, prefix).Err(); err != nil {
		return err
	}
	pattern := util.EscapeGlob(strings.TrimSuffix(prefix, "/")) + "/*"

	var cursor uint64
	for {
		keys, next, err := p.rdb.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := p.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (p *Redis) Lock(ctx context.Context, key string) error   { return p.locks.Lock(ctx, key) }
func (p *Redis) Unlock(ctx context.Context, key string) error { return p.locks.Unlock(ctx, key) }
func (p *Redis) IsLocked(ctx context.Context, key string) (bool, error) {
	return p.locks.IsLocked(ctx, key)
}
func (p *Redis) LockedUnder(ctx context.Context, prefix string) ([]string, error) {
	return p.locks.LockedUnder(ctx, prefix)
}

// Close releases the underlying redis client only when this provider owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (p *Redis) Close(ctx context.Context) error {
	_ = p.locks.Close(ctx)
	if p.closeClient {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
