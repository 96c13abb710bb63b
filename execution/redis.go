package execution

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/redis"
	"github.com/kbukum/mediaflow/resilience"
)

// RedisStore shares executions between engine instances.
//
// Keys, under the client's prefix:
//
//	<prefix>:exec:<id>   encoded execution
//	<prefix>:lock:<key>  idempotency lock holding the owning execution id
//	<prefix>:active      set of non-terminal execution ids
//
// Updates use WATCH/MULTI so a write only lands on the version it read.
type RedisStore struct {
	rdb    *goredis.Client
	prefix string
	opts   Options
}

// NewRedisStore creates a store on an open client.
func NewRedisStore(client *redis.Client, opts Options) *RedisStore {
	opts.applyDefaults()
	return &RedisStore{rdb: client.Unwrap(), prefix: client.KeyPrefix(), opts: opts}
}

func (s *RedisStore) execKey(id string) string  { return s.prefix + ":exec:" + id }
func (s *RedisStore) lockKey(key string) string { return s.prefix + ":lock:" + key }
func (s *RedisStore) activeKey() string         { return s.prefix + ":active" }

// createScript stores the execution and registers it as active in one
// step. A failed SADD removes the record again, so a caller never sees a
// half-created execution.
//
// KEYS: exec, active. ARGV: data, ttl ms (0 = none), track ("1"/"0"), id.
var createScript = goredis.NewScript(`
local ok
if tonumber(ARGV[2]) > 0 then
  ok = redis.call('SET', KEYS[1], ARGV[1], 'NX', 'PX', ARGV[2])
else
  ok = redis.call('SET', KEYS[1], ARGV[1], 'NX')
end
if not ok then
  return 0
end
if ARGV[3] == '1' then
  local r = redis.pcall('SADD', KEYS[2], ARGV[4])
  if type(r) == 'table' and r.err then
    redis.call('DEL', KEYS[1])
    return redis.error_reply(r.err)
  end
end
return 1
`)

// releaseScript deletes a lock only while ARGV[1] still owns it.
var releaseScript = goredis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// Create implements Store.
func (s *RedisStore) Create(ctx context.Context, e *Execution) error {
	data, err := encode(e)
	if err != nil {
		return err
	}

	key := e.Input.IdempotencyKey()
	track := !e.Status.Terminal()
	if track {
		if err := s.claim(ctx, key, e.ID); err != nil {
			return err
		}
	}

	var ttl time.Duration
	flag := "1"
	if !track {
		ttl, flag = s.opts.TTL, "0"
	}
	created, err := createScript.Run(ctx, s.rdb,
		[]string{s.execKey(e.ID), s.activeKey()}, data, ttl.Milliseconds(), flag, e.ID).Int()
	if err == nil && created == 1 {
		return nil
	}
	if track {
		// Best effort: a lock left behind here is reclaimed by the next claim.
		_ = s.release(ctx, key, e.ID)
	}
	if err != nil {
		return errors.StorageError("create", e.ID, err)
	}
	return errors.Conflict("execution " + e.ID + " already exists")
}

// claim takes the idempotency lock for key. A lock whose owner is missing
// or already terminal is left over from a failed create and is taken over.
func (s *RedisStore) claim(ctx context.Context, key, id string) error {
	lock := s.lockKey(key)
	for range 3 {
		claimed, err := s.rdb.SetNX(ctx, lock, id, s.opts.LockTTL).Result()
		if err != nil {
			return errors.StorageError("lock", key, err)
		}
		if claimed {
			return nil
		}

		owner, err := s.rdb.Get(ctx, lock).Result()
		if stderrors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			return errors.StorageError("lock", key, err)
		}
		stale, err := s.orphaned(ctx, owner)
		if err != nil {
			return err
		}
		if !stale {
			return errors.DuplicateExecution(key, owner)
		}
		if err := s.release(ctx, key, owner); err != nil {
			return err
		}
	}
	return errors.Conflict("idempotency lock for " + key + " is contended")
}

// orphaned reports whether the lock owner no longer runs.
func (s *RedisStore) orphaned(ctx context.Context, owner string) (bool, error) {
	raw, err := s.rdb.Get(ctx, s.execKey(owner)).Bytes()
	if stderrors.Is(err, goredis.Nil) {
		return true, nil
	}
	if err != nil {
		return false, errors.StorageError("get", owner, err)
	}
	e, err := decode(raw)
	if err != nil {
		return false, err
	}
	return e.Status.Terminal(), nil
}

func (s *RedisStore) release(ctx context.Context, key, owner string) error {
	if err := releaseScript.Run(ctx, s.rdb, []string{s.lockKey(key)}, owner).Err(); err != nil {
		return errors.StorageError("unlock", key, err)
	}
	return nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, id string) (*Execution, error) {
	raw, err := s.rdb.Get(ctx, s.execKey(id)).Bytes()
	if stderrors.Is(err, goredis.Nil) {
		return nil, errors.NotFound("execution", id)
	}
	if err != nil {
		return nil, errors.StorageError("get", id, err)
	}
	return decode(raw)
}

// Update implements Store.
func (s *RedisStore) Update(ctx context.Context, id string, fn UpdateFunc) (*Execution, error) {
	return resilience.Retry(ctx, s.opts.conflictRetry(), func() (*Execution, error) {
		return s.update(ctx, id, fn)
	})
}

func (s *RedisStore) update(ctx context.Context, id string, fn UpdateFunc) (*Execution, error) {
	var result *Execution
	key := s.execKey(id)

	err := s.rdb.Watch(ctx, func(tx *goredis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if stderrors.Is(err, goredis.Nil) {
			return errors.NotFound("execution", id)
		}
		if err != nil {
			return errors.StorageError("get", id, err)
		}

		m, err := apply(raw, fn, s.opts.Now())
		if err != nil {
			return err
		}
		result = m.exec
		if m.unchanged {
			return nil
		}

		lock := s.lockKey(m.exec.Input.IdempotencyKey())
		var ownsLock bool
		if m.terminated {
			owner, err := tx.Get(ctx, lock).Result()
			if err != nil && !stderrors.Is(err, goredis.Nil) {
				return errors.StorageError("lock", lock, err)
			}
			ownsLock = owner == id
		}

		_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
			ttl := time.Duration(0)
			if m.exec.Status.Terminal() {
				ttl = s.opts.TTL
			}
			p.Set(ctx, key, m.data, ttl)
			if m.terminated {
				p.SRem(ctx, s.activeKey(), id)
				if ownsLock {
					p.Del(ctx, lock)
				}
			}
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return result, nil
	case stderrors.Is(err, goredis.TxFailedErr):
		return nil, errors.Conflict("execution " + id + " changed concurrently")
	default:
		if _, ok := errors.AsAppError(err); ok {
			return nil, err
		}
		return nil, errors.StorageError("update", id, fmt.Errorf("redis transaction: %w", err))
	}
}

// ListActive implements Store.
func (s *RedisStore) ListActive(ctx context.Context) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, s.activeKey()).Result()
	if err != nil {
		return nil, errors.StorageError("list", s.activeKey(), err)
	}
	slices.Sort(ids)
	return ids, nil
}

var _ Store = (*RedisStore)(nil)
