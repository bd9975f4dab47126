package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is returned (wrapped) whenever a Redis command fails.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrSessionNotFound is returned by Get when the session is not in the user's set.
var ErrSessionNotFound = errors.New("session not found")

const (
	// DefaultPrefix is the key namespace for per-user session hashes.
	DefaultPrefix = "user_sessions"
	// DefaultTTL is the shared lifetime of a user's session set.
	DefaultTTL = 24 * time.Hour
)

// Refreshes the set TTL only when the session field exists, so a concurrent
// removal can never be followed by a refresh of a set the caller no longer
// belongs to.
const touchIfPresentScript = `
if redis.call("HEXISTS", KEYS[1], ARGV[1]) == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
  return 1
end
return 0
`

var touchIfPresentLua = redis.NewScript(touchIfPresentScript)

const replaceScript = `
if redis.call("HEXISTS", KEYS[1], ARGV[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], ARGV[1], ARGV[2])
redis.call("PEXPIRE", KEYS[1], ARGV[3])
return 1
`

var replaceLua = redis.NewScript(replaceScript)

const removeScript = `
local removed = redis.call("HDEL", KEYS[1], ARGV[1])
if redis.call("EXISTS", KEYS[1]) == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return removed
`

var removeLua = redis.NewScript(removeScript)

// Store is the Redis-backed registry of active sessions per user.
//
// Each user owns one hash, keyed "<prefix>:<userID>", mapping session IDs to
// JSON encoded [Record] values. A single TTL covers the whole hash and is
// reset by every write and successful validation, so activity on any device
// keeps all of the user's sessions alive.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewStore creates a session [Store] backed by the given Redis client.
// Empty prefix and non-positive ttl fall back to [DefaultPrefix] and [DefaultTTL].
func NewStore(rdb redis.UniversalClient, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		redis:  rdb,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Key returns the Redis key holding userID's session set.
func (s *Store) Key(userID string) string {
	return s.prefix + ":" + userID
}

// Lifetime returns the TTL applied on every refresh.
func (s *Store) Lifetime() time.Duration {
	return s.ttl
}

// Put upserts one session into the user's set and resets the set TTL.
//
//	Performance: 1 MULTI/EXEC (HSET + PEXPIRE).
func (s *Store) Put(ctx context.Context, userID, sessionID string, rec Record) error {
	data, err := Encode(rec)
	if err != nil {
		return err
	}

	key := s.Key(userID)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, sessionID, data)
		pipe.PExpire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Replace overwrites an existing session record and resets the set TTL.
// It reports false without writing when the session is not in the set.
func (s *Store) Replace(ctx context.Context, userID, sessionID string, rec Record) (bool, error) {
	data, err := Encode(rec)
	if err != nil {
		return false, err
	}

	n, err := replaceLua.Run(ctx, s.redis, []string{s.Key(userID)}, sessionID, data, s.ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n == 1, nil
}

// Remove deletes one session from the user's set. Removing an absent session
// is not an error. Remaining sessions get their shared TTL refreshed.
func (s *Store) Remove(ctx context.Context, userID, sessionID string) error {
	if err := removeLua.Run(ctx, s.redis, []string{s.Key(userID)}, sessionID, s.ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// SessionIDs returns every session ID recorded for the user. The result is
// empty, not nil, when the set is missing or expired.
func (s *Store) SessionIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.redis.HKeys(ctx, s.Key(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// Touch resets the set TTL without altering its contents. It is a no-op when
// the set does not exist.
func (s *Store) Touch(ctx context.Context, userID string) error {
	if err := s.redis.PExpire(ctx, s.Key(userID), s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// TouchIfPresent atomically checks that sessionID belongs to the user's set
// and, if so, resets the set TTL.
//
//	Performance: 1 EVALSHA.
func (s *Store) TouchIfPresent(ctx context.Context, userID, sessionID string) (bool, error) {
	n, err := touchIfPresentLua.Run(ctx, s.redis, []string{s.Key(userID)}, sessionID, s.ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n == 1, nil
}

// Get fetches one session record without touching the TTL.
func (s *Store) Get(ctx context.Context, userID, sessionID string) (*Record, error) {
	data, err := s.redis.HGet(ctx, s.Key(userID), sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	rec, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Records returns every decodable record in the user's set. Corrupt entries
// are skipped and reported through the second return value.
func (s *Store) Records(ctx context.Context, userID string) (map[string]Record, int, error) {
	raw, err := s.redis.HGetAll(ctx, s.Key(userID)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	out := make(map[string]Record, len(raw))
	corrupt := 0
	for sid, value := range raw {
		rec, err := Decode([]byte(value))
		if err != nil {
			corrupt++
			continue
		}
		out[sid] = rec
	}
	return out, corrupt, nil
}

// Clear deletes the user's whole session set.
func (s *Store) Clear(ctx context.Context, userID string) error {
	if err := s.redis.Del(ctx, s.Key(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// TTL returns the remaining lifetime of the user's set, or a non-positive
// duration when the set does not exist.
func (s *Store) TTL(ctx context.Context, userID string) (time.Duration, error) {
	d, err := s.redis.PTTL(ctx, s.Key(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return d, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
