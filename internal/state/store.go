package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("state: not found")

type Store interface {
	Save(ctx context.Context, sessionID string, s AppState) error
	Load(ctx context.Context, sessionID string) (AppState, error)
}

// RedisStore keeps encoded snapshots under state:v1:<session> with a sliding TTL.
type RedisStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func redisKey(sessionID string) string { return "state:v1:" + sessionID }

func (r *RedisStore) Save(ctx context.Context, sessionID string, s AppState) error {
	if !ValidSessionID(sessionID) {
		return ErrInvalidSessionID
	}
	b, err := Encode(s)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, redisKey(sessionID), b, r.ttl).Err(); err != nil {
		return fmt.Errorf("state: redis set: %w", err)
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context, sessionID string) (AppState, error) {
	if !ValidSessionID(sessionID) {
		return AppState{}, ErrInvalidSessionID
	}
	b, err := r.rdb.GetEx(ctx, redisKey(sessionID), r.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return AppState{}, ErrNotFound
	}
	if err != nil {
		return AppState{}, fmt.Errorf("state: redis get: %w", err)
	}
	return Decode(b)
}

// MemoryStore keeps encoded snapshots in process. Entries do not expire.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string][]byte{}}
}

func (m *MemoryStore) Save(_ context.Context, sessionID string, s AppState) error {
	if !ValidSessionID(sessionID) {
		return ErrInvalidSessionID
	}
	b, err := Encode(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[sessionID] = b
	return nil
}

func (m *MemoryStore) Load(_ context.Context, sessionID string) (AppState, error) {
	if !ValidSessionID(sessionID) {
		return AppState{}, ErrInvalidSessionID
	}
	m.mu.RLock()
	b, ok := m.data[sessionID]
	m.mu.RUnlock()
	if !ok {
		return AppState{}, ErrNotFound
	}
	return Decode(b)
}
