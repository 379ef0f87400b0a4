package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	taskMetaPrefix  = "task-meta::"
	groupMetaPrefix = "group-meta::"
)

// Backend persists task and group state so it survives beyond the in-memory
// handles and can be read by the progress reconciler.
type Backend interface {
	StoreMeta(ctx context.Context, meta TaskMeta) error
	GetMeta(ctx context.Context, taskID string) (TaskMeta, error)
	SaveGroup(ctx context.Context, groupID string, taskIDs []string) error
	RestoreGroup(ctx context.Context, groupID string) ([]string, error)
}

type redisBackend struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBackend stores task/group records as JSON values in Redis with the
// given expiry. Expired records surface as ErrNotFound, which the reconciler
// treats as "handle no longer resolvable".
func NewRedisBackend(client *redis.Client, ttl time.Duration) Backend {
	return &redisBackend{client: client, ttl: ttl}
}

func (b *redisBackend) StoreMeta(ctx context.Context, meta TaskMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return b.client.Set(ctx, taskMetaPrefix+meta.ID, data, b.ttl).Err()
}

func (b *redisBackend) GetMeta(ctx context.Context, taskID string) (TaskMeta, error) {
	data, err := b.client.Get(ctx, taskMetaPrefix+taskID).Result()
	if errors.Is(err, redis.Nil) {
		return TaskMeta{}, ErrNotFound
	}
	if err != nil {
		return TaskMeta{}, err
	}
	var meta TaskMeta
	err = json.Unmarshal([]byte(data), &meta)
	return meta, err
}

func (b *redisBackend) SaveGroup(ctx context.Context, groupID string, taskIDs []string) error {
	data, err := json.Marshal(taskIDs)
	if err != nil {
		return err
	}
	return b.client.Set(ctx, groupMetaPrefix+groupID, data, b.ttl).Err()
}

func (b *redisBackend) RestoreGroup(ctx context.Context, groupID string) ([]string, error) {
	data, err := b.client.Get(ctx, groupMetaPrefix+groupID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	err = json.Unmarshal([]byte(data), &ids)
	return ids, err
}

type memoryBackend struct {
	mu     sync.RWMutex
	tasks  map[string]TaskMeta
	groups map[string][]string
}

// NewMemoryBackend keeps task/group state in process memory. Intended for
// tests and single-node embedded runs; records never expire.
func NewMemoryBackend() Backend {
	return &memoryBackend{
		tasks:  make(map[string]TaskMeta),
		groups: make(map[string][]string),
	}
}

func (b *memoryBackend) StoreMeta(_ context.Context, meta TaskMeta) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tasks[meta.ID] = meta
	return nil
}

func (b *memoryBackend) GetMeta(_ context.Context, taskID string) (TaskMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	meta, ok := b.tasks[taskID]
	if !ok {
		return TaskMeta{}, ErrNotFound
	}
	return meta, nil
}

func (b *memoryBackend) SaveGroup(_ context.Context, groupID string, taskIDs []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.groups[groupID] = append([]string(nil), taskIDs...)
	return nil
}

func (b *memoryBackend) RestoreGroup(_ context.Context, groupID string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids, ok := b.groups[groupID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]string(nil), ids...), nil
}
