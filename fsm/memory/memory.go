// Package memory provides an in-process fsm.Storage backend, sharded
// across a fixed set of mutexes to bound lock contention under concurrent
// dispatch.
package memory

import (
	"context"
	"hash/maphash"
	"sync"

	"github.com/hrygo/maxbot/chats"
	"github.com/hrygo/maxbot/fsm"
)

const shardCount = 32

type record struct {
	state string
	data  map[string]any
}

type shard struct {
	mu      sync.RWMutex
	records map[chats.StorageKey]*record
}

// Storage is a sharded in-memory fsm.Storage. The zero value is not
// usable; construct with New. Data is never persisted and is lost on
// process restart — intended for tests and single-process deployments.
type Storage struct {
	seed   maphash.Seed
	shards [shardCount]*shard
}

// New builds an empty Storage.
func New() *Storage {
	s := &Storage{seed: maphash.MakeSeed()}
	for i := range s.shards {
		s.shards[i] = &shard{records: make(map[chats.StorageKey]*record)}
	}
	return s
}

func (s *Storage) shardFor(key chats.StorageKey) *shard {
	var h maphash.Hash
	h.SetSeed(s.seed)
	_, _ = h.Write([]byte(key.String()))
	return s.shards[h.Sum64()%uint64(shardCount)]
}

func (s *Storage) GetState(_ context.Context, key chats.StorageKey) (string, error) {
	sh := s.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	r, ok := sh.records[key]
	if !ok {
		return "", nil
	}
	return r.state, nil
}

func (s *Storage) SetState(_ context.Context, key chats.StorageKey, state string) error {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	r := sh.records[key]
	if r == nil {
		r = &record{}
		sh.records[key] = r
	}
	r.state = state
	return nil
}

func (s *Storage) GetData(_ context.Context, key chats.StorageKey) (map[string]any, error) {
	sh := s.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	r, ok := sh.records[key]
	if !ok || r.data == nil {
		return map[string]any{}, nil
	}
	return cloneData(r.data), nil
}

func (s *Storage) SetData(_ context.Context, key chats.StorageKey, data map[string]any) error {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	r := sh.records[key]
	if r == nil {
		r = &record{}
		sh.records[key] = r
	}
	r.data = cloneData(data)
	return nil
}

func (s *Storage) UpdateData(_ context.Context, key chats.StorageKey, fn func(map[string]any) map[string]any) (map[string]any, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	r := sh.records[key]
	if r == nil {
		r = &record{data: map[string]any{}}
		sh.records[key] = r
	}
	if r.data == nil {
		r.data = map[string]any{}
	}
	updated := fn(cloneData(r.data))
	r.data = cloneData(updated)
	return cloneData(r.data), nil
}

func (s *Storage) Clear(_ context.Context, key chats.StorageKey) error {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.records, key)
	return nil
}

// Close is a no-op for the in-memory backend.
func (s *Storage) Close() error { return nil }

func cloneData(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

var _ fsm.Storage = (*Storage)(nil)
