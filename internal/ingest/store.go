package ingest

import (
	"context"
	"sync"
	"time"
)

// CoordinationStore is the contract the governor and result cache need from
// the shared distributed store: membership sets for concurrency slots, and
// TTL-bound string values for slot markers and cached results.
//
// RedisStore is the production implementation. MemoryStore backs tests and
// single-process deployments where no cross-process coordination exists.
type CoordinationStore interface {
	SetAdd(ctx context.Context, key, member string) error
	SetRemove(ctx context.Context, key, member string) error
	SetCard(ctx context.Context, key string) (int64, error)
	SetMembers(ctx context.Context, key string) ([]string, error)

	SetValue(ctx context.Context, key, value string, ttl time.Duration) error
	GetValue(ctx context.Context, key string) (string, bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error

	Ping(ctx context.Context) error
}

// MemoryStore is an in-process CoordinationStore with lazy TTL expiry.
type MemoryStore struct {
	mu   sync.Mutex
	sets map[string]map[string]struct{}
	vals map[string]memoryValue
}

type memoryValue struct {
	data      string
	expiresAt time.Time // zero = no expiry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sets: make(map[string]map[string]struct{}),
		vals: make(map[string]memoryValue),
	}
}

func (m *MemoryStore) SetAdd(_ context.Context, key, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sets[key]
	if !ok {
		s = make(map[string]struct{})
		m.sets[key] = s
	}
	s[member] = struct{}{}
	return nil
}

func (m *MemoryStore) SetRemove(_ context.Context, key, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sets[key]; ok {
		delete(s, member)
		if len(s) == 0 {
			delete(m.sets, key)
		}
	}
	return nil
}

func (m *MemoryStore) SetCard(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.sets[key])), nil
}

func (m *MemoryStore) SetMembers(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sets[key]
	members := make([]string, 0, len(s))
	for member := range s {
		members = append(members, member)
	}
	return members, nil
}

func (m *MemoryStore) SetValue(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := memoryValue{data: value}
	if ttl > 0 {
		v.expiresAt = time.Now().Add(ttl)
	}
	m.vals[key] = v
	return nil
}

func (m *MemoryStore) GetValue(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vals[key]
	if !ok {
		return "", false, nil
	}
	if !v.expiresAt.IsZero() && time.Now().After(v.expiresAt) {
		delete(m.vals, key)
		return "", false, nil
	}
	return v.data, true, nil
}

func (m *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := m.GetValue(ctx, key)
	return ok, err
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vals, key)
	return nil
}

func (m *MemoryStore) Ping(_ context.Context) error { return nil }
