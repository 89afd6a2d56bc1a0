package cache

import (
	"container/list"
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryBackend keeps entries in process memory. With a positive capacity
// the least recently used key is evicted when a new key would exceed it.
type MemoryBackend struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List // front is most recently used
}

type memoryItem struct {
	key   string
	entry *Entry
}

// NewMemoryBackend creates an in-memory backend. capacity <= 0 means unbounded.
func NewMemoryBackend(capacity int) *MemoryBackend {
	return &MemoryBackend{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (m *MemoryBackend) Load(_ context.Context, key string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.items[key]
	if !ok {
		return nil, nil
	}
	m.order.MoveToFront(el)
	return el.Value.(*memoryItem).entry.Clone(), nil
}

func (m *MemoryBackend) Save(_ context.Context, key string, e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if el, ok := m.items[key]; ok {
		el.Value.(*memoryItem).entry = e.Clone()
		m.order.MoveToFront(el)
		return nil
	}
	if m.capacity > 0 && m.order.Len() >= m.capacity {
		m.evict()
	}
	m.items[key] = m.order.PushFront(&memoryItem{key: key, entry: e.Clone()})
	return nil
}

func (m *MemoryBackend) Touch(_ context.Context, key string, storedAt time.Time, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.items[key]
	if !ok {
		return ErrCacheMiss
	}
	it := el.Value.(*memoryItem)
	it.entry.StoredAt = storedAt
	it.entry.TTL = ttl
	m.order.MoveToFront(el)
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if el, ok := m.items[key]; ok {
		m.order.Remove(el)
		delete(m.items, key)
	}
	return nil
}

func (m *MemoryBackend) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.items {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len returns the number of stored entries.
func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

func (m *MemoryBackend) Close() error { return nil }

// evict drops the least recently used key. Callers hold m.mu.
func (m *MemoryBackend) evict() {
	el := m.order.Back()
	if el == nil {
		return
	}
	m.order.Remove(el)
	delete(m.items, el.Value.(*memoryItem).key)
}

var _ Backend = (*MemoryBackend)(nil)
