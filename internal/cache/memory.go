package cache

import (
	"context"
	"sync"
	"time"

	"github.com/sells-group/platform-resolver/internal/model"
)

// MemoryBackend keeps entries in process memory.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]*model.CacheEntry
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]*model.CacheEntry)}
}

func (b *MemoryBackend) Name() string { return "memory" }

func (b *MemoryBackend) Get(_ context.Context, fingerprint string) (*model.CacheEntry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.entries[fingerprint]
	if !ok {
		return nil, nil
	}
	cp := *e
	cp.ResultSet = e.ResultSet.Clone()
	return &cp, nil
}

func (b *MemoryBackend) Put(_ context.Context, entry *model.CacheEntry) error {
	cp := *entry
	cp.ResultSet = entry.ResultSet.Clone()
	b.mu.Lock()
	b.entries[entry.Fingerprint] = &cp
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) Clear(_ context.Context) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := int64(len(b.entries))
	b.entries = make(map[string]*model.CacheEntry)
	return n, nil
}

func (b *MemoryBackend) Prune(_ context.Context, now time.Time) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var n int64
	for fp, e := range b.entries {
		if e.Expired(now) {
			delete(b.entries, fp)
			n++
		}
	}
	return n, nil
}

func (b *MemoryBackend) Count(_ context.Context) (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return int64(len(b.entries)), nil
}

// MemorySettings is an in-process Settings implementation.
type MemorySettings struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemorySettings creates an empty MemorySettings.
func NewMemorySettings() *MemorySettings {
	return &MemorySettings{values: make(map[string]string)}
}

func (s *MemorySettings) GetSetting(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemorySettings) SetSetting(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
	return nil
}
