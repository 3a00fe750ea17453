package cache

import (
	"context"
	"time"

	"github.com/sells-group/platform-resolver/internal/model"
	"github.com/sells-group/platform-resolver/internal/store"
)

// StoreBackend keeps entries in the SQL store.
type StoreBackend struct {
	st store.Store
}

// NewStoreBackend wraps st.
func NewStoreBackend(st store.Store) *StoreBackend {
	return &StoreBackend{st: st}
}

func (b *StoreBackend) Name() string { return "store" }

func (b *StoreBackend) Get(ctx context.Context, fingerprint string) (*model.CacheEntry, error) {
	return b.st.GetCacheEntry(ctx, fingerprint)
}

func (b *StoreBackend) Put(ctx context.Context, entry *model.CacheEntry) error {
	return b.st.PutCacheEntry(ctx, entry)
}

func (b *StoreBackend) Clear(ctx context.Context) (int64, error) {
	return b.st.ClearCacheEntries(ctx)
}

func (b *StoreBackend) Prune(ctx context.Context, now time.Time) (int64, error) {
	return b.st.DeleteExpiredCacheEntries(ctx, now)
}

func (b *StoreBackend) Count(ctx context.Context) (int64, error) {
	return b.st.CountCacheEntries(ctx)
}
