// Package cache stores resolved platform sets per identity fingerprint with
// a fixed retention window and a runtime on/off switch.
package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/platform-resolver/internal/model"
	"github.com/sells-group/platform-resolver/internal/store"
)

// DefaultRetention is how long an entry stays valid.
const DefaultRetention = 30 * 24 * time.Hour

// Backend persists cache entries. Get returns nil, nil on a miss.
type Backend interface {
	Name() string
	Get(ctx context.Context, fingerprint string) (*model.CacheEntry, error)
	Put(ctx context.Context, entry *model.CacheEntry) error
	Clear(ctx context.Context) (int64, error)
}

// Pruner is implemented by backends that keep expired rows until removed.
type Pruner interface {
	Prune(ctx context.Context, now time.Time) (int64, error)
}

// Counter is implemented by backends that can report their size.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// Settings reads and writes runtime settings. store.Store satisfies it.
type Settings interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Status summarizes the cache for admin endpoints.
type Status struct {
	Enabled       bool   `json:"enabled"`
	RetentionDays int    `json:"retentionDays"`
	Backend       string `json:"backend"`
	// Entries is -1 when the backend cannot count.
	Entries int64 `json:"entries"`
}

// Cache wraps a Backend with retention and the enabled toggle.
type Cache struct {
	backend        Backend
	settings       Settings
	retention      time.Duration
	defaultEnabled bool
	now            func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithRetention overrides DefaultRetention.
func WithRetention(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.retention = d
		}
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithDefaultEnabled sets the toggle value used when no setting is stored.
func WithDefaultEnabled(enabled bool) Option {
	return func(c *Cache) { c.defaultEnabled = enabled }
}

// New creates a Cache.
func New(backend Backend, settings Settings, opts ...Option) *Cache {
	c := &Cache{
		backend:        backend,
		settings:       settings,
		retention:      DefaultRetention,
		defaultEnabled: true,
		now:            time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Retention returns the configured retention window.
func (c *Cache) Retention() time.Duration { return c.retention }

// Enabled reads the toggle. Read failures fall back to the default.
func (c *Cache) Enabled(ctx context.Context) bool {
	if c.settings == nil {
		return c.defaultEnabled
	}
	v, ok, err := c.settings.GetSetting(ctx, store.SettingCachingEnabled)
	if err != nil {
		zap.L().Warn("cache: read toggle failed", zap.Error(err))
		return c.defaultEnabled
	}
	if !ok {
		return c.defaultEnabled
	}
	enabled, err := strconv.ParseBool(v)
	if err != nil {
		zap.L().Warn("cache: invalid toggle value", zap.String("value", v))
		return c.defaultEnabled
	}
	return enabled
}

// SetEnabled persists the toggle.
func (c *Cache) SetEnabled(ctx context.Context, enabled bool) error {
	if c.settings == nil {
		return eris.New("cache: no settings store configured")
	}
	return c.settings.SetSetting(ctx, store.SettingCachingEnabled, strconv.FormatBool(enabled))
}

// Get returns the live entry for fingerprint. Disabled caching, backend
// errors and expired entries are all misses.
func (c *Cache) Get(ctx context.Context, fingerprint string) (*model.CacheEntry, bool) {
	if !c.Enabled(ctx) {
		return nil, false
	}
	entry, err := c.backend.Get(ctx, fingerprint)
	if err != nil {
		zap.L().Warn("cache: get failed", zap.String("backend", c.backend.Name()), zap.Error(err))
		return nil, false
	}
	if entry == nil || entry.Expired(c.now()) {
		return nil, false
	}
	return entry, true
}

// Put writes a fresh entry for fingerprint, replacing any previous one.
// It is a no-op while caching is disabled.
func (c *Cache) Put(ctx context.Context, fingerprint string, set model.PlatformResultSet) {
	if !c.Enabled(ctx) {
		return
	}
	now := c.now().UTC()
	entry := &model.CacheEntry{
		Fingerprint: fingerprint,
		ResultSet:   set.Clone(),
		CreatedAt:   now,
		ExpiresAt:   now.Add(c.retention),
	}
	if err := c.backend.Put(ctx, entry); err != nil {
		zap.L().Warn("cache: put failed", zap.String("backend", c.backend.Name()), zap.Error(err))
	}
}

// Clear removes every entry and returns how many were removed.
func (c *Cache) Clear(ctx context.Context) (int64, error) {
	n, err := c.backend.Clear(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "cache: clear")
	}
	zap.L().Info("cache: cleared", zap.String("backend", c.backend.Name()), zap.Int64("entries", n))
	return n, nil
}

// Prune deletes expired entries where the backend keeps them around.
func (c *Cache) Prune(ctx context.Context) (int64, error) {
	p, ok := c.backend.(Pruner)
	if !ok {
		return 0, nil
	}
	n, err := p.Prune(ctx, c.now())
	return n, eris.Wrap(err, "cache: prune")
}

// Status reports the toggle, retention and entry count.
func (c *Cache) Status(ctx context.Context) Status {
	st := Status{
		Enabled:       c.Enabled(ctx),
		RetentionDays: int(c.retention / (24 * time.Hour)),
		Backend:       c.backend.Name(),
		Entries:       -1,
	}
	if counter, ok := c.backend.(Counter); ok {
		if n, err := counter.Count(ctx); err == nil {
			st.Entries = n
		}
	}
	return st
}
