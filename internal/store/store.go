// Package store persists cache entries, runtime settings and the
// resolution log in SQLite or Postgres.
package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/platform-resolver/internal/model"
)

// SettingCachingEnabled is the settings key holding the cache toggle.
const SettingCachingEnabled = "social_media_caching_enabled"

// Store defines the persistence interface for the resolver.
type Store interface {
	// Cache entries. GetCacheEntry returns nil, nil when the fingerprint has
	// no row; expired rows are returned as-is.
	GetCacheEntry(ctx context.Context, fingerprint string) (*model.CacheEntry, error)
	PutCacheEntry(ctx context.Context, entry *model.CacheEntry) error
	ClearCacheEntries(ctx context.Context) (int64, error)
	DeleteExpiredCacheEntries(ctx context.Context, now time.Time) (int64, error)
	CountCacheEntries(ctx context.Context) (int64, error)

	// Settings
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error

	// Resolution log
	RecordOutcome(ctx context.Context, outcome *model.ResolutionOutcome) error
	ListOutcomes(ctx context.Context, limit int) ([]model.ResolutionOutcome, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// Drivers accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects to the configured driver.
func Open(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	switch strings.ToLower(driver) {
	case DriverSQLite, "":
		return NewSQLite(dsn)
	case DriverPostgres, "postgresql":
		return NewPostgres(ctx, dsn, poolCfg)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

const defaultOutcomeLimit = 100

// outcomeColumns holds the JSON-encoded parts of a ResolutionOutcome.
type outcomeColumns struct {
	resolved  []byte
	sources   []byte
	telemetry []byte
}

func encodeOutcome(o *model.ResolutionOutcome) (outcomeColumns, error) {
	var c outcomeColumns
	var err error
	if c.resolved, err = json.Marshal(o.Resolved); err != nil {
		return c, eris.Wrap(err, "store: marshal resolved")
	}
	if c.sources, err = json.Marshal(o.Sources); err != nil {
		return c, eris.Wrap(err, "store: marshal sources")
	}
	if c.telemetry, err = json.Marshal(o.Telemetry); err != nil {
		return c, eris.Wrap(err, "store: marshal telemetry")
	}
	return c, nil
}

func decodeOutcome(o *model.ResolutionOutcome, c outcomeColumns, durationMS int64) error {
	if err := json.Unmarshal(c.resolved, &o.Resolved); err != nil {
		return eris.Wrap(err, "store: unmarshal resolved")
	}
	if err := json.Unmarshal(c.sources, &o.Sources); err != nil {
		return eris.Wrap(err, "store: unmarshal sources")
	}
	if err := json.Unmarshal(c.telemetry, &o.Telemetry); err != nil {
		return eris.Wrap(err, "store: unmarshal telemetry")
	}
	o.Duration = time.Duration(durationMS) * time.Millisecond
	return nil
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
