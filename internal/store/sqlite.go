package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/platform-resolver/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS platform_cache (
	fingerprint TEXT PRIMARY KEY,
	result_set  TEXT NOT NULL,
	created_at  DATETIME NOT NULL,
	expires_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS resolution_log (
	id            TEXT PRIMARY KEY,
	fingerprint   TEXT NOT NULL,
	business_name TEXT NOT NULL,
	cached        INTEGER NOT NULL DEFAULT 0,
	resolved      TEXT NOT NULL,
	sources       TEXT NOT NULL,
	telemetry     TEXT NOT NULL,
	duration_ms   INTEGER NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_platform_cache_expires_at ON platform_cache(expires_at);
CREATE INDEX IF NOT EXISTS idx_resolution_log_created_at ON resolution_log(created_at);
CREATE INDEX IF NOT EXISTS idx_resolution_log_fingerprint ON resolution_log(fingerprint);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetCacheEntry(ctx context.Context, fingerprint string) (*model.CacheEntry, error) {
	var e model.CacheEntry
	var setJSON string

	err := s.db.QueryRowContext(ctx,
		`SELECT fingerprint, result_set, created_at, expires_at FROM platform_cache WHERE fingerprint = ?`,
		fingerprint,
	).Scan(&e.Fingerprint, &setJSON, &e.CreatedAt, &e.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cache entry")
	}
	if err := json.Unmarshal([]byte(setJSON), &e.ResultSet); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal result set")
	}
	return &e, nil
}

func (s *SQLiteStore) PutCacheEntry(ctx context.Context, entry *model.CacheEntry) error {
	setJSON, err := json.Marshal(entry.ResultSet)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result set")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO platform_cache (fingerprint, result_set, created_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(fingerprint) DO UPDATE SET result_set = excluded.result_set, created_at = excluded.created_at, expires_at = excluded.expires_at`,
		entry.Fingerprint, string(setJSON), entry.CreatedAt.UTC(), entry.ExpiresAt.UTC(),
	)
	return eris.Wrap(err, "sqlite: put cache entry")
}

func (s *SQLiteStore) ClearCacheEntries(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM platform_cache`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: clear cache")
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) DeleteExpiredCacheEntries(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM platform_cache WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired cache entries")
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) CountCacheEntries(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM platform_cache`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count cache entries")
}

func (s *SQLiteStore) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, eris.Wrapf(err, "sqlite: get setting %s", key)
	}
	return value, true, nil
}

func (s *SQLiteStore) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: set setting %s", key)
}

func (s *SQLiteStore) RecordOutcome(ctx context.Context, o *model.ResolutionOutcome) error {
	cols, err := encodeOutcome(o)
	if err != nil {
		return err
	}
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO resolution_log (id, fingerprint, business_name, cached, resolved, sources, telemetry, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.Fingerprint, o.BusinessName, o.Cached,
		string(cols.resolved), string(cols.sources), string(cols.telemetry),
		o.Duration.Milliseconds(), o.CreatedAt.UTC(),
	)
	return eris.Wrap(err, "sqlite: record outcome")
}

func (s *SQLiteStore) ListOutcomes(ctx context.Context, limit int) ([]model.ResolutionOutcome, error) {
	if limit <= 0 {
		limit = defaultOutcomeLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, fingerprint, business_name, cached, resolved, sources, telemetry, duration_ms, created_at
		 FROM resolution_log ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list outcomes")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.ResolutionOutcome
	for rows.Next() {
		var o model.ResolutionOutcome
		var resolved, sources, telemetry string
		var durationMS int64
		if err := rows.Scan(&o.ID, &o.Fingerprint, &o.BusinessName, &o.Cached,
			&resolved, &sources, &telemetry, &durationMS, &o.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan outcome")
		}
		cols := outcomeColumns{resolved: []byte(resolved), sources: []byte(sources), telemetry: []byte(telemetry)}
		if err := decodeOutcome(&o, cols, durationMS); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate outcomes")
}
