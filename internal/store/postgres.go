package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/platform-resolver/internal/db"
	"github.com/sells-group/platform-resolver/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists the hot-path queries prepared on each new
// connection.
var preparedStatements = map[string]string{
	"get_cache_entry": `SELECT fingerprint, result_set, created_at, expires_at FROM platform_cache WHERE fingerprint = $1`,
	"put_cache_entry": `INSERT INTO platform_cache (fingerprint, result_set, created_at, expires_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (fingerprint) DO UPDATE SET result_set = EXCLUDED.result_set, created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at`,
	"get_setting": `SELECT value FROM settings WHERE key = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS platform_cache (
	fingerprint TEXT PRIMARY KEY,
	result_set  JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS resolution_log (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	fingerprint   TEXT NOT NULL,
	business_name TEXT NOT NULL,
	cached        BOOLEAN NOT NULL DEFAULT false,
	resolved      JSONB NOT NULL,
	sources       JSONB NOT NULL,
	telemetry     JSONB NOT NULL,
	duration_ms   BIGINT NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_platform_cache_expires_at ON platform_cache(expires_at);
CREATE INDEX IF NOT EXISTS idx_resolution_log_created_at ON resolution_log(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_resolution_log_fingerprint ON resolution_log(fingerprint);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetCacheEntry(ctx context.Context, fingerprint string) (*model.CacheEntry, error) {
	var e model.CacheEntry
	var setJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT fingerprint, result_set, created_at, expires_at FROM platform_cache WHERE fingerprint = $1`,
		fingerprint,
	).Scan(&e.Fingerprint, &setJSON, &e.CreatedAt, &e.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get cache entry")
	}
	if err := json.Unmarshal(setJSON, &e.ResultSet); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal result set")
	}
	return &e, nil
}

func (s *PostgresStore) PutCacheEntry(ctx context.Context, entry *model.CacheEntry) error {
	setJSON, err := json.Marshal(entry.ResultSet)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result set")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO platform_cache (fingerprint, result_set, created_at, expires_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (fingerprint) DO UPDATE SET result_set = EXCLUDED.result_set, created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at`,
		entry.Fingerprint, setJSON, entry.CreatedAt.UTC(), entry.ExpiresAt.UTC(),
	)
	return eris.Wrap(err, "postgres: put cache entry")
}

func (s *PostgresStore) ClearCacheEntries(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM platform_cache`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: clear cache")
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) DeleteExpiredCacheEntries(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM platform_cache WHERE expires_at <= $1`, now.UTC())
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired cache entries")
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) CountCacheEntries(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM platform_cache`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count cache entries")
}

func (s *PostgresStore) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, eris.Wrapf(err, "postgres: get setting %s", key)
	}
	return value, true, nil
}

func (s *PostgresStore) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value,
	)
	return eris.Wrapf(err, "postgres: set setting %s", key)
}

func (s *PostgresStore) RecordOutcome(ctx context.Context, o *model.ResolutionOutcome) error {
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
	_, err = s.pool.Exec(ctx,
		`INSERT INTO resolution_log (id, fingerprint, business_name, cached, resolved, sources, telemetry, duration_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		o.ID, o.Fingerprint, o.BusinessName, o.Cached,
		cols.resolved, cols.sources, cols.telemetry,
		o.Duration.Milliseconds(), o.CreatedAt.UTC(),
	)
	return eris.Wrap(err, "postgres: record outcome")
}

func (s *PostgresStore) ListOutcomes(ctx context.Context, limit int) ([]model.ResolutionOutcome, error) {
	if limit <= 0 {
		limit = defaultOutcomeLimit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, fingerprint, business_name, cached, resolved, sources, telemetry, duration_ms, created_at
		 FROM resolution_log ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list outcomes")
	}
	defer rows.Close()

	var out []model.ResolutionOutcome
	for rows.Next() {
		var o model.ResolutionOutcome
		var cols outcomeColumns
		var durationMS int64
		if err := rows.Scan(&o.ID, &o.Fingerprint, &o.BusinessName, &o.Cached,
			&cols.resolved, &cols.sources, &cols.telemetry, &durationMS, &o.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan outcome")
		}
		if err := decodeOutcome(&o, cols, durationMS); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate outcomes")
}
