package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/platform-resolver/internal/cache"
)

type fakeCacheAdmin struct {
	cleared int64
	pruned  int64
	err     error
	enabled bool
}

func (f *fakeCacheAdmin) Clear(context.Context) (int64, error) { return f.cleared, f.err }
func (f *fakeCacheAdmin) Prune(context.Context) (int64, error) { return f.pruned, f.err }

func (f *fakeCacheAdmin) Status(context.Context) cache.Status {
	return cache.Status{Enabled: f.enabled, RetentionDays: 30, Backend: "memory", Entries: 4}
}

func (f *fakeCacheAdmin) SetEnabled(_ context.Context, enabled bool) error {
	if f.err != nil {
		return f.err
	}
	f.enabled = enabled
	return nil
}

func TestRunCacheClear(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, runCacheClear(context.Background(), &fakeCacheAdmin{cleared: 7}, &buf))
	assert.Equal(t, "cleared 7 cache entries\n", buf.String())

	err := runCacheClear(context.Background(), &fakeCacheAdmin{err: errors.New("db down")}, &buf)
	assert.EqualError(t, err, "db down")
}

func TestRunCachePrune(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, runCachePrune(context.Background(), &fakeCacheAdmin{pruned: 2}, &buf))
	assert.Equal(t, "pruned 2 expired cache entries\n", buf.String())
}

func TestRunCacheStatus(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, runCacheStatus(context.Background(), &fakeCacheAdmin{enabled: true}, &buf))

	var st cache.Status
	require.NoError(t, json.Unmarshal(buf.Bytes(), &st))
	assert.True(t, st.Enabled)
	assert.Equal(t, 30, st.RetentionDays)
	assert.Equal(t, "memory", st.Backend)
	assert.Equal(t, int64(4), st.Entries)
}

func TestRunCacheToggle(t *testing.T) {
	f := &fakeCacheAdmin{}
	var buf bytes.Buffer

	require.NoError(t, runCacheToggle(context.Background(), f, true, &buf))
	assert.True(t, f.enabled)
	assert.Equal(t, "caching enabled\n", buf.String())

	buf.Reset()
	require.NoError(t, runCacheToggle(context.Background(), f, false, &buf))
	assert.False(t, f.enabled)
	assert.Equal(t, "caching disabled\n", buf.String())

	f.err = errors.New("read only")
	assert.Error(t, runCacheToggle(context.Background(), f, true, &buf))
}
