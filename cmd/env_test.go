package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/platform-resolver/internal/config"
	"github.com/sells-group/platform-resolver/internal/resilience"
)

func withConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	t.Cleanup(func() { cfg = prev })
	cfg = c
}

func TestInferenceBackends_Order(t *testing.T) {
	c := &config.Config{}
	c.Perplexity.Key = "p"
	c.OpenAI.Key = "o"
	c.Anthropic.Key = "a"
	withConfig(t, c)

	var names []string
	for _, b := range inferenceBackends() {
		names = append(names, b.Name())
	}
	assert.Equal(t, []string{"openai", "anthropic", "perplexity"}, names)
}

func TestInferenceBackends_NoKeys(t *testing.T) {
	withConfig(t, &config.Config{})
	assert.Empty(t, inferenceBackends())
}

func TestRenderedFetchers(t *testing.T) {
	breakers := resilience.NewServiceBreakers(resilience.DefaultCircuitBreakerConfig())

	withConfig(t, &config.Config{})
	assert.Empty(t, renderedFetchers(breakers))

	c := &config.Config{}
	c.Jina.Enabled = true
	c.Firecrawl.Key = "fc"
	withConfig(t, c)

	fetchers := renderedFetchers(breakers)
	require.Len(t, fetchers, 2)
	assert.Equal(t, "jina", fetchers[0].Name())
	assert.Equal(t, "firecrawl", fetchers[1].Name())
}

func TestNewGoogleClient(t *testing.T) {
	withConfig(t, &config.Config{})
	assert.Nil(t, newGoogleClient())

	c := &config.Config{}
	c.Google.Key = "k"
	withConfig(t, c)
	assert.NotNil(t, newGoogleClient())
}

func TestInitResolver_SQLiteMemoryCache(t *testing.T) {
	c := &config.Config{}
	c.Server.Port = 8080
	c.Server.BatchLimit = 50
	c.Store.Driver = "sqlite"
	c.Store.DatabaseURL = filepath.Join(t.TempDir(), "resolver.db")
	c.Cache.Backend = "memory"
	c.Cache.Enabled = true
	c.Cache.Retention = time.Hour
	c.Audit.Buffer = 8
	c.Resolver = config.ResolverConfig{
		ScrapeTimeout:   time.Second,
		SearchTimeout:   time.Second,
		VerifyTimeout:   time.Second,
		AITimeout:       time.Second,
		RenderedTimeout: time.Second,
		Budget:          time.Second,
		MaxConcurrency:  2,
	}
	c.Circuit.FailureThreshold = 5
	c.Circuit.ResetTimeout = time.Second
	withConfig(t, c)

	env, err := initResolver(context.Background())
	require.NoError(t, err)
	defer env.Close()

	assert.NotNil(t, env.Store)
	assert.NotNil(t, env.Cache)
	assert.NotNil(t, env.Resolver)
	assert.NotNil(t, env.Costs)
	assert.Nil(t, env.redis)
}

func TestInitResolver_InvalidConfig(t *testing.T) {
	withConfig(t, &config.Config{})
	_, err := initResolver(context.Background())
	assert.Error(t, err)
}
