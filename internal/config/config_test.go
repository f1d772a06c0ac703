package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanehull/cs2news/internal/config"
	"github.com/shanehull/cs2news/internal/extract"
	"github.com/shanehull/cs2news/internal/history"
	"github.com/shanehull/cs2news/internal/types"
)

const testWebhook = "https://discord.com/api/webhooks/1/abc"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_MissingWebhook(t *testing.T) {
	t.Setenv("DISCORD_WEBHOOK_URL", "")
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))

	_, err := config.Load("")
	require.Error(t, err)
	assert.True(t, config.IsConfigError(err))

	var cerr *config.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "DISCORD_WEBHOOK_URL", cerr.Field)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	t.Setenv("DISCORD_WEBHOOK_URL", testWebhook)

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, testWebhook, cfg.WebhookURL)
	assert.Equal(t, config.BackendFile, cfg.State.Backend)
	assert.Equal(t, "last_sent.txt", cfg.State.Path)
	assert.Equal(t, history.PolicyAppend, cfg.State.Policy)
	assert.Equal(t, history.DefaultKeep, cfg.State.Keep)
	assert.Equal(t, extract.DefaultMaxAttempts, cfg.Extract.MaxAttempts)
	assert.Equal(t, extract.DefaultRetryDelay, cfg.Extract.RetryDelay)

	sources, err := cfg.ExtractSources()
	require.NoError(t, err)
	assert.Equal(t, extract.DefaultSources(), sources)
}

func TestLoad_EnvFile(t *testing.T) {
	envFile := writeFile(t, "test.env", "DISCORD_WEBHOOK_URL="+testWebhook+"\nCS2NEWS_KEEP=5\n")
	t.Setenv("ENV_FILE", envFile)
	// godotenv never overrides variables that are already set.
	for _, name := range []string{"DISCORD_WEBHOOK_URL", "CS2NEWS_KEEP"} {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, testWebhook, cfg.WebhookURL)
	assert.Equal(t, 5, cfg.State.Keep)
}

func TestLoad_YAMLWithEnvOverride(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	t.Setenv("DISCORD_WEBHOOK_URL", testWebhook)
	t.Setenv("CS2NEWS_RETENTION", "single")

	path := writeFile(t, "cs2news.yml", `
log_level: debug
parallel: true
state:
  path: /var/lib/cs2news/state.txt
  policy: append
  keep: 50
extract:
  max_attempts: 5
  retry_delay: 1s
sources:
  - name: patches
    url: https://example.com/updates
    category: mise_a_jour
    timeout: 30s
    strategies:
      - name: simple
        block: article
        title: h2
        bullets: li
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Parallel)
	assert.Equal(t, history.PolicySingle, cfg.State.Policy)
	assert.Equal(t, 50, cfg.State.Keep)
	assert.Equal(t, 5, cfg.Extract.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Extract.RetryDelay)

	sources, err := cfg.ExtractSources()
	require.NoError(t, err)
	require.Len(t, sources, 1)

	src := sources[0]
	assert.Equal(t, "patches", src.Name)
	assert.Equal(t, types.CategoryUpdate, src.Category)
	assert.Equal(t, extract.RenderHTTP, src.Render)
	assert.Equal(t, 30*time.Second, src.Timeout)
	require.Len(t, src.Strategies, 1)
	assert.Equal(t, "li", src.Strategies[0].Bullets)
}

func TestLoad_BadEnvValue(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	t.Setenv("DISCORD_WEBHOOK_URL", testWebhook)
	t.Setenv("CS2NEWS_KEEP", "many")

	_, err := config.Load("")
	require.Error(t, err)
	assert.True(t, config.IsConfigError(err))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	t.Setenv("DISCORD_WEBHOOK_URL", testWebhook)

	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
	assert.False(t, config.IsConfigError(err))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*config.Config)
		field  string
	}{
		{
			name:   "non-http webhook",
			modify: func(c *config.Config) { c.WebhookURL = "discord://hook" },
			field:  "DISCORD_WEBHOOK_URL",
		},
		{
			name:   "unknown backend",
			modify: func(c *config.Config) { c.State.Backend = "etcd" },
			field:  "state.backend",
		},
		{
			name:   "redis without address",
			modify: func(c *config.Config) { c.State.Backend = config.BackendRedis },
			field:  "state.redis_addr",
		},
		{
			name:   "unknown policy",
			modify: func(c *config.Config) { c.State.Policy = "forever" },
			field:  "state.policy",
		},
		{
			name:   "zero attempts",
			modify: func(c *config.Config) { c.Extract.MaxAttempts = 0 },
			field:  "extract.max_attempts",
		},
		{
			name: "unknown category",
			modify: func(c *config.Config) {
				c.Sources = []config.SourceConfig{{URL: "https://example.com", Category: "rumour"}}
			},
			field: "sources[0].category",
		},
		{
			name: "browser without wait selector",
			modify: func(c *config.Config) {
				c.Sources = []config.SourceConfig{{URL: "https://example.com", Category: "update", Render: extract.RenderBrowser}}
			},
			field: "sources[0].wait_selector",
		},
		{
			name: "timeout too long",
			modify: func(c *config.Config) {
				c.Sources = []config.SourceConfig{{URL: "https://example.com", Category: "news", Timeout: 10 * time.Minute}}
			},
			field: "sources[0].timeout",
		},
		{
			name: "strategy without title",
			modify: func(c *config.Config) {
				c.Sources = []config.SourceConfig{{
					URL:        "https://example.com",
					Category:   "news",
					Strategies: []extract.Strategy{{Block: "article"}},
				}}
			},
			field: "sources[0].strategies[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Default()
			cfg.WebhookURL = testWebhook
			tt.modify(cfg)

			err := cfg.Validate()
			var cerr *config.Error
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestExtractSources_DefaultStrategiesAndName(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Sources = []config.SourceConfig{{URL: "https://example.com/news", Category: "announcement"}}

	sources, err := cfg.ExtractSources()
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "announcement", sources[0].Name)
	assert.Equal(t, extract.DefaultStrategies(types.CategoryAnnouncement), sources[0].Strategies)
}

func TestLoad_LegacySources(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	t.Setenv("DISCORD_WEBHOOK_URL", testWebhook)
	t.Setenv("CS2NEWS_LEGACY_SOURCES", "true")
	t.Setenv("CS2NEWS_CHROME_NO_SANDBOX", "1")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Extract.ChromeNoSandbox)

	sources, err := cfg.ExtractSources()
	require.NoError(t, err)
	assert.Equal(t, extract.LegacySources(), sources)
	assert.Equal(t, extract.LegacyUpdatesURL, sources[0].URL)
}
