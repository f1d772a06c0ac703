// Package config loads the relay configuration from .env files, an optional
// YAML file and environment variables, in that order of increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/shanehull/cs2news/internal/extract"
	"github.com/shanehull/cs2news/internal/history"
	"github.com/shanehull/cs2news/internal/types"
)

// Store backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

const (
	defaultStatePath   = "last_sent.txt"
	maxSourceTimeout   = 180 * time.Second
	defaultSMTPPort    = 587
	defaultWebhookName = "CS2 News"
)

// Error reports an invalid or missing setting. It is fatal at startup.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

// Config is the complete relay configuration.
type Config struct {
	WebhookURL      string         `yaml:"-"`
	WebhookUsername string         `yaml:"webhook_username"`
	LogLevel        string         `yaml:"log_level"`
	Parallel        bool           `yaml:"parallel"`
	// LegacySources reads the pages as the first release did, so its stored
	// ids still match. Ignored when Sources is set.
	LegacySources   bool           `yaml:"legacy_sources"`
	State           StateConfig    `yaml:"state"`
	Extract         ExtractConfig  `yaml:"extract"`
	Gemini          GeminiConfig   `yaml:"gemini"`
	SMTP            SMTPConfig     `yaml:"smtp"`
	Sources         []SourceConfig `yaml:"sources"`
}

// StateConfig selects and configures the dedup store.
type StateConfig struct {
	Backend       string `yaml:"backend"`
	Path          string `yaml:"path"`
	Policy        string `yaml:"policy"`
	Keep          int    `yaml:"keep"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"-"`
	RedisDB       int    `yaml:"redis_db"`
	RedisKey      string `yaml:"redis_key"`
}

// Retention converts the policy settings for the history package.
func (s StateConfig) Retention() history.Retention {
	return history.Retention{Policy: s.Policy, Keep: s.Keep}
}

type ExtractConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
	ChromePath      string        `yaml:"chrome_path"`
	ChromeNoSandbox bool          `yaml:"chrome_no_sandbox"`
}

type GeminiConfig struct {
	APIKey string `yaml:"-"`
	Model  string `yaml:"model"`
}

type SMTPConfig struct {
	Server string `yaml:"server"`
	Port   int    `yaml:"port"`
	User   string `yaml:"user"`
	Pass   string `yaml:"-"`
	From   string `yaml:"from"`
	To     string `yaml:"to"`
}

// SourceConfig is the YAML form of extract.Source.
type SourceConfig struct {
	Name         string             `yaml:"name"`
	URL          string             `yaml:"url"`
	Category     string             `yaml:"category"`
	Render       string             `yaml:"render"`
	WaitSelector string             `yaml:"wait_selector"`
	Timeout      time.Duration      `yaml:"timeout"`
	Strategies   []extract.Strategy `yaml:"strategies"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		WebhookUsername: defaultWebhookName,
		LogLevel:        "info",
		State: StateConfig{
			Backend: BackendFile,
			Path:    defaultStatePath,
			Policy:  history.PolicyAppend,
			Keep:    history.DefaultKeep,
		},
		Extract: ExtractConfig{
			MaxAttempts: extract.DefaultMaxAttempts,
			RetryDelay:  extract.DefaultRetryDelay,
		},
		SMTP: SMTPConfig{Port: defaultSMTPPort},
	}
}

// loadEnvFiles loads ENV_FILE if set, otherwise .env.local then .env.
// Missing files are ignored.
func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}

	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment are used.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, fmt.Errorf("load environment files: %w", err)
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString("DISCORD_WEBHOOK_URL", &c.WebhookURL)
	setString("CS2NEWS_WEBHOOK_USERNAME", &c.WebhookUsername)
	setString("LOG_LEVEL", &c.LogLevel)

	setString("CS2NEWS_STATE_BACKEND", &c.State.Backend)
	setString("CS2NEWS_STATE_FILE", &c.State.Path)
	setString("CS2NEWS_RETENTION", &c.State.Policy)
	setString("REDIS_ADDR", &c.State.RedisAddr)
	setString("REDIS_PASSWORD", &c.State.RedisPassword)
	setString("CS2NEWS_REDIS_KEY", &c.State.RedisKey)

	setString("CS2NEWS_CHROME_PATH", &c.Extract.ChromePath)

	setString("GEMINI_API_KEY", &c.Gemini.APIKey)
	setString("GEMINI_MODEL", &c.Gemini.Model)

	setString("SMTP_SERVER", &c.SMTP.Server)
	setString("SMTP_USER", &c.SMTP.User)
	setString("SMTP_PASS", &c.SMTP.Pass)
	setString("SMTP_FROM", &c.SMTP.From)
	setString("SMTP_TO", &c.SMTP.To)

	ints := []struct {
		name string
		dst  *int
	}{
		{"CS2NEWS_KEEP", &c.State.Keep},
		{"REDIS_DB", &c.State.RedisDB},
		{"CS2NEWS_MAX_ATTEMPTS", &c.Extract.MaxAttempts},
		{"SMTP_PORT", &c.SMTP.Port},
	}
	for _, i := range ints {
		if err := setInt(i.name, i.dst); err != nil {
			return err
		}
	}

	if v, ok := lookup("CS2NEWS_RETRY_DELAY"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return &Error{Field: "CS2NEWS_RETRY_DELAY", Reason: err.Error()}
		}
		c.Extract.RetryDelay = d
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"CS2NEWS_PARALLEL", &c.Parallel},
		{"CS2NEWS_CHROME_NO_SANDBOX", &c.Extract.ChromeNoSandbox},
		{"CS2NEWS_LEGACY_SOURCES", &c.LegacySources},
	}
	for _, b := range bools {
		if err := setBool(b.name, b.dst); err != nil {
			return err
		}
	}

	return nil
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func setString(name string, dst *string) {
	if v, ok := lookup(name); ok {
		*dst = v
	}
}

func setInt(name string, dst *int) error {
	v, ok := lookup(name)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return &Error{Field: name, Reason: err.Error()}
	}
	*dst = n
	return nil
}

func setBool(name string, dst *bool) error {
	v, ok := lookup(name)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return &Error{Field: name, Reason: err.Error()}
	}
	*dst = b
	return nil
}

// Validate checks the configuration. The webhook URL is the only setting
// without a default.
func (c *Config) Validate() error {
	if c.WebhookURL == "" {
		return &Error{Field: "DISCORD_WEBHOOK_URL", Reason: "is required"}
	}
	if !strings.HasPrefix(c.WebhookURL, "https://") && !strings.HasPrefix(c.WebhookURL, "http://") {
		return &Error{Field: "DISCORD_WEBHOOK_URL", Reason: "must be an http(s) URL"}
	}

	switch c.State.Backend {
	case BackendFile:
		if c.State.Path == "" {
			return &Error{Field: "state.path", Reason: "is required for the file backend"}
		}
	case BackendRedis:
		if c.State.RedisAddr == "" {
			return &Error{Field: "state.redis_addr", Reason: "is required for the redis backend"}
		}
	default:
		return &Error{Field: "state.backend", Reason: fmt.Sprintf("unknown backend %q", c.State.Backend)}
	}

	if err := c.State.Retention().Validate(); err != nil {
		return &Error{Field: "state.policy", Reason: err.Error()}
	}

	if c.Extract.MaxAttempts < 1 {
		return &Error{Field: "extract.max_attempts", Reason: "must be at least 1"}
	}
	if c.Extract.RetryDelay < 0 {
		return &Error{Field: "extract.retry_delay", Reason: "must be non-negative"}
	}

	if _, err := c.ExtractSources(); err != nil {
		return err
	}

	return nil
}

// ExtractSources converts the configured sources, or returns the built-in
// pair (default or legacy layout) when none are configured.
func (c *Config) ExtractSources() ([]extract.Source, error) {
	if len(c.Sources) == 0 {
		if c.LegacySources {
			return extract.LegacySources(), nil
		}
		return extract.DefaultSources(), nil
	}

	sources := make([]extract.Source, 0, len(c.Sources))
	for i, sc := range c.Sources {
		field := fmt.Sprintf("sources[%d]", i)

		if sc.URL == "" {
			return nil, &Error{Field: field + ".url", Reason: "is required"}
		}
		category, err := types.ParseCategory(sc.Category)
		if err != nil {
			return nil, &Error{Field: field + ".category", Reason: err.Error()}
		}

		render := sc.Render
		if render == "" {
			render = extract.RenderHTTP
		}
		if render != extract.RenderHTTP && render != extract.RenderBrowser {
			return nil, &Error{Field: field + ".render", Reason: fmt.Sprintf("unknown render mode %q", render)}
		}
		if render == extract.RenderBrowser && sc.WaitSelector == "" {
			return nil, &Error{Field: field + ".wait_selector", Reason: "is required for browser sources"}
		}
		if sc.Timeout < 0 || sc.Timeout > maxSourceTimeout {
			return nil, &Error{Field: field + ".timeout", Reason: fmt.Sprintf("must be between 0 and %s", maxSourceTimeout)}
		}

		strategies := sc.Strategies
		if len(strategies) == 0 {
			strategies = extract.DefaultStrategies(category)
		}
		for j, st := range strategies {
			if st.Block == "" || st.Title == "" {
				return nil, &Error{Field: fmt.Sprintf("%s.strategies[%d]", field, j), Reason: "block and title selectors are required"}
			}
		}

		name := sc.Name
		if name == "" {
			name = string(category)
		}

		sources = append(sources, extract.Source{
			Name:         name,
			URL:          sc.URL,
			Category:     category,
			Render:       render,
			WaitSelector: sc.WaitSelector,
			Timeout:      sc.Timeout,
			Strategies:   strategies,
		})
	}
	return sources, nil
}

// IsConfigError reports whether err is a configuration fault.
func IsConfigError(err error) bool {
	var cerr *Error
	return errors.As(err, &cerr)
}
