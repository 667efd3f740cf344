// Package config loads stategraph settings from YAML and the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/smallnest/stategraph/graph"
	"github.com/smallnest/stategraph/llm"
	"github.com/smallnest/stategraph/log"
	"github.com/smallnest/stategraph/prebuilt"
)

// Journal backends.
const (
	JournalNone     = "none"
	JournalMemory   = "memory"
	JournalRedis    = "redis"
	JournalSqlite   = "sqlite"
	JournalPostgres = "postgres"
)

// Config is the full application configuration.
type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	Workflow WorkflowConfig `yaml:"workflow"`
	Log      LogConfig      `yaml:"log"`
	Journal  JournalConfig  `yaml:"journal"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Graph    GraphConfig    `yaml:"graph"`
}

// LLMConfig selects the text-generation provider.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	ServerURL   string  `yaml:"server_url"`
	APIKey      string  `yaml:"api_key"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	// Retries is the number of extra attempts after a failed generation call.
	Retries int `yaml:"retries"`
}

// WorkflowConfig tunes the article workflow.
type WorkflowConfig struct {
	Topic         string `yaml:"topic"`
	WordThreshold int    `yaml:"word_threshold"`
	MaxSteps      int    `yaml:"max_steps"`
}

// LogConfig configures the default logger.
type LogConfig struct {
	Level string `yaml:"level"`
}

// JournalConfig selects where step records go.
type JournalConfig struct {
	Backend       string        `yaml:"backend"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	RedisTTL      time.Duration `yaml:"redis_ttl"`
	SqlitePath    string        `yaml:"sqlite_path"`
	PostgresDSN   string        `yaml:"postgres_dsn"`
}

// MetricsConfig configures the diagnostics server.
type MetricsConfig struct {
	// Addr is the listen address of the /metrics and /graph endpoints; empty disables it.
	Addr string `yaml:"addr"`
}

// GraphConfig configures diagram export.
type GraphConfig struct {
	// Output is the diagram path written before each run; empty disables it.
	Output string `yaml:"output"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    llm.ProviderOllama,
			Model:       llm.DefaultOllamaModel,
			Temperature: prebuilt.DefaultTemperature,
		},
		Workflow: WorkflowConfig{
			Topic:         prebuilt.DefaultTopic,
			WordThreshold: prebuilt.DefaultWordThreshold,
			MaxSteps:      graph.DefaultMaxSteps,
		},
		Log: LogConfig{
			Level: "info",
		},
		Journal: JournalConfig{
			Backend:    JournalNone,
			SqlitePath: "stategraph.db",
		},
	}
}

// Load reads the YAML file at path over the defaults and applies the
// environment. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := cfg.Decode(data); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode merges a YAML document into cfg. Unknown keys are rejected.
func (c *Config) Decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from STATEGRAPH_* variables, then fills the
// provider address and key from OLLAMA_HOST, OPENAI_API_BASE and
// OPENAI_API_KEY when they are still empty.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	str("STATEGRAPH_LLM_PROVIDER", &c.LLM.Provider)
	str("STATEGRAPH_LLM_MODEL", &c.LLM.Model)
	str("STATEGRAPH_LLM_SERVER_URL", &c.LLM.ServerURL)
	str("STATEGRAPH_LLM_API_KEY", &c.LLM.APIKey)
	if v, ok := lookup("STATEGRAPH_LLM_TEMPERATURE"); ok && v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("STATEGRAPH_LLM_TEMPERATURE: %w", err))
		} else {
			c.LLM.Temperature = t
		}
	}
	num("STATEGRAPH_LLM_MAX_TOKENS", &c.LLM.MaxTokens)
	num("STATEGRAPH_LLM_RETRIES", &c.LLM.Retries)

	str("STATEGRAPH_TOPIC", &c.Workflow.Topic)
	num("STATEGRAPH_WORD_THRESHOLD", &c.Workflow.WordThreshold)
	num("STATEGRAPH_MAX_STEPS", &c.Workflow.MaxSteps)

	str("STATEGRAPH_LOG_LEVEL", &c.Log.Level)

	str("STATEGRAPH_JOURNAL", &c.Journal.Backend)
	str("STATEGRAPH_REDIS_ADDR", &c.Journal.RedisAddr)
	str("STATEGRAPH_SQLITE_PATH", &c.Journal.SqlitePath)
	str("STATEGRAPH_POSTGRES_DSN", &c.Journal.PostgresDSN)

	str("STATEGRAPH_METRICS_ADDR", &c.Metrics.Addr)
	str("STATEGRAPH_GRAPH_OUTPUT", &c.Graph.Output)

	switch strings.ToLower(c.LLM.Provider) {
	case llm.ProviderOllama:
		if c.LLM.ServerURL == "" {
			if host, ok := lookup("OLLAMA_HOST"); ok && host != "" {
				c.LLM.ServerURL = normalizeHost(host)
			}
		}
	case llm.ProviderOpenAI:
		str("OPENAI_API_KEY", &c.LLM.APIKey)
		if c.LLM.ServerURL == "" {
			str("OPENAI_API_BASE", &c.LLM.ServerURL)
		}
	}

	return errors.Join(errs...)
}

// OLLAMA_HOST is often given without a scheme.
func normalizeHost(host string) string {
	if strings.Contains(host, "://") {
		return host
	}
	return "http://" + host
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.LLM.Provider) {
	case llm.ProviderOllama, llm.ProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("llm.provider: unknown provider %q", c.LLM.Provider))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature: %v out of range [0, 2]", c.LLM.Temperature))
	}
	if c.LLM.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("llm.max_tokens: must not be negative, got %d", c.LLM.MaxTokens))
	}
	if c.LLM.Retries < 0 {
		errs = append(errs, fmt.Errorf("llm.retries: must not be negative, got %d", c.LLM.Retries))
	}

	if c.Workflow.WordThreshold <= 0 {
		errs = append(errs, fmt.Errorf("workflow.word_threshold: must be positive, got %d", c.Workflow.WordThreshold))
	}
	if c.Workflow.MaxSteps <= 0 {
		errs = append(errs, fmt.Errorf("workflow.max_steps: must be positive, got %d", c.Workflow.MaxSteps))
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	switch c.Journal.Backend {
	case "", JournalNone, JournalMemory:
	case JournalRedis:
		if c.Journal.RedisAddr == "" {
			errs = append(errs, errors.New("journal.redis_addr: required for the redis backend"))
		}
	case JournalSqlite:
		if c.Journal.SqlitePath == "" {
			errs = append(errs, errors.New("journal.sqlite_path: required for the sqlite backend"))
		}
	case JournalPostgres:
		if c.Journal.PostgresDSN == "" {
			errs = append(errs, errors.New("journal.postgres_dsn: required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("journal.backend: unknown backend %q", c.Journal.Backend))
	}

	return errors.Join(errs...)
}

// LLMSettings returns the provider settings for llm.New.
func (c *Config) LLMSettings() llm.Settings {
	return llm.Settings{
		Provider:  c.LLM.Provider,
		Model:     c.LLM.Model,
		ServerURL: c.LLM.ServerURL,
		APIKey:    c.LLM.APIKey,
	}
}

// LogLevel returns the parsed log level, falling back to info.
func (c *Config) LogLevel() log.LogLevel {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.LogLevelInfo
	}
	return level
}

// RetryConfig returns the node retry policy, or nil when retries are off.
func (c *Config) RetryConfig() *graph.RetryConfig {
	if c.LLM.Retries <= 0 {
		return nil
	}
	retry := graph.DefaultRetryConfig()
	retry.MaxAttempts = c.LLM.Retries + 1
	return retry
}
