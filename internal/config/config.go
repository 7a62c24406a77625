package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type ServerConfig struct {
	Port string `toml:"port"`
}

type GraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	// Dialect selects the index/constraint syntax: "neo4j" or "memgraph".
	Dialect string `toml:"dialect"`
}

type LLMConfig struct {
	Provider  string `toml:"provider"`
	Model     string `toml:"model"`
	APIKey    string `toml:"api_key"`
	BaseURL   string `toml:"base_url"`
	MaxTokens int    `toml:"max_tokens"`
}

type SchedulerConfig struct {
	JitterMinMS int `toml:"jitter_min_ms"`
	JitterMaxMS int `toml:"jitter_max_ms"`
}

type DecisionConfig struct {
	TimeoutMS      int `toml:"timeout_ms"`
	HistoryLimit   int `toml:"history_limit"`
	MaxConcurrency int `toml:"max_concurrency"`
}

type HistoryConfig struct {
	Path string `toml:"path"`
}

type ProfilesConfig struct {
	Path string `toml:"path"`
}

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Graph     GraphConfig     `toml:"graph"`
	LLM       LLMConfig       `toml:"llm"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Decision  DecisionConfig  `toml:"decision"`
	History   HistoryConfig   `toml:"history"`
	Profiles  ProfilesConfig  `toml:"profiles"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		Graph: GraphConfig{
			URI:     "bolt://localhost:7687",
			Dialect: "neo4j",
		},
		LLM: LLMConfig{
			Provider:  "ollama",
			Model:     "gpt-oss:latest",
			BaseURL:   "http://localhost:11434",
			MaxTokens: 1000,
		},
		Scheduler: SchedulerConfig{JitterMinMS: 1500, JitterMaxMS: 3500},
		Decision:  DecisionConfig{TimeoutMS: 60000, HistoryLimit: 20},
		History:   HistoryConfig{Path: "data/history.db"},
	}
}

// Load reads a TOML file on top of Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to Default otherwise.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// ApplyEnv overrides fields from environment variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	set(&c.Server.Port, "PORT")
	set(&c.Graph.URI, "NEO4J_URI")
	set(&c.Graph.User, "NEO4J_USER")
	set(&c.Graph.Password, "NEO4J_PASSWORD")
	set(&c.Graph.Database, "NEO4J_DATABASE")
	set(&c.Graph.Dialect, "GRAPH_DIALECT")
	set(&c.LLM.Provider, "LLM_PROVIDER")
	set(&c.LLM.Model, "LLM_MODEL")
	set(&c.LLM.APIKey, "LLM_API_KEY")
	set(&c.LLM.BaseURL, "LLM_BASE_URL")
	set(&c.History.Path, "HISTORY_PATH")
	set(&c.Profiles.Path, "PROFILES_PATH")
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Graph.Dialect) {
	case "", "neo4j", "memgraph":
	default:
		return fmt.Errorf("unsupported graph dialect: %s", c.Graph.Dialect)
	}
	if c.Scheduler.JitterMinMS < 0 || c.Scheduler.JitterMaxMS < 0 {
		return fmt.Errorf("scheduler jitter must not be negative")
	}
	if c.Scheduler.JitterMaxMS < c.Scheduler.JitterMinMS {
		return fmt.Errorf("scheduler jitter_max_ms (%d) is below jitter_min_ms (%d)", c.Scheduler.JitterMaxMS, c.Scheduler.JitterMinMS)
	}
	if c.Decision.TimeoutMS < 0 || c.Decision.HistoryLimit < 0 || c.Decision.MaxConcurrency < 0 {
		return fmt.Errorf("decision settings must not be negative")
	}
	return nil
}

func (s SchedulerConfig) JitterMin() time.Duration {
	return time.Duration(s.JitterMinMS) * time.Millisecond
}

func (s SchedulerConfig) JitterMax() time.Duration {
	return time.Duration(s.JitterMaxMS) * time.Millisecond
}

func (d DecisionConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutMS) * time.Millisecond
}
