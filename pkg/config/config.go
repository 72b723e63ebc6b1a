// Package config loads application configuration from YAML with
// environment fallbacks for credentials.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/visionary-dev/visionary/internal/provider"
)

// Config represents the application configuration.
type Config struct {
	// API Keys
	GeminiKey string `yaml:"gemini_key"`
	OpenAIKey string `yaml:"openai_key"`

	// Provider selects the completion backend: gemini or openai.
	Provider string `yaml:"provider"`

	// Model Configuration
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`

	// Live session configuration
	Live LiveConfig `yaml:"live"`

	// Store selects the persistence backend.
	Store StoreConfig `yaml:"store"`

	// Server configuration (serve mode only)
	Server ServerConfig `yaml:"server"`

	// Debug enables verbose logging.
	Debug bool `yaml:"debug"`
}

// LiveConfig holds voice session parameters.
type LiveConfig struct {
	Model            string `yaml:"model"`
	Voice            string `yaml:"voice"`
	InputSampleRate  int    `yaml:"input_sample_rate"`
	OutputSampleRate int    `yaml:"output_sample_rate"`
	FrameSize        int    `yaml:"frame_size"`
}

// StoreConfig holds persistence configuration.
type StoreConfig struct {
	// Backend is memory, file, or redis.
	Backend string `yaml:"backend"`
	// Dir is the base directory for the file backend (default ~/.visionary).
	Dir string `yaml:"dir"`
	// Redis settings, used when Backend is redis.
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	RedisTTL      time.Duration `yaml:"redis_ttl"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr        string  `yaml:"addr"`
	MetricsAddr string  `yaml:"metrics_addr"`
	RateLimit   float64 `yaml:"rate_limit"`
	RateBurst   int     `yaml:"rate_burst"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg
}

// Load loads configuration from a YAML file, applies defaults, and falls
// back to environment variables for missing API keys.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Provider == "" {
		c.Provider = "gemini"
	}
	if c.Model == "" {
		c.Model = provider.DefaultGeminiModel
	}
	if c.Live.Model == "" {
		c.Live.Model = provider.DefaultGeminiLiveModel
	}
	if c.Live.Voice == "" {
		c.Live.Voice = provider.DefaultGeminiVoice
	}
	if c.Live.InputSampleRate == 0 {
		c.Live.InputSampleRate = 16000
	}
	if c.Live.OutputSampleRate == 0 {
		c.Live.OutputSampleRate = 24000
	}
	if c.Live.FrameSize == 0 {
		c.Live.FrameSize = 4096
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "memory"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.MetricsAddr == "" {
		c.Server.MetricsAddr = ":9090"
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = 5
	}
	if c.Server.RateBurst == 0 {
		c.Server.RateBurst = 10
	}
}

func (c *Config) applyEnv() {
	if c.GeminiKey == "" {
		c.GeminiKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.GeminiKey == "" {
		c.GeminiKey = os.Getenv("API_KEY")
	}
	if c.OpenAIKey == "" {
		c.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	}
	if os.Getenv("VISIONARY_DEBUG") == "true" {
		c.Debug = true
	}
}

// APIKey returns the credential for the selected provider.
func (c *Config) APIKey() string {
	if c.Provider == "openai" {
		return c.OpenAIKey
	}
	return c.GeminiKey
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("unknown provider: %q", c.Provider)
	}

	switch c.Store.Backend {
	case "memory", "file":
	case "redis":
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("redis_addr is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown store backend: %q", c.Store.Backend)
	}

	if c.Live.InputSampleRate <= 0 || c.Live.OutputSampleRate <= 0 {
		return fmt.Errorf("sample rates must be positive")
	}
	if c.Live.FrameSize <= 0 || c.Live.FrameSize%2 != 0 {
		return fmt.Errorf("frame_size must be a positive even number of bytes")
	}

	return nil
}

// Save writes the configuration to a YAML file.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
