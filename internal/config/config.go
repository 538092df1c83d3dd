package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the application's configuration model: storage, queue, platform
// credentials, content generation, and engine tuning.
type Config struct {
	Storage     StorageConfig     `yaml:"storage"`
	Redis       RedisConfig       `yaml:"redis"`
	Credentials CredentialsConfig `yaml:"credentials"`
	LLM         LLMConfig         `yaml:"llm"`
	Search      SearchConfig      `yaml:"search"`
	Engine      EngineConfig      `yaml:"engine"`
	MetricsAddr string            `yaml:"metricsAddr"`
}

type StorageConfig struct {
	DBPath string `yaml:"dbPath"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type CredentialsConfig struct {
	// App-only bearer token for read endpoints. If empty, read X_BEARER_TOKEN.
	BearerToken string `yaml:"bearerToken"`
	// User-auth token for write actions (post/follow/like). If empty, read X_USER_TOKEN.
	UserToken string `yaml:"userToken"`
}

type LLMConfig struct {
	// BaseURL points at any OpenAI-compatible endpoint; DeepSeek by default.
	BaseURL string `yaml:"baseURL"`
	Model   string `yaml:"model"`
	// If empty, read from env LLM_API_KEY.
	APIKey string `yaml:"apiKey"`
}

type SearchConfig struct {
	// Tavily API key. If empty, read from env TAVILY_API_KEY; empty disables research.
	APIKey string `yaml:"apiKey"`
}

type EngineConfig struct {
	Workers          int           `yaml:"workers"`
	PostScanEvery    time.Duration `yaml:"postScanEvery"`
	GrowthScanEvery  time.Duration `yaml:"growthScanEvery"`
	DueScanLimit     int           `yaml:"dueScanLimit"`
	EngagementBatch  int           `yaml:"engagementBatch"`
	PostingStartHour int           `yaml:"postingStartHour"`
	PostingEndHour   int           `yaml:"postingEndHour"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Storage: StorageConfig{DBPath: "./tempus.db"},
		Redis:   RedisConfig{Addr: "localhost:6379"},
		LLM: LLMConfig{
			BaseURL: "https://api.deepseek.com/v1",
			Model:   "deepseek-chat",
		},
		Engine: EngineConfig{
			Workers:          4,
			PostScanEvery:    time.Minute,
			GrowthScanEvery:  5 * time.Minute,
			DueScanLimit:     50,
			EngagementBatch:  10,
			PostingStartHour: 9,
			PostingEndHour:   21,
		},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if c.Credentials.BearerToken == "" {
		c.Credentials.BearerToken = os.Getenv("X_BEARER_TOKEN")
	}
	if c.Credentials.UserToken == "" {
		c.Credentials.UserToken = os.Getenv("X_USER_TOKEN")
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("LLM_API_KEY")
	}
	if c.Search.APIKey == "" {
		c.Search.APIKey = os.Getenv("TAVILY_API_KEY")
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = os.Getenv("REDIS_ADDR")
	}
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
