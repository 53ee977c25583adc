package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ProjectDir   string `json:"project_dir"`
	DataDir      string `json:"data_dir"`
	DataCacheDir string `json:"data_cache_dir"`

	ServerHost string `json:"server_host"`
	ServerPort int    `json:"server_port"`

	// LLM configuration (OpenAI-compatible endpoint)
	LLMAPIKey  string `json:"llm_api_key"`
	LLMModel   string `json:"llm_model"`
	LLMBaseURL string `json:"llm_base_url"`

	// Analysis defaults and bounds
	DefaultMaxIterations  int `json:"default_max_iterations"`
	DefaultTimeoutSeconds int `json:"default_timeout_seconds"`
	MaxConcurrentTickers  int `json:"max_concurrent_tickers"`
	NewsMaxArticles       int `json:"news_max_articles"`

	// Conversation handling
	ConversationTTLMinutes int  `json:"conversation_ttl_minutes"`
	SweepIntervalSeconds   int  `json:"sweep_interval_seconds"`
	AutoAcceptHigh         bool `json:"auto_accept_high_confidence"`

	// Event streaming
	EventBufferSize    int `json:"event_buffer_size"`
	DrainWindowSeconds int `json:"drain_window_seconds"`

	CacheEnabled bool `json:"cache_enabled"`
	Debug        bool `json:"debug"`
}

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()

	cfg := &Config{
		ProjectDir:   currentDir,
		DataDir:      filepath.Join(currentDir, "data"),
		DataCacheDir: filepath.Join(currentDir, "data", "cache"),

		ServerHost: "0.0.0.0",
		ServerPort: 8000,

		LLMModel:   "gpt-4o-mini",
		LLMBaseURL: "https://api.openai.com/v1",

		DefaultMaxIterations:  3,
		DefaultTimeoutSeconds: 60,
		MaxConcurrentTickers:  4,
		NewsMaxArticles:       10,

		ConversationTTLMinutes: 30,
		SweepIntervalSeconds:   60,
		AutoAcceptHigh:         false,

		EventBufferSize:    256,
		DrainWindowSeconds: 5,

		CacheEnabled: true,
		Debug:        false,
	}

	// Load environment variables from .env file
	_ = godotenv.Load()

	// Override with environment variables if they exist
	cfg.loadFromEnv()

	return cfg
}

func DefaultConfigWithRoot(root string) *Config {
	cfg := DefaultConfig()
	cfg.ProjectDir = root
	cfg.DataDir = filepath.Join(root, "data")
	cfg.DataCacheDir = filepath.Join(root, "data", "cache")
	return cfg
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("PROJECT_DIR"); val != "" {
		c.ProjectDir = val
	}
	if val := os.Getenv("DATA_DIR"); val != "" {
		c.DataDir = val
	}
	if val := os.Getenv("DATA_CACHE_DIR"); val != "" {
		c.DataCacheDir = val
	}
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.ServerHost = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.ServerPort = port
		}
	}
	if val := os.Getenv("LLM_API_KEY"); val != "" {
		c.LLMAPIKey = val
	}
	if val := os.Getenv("OPENAI_API_KEY"); val != "" && c.LLMAPIKey == "" {
		c.LLMAPIKey = val
	}
	if val := os.Getenv("LLM_MODEL"); val != "" {
		c.LLMModel = val
	}
	if val := os.Getenv("LLM_BASE_URL"); val != "" {
		c.LLMBaseURL = val
	}
	if val := os.Getenv("MAX_CONCURRENT_TICKERS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			c.MaxConcurrentTickers = n
		}
	}
	if val := os.Getenv("CONVERSATION_TTL_MINUTES"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			c.ConversationTTLMinutes = n
		}
	}
	if val := os.Getenv("AUTO_ACCEPT_HIGH_CONFIDENCE"); val != "" {
		c.AutoAcceptHigh = parseBool(val)
	}
	if val := os.Getenv("CACHE_ENABLED"); val != "" {
		c.CacheEnabled = parseBool(val)
	}
	if val := os.Getenv("DEBUG"); val != "" {
		c.Debug = parseBool(val)
	}
}

func parseBool(val string) bool {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func (c *Config) Validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid server_port: %d", c.ServerPort)
	}
	if c.DefaultTimeoutSeconds <= 0 {
		return fmt.Errorf("default_timeout_seconds must be positive, got %d", c.DefaultTimeoutSeconds)
	}
	if c.MaxConcurrentTickers <= 0 {
		return fmt.Errorf("max_concurrent_tickers must be positive, got %d", c.MaxConcurrentTickers)
	}
	if c.ConversationTTLMinutes <= 0 {
		return fmt.Errorf("conversation_ttl_minutes must be positive, got %d", c.ConversationTTLMinutes)
	}
	if c.EventBufferSize <= 0 {
		return fmt.Errorf("event_buffer_size must be positive, got %d", c.EventBufferSize)
	}
	return nil
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir, c.DataCacheDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
