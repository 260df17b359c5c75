// Package config provides configuration loading and structs for tanya.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the config file.
const (
	EnvDocument    = "TANYA_DOCUMENT"
	EnvEmbedding   = "TANYA_EMBEDDING"
	EnvVectorStore = "TANYA_VECTOR_STORE"
	EnvModel       = "TANYA_MODEL"
)

// Config holds all configuration for the application.
type Config struct {
	Debug       bool              `yaml:"debug"`
	Server      ServerConfig      `yaml:"server"`
	Document    DocumentConfig    `yaml:"document"`
	Chunking    ChunkingConfig    `yaml:"chunking"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Model       ModelConfig       `yaml:"model"`
	Query       QueryConfig       `yaml:"query"`
	Cache       CacheConfig       `yaml:"cache"`
	Watch       WatchConfig       `yaml:"watch"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DocumentConfig points at the single document being served.
type DocumentConfig struct {
	Path        string `yaml:"path"`
	MaxBytes    int64  `yaml:"max_bytes"`
	ValidatePDF bool   `yaml:"validate_pdf"`
}

// ChunkingConfig holds chunk size and overlap, both in characters.
type ChunkingConfig struct {
	Size       int  `yaml:"size"`
	Overlap    int  `yaml:"overlap"`
	MergePages bool `yaml:"merge_pages"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider   string        `yaml:"provider"`
	Model      string        `yaml:"model"`
	Dimensions int           `yaml:"dimensions"`
	BatchSize  int           `yaml:"batch_size"`
	Timeout    time.Duration `yaml:"timeout"`
	CacheSize  int           `yaml:"cache_size"`
	BaseURL    string        `yaml:"base_url"`
	ModelPath  string        `yaml:"model_path"`
	MaxTokens  int           `yaml:"max_tokens"`
	APIKeyEnv  string        `yaml:"api_key_env"`
}

// VectorStoreConfig selects the vector store.
type VectorStoreConfig struct {
	Provider string `yaml:"provider"`
}

// ModelConfig selects and configures the language model.
type ModelConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxTokens   int           `yaml:"max_tokens"`
	BaseURL     string        `yaml:"base_url"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	// SystemPrompt replaces the built-in answering instructions when set.
	SystemPrompt string `yaml:"system_prompt"`
}

// QueryConfig holds retrieval and presentation settings.
type QueryConfig struct {
	TopK          int     `yaml:"top_k"`
	ReturnAll     *bool   `yaml:"return_all_chunks"`
	ShowFullDoc   *bool   `yaml:"show_full_doc"`
	Hybrid        bool    `yaml:"hybrid"`
	KeywordWeight float64 `yaml:"keyword_weight"`
	// Fuzzy lets hybrid keyword matching tolerate typos.
	Fuzzy bool `yaml:"fuzzy"`
}

// ReturnAllOrDefault returns whether every retrieved chunk is shown; defaults to true when unset.
func (q *QueryConfig) ReturnAllOrDefault() bool {
	if q.ReturnAll != nil {
		return *q.ReturnAll
	}
	return true
}

// ShowFullDocOrDefault returns whether the full document is rendered; defaults to true when unset.
func (q *QueryConfig) ShowFullDocOrDefault() bool {
	if q.ShowFullDoc != nil {
		return *q.ShowFullDoc
	}
	return true
}

// CacheConfig holds the embedding memo store. An empty path keeps the memo in memory.
type CacheConfig struct {
	Path string `yaml:"path"`
}

// WatchConfig controls reloading when the document changes on disk.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// DiagnosticsConfig holds runtime diagnostics settings.
type DiagnosticsConfig struct {
	Gops bool `yaml:"gops"`
}

// MetricsConfig controls the /metrics endpoint.
type MetricsConfig struct {
	Enabled *bool `yaml:"enabled"`
}

// EnabledOrDefault returns whether metrics are served; defaults to true when unset.
func (m *MetricsConfig) EnabledOrDefault() bool {
	if m.Enabled != nil {
		return *m.Enabled
	}
	return true
}

// Load reads and parses the config file at path, applies environment overrides
// and defaults, and expands paths. A .env file next to the config is loaded first
// without overriding variables already set.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	configDir := filepath.Dir(path)
	if err := LoadDotEnv(filepath.Join(configDir, ".env")); err != nil {
		return nil, err
	}
	ApplyEnv(&cfg)
	ApplyDefaults(&cfg)

	cfg.Document.Path = expandPath(cfg.Document.Path, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	if cfg.Cache.Path != "" {
		cfg.Cache.Path = expandPath(cfg.Cache.Path, configDir)
	}

	return &cfg, nil
}

// Default returns a config built only from defaults and the environment.
func Default() *Config {
	var cfg Config
	ApplyEnv(&cfg)
	ApplyDefaults(&cfg)
	return &cfg
}

// LoadDotEnv loads variables from a .env file if it exists. Variables already
// present in the environment win.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides the document path and provider selections from the environment.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv(EnvDocument); v != "" {
		cfg.Document.Path = v
	}
	if v := os.Getenv(EnvEmbedding); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv(EnvVectorStore); v != "" {
		cfg.VectorStore.Provider = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		cfg.Model.Provider = v
	}
}

// APIKey returns the credential for the model provider.
func (c *Config) APIKey() string {
	return os.Getenv(c.Model.APIKeyEnv)
}

// EmbeddingAPIKey returns the credential for the embedding provider.
func (c *Config) EmbeddingAPIKey() string {
	return os.Getenv(c.Embedding.APIKeyEnv)
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
