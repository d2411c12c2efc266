package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the nutriqa pipeline configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Index      IndexConfig      `yaml:"index"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	Model        string `yaml:"model"`
	Dimensions   int    `yaml:"dimensions"`
	BatchSize    int    `yaml:"batch_size"`      // in-flight requests per group
	GroupPauseMs int    `yaml:"group_pause_ms"`  // pause between groups (rate limiter)
	Provider     string `yaml:"provider"`        // metrics label
}

// GenerationConfig holds answer synthesis settings.
type GenerationConfig struct {
	APIKey          string   `yaml:"api_key"` // falls back to embedding.api_key when empty
	BaseURL         string   `yaml:"base_url"`
	Model           string   `yaml:"model"`
	Temperature     *float32 `yaml:"temperature"` // nil means default; explicit 0 is kept
	MaxOutputTokens int      `yaml:"max_output_tokens"`
}

// IndexConfig holds vector index settings.
type IndexConfig struct {
	Name            string `yaml:"name"`
	KeyPrefix       string `yaml:"key_prefix"`
	Metric          string `yaml:"metric"` // COSINE, L2, IP
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
	ReadyTimeoutSec int    `yaml:"ready_timeout_sec"`
}

// IngestConfig holds ingestion pipeline settings.
type IngestConfig struct {
	CorpusDir       string `yaml:"corpus_dir"`
	ChunkSize       int    `yaml:"chunk_size"`    // characters per chunk
	ChunkOverlap    *int   `yaml:"chunk_overlap"` // characters shared between consecutive chunks; nil means default, explicit 0 is kept
	UpsertBatchSize int    `yaml:"upsert_batch_size"`
	CheckpointPath  string `yaml:"checkpoint_path"` // optional JSON artifact, empty disables
}

// RetrievalConfig holds query-time retrieval settings.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 3000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 768
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 20
	}
	if c.Embedding.GroupPauseMs <= 0 {
		c.Embedding.GroupPauseMs = 500
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Generation.APIKey == "" {
		c.Generation.APIKey = c.Embedding.APIKey
	}
	if c.Generation.Model == "" {
		c.Generation.Model = "gpt-4o-mini"
	}
	if c.Generation.Temperature == nil {
		t := float32(0.3)
		c.Generation.Temperature = &t
	}
	if c.Generation.MaxOutputTokens <= 0 {
		c.Generation.MaxOutputTokens = 500
	}
	if c.Index.Name == "" {
		c.Index.Name = "nutrition-textbooks"
	}
	if c.Index.KeyPrefix == "" {
		c.Index.KeyPrefix = "nutriqa:chunk:"
	}
	if c.Index.Metric == "" {
		c.Index.Metric = "COSINE"
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Index.ReadyTimeoutSec <= 0 {
		c.Index.ReadyTimeoutSec = 60
	}
	if c.Ingest.CorpusDir == "" {
		c.Ingest.CorpusDir = "textbooks"
	}
	if c.Ingest.ChunkSize <= 0 {
		c.Ingest.ChunkSize = 1000
	}
	if c.Ingest.ChunkOverlap == nil {
		o := 200
		c.Ingest.ChunkOverlap = &o
	}
	if c.Ingest.UpsertBatchSize <= 0 {
		c.Ingest.UpsertBatchSize = 100
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 5
	}
}

// Validate checks the configuration for correctness. Chunking limits are
// rejected here so a non-advancing sliding window can never reach the
// chunker at run time.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if overlap := c.Ingest.ChunkOverlap; overlap != nil {
		if *overlap >= c.Ingest.ChunkSize {
			return fmt.Errorf(
				"ingest.chunk_overlap (%d) must be smaller than ingest.chunk_size (%d)",
				*overlap, c.Ingest.ChunkSize,
			)
		}
		if *overlap < 0 {
			return fmt.Errorf("ingest.chunk_overlap must not be negative, got %d", *overlap)
		}
	}
	if t := c.Generation.Temperature; t != nil && *t < 0 {
		return fmt.Errorf("generation.temperature must not be negative, got %g", *t)
	}
	switch c.Index.Metric {
	case "COSINE", "L2", "IP":
		// ok
	default:
		return fmt.Errorf("index.metric must be COSINE, L2 or IP, got %q", c.Index.Metric)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
