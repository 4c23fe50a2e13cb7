package common

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Normalize NormalizeConfig `yaml:"normalize"`
	Extract   ExtractConfig   `yaml:"extract"`
	Batch     BatchConfig     `yaml:"batch"`
}

// LLMConfig holds model client configuration
type LLMConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"-"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// ChunkingConfig holds chunk-planning parameters
type ChunkingConfig struct {
	MaxChunkChars int `yaml:"max_chunk_chars"`
	MinChunkChars int `yaml:"min_chunk_chars"`
	OverlapChars  int `yaml:"overlap_chars"`
	MaxIterations int `yaml:"max_iterations"`
	MaxChunks     int `yaml:"max_chunks"`
}

// NormalizeConfig holds text-preprocessing toggles
type NormalizeConfig struct {
	RemoveArtifacts     bool   `yaml:"remove_artifacts"`
	CollapseWhitespace  bool   `yaml:"collapse_whitespace"`
	CompressPOPatterns  bool   `yaml:"compress_po_patterns"`
	CompressTableLayout bool   `yaml:"compress_table_layout"`
	VendorKey           string `yaml:"vendor_key"`
}

// ExtractConfig holds orchestrator behavior
type ExtractConfig struct {
	InterChunkDelay       time.Duration `yaml:"inter_chunk_delay"`
	TruncateFallbackChars int           `yaml:"truncate_fallback_chars"`
	DisablePreprocessing  bool          `yaml:"disable_preprocessing"`
	DisableAnchors        bool          `yaml:"disable_anchors"`
}

// BatchConfig holds batch CLI behavior
type BatchConfig struct {
	Workers        int           `yaml:"workers"`
	QueueSize      int           `yaml:"queue_size"`
	ProcessTimeout time.Duration `yaml:"process_timeout"`
}

// LoadConfig loads configuration from environment variables, then overlays an
// optional YAML file (path from POEXTRACT_CONFIG or the argument, if any).
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		LLM: LLMConfig{
			BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
			MaxAttempts: getEnvAsInt("OPENAI_MAX_ATTEMPTS", 3),
		},
		Chunking: ChunkingConfig{
			MaxChunkChars: getEnvAsInt("CHUNK_MAX_CHARS", 4200),
			MinChunkChars: getEnvAsInt("CHUNK_MIN_CHARS", 600),
			OverlapChars:  getEnvAsInt("CHUNK_OVERLAP_CHARS", 180),
			MaxIterations: getEnvAsInt("CHUNK_MAX_ITERATIONS", 100),
			MaxChunks:     getEnvAsInt("CHUNK_MAX_CHUNKS", 12),
		},
		Normalize: NormalizeConfig{
			RemoveArtifacts:     true,
			CollapseWhitespace:  true,
			CompressPOPatterns:  true,
			CompressTableLayout: false,
			VendorKey:           getEnv("NORMALIZE_VENDOR_KEY", ""),
		},
		Extract: ExtractConfig{
			InterChunkDelay:       getEnvAsDuration("EXTRACT_INTER_CHUNK_DELAY", 500*time.Millisecond),
			TruncateFallbackChars: getEnvAsInt("EXTRACT_TRUNCATE_FALLBACK_CHARS", 8000),
		},
		Batch: BatchConfig{
			Workers:        getEnvAsInt("BATCH_WORKERS", 4),
			QueueSize:      getEnvAsInt("BATCH_QUEUE_SIZE", 256),
			ProcessTimeout: getEnvAsDuration("BATCH_PROCESS_TIMEOUT", 3*time.Minute),
		},
	}

	if path == "" {
		path = os.Getenv("POEXTRACT_CONFIG")
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, WrapError(err, "read config file")
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, WrapError(err, "parse config file")
		}
	}
	return cfg, nil
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
	}
	if c.Chunking.MaxChunkChars <= 0 {
		return NewAppError("CONFIG_ERROR", "chunking.max_chunk_chars must be positive", ErrInvalidInput)
	}
	if c.Chunking.MinChunkChars < 0 || c.Chunking.MinChunkChars > c.Chunking.MaxChunkChars {
		return NewAppError("CONFIG_ERROR", "chunking.min_chunk_chars out of range", ErrInvalidInput)
	}
	if c.Chunking.OverlapChars < 0 || c.Chunking.OverlapChars >= c.Chunking.MaxChunkChars {
		return NewAppError("CONFIG_ERROR", "chunking.overlap_chars out of range", ErrInvalidInput)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
