package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed prices.yaml
var pricesYAML []byte

type Config struct {
	Server   ServerConfig
	OpenAI   OpenAIConfig
	Gemini   GeminiConfig
	Geocode  GeocodeConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Pipeline PipelineConfig
	Prices   PricesConfig
}

type ServerConfig struct {
	Addr string // listen address, defaults to :8080
}

type OpenAIConfig struct {
	Token string
}

type GeminiConfig struct {
	APIKey string
}

// Provider returns which AI backend is configured. Gemini wins when both
// keys are set.
func (c *Config) Provider() string {
	if c.Gemini.APIKey != "" {
		return "gemini"
	}
	if c.OpenAI.Token != "" {
		return "openai"
	}
	return ""
}

type GeocodeConfig struct {
	BaseURL string // Nominatim endpoint, empty for the public instance
}

type StorageConfig struct {
	Root          string // local blob root directory (default ./data)
	PublicBaseURL string // base URL prefixed to stored paths (default http://localhost:8080/files)
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type PipelineConfig struct {
	ClusterThresholdKM float64       // spatial clustering threshold (default 10)
	TemporalGap        time.Duration // visit split gap (default 72h)
	UploadWorkers      int           // concurrent upload workers (default 5)
	PhotoTimeout       time.Duration // per-photo processing timeout (default 30s)
}

type PricesConfig struct {
	Models map[string]ModelPricing `yaml:"models"`
}

type ModelPricing struct {
	Input  float64 `yaml:"input"`  // per 1M tokens
	Output float64 `yaml:"output"` // per 1M tokens
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a positive float with a default.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envString reads an environment variable with a default.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var prices PricesConfig
	if err := yaml.Unmarshal(pricesYAML, &prices); err != nil {
		// Embedded file, should never happen in practice.
		panic("failed to unmarshal embedded prices.yaml: " + err.Error())
	}

	return &Config{
		Server: ServerConfig{
			Addr: envString("SERVER_ADDR", ":8080"),
		},
		OpenAI: OpenAIConfig{
			Token: os.Getenv("OPENAI_TOKEN"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
		},
		Geocode: GeocodeConfig{
			BaseURL: os.Getenv("NOMINATIM_URL"),
		},
		Storage: StorageConfig{
			Root:          envString("STORAGE_ROOT", "./data"),
			PublicBaseURL: envString("STORAGE_PUBLIC_URL", "http://localhost:8080/files"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Pipeline: PipelineConfig{
			ClusterThresholdKM: envFloat("CLUSTER_THRESHOLD_KM", 10),
			TemporalGap:        time.Duration(envInt("TEMPORAL_GAP_DAYS", 3)) * 24 * time.Hour,
			UploadWorkers:      envInt("UPLOAD_WORKERS", 5),
			PhotoTimeout:       time.Duration(envInt("PHOTO_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Prices: prices,
	}
}

// GetModelPricing returns pricing for a specific model. Unknown models get
// zero pricing, which disables cost accounting but never blocks requests.
func (c *Config) GetModelPricing(modelName string) ModelPricing {
	if pricing, ok := c.Prices.Models[modelName]; ok {
		return pricing
	}
	return ModelPricing{}
}
