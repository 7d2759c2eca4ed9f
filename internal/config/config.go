package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Worker     WorkerConfig     `yaml:"worker"`
	Extract    ExtractConfig    `yaml:"extract"`
	Transcript TranscriptConfig `yaml:"transcript"`
	LLM        LLMConfig        `yaml:"llm"`
	Download   DownloadConfig   `yaml:"download"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `yaml:"host" envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port         int           `yaml:"port" envconfig:"SERVER_PORT" default:"8743"`
	APIKey       string        `yaml:"api_key" envconfig:"API_KEY"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"2m"`
}

// StorageConfig holds persistence configuration.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path" envconfig:"DATABASE_PATH" default:"/data/moodgrab.db"`
}

// WorkerConfig holds extraction worker pool configuration.
type WorkerConfig struct {
	Count        int           `yaml:"count" envconfig:"WORKER_COUNT" default:"3"`
	PollInterval time.Duration `yaml:"poll_interval" envconfig:"WORKER_POLL_INTERVAL" default:"500ms"`
	MaxRetries   int           `yaml:"max_retries" envconfig:"WORKER_MAX_RETRIES" default:"2"`
	// JobTimeout is the watchdog ceiling for one extraction run. An item
	// never stays in processing past this.
	JobTimeout time.Duration `yaml:"job_timeout" envconfig:"WORKER_JOB_TIMEOUT" default:"90s"`

	// BatchConcurrency bounds how many URLs a batch ingest validates
	// and registers at once.
	BatchConcurrency int `yaml:"batch_concurrency" envconfig:"WORKER_BATCH_CONCURRENCY" default:"8"`
}

// ExtractConfig holds metadata extraction tier configuration.
type ExtractConfig struct {
	OEmbedTimeout     time.Duration `yaml:"oembed_timeout" envconfig:"EXTRACT_OEMBED_TIMEOUT" default:"8s"`
	AggregatorTimeout time.Duration `yaml:"aggregator_timeout" envconfig:"EXTRACT_AGGREGATOR_TIMEOUT" default:"18s"`
	ScrapeTimeout     time.Duration `yaml:"scrape_timeout" envconfig:"EXTRACT_SCRAPE_TIMEOUT" default:"20s"`

	// AggregatorBaseURL points at the third-party TikTok proxy service.
	AggregatorBaseURL string `yaml:"aggregator_base_url" envconfig:"AGGREGATOR_BASE_URL" default:"https://www.tikwm.com"`
	AggregatorAPIKey  string `yaml:"aggregator_api_key" envconfig:"AGGREGATOR_API_KEY"`

	// AggregatorConcurrency bounds in-flight requests to the aggregator
	// so batch ingestion doesn't trip its rate limits.
	AggregatorConcurrency int `yaml:"aggregator_concurrency" envconfig:"AGGREGATOR_CONCURRENCY" default:"4"`

	// CacheTTL bounds how long aggregator lookups are reused.
	CacheTTL     time.Duration `yaml:"cache_ttl" envconfig:"EXTRACT_CACHE_TTL" default:"10m"`
	CacheEntries int           `yaml:"cache_entries" envconfig:"EXTRACT_CACHE_ENTRIES" default:"512"`

	UserAgent string `yaml:"user_agent" envconfig:"EXTRACT_USER_AGENT" default:"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"`
}

// TranscriptConfig holds speech-to-text configuration. An empty APIKey
// disables the audio fallback; caption extraction still works.
type TranscriptConfig struct {
	APIKey  string        `yaml:"api_key" envconfig:"SPEECH_API_KEY"`
	BaseURL string        `yaml:"base_url" envconfig:"SPEECH_BASE_URL" default:"https://api.groq.com/openai/v1"`
	Model   string        `yaml:"model" envconfig:"SPEECH_MODEL" default:"whisper-large-v3"`
	Timeout time.Duration `yaml:"timeout" envconfig:"SPEECH_TIMEOUT" default:"3m"`

	// MaxAudioBytes and MaxDurationSeconds bound transcription cost.
	// Videos over either ceiling fail fast with a too_long reason.
	MaxAudioBytes      int64 `yaml:"max_audio_bytes" envconfig:"SPEECH_MAX_AUDIO_BYTES" default:"26214400"`
	MaxDurationSeconds int   `yaml:"max_duration_seconds" envconfig:"SPEECH_MAX_DURATION_SECONDS" default:"900"`
}

// LLMConfig holds enrichment model configuration.
type LLMConfig struct {
	APIKey  string        `yaml:"api_key" envconfig:"LLM_API_KEY"`
	BaseURL string        `yaml:"base_url" envconfig:"LLM_BASE_URL" default:"https://api.groq.com/openai/v1"`
	Model   string        `yaml:"model" envconfig:"LLM_MODEL" default:"llama-3.3-70b-versatile"`
	Timeout time.Duration `yaml:"timeout" envconfig:"LLM_TIMEOUT" default:"45s"`
}

// DownloadConfig holds audio/media download configuration.
type DownloadConfig struct {
	Timeout       time.Duration `yaml:"timeout" envconfig:"DOWNLOAD_TIMEOUT" default:"2m"`
	ReadTimeout   time.Duration `yaml:"read_timeout" envconfig:"DOWNLOAD_READ_TIMEOUT" default:"30s"`
	RetryDelay    time.Duration `yaml:"retry_delay" envconfig:"DOWNLOAD_RETRY_DELAY" default:"2s"`
	MaxRetryDelay time.Duration `yaml:"max_retry_delay" envconfig:"DOWNLOAD_MAX_RETRY_DELAY" default:"30s"`
	UserAgent     string        `yaml:"user_agent" envconfig:"DOWNLOAD_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Load from YAML file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Override with environment variables
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set. Speech and
// LLM keys are optional: their absence disables the corresponding
// features rather than failing startup.
func (c *Config) Validate() error {
	if c.Server.APIKey == "" {
		return fmt.Errorf("API_KEY is required")
	}
	if c.Storage.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.Worker.Count <= 0 {
		return fmt.Errorf("WORKER_COUNT must be positive")
	}
	if c.Transcript.MaxAudioBytes <= 0 {
		return fmt.Errorf("SPEECH_MAX_AUDIO_BYTES must be positive")
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
