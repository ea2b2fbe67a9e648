package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
// API Key Precedence Order:
// 1. Vault (if configured) - Highest priority
// 2. Config File values
// 3. Environment Variables (CVSTUDIO_AI_APIKEY, etc.)
// 4. Default values - Lowest priority
type Config struct {
	AI            AIConfig            `mapstructure:"ai"`
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Email         EmailConfig         `mapstructure:"email"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Conversation  ConversationConfig  `mapstructure:"conversation"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// AIConfig holds AI service configuration
type AIConfig struct {
	// Global defaults; operation sections inherit anything they leave unset
	Provider         string           `mapstructure:"provider"`
	Model            string           `mapstructure:"model"`
	Timeout          time.Duration    `mapstructure:"timeout"`
	APIKey           string           `mapstructure:"apiKey"`
	MaxRetries       int              `mapstructure:"maxRetries"`
	Temperature      float32          `mapstructure:"temperature"`
	TopK             float32          `mapstructure:"topK"`
	TopP             float32          `mapstructure:"topP"`
	MaxOutputTokens  int32            `mapstructure:"maxOutputTokens"`
	UseSystemPrompts bool             `mapstructure:"useSystemPrompts"`
	CustomPrompts    PromptConfig     `mapstructure:"customPrompts"`
	Fallbacks        []FallbackConfig `mapstructure:"fallbacks"`

	// Operation-specific configurations
	Resume      ModelConfig `mapstructure:"resume"`
	CoverLetter ModelConfig `mapstructure:"coverLetter"`
	Generate    ModelConfig `mapstructure:"generate"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// ModelConfig holds the model settings for one operation. Pointer fields
// distinguish "unset, inherit the global value" from an explicit zero.
type ModelConfig struct {
	Provider         string               `mapstructure:"provider"`
	Model            string               `mapstructure:"model"`
	Timeout          *time.Duration       `mapstructure:"timeout"`
	APIKey           string               `mapstructure:"apiKey"`
	MaxRetries       *int                 `mapstructure:"maxRetries"`
	Temperature      *float32             `mapstructure:"temperature"`
	TopK             *float32             `mapstructure:"topK"`
	TopP             *float32             `mapstructure:"topP"`
	MaxOutputTokens  *int32               `mapstructure:"maxOutputTokens"`
	UseSystemPrompts *bool                `mapstructure:"useSystemPrompts"`
	CustomPrompts    PromptConfig         `mapstructure:"customPrompts"`
	CircuitBreaker   CircuitBreakerConfig `mapstructure:"circuitBreaker"`
	Fallbacks        []FallbackConfig     `mapstructure:"fallbacks"`
}

// FallbackConfig names one backup model tried when the one before it in
// the chain fails. The chain order is the slice order; everything a
// fallback does not override is inherited from the operation config.
type FallbackConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"apiKey"`
}

// PromptConfig holds configuration for customizable prompts
type PromptConfig struct {
	SystemPrompts SystemPrompts `mapstructure:"systemPrompts"`
	UserPrompts   UserPrompts   `mapstructure:"userPrompts"`
}

// SystemPrompts contains system-level instructions. The *File variants
// point at external files loaded (and hot-reloaded) at runtime.
type SystemPrompts struct {
	ExtractResume          string `mapstructure:"extractResume"`
	ExtractResumeFile      string `mapstructure:"extractResumeFile"`
	ExtractCoverLetter     string `mapstructure:"extractCoverLetter"`
	ExtractCoverLetterFile string `mapstructure:"extractCoverLetterFile"`
	Generate               string `mapstructure:"generate"`
	GenerateFile           string `mapstructure:"generateFile"`
}

// UserPrompts contains user-level prompt templates
type UserPrompts struct {
	ExtractResume           string `mapstructure:"extractResume"`
	ExtractResumeFile       string `mapstructure:"extractResumeFile"`
	ExtractCoverLetter      string `mapstructure:"extractCoverLetter"`
	ExtractCoverLetterFile  string `mapstructure:"extractCoverLetterFile"`
	GenerateResume          string `mapstructure:"generateResume"`
	GenerateResumeFile      string `mapstructure:"generateResumeFile"`
	GenerateCoverLetter     string `mapstructure:"generateCoverLetter"`
	GenerateCoverLetterFile string `mapstructure:"generateCoverLetterFile"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"readTimeout"`
	WriteTimeout   time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout    time.Duration `mapstructure:"idleTimeout"`
	MaxRequestSize int64         `mapstructure:"maxRequestSize"`

	// Rate Limiting Configuration
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`        // Enable/disable rate limiting
	RequestsPerMin int           `mapstructure:"requestsPerMin"` // Requests allowed per minute
	BurstCapacity  int           `mapstructure:"burstCapacity"`  // Burst capacity for token bucket
	ByIP           bool          `mapstructure:"byIP"`           // Enable per-IP rate limiting
	ByUser         bool          `mapstructure:"byUser"`         // Enable per-user rate limiting
	Window         time.Duration `mapstructure:"window"`         // Rate limiting window duration
}

// DatabaseConfig holds Postgres connection configuration
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"maxConns"`
}

// StorageConfig holds the S3 blob storage configuration. Endpoint is
// only set for S3-compatible stores (minio in development).
type StorageConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Region        string        `mapstructure:"region"`
	Bucket        string        `mapstructure:"bucket"`
	Endpoint      string        `mapstructure:"endpoint"`
	AccessKey     string        `mapstructure:"accessKey"`
	SecretKey     string        `mapstructure:"secretKey"`
	PresignExpiry time.Duration `mapstructure:"presignExpiry"`
}

// EmailConfig holds SES mail delivery configuration
type EmailConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Region      string `mapstructure:"region"`
	FromAddress string `mapstructure:"fromAddress"`
	FromName    string `mapstructure:"fromName"`
	FrontendURL string `mapstructure:"frontendURL"`
}

// AuthConfig holds session token and password settings
type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwtSecret"`
	TokenTTL   time.Duration `mapstructure:"tokenTTL"`
	BcryptCost int           `mapstructure:"bcryptCost"`
	ResetTTL   time.Duration `mapstructure:"resetTTL"`
}

// ConversationConfig tunes the extraction loop
type ConversationConfig struct {
	TurnTimeout      time.Duration `mapstructure:"turnTimeout"`
	AutoSaveDebounce time.Duration `mapstructure:"autoSaveDebounce"`
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool              `mapstructure:"enabled"`
	ServiceName     string            `mapstructure:"serviceName"`
	ServiceVersion  string            `mapstructure:"serviceVersion"`
	ServiceInstance string            `mapstructure:"serviceInstance"`
	ConsoleOutput   bool              `mapstructure:"consoleOutput"`
	SampleRate      float64           `mapstructure:"sampleRate"`
	Tracing         TracingConfig     `mapstructure:"tracing"`
	Metrics         MetricsConfig     `mapstructure:"metrics"`
	Console         ConsoleConfig     `mapstructure:"console"`
	Prometheus      PrometheusConfig  `mapstructure:"prometheus"`
	OTLP            OTLPConfig        `mapstructure:"otlp"`
	HealthCheck     HealthCheckConfig `mapstructure:"healthCheck"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	SampleRate float64 `mapstructure:"sampleRate"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig holds console output configuration
type ConsoleConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// HealthCheckConfig holds health check configuration
type HealthCheckConfig struct {
	Timeout             time.Duration `mapstructure:"timeout"`
	AIModelCheckTimeout time.Duration `mapstructure:"aiModelCheckTimeout"`
}

// LoadConfig loads configuration from environment variables and a config file
func LoadConfig() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("CVSTUDIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/cvstudio/")
	v.AddConfigPath("$HOME/.cvstudio")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		log.Printf("[CONFIG] Loaded config file: %s", v.ConfigFileUsed())
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.loadPromptsFromFiles(); err != nil {
		return nil, fmt.Errorf("failed to load custom prompts from files: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.AI.APIKey == "" {
		return fmt.Errorf("AI API key is required (set CVSTUDIO_AI_APIKEY environment variable)")
	}

	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI timeout must be positive")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	validFormats := make(map[string]bool)
	for _, format := range c.App.SupportedFormats {
		validFormats[format] = true
	}
	if !validFormats[c.App.DefaultFormat] {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	for _, fb := range c.AI.Fallbacks {
		if fb.Model == "" {
			return fmt.Errorf("fallback entries must name a model")
		}
	}

	return nil
}

// ValidateServer performs the extra checks the serve path needs beyond
// CLI usage: persistent storage and a token secret.
func (c *Config) ValidateServer() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database URL is required in server mode (set CVSTUDIO_DATABASE_URL)")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required in server mode (set CVSTUDIO_AUTH_JWTSECRET)")
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage bucket is required when storage is enabled")
	}
	if c.Email.Enabled && c.Email.FromAddress == "" {
		return fmt.Errorf("email fromAddress is required when email is enabled")
	}
	return nil
}
