// Package config provides configuration loading and validation for the CLI and HTTP server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/jonathan/climatewash/internal/export"
	"github.com/jonathan/climatewash/internal/fetch"
	"github.com/jonathan/climatewash/internal/llm"
	"github.com/jonathan/climatewash/internal/server/ratelimit"
	"github.com/jonathan/climatewash/internal/transcript"
)

// EnvPrefix prefixes every environment override, e.g. CLIMATEWASH_LLM_PROVIDER
const EnvPrefix = "CLIMATEWASH"

// FileName is the config file name searched for when no path is given
const FileName = "climatewash"

// Staging backends
const (
	StagingLocal = "local"
	StagingMinIO = "minio"
)

// Config represents the application configuration.
// Every field has a default; a config file and environment variables override them.
type Config struct {
	LLM        LLMConfig        `mapstructure:"llm"`
	Transcript TranscriptConfig `mapstructure:"transcript"`
	Staging    StagingConfig    `mapstructure:"staging"`
	Fetch      FetchConfig      `mapstructure:"fetch"`
	Export     ExportConfig     `mapstructure:"export"`
	Criteria   CriteriaConfig   `mapstructure:"criteria"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
}

// LLMConfig selects the evaluation backend
type LLMConfig struct {
	Provider           string        `mapstructure:"provider" validate:"required,oneof=gemini openai anthropic"`
	APIKey             string        `mapstructure:"api_key"`
	BaseURL            string        `mapstructure:"base_url" validate:"omitempty,url"`
	TextModel          string        `mapstructure:"text_model"`
	VisionModel        string        `mapstructure:"vision_model"`
	TranscriptionModel string        `mapstructure:"transcription_model"`
	Temperature        float32       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxTokens          int           `mapstructure:"max_tokens" validate:"gt=0"`
	Breaker            BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig configures the circuit breaker around backend calls
type BreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	FailureThreshold uint32        `mapstructure:"failure_threshold" validate:"required_if=Enabled true"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout"`
}

// TranscriptConfig configures caption acquisition
type TranscriptConfig struct {
	PrimaryLanguage  string `mapstructure:"primary_language" validate:"required"`
	FallbackLanguage string `mapstructure:"fallback_language" validate:"required"`
	YouTubeAPIKey    string `mapstructure:"youtube_api_key"`
}

// StagingConfig selects where uploaded media is staged before transcription
type StagingConfig struct {
	Backend string      `mapstructure:"backend" validate:"oneof=local minio"`
	Dir     string      `mapstructure:"dir"`
	MinIO   MinIOConfig `mapstructure:"minio"`
}

// MinIOConfig holds the object storage settings for the minio staging backend
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Prefix    string `mapstructure:"prefix"`
}

// FetchConfig configures web page retrieval
type FetchConfig struct {
	Timeout        time.Duration `mapstructure:"timeout" validate:"gt=0"`
	UserAgent      string        `mapstructure:"user_agent" validate:"required"`
	UseBrowser     bool          `mapstructure:"use_browser"`
	BrowserTimeout time.Duration `mapstructure:"browser_timeout"`
}

// ExportConfig configures the spreadsheet export
type ExportConfig struct {
	SpreadsheetID   string        `mapstructure:"spreadsheet_id"`
	SheetName       string        `mapstructure:"sheet_name"`
	CredentialsFile string        `mapstructure:"credentials_file"`
	SettleDelay     time.Duration `mapstructure:"settle_delay" validate:"gte=0"`
}

// CriteriaConfig selects the criteria file and the default selection
type CriteriaConfig struct {
	File        string `mapstructure:"file"`
	Version     string `mapstructure:"version"`
	GreenClaims bool   `mapstructure:"green_claims"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Port           int             `mapstructure:"port" validate:"min=1,max=65535"`
	AllowedOrigins []string        `mapstructure:"allowed_origins"`
	RequestTimeout time.Duration   `mapstructure:"request_timeout" validate:"gt=0"`
	MaxUploadBytes int64           `mapstructure:"max_upload_bytes" validate:"gt=0"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig limits requests per client IP. Diagnosis and transcript endpoints get their own bucket.
type RateLimitConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	DefaultLimit    int           `mapstructure:"default_limit" validate:"gte=0"`
	DefaultWindow   time.Duration `mapstructure:"default_window"`
	DiagnosisLimit  int           `mapstructure:"diagnosis_limit" validate:"gte=0"`
	DiagnosisWindow time.Duration `mapstructure:"diagnosis_window"`
	DiagnosisBurst  int           `mapstructure:"diagnosis_burst" validate:"gte=0"`
	Whitelist       []string      `mapstructure:"whitelist"`
	Blacklist       []string      `mapstructure:"blacklist"`
}

// LogConfig configures the logger
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// providerKeyEnv lists the conventional API key variables consulted when llm.api_key is unset
var providerKeyEnv = map[string]string{
	string(llm.ProviderGemini):    "GEMINI_API_KEY",
	string(llm.ProviderOpenAI):    "OPENAI_API_KEY",
	string(llm.ProviderAnthropic): "ANTHROPIC_API_KEY",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", string(llm.ProviderGemini))
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.text_model", "")
	v.SetDefault("llm.vision_model", "")
	v.SetDefault("llm.transcription_model", "")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", 4000)
	v.SetDefault("llm.breaker.enabled", true)
	v.SetDefault("llm.breaker.failure_threshold", 5)
	v.SetDefault("llm.breaker.open_timeout", 30*time.Second)

	v.SetDefault("transcript.primary_language", transcript.DefaultPrimaryLanguage)
	v.SetDefault("transcript.fallback_language", transcript.DefaultFallbackLanguage)
	v.SetDefault("transcript.youtube_api_key", "")

	v.SetDefault("staging.backend", StagingLocal)
	v.SetDefault("staging.dir", "")
	v.SetDefault("staging.minio.endpoint", "")
	v.SetDefault("staging.minio.region", "")
	v.SetDefault("staging.minio.bucket", "climatewash-media")
	v.SetDefault("staging.minio.access_key", "")
	v.SetDefault("staging.minio.secret_key", "")
	v.SetDefault("staging.minio.use_ssl", true)
	v.SetDefault("staging.minio.prefix", "uploads/")

	v.SetDefault("fetch.timeout", fetch.DefaultTimeout)
	v.SetDefault("fetch.user_agent", fetch.DefaultUserAgent)
	v.SetDefault("fetch.use_browser", false)
	v.SetDefault("fetch.browser_timeout", 60*time.Second)

	v.SetDefault("export.spreadsheet_id", "")
	v.SetDefault("export.sheet_name", "ClimateWash results")
	v.SetDefault("export.credentials_file", "")
	v.SetDefault("export.settle_delay", export.DefaultSettleDelay)

	v.SetDefault("criteria.file", "")
	v.SetDefault("criteria.version", "")
	v.SetDefault("criteria.green_claims", true)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.request_timeout", 3*time.Minute)
	v.SetDefault("server.max_upload_bytes", int64(25<<20))
	v.SetDefault("server.rate_limit.enabled", true)
	v.SetDefault("server.rate_limit.default_limit", 120)
	v.SetDefault("server.rate_limit.default_window", time.Minute)
	v.SetDefault("server.rate_limit.diagnosis_limit", 20)
	v.SetDefault("server.rate_limit.diagnosis_window", time.Hour)
	v.SetDefault("server.rate_limit.diagnosis_burst", 5)
	v.SetDefault("server.rate_limit.whitelist", []string{})
	v.SetDefault("server.rate_limit.blacklist", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration from path. With an empty path a climatewash.yaml in the working
// directory or ./config is used when present, otherwise defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyEnvFallbacks()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnvFallbacks() {
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv(providerKeyEnv[c.LLM.Provider])
	}
	if c.Transcript.YouTubeAPIKey == "" {
		c.Transcript.YouTubeAPIKey = os.Getenv("YOUTUBE_API_KEY")
	}
	if c.Export.CredentialsFile == "" {
		c.Export.CredentialsFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
}

// Validate checks that the configuration has valid values.
// API keys are not required here; the components that need them report their absence.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if c.Staging.Backend == StagingMinIO {
		if c.Staging.MinIO.Endpoint == "" || c.Staging.MinIO.Bucket == "" {
			return fmt.Errorf("config error: 'staging.minio.endpoint' and 'staging.minio.bucket' are required for the minio backend")
		}
	}
	if c.Export.SpreadsheetID != "" && c.Export.SheetName == "" {
		return fmt.Errorf("config error: 'export.sheet_name' is required when a spreadsheet is configured")
	}
	return nil
}

// BackendConfig returns the backend configuration: provider defaults with configured overrides applied
func (c *Config) BackendConfig() *llm.Config {
	cfg := llm.DefaultConfig(llm.Provider(c.LLM.Provider))
	cfg.APIKey = c.LLM.APIKey
	cfg.BaseURL = c.LLM.BaseURL
	cfg.Temperature = c.LLM.Temperature
	cfg.MaxTokens = c.LLM.MaxTokens
	cfg.Breaker = llm.BreakerConfig{
		Enabled:          c.LLM.Breaker.Enabled,
		FailureThreshold: c.LLM.Breaker.FailureThreshold,
		OpenTimeout:      c.LLM.Breaker.OpenTimeout,
	}
	overrides := map[llm.Task]string{
		llm.TaskText:          c.LLM.TextModel,
		llm.TaskVision:        c.LLM.VisionModel,
		llm.TaskTranscription: c.LLM.TranscriptionModel,
	}
	for task, model := range overrides {
		if model != "" {
			cfg = cfg.WithModel(task, model)
		}
	}
	return cfg
}

// Languages returns the caption languages tried by the cascade
func (c *Config) Languages() transcript.Languages {
	return transcript.Languages{
		Primary:  c.Transcript.PrimaryLanguage,
		Fallback: c.Transcript.FallbackLanguage,
	}
}

// MinIO returns the object storage settings of the minio staging backend
func (c *Config) MinIO() transcript.MinIOConfig {
	m := c.Staging.MinIO
	return transcript.MinIOConfig{
		Endpoint:  m.Endpoint,
		Region:    m.Region,
		Bucket:    m.Bucket,
		AccessKey: m.AccessKey,
		SecretKey: m.SecretKey,
		UseSSL:    m.UseSSL,
		Prefix:    m.Prefix,
	}
}

// PageOptions returns the fetch options for web pages
func (c *Config) PageOptions() *fetch.Options {
	opts := fetch.DefaultOptions()
	opts.Timeout = c.Fetch.Timeout
	opts.UserAgent = c.Fetch.UserAgent
	return opts
}

// ImageOptions returns the fetch options for images referenced by web pages
func (c *Config) ImageOptions() *fetch.Options {
	opts := fetch.ImageOptions()
	opts.UserAgent = c.Fetch.UserAgent
	return opts
}

// ExportEnabled reports whether a spreadsheet export target is configured
func (c *Config) ExportEnabled() bool {
	return c.Export.SpreadsheetID != ""
}

// ExportTarget returns the configured spreadsheet destination
func (c *Config) ExportTarget() export.Target {
	return export.Target{
		SpreadsheetID: c.Export.SpreadsheetID,
		SheetName:     c.Export.SheetName,
	}
}

// RateLimit returns the limiter configuration for the HTTP API
func (c *Config) RateLimit() ratelimit.Config {
	rl := c.Server.RateLimit
	cfg := ratelimit.NewConfig(rl.DefaultLimit, rl.DefaultWindow,
		ratelimit.DiagnosisRules(rl.DiagnosisLimit, rl.DiagnosisWindow, rl.DiagnosisBurst),
		rl.Whitelist, rl.Blacklist)
	cfg.Enabled = rl.Enabled
	return cfg
}
