// Package llm provides the AI evaluation backend: a provider-neutral interface for analyzing
// content against the diagnosis criteria, with Gemini, OpenAI and Anthropic implementations.
package llm

import "time"

// Task identifies which kind of call a model is used for
type Task string

const (
	// TaskText is text analysis
	TaskText Task = "text"
	// TaskVision is image and document analysis
	TaskVision Task = "vision"
	// TaskTranscription is speech to text
	TaskTranscription Task = "transcription"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
	// ProviderOpenAI is the OpenAI provider
	ProviderOpenAI Provider = "openai"
	// ProviderAnthropic is the Anthropic/Claude provider
	ProviderAnthropic Provider = "anthropic"
)

// Capabilities declares optional features of a provider
type Capabilities struct {
	Transcription bool
	Documents     bool
}

var capabilities = map[Provider]Capabilities{
	ProviderGemini:    {Transcription: false, Documents: true},
	ProviderOpenAI:    {Transcription: true, Documents: false},
	ProviderAnthropic: {Transcription: false, Documents: true},
}

// CapabilitiesOf returns the declared capabilities of provider
func CapabilitiesOf(provider Provider) Capabilities {
	return capabilities[provider]
}

// Valid reports whether p is a supported provider
func (p Provider) Valid() bool {
	_, ok := capabilities[p]
	return ok
}

// BreakerConfig configures the circuit breaker around backend calls
type BreakerConfig struct {
	Enabled          bool
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// Config holds the model configuration for the application
type Config struct {
	Provider    Provider
	APIKey      string
	BaseURL     string
	Models      map[Task]string
	Temperature float32
	MaxTokens   int
	Breaker     BreakerConfig
}

// DefaultConfig returns the default configuration for provider
func DefaultConfig(provider Provider) *Config {
	cfg := &Config{
		Provider:    provider,
		Temperature: 0.1,
		MaxTokens:   4000,
		Breaker: BreakerConfig{
			Enabled:          true,
			FailureThreshold: 5,
			OpenTimeout:      30 * time.Second,
		},
	}

	switch provider {
	case ProviderOpenAI:
		cfg.Models = map[Task]string{
			TaskText:          "gpt-4o",
			TaskVision:        "gpt-4o",
			TaskTranscription: "whisper-1",
		}
	case ProviderAnthropic:
		cfg.Models = map[Task]string{
			TaskText:   "claude-sonnet-4-5",
			TaskVision: "claude-sonnet-4-5",
		}
	default:
		cfg.Provider = ProviderGemini
		cfg.Models = map[Task]string{
			TaskText:   "gemini-2.5-flash",
			TaskVision: "gemini-2.5-flash",
		}
	}
	return cfg
}

// GetModel returns the model name for a task, falling back to the text model
func (c *Config) GetModel(task Task) string {
	if model, ok := c.Models[task]; ok && model != "" {
		return model
	}
	if model, ok := c.Models[TaskText]; ok {
		return model
	}
	return ""
}

// WithModel returns a new Config with a specific model for a task
func (c *Config) WithModel(task Task, model string) *Config {
	newConfig := *c
	newConfig.Models = make(map[Task]string, len(c.Models)+1)
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[task] = model
	return &newConfig
}

// Capabilities returns the declared capabilities of the configured provider
func (c *Config) Capabilities() Capabilities {
	return CapabilitiesOf(c.Provider)
}
