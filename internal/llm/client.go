package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/climatewash/internal/types"
)

// Backend is the AI evaluation capability used by the normalizer.
// Implementations never return an error or panic across this boundary:
// every failure is reported as findings carrying the error shape.
type Backend interface {
	// AnalyzeText evaluates text content
	AnalyzeText(ctx context.Context, systemPrompt, userPrompt string) types.RawFindings
	// AnalyzeImage evaluates an image or document
	AnalyzeImage(ctx context.Context, systemPrompt, userPrompt string, media types.Media) types.RawFindings
	// Provider returns the provider backing this instance
	Provider() Provider
	// Close releases any resources held by the backend
	Close() error
}

// Observer receives one notification per backend call
type Observer interface {
	ObserveBackendCall(provider, operation string, elapsed time.Duration, errorCode string)
}

// completion is a single provider request
type completion struct {
	task   Task
	system string
	user   string
	media  *types.Media
}

// completer is the provider specific transport behind a Backend
type completer interface {
	complete(ctx context.Context, req completion) (string, error)
	close() error
}

// Option configures a backend
type Option func(*backend)

// WithLogger sets the logger used for recovered failures
func WithLogger(logger logrus.FieldLogger) Option {
	return func(b *backend) {
		b.logger = logger
	}
}

// WithObserver registers a call observer
func WithObserver(o Observer) Option {
	return func(b *backend) {
		b.observer = o
	}
}

// NewBackend creates the backend for the configured provider.
// The provider is chosen from configuration only.
func NewBackend(ctx context.Context, config *Config, opts ...Option) (Backend, error) {
	if config == nil {
		config = DefaultConfig(ProviderGemini)
	}
	if config.APIKey == "" {
		return nil, &ClientError{Provider: config.Provider, Message: "API key is required"}
	}

	var (
		c   completer
		err error
	)
	switch config.Provider {
	case ProviderGemini:
		c, err = newGeminiCompleter(ctx, config)
	case ProviderOpenAI:
		c = newOpenAICompleter(config)
	case ProviderAnthropic:
		c = newAnthropicCompleter(config)
	default:
		return nil, &ClientError{Provider: config.Provider, Message: "unsupported provider"}
	}
	if err != nil {
		return nil, err
	}

	return newBackend(config, c, opts...), nil
}

func newBackend(config *Config, c completer, opts ...Option) *backend {
	b := &backend{
		config:    config,
		completer: c,
		logger:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if config.Breaker.Enabled {
		b.completer = newBreakerCompleter(string(config.Provider), c, config.Breaker, b.logger)
	}
	return b
}

// backend adapts a provider completer to the Backend contract
type backend struct {
	config    *Config
	completer completer
	logger    logrus.FieldLogger
	observer  Observer
}

func (b *backend) Provider() Provider {
	return b.config.Provider
}

func (b *backend) AnalyzeText(ctx context.Context, systemPrompt, userPrompt string) types.RawFindings {
	return b.call(ctx, "analyze_text", completion{
		task:   TaskText,
		system: systemPrompt,
		user:   userPrompt,
	})
}

func (b *backend) AnalyzeImage(ctx context.Context, systemPrompt, userPrompt string, media types.Media) types.RawFindings {
	if len(media.Data) == 0 {
		return types.ErrorFindings(ErrCodeUnsupported, "no media content")
	}
	if media.IsPDF() && !b.config.Capabilities().Documents {
		return types.ErrorFindings(ErrCodeUnsupported, (&ErrUnsupportedMedia{Provider: b.config.Provider, MIMEType: media.MIMEType}).Error())
	}
	return b.call(ctx, "analyze_image", completion{
		task:   TaskVision,
		system: systemPrompt,
		user:   userPrompt,
		media:  &media,
	})
}

func (b *backend) Close() error {
	return b.completer.close()
}

// call runs one completion and converts every failure into the error shape
func (b *backend) call(ctx context.Context, operation string, req completion) (findings types.RawFindings) {
	start := time.Now()
	log := b.logger.WithFields(logrus.Fields{"provider": b.config.Provider, "operation": operation})

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("recovered panic in backend call")
			findings = types.ErrorFindings(ErrCodeInternal, fmt.Sprint(r))
		}
		errCode := ""
		if findings.Err != nil {
			errCode = findings.Err.Message
		}
		if b.observer != nil {
			b.observer.ObserveBackendCall(string(b.config.Provider), operation, time.Since(start), errCode)
		}
	}()

	text, err := b.completer.complete(ctx, req)
	if err != nil {
		code := classifyError(err)
		log.WithError(err).WithField("code", code).Warn("backend call failed")
		return types.ErrorFindings(code, err.Error())
	}

	return ParseFindings(text, log)
}
