package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicCompleter implements completer for Anthropic Claude models
type anthropicCompleter struct {
	client anthropic.Client
	config *Config
}

func newAnthropicCompleter(config *Config) *anthropicCompleter {
	// no automatic retries
	opts := []option.RequestOption{option.WithAPIKey(config.APIKey), option.WithMaxRetries(0)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	return &anthropicCompleter{client: anthropic.NewClient(opts...), config: config}
}

func (c *anthropicCompleter) complete(ctx context.Context, req completion) (string, error) {
	model := c.config.GetModel(req.task)
	if model == "" {
		return "", fmt.Errorf("no model configured for task %s", req.task)
	}

	blocks := []anthropic.ContentBlockParamUnion{}
	if req.media != nil {
		encoded := base64.StdEncoding.EncodeToString(req.media.Data)
		if req.media.IsPDF() {
			blocks = append(blocks, anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{Data: encoded}))
		} else {
			blocks = append(blocks, anthropic.NewImageBlockBase64(req.media.MIMEType, encoded))
		}
	}
	blocks = append(blocks, anthropic.NewTextBlock(req.user))

	maxTokens := int64(c.config.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4000
	}

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(float64(c.config.Temperature)),
		System:      []anthropic.TextBlockParam{{Text: req.system}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("anthropic messages: %w", ErrEmptyResponse)
	}
	return sb.String(), nil
}

func (c *anthropicCompleter) close() error {
	return nil
}
