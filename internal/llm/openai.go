package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// openAICompleter implements completer for OpenAI chat models
type openAICompleter struct {
	client *openai.Client
	config *Config
}

func newOpenAIClient(config *Config) *openai.Client {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	return openai.NewClientWithConfig(clientConfig)
}

func newOpenAICompleter(config *Config) *openAICompleter {
	return &openAICompleter{client: newOpenAIClient(config), config: config}
}

func (c *openAICompleter) complete(ctx context.Context, req completion) (string, error) {
	model := c.config.GetModel(req.task)
	if model == "" {
		return "", fmt.Errorf("no model configured for task %s", req.task)
	}

	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if req.media == nil {
		user.Content = req.user
	} else {
		if req.media.IsPDF() {
			return "", &ErrUnsupportedMedia{Provider: ProviderOpenAI, MIMEType: req.media.MIMEType}
		}
		dataURL := "data:" + req.media.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(req.media.Data)
		user.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: req.user},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURL,
					Detail: openai.ImageURLDetailAuto,
				},
			},
		}
	}

	request := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.system},
			user,
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	// reasoning models reject temperature and the legacy token limit
	if isReasoningModel(model) {
		request.MaxCompletionTokens = c.config.MaxTokens
	} else {
		request.MaxTokens = c.config.MaxTokens
		request.Temperature = c.config.Temperature
	}

	resp, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("openai chat completion: %w", ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *openAICompleter) close() error {
	return nil
}

func isReasoningModel(model string) bool {
	m := strings.ToLower(model)
	return strings.HasPrefix(m, "o1") || strings.HasPrefix(m, "o3") || strings.HasPrefix(m, "o4") || strings.HasPrefix(m, "gpt-5")
}

// OpenAITranscriber converts speech to text with the OpenAI audio API
type OpenAITranscriber struct {
	client *openai.Client
	model  string
}

// NewTranscriber returns a transcriber for the configured provider.
// Providers that do not declare the transcription capability get ErrTranscriptionUnsupported.
func NewTranscriber(config *Config) (*OpenAITranscriber, error) {
	if config == nil || !config.Capabilities().Transcription {
		return nil, ErrTranscriptionUnsupported
	}
	if config.APIKey == "" {
		return nil, &ClientError{Provider: config.Provider, Message: "API key is required"}
	}
	model := config.GetModel(TaskTranscription)
	if model == "" || model == config.GetModel(TaskText) {
		model = openai.Whisper1
	}
	return &OpenAITranscriber{client: newOpenAIClient(config), model: model}, nil
}

// Transcribe sends audio read from r and returns the plain text transcript.
// filename is used by the API to infer the media format.
func (t *OpenAITranscriber) Transcribe(ctx context.Context, filename string, r io.Reader) (string, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: filename,
		Reader:   r,
		Format:   openai.AudioResponseFormatText,
	})
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
