package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ModelConfig describes one model endpoint.
type ModelConfig struct {
	Name        string // display name for logs, defaults to Model
	APIKey      string
	BaseURL     string // empty uses the public OpenAI endpoint
	Model       string
	Temperature *float32
	Timeout     time.Duration
}

// OpenAIProvider calls the chat completions and audio transcription APIs.
type OpenAIProvider struct {
	client          *openai.Client
	name            string
	model           string
	transcribeModel string
	temperature     *float32
}

// NewOpenAIProvider creates a provider for cfg.
func NewOpenAIProvider(cfg ModelConfig) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	name := cfg.Name
	if name == "" {
		name = cfg.Model
	}
	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(clientCfg),
		name:        name,
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

// WithTranscribeModel sets the model used by Transcribe.
func (p *OpenAIProvider) WithTranscribeModel(model string) *OpenAIProvider {
	p.transcribeModel = model
	return p
}

// Name returns the display name.
func (p *OpenAIProvider) Name() string { return p.name }

// Complete implements Provider.
func (p *OpenAIProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	if p.temperature != nil {
		req.Temperature = *p.temperature
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("[llm] %s chat completion: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// Transcribe implements Transcriber.
func (p *OpenAIProvider) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if p.transcribeModel == "" {
		return "", errors.New("[llm] no transcription model configured")
	}
	resp, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    p.transcribeModel,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("[llm] transcribe %s: %w", audioPath, err)
	}
	return resp.Text, nil
}

// statusCode extracts an HTTP status from go-openai errors, or 0.
func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
