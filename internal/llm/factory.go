package llm

import (
	"time"

	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/config"
)

// FromConfig builds a MultiProvider for model (or cfg.Model when empty)
// followed by cfg.FallbackModels.
func FromConfig(cfg config.OpenAIConfig, model string, temperature *float32) (*MultiProvider, error) {
	models := cfg.Models(model)
	configs := make([]ModelConfig, 0, len(models))
	for _, m := range models {
		configs = append(configs, ModelConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       m,
			Temperature: temperature,
			Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		})
	}
	return NewMultiProvider(configs)
}

// TranscriberFromConfig builds the speech-to-text client.
func TranscriberFromConfig(cfg config.OpenAIConfig) *OpenAIProvider {
	return NewOpenAIProvider(ModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}).WithTranscribeModel(cfg.TranscribeModel)
}

// Float32 returns a pointer to v.
func Float32(v float32) *float32 { return &v }
