package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/logger"
)

// namedProvider is a Provider with a display name.
type namedProvider interface {
	Provider
	Name() string
}

type providerEntry struct {
	name     string
	provider Provider
}

// MultiProvider tries models in priority order and moves to the next one
// when the current model is out of quota, rate limited or unavailable.
type MultiProvider struct {
	entries []providerEntry
	current int
	mu      sync.RWMutex
}

// NewMultiProvider builds an OpenAIProvider per config.
func NewMultiProvider(configs []ModelConfig) (*MultiProvider, error) {
	if len(configs) == 0 {
		return nil, errors.New("at least one model config is required")
	}
	providers := make([]Provider, 0, len(configs))
	for _, cfg := range configs {
		providers = append(providers, NewOpenAIProvider(cfg))
	}
	return NewMultiProviderFrom(providers...)
}

// NewMultiProviderFrom wraps existing providers.
func NewMultiProviderFrom(providers ...Provider) (*MultiProvider, error) {
	if len(providers) == 0 {
		return nil, errors.New("at least one provider is required")
	}
	entries := make([]providerEntry, 0, len(providers))
	for i, p := range providers {
		name := fmt.Sprintf("model-%d", i+1)
		if np, ok := p.(namedProvider); ok && np.Name() != "" {
			name = np.Name()
		}
		entries = append(entries, providerEntry{name: name, provider: p})
	}

	if len(entries) > 1 {
		logger.Infof("[llm] %d models configured: %s", len(entries), formatModelNames(entries))
	}
	return &MultiProvider{entries: entries}, nil
}

// CurrentName returns the name of the active model.
func (m *MultiProvider) CurrentName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries[m.current].name
}

// Complete implements Provider, starting from the active model.
func (m *MultiProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	m.mu.RLock()
	startIdx := m.current
	total := len(m.entries)
	m.mu.RUnlock()

	var lastErr error
	for i := 0; i < total; i++ {
		idx := (startIdx + i) % total
		entry := m.entries[idx]

		logger.Debugf("[llm] trying model [%s] (%d/%d)", entry.name, idx+1, total)

		out, err := entry.provider.Complete(ctx, messages)
		if err == nil {
			if idx != startIdx {
				m.mu.Lock()
				m.current = idx
				m.mu.Unlock()
				logger.Infof("[llm] switched to model [%s]", entry.name)
			}
			return out, nil
		}

		lastErr = err
		logger.Warnf("[llm] model [%s] failed: %v", entry.name, err)

		if ctx.Err() != nil || !shouldFallback(err) {
			return "", err
		}
		if i+1 < total {
			logger.Infof("[llm] falling back from [%s]", entry.name)
		}
	}

	return "", fmt.Errorf("all models unavailable, last error: %w", lastErr)
}

// shouldFallback reports whether err means another model may succeed.
func shouldFallback(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	switch code := statusCode(err); {
	case code == http.StatusPaymentRequired, code == http.StatusTooManyRequests, code >= 500:
		return true
	case code == http.StatusNotFound:
		// unknown or retired model name
		return true
	case code != 0:
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	fallbackKeywords := []string{
		"insufficient", "quota", "rate limit", "too many requests",
		"timeout", "deadline exceeded", "connection refused", "connection reset",
	}
	for _, kw := range fallbackKeywords {
		if strings.Contains(errMsg, kw) {
			return true
		}
	}
	return false
}

func formatModelNames(entries []providerEntry) string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return strings.Join(names, " -> ")
}
