package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/logger"
)

// Sink receives one message chunk at a time.
type Sink interface {
	Send(ctx context.Context, text string) error
}

// WebhookError is returned for a non-2xx webhook response.
type WebhookError struct {
	StatusCode int
	Body       string
}

func (e *WebhookError) Error() string {
	return fmt.Sprintf("slack webhook error %d: %s", e.StatusCode, e.Body)
}

const maxErrorBody = 400

// WebhookSink posts {"text": ...} to an incoming webhook.
type WebhookSink struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

// WebhookOption configures a WebhookSink.
type WebhookOption func(*WebhookSink)

// WithHTTPClient replaces the default client (20s timeout).
func WithHTTPClient(c *http.Client) WebhookOption {
	return func(s *WebhookSink) { s.client = c }
}

// WithMinInterval sets the minimum spacing between posts. Zero disables pacing.
func WithMinInterval(d time.Duration) WebhookOption {
	return func(s *WebhookSink) {
		if d <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		s.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// NewWebhookSink creates a sink for url, limited to one post per second by default.
func NewWebhookSink(url string, opts ...WebhookOption) *WebhookSink {
	s := &WebhookSink{
		url:     url,
		client:  &http.Client{Timeout: 20 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Send implements Sink.
func (s *WebhookSink) Send(ctx context.Context, text string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("[slack] wait: %w", err)
	}

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("[slack] encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("[slack] create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("[slack] post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &WebhookError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// WriterSink prints chunks instead of posting them.
type WriterSink struct {
	W io.Writer
}

// Send implements Sink.
func (s WriterSink) Send(_ context.Context, text string) error {
	_, err := fmt.Fprintf(s.W, "%s\n", text)
	return err
}

// Deliver chunks msg and sends each chunk in order, stopping at the first error.
func Deliver(ctx context.Context, sink Sink, msg string, maxChars int) error {
	chunks := Chunk(msg, maxChars)
	for i, c := range chunks {
		if err := sink.Send(ctx, c); err != nil {
			return fmt.Errorf("deliver chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	if len(chunks) > 1 {
		logger.Infof("[slack] delivered %d chunks", len(chunks))
	}
	return nil
}
