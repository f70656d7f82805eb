// Package llm talks to OpenAI-compatible language-model APIs.
package llm

import (
	"context"
	"strings"
)

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Provider produces a single non-streamed completion.
type Provider interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Transcriber turns an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Ask sends instructions as the system message and input as the user message
// and returns the trimmed reply.
func Ask(ctx context.Context, p Provider, instructions, input string) (string, error) {
	msgs := make([]Message, 0, 2)
	if instructions != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: instructions})
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: input})

	out, err := p.Complete(ctx, msgs)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, messages []Message) (string, error)

func (f ProviderFunc) Complete(ctx context.Context, messages []Message) (string, error) {
	return f(ctx, messages)
}
