package llm

import "context"

// Provider sends a prompt to an LLM backend and returns the raw text
// response. The classifier owns parsing; providers never interpret the
// completion.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}
