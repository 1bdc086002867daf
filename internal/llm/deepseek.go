package llm

import (
	"context"
	"net/http"
)

// DeepSeekProvider calls the DeepSeek chat completions API, which speaks the
// OpenAI wire format.
type DeepSeekProvider struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewDeepSeekProvider creates a provider targeting the DeepSeek API.
func NewDeepSeekProvider(baseURL, apiKey, model string, httpClient *http.Client) *DeepSeekProvider {
	return &DeepSeekProvider{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: httpClient,
	}
}

func (p *DeepSeekProvider) Name() string { return "deepseek" }

// Complete sends prompt to DeepSeek and returns the completion text.
func (p *DeepSeekProvider) Complete(ctx context.Context, prompt string) (string, error) {
	return completeChat(ctx, p.httpClient, p.baseURL, p.apiKey, p.model, prompt)
}
