package llm

import (
	"context"
	"net/http"
)

// OpenAIProvider calls the OpenAI /v1/chat/completions endpoint.
type OpenAIProvider struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOpenAIProvider creates a provider targeting the OpenAI API.
func NewOpenAIProvider(baseURL, apiKey, model string, httpClient *http.Client) *OpenAIProvider {
	return &OpenAIProvider{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: httpClient,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

// Complete sends prompt to OpenAI and returns the completion text.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	return completeChat(ctx, p.httpClient, p.baseURL, p.apiKey, p.model, prompt)
}
