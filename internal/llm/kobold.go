package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// KoboldProvider calls a local koboldcpp server via its /api/v1 endpoints.
// No credentials involved; the server runs on the user's machine.
type KoboldProvider struct {
	baseURL    string
	httpClient *http.Client
}

// NewKoboldProvider creates a provider for a koboldcpp server, e.g.
// http://localhost:5001.
func NewKoboldProvider(baseURL string, httpClient *http.Client) *KoboldProvider {
	return &KoboldProvider{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

func (p *KoboldProvider) Name() string { return "kobold" }

// generateRequest mirrors the koboldcpp /api/v1/generate payload. Sampler
// settings follow the values the local models were tuned with.
type generateRequest struct {
	MaxContextLength int     `json:"max_context_length"`
	MaxLength        int     `json:"max_length"`
	Prompt           string  `json:"prompt"`
	Quiet            bool    `json:"quiet"`
	RepPen           float64 `json:"rep_pen"`
	RepPenRange      int     `json:"rep_pen_range"`
	RepPenSlope      float64 `json:"rep_pen_slope"`
	Temperature      float64 `json:"temperature"`
	TFS              float64 `json:"tfs"`
	TopA             float64 `json:"top_a"`
	TopK             int     `json:"top_k"`
	TopP             float64 `json:"top_p"`
	Typical          float64 `json:"typical"`
}

type generateResponse struct {
	Results []struct {
		Text string `json:"text"`
	} `json:"results"`
}

// Complete sends prompt to koboldcpp and returns the generated text.
func (p *KoboldProvider) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		MaxContextLength: 2048,
		MaxLength:        300,
		Prompt:           prompt,
		RepPen:           1.1,
		RepPenRange:      256,
		RepPenSlope:      1,
		Temperature:      0.5,
		TFS:              1,
		TopA:             0,
		TopK:             100,
		TopP:             0.9,
		Typical:          1,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal kobold request: %w", err)
	}

	url := p.baseURL + "/api/v1/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create kobold request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("kobold request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read kobold response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("kobold returned HTTP %d: %s", resp.StatusCode, string(respBytes))
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBytes, &genResp); err != nil {
		return "", fmt.Errorf("parse kobold response: %w", err)
	}
	if len(genResp.Results) == 0 {
		return "", fmt.Errorf("kobold returned no results")
	}

	return genResp.Results[0].Text, nil
}

// versionResponse mirrors /api/v1/info/version.
type versionResponse struct {
	Result string `json:"result"`
}

// CheckConnection probes the koboldcpp server and returns its version.
// Used to fail fast before a long classification run against a local
// backend that is not up.
func (p *KoboldProvider) CheckConnection(ctx context.Context) (string, error) {
	url := p.baseURL + "/api/v1/info/version"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create version request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("kobold version request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("kobold version returned HTTP %d", resp.StatusCode)
	}

	var vr versionResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return "", fmt.Errorf("parse kobold version response: %w", err)
	}
	if vr.Result == "" {
		return "", fmt.Errorf("kobold version response missing result")
	}
	return vr.Result, nil
}
