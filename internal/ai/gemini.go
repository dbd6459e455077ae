package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models/"

// Gemini API request/response types (unexported).

type geminiRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

// GeminiProvider calls the Gemini generateContent REST endpoint. It holds no
// credential; each call names the key and model to use.
type GeminiProvider struct {
	httpClient *http.Client
	baseURL    string
}

type GeminiOption func(*GeminiProvider)

// WithGeminiBaseURL points the provider at another host, e.g. a test server.
func WithGeminiBaseURL(u string) GeminiOption {
	return func(g *GeminiProvider) { g.baseURL = strings.TrimRight(u, "/") + "/" }
}

// NewGeminiProvider creates a provider whose individual calls time out after timeout.
func NewGeminiProvider(timeout time.Duration, opts ...GeminiOption) *GeminiProvider {
	g := &GeminiProvider{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    geminiBaseURL,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *GeminiProvider) Generate(ctx context.Context, credential, model, prompt string) (string, error) {
	return g.generate(ctx, credential, model, geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
}

// Probe sends a minimal request to check that a credential can use a model.
func (g *GeminiProvider) Probe(ctx context.Context, credential, model string) error {
	_, err := g.generate(ctx, credential, model, geminiRequest{
		Contents:         []geminiContent{{Parts: []geminiPart{{Text: "Hi"}}}},
		GenerationConfig: &geminiGenConfig{MaxOutputTokens: 10},
	})
	return err
}

func (g *GeminiProvider) generate(ctx context.Context, credential, model string, body geminiRequest) (string, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := g.baseURL + model + ":generateContent"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", credential)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Model: model, Body: string(respBody)}
	}

	var genResp geminiResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return "", fmt.Errorf("parse gemini response: %w", err)
	}

	var sb strings.Builder
	if len(genResp.Candidates) > 0 {
		for _, p := range genResp.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	return sb.String(), nil
}
