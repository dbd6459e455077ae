package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Native Ollama API types (unexported).

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type ollamaTagsResponse struct {
	Models []ollamaModelInfo `json:"models"`
}

type ollamaModelInfo struct {
	Name    string             `json:"name"`
	Size    int64              `json:"size"`
	Details ollamaModelDetails `json:"details"`
}

type ollamaModelDetails struct {
	Family        string `json:"family"`
	ParameterSize string `json:"parameter_size"`
}

// OllamaModel describes one model installed on the local endpoint.
type OllamaModel struct {
	Name          string `json:"name"`
	Size          int64  `json:"size"`
	ParameterSize string `json:"parameter_size"`
	Family        string `json:"family"`
}

// LocalProvider is the local-inference fallback over Ollama's /api/generate.
type LocalProvider struct {
	httpClient   *http.Client
	host         string
	defaultModel string
}

// NewLocalProvider creates a local provider. Timeouts are applied per call.
func NewLocalProvider(host, defaultModel string) *LocalProvider {
	if host == "" {
		host = "http://localhost:11434"
	}
	if defaultModel == "" {
		defaultModel = "llama3"
	}
	return &LocalProvider{
		httpClient:   &http.Client{},
		host:         strings.TrimRight(host, "/"),
		defaultModel: defaultModel,
	}
}

// Generate makes a single attempt bounded by timeout. Any failure (timeout,
// non-2xx, undecodable or blank body) yields "". It never returns an error.
func (l *LocalProvider) Generate(ctx context.Context, model, prompt string, timeout time.Duration) string {
	if model == "" {
		model = l.defaultModel
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	text, err := l.generate(ctx, model, prompt)
	if err != nil {
		slog.Warn("Local inference unavailable", "host", l.host, "model", model, "error", err)
		return ""
	}
	if strings.TrimSpace(text) == "" {
		slog.Warn("Local inference returned empty text", "model", model)
		return ""
	}
	slog.Info("Local inference succeeded", "model", model, "duration", time.Since(start).String())
	return text
}

func (l *LocalProvider) generate(ctx context.Context, model, prompt string) (string, error) {
	jsonData, err := json.Marshal(ollamaGenerateRequest{Model: model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.host+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errMsg := extractOllamaError(body)
		if errMsg == "" {
			errMsg = string(body)
		}
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, errMsg)
	}

	var out ollamaGenerateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("parse ollama response: %w", err)
	}
	return out.Response, nil
}

// Available reports whether the local endpoint answers /api/tags.
func (l *LocalProvider) Available(ctx context.Context) bool {
	_, err := l.ListModels(ctx)
	return err == nil
}

// ListModels queries the local endpoint for installed models.
func (l *LocalProvider) ListModels(ctx context.Context) ([]OllamaModel, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.host+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(body))
	}

	var tagsResp ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tagsResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	models := make([]OllamaModel, len(tagsResp.Models))
	for i, m := range tagsResp.Models {
		models[i] = OllamaModel{
			Name:          strings.TrimSuffix(m.Name, ":latest"),
			Size:          m.Size,
			ParameterSize: m.Details.ParameterSize,
			Family:        m.Details.Family,
		}
	}
	return models, nil
}

// extractOllamaError parses Ollama's JSON error responses to extract a human-readable message.
// Ollama can return either {"error":"message"} or {"error":{"message":"text","type":"api_error"}}.
func extractOllamaError(body []byte) string {
	var flat struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &flat) == nil && flat.Error != "" {
		return flat.Error
	}

	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &nested) == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}

	return ""
}
