package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGeminiGenerate(t *testing.T) {
	var gotPath, gotKey, gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		var req geminiRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
			gotPrompt = req.Contents[0].Parts[0].Text
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Hola "},{"text":"mundo"}]}}]}`))
	}))
	defer srv.Close()

	g := NewGeminiProvider(5*time.Second, WithGeminiBaseURL(srv.URL+"/v1beta/models"))
	text, err := g.Generate(context.Background(), "AIza-test", "gemini-1.5-pro", "saluda")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if text != "Hola mundo" {
		t.Errorf("text = %q", text)
	}
	if gotPath != "/v1beta/models/gemini-1.5-pro:generateContent" {
		t.Errorf("path = %s", gotPath)
	}
	if gotKey != "AIza-test" {
		t.Errorf("api key header = %q", gotKey)
	}
	if gotPrompt != "saluda" {
		t.Errorf("prompt = %q", gotPrompt)
	}
}

func TestGeminiErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"message":"Resource exhausted"}}`))
	}))
	defer srv.Close()

	g := NewGeminiProvider(5*time.Second, WithGeminiBaseURL(srv.URL))
	_, err := g.Generate(context.Background(), "k", "gemini-pro", "p")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != 429 || apiErr.Model != "gemini-pro" {
		t.Errorf("APIError = %+v", apiErr)
	}
	if Classify(err) != ClassQuotaExceeded {
		t.Errorf("Classify() = %v", Classify(err))
	}
}

func TestLocalGenerate(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "success",
			handler: func(w http.ResponseWriter, r *http.Request) {
				var req ollamaGenerateRequest
				json.NewDecoder(r.Body).Decode(&req)
				if r.URL.Path != "/api/generate" || req.Stream || req.Model != "llama3" {
					http.Error(w, "bad request", http.StatusBadRequest)
					return
				}
				w.Write([]byte(`{"response":"reporte local","done":true}`))
			},
			want: "reporte local",
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"model not loaded"}`))
			},
			want: "",
		},
		{
			name: "blank body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"response":"  \n","done":true}`))
			},
			want: "",
		},
		{
			name: "undecodable",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<html>`))
			},
			want: "",
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			l := NewLocalProvider(srv.URL, "llama3")
			got := l.Generate(context.Background(), "", "prompt", 100*time.Millisecond)
			if got != tt.want {
				t.Errorf("Generate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLocalUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	host := srv.URL
	srv.Close()

	l := NewLocalProvider(host, "llama3")
	if got := l.Generate(context.Background(), "llama3", "p", time.Second); got != "" {
		t.Errorf("Generate() = %q, want empty", got)
	}
	if l.Available(context.Background()) {
		t.Error("Available() = true for a closed endpoint")
	}
}

func TestLocalListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[{"name":"llama3:latest","size":4661224676,"details":{"family":"llama","parameter_size":"8.0B"}},{"name":"mistral:7b"}]}`))
	}))
	defer srv.Close()

	l := NewLocalProvider(srv.URL, "")
	models, err := l.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels() error: %v", err)
	}
	if len(models) != 2 || models[0].Name != "llama3" || models[0].ParameterSize != "8.0B" || models[1].Name != "mistral:7b" {
		t.Errorf("models = %+v", models)
	}
}

func TestExtractOllamaError(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"error":"model not found"}`, "model not found"},
		{`{"error":{"message":"context too long","type":"api_error"}}`, "context too long"},
		{`not json`, ""},
	}
	for _, tt := range tests {
		if got := extractOllamaError([]byte(tt.body)); got != tt.want {
			t.Errorf("extractOllamaError(%s) = %q, want %q", tt.body, got, tt.want)
		}
	}
}
