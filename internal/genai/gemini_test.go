package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewGeminiClientValidation(t *testing.T) {
	if _, err := NewGeminiClient(GeminiConfig{APIKey: "k"}); err == nil {
		t.Fatal("expected error for missing base URL")
	}
	if _, err := NewGeminiClient(GeminiConfig{BaseURL: "http://localhost"}); err == nil {
		t.Fatal("expected error for missing api key")
	}
	client, err := NewGeminiClient(GeminiConfig{BaseURL: "http://localhost/", APIKey: "k"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.model != "gemini-1.5-flash" {
		t.Fatalf("expected default model, got %q", client.model)
	}
	if client.baseURL != "http://localhost" {
		t.Fatalf("expected trimmed base URL, got %q", client.baseURL)
	}
}

func TestGeminiClientGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method %s", r.Method)
		}
		if !strings.HasSuffix(r.URL.Path, "/v1beta/models/gemini-1.5-flash:generateContent") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Fatalf("missing api key header")
		}

		var payload struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if len(payload.Contents) != 1 || payload.Contents[0].Parts[0].Text != "list all books" {
			t.Fatalf("unexpected payload: %+v", payload)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{
					"content": map[string]any{
						"parts": []map[string]string{{"text": "book.findMany({})"}},
					},
				},
			},
		})
	}))
	defer server.Close()

	client, err := NewGeminiClient(GeminiConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Timeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text, err := client.Generate(context.Background(), "list all books")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "book.findMany({})" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestGeminiClientGenerateErrors(t *testing.T) {
	t.Run("upstream failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "quota exceeded", http.StatusTooManyRequests)
		}))
		defer server.Close()

		client, err := NewGeminiClient(GeminiConfig{BaseURL: server.URL, APIKey: "k"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := client.Generate(context.Background(), "hello"); err == nil {
			t.Fatal("expected error for failing upstream")
		}
	})

	t.Run("empty candidates", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
		}))
		defer server.Close()

		client, err := NewGeminiClient(GeminiConfig{BaseURL: server.URL, APIKey: "k"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := client.Generate(context.Background(), "hello"); err == nil {
			t.Fatal("expected error for empty candidates")
		}
	})
}
