package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}

		var req openaiRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Model != "gpt-4o-mini" {
			t.Errorf("model = %q, want gpt-4o-mini", req.Model)
		}
		if len(req.Messages) != 1 || req.Messages[0].Content != "summarize these mistakes" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "Revise Mechanics first."}},
			},
		})
	}))
	defer server.Close()

	client := NewOpenAIClient("test-key", WithBaseURL(server.URL))

	text, err := client.Complete(context.Background(), "summarize these mistakes")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "Revise Mechanics first." {
		t.Errorf("Complete() = %q, want completion text", text)
	}
}

func TestOpenAIClient_Complete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": "rate limited"}`))
	}))
	defer server.Close()

	client := NewOpenAIClient("test-key", WithBaseURL(server.URL))

	if _, err := client.Complete(context.Background(), "prompt"); err == nil {
		t.Error("Complete() should return error on non-200 status")
	}
}

func TestOpenAIClient_Complete_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	client := NewOpenAIClient("test-key", WithBaseURL(server.URL))

	if _, err := client.Complete(context.Background(), "prompt"); err == nil {
		t.Error("Complete() should return error when choices are empty")
	}
}

func TestOpenAIClient_Options(t *testing.T) {
	client := NewOpenAIClient("key", WithBaseURL("http://example.com/v1"), WithModel("llama3"))
	if client.baseURL != "http://example.com/v1" {
		t.Errorf("baseURL = %q", client.baseURL)
	}
	if client.model != "llama3" {
		t.Errorf("model = %q", client.model)
	}

	// Empty options keep defaults.
	client = NewOpenAIClient("key", WithBaseURL(""), WithModel(""))
	if client.baseURL != defaultOpenAIBaseURL {
		t.Errorf("baseURL = %q, want default", client.baseURL)
	}
	if client.model != "gpt-4o-mini" {
		t.Errorf("model = %q, want default", client.model)
	}
}
