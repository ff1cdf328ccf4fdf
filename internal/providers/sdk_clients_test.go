package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAIClient_Chat(t *testing.T) {
	t.Run("successful chat", func(t *testing.T) {
		var body map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			json.NewDecoder(r.Body).Decode(&body)

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"id":      "chatcmpl-1",
				"object":  "chat.completion",
				"created": 1700000000,
				"model":   "gpt-4o-mini-2024",
				"choices": []map[string]any{{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]any{"role": "assistant", "content": `{"summary":"short"}`},
				}},
				"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16},
			})
		}))
		defer server.Close()

		client := NewOpenAIClient(OpenAIConfig{
			APIKey:     "test-key",
			BaseURL:    server.URL,
			MaxRetries: -1,
		})

		result, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{
				{Role: "system", Content: "sys"},
				{Role: "user", Content: "usr"},
			},
			Temperature:    0.3,
			ResponseFormat: NewJSONSchemaFormat("summary", json.RawMessage(`{"type":"object"}`)),
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if !result.Success || result.Provider != OpenAIName {
			t.Errorf("result = %+v", result)
		}
		if result.ModelUsed != "gpt-4o-mini-2024" {
			t.Errorf("ModelUsed = %q", result.ModelUsed)
		}
		if result.TotalTokens != 16 {
			t.Errorf("TotalTokens = %d, want 16", result.TotalTokens)
		}
		if string(result.ParsedJSON) != `{"summary":"short"}` {
			t.Errorf("ParsedJSON = %s", result.ParsedJSON)
		}

		if body["model"] != openAIDefaultModel {
			t.Errorf("model = %v, want %s", body["model"], openAIDefaultModel)
		}
		if msgs, _ := body["messages"].([]any); len(msgs) != 2 {
			t.Errorf("messages = %v", body["messages"])
		}
		if rf, _ := body["response_format"].(map[string]any); rf["type"] != "json_schema" {
			t.Errorf("response_format = %v", body["response_format"])
		}
	})

	t.Run("API error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"message":"bad request","type":"invalid_request_error","param":"","code":"invalid"}}`))
		}))
		defer server.Close()

		client := NewOpenAIClient(OpenAIConfig{
			APIKey:     "test-key",
			BaseURL:    server.URL,
			MaxRetries: -1,
		})

		result, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "usr"}},
		})
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *APIError, got %v", err)
		}
		if apiErr.StatusCode != http.StatusBadRequest || apiErr.Provider != OpenAIName {
			t.Errorf("apiErr = %+v", apiErr)
		}
		if result == nil || result.Success || result.ErrorType != "api_error" {
			t.Errorf("result = %+v", result)
		}
	})

	t.Run("defaults", func(t *testing.T) {
		client := NewOpenAIClient(OpenAIConfig{APIKey: "k"})
		if client.Name() != OpenAIName || client.defaultModel != openAIDefaultModel {
			t.Errorf("client = %+v", client)
		}
	})
}

func TestGeminiClient_Chat(t *testing.T) {
	t.Run("successful chat", func(t *testing.T) {
		var body map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.Contains(r.URL.Path, ":generateContent") {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			json.NewDecoder(r.Body).Decode(&body)

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"candidates": []map[string]any{{
					"content": map[string]any{
						"role":  "model",
						"parts": []map[string]any{{"text": `{"type":"news"}`}},
					},
					"finishReason": "STOP",
				}},
				"usageMetadata": map[string]any{
					"promptTokenCount":     7,
					"candidatesTokenCount": 3,
					"totalTokenCount":      10,
				},
				"modelVersion": "gemini-2.5-flash-001",
			})
		}))
		defer server.Close()

		client, err := NewGeminiClient(context.Background(), GeminiConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
		})
		if err != nil {
			t.Fatalf("NewGeminiClient() error = %v", err)
		}

		result, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{
				{Role: "system", Content: "classify"},
				{Role: "user", Content: "text"},
			},
			ResponseFormat: NewJSONSchemaFormat("classification", json.RawMessage(`{"type":"object"}`)),
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if result.Provider != GeminiName || !result.Success {
			t.Errorf("result = %+v", result)
		}
		if result.ModelUsed != "gemini-2.5-flash-001" {
			t.Errorf("ModelUsed = %q", result.ModelUsed)
		}
		if result.TotalTokens != 10 {
			t.Errorf("TotalTokens = %d, want 10", result.TotalTokens)
		}
		if string(result.ParsedJSON) != `{"type":"news"}` {
			t.Errorf("ParsedJSON = %s", result.ParsedJSON)
		}
		if _, ok := body["systemInstruction"]; !ok {
			t.Errorf("expected systemInstruction in request body: %v", body)
		}
	})

	t.Run("API error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"code":400,"message":"invalid argument","status":"INVALID_ARGUMENT"}}`))
		}))
		defer server.Close()

		client, err := NewGeminiClient(context.Background(), GeminiConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
		})
		if err != nil {
			t.Fatalf("NewGeminiClient() error = %v", err)
		}

		_, err = client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "text"}},
		})
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *APIError, got %v", err)
		}
		if apiErr.StatusCode != 400 || apiErr.Provider != GeminiName {
			t.Errorf("apiErr = %+v", apiErr)
		}
	})
}
