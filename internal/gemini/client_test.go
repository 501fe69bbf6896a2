package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tildaslashalef/ghmind/internal/config"
	"github.com/tildaslashalef/ghmind/internal/retry"
)

func setupTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	geminiCfg := config.GeminiConfig{
		APIKey:      "test-key",
		BaseURL:     server.URL,
		Model:       "test-model",
		APIVersion:  "v1",
		Timeout:     5 * time.Second,
		MaxTokens:   2048,
		Temperature: 0.7,
	}

	policy := retry.Policy{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
	client := NewClient(geminiCfg, policy, nil)
	require.NotNil(t, client, "Client should not be nil")
	return server, client
}

func TestNewClient(t *testing.T) {
	client := NewClient(config.GeminiConfig{
		APIKey:      "test-key",
		BaseURL:     "https://generativelanguage.googleapis.com/",
		Model:       "gemini-2.5-pro",
		APIVersion:  "v1beta",
		Timeout:     10 * time.Second,
		MaxTokens:   4096,
		Temperature: 0.8,
		TopP:        0.95,
		TopK:        40,
	}, retry.NoRetry(), nil)

	assert.Equal(t, "test-key", client.apiKey)
	assert.Equal(t, "https://generativelanguage.googleapis.com", client.baseURL, "trailing slash should be trimmed")
	assert.Equal(t, "gemini-2.5-pro", client.Model())
	assert.Equal(t, "v1beta", client.apiVersion)
	assert.Equal(t, 4096, client.defaultMaxTokens)
	require.NotNil(t, client.temperature)
	assert.Equal(t, 0.8, *client.temperature)
	require.NotNil(t, client.topP)
	assert.Equal(t, 0.95, *client.topP)
	require.NotNil(t, client.topK)
	assert.Equal(t, 40, *client.topK)
	assert.Equal(t, 10*time.Second, client.httpClient.Timeout)
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(config.GeminiConfig{}, retry.NoRetry(), nil)

	assert.Equal(t, "https://generativelanguage.googleapis.com", client.baseURL)
	assert.Equal(t, "v1beta", client.apiVersion)
	assert.Equal(t, 8192, client.defaultMaxTokens)
	assert.Nil(t, client.temperature)
}

func TestGenerateChat(t *testing.T) {
	expectedResponse := ChatResponse{
		Candidates: []Candidate{
			{
				Content: Content{
					Role:  "model",
					Parts: []Part{{Text: "[\"bug\""}, {Text: "]"}},
				},
				FinishReason: "STOP",
			},
		},
	}

	_, client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotContains(t, body, "model", "model belongs in the path only")

		gc, ok := body["generationConfig"].(map[string]any)
		require.True(t, ok, "generationConfig should be sent")
		assert.Equal(t, float64(2048), gc["maxOutputTokens"])
		assert.Equal(t, 0.7, gc["temperature"])
		assert.Equal(t, "application/json", gc["responseMimeType"])

		sys, ok := body["systemInstruction"].(map[string]any)
		require.True(t, ok)
		assert.NotEmpty(t, sys["parts"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(expectedResponse)
	})

	resp, err := client.GenerateChat(context.Background(), ChatRequest{
		Contents:          []Content{{Role: "user", Parts: []Part{{Text: "Label this"}}}},
		SystemInstruction: &Content{Parts: []Part{{Text: "Respond only with JSON"}}},
		GenerationConfig:  &GenerationConfig{ResponseMIMEType: "application/json"},
	})

	require.NoError(t, err)
	assert.Equal(t, expectedResponse.Candidates, resp.Candidates)
	assert.Equal(t, "[\"bug\"]", resp.Text())
}

func TestGenerateChatRetriesTransientErrors(t *testing.T) {
	var calls int32
	_, client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`))
			return
		}
		json.NewEncoder(w).Encode(ChatResponse{Candidates: []Candidate{{Content: Content{Parts: []Part{{Text: "ok"}}}}}})
	})

	resp, err := client.GenerateChat(context.Background(), ChatRequest{Contents: []Content{{Parts: []Part{{Text: "hi"}}}}})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGenerateChatPermanentError(t *testing.T) {
	var calls int32
	_, client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`))
	})

	_, err := client.GenerateChat(context.Background(), ChatRequest{Contents: []Content{{Parts: []Part{{Text: "hi"}}}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key not valid")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "client errors are not retried")
}

func TestGenerateChatNonJSONError(t *testing.T) {
	_, client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("forbidden"))
	})

	_, err := client.GenerateChat(context.Background(), ChatRequest{Contents: []Content{{Parts: []Part{{Text: "hi"}}}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forbidden")
}

func TestGenerateChatBlockedPrompt(t *testing.T) {
	_, client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
	})

	_, err := client.GenerateChat(context.Background(), ChatRequest{Contents: []Content{{Parts: []Part{{Text: "hi"}}}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SAFETY")
}

func TestResponseText(t *testing.T) {
	var nilResp *ChatResponse
	assert.Equal(t, "", nilResp.Text())
	assert.Equal(t, "", (&ChatResponse{}).Text())
}
