// Package gemini is a small REST client for the Gemini generateContent API
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tildaslashalef/ghmind/internal/config"
	"github.com/tildaslashalef/ghmind/internal/loggy"
	"github.com/tildaslashalef/ghmind/internal/retry"
)

// Client represents a Google Gemini API client
type Client struct {
	apiKey           string
	baseURL          string
	defaultModel     string
	apiVersion       string
	httpClient       *http.Client
	retry            retry.Policy
	defaultMaxTokens int
	topP             *float64
	topK             *int
	temperature      *float64
	logger           *loggy.Logger
}

// NewClient creates a new Gemini client from config
func NewClient(cfg config.GeminiConfig, policy retry.Policy, logger *loggy.Logger) *Client {
	if logger == nil {
		logger = loggy.NewNoopLogger()
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = "v1beta"
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	c := &Client{
		apiKey:           cfg.APIKey,
		baseURL:          baseURL,
		defaultModel:     model,
		apiVersion:       apiVersion,
		httpClient:       &http.Client{Timeout: timeout},
		retry:            policy,
		defaultMaxTokens: maxTokens,
		logger:           logger,
	}

	if cfg.Temperature > 0 {
		c.temperature = Float64Ptr(cfg.Temperature)
	}
	if cfg.TopP > 0 {
		c.topP = Float64Ptr(cfg.TopP)
	}
	if cfg.TopK > 0 {
		c.topK = IntPtr(cfg.TopK)
	}

	return c
}

// Model returns the model used when a request does not name one
func (c *Client) Model() string {
	return c.defaultModel
}

// GenerateChat sends a generateContent request and returns the decoded response
func (c *Client) GenerateChat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.Model == "" {
		req.Model = c.defaultModel
	}

	if req.GenerationConfig == nil {
		req.GenerationConfig = &GenerationConfig{}
	}
	gc := req.GenerationConfig
	if gc.MaxOutputTokens <= 0 {
		gc.MaxOutputTokens = c.defaultMaxTokens
	}
	if gc.Temperature == nil {
		gc.Temperature = c.temperature
	}
	if gc.TopP == nil {
		gc.TopP = c.topP
	}
	if gc.TopK == nil {
		gc.TopK = c.topK
	}

	var resp ChatResponse
	if err := c.makeRequest(ctx, http.MethodPost, fmt.Sprintf("models/%s:generateContent", req.Model), req, &resp); err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}

	if resp.UsageMetadata != nil {
		c.logger.Debug("Gemini usage",
			"model", req.Model,
			"prompt_tokens", resp.UsageMetadata.PromptTokenCount,
			"candidate_tokens", resp.UsageMetadata.CandidatesTokenCount)
	}

	return &resp, nil
}

// makeRequest makes a request to the Gemini API, retrying transient failures
func (c *Client) makeRequest(ctx context.Context, method, path string, requestBody, responseBody any) error {
	url := fmt.Sprintf("%s/%s/%s", c.baseURL, c.apiVersion, strings.TrimPrefix(path, "/"))

	var payload []byte
	if requestBody != nil {
		var err error
		payload, err = json.Marshal(requestBody)
		if err != nil {
			return fmt.Errorf("marshalling request: %w", err)
		}
	}

	c.logger.Debug("Sending Gemini request", "method", method, "url", url, "body_length", len(payload))

	operation := func() error {
		// The body reader is consumed by each attempt, so the request is rebuilt.
		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
		if err != nil {
			return retry.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return retry.Permanent(ctx.Err())
			}
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response body: %w", err)
		}

		c.logger.Debug("Gemini API response", "status_code", resp.StatusCode, "content_length", len(bodyBytes))

		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			apiErr := &APIError{StatusCode: resp.StatusCode}
			if err := json.Unmarshal(bodyBytes, apiErr); err != nil || apiErr.ErrorDetail == nil {
				apiErr.ErrorDetail = &ErrorDetails{Code: resp.StatusCode, Message: fmt.Sprintf("HTTP error: %s, body: %s", resp.Status, string(bodyBytes))}
			}

			if retry.IsTransientStatus(resp.StatusCode) {
				c.logger.Warn("Gemini API transient error", "status", resp.Status)
				return apiErr
			}
			c.logger.Error("Gemini API error response", "status", resp.Status, "error", apiErr.Error())
			return retry.Permanent(apiErr)
		}

		if responseBody != nil {
			if err := json.Unmarshal(bodyBytes, responseBody); err != nil {
				return retry.Permanent(fmt.Errorf("unmarshalling response: %w", err))
			}
		}

		return nil
	}

	return c.retry.Notify(ctx, operation, func(err error, wait time.Duration) {
		c.logger.Warn("Retrying Gemini request", "error", err, "wait", wait)
	})
}
