// Package llm exposes the generative language model as a single capability
// and hides which provider serves it.
package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/tildaslashalef/ghmind/internal/config"
	"github.com/tildaslashalef/ghmind/internal/extractor"
	"github.com/tildaslashalef/ghmind/internal/gemini"
	"github.com/tildaslashalef/ghmind/internal/loggy"
	"github.com/tildaslashalef/ghmind/internal/retry"
)

// GenerateRequest is one prompt sent to the model
type GenerateRequest struct {
	Prompt      string
	System      string
	Shape       *extractor.Shape // expected JSON shape, nil for free text
	Schema      map[string]any   // optional response schema for providers that accept one
	Temperature float64
	MaxTokens   int
}

// GenerateResponse holds the model's raw text answer
type GenerateResponse struct {
	Content string
	Model   string
}

// Client defines the interface for LLM clients
type Client interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// ClientType names a provider
type ClientType string

const (
	// Gemini is the Google Gemini REST API
	Gemini ClientType = "gemini"
	// OpenAI is the OpenAI chat completions API or a compatible endpoint
	OpenAI ClientType = "openai"
)

// Factory creates the configured LLM client
type Factory struct {
	config *config.Config
	policy retry.Policy
	logger *loggy.Logger
}

// NewFactory creates a new LLM client factory
func NewFactory(cfg *config.Config, policy retry.Policy, logger *loggy.Logger) *Factory {
	if logger == nil {
		logger = loggy.NewNoopLogger()
	}
	return &Factory{config: cfg, policy: policy, logger: logger}
}

// newLimiter creates a rate limiter from RPM and burst; zero RPM means unlimited
func newLimiter(rpm, burst int) *rate.Limiter {
	if burst <= 0 {
		burst = 1
	}
	if rpm <= 0 {
		return rate.NewLimiter(rate.Inf, burst)
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst)
}

// GetClient returns a rate-limited client for the configured provider
func (f *Factory) GetClient() (Client, ClientType, error) {
	clientType := ClientType(f.config.LLM.Provider)
	limiter := newLimiter(f.config.LLM.RequestsPerMinute, f.config.LLM.BurstLimit)

	var client Client
	switch clientType {
	case Gemini:
		if f.config.Gemini.APIKey == "" {
			return nil, "", fmt.Errorf("Gemini client not initialized - set GEMINI_API_KEY")
		}
		client = newGeminiClientAdapter(gemini.NewClient(f.config.Gemini, f.policy, f.logger), f.config.Gemini.JSONMode)
		f.logger.Debug("Initialized Gemini client", "model", f.config.Gemini.Model, "json_mode", f.config.Gemini.JSONMode)

	case OpenAI:
		if f.config.OpenAI.APIKey == "" {
			return nil, "", fmt.Errorf("OpenAI client not initialized - set OPENAI_API_KEY")
		}
		client = newOpenAIClientAdapter(f.config.OpenAI, f.policy.MaxRetries)
		f.logger.Debug("Initialized OpenAI client", "model", f.config.OpenAI.Model, "base_url", f.config.OpenAI.BaseURL)

	default:
		return nil, "", fmt.Errorf("unknown client type: %s", clientType)
	}

	return &limitedClient{client: client, limiter: limiter, logger: f.logger}, clientType, nil
}

// limitedClient waits on a token bucket before every request
type limitedClient struct {
	client  Client
	limiter *rate.Limiter
	logger  *loggy.Logger
}

func (c *limitedClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	c.logger.Debug("Sending prompt", "prompt_length", len(req.Prompt), "system_length", len(req.System))
	resp, err := c.client.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Received model response", "model", resp.Model, "response_length", len(resp.Content))
	return resp, nil
}
