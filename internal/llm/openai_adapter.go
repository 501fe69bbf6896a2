package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/tildaslashalef/ghmind/internal/config"
)

// openAIClientAdapter serves the Client interface with the openai-go SDK,
// which also covers OpenAI-compatible endpoints through BaseURL.
type openAIClientAdapter struct {
	client openai.Client
	model  string
}

func newOpenAIClientAdapter(cfg config.OpenAIConfig, maxRetries uint64) *openAIClientAdapter {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(int(maxRetries)),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &openAIClientAdapter{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}
}

// Generate implements the Client interface for OpenAI
func (a *openAIClientAdapter) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	var msgs []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	msgs = append(msgs, openai.UserMessage(req.Prompt))

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(a.model),
		Messages: msgs,
	})
	if err != nil {
		return nil, fmt.Errorf("openai generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: empty choices")
	}

	model := resp.Model
	if model == "" {
		model = a.model
	}

	return &GenerateResponse{
		Content: resp.Choices[0].Message.Content,
		Model:   model,
	}, nil
}
