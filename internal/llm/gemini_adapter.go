package llm

import (
	"context"
	"fmt"

	"github.com/tildaslashalef/ghmind/internal/gemini"
)

// geminiClientAdapter adapts the Gemini client to the LLM Client interface
type geminiClientAdapter struct {
	client   *gemini.Client
	jsonMode bool
}

func newGeminiClientAdapter(client *gemini.Client, jsonMode bool) *geminiClientAdapter {
	return &geminiClientAdapter{client: client, jsonMode: jsonMode}
}

// Generate implements the Client interface for Gemini
func (a *geminiClientAdapter) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	geminiReq := gemini.ChatRequest{
		Contents: []gemini.Content{
			{Role: "user", Parts: []gemini.Part{{Text: req.Prompt}}},
		},
		GenerationConfig: &gemini.GenerationConfig{
			MaxOutputTokens: req.MaxTokens,
			Temperature:     getTemperature(req.Temperature),
		},
	}

	if req.System != "" {
		geminiReq.SystemInstruction = &gemini.Content{Parts: []gemini.Part{{Text: req.System}}}
	}

	// Schema-constrained output when the caller expects JSON
	if a.jsonMode && req.Shape != nil {
		geminiReq.GenerationConfig.ResponseMIMEType = "application/json"
		if req.Schema != nil {
			geminiReq.GenerationConfig.ResponseSchema = req.Schema
		}
	}

	resp, err := a.client.GenerateChat(ctx, geminiReq)
	if err != nil {
		return nil, fmt.Errorf("gemini generation failed: %w", err)
	}

	return &GenerateResponse{
		Content: resp.Text(),
		Model:   a.client.Model(),
	}, nil
}

// getTemperature returns a pointer to the temperature value, nil to use the client default
func getTemperature(temp float64) *float64 {
	if temp <= 0 {
		return nil
	}
	return &temp
}
