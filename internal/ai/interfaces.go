package ai

import (
	"context"

	"cvstudio/internal/types"
)

// GenerateRequest describes one model round trip. The attachment, when
// present, is sent as a second content part alongside the prompt text with
// its mime type passed through unchanged.
type GenerateRequest struct {
	Prompt       string
	SystemPrompt string
	Attachment   *types.Attachment
}

// ModelProvider is the gateway to one hosted generation backend. Providers
// are stateless between calls; each Generate is exactly one upstream round
// trip (plus bounded transport retries).
type ModelProvider interface {
	Generate(ctx context.Context, req GenerateRequest) (string, *TokenUsage, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	Name() string
	Close() error
}

// TokenUsage represents token usage information from model responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// ModelInfo represents information about the model behind a provider
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}
