package llm

import (
	"context"

	"onlinellm-gateway/backend/internal/model"
)

// ChatCompletionProvider sends an assembled conversation to the upstream LLM.
type ChatCompletionProvider interface {
	CreateChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResult, error)
}

// ChatRequest is the payload forwarded upstream. Sampling values are always
// sent, including zeros.
type ChatRequest struct {
	Messages         []model.Message
	MaxTokens        int64
	Temperature      float64
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
}

// ChatResult is the subset of the upstream reply the gateway uses. Fields the
// upstream left out are zero values.
type ChatResult struct {
	ID           string
	Created      int64
	Model        string
	Content      string
	FinishReason string
}
