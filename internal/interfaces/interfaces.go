package interfaces

import (
	"context"

	"onlinellm-gateway/backend/internal/model"
)

// This file defines the interfaces for our core services.
// The API layer depends on these contracts instead of concrete implementations
// so handlers can be tested against mocks.

// CompletionService defines the contract for the chat-completion orchestrator.
type CompletionService interface {
	Complete(ctx context.Context, req *model.CompletionRequest) (*model.CompletionResponse, error)
}
