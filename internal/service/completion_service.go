package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"onlinellm-gateway/backend/internal/config"
	app_errors "onlinellm-gateway/backend/internal/errors"
	"onlinellm-gateway/backend/internal/llm"
	"onlinellm-gateway/backend/internal/model"
	"onlinellm-gateway/backend/internal/search"
)

const (
	// WebSearchPrefix introduces the snippets injected in online mode.
	WebSearchPrefix = "Relevant information from web search:\n"

	// DefaultSystemPrompt is prepended when the conversation has no system message.
	DefaultSystemPrompt = "You are a knowledgeable AI assistant. Provide detailed, informative answers with examples and context when appropriate. Aim for responses that are at least 3-4 sentences long."
)

// CompletionService turns an inbound chat-completion request into an upstream
// call, optionally enriched with web search results.
type CompletionService struct {
	llm          llm.ChatCompletionProvider
	search       search.TextSearchProvider
	onlineMarker string
	sampling     config.SamplingProfile
}

func NewCompletionService(
	llmProvider llm.ChatCompletionProvider,
	searchProvider search.TextSearchProvider,
	onlineMarker string,
	sampling config.SamplingProfile,
) *CompletionService {
	return &CompletionService{
		llm:          llmProvider,
		search:       searchProvider,
		onlineMarker: onlineMarker,
		sampling:     sampling,
	}
}

// Complete runs one request through enrichment, upstream call and reshaping.
// Search failures are absorbed; every other failure is returned.
func (s *CompletionService) Complete(ctx context.Context, req *model.CompletionRequest) (*model.CompletionResponse, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("%w: messages must not be empty", app_errors.ErrValidation)
	}

	// The last message is the current query regardless of its role.
	lastContent := req.Messages[len(req.Messages)-1].Content

	messages := make([]model.Message, len(req.Messages))
	copy(messages, req.Messages)

	if s.isOnline(req.Model) {
		relevantInfo := s.webSearch(ctx, lastContent)
		messages = prepend(messages, model.Message{
			Role:    model.RoleSystem,
			Content: WebSearchPrefix + relevantInfo,
		})
	}

	if !model.HasRole(messages, model.RoleSystem) {
		messages = prepend(messages, model.Message{Role: model.RoleSystem, Content: DefaultSystemPrompt})
	}

	result, err := s.llm.CreateChatCompletion(ctx, s.buildRequest(messages))
	if err != nil {
		return nil, fmt.Errorf("could not complete chat for model %q: %w", req.Model, err)
	}

	slog.Debug("Upstream completion received",
		"request_model", req.Model,
		"upstream_model", result.Model,
		"finish_reason", result.FinishReason,
	)

	return &model.CompletionResponse{
		ID:      result.ID,
		Object:  model.ObjectChatCompletion,
		Created: result.Created,
		// Echo what the caller asked for, not the upstream's internal model name.
		Model: req.Model,
		Choices: []model.Choice{{
			Index:        0,
			Message:      model.Message{Role: model.RoleAssistant, Content: result.Content},
			FinishReason: result.FinishReason,
		}},
	}, nil
}

func (s *CompletionService) isOnline(modelName string) bool {
	return s.onlineMarker != "" && strings.Contains(modelName, s.onlineMarker)
}

// webSearch returns the joined snippets, or "" when the search fails.
func (s *CompletionService) webSearch(ctx context.Context, query string) string {
	snippets, err := s.search.Search(ctx, query)
	if err != nil {
		slog.Warn("Web search failed, continuing without enrichment", "error", err)
		return ""
	}
	slog.Debug("Web search succeeded", "snippets", len(snippets))
	return strings.Join(snippets, "\n")
}

func (s *CompletionService) buildRequest(messages []model.Message) *llm.ChatRequest {
	return &llm.ChatRequest{
		Messages:         messages,
		MaxTokens:        s.sampling.MaxTokens,
		Temperature:      s.sampling.Temperature,
		TopP:             s.sampling.TopP,
		FrequencyPenalty: s.sampling.FrequencyPenalty,
		PresencePenalty:  s.sampling.PresencePenalty,
	}
}

func prepend(messages []model.Message, m model.Message) []model.Message {
	return append([]model.Message{m}, messages...)
}
