package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	app_errors "onlinellm-gateway/backend/internal/errors"
	"onlinellm-gateway/backend/internal/model"
)

// AzureConfig points the provider at one Azure OpenAI deployment.
type AzureConfig struct {
	Endpoint   string
	APIKey     string
	Deployment string
	APIVersion string
	Timeout    time.Duration
}

type azureProvider struct {
	client     openai.Client
	deployment string
}

// NewAzureProvider creates a provider that posts to
// <endpoint>/openai/deployments/<deployment>/chat/completions?api-version=<version>
// with the `api-key` header. Failed calls are not retried.
func NewAzureProvider(cfg AzureConfig) ChatCompletionProvider {
	opts := []option.RequestOption{
		azure.WithEndpoint(cfg.Endpoint, cfg.APIVersion),
		azure.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &azureProvider{
		client:     openai.NewClient(opts...),
		deployment: cfg.Deployment,
	}
}

func (p *azureProvider) CreateChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	messages, err := toParams(req.Messages)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", app_errors.ErrValidation, err.Error())
	}

	params := openai.ChatCompletionNewParams{
		// The azure middleware routes on this value.
		Model:            shared.ChatModel(p.deployment),
		Messages:         messages,
		MaxTokens:        openai.Int(req.MaxTokens),
		Temperature:      openai.Float(req.Temperature),
		TopP:             openai.Float(req.TopP),
		FrequencyPenalty: openai.Float(req.FrequencyPenalty),
		PresencePenalty:  openai.Float(req.PresencePenalty),
	}

	completion, err := p.client.Chat.Completions.New(ctx, params, option.WithJSONSet("stop", nil))
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			slog.Warn("Upstream returned an error status", "status_code", apiErr.StatusCode, "deployment", p.deployment)
			return nil, fmt.Errorf("%w: status %d", app_errors.ErrUpstream, apiErr.StatusCode)
		}
		return nil, fmt.Errorf("%w: %s", app_errors.ErrUpstream, err.Error())
	}

	result := &ChatResult{
		ID:      completion.ID,
		Created: completion.Created,
		Model:   completion.Model,
	}
	if len(completion.Choices) > 0 {
		result.Content = completion.Choices[0].Message.Content
		result.FinishReason = completion.Choices[0].FinishReason
	}
	return result, nil
}

func toParams(messages []model.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case model.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case model.RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case model.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			return nil, fmt.Errorf("unsupported message role: %s", m.Role)
		}
	}
	return out, nil
}
