package model

// Message roles understood by the gateway.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ObjectChatCompletion is the constant `object` value of every completion response.
const ObjectChatCompletion = "chat.completion"

// Message is a single turn of a conversation.
type Message struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant" example:"user"`
	Content string `json:"content" example:"What is the capital of France?"`
}

// CompletionRequest is the inbound chat-completion request body.
type CompletionRequest struct {
	Model    string    `json:"model" example:"gpt4_onlinellm"`
	Messages []Message `json:"messages" validate:"required,min=1,dive"`
}

// CompletionResponse is the envelope returned to the caller.
type CompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

// Choice is one generated alternative. The gateway always returns exactly one.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// HasRole reports whether any message in the slice carries the given role.
func HasRole(messages []Message, role string) bool {
	for _, m := range messages {
		if m.Role == role {
			return true
		}
	}
	return false
}
