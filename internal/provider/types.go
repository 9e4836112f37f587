package provider

// MessageRole identifies the sender of a message in a conversation.
type MessageRole string

// MessageRole constants for conversation messages.
const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Valid reports whether r is one of the roles understood by the completion
// endpoint.
func (r MessageRole) Valid() bool {
	switch r {
	case MessageRoleSystem, MessageRoleUser, MessageRoleAssistant:
		return true
	default:
		return false
	}
}

// LLMMessage represents a single message in a conversation.
type LLMMessage struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// CompletionRequest is the input to a Provider.Complete or Provider.Stream call.
type CompletionRequest struct {
	// Model overrides the provider's configured model when non-empty.
	Model     string       `json:"model,omitempty"`
	Messages  []LLMMessage `json:"messages"`
	MaxTokens int          `json:"max_tokens,omitempty"`
}

// CompletionResult is the final value of a completion: the full assistant
// text plus the citation list reported by the endpoint. It is produced once
// per request.
type CompletionResult struct {
	Content   string   `json:"content"`
	Citations []string `json:"citations"`
}

// Empty reports whether the completion carried no content.
func (r CompletionResult) Empty() bool {
	return r.Content == ""
}
