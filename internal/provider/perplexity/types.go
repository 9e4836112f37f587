package perplexity

import "github.com/flemzord/pplx/internal/provider"

// Wire types for the chat completions endpoint.

type chatRequest struct {
	Model     string       `json:"model"`
	Messages  []apiMessage `json:"messages"`
	Stream    bool         `json:"stream"`
	MaxTokens int          `json:"max_tokens,omitempty"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices   []chatChoice `json:"choices"`
	Citations []string     `json:"citations"`
}

type chatChoice struct {
	Message apiMessage `json:"message"`
}

// streamChunk is one decoded "data:" event. Citations is a pointer so that
// an event carrying the field can be told apart from one that omits it.
type streamChunk struct {
	Citations *[]string     `json:"citations"`
	Choices   []streamDelta `json:"choices"`
}

type streamDelta struct {
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
	Detail string `json:"detail"`
}

func toMessages(msgs []provider.LLMMessage) []apiMessage {
	out := make([]apiMessage, len(msgs))
	for i, m := range msgs {
		out[i] = apiMessage{Role: string(m.Role), Content: m.Content}
	}
	return out
}

// fromResponse extracts the first choice's content. A response without
// choices is a valid, empty result.
func fromResponse(resp *chatResponse) provider.CompletionResult {
	result := provider.CompletionResult{Citations: resp.Citations}
	if result.Citations == nil {
		result.Citations = []string{}
	}
	if len(resp.Choices) > 0 {
		result.Content = resp.Choices[0].Message.Content
	}
	return result
}
