package openrouter

import (
	"github.com/jinzhu/copier"
	"github.com/koscakluka/ema-avatar/core/llms"
)

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type requestBody struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
}

type streamingResponseBody struct {
	ID      string            `json:"id"`
	Model   string            `json:"model"`
	Choices []streamingChoice `json:"choices"`
	Usage   *usage            `json:"usage,omitempty"`
	Error   *StreamError      `json:"error,omitempty"`
}

type streamingChoice struct {
	Index        int            `json:"index"`
	Delta        streamingDelta `json:"delta"`
	FinishReason *string        `json:"finish_reason"`
}

type streamingDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content"`
}

type usage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	Cost             float64 `json:"cost,omitempty"`
}

// StreamError is an error reported by OpenRouter inside an already started
// stream.
type StreamError struct {
	Code    any    `json:"code"`
	Message string `json:"message"`
}

func (e *StreamError) Error() string {
	return "openrouter stream error: " + e.Message
}

func toMessages(instructions string, history []llms.Message) []message {
	messages := []message{}
	if instructions != "" {
		messages = append(messages, message{
			Role:    string(llms.MessageRoleSystem),
			Content: instructions,
		})
	}

	var converted []message
	if err := copier.Copy(&converted, history); err != nil {
		logger.Warn("failed to convert history, sending it without conversion", "error", err)
		for _, msg := range history {
			converted = append(converted, message{Role: string(msg.Role), Content: msg.Content})
		}
	}

	for _, msg := range converted {
		if msg.Content == "" {
			continue
		}
		messages = append(messages, msg)
	}
	return messages
}
