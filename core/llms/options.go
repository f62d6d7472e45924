package llms

// StreamingPromptOptions collects everything a streaming prompt needs besides
// the model and credentials.
type StreamingPromptOptions struct {
	Instructions string
	Messages     []Message
	Temperature  *float64
	MaxTokens    *int
	// HideActionPrompts makes providers additionally produce a display
	// version of every content chunk with "[...]" directives removed.
	HideActionPrompts bool
}

type StreamingPromptOption interface {
	ApplyToStreaming(*StreamingPromptOptions)
}

// PromptOption is a function that modifies the prompt options.
type PromptOption func(*StreamingPromptOptions)

func (f PromptOption) ApplyToStreaming(o *StreamingPromptOptions) {
	f(o)
}

// WithSystemPrompt sets the instructions sent as the first system message.
// Repeating this option overwrites the previous system prompt.
func WithSystemPrompt(prompt string) PromptOption {
	return func(opts *StreamingPromptOptions) {
		opts.Instructions = prompt
	}
}

// WithMessages adds conversation history to the prompt.
// Repeating this option will sequentially add more messages.
func WithMessages(messages ...Message) PromptOption {
	return func(opts *StreamingPromptOptions) {
		opts.Messages = append(opts.Messages, messages...)
	}
}

func WithTemperature(temperature float64) PromptOption {
	return func(opts *StreamingPromptOptions) {
		opts.Temperature = &temperature
	}
}

func WithMaxTokens(maxTokens int) PromptOption {
	return func(opts *StreamingPromptOptions) {
		if maxTokens <= 0 {
			return
		}
		opts.MaxTokens = &maxTokens
	}
}

func WithHideActionPrompts(hide bool) PromptOption {
	return func(opts *StreamingPromptOptions) {
		opts.HideActionPrompts = hide
	}
}
