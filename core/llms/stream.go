package llms

import "context"

type Stream interface {
	Chunks(context.Context) func(func(StreamChunk, error) bool)
}

type StreamChunk interface {
	FinishReason() *string
}

type StreamContentChunk interface {
	StreamChunk
	Content() string
}

// StreamDisplayContentChunk is implemented by content chunks that also carry
// a version of the content meant for display rather than for speech.
type StreamDisplayContentChunk interface {
	StreamContentChunk
	DisplayContent() string
}

type StreamUsageChunk interface {
	StreamChunk
	Usage() Usage
}

type Usage struct {
	// InputTokens represents the number of input tokens.
	InputTokens int
	// OutputTokens represents the number of output tokens.
	OutputTokens int
	// TotalTokens represents the total number of tokens used.
	TotalTokens int
	// Cost is the provider reported cost of the request, if any.
	Cost float64
}
