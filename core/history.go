package orchestration

import (
	"context"
	"sync"

	"github.com/koscakluka/ema-avatar/core/llms"
)

const DefaultHistoryLimit = 20

type memoryHistory struct {
	mu       sync.Mutex
	messages []llms.Message
}

func (h *memoryHistory) Append(_ context.Context, messages ...llms.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, messages...)
	return nil
}

func (h *memoryHistory) Recent(_ context.Context, limit int) ([]llms.Message, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if limit <= 0 {
		return nil, nil
	}
	start := max(len(h.messages)-limit, 0)
	return append([]llms.Message(nil), h.messages[start:]...), nil
}
