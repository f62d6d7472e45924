package openrouter

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/koscakluka/ema-avatar/core/llms"
)

const (
	commentPrefix = ":"
	chunkPrefix   = "data:"
	endMessage    = "[DONE]"

	maxLineSize = 1 << 20
)

var ErrMalformedPayload = errors.New("malformed stream payload")

// Delta is a single decoded piece of the reply.
type Delta struct {
	// Content is the raw text fragment, including any directive markup.
	Content string
	// DisplayContent is Content with action prompts removed when hiding is
	// enabled, and equal to Content otherwise.
	DisplayContent string
	FinishReason   *string
	Usage          *llms.Usage
}

// Decoder reads a server-sent event stream of chat completion chunks and
// returns the text fragments it carries.
//
// Lines are read through a scanner, so an event split across network reads
// is reassembled before it is parsed.
type Decoder struct {
	scanner *bufio.Scanner
	display *actionPromptFilter
	done    bool
}

type DecoderOption func(*Decoder)

// WithActionPromptsHidden strips "[...]" directives from DisplayContent.
func WithActionPromptsHidden(hide bool) DecoderOption {
	return func(d *Decoder) {
		if hide {
			d.display = &actionPromptFilter{}
		} else {
			d.display = nil
		}
	}
}

func NewDecoder(r io.Reader, opts ...DecoderOption) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	d := &Decoder{scanner: scanner}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Next returns the next delta that carries content, a finish reason or
// usage. It returns io.EOF after the end sentinel or the end of the body.
// Any other error is fatal for the stream.
func (d *Decoder) Next() (Delta, error) {
	if d.done {
		return Delta{}, io.EOF
	}

	for d.scanner.Scan() {
		line := strings.TrimSpace(d.scanner.Text())
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}

		payload, ok := strings.CutPrefix(line, chunkPrefix)
		if !ok {
			continue
		}
		payload = strings.TrimSpace(payload)
		if payload == endMessage {
			return d.finish()
		}

		var responseBody streamingResponseBody
		if err := json.Unmarshal([]byte(payload), &responseBody); err != nil {
			logger.Error("failed to parse stream payload", "payload", payload, "error", err)
			d.done = true
			return Delta{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
		}
		if responseBody.Error != nil {
			d.done = true
			return Delta{}, responseBody.Error
		}

		if delta, ok := d.toDelta(responseBody); ok {
			return delta, nil
		}
	}

	if err := d.scanner.Err(); err != nil {
		d.done = true
		return Delta{}, fmt.Errorf("error reading streamed response: %w", err)
	}
	return d.finish()
}

func (d *Decoder) toDelta(body streamingResponseBody) (Delta, bool) {
	var delta Delta
	if len(body.Choices) > 0 {
		delta.Content = body.Choices[0].Delta.Content
		delta.FinishReason = body.Choices[0].FinishReason
	}

	if body.Usage != nil {
		delta.Usage = &llms.Usage{
			InputTokens:  body.Usage.PromptTokens,
			OutputTokens: body.Usage.CompletionTokens,
			TotalTokens:  body.Usage.TotalTokens,
			Cost:         body.Usage.Cost,
		}
	}

	if delta.Content == "" && delta.FinishReason == nil && delta.Usage == nil {
		return Delta{}, false
	}

	delta.DisplayContent = delta.Content
	if d.display != nil {
		delta.DisplayContent = d.display.Filter(delta.Content)
	}
	return delta, true
}

// finish ends the stream, handing out display text still held back by the
// filter, if any.
func (d *Decoder) finish() (Delta, error) {
	d.done = true
	if d.display != nil {
		if rest := d.display.Flush(); rest != "" {
			return Delta{DisplayContent: rest}, nil
		}
	}
	return Delta{}, io.EOF
}
