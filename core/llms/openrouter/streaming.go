package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/koscakluka/ema-avatar/core/llms"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Stream struct {
	client *Client

	model             string
	messages          []message
	temperature       float64
	maxTokens         int
	hideActionPrompts bool
}

func (s *Stream) Chunks(ctx context.Context) func(func(llms.StreamChunk, error) bool) {
	requestToFirstTokenTime := time.Time{}
	setRequestToFirstTokenTime := func(span trace.Span) {
		if requestToFirstTokenTime.IsZero() {
			return
		}
		span.SetAttributes(attribute.Float64("response.request_to_first_token_time", time.Since(requestToFirstTokenTime).Seconds()))
		span.AddEvent("received first chunk")
		requestToFirstTokenTime = time.Time{}
	}

	return func(yield func(llms.StreamChunk, error) bool) {
		ctx, span := tracer.Start(ctx, "prompt llm stream")
		defer span.End()
		span.SetAttributes(
			attribute.String("request.model", s.model),
			attribute.Int("request.messages", len(s.messages)),
			attribute.Bool("request.hide_action_prompts", s.hideActionPrompts),
		)

		if s.client.apiKey == "" {
			span.RecordError(ErrMissingAPIKey)
			yield(nil, ErrMissingAPIKey)
			return
		}

		reqBody := requestBody{
			Model:       s.model,
			Messages:    s.messages,
			Temperature: s.temperature,
			MaxTokens:   s.maxTokens,
			Stream:      true,
		}

		requestBodyBytes, err := json.Marshal(reqBody)
		if err != nil {
			err = fmt.Errorf("error marshalling JSON: %w", err)
			span.RecordError(err)
			yield(nil, err)
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.client.baseURL+chatCompletionsPath, bytes.NewBuffer(requestBodyBytes))
		if err != nil {
			err = fmt.Errorf("error creating HTTP request: %w", err)
			span.RecordError(err)
			yield(nil, err)
			return
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "text/event-stream")
		s.client.setHeaders(req)

		span.SetAttributes(attribute.String("request.url", req.URL.String()))
		requestToFirstTokenTime = time.Now()
		span.AddEvent("request started")
		resp, err := s.client.httpClient.Do(req)
		if err != nil {
			err = fmt.Errorf("error sending request: %w", err)
			span.RecordError(err)
			yield(nil, err)
			return
		}
		defer resp.Body.Close()

		span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
		if resp.StatusCode != http.StatusOK {
			if errorBody, err := io.ReadAll(resp.Body); err != nil {
				err = fmt.Errorf("error reading error body: %w", err)
				span.RecordError(err)
			} else {
				span.SetAttributes(attribute.String("response.error", string(errorBody)))
			}

			err := fmt.Errorf("non-OK HTTP status: %s", resp.Status)
			span.RecordError(err)
			yield(nil, err)
			return
		}

		decoder := NewDecoder(resp.Body, WithActionPromptsHidden(s.hideActionPrompts))
		for {
			delta, err := decoder.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			setRequestToFirstTokenTime(span)
			if err != nil {
				span.RecordError(err)
				yield(nil, err)
				return
			}

			if delta.Content != "" || delta.DisplayContent != "" {
				if !yield(StreamContentChunk{
					finishReason:   delta.FinishReason,
					content:        delta.Content,
					displayContent: delta.DisplayContent,
				}, nil) {
					return
				}
			}

			if delta.Usage != nil {
				span.SetAttributes(
					attribute.Int("usage.input", delta.Usage.InputTokens),
					attribute.Int("usage.output", delta.Usage.OutputTokens),
					attribute.Int("usage.total", delta.Usage.TotalTokens),
					attribute.Float64("usage.cost", delta.Usage.Cost),
				)
				if !yield(StreamUsageChunk{
					finishReason: delta.FinishReason,
					usage:        *delta.Usage,
				}, nil) {
					return
				}
			}
		}
	}
}

type StreamContentChunk struct {
	finishReason   *string
	content        string
	displayContent string
}

func (s StreamContentChunk) FinishReason() *string {
	return s.finishReason
}

func (s StreamContentChunk) Content() string {
	return s.content
}

func (s StreamContentChunk) DisplayContent() string {
	return s.displayContent
}

type StreamUsageChunk struct {
	finishReason *string
	usage        llms.Usage
}

func (s StreamUsageChunk) FinishReason() *string {
	return s.finishReason
}

func (s StreamUsageChunk) Usage() llms.Usage {
	return s.usage
}
