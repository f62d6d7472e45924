package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/koscakluka/ema-avatar/core/llms"
)

func collectStream(t *testing.T, stream llms.Stream) (string, string, error) {
	t.Helper()
	var content, display strings.Builder
	for chunk, err := range stream.Chunks(context.Background()) {
		if err != nil {
			return content.String(), display.String(), err
		}
		if c, ok := chunk.(llms.StreamDisplayContentChunk); ok {
			content.WriteString(c.Content())
			display.WriteString(c.DisplayContent())
		}
	}
	return content.String(), display.String(), nil
}

func TestPromptWithStreamSendsChatRequest(t *testing.T) {
	var got requestBody
	var headers http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != chatCompletionsPath {
			t.Errorf("expected path %q, got %q", chatCompletionsPath, r.URL.Path)
		}
		headers = r.Header.Clone()
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(": OPENROUTER PROCESSING\n\n" + contentLine("[happy]Hi") + contentLine(" there.") + "data: [DONE]\n\n"))
	}))
	defer server.Close()

	client := NewClient("secret", WithBaseURL(server.URL), WithModel("test/model"), WithSite("https://example.com", "Percy"))
	prompt := "Hello!"
	stream := client.PromptWithStream(context.Background(), &prompt,
		llms.WithSystemPrompt("be nice"),
		llms.WithMessages(llms.NewUserMessage("earlier"), llms.NewAssistantMessage("[neutral]Yes.")),
		llms.WithHideActionPrompts(true),
	)

	content, display, err := collectStream(t, stream)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if content != "[happy]Hi there." {
		t.Fatalf("expected raw content %q, got %q", "[happy]Hi there.", content)
	}
	if display != "Hi there." {
		t.Fatalf("expected display content %q, got %q", "Hi there.", display)
	}

	if auth := headers.Get("Authorization"); auth != "Bearer secret" {
		t.Fatalf("expected bearer auth, got %q", auth)
	}
	if referer := headers.Get("HTTP-Referer"); referer != "https://example.com" {
		t.Fatalf("expected referer header, got %q", referer)
	}
	if title := headers.Get("X-Title"); title != "Percy" {
		t.Fatalf("expected title header, got %q", title)
	}

	if got.Model != "test/model" || !got.Stream {
		t.Fatalf("unexpected request body: %+v", got)
	}
	if got.Temperature != DefaultTemperature || got.MaxTokens != DefaultMaxTokens {
		t.Fatalf("expected default sampling parameters, got %v/%d", got.Temperature, got.MaxTokens)
	}
	wantRoles := []string{"system", "user", "assistant", "user"}
	if len(got.Messages) != len(wantRoles) {
		t.Fatalf("expected %d messages, got %+v", len(wantRoles), got.Messages)
	}
	for i, role := range wantRoles {
		if got.Messages[i].Role != role {
			t.Fatalf("expected message %d role %q, got %q", i, role, got.Messages[i].Role)
		}
	}
	if got.Messages[3].Content != "Hello!" {
		t.Fatalf("expected prompt as last message, got %q", got.Messages[3].Content)
	}
}

func TestPromptWithStreamFailsOnNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"no credits"}}`, http.StatusPaymentRequired)
	}))
	defer server.Close()

	client := NewClient("secret", WithBaseURL(server.URL))
	_, _, err := collectStream(t, client.PromptWithStream(context.Background(), nil))
	if err == nil || !strings.Contains(err.Error(), "402") {
		t.Fatalf("expected non-OK status error, got %v", err)
	}
}

func TestPromptWithStreamRequiresAPIKey(t *testing.T) {
	client := NewClient("  ")
	_, _, err := collectStream(t, client.PromptWithStream(context.Background(), nil))
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestPromptWithStreamPropagatesMalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(contentLine("Partial") + "data: not json\n\n"))
	}))
	defer server.Close()

	client := NewClient("secret", WithBaseURL(server.URL))
	content, _, err := collectStream(t, client.PromptWithStream(context.Background(), nil))
	if !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
	if content != "Partial" {
		t.Fatalf("expected content before the failure, got %q", content)
	}
}

func TestModelsListsAvailableModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != modelsPath {
			t.Errorf("expected path %q, got %q", modelsPath, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"data":[{"id":"anthropic/claude-3.5-sonnet:beta","name":"Claude 3.5 Sonnet","context_length":200000,"pricing":{"prompt":"0.000003","completion":"0.000015"}}]}`))
	}))
	defer server.Close()

	models, err := NewClient("", WithBaseURL(server.URL)).Models(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(models) != 1 || models[0].ID != "anthropic/claude-3.5-sonnet:beta" || models[0].ContextLength != 200000 {
		t.Fatalf("unexpected models: %+v", models)
	}
}
