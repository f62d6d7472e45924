package openrouter

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func contentLine(content string) string {
	return `data: {"id":"gen-1","choices":[{"index":0,"delta":{"role":"assistant","content":` + quote(content) + `},"finish_reason":null}]}` + "\n\n"
}

func quote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`).Replace(s) + `"`
}

func decodeAll(t *testing.T, d *Decoder) ([]Delta, error) {
	t.Helper()
	var deltas []Delta
	for {
		delta, err := d.Next()
		if errors.Is(err, io.EOF) {
			return deltas, nil
		}
		if err != nil {
			return deltas, err
		}
		deltas = append(deltas, delta)
	}
}

func TestDecoderSkipsCommentsAndSentinel(t *testing.T) {
	body := ": OPENROUTER PROCESSING\n\ndata: [DONE]\n\n"

	deltas, err := decodeAll(t, NewDecoder(strings.NewReader(body)))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(deltas) != 0 {
		t.Fatalf("expected no fragments, got %+v", deltas)
	}
}

func TestDecoderExtractsContentInOrder(t *testing.T) {
	body := ": OPENROUTER PROCESSING\n\n" +
		contentLine("[happy]Hello") +
		contentLine(" there.") +
		`data: {"choices":[{"index":0,"delta":{"content":""},"finish_reason":"stop"}]}` + "\n\n" +
		`data: {"choices":[],"usage":{"prompt_tokens":12,"completion_tokens":5,"total_tokens":17}}` + "\n\n" +
		"data: [DONE]\n\n" +
		contentLine("after the end")

	deltas, err := decodeAll(t, NewDecoder(strings.NewReader(body)))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(deltas) != 4 {
		t.Fatalf("expected 4 deltas, got %d: %+v", len(deltas), deltas)
	}
	if deltas[0].Content != "[happy]Hello" || deltas[1].Content != " there." {
		t.Fatalf("unexpected content: %q, %q", deltas[0].Content, deltas[1].Content)
	}
	if deltas[0].DisplayContent != deltas[0].Content {
		t.Fatalf("expected display content to equal content when not hiding, got %q", deltas[0].DisplayContent)
	}
	if deltas[2].FinishReason == nil || *deltas[2].FinishReason != "stop" {
		t.Fatalf("expected finish reason stop, got %v", deltas[2].FinishReason)
	}
	if deltas[3].Usage == nil || deltas[3].Usage.TotalTokens != 17 {
		t.Fatalf("expected usage with 17 total tokens, got %+v", deltas[3].Usage)
	}
}

func TestDecoderReassemblesLinesSplitAcrossReads(t *testing.T) {
	body := contentLine("Split ") + contentLine("across reads.") + "data: [DONE]\n"

	deltas, err := decodeAll(t, NewDecoder(iotest.OneByteReader(strings.NewReader(body))))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	var text strings.Builder
	for _, delta := range deltas {
		text.WriteString(delta.Content)
	}
	if got := text.String(); got != "Split across reads." {
		t.Fatalf("expected %q, got %q", "Split across reads.", got)
	}
}

func TestDecoderHandlesCRLF(t *testing.T) {
	body := ": keep-alive\r\n\r\n" + strings.ReplaceAll(contentLine("Hi."), "\n", "\r\n") + "data: [DONE]\r\n"

	deltas, err := decodeAll(t, NewDecoder(strings.NewReader(body)))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(deltas) != 1 || deltas[0].Content != "Hi." {
		t.Fatalf("expected a single %q delta, got %+v", "Hi.", deltas)
	}
}

func TestDecoderFailsOnMalformedPayload(t *testing.T) {
	body := contentLine("Fine.") + "data: {\"choices\": [\n\n" + contentLine("Never read.")

	deltas, err := decodeAll(t, NewDecoder(strings.NewReader(body)))
	if !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
	if len(deltas) != 1 {
		t.Fatalf("expected the delta before the malformed line, got %+v", deltas)
	}

	d := NewDecoder(strings.NewReader(body))
	_, _ = decodeAll(t, d)
	if _, err := d.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected decoder to stay finished after a fatal error, got %v", err)
	}
}

func TestDecoderSurfacesStreamError(t *testing.T) {
	body := `data: {"error":{"code":502,"message":"upstream overloaded"}}` + "\n\n"

	_, err := decodeAll(t, NewDecoder(strings.NewReader(body)))
	var streamErr *StreamError
	if !errors.As(err, &streamErr) {
		t.Fatalf("expected StreamError, got %v", err)
	}
	if streamErr.Message != "upstream overloaded" {
		t.Fatalf("expected message %q, got %q", "upstream overloaded", streamErr.Message)
	}
}

func TestDecoderHidesActionPromptsFromDisplayOnly(t *testing.T) {
	body := contentLine("[hap") + contentLine("py] Hello") + contentLine(" [waves] there.") + "data: [DONE]\n\n"

	deltas, err := decodeAll(t, NewDecoder(strings.NewReader(body), WithActionPromptsHidden(true)))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var content, display strings.Builder
	for _, delta := range deltas {
		content.WriteString(delta.Content)
		display.WriteString(delta.DisplayContent)
	}
	if got := content.String(); got != "[happy] Hello [waves] there." {
		t.Fatalf("expected raw content to keep directives, got %q", got)
	}
	if got := display.String(); got != "Hello there." {
		t.Fatalf("expected display content without directives, got %q", got)
	}
}
