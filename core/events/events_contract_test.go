package events

import (
	"errors"
	"testing"

	"github.com/koscakluka/ema-avatar/core/screenplay"
)

func TestConstructorsEmitExpectedKinds(t *testing.T) {
	s := screenplay.Screenplay{Expression: screenplay.EmotionHappy}

	testCases := []struct {
		name     string
		event    Event
		expected Kind
	}{
		{name: "user message", event: NewUserMessage("turn", "hi"), expected: KindUserMessage},
		{name: "assistant response segment", event: NewAssistantResponseSegment("turn", "[happy] hi", "hi"), expected: KindAssistantResponseSegment},
		{name: "assistant response final", event: NewAssistantResponseFinal("turn", "[happy] hi"), expected: KindAssistantResponseFinal},
		{name: "screenplay created", event: NewScreenplayCreated("turn", s), expected: KindScreenplayCreated},
		{name: "synthesis failed", event: NewSynthesisFailed("task", s, errors.New("boom")), expected: KindSynthesisFailed},
		{name: "assistant playback started", event: NewAssistantPlaybackStarted("task", s, true), expected: KindAssistantPlaybackStarted},
		{name: "assistant playback ended", event: NewAssistantPlaybackEnded("task", s), expected: KindAssistantPlaybackEnded},
		{name: "turn started", event: NewTurnStarted("turn"), expected: KindTurnStarted},
		{name: "turn completed", event: NewTurnCompleted("turn"), expected: KindTurnCompleted},
		{name: "turn failed", event: NewTurnFailed("turn", errors.New("boom")), expected: KindTurnFailed},
		{name: "turn cancelled", event: NewTurnCancelled("turn"), expected: KindTurnCancelled},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.event.Kind(); got != testCase.expected {
				t.Fatalf("expected kind %q, got %q", testCase.expected, got)
			}
			if testCase.event.Timestamp().IsZero() {
				t.Fatalf("expected timestamp to be set")
			}
		})
	}
}

func TestPlaybackStartedAndEndedKindsAreDistinct(t *testing.T) {
	started := NewAssistantPlaybackStarted("task", screenplay.Screenplay{}, false)
	ended := NewAssistantPlaybackEnded("task", screenplay.Screenplay{})

	if started.Kind() == ended.Kind() {
		t.Fatalf("expected playback started and ended kinds to differ, both were %q", started.Kind())
	}
}

func TestKindNamespace(t *testing.T) {
	if got := KindTurnStarted.Namespace(); got != "turn_state" {
		t.Fatalf("expected namespace %q, got %q", "turn_state", got)
	}
	if got := NewScreenplayCreated("turn", screenplay.Screenplay{}).Kind().Namespace(); got != "assistant_speech" {
		t.Fatalf("expected namespace %q, got %q", "assistant_speech", got)
	}
	if got := Kind("plain").Namespace(); got != "plain" {
		t.Fatalf("expected kind without a dot to be its own namespace, got %q", got)
	}
}
