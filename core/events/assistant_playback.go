package events

import "github.com/koscakluka/ema-avatar/core/screenplay"

const (
	// KindAssistantPlaybackStarted identifies the start of a unit's playback.
	KindAssistantPlaybackStarted Kind = "assistant_playback.started"
	// KindAssistantPlaybackEnded identifies the end of a unit's playback.
	KindAssistantPlaybackEnded Kind = "assistant_playback.ended"
)

// AssistantPlaybackStarted marks the moment a unit is handed to the renderer.
type AssistantPlaybackStarted struct {
	Base
	TaskID     string
	Screenplay screenplay.Screenplay
	// Silent is set when the unit has no audio.
	Silent bool
}

// NewAssistantPlaybackStarted creates an assistant playback started event.
func NewAssistantPlaybackStarted(taskID string, s screenplay.Screenplay, silent bool) AssistantPlaybackStarted {
	return AssistantPlaybackStarted{Base: NewBase(KindAssistantPlaybackStarted), TaskID: taskID, Screenplay: s, Silent: silent}
}

// AssistantPlaybackEnded marks the end of a unit's playback.
type AssistantPlaybackEnded struct {
	Base
	TaskID     string
	Screenplay screenplay.Screenplay
}

// NewAssistantPlaybackEnded creates an assistant playback ended event.
func NewAssistantPlaybackEnded(taskID string, s screenplay.Screenplay) AssistantPlaybackEnded {
	return AssistantPlaybackEnded{Base: NewBase(KindAssistantPlaybackEnded), TaskID: taskID, Screenplay: s}
}
