package events

import "github.com/koscakluka/ema-avatar/core/screenplay"

const (
	// KindScreenplayCreated identifies a new utterance unit.
	KindScreenplayCreated Kind = "assistant_speech.screenplay_created"
	// KindSynthesisFailed identifies a synthesis attempt that fell back to silence.
	KindSynthesisFailed Kind = "assistant_speech.synthesis_failed"
)

// ScreenplayCreated carries a unit produced by the segmenter.
type ScreenplayCreated struct {
	Base
	TurnID     string
	Screenplay screenplay.Screenplay
}

// NewScreenplayCreated creates a screenplay created event.
func NewScreenplayCreated(turnID string, s screenplay.Screenplay) ScreenplayCreated {
	return ScreenplayCreated{Base: NewBase(KindScreenplayCreated), TurnID: turnID, Screenplay: s}
}

// SynthesisFailed reports a unit that will be played without audio.
type SynthesisFailed struct {
	Base
	TaskID     string
	Screenplay screenplay.Screenplay
	Err        error
}

// NewSynthesisFailed creates a synthesis failed event.
func NewSynthesisFailed(taskID string, s screenplay.Screenplay, err error) SynthesisFailed {
	return SynthesisFailed{Base: NewBase(KindSynthesisFailed), TaskID: taskID, Screenplay: s, Err: err}
}
