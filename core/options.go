package orchestration

import (
	"context"

	"github.com/koscakluka/ema-avatar/core/events"
	"github.com/koscakluka/ema-avatar/core/llms"
	"github.com/koscakluka/ema-avatar/core/screenplay"
	"github.com/koscakluka/ema-avatar/core/texttospeech"
)

type OrchestratorOption func(*Orchestrator)

type LLMWithStream interface {
	PromptWithStream(ctx context.Context, prompt *string, opts ...llms.StreamingPromptOption) llms.Stream
}

// WithStreamingLLM sets the chat backend replies are generated with.
func WithStreamingLLM(client LLMWithStream) OrchestratorOption {
	return func(o *Orchestrator) { o.llm = client }
}

// WithSynthesizer sets the speech synthesis backend. Without one, or with
// one that reports no credentials, replies are played silently.
func WithSynthesizer(synthesizer Synthesizer) OrchestratorOption {
	return func(o *Orchestrator) { o.synthesizer = synthesizer }
}

// WithRenderer sets the avatar sink units are played on.
func WithRenderer(renderer Renderer) OrchestratorOption {
	return func(o *Orchestrator) { o.renderer = renderer }
}

// WithVoiceParameters sets the synthesis voice used for every unit.
func WithVoiceParameters(voice texttospeech.VoiceParameters) OrchestratorOption {
	return func(o *Orchestrator) { o.schedulerOptions = append(o.schedulerOptions, WithVoice(voice)) }
}

// WithSchedulerOptions passes options through to the speech scheduler.
// Playback callbacks set here are overridden by the orchestrator's own.
func WithSchedulerOptions(opts ...SchedulerOption) OrchestratorOption {
	return func(o *Orchestrator) { o.schedulerOptions = append(o.schedulerOptions, opts...) }
}

// WithSegmenterOptions configures the segmenter created for every turn.
func WithSegmenterOptions(opts ...screenplay.SegmenterOption) OrchestratorOption {
	return func(o *Orchestrator) { o.segmenterOptions = append(o.segmenterOptions, opts...) }
}

// WithPromptOptions adds options to every chat request, e.g. temperature.
func WithPromptOptions(opts ...llms.StreamingPromptOption) OrchestratorOption {
	return func(o *Orchestrator) { o.promptOptions = append(o.promptOptions, opts...) }
}

// WithHideActionPrompts controls whether "[...]" directives are removed from
// the display text passed to response callbacks. Enabled by default.
func WithHideActionPrompts(hide bool) OrchestratorOption {
	return func(o *Orchestrator) { o.hideActionPrompts = hide }
}

// WithSystemPrompt replaces the default persona prompt.
func WithSystemPrompt(prompt string) OrchestratorOption {
	return func(o *Orchestrator) { o.systemPrompt = prompt }
}

type History interface {
	Append(ctx context.Context, messages ...llms.Message) error
	Recent(ctx context.Context, limit int) ([]llms.Message, error)
}

// WithHistory sets where the conversation is kept. Defaults to memory.
func WithHistory(history History) OrchestratorOption {
	return func(o *Orchestrator) {
		if history != nil {
			o.history = history
		}
	}
}

// WithHistoryLimit sets how many past messages are replayed into each turn.
// Zero disables replay.
func WithHistoryLimit(limit int) OrchestratorOption {
	return func(o *Orchestrator) {
		if limit >= 0 {
			o.historyLimit = limit
		}
	}
}

// WithBaseContext sets the context playback runs under. Cancelling it stops
// the orchestrator.
func WithBaseContext(ctx context.Context) OrchestratorOption {
	return func(o *Orchestrator) {
		if ctx != nil {
			o.baseContext = ctx
		}
	}
}

// WithEventHandler registers a handler that receives every event, in
// addition to the typed callbacks.
func WithEventHandler(handler func(events.Event)) OrchestratorOption {
	return func(o *Orchestrator) { o.callbacks.onEvent = handler }
}

type OrchestrateOptions struct {
	onEvent                func(event events.Event)
	onResponse             func(segment, displaySegment string)
	onResponseEnd          func(response string)
	onScreenplay           func(s screenplay.Screenplay)
	onSynthesisFailed      func(s screenplay.Screenplay, err error)
	onPlaybackStarted      func(s screenplay.Screenplay, silent bool)
	onPlaybackEnded        func(s screenplay.Screenplay)
	onSpeakingStateChanged func(isSpeaking bool)
	onTurnFailed           func(err error)
	onCancellation         func()
}

// WithResponseCallback registers a callback for every streamed piece of the
// reply. displaySegment has emotion tags removed.
func WithResponseCallback(callback func(segment, displaySegment string)) OrchestratorOption {
	return func(o *Orchestrator) { o.callbacks.onResponse = callback }
}

// WithResponseEndCallback registers a callback for the complete raw reply.
func WithResponseEndCallback(callback func(response string)) OrchestratorOption {
	return func(o *Orchestrator) { o.callbacks.onResponseEnd = callback }
}

func WithScreenplayCallback(callback func(s screenplay.Screenplay)) OrchestratorOption {
	return func(o *Orchestrator) { o.callbacks.onScreenplay = callback }
}

func WithSynthesisFailedCallback(callback func(s screenplay.Screenplay, err error)) OrchestratorOption {
	return func(o *Orchestrator) { o.callbacks.onSynthesisFailed = callback }
}

// WithPlaybackStartedCallback registers a callback invoked as every unit is
// handed to the renderer, in reply order.
func WithPlaybackStartedCallback(callback func(s screenplay.Screenplay, silent bool)) OrchestratorOption {
	return func(o *Orchestrator) { o.callbacks.onPlaybackStarted = callback }
}

func WithPlaybackEndedCallback(callback func(s screenplay.Screenplay)) OrchestratorOption {
	return func(o *Orchestrator) { o.callbacks.onPlaybackEnded = callback }
}

// WithSpeakingStateChangedCallback registers a callback for changes of
// [Orchestrator.IsSpeaking].
func WithSpeakingStateChangedCallback(callback func(isSpeaking bool)) OrchestratorOption {
	return func(o *Orchestrator) { o.callbacks.onSpeakingStateChanged = callback }
}

func WithTurnFailedCallback(callback func(err error)) OrchestratorOption {
	return func(o *Orchestrator) { o.callbacks.onTurnFailed = callback }
}

func WithCancellationCallback(callback func()) OrchestratorOption {
	return func(o *Orchestrator) { o.callbacks.onCancellation = callback }
}
