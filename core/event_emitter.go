package orchestration

import "github.com/koscakluka/ema-avatar/core/events"

type eventEmitter func(events.Event)

func newCallbackEventEmitter(opts OrchestrateOptions) eventEmitter {
	return func(event events.Event) {
		logger.Debug("event", "namespace", event.Kind().Namespace(), "kind", string(event.Kind()))
		if opts.onEvent != nil {
			opts.onEvent(event)
		}

		switch typedEvent := event.(type) {
		case events.AssistantResponseSegment:
			if opts.onResponse != nil {
				opts.onResponse(typedEvent.Segment, typedEvent.DisplaySegment)
			}
		case events.AssistantResponseFinal:
			if opts.onResponseEnd != nil {
				opts.onResponseEnd(typedEvent.Response)
			}
		case events.ScreenplayCreated:
			if opts.onScreenplay != nil {
				opts.onScreenplay(typedEvent.Screenplay)
			}
		case events.SynthesisFailed:
			if opts.onSynthesisFailed != nil {
				opts.onSynthesisFailed(typedEvent.Screenplay, typedEvent.Err)
			}
		case events.AssistantPlaybackStarted:
			if opts.onPlaybackStarted != nil {
				opts.onPlaybackStarted(typedEvent.Screenplay, typedEvent.Silent)
			}
		case events.AssistantPlaybackEnded:
			if opts.onPlaybackEnded != nil {
				opts.onPlaybackEnded(typedEvent.Screenplay)
			}
		case events.TurnFailed:
			if opts.onTurnFailed != nil {
				opts.onTurnFailed(typedEvent.Err)
			}
		case events.TurnCancelled:
			if opts.onCancellation != nil {
				opts.onCancellation()
			}
		}
	}
}
