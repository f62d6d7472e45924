// Package events defines the typed orchestration event contract.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - user_input.*
//   - assistant_response.*
//   - assistant_speech.*
//   - assistant_playback.*
//   - turn_state.*
//
// Semantics used across the package:
//
//   - Segment: append-only text piece emitted in stream order.
//   - Final: terminal immutable text/state for the current stream/turn phase.
//   - Started/Ended: lifecycle boundaries of a single utterance.
//
// user_input events
//
//   - UserMessage (user_input.message): typed message that started a turn.
//
// assistant_response events
//
//   - AssistantResponseSegment (assistant_response.segment): streamed response
//     text segment, raw and with emotion tags removed.
//   - AssistantResponseFinal (assistant_response.final): response text stream
//     is complete; carries the whole raw reply.
//
// assistant_speech events
//
//   - ScreenplayCreated (assistant_speech.screenplay_created): the segmenter
//     produced an utterance unit. It precedes the unit's playback events.
//   - SynthesisFailed (assistant_speech.synthesis_failed): synthesis for a
//     unit failed and it will be played silently.
//
// assistant_playback events
//
//   - AssistantPlaybackStarted (assistant_playback.started): a unit was handed
//     to the renderer. Units start strictly in the order they were created.
//   - AssistantPlaybackEnded (assistant_playback.ended): the renderer finished
//     the unit.
//
// turn_state events
//
//   - TurnStarted (turn_state.started): current turn started.
//   - TurnCompleted (turn_state.completed): the reply was fully generated.
//     Playback may still be in progress.
//   - TurnFailed (turn_state.failed): current turn failed.
//   - TurnCancelled (turn_state.cancelled): current turn was cancelled.
package events
