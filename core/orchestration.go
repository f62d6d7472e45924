package orchestration

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-avatar/core/events"
	"github.com/koscakluka/ema-avatar/core/llms"
	"github.com/koscakluka/ema-avatar/core/screenplay"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrTurnInProgress     = errors.New("a turn is already in progress")
	ErrNoLLM              = errors.New("no streaming llm configured")
	ErrOrchestratorClosed = errors.New("orchestrator closed")
)

// Orchestrator turns user messages into spoken, animated replies. Each turn
// streams the reply from the chat backend, cuts it into screenplays as it
// arrives and queues them on a speech scheduler shared by all turns.
type Orchestrator struct {
	llm         LLMWithStream
	synthesizer Synthesizer
	renderer    Renderer
	history     History

	historyLimit      int
	systemPrompt      string
	hideActionPrompts bool
	promptOptions     []llms.StreamingPromptOption
	segmenterOptions  []screenplay.SegmenterOption
	schedulerOptions  []SchedulerOption

	callbacks   OrchestrateOptions
	emit        eventEmitter
	scheduler   *SpeechScheduler
	baseContext context.Context

	turnInProgress atomic.Bool
	turnCancelMu   sync.Mutex
	turnCancel     context.CancelFunc

	outstanding atomic.Int64
	speaking    atomic.Bool

	closeOnce sync.Once
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		history:      &memoryHistory{},
		historyLimit:      DefaultHistoryLimit,
		systemPrompt:      DefaultSystemPrompt,
		hideActionPrompts: true,
		baseContext:       context.Background(),
	}
	for _, opt := range opts {
		opt(o)
	}

	o.emit = newCallbackEventEmitter(o.callbacks)

	schedulerOptions := append(
		slices.Clone(o.schedulerOptions),
		WithTaskStartedCallback(o.onTaskStarted),
		WithTaskCompletedCallback(o.onTaskCompleted),
		WithTaskSynthesisFailedCallback(o.onTaskSynthesisFailed),
	)
	o.scheduler = NewSpeechScheduler(o.baseContext, o.synthesizer, o.renderer, schedulerOptions...)

	return o
}

// Respond generates a reply to prompt and queues it for playback. It returns
// once the reply has been fully generated and segmented; playback may still
// be in progress, see [Orchestrator.Drain].
//
// Only one turn is generated at a time. A stream error ends the turn, but
// the part of the reply received before it is still played.
func (o *Orchestrator) Respond(ctx context.Context, prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil
	}
	if o.llm == nil {
		return ErrNoLLM
	}
	if o.scheduler.isClosed() {
		return ErrOrchestratorClosed
	}
	if !o.turnInProgress.CompareAndSwap(false, true) {
		return ErrTurnInProgress
	}
	defer o.turnInProgress.Store(false)

	turnID := uuid.NewString()
	ctx, cancel := context.WithCancel(ctx)
	o.setTurnCancel(cancel)
	defer func() {
		o.setTurnCancel(nil)
		cancel()
	}()

	ctx, span := tracer.Start(ctx, "respond", trace.WithAttributes(attribute.String("turn.id", turnID)))
	defer span.End()

	o.emit(events.NewTurnStarted(turnID))
	o.emit(events.NewUserMessage(turnID, prompt))

	var history []llms.Message
	if o.historyLimit > 0 {
		var err error
		if history, err = o.history.Recent(ctx, o.historyLimit); err != nil {
			logger.Warn("failed to load history, continuing without it", "error", err)
			span.RecordError(fmt.Errorf("failed to load history: %w", err))
		}
	}
	span.SetAttributes(attribute.Int("turn.history_messages", len(history)))

	promptOptions := []llms.StreamingPromptOption{
		llms.WithSystemPrompt(o.systemPrompt),
		llms.WithMessages(history...),
		llms.WithHideActionPrompts(o.hideActionPrompts),
	}
	promptOptions = append(promptOptions, o.promptOptions...)
	stream := o.llm.PromptWithStream(ctx, &prompt, promptOptions...)

	text := newOrderedQueue[string]()
	response := strings.Builder{}

	workerErr := runWorkers(ctx,
		worker{
			name:   "llm generation",
			run:    func(ctx context.Context) error { return o.generate(ctx, turnID, stream, text, &response) },
			onExit: text.Complete,
		},
		worker{
			name: "screenplay segmentation",
			run:  func(ctx context.Context) error { return o.segment(ctx, turnID, text) },
		},
	)

	reply := response.String()
	o.saveTurn(ctx, prompt, reply)

	switch {
	case workerErr == nil:
		o.emit(events.NewAssistantResponseFinal(turnID, reply))
		o.emit(events.NewTurnCompleted(turnID))
		return nil

	case ctx.Err() != nil:
		span.AddEvent("turn cancelled")
		o.emit(events.NewTurnCancelled(turnID))
		return ctx.Err()

	default:
		err := fmt.Errorf("turn failed: %w", workerErr)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.emit(events.NewTurnFailed(turnID, err))
		return err
	}
}

func (o *Orchestrator) generate(
	ctx context.Context,
	turnID string,
	stream llms.Stream,
	text *orderedQueue[string],
	response *strings.Builder,
) error {
	ctx, span := tracer.Start(ctx, "generate llm")
	defer span.End()

	for chunk, err := range stream.Chunks(ctx) {
		if err != nil {
			err = fmt.Errorf("failed to generate llm response: %w", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}

		switch chunk := chunk.(type) {
		case llms.StreamContentChunk:
			content := chunk.Content()
			display := content
			if displayChunk, ok := chunk.(llms.StreamDisplayContentChunk); ok {
				display = displayChunk.DisplayContent()
			}

			if content != "" {
				response.WriteString(content)
				text.Push(content)
			}
			if content != "" || display != "" {
				o.emit(events.NewAssistantResponseSegment(turnID, content, display))
			}

		case llms.StreamUsageChunk:
			usage := chunk.Usage()
			span.SetAttributes(
				attribute.Int("usage.input", usage.InputTokens),
				attribute.Int("usage.output", usage.OutputTokens),
				attribute.Float64("usage.cost", usage.Cost),
			)
		}
	}

	span.SetAttributes(attribute.Int("response.length", response.Len()))
	return nil
}

func (o *Orchestrator) segment(ctx context.Context, turnID string, text *orderedQueue[string]) error {
	done := withContextCancelHook(ctx, text.Clear)
	defer close(done)

	ctx, span := tracer.Start(ctx, "segment screenplays")
	defer span.End()

	segmenter := screenplay.NewSegmenter(o.segmenterOptions...)
	count := 0
	enqueue := func(units []screenplay.Screenplay) error {
		for _, unit := range units {
			if err := o.enqueue(ctx, turnID, unit); err != nil {
				span.RecordError(err)
				return err
			}
			count++
		}
		return nil
	}

	for chunk := range text.Items {
		if err := enqueue(segmenter.Feed(chunk)); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := enqueue(segmenter.Flush()); err != nil {
		return err
	}

	span.SetAttributes(attribute.Int("screenplay.count", count))
	return nil
}

func (o *Orchestrator) enqueue(ctx context.Context, turnID string, unit screenplay.Screenplay) error {
	o.emit(events.NewScreenplayCreated(turnID, unit))

	o.outstanding.Add(1)
	if _, err := o.scheduler.Enqueue(ctx, unit); err != nil {
		o.outstanding.Add(-1)
		return fmt.Errorf("failed to queue screenplay: %w", err)
	}
	return nil
}

func (o *Orchestrator) saveTurn(ctx context.Context, prompt, reply string) {
	messages := []llms.Message{llms.NewUserMessage(prompt)}
	if reply != "" {
		messages = append(messages, llms.NewAssistantMessage(reply))
	}
	if err := o.history.Append(context.WithoutCancel(ctx), messages...); err != nil {
		logger.Warn("failed to save turn to history", "error", err)
	}
}

func (o *Orchestrator) onTaskStarted(task *PlaybackTask) {
	if o.speaking.CompareAndSwap(false, true) && o.callbacks.onSpeakingStateChanged != nil {
		o.callbacks.onSpeakingStateChanged(true)
	}
	o.emit(events.NewAssistantPlaybackStarted(task.ID, task.Screenplay(), task.Audio() == nil))
}

func (o *Orchestrator) onTaskCompleted(task *PlaybackTask) {
	o.emit(events.NewAssistantPlaybackEnded(task.ID, task.Screenplay()))
	if o.outstanding.Add(-1) == 0 && o.speaking.CompareAndSwap(true, false) && o.callbacks.onSpeakingStateChanged != nil {
		o.callbacks.onSpeakingStateChanged(false)
	}
}

func (o *Orchestrator) onTaskSynthesisFailed(task *PlaybackTask, err error) {
	o.emit(events.NewSynthesisFailed(task.ID, task.Screenplay(), err))
}

func (o *Orchestrator) setTurnCancel(cancel context.CancelFunc) {
	o.turnCancelMu.Lock()
	o.turnCancel = cancel
	o.turnCancelMu.Unlock()
}

// CancelTurn stops generating the current reply. Units already queued are
// still played.
func (o *Orchestrator) CancelTurn() {
	o.turnCancelMu.Lock()
	cancel := o.turnCancel
	o.turnCancelMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// IsSpeaking reports whether queued units are being played, from the start
// of the first one until the last queued one has finished.
func (o *Orchestrator) IsSpeaking() bool {
	return o.speaking.Load()
}

// IsResponding reports whether a turn is being generated.
func (o *Orchestrator) IsResponding() bool {
	return o.turnInProgress.Load()
}

// Drain blocks until every queued unit has been played.
func (o *Orchestrator) Drain(ctx context.Context) error {
	return o.scheduler.Drain(ctx)
}

// Close cancels the running turn, stops playback and releases the scheduler.
func (o *Orchestrator) Close() error {
	var err error
	o.closeOnce.Do(func() {
		o.CancelTurn()
		err = o.scheduler.Close()
	})
	return err
}
