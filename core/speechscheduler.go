package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-avatar/core/screenplay"
	"github.com/koscakluka/ema-avatar/core/texttospeech"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const DefaultMinRequestInterval = time.Second

var ErrSchedulerClosed = errors.New("speech scheduler closed")

type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voice texttospeech.VoiceParameters) ([]byte, error)
}

// Renderer is the avatar sink. Speak must apply the screenplay's expression
// even when audio is nil, and return once playback of the unit has finished.
type Renderer interface {
	Speak(ctx context.Context, audio []byte, s screenplay.Screenplay) error
}

type credentialedSynthesizer interface {
	HasCredentials() bool
}

type cachedSynthesizer interface {
	Lookup(text string, voice texttospeech.VoiceParameters) ([]byte, bool)
}

const (
	fetchResultOK     = "ok"
	fetchResultFailed = "failed"
	fetchResultSilent = "silent"
	fetchResultCached = "cached"
)

// PlaybackTask is a single queued unit. Audio is only meaningful once
// Fetched is closed.
type PlaybackTask struct {
	ID string

	screenplay  screenplay.Screenplay
	spanContext trace.SpanContext

	audio    []byte
	fetchErr error
	fetched  chan struct{}
	done     chan struct{}
}

func newPlaybackTask(ctx context.Context, s screenplay.Screenplay) *PlaybackTask {
	return &PlaybackTask{
		ID:          uuid.NewString(),
		screenplay:  s,
		spanContext: trace.SpanContextFromContext(ctx),
		fetched:     make(chan struct{}),
		done:        make(chan struct{}),
	}
}

func (t *PlaybackTask) Screenplay() screenplay.Screenplay { return t.screenplay }

// Fetched is closed once synthesis finished, failed or was skipped.
func (t *PlaybackTask) Fetched() <-chan struct{} { return t.fetched }

// Done is closed once the renderer finished the unit.
func (t *PlaybackTask) Done() <-chan struct{} { return t.done }

// Audio returns the synthesized clip, nil for silent playback.
func (t *PlaybackTask) Audio() []byte {
	select {
	case <-t.fetched:
		return t.audio
	default:
		return nil
	}
}

// Err returns the synthesis error, if any.
func (t *PlaybackTask) Err() error {
	select {
	case <-t.fetched:
		return t.fetchErr
	default:
		return nil
	}
}

// SpeechScheduler synthesizes queued screenplays one request at a time,
// spaced by a minimum interval, and hands them to the renderer strictly in
// the order they were enqueued. Synthesis of later units overlaps playback
// of earlier ones.
type SpeechScheduler struct {
	synthesizer Synthesizer
	renderer    Renderer
	voice       texttospeech.VoiceParameters

	minRequestInterval time.Duration
	limiter            *rate.Limiter
	maxPending         int
	slots              chan struct{}

	onStart           func(*PlaybackTask)
	onComplete        func(*PlaybackTask)
	onSynthesisFailed func(*PlaybackTask, error)

	fetchQueue    *orderedQueue[*PlaybackTask]
	playbackQueue *orderedQueue[*PlaybackTask]

	mu     sync.Mutex
	closed bool
	last   *PlaybackTask

	ctx         context.Context
	cancel      context.CancelFunc
	workersDone chan struct{}

	requests        metric.Int64Counter
	requestDuration metric.Float64Histogram
	pending         metric.Int64UpDownCounter
}

type SchedulerOption func(*SpeechScheduler)

// WithVoice sets the voice used for every unit.
func WithVoice(voice texttospeech.VoiceParameters) SchedulerOption {
	return func(s *SpeechScheduler) { s.voice = voice }
}

// WithMinRequestInterval sets the minimum time between the starts of two
// synthesis requests.
func WithMinRequestInterval(interval time.Duration) SchedulerOption {
	return func(s *SpeechScheduler) {
		if interval >= 0 {
			s.minRequestInterval = interval
		}
	}
}

// WithMaxPending caps the number of units that are queued but not yet played.
// Enqueue blocks while the cap is reached. Zero means unbounded.
func WithMaxPending(maxPending int) SchedulerOption {
	return func(s *SpeechScheduler) {
		if maxPending >= 0 {
			s.maxPending = maxPending
		}
	}
}

// WithTaskStartedCallback registers a callback invoked right before a
// unit is handed to the renderer.
func WithTaskStartedCallback(callback func(*PlaybackTask)) SchedulerOption {
	return func(s *SpeechScheduler) { s.onStart = callback }
}

// WithTaskCompletedCallback registers a callback invoked once the
// renderer finished a unit.
func WithTaskCompletedCallback(callback func(*PlaybackTask)) SchedulerOption {
	return func(s *SpeechScheduler) { s.onComplete = callback }
}

// WithTaskSynthesisFailedCallback registers a callback invoked when a unit falls
// back to silent playback because synthesis failed.
func WithTaskSynthesisFailedCallback(callback func(*PlaybackTask, error)) SchedulerOption {
	return func(s *SpeechScheduler) { s.onSynthesisFailed = callback }
}

// NewSpeechScheduler starts the fetch and playback workers. They stop when
// ctx is done or the scheduler is closed. A nil synthesizer makes every unit
// silent.
func NewSpeechScheduler(ctx context.Context, synthesizer Synthesizer, renderer Renderer, opts ...SchedulerOption) *SpeechScheduler {
	s := &SpeechScheduler{
		synthesizer:        synthesizer,
		renderer:           renderer,
		voice:              texttospeech.DefaultVoiceParameters(),
		minRequestInterval: DefaultMinRequestInterval,
		fetchQueue:         newOrderedQueue[*PlaybackTask](),
		playbackQueue:      newOrderedQueue[*PlaybackTask](),
		workersDone:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.renderer == nil {
		s.renderer = discardRenderer{}
	}
	if s.minRequestInterval > 0 {
		s.limiter = rate.NewLimiter(rate.Every(s.minRequestInterval), 1)
	}
	if s.maxPending > 0 {
		s.slots = make(chan struct{}, s.maxPending)
	}
	s.initMetrics()

	s.ctx, s.cancel = context.WithCancel(ctx)
	go func() {
		<-s.ctx.Done()
		s.stopAccepting()
	}()

	wg := sync.WaitGroup{}
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.runWorker("speech synthesis", s.fetchWorker)
	}()
	go func() {
		defer wg.Done()
		s.runWorker("speech playback", s.playbackWorker)
	}()
	go func() {
		wg.Wait()
		close(s.workersDone)
	}()

	return s
}

// Enqueue queues a unit for synthesis and playback. It only blocks when a
// pending cap is configured and reached.
func (s *SpeechScheduler) Enqueue(ctx context.Context, sp screenplay.Screenplay) (*PlaybackTask, error) {
	if s.isClosed() {
		return nil, ErrSchedulerClosed
	}

	if s.slots != nil {
		select {
		case s.slots <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.ctx.Done():
			return nil, ErrSchedulerClosed
		}
	}

	task := newPlaybackTask(ctx, sp)

	// Both queues are pushed under the lock so that concurrent callers cannot
	// interleave fetch and playback order.
	s.mu.Lock()
	if s.closed || !s.fetchQueue.Push(task) {
		s.mu.Unlock()
		s.releaseSlot()
		return nil, ErrSchedulerClosed
	}
	s.playbackQueue.Push(task)
	s.last = task
	s.pending.Add(ctx, 1)
	s.mu.Unlock()

	return task, nil
}

// Drain blocks until every unit enqueued so far has been played.
func (s *SpeechScheduler) Drain(ctx context.Context) error {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()
	if last == nil {
		return nil
	}

	select {
	case <-last.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of units waiting to be played.
func (s *SpeechScheduler) Pending() int {
	return s.playbackQueue.Len()
}

// Close stops accepting units, abandons queued ones and waits for the
// workers to exit. Abandoned units still get their Done channel closed.
func (s *SpeechScheduler) Close() error {
	s.stopAccepting()
	s.cancel()
	<-s.workersDone
	return nil
}

func (s *SpeechScheduler) stopAccepting() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.fetchQueue.Complete()
	s.playbackQueue.Complete()
}

func (s *SpeechScheduler) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *SpeechScheduler) runWorker(name string, run func(context.Context) error) {
	if err := panicSafeNamedWorker(name, run)(s.ctx); err != nil {
		logger.Error("speech scheduler worker stopped", "error", err)
	}
}

func (s *SpeechScheduler) fetchWorker(ctx context.Context) error {
	for task := range s.fetchQueue.Items {
		s.fetch(ctx, task)
		close(task.fetched)
	}
	return nil
}

func (s *SpeechScheduler) fetch(ctx context.Context, task *PlaybackTask) {
	if ctx.Err() != nil {
		task.fetchErr = ctx.Err()
		return
	}

	text := task.screenplay.Talk.Message
	if cache, ok := s.synthesizer.(cachedSynthesizer); ok {
		if audio, hit := cache.Lookup(text, s.voice); hit {
			task.audio = audio
			s.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("result", fetchResultCached)))
			return
		}
	}

	if !s.hasCredentials() {
		s.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("result", fetchResultSilent)))
		return
	}

	if err := s.waitForRequestSlot(ctx); err != nil {
		task.fetchErr = err
		return
	}
	defer s.markRequestDone()

	ctx, span := tracer.Start(
		trace.ContextWithSpanContext(ctx, task.spanContext),
		"synthesize speech",
		trace.WithAttributes(
			attribute.String("task.id", task.ID),
			attribute.String("screenplay.expression", string(task.screenplay.Expression)),
			attribute.Int("screenplay.message_length", len(text)),
		),
	)
	defer span.End()

	start := time.Now()
	audio, err := s.synthesizer.Synthesize(ctx, text, s.voice)
	s.requestDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		err = fmt.Errorf("failed to synthesize speech: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("result", fetchResultFailed)))
		logger.Warn("synthesis failed, falling back to silent playback", "task_id", task.ID, "error", err)

		task.fetchErr = err
		if s.onSynthesisFailed != nil && ctx.Err() == nil {
			s.onSynthesisFailed(task, err)
		}
		return
	}

	span.SetAttributes(attribute.Int("response.audio_bytes", len(audio)))
	s.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("result", fetchResultOK)))
	if len(audio) > 0 {
		task.audio = audio
	}
}

// waitForRequestSlot blocks until the minimum interval has passed since the
// previous request finished. The token is only taken in markRequestDone, so
// slow requests push the next one back.
func (s *SpeechScheduler) waitForRequestSlot(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	for {
		tokens := s.limiter.TokensAt(time.Now())
		if tokens >= 1 {
			return nil
		}
		wait := time.Duration((1 - tokens) * float64(s.minRequestInterval))
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

func (s *SpeechScheduler) markRequestDone() {
	if s.limiter != nil {
		s.limiter.AllowN(time.Now(), 1)
	}
}

func (s *SpeechScheduler) playbackWorker(ctx context.Context) error {
	for task := range s.playbackQueue.Items {
		s.play(ctx, task)
	}
	return nil
}

func (s *SpeechScheduler) play(ctx context.Context, task *PlaybackTask) {
	defer func() {
		close(task.done)
		s.releaseSlot()
		s.pending.Add(context.Background(), -1)
	}()

	select {
	case <-task.fetched:
	case <-ctx.Done():
		return
	}
	if ctx.Err() != nil {
		return
	}

	ctx, span := tracer.Start(
		trace.ContextWithSpanContext(ctx, task.spanContext),
		"play screenplay",
		trace.WithAttributes(
			attribute.String("task.id", task.ID),
			attribute.String("screenplay.expression", string(task.screenplay.Expression)),
			attribute.Bool("playback.silent", task.audio == nil),
		),
	)
	defer span.End()

	if s.onStart != nil {
		s.onStart(task)
	}

	if err := s.renderer.Speak(ctx, task.audio, task.screenplay); err != nil && ctx.Err() == nil {
		err = fmt.Errorf("renderer failed to speak: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("renderer failed", "task_id", task.ID, "error", err)
	}

	if s.onComplete != nil {
		s.onComplete(task)
	}
}

func (s *SpeechScheduler) hasCredentials() bool {
	if s.synthesizer == nil {
		return false
	}
	if credentialed, ok := s.synthesizer.(credentialedSynthesizer); ok {
		return credentialed.HasCredentials()
	}
	return true
}

func (s *SpeechScheduler) releaseSlot() {
	if s.slots == nil {
		return
	}
	select {
	case <-s.slots:
	default:
	}
}

func (s *SpeechScheduler) initMetrics() {
	var err error
	if s.requests, err = meter.Int64Counter(
		"scheduler.synthesis.requests",
		metric.WithDescription("Synthesis attempts by result"),
	); err != nil {
		logger.Warn("failed to create metric", "name", "scheduler.synthesis.requests", "error", err)
		s.requests = noop.Int64Counter{}
	}
	if s.requestDuration, err = meter.Float64Histogram(
		"scheduler.synthesis.duration",
		metric.WithDescription("Duration of synthesis requests"),
		metric.WithUnit("s"),
	); err != nil {
		logger.Warn("failed to create metric", "name", "scheduler.synthesis.duration", "error", err)
		s.requestDuration = noop.Float64Histogram{}
	}
	if s.pending, err = meter.Int64UpDownCounter(
		"scheduler.pending",
		metric.WithDescription("Units queued but not yet played"),
	); err != nil {
		logger.Warn("failed to create metric", "name", "scheduler.pending", "error", err)
		s.pending = noop.Int64UpDownCounter{}
	}
}

type discardRenderer struct{}

func (discardRenderer) Speak(context.Context, []byte, screenplay.Screenplay) error { return nil }
