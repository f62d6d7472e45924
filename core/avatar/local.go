// Package avatar contains renderers that play screenplays on this machine.
package avatar

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/koscakluka/ema-avatar/core/audio"
	"github.com/koscakluka/ema-avatar/core/screenplay"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ErrUnsupportedAudio = errors.New("audio format cannot be played locally")

// LocalRenderer applies expressions through a callback and plays audio on a
// local PCM player.
type LocalRenderer struct {
	player       audio.Player
	playable     bool
	onExpression func(screenplay.Screenplay)
	onIdle       func()
	readingPace  time.Duration
}

type LocalRendererOption func(*LocalRenderer)

// WithPlayer sets the device audio is played on. Without one every unit is
// handled as silent.
func WithPlayer(player audio.Player) LocalRendererOption {
	return func(r *LocalRenderer) { r.player = player }
}

// WithPCMAudio declares whether the synthesized audio is raw PCM matching
// the player. Compressed audio is rejected.
func WithPCMAudio(pcm bool) LocalRendererOption {
	return func(r *LocalRenderer) { r.playable = pcm }
}

// WithExpressionCallback registers the callback that shows a unit's
// expression and text.
func WithExpressionCallback(callback func(screenplay.Screenplay)) LocalRendererOption {
	return func(r *LocalRenderer) { r.onExpression = callback }
}

// WithIdleCallback registers a callback invoked after every unit.
func WithIdleCallback(callback func()) LocalRendererOption {
	return func(r *LocalRenderer) { r.onIdle = callback }
}

// WithReadingPace makes silent units hold their expression for pace per
// rune of the message, so a silent reply is not shown all at once.
func WithReadingPace(pace time.Duration) LocalRendererOption {
	return func(r *LocalRenderer) {
		if pace >= 0 {
			r.readingPace = pace
		}
	}
}

func NewLocalRenderer(opts ...LocalRendererOption) *LocalRenderer {
	r := &LocalRenderer{playable: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Speak shows the expression and blocks until the audio, or the reading
// time of a silent unit, has elapsed.
func (r *LocalRenderer) Speak(ctx context.Context, pcm []byte, s screenplay.Screenplay) error {
	ctx, span := tracer.Start(ctx, "render screenplay locally")
	defer span.End()
	span.SetAttributes(
		attribute.String("screenplay.expression", string(s.Expression)),
		attribute.Int("audio.bytes", len(pcm)),
	)

	if r.onExpression != nil {
		r.onExpression(s)
	}
	if r.onIdle != nil {
		defer r.onIdle()
	}

	if pcm == nil || r.player == nil {
		return r.hold(ctx, s)
	}
	if !r.playable {
		err := fmt.Errorf("%w: %d bytes", ErrUnsupportedAudio, len(pcm))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if holdErr := r.hold(ctx, s); holdErr != nil {
			return holdErr
		}
		return err
	}

	span.SetAttributes(attribute.Float64("audio.duration", r.player.EncodingInfo().Duration(len(pcm)).Seconds()))
	if err := r.player.Play(ctx, pcm); err != nil {
		err = fmt.Errorf("failed to play audio: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("local playback failed", "error", err)
		return err
	}
	return nil
}

func (r *LocalRenderer) hold(ctx context.Context, s screenplay.Screenplay) error {
	if r.readingPace == 0 {
		return nil
	}

	timer := time.NewTimer(time.Duration(utf8.RuneCountInString(s.Talk.Message)) * r.readingPace)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
