package avatar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/koscakluka/ema-avatar/core/audio"
	"github.com/koscakluka/ema-avatar/core/screenplay"
)

type fakePlayer struct {
	played [][]byte
}

func (p *fakePlayer) Play(_ context.Context, pcm []byte) error {
	p.played = append(p.played, pcm)
	return nil
}

func (p *fakePlayer) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{SampleRate: 24000, Format: audio.EncodingLinear16}
}

func (p *fakePlayer) Close() error { return nil }

func sad(message string) screenplay.Screenplay {
	return screenplay.Screenplay{
		Expression: screenplay.EmotionSad,
		Talk:       screenplay.Talk{Style: screenplay.TalkStyleSad, Message: message},
	}
}

func TestLocalRendererAppliesExpressionAndPlays(t *testing.T) {
	player := &fakePlayer{}
	var shown []screenplay.EmotionTag
	idle := 0
	r := NewLocalRenderer(
		WithPlayer(player),
		WithExpressionCallback(func(s screenplay.Screenplay) { shown = append(shown, s.Expression) }),
		WithIdleCallback(func() { idle++ }),
	)

	if err := r.Speak(context.Background(), []byte{1, 2, 3, 4}, sad("Oh no.")); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(shown) != 1 || shown[0] != screenplay.EmotionSad {
		t.Fatalf("expected sad expression to be shown, got %v", shown)
	}
	if len(player.played) != 1 || len(player.played[0]) != 4 {
		t.Fatalf("expected audio to be played once, got %v", player.played)
	}
	if idle != 1 {
		t.Fatalf("expected idle callback after the unit, got %d", idle)
	}
}

func TestLocalRendererShowsExpressionWithoutAudio(t *testing.T) {
	player := &fakePlayer{}
	shown := 0
	r := NewLocalRenderer(WithPlayer(player), WithExpressionCallback(func(screenplay.Screenplay) { shown++ }))

	if err := r.Speak(context.Background(), nil, sad("Silent.")); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if shown != 1 {
		t.Fatalf("expected expression to be applied without audio")
	}
	if len(player.played) != 0 {
		t.Fatalf("expected nothing to be played")
	}
}

func TestLocalRendererHoldsSilentUnitsForReadingTime(t *testing.T) {
	r := NewLocalRenderer(WithReadingPace(10 * time.Millisecond))

	start := time.Now()
	if err := r.Speak(context.Background(), nil, sad("abcde")); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("expected silent unit to be held for 50ms, took %s", elapsed)
	}
}

func TestLocalRendererRejectsCompressedAudio(t *testing.T) {
	player := &fakePlayer{}
	r := NewLocalRenderer(WithPlayer(player), WithPCMAudio(false))

	err := r.Speak(context.Background(), []byte("ID3"), sad("mp3"))
	if !errors.Is(err, ErrUnsupportedAudio) {
		t.Fatalf("expected ErrUnsupportedAudio, got %v", err)
	}
	if len(player.played) != 0 {
		t.Fatalf("expected compressed audio not to reach the player")
	}
}
