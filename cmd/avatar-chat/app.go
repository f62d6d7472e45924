package main

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	orchestration "github.com/koscakluka/ema-avatar/core"
	"github.com/koscakluka/ema-avatar/core/audio"
	"github.com/koscakluka/ema-avatar/core/audio/miniaudio"
	"github.com/koscakluka/ema-avatar/core/audio/oto"
	"github.com/koscakluka/ema-avatar/core/audio/portaudio"
	"github.com/koscakluka/ema-avatar/core/avatar"
	"github.com/koscakluka/ema-avatar/core/avatar/remote"
	"github.com/koscakluka/ema-avatar/core/history"
	"github.com/koscakluka/ema-avatar/core/llms"
	"github.com/koscakluka/ema-avatar/core/llms/openrouter"
	"github.com/koscakluka/ema-avatar/core/screenplay"
	"github.com/koscakluka/ema-avatar/core/texttospeech"
	"github.com/koscakluka/ema-avatar/core/texttospeech/cache"
	"github.com/koscakluka/ema-avatar/core/texttospeech/elevenlabs"
)

const eventBufferSize = 256

// app owns everything a chat session needs and forwards orchestrator
// callbacks to the TUI as messages.
type app struct {
	orchestrator *orchestration.Orchestrator
	speech       *countingSynthesizer
	history      *history.Store
	player       audio.Player
	remote       *remote.Renderer

	silent bool
	events chan<- tea.Msg
	done   chan struct{}
}

func newApp(ctx context.Context, cfg config, events chan<- tea.Msg) (*app, error) {
	a := &app{events: events, done: make(chan struct{})}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	llm := openrouter.NewClient(cfg.OpenRouterAPIKey,
		openrouter.WithModel(cfg.Model),
		openrouter.WithSite(cfg.SiteURL, cfg.SiteName),
	)

	tts := elevenlabs.NewClient(cfg.ElevenLabsAPIKey, elevenlabs.WithOutputFormat(cfg.OutputFormat))
	speechCache, err := cache.New(tts,
		cache.WithMemoryEntries(cfg.CacheEntries),
		cache.WithDiskDir(cfg.CacheDir),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to create speech cache: %w", err)
	}
	a.speech = &countingSynthesizer{Cache: speechCache}
	a.silent = !tts.HasCredentials()
	if a.silent {
		log.Warn("ELEVENLABS_API_KEY is not set, replies will be silent")
	}

	a.history, err = history.Open(ctx, cfg.HistoryPath, history.WithSessionID(cfg.HistorySession))
	if err != nil {
		return nil, fmt.Errorf("unable to open history: %w", err)
	}
	log.Info("Conversation session", "id", a.history.SessionID(), "path", cfg.HistoryPath)

	renderer, err := a.newRenderer(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := []orchestration.OrchestratorOption{
		orchestration.WithStreamingLLM(llm),
		orchestration.WithSynthesizer(a.speech),
		orchestration.WithRenderer(renderer),
		orchestration.WithVoiceParameters(cfg.Voice),
		orchestration.WithHistory(a.history),
		orchestration.WithHistoryLimit(cfg.HistoryLimit),
		orchestration.WithHideActionPrompts(cfg.HideActionPrompts),
		orchestration.WithBaseContext(ctx),
		orchestration.WithSchedulerOptions(
			orchestration.WithMinRequestInterval(cfg.MinRequestInterval),
			orchestration.WithMaxPending(cfg.MaxPending),
		),
		orchestration.WithPromptOptions(
			llms.WithTemperature(cfg.Temperature),
			llms.WithMaxTokens(cfg.MaxTokens),
		),
		orchestration.WithResponseCallback(func(_, display string) { a.send(responseMsg(display)) }),
		orchestration.WithPlaybackStartedCallback(func(s screenplay.Screenplay, silent bool) {
			a.send(playbackStartedMsg{screenplay: s, silent: silent})
		}),
		orchestration.WithSpeakingStateChangedCallback(func(isSpeaking bool) { a.send(speakingMsg(isSpeaking)) }),
		orchestration.WithSynthesisFailedCallback(func(s screenplay.Screenplay, err error) {
			log.Warn("Speech synthesis failed", "message", s.Talk.Message, "error", err)
			a.send(synthesisFailedMsg{err: err})
		}),
	}
	if cfg.SystemPrompt != "" {
		opts = append(opts, orchestration.WithSystemPrompt(cfg.SystemPrompt))
	}
	a.orchestrator = orchestration.NewOrchestrator(opts...)

	ok = true
	return a, nil
}

func (a *app) newRenderer(ctx context.Context, cfg config) (orchestration.Renderer, error) {
	if cfg.AvatarURL != "" {
		r, err := remote.Dial(ctx, cfg.AvatarURL, remote.WithMIMEType(cfg.OutputFormat.MIMEType()))
		if err != nil {
			return nil, err
		}
		a.remote = r
		log.Info("Connected to remote avatar", "url", cfg.AvatarURL)
		return r, nil
	}

	encoding, pcm := cfg.OutputFormat.EncodingInfo()
	if !pcm && cfg.Player != "none" {
		log.Warn("Output format cannot be played locally, use a pcm_ format", "format", cfg.OutputFormat)
	}

	player, err := newPlayer(cfg.Player, encoding.SampleRate)
	if err != nil {
		return nil, err
	}
	a.player = player

	opts := []avatar.LocalRendererOption{
		avatar.WithPCMAudio(pcm),
		avatar.WithReadingPace(cfg.ReadingPace),
	}
	if player != nil {
		opts = append(opts, avatar.WithPlayer(player))
	}
	return avatar.NewLocalRenderer(opts...), nil
}

func newPlayer(name string, sampleRate int) (audio.Player, error) {
	var (
		player audio.Player
		err    error
	)
	switch name {
	case "", "miniaudio":
		player, err = miniaudio.NewClient(miniaudio.WithSampleRate(sampleRate))
	case "portaudio":
		player, err = portaudio.NewClient(portaudio.WithSampleRate(sampleRate))
	case "oto":
		player, err = oto.NewClient(sampleRate)
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown player %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to open %s player: %w", name, err)
	}
	return player, nil
}

func (a *app) send(msg tea.Msg) {
	select {
	case a.events <- msg:
	case <-a.done:
	}
}

func (a *app) Close() error {
	select {
	case <-a.done:
		return nil
	default:
		close(a.done)
	}

	var errs []error
	if a.orchestrator != nil {
		errs = append(errs, a.orchestrator.Close())
	}
	if a.remote != nil {
		errs = append(errs, a.remote.Close())
	}
	if a.player != nil {
		errs = append(errs, a.player.Close())
	}
	if a.history != nil {
		errs = append(errs, a.history.Close())
	}
	if a.speech != nil {
		errs = append(errs, a.speech.Close())
	}
	return errors.Join(errs...)
}

// countingSynthesizer tracks how much audio was produced, cached or not.
type countingSynthesizer struct {
	*cache.Cache
	bytes atomic.Int64
}

func (s *countingSynthesizer) Synthesize(ctx context.Context, text string, voice texttospeech.VoiceParameters) ([]byte, error) {
	clip, err := s.Cache.Synthesize(ctx, text, voice)
	s.bytes.Add(int64(len(clip)))
	return clip, err
}

func (s *countingSynthesizer) Lookup(text string, voice texttospeech.VoiceParameters) ([]byte, bool) {
	clip, ok := s.Cache.Lookup(text, voice)
	s.bytes.Add(int64(len(clip)))
	return clip, ok
}

func (s *countingSynthesizer) Bytes() int64 {
	return s.bytes.Load()
}
