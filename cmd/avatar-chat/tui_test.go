package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/koscakluka/ema-avatar/core/llms/openrouter"
	"github.com/koscakluka/ema-avatar/core/screenplay"
	"github.com/spf13/viper"
)

type fakeSession struct {
	prompts   []string
	cancelled int
	err       error
}

func (s *fakeSession) Respond(_ context.Context, prompt string) error {
	s.prompts = append(s.prompts, prompt)
	return s.err
}

func (s *fakeSession) CancelTurn()       { s.cancelled++ }
func (s *fakeSession) AudioBytes() int64 { return 2048 }

func newTestModel(session *fakeSession) model {
	m := newModel(context.Background(), session, make(chan tea.Msg))
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(model)
}

func update(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(model), cmd
}

func TestSubmittingPromptStartsTurn(t *testing.T) {
	session := &fakeSession{}
	m := newTestModel(session)
	m.input.SetValue("  hello there ")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.responding {
		t.Fatalf("expected model to be responding")
	}
	if m.input.Value() != "" {
		t.Fatalf("expected input to be cleared, got %q", m.input.Value())
	}
	if cmd == nil {
		t.Fatalf("expected a command running the turn")
	}

	msg := cmd()
	if len(session.prompts) != 1 || session.prompts[0] != "hello there" {
		t.Fatalf("expected trimmed prompt to be sent, got %v", session.prompts)
	}
	if _, ok := msg.(turnDoneMsg); !ok {
		t.Fatalf("expected turnDoneMsg, got %T", msg)
	}
}

func TestEnterIgnoredWhileResponding(t *testing.T) {
	session := &fakeSession{}
	m := newTestModel(session)
	m.responding = true
	m.input.SetValue("again")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatalf("expected no turn to be started")
	}
	if m.input.Value() != "again" {
		t.Fatalf("expected input to be kept")
	}
}

func TestEscapeCancelsTurn(t *testing.T) {
	session := &fakeSession{}
	m := newTestModel(session)
	m.responding = true

	update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if session.cancelled != 1 {
		t.Fatalf("expected turn to be cancelled once, got %d", session.cancelled)
	}
}

func TestReplyIsCollectedIntoLog(t *testing.T) {
	m := newTestModel(&fakeSession{})
	m.responding = true

	m, _ = update(t, m, responseMsg("Hello "))
	m, _ = update(t, m, responseMsg("there!"))
	m, _ = update(t, m, playbackStartedMsg{screenplay: screenplay.Screenplay{Expression: screenplay.EmotionHappy}})
	m, _ = update(t, m, speakingMsg(true))

	if m.expression != screenplay.EmotionHappy || !m.speaking {
		t.Fatalf("expected happy speaking avatar, got %s speaking=%v", m.expression, m.speaking)
	}
	if !strings.Contains(m.renderLog(), "Hello there!") {
		t.Fatalf("expected streamed reply in log, got %q", m.renderLog())
	}

	m, _ = update(t, m, turnDoneMsg{})
	if m.responding {
		t.Fatalf("expected turn to be finished")
	}
	if len(m.lines) != 1 || m.lines[0].text != "Hello there!" || m.reply != "" {
		t.Fatalf("expected reply to be moved to the log, got %+v", m.lines)
	}
}

func TestTurnErrorIsShown(t *testing.T) {
	m := newTestModel(&fakeSession{})
	m.responding = true

	m, _ = update(t, m, turnDoneMsg{err: errors.New("stream broke")})
	if !strings.Contains(m.statusLine(), "stream broke") {
		t.Fatalf("expected error in status line, got %q", m.statusLine())
	}
	if !strings.Contains(m.statusLine(), "2.0 kB") {
		t.Fatalf("expected humanized audio size in status line, got %q", m.statusLine())
	}
}

func TestPrintChatModelsFilters(t *testing.T) {
	var out bytes.Buffer
	printChatModels(&out, []openrouter.Model{
		{ID: "anthropic/claude-3.5-sonnet:beta", ContextLength: 200000},
		{ID: "openai/gpt-4o", ContextLength: 128000},
	}, "anthropic", "anthropic/claude-3.5-sonnet:beta")

	if !strings.Contains(out.String(), "claude-3.5-sonnet") || strings.Contains(out.String(), "gpt-4o") {
		t.Fatalf("expected only anthropic models, got %q", out.String())
	}
	if !strings.Contains(out.String(), "200,000") {
		t.Fatalf("expected humanized context length, got %q", out.String())
	}
}

func TestDefaultOutputFormat(t *testing.T) {
	if _, pcm := defaultOutputFormat(false).EncodingInfo(); !pcm {
		t.Fatalf("expected local playback to default to pcm")
	}
	if _, pcm := defaultOutputFormat(true).EncodingInfo(); pcm {
		t.Fatalf("expected remote avatar to default to a compressed format")
	}
}

func TestHideActionPromptsFromConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Reset()
	setConfigDefaults()
	viper.Set("history.path", t.TempDir()+"/history.db")
	viper.Set("cache.dir", t.TempDir())

	cfg, err := configFromViper()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !cfg.HideActionPrompts {
		t.Fatalf("expected action prompts to be hidden by default")
	}

	viper.Set("display.hide_action_prompts", false)
	if cfg, err = configFromViper(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.HideActionPrompts {
		t.Fatalf("expected display.hide_action_prompts to turn hiding off")
	}
}
