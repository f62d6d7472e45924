package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/koscakluka/ema-avatar/core/screenplay"
	"github.com/muesli/reflow/wordwrap"
)

const (
	inputHeight  = 1
	statusHeight = 1
)

type (
	responseMsg        string
	speakingMsg        bool
	synthesisFailedMsg struct{ err error }
	playbackStartedMsg struct {
		screenplay screenplay.Screenplay
		silent     bool
	}
	turnDoneMsg struct{ err error }
)

// chatSession is the part of the app the TUI drives.
type chatSession interface {
	Respond(ctx context.Context, prompt string) error
	CancelTurn()
	AudioBytes() int64
}

func (a *app) Respond(ctx context.Context, prompt string) error {
	return a.orchestrator.Respond(ctx, prompt)
}

func (a *app) CancelTurn() {
	a.orchestrator.CancelTurn()
}

func (a *app) AudioBytes() int64 {
	return a.speech.Bytes()
}

type chatLine struct {
	user bool
	text string
}

type model struct {
	ctx     context.Context
	session chatSession
	events  <-chan tea.Msg

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	lines      []chatLine
	reply      string
	expression screenplay.EmotionTag
	speaking   bool
	responding bool
	silent     bool
	status     string

	width int
	ready bool
}

func newModel(ctx context.Context, session chatSession, events <-chan tea.Msg) model {
	input := textinput.New()
	input.Placeholder = "Say something..."
	input.Prompt = "> "
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(fuchsia)

	return model{
		ctx:        ctx,
		session:    session,
		events:     events,
		input:      input,
		viewport:   viewport.New(0, 0),
		spinner:    sp,
		expression: screenplay.EmotionNeutral,
	}
}

func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, waitForEvent(m.events))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-inputHeight-statusHeight-1, 1)
		m.input.Width = max(msg.Width-len(m.input.Prompt)-1, 1)
		m.ready = true
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEsc:
			if m.responding {
				m.session.CancelTurn()
			}
			return m, nil
		case tea.KeyEnter:
			prompt := strings.TrimSpace(m.input.Value())
			if prompt == "" || m.responding {
				return m, nil
			}
			m.input.Reset()
			m.lines = append(m.lines, chatLine{user: true, text: prompt})
			m.responding = true
			m.status = ""
			m.refresh()
			return m, m.respond(prompt)
		}

	case responseMsg:
		m.reply += string(msg)
		m.refresh()
		return m, waitForEvent(m.events)

	case playbackStartedMsg:
		m.expression = msg.screenplay.Expression
		m.silent = msg.silent
		return m, waitForEvent(m.events)

	case speakingMsg:
		m.speaking = bool(msg)
		return m, waitForEvent(m.events)

	case synthesisFailedMsg:
		m.status = "speech unavailable: " + msg.err.Error()
		return m, waitForEvent(m.events)

	case turnDoneMsg:
		m.responding = false
		m.finishReply()
		if msg.err != nil {
			log.Warn("Turn ended with an error", "error", msg.err)
			m.status = msg.err.Error()
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m model) respond(prompt string) tea.Cmd {
	return func() tea.Msg {
		return turnDoneMsg{err: m.session.Respond(m.ctx, prompt)}
	}
}

func (m *model) finishReply() {
	if m.reply == "" {
		return
	}
	m.lines = append(m.lines, chatLine{text: m.reply})
	m.reply = ""
}

func (m *model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderLog())
	m.viewport.GotoBottom()
}

func (m model) renderLog() string {
	width := max(m.width-2, 10)
	var b strings.Builder
	write := func(line chatLine) {
		who := assistantStyle("avatar")
		if line.user {
			who = userStyle("you")
		}
		b.WriteString(who + "\n")
		b.WriteString(wordwrap.String(line.text, width) + "\n\n")
	}
	for _, line := range m.lines {
		write(line)
	}
	if m.reply != "" {
		write(chatLine{text: m.reply})
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m model) statusLine() string {
	parts := []string{renderExpression(m.expression)}
	switch {
	case m.speaking && m.silent:
		parts = append(parts, m.spinner.View()+" speaking (silent)")
	case m.speaking:
		parts = append(parts, m.spinner.View()+" speaking")
	case m.responding:
		parts = append(parts, m.spinner.View()+" thinking")
	}
	parts = append(parts, statusStyle(fmt.Sprintf("audio %s", humanize.Bytes(uint64(m.session.AudioBytes())))))
	if m.status != "" {
		parts = append(parts, errorStyle(m.status))
	}
	return strings.Join(parts, statusStyle(" • "))
}

func (m model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		m.statusLine(),
		m.input.View(),
	)
}
