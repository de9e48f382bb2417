// Package ui renders the portal conversation in the terminal.
package ui

import (
	"context"
	"errors"
	"log"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zhouzirui/z-tavern/portal/internal/service/portal"
)

// recordDoneMsg reports the outcome of a record toggle.
type recordDoneMsg struct {
	err   error
	state portal.State
}

// submitDoneMsg reports whether the controller took the submitted text.
type submitDoneMsg struct {
	text     string
	accepted bool
}

type speakDoneMsg struct{}

// Controller is the part of the portal service the screen drives.
type Controller interface {
	Snapshot() portal.State
	SetDraft(text string)
	SubmitText(ctx context.Context, text string) bool
	ToggleRecording(ctx context.Context) error
	SpeakLast(ctx context.Context) error
}

// Model is the bubbletea model for the portal screen.
type Model struct {
	ctx    context.Context
	portal Controller
	styles Styles

	input    textinput.Model
	viewport viewport.Model

	state        portal.State
	notification string
	micProblem   string

	width  int
	height int
	ready  bool
}

// New creates the screen for ctrl. Blocking calls made on behalf of the user run with ctx.
func New(ctx context.Context, ctrl Controller) Model {
	state := ctrl.Snapshot()

	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = state.Persona.Placeholder
	input.SetValue(state.Draft)
	input.Focus()

	return Model{
		ctx:      ctx,
		portal:   ctrl,
		styles:   DefaultStyles(),
		input:    input,
		viewport: viewport.New(80, 20),
		state:    state,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case StateMsg:
		m.applyState(msg.State)
		return m, nil

	case NotifyMsg:
		m.notification = msg.Message
		return m, nil

	case recordDoneMsg:
		m.micProblem = ""
		if msg.err != nil && !errors.Is(msg.err, portal.ErrBusy) {
			m.micProblem = "Microphone unavailable: " + msg.err.Error()
		}
		if !msg.state.Recording {
			m.input.SetValue(msg.state.Draft)
			m.input.CursorEnd()
		}
		m.applyState(msg.state)
		return m, nil

	case submitDoneMsg:
		// 控制器拒绝时把文本还给输入框
		if !msg.accepted && m.input.Value() == "" {
			m.input.SetValue(msg.text)
			m.input.CursorEnd()
			m.portal.SetDraft(msg.text)
		}
		return m, nil

	case speakDoneMsg:
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	// 通知框打开时只响应关闭
	if m.notification != "" {
		if msg.Type == tea.KeyEsc || msg.Type == tea.KeyEnter {
			m.notification = ""
		}
		return m, nil
	}

	switch msg.Type {
	case tea.KeyEnter:
		return m.submit()
	case tea.KeyCtrlR:
		return m, m.toggleRecording()
	case tea.KeyCtrlS:
		return m, m.speakLast()
	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.state.Busy() {
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before {
		m.portal.SetDraft(after)
	}
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if m.state.Busy() || isBlank(text) {
		return m, nil
	}

	m.input.Reset()
	ctrl, ctx := m.portal, m.ctx
	return m, func() tea.Msg {
		accepted := ctrl.SubmitText(ctx, text)
		return submitDoneMsg{text: text, accepted: accepted}
	}
}

func (m Model) toggleRecording() tea.Cmd {
	ctrl, ctx := m.portal, m.ctx
	return func() tea.Msg {
		err := ctrl.ToggleRecording(ctx)
		return recordDoneMsg{err: err, state: ctrl.Snapshot()}
	}
}

func (m Model) speakLast() tea.Cmd {
	ctrl, ctx := m.portal, m.ctx
	return func() tea.Msg {
		if err := ctrl.SpeakLast(ctx); err != nil {
			log.Printf("[ui] speak failed: %v", err)
		}
		return speakDoneMsg{}
	}
}

func (m *Model) applyState(state portal.State) {
	m.state = state
	if state.Busy() {
		m.input.Blur()
	} else {
		m.input.Focus()
	}
	m.refreshTranscript()
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	// header(2) + input box(3) + status(1) + help(1)
	const reserved = 7
	m.viewport.Width = max(msg.Width, 1)
	m.viewport.Height = max(msg.Height-reserved, 1)
	m.input.Width = max(msg.Width-8, 10)
	m.ready = true

	m.refreshTranscript()
	return m, nil
}

func (m *Model) refreshTranscript() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

// Notification returns the open notification text, if any.
func (m Model) Notification() string {
	return m.notification
}

// Draft returns the text currently in the input box.
func (m Model) Draft() string {
	return m.input.Value()
}
