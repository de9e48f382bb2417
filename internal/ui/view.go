package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/z-tavern/portal/internal/model/chat"
	"github.com/zhouzirui/z-tavern/portal/internal/service/portal"
)

const helpText = "enter send · ctrl+r record · ctrl+s speak · pgup/pgdn scroll · ctrl+c quit"

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Opening the portal..."
	}
	if m.notification != "" {
		return m.renderNotification()
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.styles.Input.Width(max(m.width-2, 10)).Render(m.input.View()),
		m.renderStatus(),
		m.styles.Help.Render(helpText),
	)
}

func (m Model) renderHeader() string {
	title := m.styles.Title.Render(m.state.Persona.Title)
	tagline := m.styles.Tagline.Render(m.state.Persona.Tagline)
	return m.styles.Header.Width(max(m.width, 1)).Render(title + "\n" + tagline)
}

func (m Model) renderTranscript() string {
	visible := m.state.Visible()
	if len(visible) == 0 {
		return m.styles.Status.Render("The portal is quiet. Say something.")
	}

	width := max(m.viewport.Width-2, 10)
	blocks := make([]string, 0, len(visible))
	for _, msg := range visible {
		blocks = append(blocks, m.renderMessage(msg, width))
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) renderMessage(msg chat.Message, width int) string {
	speaker := m.state.Persona.Name
	body := m.styles.Persona
	if msg.Role == schema.User {
		speaker = "You"
		body = m.styles.User
		if msg.IsFloating {
			body = m.styles.Floating
		}
	}

	label := speaker
	if msg.Timestamp != nil {
		label += " " + m.styles.Timestamp.Render(msg.Timestamp.Format("15:04"))
	}
	return label + "\n" + body.Width(width).Render(msg.Content)
}

func (m Model) renderStatus() string {
	switch {
	case m.state.Recording:
		return m.styles.Recording.Render("● recording, ctrl+r to stop")
	case m.state.Request == portal.RequestChatPending:
		return m.styles.Status.Render(m.state.Persona.Name + " is answering...")
	case m.state.Request == portal.RequestTranscribePending:
		return m.styles.Status.Render("Listening back...")
	case m.micProblem != "":
		return m.styles.Problem.Render(m.micProblem)
	default:
		return ""
	}
}

func (m Model) renderNotification() string {
	box := m.styles.Modal.Render(m.notification + "\n\n" + m.styles.Help.Render("esc to dismiss"))
	return lipgloss.Place(max(m.width, 1), max(m.height, 1), lipgloss.Center, lipgloss.Center, box)
}

func isBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
