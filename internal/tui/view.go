package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	ansitrunc "github.com/muesli/reflow/truncate"

	"github.com/newguy103/chatterm/internal/chat"
)

const (
	recipientPaneWidth = 24
	chromeHeight       = 4 // header + input + footer + status
)

func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "loading..."
	}
	if m.compose.active {
		return m.renderComposeOverlay()
	}

	body := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderRecipients(),
		m.renderConversation(),
	)
	return strings.Join([]string{
		m.renderHeader(),
		body,
		m.renderInput(),
		m.renderFooter(),
	}, "\n")
}

func (m *Model) renderHeader() string {
	palette := m.palette()
	style := lipgloss.NewStyle().
		Background(palette.Header).
		Bold(true).
		Padding(0, 1).
		Width(maxInt(0, m.width))

	conn := "offline"
	if m.connected {
		conn = "connected"
	}
	left := "chatterm " + m.cfg.Version
	center := "user: " + m.session.Username
	right := conn
	return style.Render(joinSpread(left, center, right, m.width-2))
}

func (m *Model) renderRecipients() string {
	palette := m.palette()
	height := m.paneHeight()
	style := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, true, false, false).
		BorderForeground(palette.Border).
		Width(recipientPaneWidth).
		Height(height)

	recipients := m.store.Recipients()
	lines := make([]string, 0, len(recipients)+1)
	title := lipgloss.NewStyle().Bold(true).Render("Conversations")
	lines = append(lines, title)

	selected := lipgloss.NewStyle().Foreground(palette.Selected).Bold(true)
	activeMark := lipgloss.NewStyle().Foreground(palette.SelfSender)
	for i, name := range recipients {
		label := truncate(name, recipientPaneWidth-4)
		switch {
		case m.focus == focusRecipients && i == m.recipientIdx:
			label = selected.Render("> " + label)
		case name == m.active:
			label = activeMark.Render("* " + label)
		default:
			label = "  " + label
		}
		lines = append(lines, label)
	}
	if len(recipients) == 0 {
		muted := lipgloss.NewStyle().Foreground(palette.Muted)
		lines = append(lines, muted.Render("(none yet)"))
	}
	return style.Render(strings.Join(clampLines(lines, height), "\n"))
}

func (m *Model) renderConversation() string {
	palette := m.palette()
	height := m.paneHeight()
	width := maxInt(10, m.width-recipientPaneWidth-2)
	style := lipgloss.NewStyle().Width(width).Height(height).Padding(0, 1)

	if m.loading {
		return style.Render("loading conversations...")
	}
	if m.active == "" {
		muted := lipgloss.NewStyle().Foreground(palette.Muted)
		return style.Render(muted.Render("No conversation selected. ctrl+n starts a new one."))
	}

	messages := m.store.Messages(m.active)
	lines := make([]string, 0, len(messages))
	for i, msg := range messages {
		lines = append(lines, m.renderMessageLine(msg, i, width-2))
	}
	if len(messages) == 0 {
		muted := lipgloss.NewStyle().Foreground(palette.Muted)
		lines = append(lines, muted.Render("(no messages)"))
	}

	// Keep the tail (or the cursor) in view; full redraw every frame.
	visible := tailWindow(lines, height, m.cursorLine(len(messages), height))
	return style.Render(strings.Join(visible, "\n"))
}

// renderMessageLine formats one message row. Edit/delete affordances are
// hinted only on self-sent rows.
func (m *Model) renderMessageLine(msg chat.Message, index, width int) string {
	palette := m.palette()
	self := msg.SentBy(m.session.Username)

	senderStyle := lipgloss.NewStyle().Foreground(palette.Sender).Bold(true)
	if self {
		senderStyle = senderStyle.Foreground(palette.SelfSender)
	}

	prefix := ""
	if m.focus == focusMessages && index == m.msgCursor {
		prefix = lipgloss.NewStyle().Foreground(palette.Selected).Render("> ")
	}

	timestamp := ""
	if m.cfg.ShowTimestamps && !msg.SendDate.IsZero() {
		timestamp = lipgloss.NewStyle().Foreground(palette.Muted).
			Render(msg.SendDate.Format("15:04 ")) // local display only
	}

	hint := ""
	if self && m.focus == focusMessages && index == m.msgCursor {
		hint = lipgloss.NewStyle().Foreground(palette.Muted).Render("  [e]dit [d]elete")
	}

	line := prefix + timestamp + senderStyle.Render(msg.SenderName+": ") + msg.MessageData + hint
	return truncate(line, width)
}

func (m *Model) renderInput() string {
	palette := m.palette()
	prompt := "> "
	if m.editID != "" {
		prompt = lipgloss.NewStyle().Foreground(palette.Selected).Render("edit> ")
	}
	cursor := ""
	if m.focus == focusInput {
		cursor = "_"
	}
	return truncate(prompt+m.input+cursor, maxInt(0, m.width))
}

func (m *Model) renderFooter() string {
	palette := m.palette()
	style := lipgloss.NewStyle().
		Background(palette.Footer).
		Padding(0, 1).
		Width(maxInt(0, m.width))

	if m.confirmDelete != "" {
		return style.Render("Delete this message? [y/n]")
	}

	status := m.status
	if m.statusErr {
		status = lipgloss.NewStyle().Foreground(palette.Error).Render(status)
	}
	help := "tab focus | enter send | ctrl+n compose | ctrl+d logout | ctrl+c quit"
	if status == "" {
		return style.Render(help)
	}
	return style.Render(truncate(status, maxInt(0, m.width-2)))
}

func (m *Model) renderComposeOverlay() string {
	palette := m.palette()
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(palette.Border).
		Padding(1, 2).
		Width(minInt(60, maxInt(30, m.width-4)))

	focusMark := func(field composeField) string {
		if m.compose.focus == field {
			return lipgloss.NewStyle().Foreground(palette.Selected).Render("> ")
		}
		return "  "
	}
	content := strings.Join([]string{
		lipgloss.NewStyle().Bold(true).Render("New conversation"),
		"",
		focusMark(composeFieldRecipient) + "To:      " + m.compose.to,
		focusMark(composeFieldBody) + "Message: " + m.compose.body,
		"",
		lipgloss.NewStyle().Foreground(palette.Muted).
			Render("tab switch field | enter send | esc cancel"),
	}, "\n")

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box.Render(content))
}

func (m *Model) paneHeight() int {
	return maxInt(1, m.height-chromeHeight)
}

// cursorLine picks the line to anchor the viewport on: the selected
// message while navigating, the newest message otherwise.
func (m *Model) cursorLine(count, height int) int {
	if m.focus == focusMessages && count > 0 {
		return minInt(m.msgCursor, count-1)
	}
	return count - 1
}

func tailWindow(lines []string, height, anchor int) []string {
	if len(lines) <= height {
		return lines
	}
	end := anchor + 1
	if end < height {
		end = height
	}
	if end > len(lines) {
		end = len(lines)
	}
	return lines[end-height : end]
}

func clampLines(lines []string, height int) []string {
	if len(lines) <= height {
		return lines
	}
	return lines[:height]
}

func joinSpread(left, center, right string, width int) string {
	if width <= 0 {
		return left
	}
	gap := width - lipgloss.Width(left) - lipgloss.Width(center) - lipgloss.Width(right)
	if gap < 2 {
		return truncate(left+" "+center+" "+right, width)
	}
	half := gap / 2
	return left + strings.Repeat(" ", half) + center + strings.Repeat(" ", gap-half) + right
}

// truncate shortens a line to the given cell width. Lines may carry ANSI
// styling, so cutting has to be escape-aware.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansitrunc.StringWithTail(s, uint(width), "…")
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
