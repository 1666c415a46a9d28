package tui

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/newguy103/chatterm/internal/api"
	"github.com/newguy103/chatterm/internal/syncer"
)

type unknownRecipientError string

func (e unknownRecipientError) Error() string {
	return fmt.Sprintf("no user named %q", string(e))
}

func errUnknownRecipient(name string) error {
	return unknownRecipientError(name)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		return m.handleLoaded(msg)

	case channelMsg:
		if msg.err != nil {
			m.connected = false
			m.setError("push channel unavailable: " + msg.err.Error())
			return m, nil
		}
		m.channel = msg.channel
		m.connected = true
		return m, waitForEvent(m.channel)

	case pushEventMsg:
		return m.handlePushEvent(msg)

	case opDoneMsg:
		return m.handleOpDone(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleLoaded(msg loadedMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	if msg.err != nil {
		m.setError("loading conversations failed: " + friendlyError(msg.err) + " (ctrl+r retries)")
		return m, nil
	}

	recipients := m.store.Recipients()
	if len(recipients) > 0 && m.active == "" {
		m.active = recipients[0]
		m.recipientIdx = 0
	}

	switch {
	case msg.result.AllFailed():
		m.setError("history fetch failed for all recipients (ctrl+r retries)")
	case len(msg.result.Failed) > 0:
		m.setError("history fetch failed for: " + strings.Join(msg.result.Failed, ", ") + " (ctrl+r retries)")
	default:
		m.setStatus(fmt.Sprintf("%d conversations loaded", len(recipients)))
	}
	return m, nil
}

func (m *Model) handlePushEvent(msg pushEventMsg) (tea.Model, tea.Cmd) {
	if !msg.ok {
		m.connected = false
		if !m.rec.Revoked() {
			m.setError("push channel disconnected")
		}
		return m, nil
	}

	effect := m.rec.Apply(msg.event)
	switch effect.Kind {
	case syncer.EffectRevoked:
		m.quitMsg = "You have been logged out, please login again."
		return m, tea.Quit

	case syncer.EffectCompose:
		if effect.NewConversation && !effect.SelfSent {
			m.setStatus("new conversation with " + effect.Recipient)
		}
		if m.active == "" {
			m.active = effect.Recipient
		}

	case syncer.EffectAppend:
		if effect.Recipient != m.active && !effect.SelfSent {
			m.setStatus("new message from " + effect.Recipient)
		}

	case syncer.EffectRemove:
		// Keep the cursor inside the shrunk conversation.
		if effect.Recipient == m.active {
			m.clampMessageCursor()
		}
	}
	return m, waitForEvent(m.channel)
}

func (m *Model) handleOpDone(msg opDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.setError(msg.op + " failed: " + friendlyError(msg.err))
		if msg.op == "logout" {
			// Server unreachable; end the session locally anyway.
			m.quitMsg = "Logged out."
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.op {
	case "logout":
		m.quitMsg = "Logged out."
		return m, tea.Quit
	case "compose":
		m.setStatus("conversation started")
	default:
		// Send/edit/delete results land via the push channel; nothing to
		// apply here.
		m.setStatus("")
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Session-wide bindings first.
	switch msg.String() {
	case "ctrl+c":
		m.quitMsg = ""
		return m, tea.Quit
	case "ctrl+d":
		return m, m.revokeCmd()
	case "ctrl+r":
		// Re-run the load; the store's id dedup keeps already-seeded
		// conversations intact.
		if m.loading {
			return m, nil
		}
		m.loading = true
		m.setStatus("reloading conversations...")
		return m, m.loadCmd()
	}

	if m.compose.active {
		return m.handleComposeKey(msg)
	}
	if m.confirmDelete != "" {
		return m.handleConfirmDeleteKey(msg)
	}

	if msg.String() == "ctrl+n" {
		m.compose = composeState{active: true}
		return m, nil
	}
	if msg.String() == "tab" {
		m.focus = (m.focus + 1) % 3
		return m, nil
	}

	switch m.focus {
	case focusInput:
		return m.handleInputKey(msg)
	case focusRecipients:
		return m.handleRecipientsKey(msg)
	case focusMessages:
		return m.handleMessagesKey(msg)
	}
	return m, nil
}

func (m *Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		text := strings.TrimSpace(m.input)
		if text == "" {
			return m, nil
		}
		if m.editID != "" {
			id := m.editID
			m.editID = ""
			m.input = ""
			return m, m.editCmd(id, text)
		}
		if m.active == "" {
			m.setError("no conversation selected (ctrl+n to compose)")
			return m, nil
		}
		m.input = ""
		return m, m.sendCmd(m.active, text)

	case tea.KeyEsc:
		m.input = ""
		m.editID = ""
		return m, nil

	case tea.KeyBackspace:
		m.input = trimLastRune(m.input)
		return m, nil

	case tea.KeySpace:
		m.input += " "
		return m, nil

	case tea.KeyRunes:
		m.input += string(msg.Runes)
		return m, nil
	}
	return m, nil
}

func (m *Model) handleRecipientsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	recipients := m.store.Recipients()
	if len(recipients) == 0 {
		return m, nil
	}
	if m.recipientIdx >= len(recipients) {
		m.recipientIdx = len(recipients) - 1
	}

	switch msg.String() {
	case "up", "k":
		if m.recipientIdx > 0 {
			m.recipientIdx--
		}
	case "down", "j":
		if m.recipientIdx < len(recipients)-1 {
			m.recipientIdx++
		}
	case "enter":
		// Switching is a pure store read; the view fully re-renders from
		// the selected conversation.
		m.active = recipients[m.recipientIdx]
		m.msgCursor = 0
		m.focus = focusInput
	}
	return m, nil
}

func (m *Model) handleMessagesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	messages := m.store.Messages(m.active)
	if len(messages) == 0 {
		return m, nil
	}
	m.clampMessageCursor()

	switch msg.String() {
	case "up", "k":
		if m.msgCursor > 0 {
			m.msgCursor--
		}
	case "down", "j":
		if m.msgCursor < len(messages)-1 {
			m.msgCursor++
		}
	case "g":
		m.msgCursor = 0
	case "G":
		m.msgCursor = len(messages) - 1

	case "e":
		selected := messages[m.msgCursor]
		if !selected.SentBy(m.session.Username) {
			m.setError("only your own messages can be edited")
			return m, nil
		}
		m.editID = selected.MessageID
		m.input = selected.MessageData
		m.focus = focusInput

	case "d":
		selected := messages[m.msgCursor]
		if !selected.SentBy(m.session.Username) {
			m.setError("only your own messages can be deleted")
			return m, nil
		}
		m.confirmDelete = selected.MessageID
	}
	return m, nil
}

func (m *Model) handleConfirmDeleteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	id := m.confirmDelete
	switch strings.ToLower(msg.String()) {
	case "y":
		m.confirmDelete = ""
		return m, m.deleteCmd(id)
	case "n", "esc":
		m.confirmDelete = ""
	}
	return m, nil
}

func (m *Model) handleComposeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.compose.sending {
		return m, nil
	}

	switch msg.Type {
	case tea.KeyEsc:
		m.compose = composeState{}
		return m, nil

	case tea.KeyTab:
		if m.compose.focus == composeFieldRecipient {
			m.compose.focus = composeFieldBody
		} else {
			m.compose.focus = composeFieldRecipient
		}
		return m, nil

	case tea.KeyEnter:
		to := strings.TrimSpace(m.compose.to)
		body := strings.TrimSpace(m.compose.body)
		if to == "" {
			m.compose.focus = composeFieldRecipient
			return m, nil
		}
		if body == "" {
			m.compose.focus = composeFieldBody
			return m, nil
		}
		m.compose = composeState{}
		return m, m.composeCmd(to, body)

	case tea.KeyBackspace:
		if m.compose.focus == composeFieldRecipient {
			m.compose.to = trimLastRune(m.compose.to)
		} else {
			m.compose.body = trimLastRune(m.compose.body)
		}
		return m, nil

	case tea.KeySpace:
		if m.compose.focus == composeFieldBody {
			m.compose.body += " "
		}
		return m, nil

	case tea.KeyRunes:
		if m.compose.focus == composeFieldRecipient {
			m.compose.to += string(msg.Runes)
		} else {
			m.compose.body += string(msg.Runes)
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) clampMessageCursor() {
	count := m.store.Len(m.active)
	if count == 0 {
		m.msgCursor = 0
		return
	}
	if m.msgCursor >= count {
		m.msgCursor = count - 1
	}
}

func (m *Model) setStatus(text string) {
	m.status = text
	m.statusErr = false
}

func (m *Model) setError(text string) {
	m.status = text
	m.statusErr = true
}

func trimLastRune(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	return string(runes[:len(runes)-1])
}

// friendlyError maps transport failures to a short user-facing message.
// Rejections that carry a server detail (send-to-self, compose conflicts)
// show it verbatim.
func friendlyError(err error) string {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return err.Error()
	}
	switch apiErr.Kind {
	case api.ErrorKindNetwork:
		return "server unreachable"
	case api.ErrorKindDecode:
		return "unexpected server response"
	}
	switch apiErr.Status {
	case http.StatusUnauthorized:
		return "session expired, please login again"
	case http.StatusNotFound:
		return "not found on server"
	}
	if apiErr.Detail != "" {
		return apiErr.Detail
	}
	switch apiErr.Status {
	case http.StatusConflict:
		return "conversation state conflict (already exists or needs compose)"
	case http.StatusBadRequest:
		return "request rejected by server"
	}
	return err.Error()
}
