// Package tui renders the chat client. The view is a pure projection of
// the conversation store: every frame is redrawn from store state, and
// all store mutations flow through the reconciler inside this package's
// single-threaded update loop.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/newguy103/chatterm/internal/api"
	"github.com/newguy103/chatterm/internal/chat"
	"github.com/newguy103/chatterm/internal/logging"
	"github.com/newguy103/chatterm/internal/push"
	"github.com/newguy103/chatterm/internal/syncer"
)

// Config carries everything the TUI needs to run a session.
type Config struct {
	Client         *api.Client
	Session        chat.SessionInfo
	FetchLimit     int
	Keepalive      time.Duration
	Theme          string
	ShowTimestamps bool
	Version        string
}

type focusArea int

const (
	focusInput focusArea = iota
	focusRecipients
	focusMessages
)

type composeField int

const (
	composeFieldRecipient composeField = iota
	composeFieldBody
)

type composeState struct {
	active  bool
	focus   composeField
	to      string
	body    string
	sending bool
}

// Model is the bubbletea model for the chat session.
type Model struct {
	cfg     Config
	client  *api.Client
	store   *chat.Store
	rec     *syncer.Reconciler
	session chat.SessionInfo
	channel *push.Channel
	log     zerolog.Logger

	width  int
	height int

	focus        focusArea
	recipientIdx int
	active       string
	msgCursor    int

	input         string
	editID        string
	confirmDelete string
	compose       composeState

	loading   bool
	connected bool
	status    string
	statusErr bool
	quitMsg   string
}

// NewModel builds the session model. The store starts empty; Init kicks
// off the history load and the push channel dial.
func NewModel(cfg Config) *Model {
	store := chat.NewStore()
	return &Model{
		cfg:     cfg,
		client:  cfg.Client,
		store:   store,
		rec:     syncer.NewReconciler(store, cfg.Session.Username),
		session: cfg.Session,
		log:     logging.Component("tui"),
		loading: true,
		status:  "loading conversations...",
	}
}

// Run starts the TUI and blocks until the session ends. It returns the
// farewell message to print after the terminal is restored.
func Run(cfg Config) (string, error) {
	model := NewModel(cfg)
	defer model.Close()

	program := tea.NewProgram(model, tea.WithAltScreen())
	final, err := program.Run()
	if err != nil {
		return "", err
	}
	if m, ok := final.(*Model); ok {
		return m.quitMsg, nil
	}
	return "", nil
}

// Close tears down the push channel.
func (m *Model) Close() {
	if m.channel != nil {
		_ = m.channel.Close()
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), m.dialCmd())
}

type loadedMsg struct {
	recipients []string
	result     syncer.LoadResult
	err        error
}

type channelMsg struct {
	channel *push.Channel
	err     error
}

type pushEventMsg struct {
	event push.Event
	ok    bool
}

type opDoneMsg struct {
	op  string
	err error
}

// loadCmd fetches the recipient list and fans out the history load. The
// store is seeded off the event loop; the loop observes only the settled
// result.
func (m *Model) loadCmd() tea.Cmd {
	client, store, limit := m.client, m.store, m.cfg.FetchLimit
	return func() tea.Msg {
		ctx := context.Background()
		recipients, err := client.Recipients(ctx)
		if err != nil {
			return loadedMsg{err: err}
		}
		result := syncer.LoadHistory(ctx, client, store, recipients, limit)
		return loadedMsg{recipients: recipients, result: result}
	}
}

func (m *Model) dialCmd() tea.Cmd {
	client, keepalive := m.client, m.cfg.Keepalive
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		var opts []push.Option
		if keepalive > 0 {
			opts = append(opts, push.WithKeepaliveInterval(keepalive))
		}
		channel, err := push.Dial(ctx, client.WebsocketURL(), client.HTTPClient(), opts...)
		return channelMsg{channel: channel, err: err}
	}
}

// waitForEvent hands the next push frame to the update loop. It is
// re-issued after each event, so frames are reconciled strictly one at a
// time in arrival order.
func waitForEvent(channel *push.Channel) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-channel.Events()
		return pushEventMsg{event: event, ok: ok}
	}
}

func (m *Model) sendCmd(recipient, text string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_, err := client.Send(ctx, recipient, text)
		return opDoneMsg{op: "send", err: err}
	}
}

func (m *Model) editCmd(messageID, text string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err := client.Edit(ctx, messageID, text)
		return opDoneMsg{op: "edit", err: err}
	}
}

func (m *Model) deleteCmd(messageID string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err := client.Delete(ctx, messageID)
		return opDoneMsg{op: "delete", err: err}
	}
}

// composeCmd verifies the recipient exists, then opens the conversation
// with its first message.
func (m *Model) composeCmd(recipient, text string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		exists, err := client.UserExists(ctx, recipient)
		if err != nil {
			return opDoneMsg{op: "compose", err: err}
		}
		if !exists {
			return opDoneMsg{op: "compose", err: errUnknownRecipient(recipient)}
		}
		_, err = client.Compose(ctx, recipient, text)
		return opDoneMsg{op: "compose", err: err}
	}
}

func (m *Model) revokeCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err := client.RevokeSession(ctx)
		return opDoneMsg{op: "logout", err: err}
	}
}
