package chat

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/newguy103/chatterm/internal/logging"
)

// Store is the authoritative in-memory mapping from recipient username to
// that conversation's ordered message history, oldest first. Ordering is
// arrival order: pushed messages are appended, never re-sorted.
//
// The TUI event loop applies all reconciliation mutations from a single
// goroutine; the mutex exists so the concurrent history loader and tests
// can use the store directly.
type Store struct {
	mu            sync.Mutex
	conversations map[string]*conversation
	order         []string
	log           zerolog.Logger
}

type conversation struct {
	messages []Message
	ids      map[string]struct{}
}

// NewStore returns an empty conversation store.
func NewStore() *Store {
	return &Store{
		conversations: make(map[string]*conversation),
		log:           logging.Component("store"),
	}
}

// Ensure creates an empty conversation for the recipient if absent.
// Idempotent; insertion order determines the recipient list order.
func (s *Store) Ensure(recipient string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(recipient)
}

func (s *Store) ensureLocked(recipient string) *conversation {
	conv, ok := s.conversations[recipient]
	if !ok {
		conv = &conversation{ids: make(map[string]struct{})}
		s.conversations[recipient] = conv
		s.order = append(s.order, recipient)
	}
	return conv
}

// Has reports whether a conversation exists for the recipient.
func (s *Store) Has(recipient string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.conversations[recipient]
	return ok
}

// Append adds a message at the tail of the recipient's conversation,
// creating the conversation if needed. A duplicate message id within the
// conversation is rejected as a no-op. Returns whether the message was
// appended.
func (s *Store) Append(recipient string, msg Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.ensureLocked(recipient)
	if _, dup := conv.ids[msg.MessageID]; dup {
		s.log.Debug().
			Str("recipient", recipient).
			Str("message_id", msg.MessageID).
			Msg("duplicate append rejected")
		return false
	}
	conv.ids[msg.MessageID] = struct{}{}
	conv.messages = append(conv.messages, msg)
	return true
}

// ReplaceText mutates the targeted message's text in place. An unknown
// recipient or message id is a logged no-op: it means an event referencing
// state this client never saw, a reconciliation gap rather than an error.
func (s *Store) ReplaceText(recipient, messageID, newText string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[recipient]
	if ok {
		if _, known := conv.ids[messageID]; known {
			for i := range conv.messages {
				if conv.messages[i].MessageID == messageID {
					conv.messages[i].MessageData = newText
					return true
				}
			}
		}
	}
	s.log.Warn().
		Str("recipient", recipient).
		Str("message_id", messageID).
		Msg("update for unknown message")
	return false
}

// Remove drops the message with the given id from the recipient's
// conversation. Unknown ids are a no-op.
func (s *Store) Remove(recipient, messageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[recipient]
	if !ok {
		return false
	}
	if _, known := conv.ids[messageID]; !known {
		return false
	}
	delete(conv.ids, messageID)
	filtered := conv.messages[:0]
	for _, msg := range conv.messages {
		if msg.MessageID != messageID {
			filtered = append(filtered, msg)
		}
	}
	conv.messages = filtered
	return true
}

// Messages returns a copy of the recipient's history, oldest first.
func (s *Store) Messages(recipient string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[recipient]
	if !ok {
		return nil
	}
	return append([]Message(nil), conv.messages...)
}

// Len returns the number of messages in the recipient's conversation.
func (s *Store) Len(recipient string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[recipient]
	if !ok {
		return 0
	}
	return len(conv.messages)
}

// Recipients returns the known recipients in insertion order.
func (s *Store) Recipients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Clear discards every conversation. Used on logout and session
// revocation.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = make(map[string]*conversation)
	s.order = nil
}
