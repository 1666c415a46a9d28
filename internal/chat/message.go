// Package chat holds the client-side chat data model: messages, the
// conversation key rule, and the in-memory conversation store.
package chat

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SendDateLayout is the timestamp format the server uses for send_date.
const SendDateLayout = "2006-01-02 15:04:05.999999"

// Timestamp wraps time.Time with the server's send_date wire format.
type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return json.Marshal("")
	}
	return json.Marshal(t.Format(SendDateLayout))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(SendDateLayout, raw)
	if err != nil {
		return fmt.Errorf("parse send_date: %w", err)
	}
	t.Time = parsed
	return nil
}

// Message is a single chat message as served by the chatinterface API and
// the push channel. MessageData is the only mutable field; the id and
// send date are assigned by the server at creation.
type Message struct {
	MessageID     string    `json:"message_id"`
	SenderName    string    `json:"sender_name"`
	RecipientName string    `json:"recipient_name"`
	MessageData   string    `json:"message_data"`
	SendDate      Timestamp `json:"send_date"`
}

// SentBy reports whether the message was sent by the given user.
func (m Message) SentBy(username string) bool {
	return m.SenderName == username
}

// ConversationKey derives the conversation a message belongs to, relative
// to the local user: the other participant's username. The rule is
// symmetric and must be the only way callers file messages.
func ConversationKey(m Message, self string) string {
	if m.SenderName == self {
		return m.RecipientName
	}
	return m.SenderName
}

// SessionInfo identifies the authenticated local user. It is created once
// after login and discarded on logout or session revocation.
type SessionInfo struct {
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
}
