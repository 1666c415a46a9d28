package chat

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Server-enforced bounds, mirrored client-side so bad input fails fast.
const (
	MaxUsernameLength    = 20
	MaxMessageDataLength = 2000
)

var (
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidMessageData = errors.New("invalid message data")
	ErrInvalidMessageID   = errors.New("invalid message id")
)

// ValidateUsername enforces the server's username bounds. The server
// counts characters, not bytes.
func ValidateUsername(name string) error {
	if name == "" || utf8.RuneCountInString(name) > MaxUsernameLength {
		return fmt.Errorf("%w: must be 1..%d chars", ErrInvalidUsername, MaxUsernameLength)
	}
	return nil
}

// ValidateMessageData enforces the server's message length bounds. The
// server counts characters, not bytes.
func ValidateMessageData(data string) error {
	if data == "" || utf8.RuneCountInString(data) > MaxMessageDataLength {
		return fmt.Errorf("%w: must be 1..%d chars", ErrInvalidMessageData, MaxMessageDataLength)
	}
	return nil
}

// ValidateMessageID checks that an id is a well-formed UUID. The server
// assigns UUIDs; anything else on the wire is a protocol violation.
func ValidateMessageID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidMessageID, id)
	}
	return nil
}

// Validate checks a message received from the server. Delete notifications
// carry no body, so allowEmptyData relaxes the message_data bound.
func (m Message) Validate(allowEmptyData bool) error {
	if err := ValidateMessageID(m.MessageID); err != nil {
		return err
	}
	if err := ValidateUsername(m.SenderName); err != nil {
		return fmt.Errorf("sender: %w", err)
	}
	if err := ValidateUsername(m.RecipientName); err != nil {
		return fmt.Errorf("recipient: %w", err)
	}
	if allowEmptyData && m.MessageData == "" {
		return nil
	}
	return ValidateMessageData(m.MessageData)
}
