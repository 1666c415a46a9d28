// Package push implements the websocket half of the transport gateway:
// the persistent channel the server uses to deliver event notifications.
package push

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Kind is a push event kind as carried in the frame envelope.
type Kind string

const (
	KindMessageReceived Kind = "message.received"
	KindMessageUpdate   Kind = "message.update"
	KindMessageDelete   Kind = "message.delete"
	KindMessageCompose  Kind = "message.compose"
	KindAuthRevoked     Kind = "auth.revoked"
	KindAlive           Kind = "ALIVE"
	KindKeepalive       Kind = "keepalive"
)

// ErrNotEnvelope marks a frame that is not a {message, data} envelope.
var ErrNotEnvelope = errors.New("frame is not an event envelope")

// handshakeToken is the single non-envelope frame: the server sends the
// literal JSON string "OK" once the socket is authorized.
var handshakeToken = []byte(`"OK"`)

// Event is one decoded push frame. Data stays raw; the reconciler decodes
// it per kind.
type Event struct {
	Kind Kind            `json:"message"`
	Data json.RawMessage `json:"data"`
}

// DecodeFrame parses an inbound frame. The boolean reports the handshake
// frame, which carries no event and must be discarded by the caller.
func DecodeFrame(frame []byte) (Event, bool, error) {
	trimmed := bytes.TrimSpace(frame)
	if bytes.Equal(trimmed, handshakeToken) {
		return Event{}, true, nil
	}

	var ev Event
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		return Event{}, false, fmt.Errorf("%w: %v", ErrNotEnvelope, err)
	}
	if ev.Kind == "" {
		return Event{}, false, fmt.Errorf("%w: missing message field", ErrNotEnvelope)
	}
	return ev, false, nil
}

// keepaliveFrame is the outbound liveness event, sent on a fixed interval
// so the server's idle timeout never closes the channel.
func keepaliveFrame() []byte {
	return []byte(`{"message":"keepalive","data":{}}`)
}
