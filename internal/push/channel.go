package push

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/newguy103/chatterm/internal/logging"
)

const (
	// DefaultKeepaliveInterval keeps comfortably inside the server's 20s
	// idle timeout.
	DefaultKeepaliveInterval = 5 * time.Second

	handshakeTimeout = 10 * time.Second
)

// Channel is the live push connection. Inbound frames are decoded in
// arrival order and delivered on Events(); delivery blocks until the
// consumer takes the previous event, so a later frame is never processed
// while an earlier one is still being applied.
type Channel struct {
	conn      *websocket.Conn
	events    chan Event
	keepalive time.Duration
	log       zerolog.Logger

	cancel    context.CancelFunc
	closeOnce sync.Once
}

// Option configures a Channel before dialing.
type Option func(*Channel)

// WithKeepaliveInterval overrides the keepalive cadence.
func WithKeepaliveInterval(d time.Duration) Option {
	return func(c *Channel) {
		if d > 0 {
			c.keepalive = d
		}
	}
}

// Dial connects to the push endpoint, consumes the handshake frame, and
// starts the read and keepalive loops. httpClient supplies the session
// cookie; its jar and transport are reused with the timeout stripped,
// since a whole-request timeout would sever the long-lived socket.
func Dial(ctx context.Context, wsURL string, httpClient *http.Client, opts ...Option) (*Channel, error) {
	ch := &Channel{
		events:    make(chan Event),
		keepalive: DefaultKeepaliveInterval,
		log:       logging.Component("push"),
	}
	for _, opt := range opts {
		opt(ch)
	}

	dialClient := &http.Client{}
	if httpClient != nil {
		dialClient.Jar = httpClient.Jar
		dialClient.Transport = httpClient.Transport
	}

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPClient: dialClient,
	})
	if err != nil {
		return nil, fmt.Errorf("dial push channel: %w", err)
	}
	ch.conn = conn

	if err := ch.readHandshake(ctx); err != nil {
		conn.Close(websocket.StatusProtocolError, "bad handshake")
		return nil, err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	ch.cancel = cancel
	go ch.readLoop(loopCtx)
	go ch.keepaliveLoop(loopCtx)

	ch.log.Debug().Str("url", wsURL).Msg("push channel open")
	return ch, nil
}

// Events returns the inbound event stream. The channel is closed when the
// connection drops or Close is called.
func (c *Channel) Events() <-chan Event {
	return c.events
}

// Close tears down the keepalive timer and the socket. Safe to call more
// than once.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.conn.Close(websocket.StatusNormalClosure, "client closing")
	})
	return err
}

// readHandshake expects the literal "OK" frame before any event frame.
func (c *Channel) readHandshake(ctx context.Context) error {
	hsCtx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()

	_, frame, err := c.conn.Read(hsCtx)
	if err != nil {
		return fmt.Errorf("read handshake: %w", err)
	}
	_, handshake, err := DecodeFrame(frame)
	if err != nil {
		return fmt.Errorf("decode handshake: %w", err)
	}
	if !handshake {
		return errors.New("server did not acknowledge channel readiness")
	}
	return nil
}

func (c *Channel) readLoop(ctx context.Context) {
	defer close(c.events)

	for {
		_, frame, err := c.conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil && websocket.CloseStatus(err) == -1 {
				c.log.Warn().Err(err).Msg("push channel read failed")
			}
			return
		}

		ev, handshake, err := DecodeFrame(frame)
		if err != nil {
			// Protocol violation: log and keep the channel alive.
			c.log.Warn().Err(err).Str("frame", logging.Redact(string(frame))).Msg("unparseable push frame")
			continue
		}
		if handshake {
			c.log.Debug().Msg("unexpected duplicate handshake frame")
			continue
		}

		select {
		case c.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// keepaliveLoop emits the fire-and-forget liveness event. Write failures
// are logged only; the read loop notices a dead socket on its own.
func (c *Channel) keepaliveLoop(ctx context.Context) {
	ticker := time.NewTicker(c.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.conn.Write(ctx, websocket.MessageText, keepaliveFrame()); err != nil {
				if ctx.Err() == nil {
					c.log.Debug().Err(err).Msg("keepalive write failed")
				}
				return
			}
		}
	}
}
