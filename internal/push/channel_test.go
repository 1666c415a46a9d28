package push

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pushServer runs a minimal server side of the channel protocol: accept,
// acknowledge, then play the given frames.
func pushServer(t *testing.T, frames ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		ctx := r.Context()
		if err := conn.Write(ctx, websocket.MessageText, []byte(`"OK"`)); err != nil {
			return
		}
		for _, frame := range frames {
			if err := conn.Write(ctx, websocket.MessageText, []byte(frame)); err != nil {
				return
			}
		}
		// Drain client frames (keepalives) until the client hangs up.
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestChannelDeliversEvents(t *testing.T) {
	srv := pushServer(t,
		`{"message":"message.received","data":{"message_id":"m1"}}`,
		`{"message":"message.delete","data":{"message_id":"m2"}}`,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := Dial(ctx, wsURL(srv), nil)
	require.NoError(t, err)
	defer ch.Close()

	first := <-ch.Events()
	assert.Equal(t, KindMessageReceived, first.Kind)
	second := <-ch.Events()
	assert.Equal(t, KindMessageDelete, second.Kind)
}

func TestChannelSkipsUnparseableFrames(t *testing.T) {
	srv := pushServer(t,
		`this is not an envelope`,
		`{"message":"message.update","data":{"message_id":"m1"}}`,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := Dial(ctx, wsURL(srv), nil)
	require.NoError(t, err)
	defer ch.Close()

	ev := <-ch.Events()
	assert.Equal(t, KindMessageUpdate, ev.Kind)
}

func TestChannelRejectsMissingHandshake(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		// An event frame before the acknowledgement is a protocol error.
		_ = conn.Write(r.Context(), websocket.MessageText,
			[]byte(`{"message":"message.received","data":{}}`))
		_, _, _ = conn.Read(r.Context())
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := Dial(ctx, wsURL(srv), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acknowledge")
}

func TestChannelSendsKeepalives(t *testing.T) {
	received := make(chan []byte, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		ctx := r.Context()
		if err := conn.Write(ctx, websocket.MessageText, []byte(`"OK"`)); err != nil {
			return
		}
		for {
			_, frame, err := conn.Read(ctx)
			if err != nil {
				return
			}
			select {
			case received <- frame:
			default:
			}
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := Dial(ctx, wsURL(srv), nil, WithKeepaliveInterval(20*time.Millisecond))
	require.NoError(t, err)
	defer ch.Close()

	select {
	case frame := <-received:
		ev, handshake, err := DecodeFrame(frame)
		require.NoError(t, err)
		assert.False(t, handshake)
		assert.Equal(t, KindKeepalive, ev.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("no keepalive frame arrived")
	}
}

func TestChannelCloseIsIdempotent(t *testing.T) {
	srv := pushServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := Dial(ctx, wsURL(srv), nil)
	require.NoError(t, err)

	require.NoError(t, ch.Close())
	assert.NoError(t, ch.Close())

	// The event stream ends once the socket is down.
	select {
	case _, open := <-ch.Events():
		assert.False(t, open)
	case <-time.After(2 * time.Second):
		t.Fatal("event stream did not close")
	}
}
