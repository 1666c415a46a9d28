package syncer

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newguy103/chatterm/internal/chat"
	"github.com/newguy103/chatterm/internal/push"
)

const (
	idOne   = "0a0ee1f7-6852-4b38-bf67-34a5b4732199"
	idTwo   = "7b1fd2c8-1143-4d29-a078-45b6c5843210"
	idThree = "c82a3e59-2254-4e10-b189-56c7d6954321"
)

func event(kind push.Kind, id, sender, recipient, data string) push.Event {
	payload := fmt.Sprintf(
		`{"message_id":%q,"sender_name":%q,"recipient_name":%q,"message_data":%q,"send_date":"2025-03-14 09:26:53.589793"}`,
		id, sender, recipient, data,
	)
	return push.Event{Kind: kind, Data: json.RawMessage(payload)}
}

func newTestReconciler(t *testing.T) *Reconciler {
	t.Helper()
	return NewReconciler(chat.NewStore(), "alice")
}

func TestReconcilerReceivedIncoming(t *testing.T) {
	r := newTestReconciler(t)

	eff := r.Apply(event(push.KindMessageReceived, idOne, "bob", "alice", "hi alice"))

	assert.Equal(t, EffectAppend, eff.Kind)
	assert.Equal(t, "bob", eff.Recipient)
	assert.False(t, eff.SelfSent)

	got := r.Store().Messages("bob")
	require.Len(t, got, 1)
	assert.Equal(t, "hi alice", got[0].MessageData)
}

func TestReconcilerReceivedSelfSent(t *testing.T) {
	r := newTestReconciler(t)

	// Server echoes our own send back on the push channel; it files under
	// the recipient's conversation.
	eff := r.Apply(event(push.KindMessageReceived, idOne, "alice", "bob", "hi bob"))

	assert.Equal(t, EffectAppend, eff.Kind)
	assert.Equal(t, "bob", eff.Recipient)
	assert.True(t, eff.SelfSent)
	assert.Equal(t, 1, r.Store().Len("bob"))
}

func TestReconcilerReceivedMultibyteText(t *testing.T) {
	r := newTestReconciler(t)

	// 1500 CJK characters exceed 2000 bytes but stay within the server's
	// 2000-character bound; the event must not be dropped as invalid.
	text := strings.Repeat("あ", 1500)
	eff := r.Apply(event(push.KindMessageReceived, idOne, "bob", "alice", text))

	assert.Equal(t, EffectAppend, eff.Kind)
	require.Equal(t, 1, r.Store().Len("bob"))
	assert.Equal(t, text, r.Store().Messages("bob")[0].MessageData)
}

func TestReconcilerReceivedDuplicate(t *testing.T) {
	r := newTestReconciler(t)

	first := r.Apply(event(push.KindMessageReceived, idOne, "bob", "alice", "hi"))
	require.Equal(t, EffectAppend, first.Kind)

	dup := r.Apply(event(push.KindMessageReceived, idOne, "bob", "alice", "hi"))
	assert.Equal(t, EffectNone, dup.Kind)
	assert.Equal(t, 1, r.Store().Len("bob"))
}

func TestReconcilerUpdate(t *testing.T) {
	r := newTestReconciler(t)
	r.Apply(event(push.KindMessageReceived, idOne, "bob", "alice", "original"))

	eff := r.Apply(event(push.KindMessageUpdate, idOne, "bob", "alice", "edited"))

	assert.Equal(t, EffectUpdate, eff.Kind)
	assert.Equal(t, "bob", eff.Recipient)
	assert.Equal(t, idOne, eff.MessageID)
	assert.Equal(t, "edited", r.Store().Messages("bob")[0].MessageData)
}

func TestReconcilerUpdateUnknownMessage(t *testing.T) {
	r := newTestReconciler(t)

	eff := r.Apply(event(push.KindMessageUpdate, idOne, "bob", "alice", "edited"))

	assert.Equal(t, EffectNone, eff.Kind)
	assert.Equal(t, 0, r.Store().Len("bob"))
}

func TestReconcilerDelete(t *testing.T) {
	r := newTestReconciler(t)
	r.Apply(event(push.KindMessageReceived, idOne, "bob", "alice", "one"))
	r.Apply(event(push.KindMessageReceived, idTwo, "bob", "alice", "two"))

	// Delete notifications carry no message body.
	eff := r.Apply(event(push.KindMessageDelete, idOne, "bob", "alice", ""))

	assert.Equal(t, EffectRemove, eff.Kind)
	assert.Equal(t, "bob", eff.Recipient)
	assert.Equal(t, idOne, eff.MessageID)

	got := r.Store().Messages("bob")
	require.Len(t, got, 1)
	assert.Equal(t, idTwo, got[0].MessageID)
}

func TestReconcilerDeleteUnknownMessage(t *testing.T) {
	r := newTestReconciler(t)

	eff := r.Apply(event(push.KindMessageDelete, idOne, "bob", "alice", ""))
	assert.Equal(t, EffectNone, eff.Kind)
}

func TestReconcilerComposeNewConversation(t *testing.T) {
	r := newTestReconciler(t)

	eff := r.Apply(event(push.KindMessageCompose, idOne, "carol", "alice", "hello there"))

	assert.Equal(t, EffectCompose, eff.Kind)
	assert.Equal(t, "carol", eff.Recipient)
	assert.True(t, eff.NewConversation)
	assert.Equal(t, []string{"carol"}, r.Store().Recipients())
	assert.Equal(t, 1, r.Store().Len("carol"))
}

func TestReconcilerComposePreservesHistory(t *testing.T) {
	r := newTestReconciler(t)
	r.Apply(event(push.KindMessageReceived, idOne, "bob", "alice", "earlier"))

	eff := r.Apply(event(push.KindMessageCompose, idTwo, "alice", "bob", "fresh start"))

	assert.Equal(t, EffectCompose, eff.Kind)
	assert.False(t, eff.NewConversation)
	assert.True(t, eff.SelfSent)

	got := r.Store().Messages("bob")
	require.Len(t, got, 2)
	assert.Equal(t, "earlier", got[0].MessageData)
	assert.Equal(t, "fresh start", got[1].MessageData)
}

func TestReconcilerAuthRevokedLatches(t *testing.T) {
	r := newTestReconciler(t)
	r.Apply(event(push.KindMessageReceived, idOne, "bob", "alice", "hi"))

	eff := r.Apply(push.Event{Kind: push.KindAuthRevoked, Data: json.RawMessage(`{}`)})

	assert.Equal(t, EffectRevoked, eff.Kind)
	assert.True(t, r.Revoked())
	assert.Empty(t, r.Store().Recipients())

	// Frames after revocation are discarded.
	after := r.Apply(event(push.KindMessageReceived, idTwo, "bob", "alice", "late"))
	assert.Equal(t, EffectNone, after.Kind)
	assert.Equal(t, 0, r.Store().Len("bob"))
}

func TestReconcilerAliveIsNoop(t *testing.T) {
	r := newTestReconciler(t)

	eff := r.Apply(push.Event{Kind: push.KindAlive, Data: json.RawMessage(`{}`)})
	assert.Equal(t, EffectNone, eff.Kind)
}

func TestReconcilerUnknownKind(t *testing.T) {
	r := newTestReconciler(t)

	eff := r.Apply(push.Event{Kind: "message.exploded", Data: json.RawMessage(`{}`)})
	assert.Equal(t, EffectNone, eff.Kind)
	assert.False(t, r.Revoked())
}

func TestReconcilerMalformedPayload(t *testing.T) {
	r := newTestReconciler(t)

	broken := push.Event{Kind: push.KindMessageReceived, Data: json.RawMessage(`{"message_id": 42`)}
	assert.Equal(t, EffectNone, r.Apply(broken).Kind)

	// Well-formed JSON that fails validation is equally rejected.
	invalid := event(push.KindMessageReceived, "not-a-uuid", "bob", "alice", "hi")
	assert.Equal(t, EffectNone, r.Apply(invalid).Kind)
	assert.Equal(t, 0, r.Store().Len("bob"))
}
