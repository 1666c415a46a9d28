// Package syncer reconciles server push events with the local
// conversation store. It is the only code path that mutates the store
// after the initial history load.
package syncer

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/newguy103/chatterm/internal/chat"
	"github.com/newguy103/chatterm/internal/logging"
	"github.com/newguy103/chatterm/internal/push"
)

// EffectKind tells the view projector what a reconciled event changed.
type EffectKind int

const (
	// EffectNone: nothing changed (ALIVE, duplicates, protocol noise).
	EffectNone EffectKind = iota

	// EffectAppend: a message was appended to Recipient's conversation.
	EffectAppend

	// EffectUpdate: MessageID's text changed in Recipient's conversation.
	EffectUpdate

	// EffectRemove: MessageID was removed from Recipient's conversation.
	EffectRemove

	// EffectCompose: a conversation was established (possibly new) with
	// its first message appended.
	EffectCompose

	// EffectRevoked: the session ended; the store has been cleared and no
	// further event will be applied.
	EffectRevoked
)

// Effect describes the outcome of applying one push event.
type Effect struct {
	Kind      EffectKind
	Recipient string
	Message   chat.Message
	MessageID string
	SelfSent  bool

	// NewConversation is set on EffectCompose when the recipient was not
	// previously known, so the view can extend its recipient list.
	NewConversation bool
}

// Reconciler applies push events to the conversation store. It must only
// be driven from a single goroutine (the TUI event loop); events are
// applied strictly in arrival order.
type Reconciler struct {
	store   *chat.Store
	self    string
	revoked bool
	log     zerolog.Logger
}

// NewReconciler creates a reconciler for the authenticated user.
func NewReconciler(store *chat.Store, self string) *Reconciler {
	return &Reconciler{
		store: store,
		self:  self,
		log:   logging.Component("syncer").With().Str("username", self).Logger(),
	}
}

// Store exposes the underlying conversation store for read access.
func (r *Reconciler) Store() *chat.Store {
	return r.store
}

// Self returns the local username.
func (r *Reconciler) Self() string {
	return r.self
}

// Revoked reports whether the session has been terminated.
func (r *Reconciler) Revoked() bool {
	return r.revoked
}

// Apply reconciles one push event. Protocol violations and state
// inconsistencies are logged and swallowed; auth.revoked latches the
// reconciler so later frames are discarded.
func (r *Reconciler) Apply(ev push.Event) Effect {
	if r.revoked {
		r.log.Debug().Str("kind", string(ev.Kind)).Msg("event after revocation discarded")
		return Effect{Kind: EffectNone}
	}

	switch ev.Kind {
	case push.KindMessageReceived:
		return r.applyReceived(ev.Data)
	case push.KindMessageUpdate:
		return r.applyUpdate(ev.Data)
	case push.KindMessageDelete:
		return r.applyDelete(ev.Data)
	case push.KindMessageCompose:
		return r.applyCompose(ev.Data)
	case push.KindAuthRevoked:
		r.revoked = true
		r.store.Clear()
		r.log.Info().Msg("session revoked by server")
		return Effect{Kind: EffectRevoked}
	case push.KindAlive:
		// Liveness reply to our keepalive; reserved for future use.
		return Effect{Kind: EffectNone}
	default:
		r.log.Warn().Str("kind", string(ev.Kind)).Msg("unrecognized push event")
		return Effect{Kind: EffectNone}
	}
}

func (r *Reconciler) applyReceived(data json.RawMessage) Effect {
	msg, ok := r.decodeMessage("message.received", data, false)
	if !ok {
		return Effect{Kind: EffectNone}
	}
	key := chat.ConversationKey(msg, r.self)
	if !r.store.Append(key, msg) {
		// Duplicate id: already reconciled.
		return Effect{Kind: EffectNone}
	}
	return Effect{
		Kind:      EffectAppend,
		Recipient: key,
		Message:   msg,
		MessageID: msg.MessageID,
		SelfSent:  msg.SentBy(r.self),
	}
}

func (r *Reconciler) applyUpdate(data json.RawMessage) Effect {
	msg, ok := r.decodeMessage("message.update", data, false)
	if !ok {
		return Effect{Kind: EffectNone}
	}
	key := chat.ConversationKey(msg, r.self)
	if !r.store.ReplaceText(key, msg.MessageID, msg.MessageData) {
		return Effect{Kind: EffectNone}
	}
	return Effect{
		Kind:      EffectUpdate,
		Recipient: key,
		Message:   msg,
		MessageID: msg.MessageID,
		SelfSent:  msg.SentBy(r.self),
	}
}

func (r *Reconciler) applyDelete(data json.RawMessage) Effect {
	msg, ok := r.decodeMessage("message.delete", data, true)
	if !ok {
		return Effect{Kind: EffectNone}
	}
	key := chat.ConversationKey(msg, r.self)
	if !r.store.Remove(key, msg.MessageID) {
		r.log.Warn().
			Str("recipient", key).
			Str("message_id", msg.MessageID).
			Msg("delete for unknown message")
		return Effect{Kind: EffectNone}
	}
	return Effect{
		Kind:      EffectRemove,
		Recipient: key,
		MessageID: msg.MessageID,
		SelfSent:  msg.SentBy(r.self),
	}
}

// applyCompose establishes a conversation from its first message. The
// conversation is created if absent and the message appended with the
// usual duplicate protection; an already-loaded history is preserved
// rather than replaced.
func (r *Reconciler) applyCompose(data json.RawMessage) Effect {
	msg, ok := r.decodeMessage("message.compose", data, false)
	if !ok {
		return Effect{Kind: EffectNone}
	}
	key := chat.ConversationKey(msg, r.self)
	existed := r.store.Has(key)
	r.store.Ensure(key)
	r.store.Append(key, msg)
	return Effect{
		Kind:            EffectCompose,
		Recipient:       key,
		Message:         msg,
		MessageID:       msg.MessageID,
		SelfSent:        msg.SentBy(r.self),
		NewConversation: !existed,
	}
}

func (r *Reconciler) decodeMessage(kind string, data json.RawMessage, allowEmptyData bool) (chat.Message, bool) {
	var msg chat.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		r.log.Warn().Str("kind", kind).Err(err).Msg("malformed event payload")
		return chat.Message{}, false
	}
	if err := msg.Validate(allowEmptyData); err != nil {
		r.log.Warn().Str("kind", kind).Err(err).Msg("invalid event payload")
		return chat.Message{}, false
	}
	return msg, true
}
