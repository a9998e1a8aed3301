package actorcore

import "sync/atomic"

// Identity is a message's dispatch key. Identities below FastCacheSize are
// eligible for the dense handler cache (spec §3, "Handler table"); larger
// identities are still dispatchable, they just always take the map lookup
// path.
type Identity uint32

// Reserved identities (spec §6).
const (
	Start             Identity = 0
	Continue          Identity = 1
	Shutdown          Identity = 5
	remoteSendRequest Identity = 8 // internal to the Sender actor, never registered for the wire
	Reject            Identity = 9

	ApplicationBase Identity = 100
	ApplicationEnd  Identity = 511 // inclusive
)

// FastCacheSize is the length of the dense per-actor handler cache.
const FastCacheSize = 512

// Ref addresses an actor (or an actor-shaped forwarder such as a ReplyProxy)
// for routing purposes only. It is never an owning reference — sender and
// destination fields on a Message are addresses, not ownership (spec §3,
// "Ownership summary").
type Ref interface {
	Name() string

	// Deliver queues m for asynchronous processing. Exported so that
	// addressable forwarders defined outside this package — a remote
	// ReplyProxy, most notably — can implement Ref too.
	Deliver(m *Message)

	// RunFast executes m's handler synchronously on the calling
	// goroutine, for fast_send. Implementations with no worker loop of
	// their own (a ReplyProxy) are expected to panic: nothing should ever
	// fast_send to them.
	RunFast(m *Message)
}

// Message is the unit of communication between actors. It is single-use:
// once Destination is set by a send, attempting to send the same *Message
// again is a contract violation (spec §3, §4.8).
type Message struct {
	id      Identity
	Payload interface{}

	// Sender is a weak back-reference to whoever sent this message, used by
	// Reply to route an async reply in the reverse direction. Nil for
	// anonymous sends.
	Sender Ref

	// Destination is the actor Send/FastSend was called on — the member
	// actor itself when sent through a Group, never the Group. Set exactly
	// once; destSet guards against reuse.
	Destination Ref

	IsFast bool

	// Last is stamped true by a fast_send (the handler runs with nothing
	// else queued behind it) and false by an async send at enqueue time;
	// Run then overwrites that false with whatever Mailbox.Pop reports once
	// the message is actually popped, so a handler on the async path always
	// sees whether it is draining the last message currently queued (spec
	// §4.2).
	Last bool

	destSet   atomic.Bool
	replySlot *Message
}

// NewMessage creates a fresh, unsent message carrying the given identity and
// payload.
func NewMessage(id Identity, payload interface{}) *Message {
	return &Message{id: id, Payload: payload}
}

// ID returns the message's dispatch identity.
func (m *Message) ID() Identity { return m.id }

// markSent records the destination on first send and reports whether this
// is a reuse of an already-sent message.
func (m *Message) markSent(dest Ref) (reused bool) {
	if !m.destSet.CompareAndSwap(false, true) {
		return true
	}
	m.Destination = dest
	return false
}

// setReplySlot records a pending reply produced by Reply during a
// fast_send, for FastSend's caller to retrieve with TakeReply.
func (m *Message) setReplySlot(reply *Message) { m.replySlot = reply }

// TakeReply returns the reply captured by Reply during this message's
// fast_send, if any, clearing the slot.
func (m *Message) TakeReply() *Message {
	r := m.replySlot
	m.replySlot = nil
	return r
}
