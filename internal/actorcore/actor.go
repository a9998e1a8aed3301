package actorcore

import (
	"sync"
	"sync/atomic"

	"github.com/vane-rt/vane/internal/errors"
	"github.com/vane-rt/vane/internal/rtlog"
)

// Actor is a single thread-per-actor unit: one mailbox, one handler table,
// and (once started by a Manager) one dedicated goroutine running Run. State
// touched by handlers is never shared across actors except through Message
// payloads, so handlers themselves need no internal locking.
type Actor struct {
	name string
	log  rtlog.Logger

	mailbox  *Mailbox
	table    *handlerTable
	fallback HandlerFunc

	// fastMu serializes handler execution for this actor across both the
	// owning worker goroutine and any caller invoking FastSend directly, so
	// at most one handler call for this actor is ever in flight (spec §4.2).
	fastMu sync.Mutex

	// owner is set when this actor is a Group member; its async sends route
	// into the owner's mailbox instead of its own (spec §4.4).
	owner *Group

	// initFn/endFn are the lifecycle hooks run around this actor's active
	// life: initFn before it takes its first mailbox message (see WithInit
	// for how this orders against Start), endFn once it has
	// processed its terminal Shutdown. Neither is a message handler; a Group
	// invokes them directly on its members, and Run invokes them on a
	// standalone actor around its own loop (spec §4.3).
	initFn func()
	endFn  func()

	msgCount   atomic.Uint64
	running    atomic.Bool
	terminated atomic.Bool
}

// ActorOption configures an Actor at construction time.
type ActorOption func(*Actor)

// WithFallback overrides the actor's handling of identities with no
// registered handler. Without one, unregistered identities are dropped and
// logged at Debug level (a Drop per the runtime's failure taxonomy).
func WithFallback(fn HandlerFunc) ActorOption {
	return func(a *Actor) { a.fallback = fn }
}

// WithLogger attaches a logger; actors default to rtlog.Discard.
func WithLogger(l rtlog.Logger) ActorOption {
	return func(a *Actor) { a.log = l }
}

// WithMailboxCapacity overrides the default ring capacity (spec §3).
func WithMailboxCapacity(capacity int) ActorOption {
	return func(a *Actor) { a.mailbox = NewMailbox(capacity) }
}

// WithInit registers a hook run once. For a standalone actor, Run calls it
// before the loop pops the first mailbox message; a Start already delivered
// by fast_send before Run began has been handled by then. For a Group
// member, the Group calls it immediately before delivering the member's
// Start.
func WithInit(fn func()) ActorOption {
	return func(a *Actor) { a.initFn = fn }
}

// WithEnd registers a hook run once, after this actor has processed its
// terminal Shutdown.
func WithEnd(fn func()) ActorOption {
	return func(a *Actor) { a.endFn = fn }
}

// NewActor creates an actor with an empty handler table. On registers a
// handler for a message identity; call it before the actor is started.
func NewActor(name string, opts ...ActorOption) *Actor {
	a := &Actor{
		name:    name,
		log:     rtlog.Discard,
		mailbox: NewMailbox(DefaultMailboxCapacity),
		table:   newHandlerTable(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.fallback == nil {
		a.fallback = a.defaultFallback
	}
	return a
}

// Name implements Ref.
func (a *Actor) Name() string { return a.name }

// On registers a handler for id. Registering the same identity twice
// replaces the earlier handler; the dense cache is only populated lazily on
// first dispatch, so registrations made before Run starts are always safe.
func (a *Actor) On(id Identity, fn HandlerFunc) *Actor {
	a.table.register(id, fn)
	return a
}

func (a *Actor) defaultFallback(m *Message) {
	a.log.Debug("actor %s dropped unregistered identity %d", a.name, m.ID())
}

func (a *Actor) runInit() {
	if a.initFn != nil {
		a.initFn()
	}
}

func (a *Actor) runEnd() {
	if a.endFn != nil {
		a.endFn()
	}
}

// Deliver implements the async half of Ref: push m onto the mailbox that
// will eventually process it, which is the owning Group's mailbox when this
// actor is a group member. A terminated actor silently drops m (spec §4.8).
func (a *Actor) Deliver(m *Message) {
	if a.terminated.Load() {
		return
	}
	if a.owner != nil {
		a.owner.mailbox.Push(m)
		return
	}
	a.mailbox.Push(m)
}

// RunFast executes m's handler synchronously on the calling goroutine,
// holding fastMu so it cannot interleave with the worker loop or another
// fast_send into the same actor. A terminated actor silently drops m,
// leaving its reply slot empty (spec §4.8).
func (a *Actor) RunFast(m *Message) {
	a.fastMu.Lock()
	defer a.fastMu.Unlock()
	if a.terminated.Load() {
		return
	}
	a.process(m)
}

func (a *Actor) process(m *Message) {
	a.msgCount.Add(1)
	a.table.dispatch(m, a.fallback)
}

// Send enqueues m for asynchronous delivery to dest. a is recorded as the
// message's sender so a Reply from dest's handler can route back here.
func (a *Actor) Send(dest Ref, m *Message) {
	if m.Sender == nil {
		m.Sender = a
	}
	sendAsync(dest, m)
}

// FastSend invokes dest's handler for m synchronously, on the calling
// goroutine, before returning. It is a contract violation for dest to be a
// itself: that would require a to reenter its own fastMu while already
// holding it, or deadlock outright. The returned message is whatever dest's
// handler passed to Reply, or nil if it never replied.
func (a *Actor) FastSend(dest Ref, m *Message) *Message {
	if sameRef(dest, a) {
		panic(errors.SelfFastSend(a.Name()))
	}
	if m.Sender == nil {
		m.Sender = a
	}
	return dispatchFast(dest, m)
}

// sameRef reports whether r addresses the same actor as a.
func sameRef(r Ref, a *Actor) bool {
	other, ok := r.(*Actor)
	return ok && other == a
}

func sendAsync(dest Ref, m *Message) {
	if reused := m.markSent(dest); reused {
		panic(errors.MessageReuse(dest.Name()))
	}
	m.IsFast = false
	m.Last = false
	dest.Deliver(m)
}

func dispatchFast(dest Ref, m *Message) *Message {
	if reused := m.markSent(dest); reused {
		panic(errors.MessageReuse(dest.Name()))
	}
	m.IsFast = true
	m.Last = true
	dest.RunFast(m)
	return m.TakeReply()
}

// DispatchFast delivers m to dest synchronously without an originating
// actor. It is used by the Manager to deliver the lifecycle Start and
// Shutdown messages, which have no sender of their own.
func DispatchFast(dest Ref, m *Message) *Message {
	return dispatchFast(dest, m)
}

// DispatchAsync delivers m to dest asynchronously without an originating
// actor. Used by the Manager and by remote ingress, where there is no local
// actor to record as sender.
func DispatchAsync(dest Ref, m *Message) {
	sendAsync(dest, m)
}

// Reply answers the message currently being handled. During a fast_send
// (m.IsFast) the reply is captured into m's own reply slot for the caller
// of FastSend to retrieve; otherwise it is sent asynchronously back to
// m.Sender, which must be set.
func Reply(m *Message, id Identity, payload interface{}) {
	reply := NewMessage(id, payload)
	if m.IsFast {
		m.setReplySlot(reply)
		return
	}
	if m.Sender == nil {
		panic(errors.MissingReplyTo("<anonymous>"))
	}
	sendAsync(m.Sender, reply)
}

// Run drives this actor's worker loop: pop, process, repeat, until a
// Shutdown message has been processed or the actor is otherwise terminated.
// The Manager starts this in its own goroutine once every actor has already
// received Start via fast_send. init runs once before the loop begins; end
// runs once after it exits, and terminated becomes true at that point too
// (spec §4.3, §4.8).
func (a *Actor) Run() {
	a.running.Store(true)
	defer a.running.Store(false)

	a.runInit()
	for {
		m, last := a.mailbox.Pop()
		m.Last = last
		a.fastMu.Lock()
		a.process(m)
		isShutdown := m.ID() == Shutdown
		a.fastMu.Unlock()
		if isShutdown || a.terminated.Load() {
			break
		}
	}
	a.terminated.Store(true)
	a.runEnd()
}

// Terminated reports whether this actor has finished processing its
// terminal Shutdown (or was otherwise fast-terminated) and will silently
// drop any message delivered to it from now on.
func (a *Actor) Terminated() bool { return a.terminated.Load() }

// Terminate requests an orderly shutdown by asynchronously self-sending a
// Shutdown message; Run's loop picks it up in turn, processes it, and marks
// the actor terminated once it returns. Mirrors Actor::terminate(), minus
// the original's fixed sleep, which has no place in a non-blocking runtime.
func (a *Actor) Terminate() {
	DispatchAsync(a, NewMessage(Shutdown, nil))
}

// FastTerminate self-fast_sends a Shutdown, so any handler registered for it
// runs synchronously, and then marks the actor terminated before returning.
// Mirrors Actor::fast_terminate(). Must not be
// called from within this actor's own handler: that would re-enter fastMu
// and deadlock.
func (a *Actor) FastTerminate() {
	DispatchFast(a, NewMessage(Shutdown, nil))
	a.terminated.Store(true)
}

// MessageCount returns the number of messages this actor has processed so
// far, including the ones delivered to it via fast_send.
func (a *Actor) MessageCount() uint64 { return a.msgCount.Load() }

// Running reports whether Run is currently executing this actor's loop.
func (a *Actor) Running() bool { return a.running.Load() }

// MailboxLength reports how many messages are currently queued for this
// actor. For a grouped member this is always 0: queued traffic lives on the
// owning Group's mailbox instead.
func (a *Actor) MailboxLength() int {
	if a.owner != nil {
		return 0
	}
	return a.mailbox.Length()
}
