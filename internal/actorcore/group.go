package actorcore

import (
	"sync/atomic"

	"github.com/vane-rt/vane/internal/errors"
)

// Group multiplexes a fixed set of member actors onto a single worker
// goroutine and a single shared mailbox (spec §4.4). Members keep their own
// handler tables and fastMu, but their async sends are redirected into the
// Group's mailbox instead of queuing on their own, so only one goroutine
// ever pops work for the whole set.
type Group struct {
	name    string
	members []*Actor
	mailbox *Mailbox
	running atomic.Bool
}

// NewGroup creates a group over members, in the order given. The order is
// significant: Start and Shutdown fan out to members in this order (spec
// §4.4, §6).
func NewGroup(name string, members ...*Actor) (*Group, error) {
	if len(members) == 0 {
		return nil, errors.EmptyGroupManage(name)
	}
	g := &Group{
		name:    name,
		members: append([]*Actor(nil), members...),
		mailbox: NewMailbox(DefaultMailboxCapacity),
	}
	for _, m := range g.members {
		m.owner = g
	}
	return g, nil
}

// Name implements Ref.
func (g *Group) Name() string { return g.name }

// Members returns the group's members in insertion order.
func (g *Group) Members() []*Actor {
	return append([]*Actor(nil), g.members...)
}

// Deliver implements Ref for sends addressed to the group itself, which the
// runtime does not otherwise use: the group's members are addressed
// individually, and their Actor.Deliver already redirects here.
func (g *Group) Deliver(m *Message) {
	g.mailbox.Push(m)
}

// RunFast implements the group's half of Start/Shutdown fan-out: the
// Manager fast_sends these directly to the group, and the group then
// fast_sends a copy to each member synchronously, in insertion order,
// before returning (spec §4.4, §6). On Start, each member's init runs
// immediately before its copy of Start is delivered; on Shutdown, each
// member's end runs immediately after its copy is delivered and the member
// is marked terminated, since a grouped member never runs its own Run loop
// to do that for itself (spec §4.3).
func (g *Group) RunFast(m *Message) {
	switch m.ID() {
	case Start:
		for _, member := range g.members {
			member.runInit()
			DispatchFast(member, NewMessage(m.ID(), m.Payload))
		}
	case Shutdown:
		for _, member := range g.members {
			DispatchFast(member, NewMessage(m.ID(), m.Payload))
			member.runEnd()
			member.terminated.Store(true)
		}
		g.mailbox.Push(&Message{id: Shutdown})
	default:
		for _, member := range g.members {
			DispatchFast(member, NewMessage(m.ID(), m.Payload))
		}
	}
}

// Run drives the group's shared worker loop. Each popped message was
// originally addressed to one specific member (recorded in Destination by
// the Send that queued it); Run forwards it to that member alone, so each
// queued message is dispatched exactly once. The loop exits when it pops
// the internal shutdown sentinel pushed by RunFast.
func (g *Group) Run() {
	g.running.Store(true)
	defer g.running.Store(false)

	for {
		m, _ := g.mailbox.Pop()
		if m.ID() == Shutdown && m.Destination == nil {
			return
		}
		if dest, ok := m.Destination.(*Actor); ok {
			dest.fastMu.Lock()
			dest.process(m)
			dest.fastMu.Unlock()
		}
	}
}

// Running reports whether Run is currently executing the group's loop.
func (g *Group) Running() bool { return g.running.Load() }

// MailboxLength reports how many forwarded messages are queued for the
// group's members combined.
func (g *Group) MailboxLength() int { return g.mailbox.Length() }
