package remote

import (
	"testing"
	"time"

	"github.com/vane-rt/vane/internal/actorcore"
	"github.com/vane-rt/vane/internal/rtlog"
	"github.com/vane-rt/vane/internal/wire"
)

type pingDoc struct{ N int }
type pongDoc struct{ N int }

const (
	testPingIdentity actorcore.Identity = actorcore.ApplicationBase
	testPongIdentity actorcore.Identity = actorcore.ApplicationBase + 1
)

func newTestRegistry() *wire.Registry {
	r := wire.New()
	r.Register(testPingIdentity, "ping.v1", wire.JSONEncoder(), wire.JSONDecoder[pingDoc]())
	r.Register(testPongIdentity, "pong.v1", wire.JSONEncoder(), wire.JSONDecoder[pongDoc]())
	r.Register(actorcore.Reject, "vane.reject", wire.JSONEncoder(), wire.JSONDecoder[RejectPayload]())
	return r
}

// side bundles one endpoint's Sender/Receiver pair over a shared transport,
// plus the actor whose Run loop drives each.
type side struct {
	addr     string
	sender   *Sender
	receiver *Receiver
}

func newSide(t *testing.T, transport Transport, registry *wire.Registry, addr, name string) *side {
	t.Helper()
	listener, err := transport.Listen(addr)
	if err != nil {
		t.Fatalf("Listen(%s): %v", addr, err)
	}
	sender := NewSender(name+"-sender", transport, addr, rtlog.Discard)
	receiver := NewReceiver(name+"-receiver", listener, registry, sender, rtlog.Discard)

	go sender.actor.Run()
	go receiver.actor.Run()
	actorcore.DispatchFast(receiver.Ref(), actorcore.NewMessage(actorcore.Start, nil))

	return &side{addr: addr, sender: sender, receiver: receiver}
}

func runActor(a *actorcore.Actor) { go a.Run() }

func TestRemoteReplyRoundTripReachesOriginalSender(t *testing.T) {
	transport := NewInMemoryTransport()
	registry := newTestRegistry()

	a := newSide(t, transport, registry, "mem://a", "a")
	b := newSide(t, transport, registry, "mem://b", "b")

	replies := make(chan pongDoc, 1)
	initiator := actorcore.NewActor("pingInitiator")
	initiator.On(testPongIdentity, func(m *actorcore.Message) {
		replies <- m.Payload.(pongDoc)
	})
	runActor(initiator)
	a.receiver.Register(initiator)

	pong := actorcore.NewActor("pong")
	pong.On(testPingIdentity, func(m *actorcore.Message) {
		p := m.Payload.(pingDoc)
		actorcore.Reply(m, testPongIdentity, pongDoc{N: p.N * 2})
	})
	runActor(pong)
	b.receiver.Register(pong)

	ref := NewRemoteRef(a.sender, registry, b.addr, "pong")
	if err := ref.Send(testPingIdentity, pingDoc{N: 21}, initiator); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case got := <-replies:
		if got.N != 42 {
			t.Fatalf("reply N = %d, want 42", got.N)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reply never reached the original sender")
	}
}

func TestRemoteRejectsUnknownReceiver(t *testing.T) {
	transport := NewInMemoryTransport()
	registry := newTestRegistry()

	a := newSide(t, transport, registry, "mem://reject-a", "ra")
	b := newSide(t, transport, registry, "mem://reject-b", "rb")
	// b has no local actors registered: any inbound frame will be rejected.

	rejects := make(chan RejectPayload, 1)
	initiator := actorcore.NewActor("rejectInitiator")
	initiator.On(actorcore.Reject, func(m *actorcore.Message) {
		rejects <- m.Payload.(RejectPayload)
	})
	runActor(initiator)
	a.receiver.Register(initiator)

	ref := NewRemoteRef(a.sender, registry, b.addr, "nobody")
	if err := ref.Send(testPingIdentity, pingDoc{N: 1}, initiator); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case got := <-rejects:
		if got.MessageType != "ping.v1" {
			t.Fatalf("rejected message_type = %q, want ping.v1", got.MessageType)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reject never reached the original sender")
	}
}

func TestRemoteRejectsUnknownMessageType(t *testing.T) {
	transport := NewInMemoryTransport()
	registry := newTestRegistry()

	a := newSide(t, transport, registry, "mem://reject2-a", "r2a")
	b := newSide(t, transport, registry, "mem://reject2-b", "r2b")

	target := actorcore.NewActor("target")
	// target is registered, but the wire name it's about to receive never
	// is: b's registry has no decoder for "nonexistent.v9".
	runActor(target)
	b.receiver.Register(target)

	rejects := make(chan RejectPayload, 1)
	initiator := actorcore.NewActor("rejectInitiator2")
	initiator.On(actorcore.Reject, func(m *actorcore.Message) {
		rejects <- m.Payload.(RejectPayload)
	})
	runActor(initiator)
	a.receiver.Register(initiator)

	privateRegistry := wire.New()
	privateRegistry.Register(testPingIdentity, "nonexistent.v9", wire.JSONEncoder(), wire.JSONDecoder[pingDoc]())
	ref := NewRemoteRef(a.sender, privateRegistry, b.addr, "target")
	if err := ref.Send(testPingIdentity, pingDoc{N: 1}, initiator); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case got := <-rejects:
		if got.MessageType != "nonexistent.v9" {
			t.Fatalf("rejected message_type = %q, want nonexistent.v9", got.MessageType)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reject never reached the original sender")
	}
}
