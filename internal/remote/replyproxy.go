package remote

import (
	"github.com/vane-rt/vane/internal/actorcore"
	"github.com/vane-rt/vane/internal/wire"
)

// ReplyProxy stands in for a remote sender: the Receiver sets one as the
// Sender field of every message it dispatches locally for an inbound
// frame, so that a local handler's ordinary Reply turns into a send back
// across the wire. It has no mailbox and must never be the target of
// fast_send or Run (spec §4.7's invariant).
type ReplyProxy struct {
	sender        *Sender
	registry      *wire.Registry
	peerEndpoint  string
	peerActorName string
}

// NewReplyProxy builds a proxy that routes replies back to peerActorName
// at peerEndpoint via sender.
func NewReplyProxy(sender *Sender, registry *wire.Registry, peerActorName, peerEndpoint string) *ReplyProxy {
	return &ReplyProxy{sender: sender, registry: registry, peerEndpoint: peerEndpoint, peerActorName: peerActorName}
}

// Name returns the remote actor's name, for logging and introspection.
func (p *ReplyProxy) Name() string { return p.peerActorName }

// Deliver translates a local Reply into a remote send_to call back to the
// original sender's endpoint (spec §4.7).
func (p *ReplyProxy) Deliver(m *actorcore.Message) {
	ref := NewRemoteRef(p.sender, p.registry, p.peerEndpoint, p.peerActorName)
	_ = ref.Send(m.ID(), m.Payload, nil)
}

// RunFast always panics: a ReplyProxy has no worker loop, so nothing
// should ever fast_send to one.
func (p *ReplyProxy) RunFast(m *actorcore.Message) {
	panic("remote: fast_send to a ReplyProxy is not supported")
}
