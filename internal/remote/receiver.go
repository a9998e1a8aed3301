package remote

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/vane-rt/vane/internal/actorcore"
	"github.com/vane-rt/vane/internal/rtlog"
	"github.com/vane-rt/vane/internal/wire"
)

// continueIdentity re-enqueues the Receiver's own poll (spec §6, identity 1).
const continueIdentity = actorcore.Continue

// pollTimeout bounds each non-blocking receive attempt on the pull socket
// (spec §4.7: "timeout ≈10ms").
const pollTimeout = 10 * time.Millisecond

// Receiver is the ingress half of the remote transport: on Start it
// self-ticks a Continue loop that drains one frame at a time from a bound
// Listener, decodes it via the registry, and dispatches it to a local
// actor with a ReplyProxy standing in for the remote sender.
type Receiver struct {
	actor    *actorcore.Actor
	listener Listener
	registry *wire.Registry
	sender   *Sender
	gate     *VersionGate
	log      rtlog.Logger

	mu        sync.RWMutex
	directory map[string]actorcore.Ref
	seenPeers map[string]bool
}

// NewReceiver binds listener as the pull socket for a Receiver actor named
// name. sender is used to push Reject frames and proxied replies back out;
// it may be the same Sender used for ordinary outbound traffic.
func NewReceiver(name string, listener Listener, registry *wire.Registry, sender *Sender, log rtlog.Logger) *Receiver {
	if log == nil {
		log = rtlog.Discard
	}
	gate, _ := NewVersionGate(DefaultCompatibility)
	r := &Receiver{
		listener:  listener,
		registry:  registry,
		sender:    sender,
		gate:      gate,
		log:       log,
		directory: make(map[string]actorcore.Ref),
		seenPeers: make(map[string]bool),
	}
	r.actor = actorcore.NewActor(name, actorcore.WithLogger(log))
	r.actor.On(actorcore.Start, r.handleStart)
	r.actor.On(continueIdentity, r.handleContinue)
	return r
}

// Ref exposes the Receiver's actor identity, e.g. for Manager.Manage.
func (r *Receiver) Ref() actorcore.Ref { return r.actor }

// Register makes a local actor reachable by name from remote frames.
func (r *Receiver) Register(ref actorcore.Ref) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.directory[ref.Name()] = ref
}

func (r *Receiver) lookup(name string) (actorcore.Ref, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ref, ok := r.directory[name]
	return ref, ok
}

func (r *Receiver) handleStart(m *actorcore.Message) {
	r.actor.Send(r.actor, actorcore.NewMessage(continueIdentity, nil))
}

func (r *Receiver) handleContinue(m *actorcore.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
	frame, err := r.listener.Accept(ctx)
	cancel()

	if err == nil {
		r.processFrame(frame)
	}
	// Any error (timeout, transient receive error) is a silent Drop per
	// spec §4.8; the loop just tries again on the next self-tick.

	r.actor.Send(r.actor, actorcore.NewMessage(continueIdentity, nil))
}

func (r *Receiver) processFrame(frame []byte) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		r.log.Debug("remote: dropped unparseable frame: %v", err)
		return
	}

	hasSender := env.SenderActor != nil && env.SenderEndpoint != nil
	if hasSender && env.ProtocolVersion != "" {
		peerEndpoint := strVal(env.SenderEndpoint)
		if !r.markPeerSeen(peerEndpoint) {
			if err := r.gate.Check(env.ProtocolVersion); err != nil {
				r.reject(env, "incompatible protocol version", hasSender)
				return
			}
		}
	}

	target, ok := r.lookup(env.Receiver)
	if !ok {
		r.reject(env, "actor not found", hasSender)
		return
	}

	id, payload, ok := r.registry.Decode(env.MessageType, env.Message)
	if !ok {
		r.reject(env, "unknown message type", hasSender)
		return
	}

	msg := actorcore.NewMessage(id, payload)
	if hasSender {
		msg.Sender = NewReplyProxy(r.sender, r.registry, strVal(env.SenderActor), strVal(env.SenderEndpoint))
	}
	actorcore.DispatchAsync(target, msg)
}

// markPeerSeen records that peerEndpoint has been seen before and reports
// whether it had already been seen prior to this call — the Receiver only
// checks the protocol version handshake on a peer's first frame (spec §4.3
// of SPEC_FULL.md).
func (r *Receiver) markPeerSeen(peerEndpoint string) (alreadySeen bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	alreadySeen = r.seenPeers[peerEndpoint]
	r.seenPeers[peerEndpoint] = true
	return alreadySeen
}

// reject sends a Reject frame back to env's sender, if one is known; with
// no known sender the frame is dropped silently (spec §4.8). The Reject
// identity must be registered with the wire registry the same way any
// other remote-capable identity is, typically with RejectPayload as its
// payload type.
func (r *Receiver) reject(env Envelope, reason string, hasSender bool) {
	if !hasSender {
		return
	}
	ref := NewRemoteRef(r.sender, r.registry, strVal(env.SenderEndpoint), strVal(env.SenderActor))
	payload := RejectPayload{MessageType: env.MessageType, Reason: reason, RejectedBy: env.Receiver}
	if err := ref.Send(actorcore.Reject, payload, nil); err != nil {
		r.log.Error("remote: failed to send reject to %s@%s: %v", env.SenderActor, env.SenderEndpoint, err)
	}
}
