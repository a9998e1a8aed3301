package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/vane-rt/vane/internal/actorcore"
	"github.com/vane-rt/vane/internal/rtlog"
	"github.com/vane-rt/vane/internal/wire"
)

// sendRequest is the Sender actor's own internal message shape, built on
// the caller's thread by RemoteRef.Send before being enqueued (spec §4.6
// step 4). It is never registered with the wire registry: it never leaves
// the process.
type sendRequest struct {
	endpoint       string
	actorName      string
	senderName     string
	senderEndpoint string
	wireName       string
	doc            json.RawMessage
}

// Sender owns one push socket per peer endpoint, created lazily and kept
// for the Sender's lifetime or until Close. It is driven as an ordinary
// actor: RemoteRef.Send enqueues a sendRequest, and the Sender's own
// worker loop builds the envelope and does the actual network write, so the
// socket write never blocks the caller; payload encoding happens on the
// caller's goroutine inside RemoteRef.Send (spec §4.6).
type Sender struct {
	actor     *actorcore.Actor
	transport Transport
	localAddr string
	log       rtlog.Logger

	mu      sync.Mutex
	pushers map[string]Pusher
}

// NewSender creates a Sender actor named name, using transport to dial
// peers. localAddr is advertised as this process's reply-to endpoint when
// wrapping outgoing messages whose sender is a local actor.
func NewSender(name string, transport Transport, localAddr string, log rtlog.Logger) *Sender {
	if log == nil {
		log = rtlog.Discard
	}
	s := &Sender{transport: transport, localAddr: localAddr, log: log, pushers: make(map[string]Pusher)}
	s.actor = actorcore.NewActor(name, actorcore.WithLogger(log))
	s.actor.On(remoteSendRequestIdentity, s.handleSendRequest)
	return s
}

// Ref exposes the Sender's actor identity, e.g. for Manager.Manage.
func (s *Sender) Ref() actorcore.Ref { return s.actor }

// remoteSendRequestIdentity is identity 8, reserved for this internal
// message shape (spec §6's reserved-identity table).
const remoteSendRequestIdentity = actorcore.Identity(8)

// RemoteRef addresses one named actor living at a remote endpoint. It
// implements the public send_to contract (spec §4.6): resolve the wire
// name and encode on the caller's thread, then hand off to the Sender
// actor for the actual socket write.
type RemoteRef struct {
	sender   *Sender
	registry *wire.Registry
	endpoint string
	name     string
}

// NewRemoteRef addresses actorName at endpoint, reachable through sender.
func NewRemoteRef(sender *Sender, registry *wire.Registry, endpoint, actorName string) *RemoteRef {
	return &RemoteRef{sender: sender, registry: registry, endpoint: endpoint, name: actorName}
}

// Send implements the send_to contract: resolve + encode happen here, on
// the caller's thread, so per-peer serialization work parallelizes across
// callers; only the already-encoded document crosses into the Sender's
// mailbox.
func (r *RemoteRef) Send(id actorcore.Identity, payload interface{}, sender actorcore.Ref) error {
	wireName, doc, err := r.registry.Encode(id, payload)
	if err != nil {
		r.sender.log.Error("remote send to %s@%s dropped: %v", r.name, r.endpoint, err)
		return err
	}

	req := sendRequest{endpoint: r.endpoint, actorName: r.name, wireName: wireName, doc: doc}
	if sender != nil {
		req.senderName = sender.Name()
		req.senderEndpoint = r.sender.localAddr
	}

	actorcore.DispatchAsync(r.sender.actor, actorcore.NewMessage(remoteSendRequestIdentity, req))
	return nil
}

func (s *Sender) handleSendRequest(m *actorcore.Message) {
	req, ok := m.Payload.(sendRequest)
	if !ok {
		return
	}

	env := Envelope{
		Receiver:        req.actorName,
		MessageType:     req.wireName,
		Message:         req.doc,
		ProtocolVersion: ProtocolVersion,
		SenderActor:     strPtr(req.senderName),
		SenderEndpoint:  strPtr(req.senderEndpoint),
	}
	frame, err := json.Marshal(env)
	if err != nil {
		s.log.Error("remote: failed to marshal envelope for %s@%s: %v", req.actorName, req.endpoint, err)
		return
	}

	pusher, err := s.pusherFor(req.endpoint)
	if err != nil {
		s.log.Warn("remote: failed to reach %s for actor %s: %v", req.endpoint, req.actorName, err)
		return
	}

	if err := pusher.Push(context.Background(), frame); err != nil {
		s.log.Warn("remote: push to %s failed (lossy transport, not retried): %v", req.endpoint, err)
	}
}

// pusherFor returns the cached Pusher for endpoint, dialing and caching a
// new one on first use. Dial targets have wildcard hosts rewritten to a
// loopback-reachable address; the bind side is untouched (spec §4.6, §6,
// and original_source/include/actors/remote/ZmqSender.hpp).
func (s *Sender) pusherFor(endpoint string) (Pusher, error) {
	s.mu.Lock()
	if p, ok := s.pushers[endpoint]; ok {
		s.mu.Unlock()
		return p, nil
	}
	s.mu.Unlock()

	dialAddr := rewriteWildcardHost(endpoint)
	pusher, err := s.transport.Dial(context.Background(), dialAddr)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.pushers[endpoint]; ok {
		pusher.Close()
		return existing, nil
	}
	s.pushers[endpoint] = pusher
	return pusher, nil
}

// Close closes every cached push socket.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for addr, p := range s.pushers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.pushers, addr)
	}
	return firstErr
}

// rewriteWildcardHost rewrites a bind-style "<scheme>://*:<port>" or
// "<scheme>://0.0.0.0:<port>" endpoint — or the schemeless "*:<port>" /
// "0.0.0.0:<port>" forms this runtime actually dials — to a
// loopback-reachable connect address. Endpoints with a real host are
// returned unchanged.
func rewriteWildcardHost(endpoint string) string {
	scheme := ""
	rest := endpoint
	if idx := strings.Index(endpoint, "://"); idx >= 0 {
		scheme = endpoint[:idx+3]
		rest = endpoint[idx+3:]
	}

	host, port, found := strings.Cut(rest, ":")
	if !found {
		return endpoint
	}
	if host == "*" || host == "0.0.0.0" || host == "" {
		return fmt.Sprintf("%s127.0.0.1:%s", scheme, port)
	}
	return endpoint
}
