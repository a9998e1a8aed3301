// Package remote implements the cross-process transport bridging local
// actors to peer processes over a push/pull socket pair with a JSON
// envelope (spec §4.6, §4.7, §6): RemoteRef/Sender on the egress side,
// Receiver/ReplyProxy on the ingress side.
package remote

import "context"

// Transport abstracts the underlying push/pull socket pair. A Listener
// models one Receiver's bound pull socket; a Pusher models one of a
// Sender's push sockets to a single peer endpoint, created lazily and kept
// for the Sender's lifetime.
type Transport interface {
	Listen(addr string) (Listener, error)
	Dial(ctx context.Context, addr string) (Pusher, error)
}

// Listener is the receive side of a bound pull socket.
type Listener interface {
	// Accept blocks until the next frame arrives or ctx is done. There is
	// no guaranteed delivery or dedup across frames; ordering is whatever
	// the transport provides within one connection (spec §9).
	Accept(ctx context.Context) ([]byte, error)
	Addr() string
	Close() error
}

// Pusher is one connected push socket.
type Pusher interface {
	Push(ctx context.Context, frame []byte) error
	Close() error
}
