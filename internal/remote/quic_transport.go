package remote

import (
	"context"
	"crypto/tls"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/quic-go/quic-go"

	"github.com/vane-rt/vane/internal/chanutil"
	"github.com/vane-rt/vane/internal/netio"
)

// QUICTransport implements the push/pull socket pair over QUIC
// unidirectional streams: a push is Connection.OpenUniStreamSync followed
// by one length-prefixed frame and stream close (fire-and-forget, matching
// "no guaranteed delivery" — spec §4.6, §9); a pull is a quic.Listener
// whose accept loop reads one frame per AcceptUniStream. Each accepted
// stream is read in its own goroutine, so frames pushed over one
// connection can reach Accept in a different order than they were sent;
// this transport does not preserve send order. Generalized from
// the teacher's quic-go/http3 server wrapper
// (internal/runtime/netstack/http3.go) down to the raw uni-stream API,
// since the wire shape here is one JSON frame per stream, not HTTP.
type QUICTransport struct {
	tlsConfig *tls.Config
}

// NewQUICTransport creates a QUIC-backed Transport. If tlsConfig is nil, a
// fresh self-signed certificate is generated per Listen call.
func NewQUICTransport(tlsConfig *tls.Config) *QUICTransport {
	return &QUICTransport{tlsConfig: tlsConfig}
}

type quicListener struct {
	ln   *quic.Listener
	addr string
	ch   *chanutil.Channel[[]byte]
	done chan struct{}
}

// Listen binds a UDP socket at addr and accepts QUIC connections in the
// background, draining one unidirectional stream's frame at a time.
func (t *QUICTransport) Listen(addr string) (Listener, error) {
	tlsConfig := t.tlsConfig
	if tlsConfig == nil {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}
		hosts := []string{"localhost", "127.0.0.1"}
		if host != "" && host != "0.0.0.0" && host != "*" {
			hosts = append(hosts, host)
		}
		tlsConfig, err = netio.GenerateSelfSignedTLS(hosts, 0)
		if err != nil {
			return nil, err
		}
	}

	ln, err := quic.ListenAddr(addr, tlsConfig, &quic.Config{})
	if err != nil {
		return nil, err
	}

	l := &quicListener{ln: ln, addr: ln.Addr().String(), ch: chanutil.New[[]byte](64), done: make(chan struct{})}
	go l.acceptLoop()
	return l, nil
}

func (l *quicListener) acceptLoop() {
	defer close(l.done)
	ctx := context.Background()
	for {
		conn, err := l.ln.Accept(ctx)
		if err != nil {
			return
		}
		go l.connLoop(conn)
	}
}

func (l *quicListener) connLoop(conn *quic.Conn) {
	ctx := context.Background()
	for {
		stream, err := conn.AcceptUniStream(ctx)
		if err != nil {
			return
		}
		go l.readStream(stream)
	}
}

func (l *quicListener) readStream(stream *quic.ReceiveStream) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(stream, lenBuf[:]); err != nil {
		return
	}
	size := binary.BigEndian.Uint32(lenBuf[:])
	frame := make([]byte, size)
	if _, err := io.ReadFull(stream, frame); err != nil {
		return
	}
	l.ch.TrySend(frame)
}

func (l *quicListener) Accept(ctx context.Context) ([]byte, error) {
	frame, ok, err := l.ch.Recv(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("remote: quic listener %s closed", l.addr)
	}
	return frame, nil
}

func (l *quicListener) Addr() string { return l.addr }

func (l *quicListener) Close() error {
	err := l.ln.Close()
	l.ch.Close()
	<-l.done
	return err
}

type quicPusher struct {
	mu   sync.Mutex
	conn *quic.Conn
}

// Dial establishes one QUIC connection to addr, reused to open a fresh
// unidirectional stream per Push.
func (t *QUICTransport) Dial(ctx context.Context, addr string) (Pusher, error) {
	tlsConfig := &tls.Config{InsecureSkipVerify: true, NextProtos: []string{"vane-actor/1"}}
	conn, err := quic.DialAddr(ctx, addr, tlsConfig, &quic.Config{})
	if err != nil {
		return nil, err
	}
	return &quicPusher{conn: conn}, nil
}

func (p *quicPusher) Push(ctx context.Context, frame []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	stream, err := p.conn.OpenUniStreamSync(ctx)
	if err != nil {
		return err
	}
	defer stream.Close()

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(frame)))
	if _, err := stream.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err = stream.Write(frame)
	return err
}

func (p *quicPusher) Close() error {
	return p.conn.CloseWithError(0, "")
}
