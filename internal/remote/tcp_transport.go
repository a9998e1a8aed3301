package remote

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/vane-rt/vane/internal/chanutil"
)

// TCPTransport is a plain-net.Conn fallback Transport for environments
// without UDP/QUIC connectivity. Frames are length-prefixed (a big-endian
// uint32 byte count followed by the JSON envelope) since TCP has no
// built-in message framing, unlike QUIC's unidirectional streams. Adapted
// from the teacher's netstack.TCPServer/DialTCP accept-loop shape.
type TCPTransport struct{}

// NewTCPTransport creates a TCP-backed Transport.
func NewTCPTransport() *TCPTransport { return &TCPTransport{} }

type tcpListener struct {
	ln     net.Listener
	addr   string
	ch     *chanutil.Channel[[]byte]
	closed chan struct{}
}

// Listen opens a TCP listener on addr and accepts connections in the
// background, decoding one or more length-prefixed frames per connection.
func (t *TCPTransport) Listen(addr string) (Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	l := &tcpListener{ln: ln, addr: ln.Addr().String(), ch: chanutil.New[[]byte](64), closed: make(chan struct{})}
	go l.acceptLoop()
	return l, nil
}

func (l *tcpListener) acceptLoop() {
	defer close(l.closed)
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			return
		}
		go l.readLoop(conn)
	}
}

func (l *tcpListener) readLoop(conn net.Conn) {
	defer conn.Close()
	var lenBuf [4]byte
	for {
		if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
			return
		}
		size := binary.BigEndian.Uint32(lenBuf[:])
		frame := make([]byte, size)
		if _, err := io.ReadFull(conn, frame); err != nil {
			return
		}
		l.ch.TrySend(frame)
	}
}

func (l *tcpListener) Accept(ctx context.Context) ([]byte, error) {
	frame, ok, err := l.ch.Recv(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("remote: tcp listener %s closed", l.addr)
	}
	return frame, nil
}

func (l *tcpListener) Addr() string { return l.addr }

func (l *tcpListener) Close() error {
	err := l.ln.Close()
	l.ch.Close()
	<-l.closed
	return err
}

type tcpPusher struct {
	mu   sync.Mutex
	conn net.Conn
}

// Dial opens a single TCP connection to addr, reused for every subsequent
// Push on the returned Pusher.
func (t *TCPTransport) Dial(ctx context.Context, addr string) (Pusher, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return &tcpPusher{conn: conn}, nil
}

func (p *tcpPusher) Push(ctx context.Context, frame []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(frame)))
	if _, err := p.conn.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := p.conn.Write(frame)
	return err
}

func (p *tcpPusher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.Close()
}
