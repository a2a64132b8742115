// Package control implements the control channel: a framed request/response
// protocol over a local stream socket that carries session lifecycle,
// handle allocation, static metadata, and input-state queries (spec.md
// §4.1). Framing discipline — one fixed header then exactly payload_size
// bytes, full-read/full-write — is grounded on the teacher's frame header
// codec (frame.go's encodeFrameHeaderTo/decodeFrameHeader), adapted from
// gRPC's stream framing to the 16-byte control header in
// internal/proto/header.go.
package control

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/ox-runtime/ox/internal/proto"
)

// DefaultConnectTimeout is the default dial timeout, per spec.md §5's
// "connect-time socket connect (default five seconds)".
const DefaultConnectTimeout = 5 * time.Second

// ErrDisconnected is returned by Recv/Send when the peer closed the
// connection, a partial read/write occurred, or any other I/O error
// surfaced — per spec.md §4.1, all three collapse into one disconnect
// signal for the caller.
var ErrDisconnected = errors.New("control: peer disconnected")

// Message is one fully-framed control-channel message.
type Message struct {
	Header  proto.Header
	Payload []byte
}

// Conn wraps one control-channel endpoint (either side of the socket) with
// the full-frame Send/Recv discipline spec.md §4.1 requires.
type Conn struct {
	nc net.Conn
}

func newConn(nc net.Conn) *Conn { return &Conn{nc: nc} }

// Send writes header then exactly header.PayloadSize bytes of payload,
// full-write discipline (short writes are impossible over net.Conn.Write
// without error, but we still check n against len for defense in depth).
func (c *Conn) Send(header proto.Header, payload []byte) error {
	header.PayloadSize = uint32(len(payload))
	if err := writeFull(c.nc, header.Encode()); err != nil {
		return fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	if len(payload) > 0 {
		if err := writeFull(c.nc, payload); err != nil {
			return fmt.Errorf("%w: %v", ErrDisconnected, err)
		}
	}
	return nil
}

// Recv reads one fixed header then exactly header.PayloadSize bytes.
func (c *Conn) Recv() (Message, error) {
	hb := make([]byte, proto.HeaderSize)
	if err := readFull(c.nc, hb); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	h, err := proto.DecodeHeader(hb)
	if err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	payload := make([]byte, h.PayloadSize)
	if h.PayloadSize > 0 {
		if err := readFull(c.nc, payload); err != nil {
			return Message{}, fmt.Errorf("%w: %v", ErrDisconnected, err)
		}
	}
	return Message{Header: h, Payload: payload}, nil
}

// Close closes the underlying connection.
func (c *Conn) Close() error { return c.nc.Close() }

func writeFull(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func readFull(r io.Reader, b []byte) error {
	_, err := io.ReadFull(r, b)
	return err
}

// Server listens for control-channel connections on a filesystem-path unix
// socket with owner-only permissions, per spec.md §4.1.
type Server struct {
	ln   net.Listener
	path string
}

// CreateServer creates and listens on the named socket, removing any stale
// socket file left by a prior crash first (spec.md §9's reaper note,
// applied to the control endpoint as well as shared memory).
func CreateServer(name string) (*Server, error) {
	path := socketPath(name)
	_ = os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("control: listen %s: %w", path, err)
	}
	if err := os.Chmod(path, 0600); err != nil {
		ln.Close()
		os.Remove(path)
		return nil, fmt.Errorf("control: chmod %s: %w", path, err)
	}
	return &Server{ln: ln, path: path}, nil
}

// Accept blocks for the next client connection. The control task calls
// this in a loop: accept → message loop → close → re-create, per spec.md
// §5.
func (s *Server) Accept() (*Conn, error) {
	nc, err := s.ln.Accept()
	if err != nil {
		return nil, err
	}
	return newConn(nc), nil
}

// Close stops listening and removes the socket file.
func (s *Server) Close() error {
	err := s.ln.Close()
	_ = os.Remove(s.path)
	return err
}

// Dial connects to an existing control-channel server, per spec.md §5's
// connect-time timeout (default five seconds).
func Dial(name string, timeout time.Duration) (*Conn, error) {
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	nc, err := net.DialTimeout("unix", socketPath(name), timeout)
	if err != nil {
		return nil, fmt.Errorf("control: dial %s: %w", name, err)
	}
	return newConn(nc), nil
}

func socketPath(name string) string {
	return "/tmp/" + name + ".sock"
}
