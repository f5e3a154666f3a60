package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"

	inquire "github.com/Paranoid-AF/inquire"
)

// readBufferSize is the largest message accepted with read framing.
const readBufferSize = 64 * 1024

// Stream is a Transport over a TCP or Unix socket.
//
// With line framing every message is followed by '\n' and the reader splits
// on it. With read framing one Read event is taken as one message, which only
// holds while the peer's writes are not split or merged on the way.
type Stream struct {
	network string
	addr    string
	opts    Options

	conn   net.Conn
	reader *bufio.Reader
}

var _ Transport = (*Stream)(nil)

// NewStream creates an unconnected stream transport for network and addr.
func NewStream(network, addr string, opts Options) *Stream {
	if opts.Framing == "" {
		opts.Framing = inquire.FramingLine
	}
	return &Stream{network: network, addr: addr, opts: opts}
}

// AcceptStream wraps an already connected conn; Connect becomes a no-op.
func AcceptStream(conn net.Conn, opts Options) *Stream {
	s := NewStream(conn.RemoteAddr().Network(), conn.RemoteAddr().String(), opts)
	s.attach(conn)
	return s
}

func (s *Stream) attach(conn net.Conn) {
	s.conn = conn
	s.reader = bufio.NewReader(conn)
}

// Connect dials the peer.
func (s *Stream) Connect(ctx context.Context) error {
	if s.conn != nil {
		return nil
	}
	if s.opts.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.DialTimeout)
		defer cancel()
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, s.network, s.addr)
	if err != nil {
		return &ConnectionError{Op: "dial", Addr: s.addr, Err: err}
	}
	s.attach(conn)
	return nil
}

// Send writes payload as one message in a single write.
func (s *Stream) Send(ctx context.Context, payload []byte) error {
	if s.conn == nil {
		return &ConnectionError{Op: "write", Addr: s.addr, Err: errNotConnected}
	}
	frame := payload
	if s.opts.Framing == inquire.FramingLine {
		if bytes.IndexByte(payload, '\n') >= 0 {
			return &ConnectionError{Op: "write", Addr: s.addr, Err: errors.New("payload contains a newline")}
		}
		frame = make([]byte, 0, len(payload)+1)
		frame = append(frame, payload...)
		frame = append(frame, '\n')
	}
	stop := watch(ctx, 0, s.conn.SetWriteDeadline)
	defer stop()
	if _, err := s.conn.Write(frame); err != nil {
		return &ConnectionError{Op: "write", Addr: s.addr, Err: cause(ctx, err)}
	}
	return nil
}

// Receive blocks until one message arrives.
func (s *Stream) Receive(ctx context.Context) ([]byte, error) {
	if s.conn == nil {
		return nil, &ConnectionError{Op: "read", Addr: s.addr, Err: errNotConnected}
	}
	stop := watch(ctx, s.opts.ReadTimeout, s.conn.SetReadDeadline)
	defer stop()

	if s.opts.Framing == inquire.FramingRead {
		buf := make([]byte, readBufferSize)
		n, err := s.reader.Read(buf)
		if n > 0 {
			return buf[:n], nil
		}
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return nil, &ConnectionError{Op: "read", Addr: s.addr, Err: cause(ctx, err)}
	}

	line, err := s.reader.ReadBytes('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return nil, &ConnectionError{Op: "read", Addr: s.addr, Err: cause(ctx, err)}
	}
	return bytes.TrimRight(line, "\r\n"), nil
}

// Close closes the connection. It is safe to call more than once.
func (s *Stream) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return &ConnectionError{Op: "close", Addr: s.addr, Err: err}
	}
	return nil
}
