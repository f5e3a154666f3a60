package peer

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"

	"github.com/gorilla/websocket"

	inquire "github.com/Paranoid-AF/inquire"
	"github.com/Paranoid-AF/inquire/transport"
)

// Server listens on a TCP or Unix socket and answers every session that connects.
type Server struct {
	listener net.Listener
	network  string
	addr     string
	answerer Answerer
	opts     transport.Options
	log      *slog.Logger

	mu     sync.Mutex
	closed bool
	conns  map[net.Conn]struct{}
	wg     sync.WaitGroup
}

// ServerOptions configures a Server.
type ServerOptions struct {
	Transport transport.Options
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Listen binds network ("tcp" or "unix") at addr. A stale Unix socket file is removed first.
func Listen(network, addr string, a Answerer, opts ServerOptions) (*Server, error) {
	if network == "" {
		network = inquire.NetworkTCP
	}
	if network == inquire.NetworkUnix {
		if err := os.Remove(addr); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}

	listener, err := net.Listen(network, addr)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		listener: listener,
		network:  network,
		addr:     addr,
		answerer: a,
		opts:     opts.Transport,
		log:      logger,
		conns:    make(map[net.Conn]struct{}),
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections until Close is called or ctx is done. Each
// connection is answered on its own goroutine.
func (s *Server) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.isClosed() {
				return nil
			}
			return err
		}
		if !s.track(conn) {
			conn.Close()
			return nil
		}
		go s.handleConn(ctx, conn)
	}
}

// track registers conn unless the server is closing.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.wg.Done()
}

// Close stops accepting, hangs up open sessions, waits for their handlers and
// removes the socket file.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	err := s.listener.Close()
	s.wg.Wait()
	if s.network == inquire.NetworkUnix {
		os.Remove(s.addr)
	}
	return err
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer s.untrack(conn)
	logger := s.log.With("remote", conn.RemoteAddr().String())
	logger.Debug("session connected")

	tr := transport.AcceptStream(conn, s.opts)
	if err := Respond(ctx, tr, s.answerer, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("session ended", "error", err)
	}
}

// Handler answers sessions that connect over WebSocket.
type Handler struct {
	Answerer  Answerer
	Transport transport.Options
	Upgrader  websocket.Upgrader
	Logger    *slog.Logger
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade", "error", err)
		return
	}
	logger = logger.With("remote", r.RemoteAddr)
	logger.Debug("session connected")

	tr := transport.AcceptWebSocket(conn, h.Transport)
	if err := Respond(r.Context(), tr, h.Answerer, logger); err != nil {
		logger.Warn("session ended", "error", err)
	}
}
