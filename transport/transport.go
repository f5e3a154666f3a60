// Package transport carries framed JSON messages between a session and its peer.
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	inquire "github.com/Paranoid-AF/inquire"
)

// Transport owns one connection. Receive returns exactly one message per call;
// nothing is buffered ahead for the caller.
type Transport interface {
	Connect(ctx context.Context) error
	Send(ctx context.Context, payload []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// Options tunes a transport.
type Options struct {
	// Framing is inquire.FramingLine or inquire.FramingRead. Ignored by WebSocket.
	Framing string
	// DialTimeout bounds Connect. Zero means no bound beyond ctx.
	DialTimeout time.Duration
	// ReadTimeout bounds each Receive. Zero means wait until data or ctx is done.
	ReadTimeout time.Duration
}

// ConnectionError is a dial, write, read or close failure. It is fatal to a session.
type ConnectionError struct {
	Op   string
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

var errNotConnected = errors.New("not connected")

// New builds the transport described by cfg without connecting it.
func New(cfg inquire.RemoteConfig) (Transport, error) {
	opts := Options{
		Framing:     cfg.Framing,
		DialTimeout: cfg.DialTimeout(),
		ReadTimeout: cfg.ReadTimeout(),
	}
	switch cfg.Network {
	case inquire.NetworkTCP, "":
		return NewStream(inquire.NetworkTCP, cfg.Address(), opts), nil
	case inquire.NetworkUnix:
		if cfg.Socket == "" {
			return nil, fmt.Errorf("unix network requires a socket path")
		}
		return NewStream(inquire.NetworkUnix, cfg.Address(), opts), nil
	case inquire.NetworkWebSocket:
		if cfg.URL == "" {
			return nil, fmt.Errorf("ws network requires a url")
		}
		return NewWebSocket(cfg.URL, opts), nil
	default:
		return nil, fmt.Errorf("unsupported network %q", cfg.Network)
	}
}

// watch applies timeout to the next I/O through setDeadline and cuts it short
// when ctx is done. The returned func must be called once the I/O returns.
func watch(ctx context.Context, timeout time.Duration, setDeadline func(time.Time) error) func() bool {
	if timeout > 0 {
		setDeadline(time.Now().Add(timeout))
	} else {
		setDeadline(time.Time{})
	}
	return context.AfterFunc(ctx, func() {
		setDeadline(time.Now())
	})
}

// cause prefers the context error when the deadline was forced by cancellation.
func cause(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
