package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	inquire "github.com/Paranoid-AF/inquire"
	"github.com/Paranoid-AF/inquire/peer"
	"github.com/Paranoid-AF/inquire/questionfile"
	"github.com/Paranoid-AF/inquire/terminal"
	"github.com/Paranoid-AF/inquire/transport"
)

type peerOptions struct {
	listen      string
	network     string
	ws          bool
	answers     string
	interactive bool
	remember    int
	framing     string
}

func newPeerCmd(root *rootOptions) *cobra.Command {
	opts := &peerOptions{}
	cmd := &cobra.Command{
		Use:   "peer",
		Short: "Answer the questions of sessions that connect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runPeer(ctx, cmd, root, opts, nil)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.listen, "listen", "", "address or socket path to listen on (default from config)")
	f.StringVar(&opts.network, "network", "", "tcp or unix (default from config)")
	f.BoolVar(&opts.ws, "ws", false, "accept WebSocket sessions over HTTP instead of raw streams")
	f.StringVar(&opts.answers, "answers", "", "answer questions from a YAML, JSON or TOML file")
	f.BoolVar(&opts.interactive, "interactive", false, "ask the questions on this terminal")
	f.IntVar(&opts.remember, "remember", 0, "minutes to remember answers across sessions, 0 to disable (default from config)")
	f.StringVar(&opts.framing, "framing", "", "stream framing: line or read (default from config)")
	cmd.MarkFlagsMutuallyExclusive("answers", "interactive")
	cmd.MarkFlagsOneRequired("answers", "interactive")
	return cmd
}

// runPeer serves until ctx is done. ready, when set, receives the bound address.
func runPeer(ctx context.Context, cmd *cobra.Command, root *rootOptions, opts *peerOptions, ready chan<- net.Addr) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	network, listen := cfg.Peer.Network, cfg.Peer.Listen
	if opts.network != "" {
		network = opts.network
	}
	if opts.listen != "" {
		listen = opts.listen
	}

	var answerer peer.Answerer
	if opts.answers != "" {
		scripted, err := questionfile.LoadAnswers(opts.answers)
		if err != nil {
			return err
		}
		answerer = peer.Script{Answers: scripted}
	} else {
		answerer = peer.Interactive{Asker: terminal.New(terminal.Options{
			Input:   cmd.InOrStdin(),
			Output:  cmd.ErrOrStderr(),
			NoColor: inquire.NoColor(cfg),
		})}
	}

	remember := cfg.Peer.RememberMinutes
	if cmd.Flags().Changed("remember") {
		remember = opts.remember
	}
	if remember > 0 {
		memo := peer.NewMemo(answerer, time.Duration(remember)*time.Minute)
		defer memo.Close()
		answerer = memo
	}

	topts := transport.Options{Framing: cfg.Peer.Framing}
	if opts.framing != "" {
		topts.Framing = opts.framing
	}
	if opts.ws {
		return serveWebSocket(ctx, listen, &peer.Handler{Answerer: answerer, Transport: topts}, ready)
	}

	srv, err := peer.Listen(network, listen, answerer, peer.ServerOptions{Transport: topts})
	if err != nil {
		return err
	}
	slog.Info("listening", "network", network, "addr", srv.Addr().String())
	if ready != nil {
		ready <- srv.Addr()
	}
	return srv.Serve(ctx)
}

func serveWebSocket(ctx context.Context, listen string, h http.Handler, ready chan<- net.Addr) error {
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: h}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("listening", "network", "ws", "addr", ln.Addr().String())
	if ready != nil {
		ready <- ln.Addr()
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve websocket: %w", err)
	}
	return nil
}
