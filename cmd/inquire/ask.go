package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	inquire "github.com/Paranoid-AF/inquire"
	"github.com/Paranoid-AF/inquire/prompt"
	"github.com/Paranoid-AF/inquire/questionfile"
)

type askOptions struct {
	mode    string
	network string
	host    string
	port    int
	socket  string
	url     string
	bundle  bool
	framing string
	format  string
}

func newAskCmd(root *rootOptions) *cobra.Command {
	opts := &askOptions{}
	cmd := &cobra.Command{
		Use:   "ask <file>",
		Short: "Ask the questions of a question file and print the answers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runAsk(ctx, cmd, root, opts, args[0])
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.mode, "mode", "", "auto, remote or terminal (default from config)")
	f.StringVar(&opts.network, "network", "", "remote network: tcp, unix or ws")
	f.StringVar(&opts.host, "host", "", "remote host")
	f.IntVar(&opts.port, "port", 0, "remote port")
	f.StringVar(&opts.socket, "socket", "", "remote unix socket path")
	f.StringVar(&opts.url, "url", "", "remote websocket url")
	f.BoolVar(&opts.bundle, "bundle", false, "send static questions to the peer in bundles")
	f.StringVar(&opts.framing, "framing", "", "stream framing: line or read")
	f.StringVar(&opts.format, "format", formatJSON, "answer output format: json, toml or env")
	return cmd
}

func runAsk(ctx context.Context, cmd *cobra.Command, root *rootOptions, opts *askOptions, path string) error {
	if !isFormat(opts.format) {
		return fmt.Errorf("invalid format %q (expected json|toml|env)", opts.format)
	}
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	questions, err := questionfile.Load(path)
	if err != nil {
		return err
	}

	asker := &prompt.Asker{
		Config: cfg,
		Mode:   opts.mode,
		Remote: opts.remote(cmd, inquire.ResolveRemote(cfg)),
		Stdin:  cmd.InOrStdin(),
		Logger: slog.Default(),
	}
	answers, err := asker.Ask(ctx, questions)
	if err != nil {
		return err
	}
	return writeAnswers(cmd.OutOrStdout(), answers, opts.format)
}

// remote applies the flags the user set on top of the resolved settings.
func (o *askOptions) remote(cmd *cobra.Command, r inquire.RemoteConfig) *inquire.RemoteConfig {
	f := cmd.Flags()
	if f.Changed("network") {
		r.Network = o.network
	}
	if f.Changed("host") {
		r.Host = o.host
	}
	if f.Changed("port") {
		r.Port = o.port
	}
	if f.Changed("socket") {
		r.Socket = o.socket
		if !f.Changed("network") {
			r.Network = inquire.NetworkUnix
		}
	}
	if f.Changed("url") {
		r.URL = o.url
		if !f.Changed("network") {
			r.Network = inquire.NetworkWebSocket
		}
	}
	if f.Changed("bundle") {
		b := o.bundle
		r.Bundle = &b
	}
	if f.Changed("framing") {
		r.Framing = o.framing
	}
	return &r
}
