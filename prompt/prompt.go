// Package prompt asks a list of questions either on the local terminal or
// through a remote peer, depending on configuration.
package prompt

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	inquire "github.com/Paranoid-AF/inquire"
	"github.com/Paranoid-AF/inquire/session"
	"github.com/Paranoid-AF/inquire/terminal"
	"github.com/Paranoid-AF/inquire/transport"
)

// Prompter asks questions locally and returns a complete answer map.
type Prompter interface {
	Prompt(ctx context.Context, questions []*inquire.Question) (*inquire.Answers, error)
}

// isTerminal reports whether a reader is a TTY.
var isTerminal = defaultIsTerminal

// Asker picks the local or remote path for each Ask call.
type Asker struct {
	Config *inquire.Config
	// Mode, when set, replaces the mode resolved from Config and the environment.
	Mode string
	// Remote, when set, replaces the remote settings resolved from Config and
	// the environment.
	Remote *inquire.RemoteConfig
	// Prompter is used in terminal mode. Defaults to a terminal.Prompter.
	Prompter Prompter
	// Dial builds the remote transport. Defaults to transport.New.
	Dial func(inquire.RemoteConfig) (transport.Transport, error)
	// Stdin decides auto mode. Defaults to os.Stdin.
	Stdin  io.Reader
	Logger *slog.Logger
	// OnTransition is passed to remote sessions.
	OnTransition func(from, to session.State)
}

// Ask asks questions with the mode cfg selects.
func Ask(ctx context.Context, questions []*inquire.Question, cfg *inquire.Config) (*inquire.Answers, error) {
	return (&Asker{Config: cfg}).Ask(ctx, questions)
}

// Ask asks questions and returns all answers, or nil and an error.
func (a *Asker) Ask(ctx context.Context, questions []*inquire.Question) (*inquire.Answers, error) {
	mode, err := a.SelectMode()
	if err != nil {
		return nil, err
	}
	a.logger().Debug("prompt mode", "mode", mode, "questions", len(questions))

	if mode == inquire.ModeTerminal {
		p := a.Prompter
		if p == nil {
			p = terminal.New(terminal.Options{NoColor: inquire.NoColor(a.Config)})
		}
		return Local(ctx, p, questions)
	}

	remote := inquire.ResolveRemote(a.Config)
	if a.Remote != nil {
		remote = *a.Remote
	}
	dial := a.Dial
	if dial == nil {
		dial = transport.New
	}
	tr, err := dial(remote)
	if err != nil {
		return nil, fmt.Errorf("remote transport: %w", err)
	}
	s := session.New(tr, session.Options{
		Bundle:       remote.Bundled(),
		Logger:       a.Logger,
		OnTransition: a.OnTransition,
	})
	a.logger().Debug("remote session", "session", s.ID(), "network", remote.Network, "bundle", remote.Bundled())
	return s.Run(ctx, questions)
}

// SelectMode resolves auto mode to remote or terminal. A process whose stdin
// is not a terminal is assumed to be driven by a controller.
func (a *Asker) SelectMode() (string, error) {
	mode := strings.ToLower(a.Mode)
	if mode == "" {
		mode = inquire.ResolveMode(a.Config)
	}
	switch mode {
	case inquire.ModeTerminal, inquire.ModeRemote:
		return mode, nil
	case inquire.ModeAuto, "":
		in := a.Stdin
		if in == nil {
			in = os.Stdin
		}
		if isTerminal(in) {
			return inquire.ModeTerminal, nil
		}
		return inquire.ModeRemote, nil
	default:
		return "", fmt.Errorf("invalid mode %q (expected auto|remote|terminal)", mode)
	}
}

func (a *Asker) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

// Local hands the full question list to p and adopts its answers as they are.
func Local(ctx context.Context, p Prompter, questions []*inquire.Question) (*inquire.Answers, error) {
	answers, err := p.Prompt(ctx, questions)
	if err != nil {
		return nil, err
	}
	if answers == nil {
		answers = inquire.NewAnswers()
	}
	return answers, nil
}

func defaultIsTerminal(r io.Reader) bool {
	if r == nil {
		return false
	}
	if file, ok := r.(*os.File); ok {
		return term.IsTerminal(int(file.Fd()))
	}
	if fder, ok := r.(interface{ Fd() uintptr }); ok {
		return term.IsTerminal(int(fder.Fd()))
	}
	return false
}
