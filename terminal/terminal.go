// Package terminal asks questions on a local terminal with Bubble Tea.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	inquire "github.com/Paranoid-AF/inquire"
)

// ErrInterrupted is returned when the user aborts a prompt with Ctrl-C.
var ErrInterrupted = errors.New("prompt interrupted")

// Options configures a Prompter.
type Options struct {
	// Input defaults to os.Stdin.
	Input io.Reader
	// Output defaults to os.Stderr, keeping stdout free for answers.
	Output  io.Writer
	NoColor bool
}

// Prompter asks questions one after another on a terminal.
type Prompter struct {
	opts   Options
	styles styles
	run    func(ctx context.Context, m model) (model, error)
}

// New creates a terminal Prompter.
func New(opts Options) *Prompter {
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	p := &Prompter{opts: opts, styles: newStyles(opts.NoColor)}
	p.run = p.runProgram
	return p
}

// Prompt asks every question in order, honoring When, computed fields,
// Validate and Filter, and returns the answers.
func (p *Prompter) Prompt(ctx context.Context, questions []*inquire.Question) (*inquire.Answers, error) {
	answers := inquire.NewAnswers()
	for _, q := range questions {
		if answers.Has(q.Name) {
			continue
		}
		asked, err := q.Asked(answers)
		if err != nil {
			return nil, err
		}
		if !asked {
			continue
		}
		if err := q.Resolve(answers); err != nil {
			return nil, err
		}
		v, err := p.askValid(ctx, q, "")
		if err != nil {
			return nil, err
		}
		answers.Set(q.Name, v)
	}
	return answers, nil
}

// askValid asks q until its validator accepts, then applies its filter.
func (p *Prompter) askValid(ctx context.Context, q *inquire.Question, notice string) (any, error) {
	for {
		v, err := p.Ask(ctx, q, notice)
		if err != nil {
			return nil, err
		}
		err = q.Check(v)
		var verr *inquire.ValidationError
		if errors.As(err, &verr) {
			notice = verr.Reason
			continue
		}
		if err != nil {
			return nil, err
		}
		return q.Apply(v)
	}
}

// Ask renders one already resolved question and returns the raw answer.
// notice, when not empty, is shown under the question.
func (p *Prompter) Ask(ctx context.Context, q *inquire.Question, notice string) (any, error) {
	m, err := p.run(ctx, newModel(q, notice, p.styles))
	if err != nil {
		return nil, err
	}
	if m.aborted || !m.done {
		return nil, ErrInterrupted
	}
	return m.value, nil
}

func (p *Prompter) runProgram(ctx context.Context, m model) (model, error) {
	prog := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(p.opts.Input),
		tea.WithOutput(p.opts.Output),
	)
	final, err := prog.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return model{}, ctxErr
		}
		return model{}, fmt.Errorf("run prompt: %w", err)
	}
	fm, ok := final.(model)
	if !ok {
		return model{}, fmt.Errorf("run prompt: unexpected model %T", final)
	}
	return fm, nil
}

type styles struct {
	mark    lipgloss.Style
	message lipgloss.Style
	answer  lipgloss.Style
	pointer lipgloss.Style
	hint    lipgloss.Style
	notice  lipgloss.Style
}

func newStyles(noColor bool) styles {
	if noColor {
		plain := lipgloss.NewStyle()
		return styles{mark: plain, message: plain, answer: plain, pointer: plain, hint: plain, notice: plain}
	}
	return styles{
		mark:    lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		message: lipgloss.NewStyle().Bold(true),
		answer:  lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		pointer: lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true),
		hint:    lipgloss.NewStyle().Faint(true),
		notice:  lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	}
}
