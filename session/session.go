// Package session runs the remote question/answer exchange: it resolves
// dynamic fields, sends questions one at a time or in bundles, and retries on
// malformed or invalid responses until every question is answered.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	inquire "github.com/Paranoid-AF/inquire"
	"github.com/Paranoid-AF/inquire/bundle"
	"github.com/Paranoid-AF/inquire/transport"
)

// State is a step of the session state machine.
type State int

const (
	StateIdle State = iota
	StateSending
	StateAwaitingResponse
	StateValidating
	StateResolved
	StateRetry
	StateNext
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateIdle:             "idle",
	StateSending:          "sending",
	StateAwaitingResponse: "awaiting_response",
	StateValidating:       "validating",
	StateResolved:         "resolved",
	StateRetry:            "retry",
	StateNext:             "next",
	StateDone:             "done",
	StateFailed:           "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// ParseError reports a response that is not valid JSON, or in bundle mode not
// a JSON object. It is recoverable: the peer is asked to answer again.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "parse error: " + e.Err.Error() }

func (e *ParseError) Unwrap() error { return e.Err }

var errNotObject = errors.New("expected an object keyed by question name")

// ErrAlreadyRun is returned when Run is called on a session that has run before.
var ErrAlreadyRun = errors.New("session already run")

// Options configures a Session.
type Options struct {
	// Bundle sends runs of static questions together in one round trip.
	Bundle bool
	// Logger receives debug logs of every message and transition.
	// Defaults to slog.Default().
	Logger *slog.Logger
	// OnTransition, when set, is called on every state change.
	OnTransition func(from, to State)
}

// Session asks one ordered list of questions over one transport.
// At most one question or bundle is outstanding at any time.
type Session struct {
	tr   transport.Transport
	opts Options
	id   string
	log  *slog.Logger

	state   State
	answers *inquire.Answers
}

// New creates a session that will connect tr when run.
func New(tr transport.Transport, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	return &Session{
		tr:   tr,
		opts: opts,
		id:   id,
		log:  logger.With("session", id),
	}
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// State returns the current state.
func (s *Session) State() State { return s.state }

// Run connects the transport and asks every question in order. It returns the
// answers once all questions are answered or skipped. On any fatal error the
// transport is closed and no answers are returned.
func (s *Session) Run(ctx context.Context, questions []*inquire.Question) (*inquire.Answers, error) {
	if s.state != StateIdle {
		return nil, ErrAlreadyRun
	}
	s.answers = inquire.NewAnswers()

	if err := s.tr.Connect(ctx); err != nil {
		return nil, s.fail(err)
	}

	for _, u := range s.units(questions) {
		if err := s.round(ctx, u); err != nil {
			return nil, s.fail(err)
		}
	}

	s.transition(StateDone)
	if err := s.tr.Close(); err != nil {
		s.log.Warn("close transport", "error", err)
	}
	return s.answers, nil
}

// units splits questions into round trips: bundles in bundle mode, else one
// question each.
func (s *Session) units(questions []*inquire.Question) []bundle.Bundle {
	if s.opts.Bundle {
		return bundle.Group(questions)
	}
	units := make([]bundle.Bundle, len(questions))
	for i, q := range questions {
		units[i] = bundle.Bundle{q}
	}
	return units
}

// round performs one round trip for a unit, retrying until its response is accepted.
func (s *Session) round(ctx context.Context, unit bundle.Bundle) error {
	pending, err := s.prepare(unit)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	var outstanding any = pending[0]
	msg := inquire.QuestionMessage(pending[0])
	if s.opts.Bundle {
		outstanding = []*inquire.Question(pending)
		msg = inquire.BundleMessage(pending)
	}

	s.transition(StateSending)
	s.log.Debug("asking", "questions", pending.Names())
	if err := s.send(ctx, msg); err != nil {
		return err
	}

	for {
		s.transition(StateAwaitingResponse)
		raw, err := s.tr.Receive(ctx)
		if err != nil {
			return err
		}
		s.log.Debug("response", "data", string(raw))

		s.transition(StateValidating)
		accepted, err := s.accept(raw, pending)
		if err == nil {
			for _, q := range pending {
				v, _ := accepted.Get(q.Name)
				s.answers.Set(q.Name, v)
			}
			s.transition(StateResolved)
			s.transition(StateNext)
			return nil
		}

		notice, ok := retryNotice(err)
		if !ok {
			return err
		}
		s.transition(StateRetry)
		s.log.Debug("retry", "reason", notice)
		if err := s.send(ctx, inquire.ErrorMessage(notice, outstanding)); err != nil {
			return err
		}
	}
}

// prepare drops answered and hidden members and resolves computed fields of
// the rest against the answers collected so far.
func (s *Session) prepare(unit bundle.Bundle) (bundle.Bundle, error) {
	var pending bundle.Bundle
	for _, q := range unit {
		if s.answers.Has(q.Name) {
			s.log.Debug("already answered", "question", q.Name)
			continue
		}
		asked, err := q.Asked(s.answers)
		if err != nil {
			return nil, err
		}
		if !asked {
			s.log.Debug("skipped", "question", q.Name)
			continue
		}
		if err := q.Resolve(s.answers); err != nil {
			return nil, err
		}
		pending = append(pending, q)
	}
	return pending, nil
}

// accept parses and checks one response. All accepted values are returned
// together; a single failure discards the whole response.
func (s *Session) accept(raw []byte, pending bundle.Bundle) (*inquire.Answers, error) {
	if !s.opts.Bundle {
		q := pending[0]
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, &ParseError{Err: err}
		}
		v, err := checkAndFilter(q, v)
		if err != nil {
			return nil, err
		}
		out := inquire.NewAnswers()
		out.Set(q.Name, v)
		return out, nil
	}

	var resp inquire.Answers
	if err := json.Unmarshal(raw, &resp); err != nil {
		var serr *json.SyntaxError
		if errors.As(err, &serr) {
			return nil, &ParseError{Err: err}
		}
		return nil, &ParseError{Err: errNotObject}
	}
	staged := inquire.NewAnswers()
	for _, name := range resp.Names() {
		q := pending.Find(name)
		if q == nil {
			return nil, &inquire.ValidationError{Question: name, Reason: "unknown question " + name}
		}
		v, _ := resp.Get(name)
		v, err := checkAndFilter(q, v)
		if err != nil {
			return nil, err
		}
		staged.Set(name, v)
	}
	for _, q := range pending {
		if !staged.Has(q.Name) {
			return nil, &inquire.ValidationError{Question: q.Name, Reason: "missing answer for " + q.Name}
		}
	}
	return staged, nil
}

func checkAndFilter(q *inquire.Question, v any) (any, error) {
	if err := q.Check(v); err != nil {
		return nil, err
	}
	return q.Apply(v)
}

// retryNotice returns the notice text for recoverable errors.
func retryNotice(err error) (string, bool) {
	var perr *ParseError
	if errors.As(err, &perr) {
		return perr.Error(), true
	}
	var verr *inquire.ValidationError
	if errors.As(err, &verr) {
		return "validate error: " + verr.Reason, true
	}
	return "", false
}

func (s *Session) send(ctx context.Context, msg inquire.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", msg.Type, err)
	}
	s.log.Debug("request", "data", string(data))
	return s.tr.Send(ctx, data)
}

func (s *Session) fail(err error) error {
	s.transition(StateFailed)
	if cerr := s.tr.Close(); cerr != nil {
		s.log.Debug("close transport", "error", cerr)
	}
	s.log.Debug("session failed", "error", err)
	return err
}

func (s *Session) transition(to State) {
	from := s.state
	s.state = to
	if s.opts.OnTransition != nil {
		s.opts.OnTransition(from, to)
	}
}
