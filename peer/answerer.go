package peer

import (
	"context"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"

	inquire "github.com/Paranoid-AF/inquire"
)

// Script answers from a fixed map. A question missing from the map gets its
// default, then the value of its first choice.
type Script struct {
	Answers map[string]any
}

// Answer implements Answerer. A notice means the session refused a scripted
// value, which asking again cannot change, so it is an error.
func (s Script) Answer(_ context.Context, req Request) (*inquire.Answers, error) {
	if req.Notice != "" {
		return nil, fmt.Errorf("scripted answer rejected: %s", req.Notice)
	}
	out := inquire.NewAnswers()
	for _, q := range req.Questions {
		v, err := s.answer(q)
		if err != nil {
			return nil, err
		}
		out.Set(q.Name, v)
	}
	return out, nil
}

func (s Script) answer(q *inquire.Question) (any, error) {
	if v, ok := s.Answers[q.Name]; ok {
		return v, nil
	}
	if v := q.Default.Value(); v != nil {
		return v, nil
	}
	if choices := q.Choices.Value(); len(choices) > 0 {
		return choices[0].Answer(), nil
	}
	return nil, fmt.Errorf("no scripted answer for %q", q.Name)
}

// Memo remembers the answers of another Answerer by question name, so a
// question asked again within ttl is not put to the inner Answerer twice.
// Answers the session rejects are forgotten.
type Memo struct {
	next  Answerer
	cache *ttlcache.Cache[string, any]
}

// NewMemo wraps next. A zero ttl keeps answers until Close.
func NewMemo(next Answerer, ttl time.Duration) *Memo {
	c := ttlcache.New[string, any](
		ttlcache.WithTTL[string, any](ttl),
		ttlcache.WithDisableTouchOnHit[string, any](),
	)
	go c.Start()
	return &Memo{next: next, cache: c}
}

// Close stops the cache expiration loop.
func (m *Memo) Close() {
	m.cache.Stop()
}

// Answer implements Answerer.
func (m *Memo) Answer(ctx context.Context, req Request) (*inquire.Answers, error) {
	if req.Notice != "" {
		for _, q := range req.Questions {
			m.cache.Delete(q.Name)
		}
	}

	var missing []*inquire.Question
	for _, q := range req.Questions {
		if m.cache.Get(q.Name) == nil {
			missing = append(missing, q)
		}
	}

	fresh := inquire.NewAnswers()
	if len(missing) > 0 {
		sub := req
		sub.Questions = missing
		got, err := m.next.Answer(ctx, sub)
		if err != nil {
			return nil, err
		}
		if got != nil {
			fresh = got
		}
	}

	out := inquire.NewAnswers()
	for _, q := range req.Questions {
		if v, ok := fresh.Get(q.Name); ok {
			m.cache.Set(q.Name, v, ttlcache.DefaultTTL)
			out.Set(q.Name, v)
			continue
		}
		item := m.cache.Get(q.Name)
		if item == nil {
			return nil, fmt.Errorf("no answer for %q", q.Name)
		}
		out.Set(q.Name, item.Value())
	}
	return out, nil
}

// QuestionAsker renders one question and returns the raw answer.
// terminal.Prompter implements it.
type QuestionAsker interface {
	Ask(ctx context.Context, q *inquire.Question, notice string) (any, error)
}

// Interactive puts every question to a person at the controller's terminal.
type Interactive struct {
	Asker QuestionAsker
}

// Answer implements Answerer. The notice is shown with the first question.
func (i Interactive) Answer(ctx context.Context, req Request) (*inquire.Answers, error) {
	out := inquire.NewAnswers()
	notice := req.Notice
	for _, q := range req.Questions {
		v, err := i.Asker.Ask(ctx, q, notice)
		if err != nil {
			return nil, err
		}
		notice = ""
		out.Set(q.Name, v)
	}
	return out, nil
}
