package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	inquire "github.com/Paranoid-AF/inquire"
	"github.com/Paranoid-AF/inquire/transport"
)

// scriptedTransport replays canned replies and records everything sent.
type scriptedTransport struct {
	replies    []string
	sent       []inquire.Envelope
	connectErr error
	connected  bool
	closed     bool
}

func (f *scriptedTransport) Connect(context.Context) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *scriptedTransport) Send(_ context.Context, payload []byte) error {
	var env inquire.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return err
	}
	f.sent = append(f.sent, env)
	return nil
}

func (f *scriptedTransport) Receive(context.Context) ([]byte, error) {
	if len(f.replies) == 0 {
		return nil, &transport.ConnectionError{Op: "read", Addr: "script", Err: io.EOF}
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return []byte(reply), nil
}

func (f *scriptedTransport) Close() error {
	f.closed = true
	return nil
}

func basic() *inquire.Question {
	return &inquire.Question{Type: "input", Name: "basic", Message: inquire.Literal("gimme test")}
}

func complexQuestion() *inquire.Question {
	return &inquire.Question{
		Type:    "input",
		Name:    "complex",
		Message: inquire.Literal("gimme test"),
		Default: inquire.Computed(func(inquire.View) (any, error) { return "defaultcomplex", nil }),
		Validate: func(answer any) error {
			if answer == "test" || answer == "defaultcomplex" {
				return nil
			}
			return inquire.Reject("")
		},
		Filter: func(answer any) (any, error) {
			return strings.ToUpper(answer.(string)), nil
		},
		When: func(inquire.View) (bool, error) { return true, nil },
	}
}

func run(t *testing.T, tr *scriptedTransport, bundled bool, qs ...*inquire.Question) (*inquire.Answers, error) {
	t.Helper()
	return New(tr, Options{Bundle: bundled}).Run(context.Background(), qs)
}

func TestBasicQuestion(t *testing.T) {
	tr := &scriptedTransport{replies: []string{`"workit"`}}
	answers, err := run(t, tr, false, basic())
	if err != nil {
		t.Fatal(err)
	}
	if got := answers.String("basic"); got != "workit" {
		t.Errorf("expected workit, got %q", got)
	}
	if len(tr.sent) != 1 || tr.sent[0].Type != inquire.TypeQuestion {
		t.Fatalf("expected one question message, got %+v", tr.sent)
	}
	qs, bundle, err := tr.sent[0].Questions()
	if err != nil {
		t.Fatal(err)
	}
	if bundle || qs[0].Name != "basic" || qs[0].Message.Value() != "gimme test" || qs[0].Type != "input" {
		t.Errorf("unexpected question on the wire: %+v", qs[0])
	}
	if !tr.closed {
		t.Error("expected transport closed after success")
	}
}

func TestComplexQuestionResolvesValidatesAndFilters(t *testing.T) {
	tr := &scriptedTransport{replies: []string{`"defaultcomplex"`}}
	answers, err := run(t, tr, false, complexQuestion())
	if err != nil {
		t.Fatal(err)
	}
	if got := answers.String("complex"); got != "DEFAULTCOMPLEX" {
		t.Errorf("expected filtered answer, got %q", got)
	}
	var wire map[string]any
	if err := json.Unmarshal(tr.sent[0].Question, &wire); err != nil {
		t.Fatal(err)
	}
	if wire["default"] != "defaultcomplex" {
		t.Errorf("expected resolved default on the wire, got %v", wire)
	}
	for _, key := range []string{"validate", "filter", "when"} {
		if _, ok := wire[key]; ok {
			t.Errorf("expected %s to be omitted, got %v", key, wire)
		}
	}
}

func TestComputedChoices(t *testing.T) {
	list := &inquire.Question{
		Type:    "list",
		Name:    "list",
		Message: inquire.Computed(func(inquire.View) (string, error) { return "list", nil }),
		Default: inquire.Literal[any]("answer2_value"),
		Choices: inquire.Computed(func(inquire.View) ([]inquire.Choice, error) {
			return []inquire.Choice{
				{Name: "answer1_name", Value: "answer1_value"},
				{Name: "answer2_name", Value: "answer2_value"},
				{Name: "answer3_name", Value: "answer3_value"},
			}, nil
		}),
	}
	for _, bundled := range []bool{false, true} {
		reply := `"answer2_value"`
		if bundled {
			reply = `{"list":"answer2_value"}`
		}
		tr := &scriptedTransport{replies: []string{reply}}
		answers, err := run(t, tr, bundled, list)
		if err != nil {
			t.Fatal(err)
		}
		if answers.String("list") != "answer2_value" {
			t.Errorf("bundle=%v: unexpected answer %v", bundled, answers.Map())
		}
		qs, _, err := tr.sent[0].Questions()
		if err != nil {
			t.Fatal(err)
		}
		choices := qs[0].Choices.Value()
		if len(choices) != 3 || choices[1].Name != "answer2_name" || choices[1].Value != "answer2_value" {
			t.Errorf("bundle=%v: unexpected choices %+v", bundled, choices)
		}
	}
}

func TestWhenFalseSendsNothing(t *testing.T) {
	for _, bundled := range []bool{false, true} {
		q := basic()
		q.When = func(inquire.View) (bool, error) { return false, nil }
		tr := &scriptedTransport{}
		answers, err := run(t, tr, bundled, q)
		if err != nil {
			t.Fatal(err)
		}
		if answers.Len() != 0 {
			t.Errorf("bundle=%v: expected empty answers, got %v", bundled, answers.Map())
		}
		if len(tr.sent) != 0 {
			t.Errorf("bundle=%v: expected no messages, got %d", bundled, len(tr.sent))
		}
	}
}

func TestParseErrorRetriesSameQuestion(t *testing.T) {
	tr := &scriptedTransport{replies: []string{`"workit}}`, `"workit"`}}
	answers, err := run(t, tr, false, basic())
	if err != nil {
		t.Fatal(err)
	}
	if answers.String("basic") != "workit" {
		t.Errorf("expected workit, got %v", answers.Map())
	}
	if len(tr.sent) != 2 {
		t.Fatalf("expected question then one error notice, got %d messages", len(tr.sent))
	}
	notice := tr.sent[1]
	if notice.Type != inquire.TypeError || !strings.HasPrefix(notice.Message, "parse error: ") {
		t.Errorf("unexpected notice %+v", notice)
	}
	qs, _, err := notice.Questions()
	if err != nil || qs[0].Name != "basic" {
		t.Errorf("expected notice to carry the pending question, got %+v (%v)", qs, err)
	}
}

func TestEachMalformedReplyGetsOneNotice(t *testing.T) {
	tr := &scriptedTransport{replies: []string{`{`, `nope`, `[1,`, `"ok"`}}
	if _, err := run(t, tr, false, basic()); err != nil {
		t.Fatal(err)
	}
	notices := 0
	for _, m := range tr.sent[1:] {
		if m.Type == inquire.TypeError {
			notices++
		}
	}
	if notices != 3 {
		t.Errorf("expected 3 notices, got %d", notices)
	}
}

func TestValidationMessages(t *testing.T) {
	tests := []struct {
		name     string
		validate inquire.Validator
		expected string
	}{
		{
			name:     "default reason",
			validate: func(any) error { return inquire.Reject("") },
			expected: "validate error: invalid value for basic",
		},
		{
			name:     "custom reason",
			validate: func(any) error { return inquire.Reject("must be at least 3 letters") },
			expected: "validate error: must be at least 3 letters",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := true
			q := basic()
			q.Validate = func(a any) error {
				if first {
					first = false
					return tt.validate(a)
				}
				return nil
			}
			tr := &scriptedTransport{replies: []string{`"no"`, `"yes"`}}
			answers, err := run(t, tr, false, q)
			if err != nil {
				t.Fatal(err)
			}
			if answers.String("basic") != "yes" {
				t.Errorf("expected second reply stored, got %v", answers.Map())
			}
			if len(tr.sent) != 2 || tr.sent[1].Message != tt.expected {
				t.Errorf("expected notice %q, got %+v", tt.expected, tr.sent)
			}
		})
	}
}

func TestComputedFieldsSeePriorAnswers(t *testing.T) {
	q1 := &inquire.Question{Name: "q1", Message: inquire.Literal("name?")}
	q2 := &inquire.Question{
		Name: "q2",
		Message: inquire.Computed(func(a inquire.View) (string, error) {
			v, _ := a.Get("q1")
			return "hello " + v.(string), nil
		}),
	}
	tr := &scriptedTransport{replies: []string{`{"q1":"ann"}`, `{"q2":"hi"}`}}
	answers, err := run(t, tr, true, q1, q2)
	if err != nil {
		t.Fatal(err)
	}
	if len(tr.sent) != 2 {
		t.Fatalf("expected two bundles, got %d messages", len(tr.sent))
	}
	qs, bundle, err := tr.sent[1].Questions()
	if err != nil {
		t.Fatal(err)
	}
	if !bundle || len(qs) != 1 || qs[0].Message.Value() != "hello ann" {
		t.Errorf("expected second bundle with resolved message, got %+v", qs)
	}
	if names := answers.Names(); len(names) != 2 || names[0] != "q1" || names[1] != "q2" {
		t.Errorf("unexpected answer order %v", names)
	}
}

func TestBundleSendsStaticRunTogether(t *testing.T) {
	qs := []*inquire.Question{
		{Name: "a", Message: inquire.Literal("a?")},
		{Name: "b", Message: inquire.Literal("b?")},
		{Name: "c", Message: inquire.Literal("c?")},
	}
	tr := &scriptedTransport{replies: []string{`{"c":3,"a":1,"b":2}`}}
	answers, err := run(t, tr, true, qs...)
	if err != nil {
		t.Fatal(err)
	}
	if len(tr.sent) != 1 {
		t.Fatalf("expected one bundle, got %d", len(tr.sent))
	}
	if names := answers.Names(); strings.Join(names, ",") != "a,b,c" {
		t.Errorf("expected declaration order, got %v", names)
	}
	if v, _ := answers.Get("c"); v != float64(3) {
		t.Errorf("expected c=3, got %v", v)
	}
}

func TestBundleValidationFailureRequiresWholeBundle(t *testing.T) {
	filtered := 0
	a := &inquire.Question{
		Name: "a",
		Filter: func(v any) (any, error) {
			filtered++
			return v, nil
		},
	}
	b := &inquire.Question{
		Name: "b",
		Validate: func(v any) error {
			if v == "bad" {
				return inquire.Reject("b is bad")
			}
			return nil
		},
	}
	tr := &scriptedTransport{replies: []string{
		`{"a":"x","b":"bad"}`,
		`{"b":"good"}`,
		`{"a":"y","b":"good"}`,
	}}
	answers, err := run(t, tr, true, a, b)
	if err != nil {
		t.Fatal(err)
	}
	if answers.String("a") != "y" || answers.String("b") != "good" {
		t.Errorf("expected answers from the last full response, got %v", answers.Map())
	}
	if len(tr.sent) != 3 {
		t.Fatalf("expected bundle plus two notices, got %d", len(tr.sent))
	}
	if tr.sent[1].Message != "validate error: b is bad" {
		t.Errorf("unexpected first notice %q", tr.sent[1].Message)
	}
	if tr.sent[2].Message != "validate error: missing answer for a" {
		t.Errorf("unexpected second notice %q", tr.sent[2].Message)
	}
	notice, bundle, err := tr.sent[1].Questions()
	if err != nil {
		t.Fatal(err)
	}
	if !bundle || len(notice) != 2 {
		t.Errorf("expected full bundle re-emitted in notice, got %+v", notice)
	}
	if filtered != 2 {
		t.Errorf("expected filter on first and last responses, ran %d times", filtered)
	}
}

func TestBundleRejectsNonObjectAndUnknownKeys(t *testing.T) {
	tr := &scriptedTransport{replies: []string{`"workit"`, `{"zzz":1}`, `{"basic":"workit"}`}}
	answers, err := run(t, tr, true, basic())
	if err != nil {
		t.Fatal(err)
	}
	if answers.String("basic") != "workit" {
		t.Errorf("unexpected answers %v", answers.Map())
	}
	if got := tr.sent[1].Message; got != "parse error: expected an object keyed by question name" {
		t.Errorf("unexpected non-object notice %q", got)
	}
	if got := tr.sent[2].Message; got != "validate error: unknown question zzz" {
		t.Errorf("unexpected unknown-key notice %q", got)
	}
}

func TestBundleMalformedReplyKeepsSyntaxDetail(t *testing.T) {
	tr := &scriptedTransport{replies: []string{`{"basic":"workit"}}`, `{"basic":"workit"}`}}
	answers, err := run(t, tr, true, basic())
	if err != nil {
		t.Fatal(err)
	}
	if answers.String("basic") != "workit" {
		t.Errorf("unexpected answers %v", answers.Map())
	}
	got := tr.sent[1].Message
	if !strings.HasPrefix(got, "parse error: ") || strings.Contains(got, "expected an object") {
		t.Errorf("expected a syntax error notice, got %q", got)
	}
	if qs, bundle, err := tr.sent[0].Questions(); err != nil || !bundle || len(qs) != 1 {
		t.Errorf("expected a one-member bundle message, got bundle=%v %v %v", bundle, qs, err)
	}
}

func TestAnsweredNameNotAskedAgain(t *testing.T) {
	tr := &scriptedTransport{replies: []string{`"first"`}}
	answers, err := run(t, tr, false, basic(), basic())
	if err != nil {
		t.Fatal(err)
	}
	if len(tr.sent) != 1 || answers.String("basic") != "first" {
		t.Errorf("expected duplicate name skipped, sent %d, answers %v", len(tr.sent), answers.Map())
	}
}

func TestConnectFailure(t *testing.T) {
	cerr := &transport.ConnectionError{Op: "dial", Addr: "x", Err: errors.New("refused")}
	tr := &scriptedTransport{connectErr: cerr}
	s := New(tr, Options{})
	answers, err := s.Run(context.Background(), []*inquire.Question{basic()})
	if answers != nil {
		t.Errorf("expected no answers on failure, got %v", answers.Map())
	}
	var got *transport.ConnectionError
	if !errors.As(err, &got) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
	if s.State() != StateFailed || !tr.closed {
		t.Errorf("expected failed state and closed transport, got %s closed=%v", s.State(), tr.closed)
	}
}

func TestMidSessionDisconnectReturnsNoAnswers(t *testing.T) {
	tr := &scriptedTransport{replies: []string{`"one"`}}
	second := &inquire.Question{Name: "second"}
	answers, err := run(t, tr, false, basic(), second)
	if answers != nil {
		t.Errorf("expected nil answers, got %v", answers.Map())
	}
	if !errors.Is(err, io.EOF) {
		t.Errorf("expected EOF cause, got %v", err)
	}
}

func TestCallbackErrorsAreFatal(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name   string
		mutate func(q *inquire.Question)
	}{
		{name: "when", mutate: func(q *inquire.Question) {
			q.When = func(inquire.View) (bool, error) { return false, boom }
		}},
		{name: "message", mutate: func(q *inquire.Question) {
			q.Message = inquire.Computed(func(inquire.View) (string, error) { return "", boom })
		}},
		{name: "validate", mutate: func(q *inquire.Question) {
			q.Validate = func(any) error { return boom }
		}},
		{name: "filter", mutate: func(q *inquire.Question) {
			q.Filter = func(any) (any, error) { return nil, boom }
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := basic()
			tt.mutate(q)
			tr := &scriptedTransport{replies: []string{`"workit"`}}
			answers, err := run(t, tr, false, q)
			if !errors.Is(err, boom) {
				t.Fatalf("expected boom, got %v", err)
			}
			if answers != nil || !tr.closed {
				t.Errorf("expected no answers and closed transport")
			}
		})
	}
}

func TestTransitionsSingleRound(t *testing.T) {
	var seen []string
	tr := &scriptedTransport{replies: []string{`bad`, `"ok"`}}
	s := New(tr, Options{OnTransition: func(_, to State) { seen = append(seen, to.String()) }})
	if _, err := s.Run(context.Background(), []*inquire.Question{basic()}); err != nil {
		t.Fatal(err)
	}
	expected := "sending,awaiting_response,validating,retry,awaiting_response,validating,resolved,next,done"
	if got := strings.Join(seen, ","); got != expected {
		t.Errorf("transitions = %s\nexpected    %s", got, expected)
	}
}

func TestRunTwice(t *testing.T) {
	tr := &scriptedTransport{replies: []string{`"a"`}}
	s := New(tr, Options{})
	if _, err := s.Run(context.Background(), []*inquire.Question{basic()}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Run(context.Background(), []*inquire.Question{basic()}); !errors.Is(err, ErrAlreadyRun) {
		t.Errorf("expected ErrAlreadyRun, got %v", err)
	}
}

func TestOverTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	received := make(chan inquire.Envelope, 2)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		peer := transport.AcceptStream(conn, transport.Options{})
		for _, reply := range []string{`"workit"}}`, `"workit"`} {
			raw, err := peer.Receive(context.Background())
			if err != nil {
				return
			}
			var env inquire.Envelope
			json.Unmarshal(raw, &env)
			received <- env
			peer.Send(context.Background(), []byte(reply))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tr := transport.NewStream("tcp", ln.Addr().String(), transport.Options{})
	answers, err := New(tr, Options{}).Run(ctx, []*inquire.Question{basic()})
	if err != nil {
		t.Fatal(err)
	}
	if answers.String("basic") != "workit" {
		t.Errorf("expected workit, got %v", answers.Map())
	}
	if first := nextEnvelope(t, received); first.Type != inquire.TypeQuestion {
		t.Errorf("expected question first, got %+v", first)
	}
	if second := nextEnvelope(t, received); second.Type != inquire.TypeError || !strings.HasPrefix(second.Message, "parse error: ") {
		t.Errorf("expected parse error notice second, got %+v", second)
	}
}

func nextEnvelope(t *testing.T, ch <-chan inquire.Envelope) inquire.Envelope {
	t.Helper()
	select {
	case env := <-ch:
		return env
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a message from the session")
		return inquire.Envelope{}
	}
}
