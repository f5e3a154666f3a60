// Package peer is the controller side of the protocol: it reads questions
// from a session, obtains answers from an Answerer and writes them back.
package peer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"

	"github.com/gorilla/websocket"

	inquire "github.com/Paranoid-AF/inquire"
	"github.com/Paranoid-AF/inquire/transport"
)

// Request is the question or bundle a session is waiting on.
type Request struct {
	Questions []*inquire.Question
	// Bundle is set when the session expects an object keyed by question name.
	Bundle bool
	// Notice is the session's complaint about the previous answer, if any.
	Notice string
}

// Answerer produces an answer for every question of a request.
type Answerer interface {
	Answer(ctx context.Context, req Request) (*inquire.Answers, error)
}

// AnswererFunc adapts a function to Answerer.
type AnswererFunc func(ctx context.Context, req Request) (*inquire.Answers, error)

func (f AnswererFunc) Answer(ctx context.Context, req Request) (*inquire.Answers, error) {
	return f(ctx, req)
}

// Respond answers every question tr receives until the session hangs up.
// A clean hang-up returns nil. tr must already be connected.
func Respond(ctx context.Context, tr transport.Transport, a Answerer, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	defer tr.Close()

	for {
		raw, err := tr.Receive(ctx)
		if err != nil {
			if hungUp(err) {
				logger.Debug("session closed")
				return nil
			}
			return err
		}
		logger.Debug("request", "data", string(raw))

		req, err := decodeRequest(raw)
		if err != nil {
			return err
		}
		if req.Notice != "" {
			logger.Info("answer rejected", "notice", req.Notice)
		}

		answers, err := a.Answer(ctx, req)
		if err != nil {
			return err
		}
		data, err := encodeAnswer(req, answers)
		if err != nil {
			return err
		}
		logger.Debug("response", "data", string(data))
		if err := tr.Send(ctx, data); err != nil {
			return err
		}
	}
}

func decodeRequest(raw []byte) (Request, error) {
	var env inquire.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Request{}, fmt.Errorf("decode message: %w", err)
	}
	switch env.Type {
	case inquire.TypeQuestion, inquire.TypeError:
	default:
		return Request{}, fmt.Errorf("unexpected message type %q", env.Type)
	}
	questions, bundled, err := env.Questions()
	if err != nil {
		return Request{}, err
	}
	req := Request{Questions: questions, Bundle: bundled}
	if env.Type == inquire.TypeError {
		req.Notice = env.Message
		if req.Notice == "" {
			req.Notice = "answer rejected"
		}
	}
	return req, nil
}

// encodeAnswer writes a bare value for a single question and an object for a bundle.
func encodeAnswer(req Request, answers *inquire.Answers) ([]byte, error) {
	if answers == nil {
		answers = inquire.NewAnswers()
	}
	if req.Bundle {
		return json.Marshal(answers)
	}
	if len(req.Questions) == 0 {
		return nil, errors.New("no question to answer")
	}
	name := req.Questions[0].Name
	v, ok := answers.Get(name)
	if !ok {
		return nil, fmt.Errorf("no answer for %q", name)
	}
	return json.Marshal(v)
}

// hungUp reports whether err only means the session went away.
func hungUp(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var cerr *websocket.CloseError
	if errors.As(err, &cerr) && websocket.IsCloseError(cerr, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return true
	}
	return strings.Contains(err.Error(), "connection reset by peer")
}
