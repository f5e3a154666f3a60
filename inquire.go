// Package inquire defines the questions, answers and wire messages of the
// inquire question/answer protocol.
// Messages are JSON-encoded and exchanged over a byte-stream connection, one
// message per frame.
package inquire

import (
	"bytes"
	"encoding/json"
)

// Message types.
const (
	TypeQuestion = "question"
	TypeError    = "error"
)

// Message is sent from the asking session to the peer.
type Message struct {
	// Type is "question" or "error".
	Type string `json:"type"`
	// Message is the notice text of an "error" message.
	Message string `json:"message,omitempty"`
	// Question is a single *Question, or a []*Question in bundle mode.
	Question any `json:"question"`
}

// QuestionMessage builds the outbound message for a single question.
func QuestionMessage(q *Question) Message {
	return Message{Type: TypeQuestion, Question: q}
}

// BundleMessage builds the outbound message for a bundle of questions.
func BundleMessage(qs []*Question) Message {
	return Message{Type: TypeQuestion, Question: qs}
}

// ErrorMessage builds an error notice about the outstanding question or bundle.
func ErrorMessage(notice string, question any) Message {
	return Message{Type: TypeError, Message: notice, Question: question}
}

// Envelope is a Message as received by the peer. The question payload is
// decoded separately because its shape depends on the mode.
type Envelope struct {
	Type     string          `json:"type"`
	Message  string          `json:"message,omitempty"`
	Question json.RawMessage `json:"question"`
}

// Questions decodes the payload as either one question or a bundle.
// bundle reports which form was received.
func (e *Envelope) Questions() (qs []*Question, bundle bool, err error) {
	if trimmed := bytes.TrimLeft(e.Question, " \t\r\n"); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(e.Question, &qs); err != nil {
			return nil, true, err
		}
		return qs, true, nil
	}
	var q Question
	if err := json.Unmarshal(e.Question, &q); err != nil {
		return nil, false, err
	}
	return []*Question{&q}, false, nil
}
